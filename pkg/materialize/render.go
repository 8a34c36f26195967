package materialize

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gnana997/propgen/pkg/proptype"
)

// companion renders a standalone unit for the components of source.
func (w *Writer) companion(target, source string, components []proptype.Component) string {
	var header strings.Builder
	header.WriteString(GeneratedHeader)
	header.WriteByte('\n')
	header.WriteString(w.em.ImportLine())
	header.WriteByte('\n')
	header.WriteString(componentImport(components, importSpecifier(target, source)))
	return w.em.EmitUnit(header.String(), components)
}

// componentImport renders the import of the annotated components.
func componentImport(components []proptype.Component, specifier string) string {
	var defaultName string
	var named []string
	for _, c := range components {
		if c.Default {
			defaultName = c.Name
		} else {
			named = append(named, c.Name)
		}
	}

	var b strings.Builder
	b.WriteString("import ")
	if defaultName != "" {
		b.WriteString(defaultName)
		if len(named) > 0 {
			b.WriteString(", ")
		}
	}
	if len(named) > 0 {
		b.WriteString("{ ")
		b.WriteString(strings.Join(named, ", "))
		b.WriteString(" }")
	}
	b.WriteString(" from '")
	b.WriteString(specifier)
	b.WriteString("';")
	return b.String()
}

// importSpecifier is the relative module path from target to source,
// without extension.
func importSpecifier(target, source string) string {
	abs, err := filepath.Abs(source)
	if err != nil {
		abs = source
	}
	rel, err := filepath.Rel(filepath.Dir(target), abs)
	if err != nil {
		rel = abs
	}
	rel = filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}

// inline rewrites source so it carries the validator import and one block
// per component. Blocks from an earlier run are replaced where they stand;
// new ones are appended. Blocks of stale components are removed.
func (w *Writer) inline(source string, components []proptype.Component, stale []string) string {
	lines := strings.Split(source, "\n")
	// A trailing newline leaves one empty element; it is restored on join.
	trailing := len(lines) > 0 && lines[len(lines)-1] == ""
	if trailing {
		lines = lines[:len(lines)-1]
	}

	emitted := make(map[string]bool, len(components))
	for _, c := range components {
		emitted[c.Name] = true
	}
	for _, name := range stale {
		if !emitted[name] {
			lines = removeBlock(lines, w.em.BlockPrefix(name))
		}
	}

	if importLine := w.em.ImportLine(); len(components) > 0 && !hasLine(lines, importLine) {
		lines = insertImport(lines, importLine)
	}

	var appended []string
	for _, c := range components {
		block := strings.Split(w.em.Emit(c), "\n")
		start, end, ok := findBlock(lines, w.em.BlockPrefix(c.Name))
		if !ok {
			appended = append(appended, strings.Join(block, "\n"))
			continue
		}
		replaced := make([]string, 0, len(lines)-(end-start+1)+len(block))
		replaced = append(replaced, lines[:start]...)
		replaced = append(replaced, block...)
		replaced = append(replaced, lines[end+1:]...)
		lines = replaced
	}

	out := strings.Join(lines, "\n")
	if len(appended) > 0 {
		out = strings.TrimRight(out, "\n")
		if out != "" {
			out += "\n\n"
		}
		out += strings.Join(appended, "\n\n")
		trailing = true
	}
	if trailing {
		out += "\n"
	}
	return out
}

func hasLine(lines []string, want string) bool {
	want = strings.TrimSpace(want)
	for _, l := range lines {
		if strings.TrimSpace(l) == want {
			return true
		}
	}
	return false
}

var (
	importStart = regexp.MustCompile(`^import[\s{*'"]`)
	importEnd   = regexp.MustCompile(`(^import\s*['"]|\bfrom\s*['"][^'"]*['"]|;)\s*;?\s*$`)
	directive   = regexp.MustCompile(`^['"]use [a-z ]+['"];?$`)
)

// insertImport adds line after the leading import statements, or after
// leading directives and comments when there are none.
func insertImport(lines []string, line string) []string {
	at := 0
	afterImports := false
	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, "//"):
		case strings.HasPrefix(trimmed, "/*"):
			for i < len(lines) && !strings.Contains(lines[i], "*/") {
				i++
			}
			if !afterImports {
				at = i + 1
			}
		case directive.MatchString(trimmed):
			at = i + 1
		case importStart.MatchString(trimmed):
			for i < len(lines) && !importEnd.MatchString(strings.TrimSpace(lines[i])) {
				i++
			}
			at = i + 1
			afterImports = true
		default:
			i = len(lines)
		}
	}
	if at > len(lines) {
		at = len(lines)
	}

	insert := []string{line}
	if !afterImports && at < len(lines) && strings.TrimSpace(lines[at]) != "" {
		insert = append(insert, "")
	}
	out := make([]string, 0, len(lines)+len(insert))
	out = append(out, lines[:at]...)
	out = append(out, insert...)
	out = append(out, lines[at:]...)
	return out
}

// findBlock locates a previously generated block starting with prefix at
// column zero and ending at the first following "};" line.
func findBlock(lines []string, prefix string) (start, end int, ok bool) {
	for i, l := range lines {
		if !strings.HasPrefix(l, prefix) {
			continue
		}
		for j := i; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == "};" || (j == i && strings.HasSuffix(strings.TrimSpace(l), "};")) {
				return i, j, true
			}
		}
		return 0, 0, false
	}
	return 0, 0, false
}

// removeBlock deletes the block starting with prefix together with the
// blank line separating it from the code before it.
func removeBlock(lines []string, prefix string) []string {
	start, end, ok := findBlock(lines, prefix)
	if !ok {
		return lines
	}
	if start > 0 && strings.TrimSpace(lines[start-1]) == "" {
		start--
	} else if end+1 < len(lines) && strings.TrimSpace(lines[end+1]) == "" {
		end++
	}
	out := make([]string, 0, len(lines)-(end-start+1))
	out = append(out, lines[:start]...)
	return append(out, lines[end+1:]...)
}
