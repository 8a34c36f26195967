package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnana997/propgen/pkg/report"
	"github.com/gnana997/propgen/pkg/scanner"
)

const maxWidth = 80

// InspectCmd prints what generation would see, without writing.
type InspectCmd struct {
	Path      string `arg:"" optional:"" help:"Unit, directory, or a saved JSON report. Defaults to --root." type:"path"`
	Component string `help:"Only show components whose name contains this text." short:"c"`
}

func (c *InspectCmd) Run(ctx context.Context, opts *Options, logger *slog.Logger) error {
	path := c.Path
	if path == "" {
		path = opts.Root
	}

	var r *report.Report
	if strings.EqualFold(filepath.Ext(path), ".json") {
		loaded, err := report.LoadFromFile(path)
		if err != nil {
			return err
		}
		r = loaded
	} else {
		built, err := c.scan(ctx, path, opts, logger)
		if err != nil {
			return err
		}
		r = built
	}

	printReportHuman(stdout, r, c.Component)
	return nil
}

func (c *InspectCmd) scan(ctx context.Context, path string, opts *Options, logger *slog.Logger) (*report.Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	g, err := opts.newGenerator(logger)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	var res *scanner.Result
	if info.IsDir() {
		res, err = g.Scanner().Run(ctx, path)
	} else {
		abs, aerr := filepath.Abs(path)
		if aerr != nil {
			return nil, aerr
		}
		res, err = g.Scanner().LocateFiles(ctx, []string{abs})
		if res != nil {
			res.Root = filepath.Dir(abs)
		}
	}
	if err != nil && !errors.Is(err, scanner.ErrAllUnitsFailed) {
		return nil, err
	}
	return report.Build(res, nil, g.Emitter(), version), nil
}

// printReportHuman prints each matching component with its props table,
// then the failed units.
func printReportHuman(w io.Writer, r *report.Report, filter string) {
	refs := r.ListComponents(filter)
	if len(refs) == 0 {
		fmt.Fprintln(w, "No components found.")
	}
	for i, ref := range refs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		printComponentHuman(w, ref)
	}

	if failures := r.Failures(); len(failures) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Failed units")
		for _, u := range failures {
			fmt.Fprintf(w, "  %s\n", u.Path)
			printWrapped(w, u.Error, 4, maxWidth)
		}
	}
}

func printComponentHuman(w io.Writer, ref report.ComponentRef) {
	comp := ref.Component
	header := comp.Name
	if comp.Default {
		header += "  (default export)"
	}
	fmt.Fprintf(w, "%s  [%s]\n", header, comp.Kind)
	fmt.Fprintf(w, "  %s\n", comp.Location)

	fmt.Fprintln(w)
	printPropsSection(w, "Props", comp.Props)

	if len(comp.Truncations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Truncated")
		for _, t := range comp.Truncations {
			fmt.Fprintf(w, "  %s  %s\n", t.Path, t.Reason)
		}
	}
}

// printPropsSection renders the props table with dynamic column widths.
func printPropsSection(w io.Writer, title string, props []report.Prop) {
	if len(props) == 0 {
		fmt.Fprintf(w, "%s  (none, no validator emitted)\n", title)
		return
	}

	fmt.Fprintln(w, title)

	nameW := len("NAME")
	typeW := len("TYPE")
	for _, p := range props {
		if len(p.Name) > nameW {
			nameW = len(p.Name)
		}
		if short, _ := splitType(p.Type); len(short) > typeW {
			typeW = len(short)
		}
	}

	sepLen := nameW + typeW + 5 + len("VALIDATOR") + 4
	fmt.Fprintf(w, "  %-*s  %-*s  %-3s  %s\n", nameW, "NAME", typeW, "TYPE", "REQ", "VALIDATOR")
	fmt.Fprintf(w, "  %s\n", strings.Repeat("─", sepLen))

	for _, p := range props {
		req := "no"
		if p.Required {
			req = "yes"
		}
		short, members := splitType(p.Type)
		fmt.Fprintf(w, "  %-*s  %-*s  %-3s  %s\n", nameW, p.Name, typeW, short, req, p.Validator)

		if members != "" {
			label := "allowed"
			if short == "oneOfType" {
				label = "types"
			}
			pad := strings.Repeat(" ", nameW)
			fmt.Fprintf(w, "  %s  %s: %s\n", pad, label, wrapAllowed(members, nameW+len(label)+6))
		}
	}
}

// splitType splits "oneOf('a' | 'b')" into "oneOf" and "'a' | 'b'". Types
// without members come back whole.
func splitType(t string) (string, string) {
	i := strings.IndexByte(t, '(')
	if i <= 0 || !strings.HasSuffix(t, ")") {
		return t, ""
	}
	return t[:i], t[i+1 : len(t)-1]
}

// wrapAllowed wraps a " | " separated list that would exceed maxWidth.
func wrapAllowed(allowed string, indent int) string {
	if indent+len(allowed) <= maxWidth {
		return allowed
	}
	parts := strings.Split(allowed, " | ")
	var sb strings.Builder
	lineLen := indent
	for i, part := range parts {
		addition := len(part)
		if i > 0 {
			addition += 3 // " | "
		}
		if lineLen+addition > maxWidth && i > 0 {
			sb.WriteString("\n")
			sb.WriteString(strings.Repeat(" ", indent))
			lineLen = indent
		}
		if i > 0 {
			sb.WriteString(" | ")
			lineLen += 3
		}
		sb.WriteString(part)
		lineLen += len(part)
	}
	return sb.String()
}

// printWrapped prints text word-wrapped at width with the given left indent.
func printWrapped(w io.Writer, text string, indent, width int) {
	prefix := strings.Repeat(" ", indent)
	line := prefix
	for _, word := range strings.Fields(text) {
		if len(line)+len(word)+1 > width && line != prefix {
			fmt.Fprintln(w, line)
			line = prefix + word
		} else if line == prefix {
			line += word
		} else {
			line += " " + word
		}
	}
	if line != prefix {
		fmt.Fprintln(w, line)
	}
}
