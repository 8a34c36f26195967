package parser

import (
	"path/filepath"
	"strings"
)

// Language is a grammar family.
type Language int

const (
	// LanguageTypeScript covers .ts and .tsx (see IsTSXFile).
	LanguageTypeScript Language = iota
	// LanguageJavaScript covers .js and .jsx.
	LanguageJavaScript
	LanguageUnknown
)

func (l Language) String() string {
	switch l {
	case LanguageTypeScript:
		return "typescript"
	case LanguageJavaScript:
		return "javascript"
	default:
		return "unknown"
	}
}

// DetectLanguage maps a file path to its grammar family.
func DetectLanguage(filePath string) Language {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".ts", ".tsx", ".mts", ".cts":
		return LanguageTypeScript
	case ".js", ".jsx", ".mjs", ".cjs":
		return LanguageJavaScript
	default:
		return LanguageUnknown
	}
}

// IsTSXFile reports whether the path needs the TSX grammar.
func IsTSXFile(filePath string) bool {
	return strings.ToLower(filepath.Ext(filePath)) == ".tsx"
}

// IsDeclarationFile reports ambient declaration files such as index.d.ts,
// which declare types but never carry component implementations.
func IsDeclarationFile(filePath string) bool {
	base := strings.ToLower(filepath.Base(filePath))
	for _, suffix := range []string{".d.ts", ".d.mts", ".d.cts"} {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}
	return false
}

// IsSourceFile reports whether a path is a parseable, non-declaration unit.
func IsSourceFile(filePath string) bool {
	return DetectLanguage(filePath) != LanguageUnknown && !IsDeclarationFile(filePath)
}
