package parser

import (
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTSX = `import React from 'react';

interface ButtonProps {
  label: string;
  onClick?: () => void;
}

export function Button({ label }: ButtonProps) {
  return <button>{label}</button>;
}
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestParseTypeScript(t *testing.T) {
	manager := NewParserManager(testLogger())
	defer manager.Close()

	tree, err := manager.Parse([]byte("const x: number = 1;"), LanguageTypeScript, false)
	require.NoError(t, err)
	require.NotNil(t, tree)
	defer tree.Close()

	assert.Equal(t, "program", tree.RootNode().Kind())
	assert.False(t, tree.RootNode().HasError())
}

func TestParseTSX(t *testing.T) {
	manager := NewParserManager(testLogger())
	defer manager.Close()

	tree, err := manager.Parse([]byte(sampleTSX), LanguageTypeScript, true)
	require.NoError(t, err)
	defer tree.Close()

	root := tree.RootNode()
	assert.Equal(t, "program", root.Kind())
	assert.Contains(t, root.ToSexp(), "jsx_element")
	assert.Contains(t, root.ToSexp(), "interface_declaration")
}

func TestParseFile(t *testing.T) {
	manager := NewParserManager(testLogger())
	defer manager.Close()

	cases := map[string]string{
		"button.tsx": sampleTSX,
		"util.ts":    "export const n: number = 1;",
		"legacy.jsx": "export default function Legacy(props) { return <div />; }",
		"plain.js":   "module.exports = {};",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			tree, err := manager.ParseFile([]byte(src), name)
			require.NoError(t, err)
			defer tree.Close()
			assert.Equal(t, "program", tree.RootNode().Kind())
			assert.False(t, tree.RootNode().HasError())
		})
	}
}

func TestParseFile_Unsupported(t *testing.T) {
	manager := NewParserManager(testLogger())
	defer manager.Close()

	tree, err := manager.ParseFile([]byte("# readme"), "README.md")
	assert.Nil(t, tree)
	assert.True(t, errors.Is(err, ErrUnsupportedFile))
}

func TestParseUnknownLanguage(t *testing.T) {
	manager := NewParserManager(testLogger())
	defer manager.Close()

	tree, err := manager.Parse([]byte("x"), LanguageUnknown, false)
	assert.Error(t, err)
	assert.Nil(t, tree)
}

func TestParseInvalidSyntax(t *testing.T) {
	manager := NewParserManager(testLogger())
	defer manager.Close()

	tree, err := manager.Parse([]byte("const x: = ;"), LanguageTypeScript, false)
	require.NoError(t, err, "partial trees are still returned")
	defer tree.Close()
	assert.True(t, tree.RootNode().HasError())
}

func TestProbe(t *testing.T) {
	manager := NewParserManager(testLogger())
	defer manager.Close()

	require.NoError(t, manager.Probe())
	assert.Equal(t, 1, manager.GetStats().ParsesCalled)
}

func TestLazyInitialization(t *testing.T) {
	manager := NewParserManager(testLogger())
	defer manager.Close()

	assert.Equal(t, 0, manager.GetStats().ParsersCreated)

	for i := 0; i < 2; i++ {
		tree, err := manager.Parse([]byte("const x = 1;"), LanguageTypeScript, false)
		require.NoError(t, err)
		tree.Close()
	}
	stats := manager.GetStats()
	assert.Equal(t, 1, stats.ParsersCreated, "sequential parses reuse one parser")
	assert.Equal(t, 2, stats.ParsesCalled)

	tree, err := manager.Parse([]byte("const y = 2;"), LanguageJavaScript, true)
	require.NoError(t, err)
	tree.Close()

	stats = manager.GetStats()
	assert.Equal(t, 2, stats.ParsersCreated)
	assert.Equal(t, 2, stats.Pools, "isTSX is ignored for javascript")
}

func TestConcurrentParsing(t *testing.T) {
	manager := NewParserManager(testLogger())
	defer manager.Close()

	const goroutines = 16
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "a.ts"
			if i%2 == 0 {
				name = "a.tsx"
			}
			tree, err := manager.ParseFile([]byte(sampleTSX), name)
			if err != nil {
				errs <- err
				return
			}
			tree.Close()
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("parse failed: %v", err)
	}
	assert.Equal(t, goroutines, manager.GetStats().ParsesCalled)
	assert.LessOrEqual(t, manager.GetStats().ParsersCreated, 2*getDefaultPoolSize())
}

func TestCloseClearsPools(t *testing.T) {
	manager := NewParserManager(testLogger())
	tree, err := manager.Parse([]byte("let a = 1"), LanguageJavaScript, false)
	require.NoError(t, err)
	tree.Close()

	require.NoError(t, manager.Close())
	assert.Empty(t, manager.pools)
}

func TestLanguageDetection(t *testing.T) {
	cases := []struct {
		path     string
		expected Language
	}{
		{"file.ts", LanguageTypeScript},
		{"file.tsx", LanguageTypeScript},
		{"file.mts", LanguageTypeScript},
		{"file.js", LanguageJavaScript},
		{"file.jsx", LanguageJavaScript},
		{"file.cjs", LanguageJavaScript},
		{"file.md", LanguageUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, DetectLanguage(tc.path))
		})
	}
}

func TestIsTSXFile(t *testing.T) {
	assert.True(t, IsTSXFile("a.tsx"))
	assert.True(t, IsTSXFile("A.TSX"))
	assert.False(t, IsTSXFile("a.ts"))
	assert.False(t, IsTSXFile("a.jsx"))
}

func TestIsSourceFile(t *testing.T) {
	assert.True(t, IsSourceFile("src/button.tsx"))
	assert.False(t, IsSourceFile("types/index.d.ts"))
	assert.False(t, IsSourceFile("styles.css"))
	assert.True(t, IsDeclarationFile("global.d.mts"))
}
