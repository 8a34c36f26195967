package queries

import (
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/propgen/pkg/parser"
)

const exportsTSX = `import React from 'react';

interface CardProps { title: string }

export function Card(props: CardProps) { return <div>{props.title}</div>; }
export const Badge = (props: { label: string }) => <span />;
export default class Panel extends React.Component<CardProps> {}
const Hidden = () => null;
export { Hidden };
`

func setupManagers(t *testing.T) (*parser.ParserManager, *QueryManager) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pm := parser.NewParserManager(logger)
	qm := NewQueryManager(pm, logger)
	t.Cleanup(func() {
		qm.Close()
		pm.Close()
	})
	return pm, qm
}

func TestGetQuery_CompilesEveryGrammar(t *testing.T) {
	_, qm := setupManagers(t)

	cases := []struct {
		lang  parser.Language
		isTSX bool
	}{
		{parser.LanguageTypeScript, false},
		{parser.LanguageTypeScript, true},
		{parser.LanguageJavaScript, false},
	}
	for _, tc := range cases {
		for _, qt := range []QueryType{QueryTypeExports, QueryTypeDeclarations} {
			q, err := qm.GetQuery(tc.lang, tc.isTSX, qt)
			require.NoError(t, err, "%s tsx=%v %s", tc.lang, tc.isTSX, qt)
			assert.NotNil(t, q)
		}
	}
}

func TestGetQuery_Cached(t *testing.T) {
	_, qm := setupManagers(t)

	q1, err := qm.GetQuery(parser.LanguageTypeScript, true, QueryTypeExports)
	require.NoError(t, err)
	q2, err := qm.GetQuery(parser.LanguageTypeScript, true, QueryTypeExports)
	require.NoError(t, err)
	assert.Same(t, q1, q2)

	q3, err := qm.GetQuery(parser.LanguageTypeScript, false, QueryTypeExports)
	require.NoError(t, err)
	assert.NotSame(t, q1, q3, "TS and TSX compile separately")
}

func TestGetQuery_JavaScriptIgnoresTSX(t *testing.T) {
	_, qm := setupManagers(t)

	q1, err := qm.GetQuery(parser.LanguageJavaScript, true, QueryTypeDeclarations)
	require.NoError(t, err)
	q2, err := qm.GetQuery(parser.LanguageJavaScript, false, QueryTypeDeclarations)
	require.NoError(t, err)
	assert.Same(t, q1, q2)
}

func TestGetQuery_Unsupported(t *testing.T) {
	_, qm := setupManagers(t)

	_, err := qm.GetQuery(parser.LanguageUnknown, false, QueryTypeExports)
	assert.Error(t, err)

	_, err = qm.GetQuery(parser.LanguageTypeScript, false, QueryType(99))
	assert.Error(t, err)
}

func TestExecuteQuery_Exports(t *testing.T) {
	pm, qm := setupManagers(t)

	source := []byte(exportsTSX)
	tree, err := pm.Parse(source, parser.LanguageTypeScript, true)
	require.NoError(t, err)
	defer tree.Close()

	q, err := qm.GetQuery(parser.LanguageTypeScript, true, QueryTypeExports)
	require.NoError(t, err)

	matches, err := qm.ExecuteQuery(tree, q, source)
	require.NoError(t, err)
	require.Len(t, matches, 4)

	first, ok := matches[0].Capture("export.statement")
	require.True(t, ok)
	assert.Equal(t, "export", first.Category)
	assert.Equal(t, "statement", first.Field)
	assert.Equal(t, uint32(5), first.Location.StartLine)
	assert.Contains(t, first.Text, "function Card")
}

func TestExecuteQuery_Declarations(t *testing.T) {
	pm, qm := setupManagers(t)

	source := []byte(exportsTSX)
	tree, err := pm.Parse(source, parser.LanguageTypeScript, true)
	require.NoError(t, err)
	defer tree.Close()

	q, err := qm.GetQuery(parser.LanguageTypeScript, true, QueryTypeDeclarations)
	require.NoError(t, err)

	matches, err := qm.ExecuteQuery(tree, q, source)
	require.NoError(t, err)

	var names []string
	for _, m := range matches {
		for _, c := range m.Captures {
			if c.Field == "name" {
				names = append(names, c.Category+":"+c.Text)
			}
		}
	}
	// Exported declarations sit inside export_statement and are not
	// program children, so only the bare const is listed.
	assert.Equal(t, []string{"variable:Hidden"}, names)
}

func TestExecuteQuery_JavaScript(t *testing.T) {
	pm, qm := setupManagers(t)

	source := []byte("function Card(props) { return null; }\nclass Panel {}\nexport default Card;\n")
	tree, err := pm.Parse(source, parser.LanguageJavaScript, false)
	require.NoError(t, err)
	defer tree.Close()

	q, err := qm.GetQuery(parser.LanguageJavaScript, false, QueryTypeDeclarations)
	require.NoError(t, err)
	matches, err := qm.ExecuteQuery(tree, q, source)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	c, ok := matches[1].Capture("class.name")
	require.True(t, ok)
	assert.Equal(t, "Panel", c.Text)
}

func TestExecuteQuery_NilArguments(t *testing.T) {
	pm, qm := setupManagers(t)

	q, err := qm.GetQuery(parser.LanguageTypeScript, false, QueryTypeExports)
	require.NoError(t, err)
	_, err = qm.ExecuteQuery(nil, q, nil)
	assert.Error(t, err)

	tree, err := pm.Parse([]byte("export const x = 1;"), parser.LanguageTypeScript, false)
	require.NoError(t, err)
	defer tree.Close()
	_, err = qm.ExecuteQuery(tree, nil, nil)
	assert.Error(t, err)
}

func TestGetQuery_Concurrent(t *testing.T) {
	_, qm := setupManagers(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := qm.GetQuery(parser.LanguageTypeScript, i%2 == 0, QueryType(i%2))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestParseCaptureName(t *testing.T) {
	cat, field := parseCaptureName("function.definition")
	assert.Equal(t, "function", cat)
	assert.Equal(t, "definition", field)

	cat, field = parseCaptureName("plain")
	assert.Equal(t, "plain", cat)
	assert.Empty(t, field)
}
