package mcp

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/propgen/pkg/generate"
	"github.com/gnana997/propgen/pkg/locator"
	"github.com/gnana997/propgen/pkg/materialize"
	"github.com/gnana997/propgen/pkg/mcplog"
	"github.com/gnana997/propgen/pkg/report"
	"github.com/gnana997/propgen/pkg/scanner"
)

// --- helpers ---

const buttonSource = `export interface ButtonProps {
  label: string;
  size?: 'sm' | 'lg';
}

export function Button(props: ButtonProps) {
  return null;
}
`

func testServer(t *testing.T, logger *mcplog.Logger) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen, err := generate.New(generate.Options{
		Scan:  scanner.DefaultConfig(),
		Write: materialize.Options{Root: t.TempDir(), DryRun: true},
	}, log)
	require.NoError(t, err)
	t.Cleanup(func() { gen.Close() })
	return NewServer(gen, "test", logger, log)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func callTool(t *testing.T, s *Server, req mcp.CallToolRequest) *mcp.CallToolResult {
	t.Helper()
	var handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
	switch req.Params.Name {
	case toolGenerateSchema:
		handler = s.handleGenerateSchema
	case toolListComponents:
		handler = s.handleListComponents
	case toolClassifyType:
		handler = s.handleClassifyType
	default:
		t.Fatalf("unknown tool: %s", req.Params.Name)
	}

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func makeRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	var arguments any
	if args != nil {
		arguments = args
	}
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: arguments,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return textContent.Text
}

// --- generate_schema ---

func TestHandleGenerateSchema_InlineSource(t *testing.T) {
	s := testServer(t, nil)
	result := callTool(t, s, makeRequest(toolGenerateSchema, map[string]any{
		"path":   "src/button.tsx",
		"source": buttonSource,
	}))
	require.False(t, result.IsError, resultText(t, result))

	var out schemaResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Equal(t, []string{"Button"}, out.Components)
	assert.Equal(t, "import PropTypes from 'prop-types';", out.Import)
	assert.Equal(t, `Button.propTypes = {
  label: PropTypes.string.isRequired,
  size: PropTypes.oneOf(['sm', 'lg']),
};
`, out.Schema)
	assert.Contains(t, out.Skipped, locator.Skip{Name: "ButtonProps", Reason: locator.ReasonTypeDeclaration})
}

func TestHandleGenerateSchema_ReadsFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "card.tsx", `export default function (props: { title: string }) {
  return null;
}
`)
	s := testServer(t, nil)
	result := callTool(t, s, makeRequest(toolGenerateSchema, map[string]any{"path": path}))
	require.False(t, result.IsError, resultText(t, result))

	var out schemaResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Equal(t, []string{"Card"}, out.Components)
	assert.Contains(t, out.Schema, "Card.propTypes = {\n  title: PropTypes.string.isRequired,\n};")
}

func TestHandleGenerateSchema_NoEmittableComponents(t *testing.T) {
	s := testServer(t, nil)
	result := callTool(t, s, makeRequest(toolGenerateSchema, map[string]any{
		"path":   "divider.tsx",
		"source": "export const Divider = (props: {}) => null;",
	}))
	require.False(t, result.IsError)

	var out schemaResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Empty(t, out.Components)
	assert.Empty(t, out.Schema)
}

func TestHandleGenerateSchema_Errors(t *testing.T) {
	s := testServer(t, nil)

	result := callTool(t, s, makeRequest(toolGenerateSchema, nil))
	assert.True(t, result.IsError)

	result = callTool(t, s, makeRequest(toolGenerateSchema, map[string]any{
		"path": filepath.Join(t.TempDir(), "missing.tsx"),
	}))
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "failed to read")
}

// --- list_components ---

func TestHandleListComponents_Directory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "button.tsx", buttonSource)
	writeFile(t, filepath.Join(root, "forms"), "input.tsx", "export const Input = (props: { value: string }) => null;\n")
	writeFile(t, root, "button.test.tsx", "export const Nope = (props: { x: string }) => null;\n")

	s := testServer(t, nil)
	result := callTool(t, s, makeRequest(toolListComponents, map[string]any{"path": root}))
	require.False(t, result.IsError, resultText(t, result))

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &r))
	assert.Equal(t, 2, r.Stats.FilesDiscovered)
	assert.Equal(t, 2, r.Stats.ComponentsFound)
	require.Len(t, r.Units, 2)
	assert.Equal(t, "Button", r.Units[0].Components[0].Name)
	assert.Equal(t, "PropTypes.oneOf(['sm', 'lg'])", r.Units[0].Components[0].Props[1].Validator)
	assert.Equal(t, "Input", r.Units[1].Components[0].Name)
	assert.Empty(t, r.Validate())
}

func TestHandleListComponents_Keyword(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "button.tsx", buttonSource)
	writeFile(t, root, "input.tsx", "export const Input = (props: { value: string }) => null;\n")

	s := testServer(t, nil)
	result := callTool(t, s, makeRequest(toolListComponents, map[string]any{"path": root, "keyword": "inp"}))
	require.False(t, result.IsError)

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &r))
	require.Len(t, r.Units, 1)
	require.Len(t, r.Units[0].Components, 1)
	assert.Equal(t, "Input", r.Units[0].Components[0].Name)
}

func TestHandleListComponents_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "button.tsx", buttonSource)

	s := testServer(t, nil)
	result := callTool(t, s, makeRequest(toolListComponents, map[string]any{"path": path}))
	require.False(t, result.IsError, resultText(t, result))

	var r report.Report
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &r))
	assert.Equal(t, filepath.Dir(path), r.Root)
	require.Len(t, r.Units, 1)
	assert.Equal(t, path, r.Units[0].Path)
	require.Len(t, r.Units[0].Components, 1)
	assert.Equal(t, []report.Prop{
		{Name: "label", Type: "string", Validator: "PropTypes.string.isRequired", Required: true},
		{Name: "size", Type: "oneOf('sm' | 'lg')", Validator: "PropTypes.oneOf(['sm', 'lg'])"},
	}, r.Units[0].Components[0].Props)
}

func TestHandleListComponents_MissingPath(t *testing.T) {
	s := testServer(t, nil)
	result := callTool(t, s, makeRequest(toolListComponents, map[string]any{
		"path": filepath.Join(t.TempDir(), "nope"),
	}))
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "path not found")
}

// --- classify_type ---

// classifyOut mirrors classifyResult without the normalized type, whose
// literals encode as bare values.
type classifyOut struct {
	Kind      string         `json:"kind"`
	Type      string         `json:"type"`
	Validator string         `json:"validator"`
	Optional  bool           `json:"optional"`
	Props     []report.Prop  `json:"props"`
	Raw       map[string]any `json:"normalized"`
}

func TestHandleClassifyType_Union(t *testing.T) {
	s := testServer(t, nil)
	result := callTool(t, s, makeRequest(toolClassifyType, map[string]any{"type": "'sm' | 'lg'"}))
	require.False(t, result.IsError, resultText(t, result))

	var out classifyOut
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Equal(t, "oneOf", out.Kind)
	assert.Equal(t, "oneOf('sm' | 'lg')", out.Type)
	assert.Equal(t, "PropTypes.oneOf(['sm', 'lg'])", out.Validator)
	assert.False(t, out.Optional)
	assert.Empty(t, out.Props)
	assert.Equal(t, []any{"sm", "lg"}, out.Raw["values"])
}

func TestHandleClassifyType_PreludeObject(t *testing.T) {
	s := testServer(t, nil)
	result := callTool(t, s, makeRequest(toolClassifyType, map[string]any{
		"type":    "P",
		"prelude": "interface P { a: string; b?: number[] }",
	}))
	require.False(t, result.IsError, resultText(t, result))

	var out classifyOut
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &out))
	assert.Equal(t, "object", out.Kind)
	assert.Equal(t, "PropTypes.object", out.Validator)
	assert.Equal(t, []report.Prop{
		{Name: "a", Type: "string", Validator: "PropTypes.string.isRequired", Required: true},
		{Name: "b", Type: "array", Validator: "PropTypes.array"},
	}, out.Props)
}

func TestHandleClassifyType_Invalid(t *testing.T) {
	s := testServer(t, nil)
	result := callTool(t, s, makeRequest(toolClassifyType, map[string]any{"type": "string |"}))
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "invalid type expression")

	result = callTool(t, s, makeRequest(toolClassifyType, nil))
	assert.True(t, result.IsError)
}

// --- middleware ---

func TestLoggingMiddleware_WritesEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp.jsonl")
	logger, err := mcplog.NewLogger(path)
	require.NoError(t, err)

	s := testServer(t, logger)
	handler := s.loggingMiddleware()(s.handleClassifyType)

	_, err = handler(context.Background(), makeRequest(toolClassifyType, map[string]any{"type": "string"}))
	require.NoError(t, err)
	_, err = handler(context.Background(), makeRequest(toolClassifyType, map[string]any{
		"type":    "string |",
		"prelude": strings.Repeat("type X = string;\n", 10),
	}))
	require.NoError(t, err)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first, second mcplog.LogEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	assert.Equal(t, toolClassifyType, first.Tool)
	assert.Equal(t, "string", first.Params["type"])
	assert.Positive(t, first.ResponseBytes)
	assert.False(t, first.IsError)
	assert.Nil(t, first.Error)

	assert.True(t, second.IsError)
	assert.Contains(t, second.Params, "prelude_len")
}
