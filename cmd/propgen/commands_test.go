package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/propgen/pkg/report"
)

const buttonSource = `export interface ButtonProps {
  label: string;
  size?: 'sm' | 'md' | 'lg';
  onPress: () => void;
}

export function Button(props: ButtonProps) {
  return null;
}
`

func testOptions(root string) *Options {
	opts := defaultOptions()
	opts.Root = root
	return &opts
}

func TestGenerateCmd_WritesCompanionAndReport(t *testing.T) {
	out := captureStdout(t)
	root := t.TempDir()
	writeFile(t, root, "button.tsx", buttonSource)
	opts := testOptions(root)
	opts.Report = filepath.Join(root, "out", "report.json")

	require.NoError(t, (&GenerateCmd{}).Run(context.Background(), opts, discardLogger()))

	data, err := os.ReadFile(filepath.Join(root, "button.proptypes.ts"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "  size: PropTypes.oneOf(['sm', 'md', 'lg']),\n")
	assert.Equal(t, "1 components in 1 units, 1 blocks: 1 files written, 0 unchanged\n", out.String())

	r, err := report.LoadFromFile(opts.Report)
	require.NoError(t, err)
	require.Len(t, r.Units, 1)
	assert.Equal(t, filepath.Join(root, "button.proptypes.ts"), r.Units[0].Output)
	assert.True(t, r.Units[0].Components[0].Emitted)
}

func TestGenerateCmd_DryRunPrintsUnits(t *testing.T) {
	out := captureStdout(t)
	root := t.TempDir()
	src := writeFile(t, root, "button.tsx", buttonSource)
	opts := testOptions(root)
	opts.DryRun = true

	require.NoError(t, (&GenerateCmd{Paths: []string{src}}).Run(context.Background(), opts, discardLogger()))

	target := filepath.Join(root, "button.proptypes.ts")
	assert.NoFileExists(t, target)
	assert.True(t, strings.HasPrefix(out.String(), "==> "+target+" <==\n"))
	assert.Contains(t, out.String(), "Button.propTypes = {\n  label: PropTypes.string.isRequired,\n")
}

func TestGenerateCmd_RemovesStaleCompanion(t *testing.T) {
	out := captureStdout(t)
	root := t.TempDir()
	writeFile(t, root, "button.tsx", buttonSource)
	opts := testOptions(root)

	require.NoError(t, (&GenerateCmd{}).Run(context.Background(), opts, discardLogger()))
	target := filepath.Join(root, "button.proptypes.ts")
	require.FileExists(t, target)

	writeFile(t, root, "button.tsx", "export function Button(props: {}) {\n  return null;\n}\n")
	opts.DryRun = true
	out.Reset()
	require.NoError(t, (&GenerateCmd{}).Run(context.Background(), opts, discardLogger()))
	assert.Equal(t, "==> "+target+" <== (removed)\n", out.String())
	assert.FileExists(t, target)

	opts.DryRun = false
	out.Reset()
	require.NoError(t, (&GenerateCmd{}).Run(context.Background(), opts, discardLogger()))
	assert.Contains(t, out.String(), "1 stale files removed\n")
	assert.NoFileExists(t, target)
}

func TestGenerateCmd_AllUnitsFailedStillReports(t *testing.T) {
	captureStdout(t)
	root := t.TempDir()
	opts := testOptions(root)
	opts.Report = filepath.Join(root, "report.json")

	err := (&GenerateCmd{Paths: []string{filepath.Join(root, "missing.tsx")}}).Run(context.Background(), opts, discardLogger())
	require.Error(t, err)

	r, lerr := report.LoadFromFile(opts.Report)
	require.NoError(t, lerr)
	assert.Len(t, r.Failures(), 1)
}

func TestGenerateCmd_InvalidOptions(t *testing.T) {
	opts := testOptions(t.TempDir())
	opts.Inline = true
	opts.OutputDir = filepath.Join(opts.Root, "gen")
	assert.Error(t, (&GenerateCmd{}).Run(context.Background(), opts, discardLogger()))
}

func TestInspectCmd_Directory(t *testing.T) {
	out := captureStdout(t)
	root := t.TempDir()
	writeFile(t, root, "button.tsx", buttonSource)
	writeFile(t, root, "divider.tsx", "export const Divider = (props: {}) => null;\n")

	require.NoError(t, (&InspectCmd{}).Run(context.Background(), testOptions(root), discardLogger()))

	text := out.String()
	assert.Contains(t, text, "Button  [function]\n")
	assert.Contains(t, text, "  NAME     TYPE      REQ  VALIDATOR\n")
	assert.Contains(t, text, "  label    string    yes  PropTypes.string.isRequired\n")
	assert.Contains(t, text, "  size     oneOf     no   PropTypes.oneOf(['sm', 'md', 'lg'])\n")
	assert.Contains(t, text, "           allowed: 'sm' | 'md' | 'lg'\n")
	assert.Contains(t, text, "  onPress  function  yes  PropTypes.func.isRequired\n")
	assert.Contains(t, text, "Divider  [arrow]\n")
	assert.Contains(t, text, "Props  (none, no validator emitted)")
	assert.NotFileExists(t, filepath.Join(root, "button.proptypes.ts"))
}

func TestInspectCmd_FilterAndReportFile(t *testing.T) {
	captureStdout(t)
	root := t.TempDir()
	writeFile(t, root, "button.tsx", buttonSource)
	writeFile(t, root, "divider.tsx", "export const Divider = (props: {}) => null;\n")
	opts := testOptions(root)
	opts.Report = filepath.Join(root, "report.json")
	opts.DryRun = true
	require.NoError(t, (&GenerateCmd{}).Run(context.Background(), opts, discardLogger()))

	out := captureStdout(t)
	require.NoError(t, (&InspectCmd{Path: opts.Report, Component: "div"}).Run(context.Background(), testOptions(root), discardLogger()))
	assert.Contains(t, out.String(), "Divider")
	assert.NotContains(t, out.String(), "Button")
}

func TestInspectCmd_NoComponents(t *testing.T) {
	out := captureStdout(t)
	path := writeFile(t, t.TempDir(), "utils.ts", "export const VERSION = '1.0.0';\n")
	require.NoError(t, (&InspectCmd{Path: path}).Run(context.Background(), testOptions(filepath.Dir(path)), discardLogger()))
	assert.Equal(t, "No components found.\n", out.String())
}

func TestSplitType(t *testing.T) {
	short, members := splitType("oneOfType(string | number)")
	assert.Equal(t, "oneOfType", short)
	assert.Equal(t, "string | number", members)

	short, members = splitType("array")
	assert.Equal(t, "array", short)
	assert.Empty(t, members)
}

func TestWrapAllowed(t *testing.T) {
	assert.Equal(t, "'a' | 'b'", wrapAllowed("'a' | 'b'", 10))

	long := strings.Repeat("'value' | ", 12) + "'end'"
	wrapped := wrapAllowed(long, 20)
	for _, line := range strings.Split(wrapped, "\n") {
		assert.LessOrEqual(t, len(line), maxWidth)
	}
	assert.Equal(t, long, strings.Join(strings.Fields(strings.ReplaceAll(wrapped, "\n", " ")), " "))
}
