package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/propgen/pkg/scanner"
)

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureStdout swaps the command output for a buffer until the test ends.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := stdout
	stdout = buf
	t.Cleanup(func() { stdout = prev })
	return buf
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func parseCLI(t *testing.T, args []string, opts ...kong.Option) *CLI {
	t.Helper()
	var cli CLI
	opts = append(opts, kong.Name("propgen"), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	p, err := kong.New(&cli, opts...)
	require.NoError(t, err)
	_, err = p.Parse(args)
	require.NoError(t, err)
	return &cli
}

// --- tests ---

func TestFindUserConfig(t *testing.T) {
	t.Setenv("PROPGEN_CONFIG", "")
	assert.Equal(t, "a.yaml", findUserConfig([]string{"generate", "--config", "a.yaml"}))
	assert.Equal(t, "b.toml", findUserConfig([]string{"--config=b.toml", "watch"}))
	assert.Empty(t, findUserConfig([]string{"generate", "--config"}))

	t.Setenv("PROPGEN_CONFIG", "env.json")
	assert.Equal(t, "env.json", findUserConfig(nil))
}

func TestConfigCandidatePaths(t *testing.T) {
	jsonPaths, yamlPaths, tomlPaths := configCandidatePaths("custom.yml")
	require.NotEmpty(t, yamlPaths)
	assert.Equal(t, "custom.yml", yamlPaths[0])
	assert.Len(t, jsonPaths, 2)
	assert.Len(t, yamlPaths, 5)
	assert.Len(t, tomlPaths, 2)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "propgen.json"), jsonPaths[0])
	assert.Equal(t, filepath.Join(wd, ".propgen", "config.toml"), tomlPaths[1])

	jsonPaths, _, _ = configCandidatePaths("settings")
	assert.Equal(t, "settings", jsonPaths[0])
}

func TestParse_Defaults(t *testing.T) {
	cli := parseCLI(t, []string{"generate"})
	assert.Equal(t, "prettier", cli.Formatter)
	assert.Equal(t, "PropTypes", cli.Validator)
	assert.Equal(t, "isRequired", cli.RequiredMarker)
	assert.Equal(t, "propTypes", cli.SchemaField)
	assert.Equal(t, 20, cli.MaxDepth)
	assert.Equal(t, "info", cli.Log.Level)
	assert.True(t, filepath.IsAbs(cli.Root))
}

func TestParse_GlobsAreNotSplit(t *testing.T) {
	cli := parseCLI(t, []string{"generate", "--source-glob", "src/**/*.{ts,tsx}", "--source-glob", "lib/**/*.tsx"})
	assert.Equal(t, []string{"src/**/*.{ts,tsx}", "lib/**/*.tsx"}, cli.SourceGlob)
	assert.Equal(t, []string{"src/**/*.{ts,tsx}", "lib/**/*.tsx"}, cli.scanConfig().Include)
}

func TestParse_DefaultCommandTakesPaths(t *testing.T) {
	cli := parseCLI(t, []string{"a.tsx", "b.tsx", "--dry-run"})
	require.Len(t, cli.Generate.Paths, 2)
	assert.Equal(t, "a.tsx", filepath.Base(cli.Generate.Paths[0]))
	assert.True(t, cli.DryRun)
}

func TestParse_JSONConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "propgen.json", `{
  "validator": "PT",
  "schema_field": "checks",
  "source_glob": ["app/**/*.tsx"],
  "max_depth": 3,
  "inline": true,
  "log_level": "debug"
}`)

	cli := parseCLI(t, []string{"generate", "--max-depth", "5"}, kong.Configuration(kong.JSON, path))
	assert.Equal(t, "PT", cli.Validator)
	assert.Equal(t, "checks", cli.SchemaField)
	assert.Equal(t, []string{"app/**/*.tsx"}, cli.SourceGlob)
	assert.True(t, cli.Inline)
	assert.Equal(t, "debug", cli.Log.Level)
	// Flags win over the file.
	assert.Equal(t, 5, cli.MaxDepth)
}

func TestOptions_ExcludesExtendDefaults(t *testing.T) {
	cli := parseCLI(t, []string{"generate", "--exclude", "legacy/**", "--exclude", "**/node_modules/**"})
	cfg := cli.scanConfig()

	assert.Subset(t, cfg.Exclude, scanner.DefaultExclude)
	assert.Contains(t, cfg.Exclude, "legacy/**")
	assert.Len(t, cfg.Exclude, len(scanner.DefaultExclude)+1, "duplicates of a default are dropped")
	assert.False(t, scanner.Matches("/repo", "/repo/src/button.proptypes.ts", cfg))
	assert.False(t, scanner.Matches("/repo", "/repo/legacy/card.tsx", cfg))
	assert.True(t, scanner.Matches("/repo", "/repo/src/card.tsx", cfg))
}

func TestOptions_GenerateOptions(t *testing.T) {
	opts := defaultOptions()
	opts.Root = "/repo"
	opts.OutputDir = "/repo/gen"
	opts.Import = "import PT from 'pt';"
	opts.Exclude = nil

	g := opts.generateOptions(discardLogger())
	assert.Equal(t, "/repo", g.Write.Root)
	assert.Equal(t, "/repo/gen", g.Write.OutputDir)
	assert.Equal(t, "import PT from 'pt';", g.Emit.Import)
	assert.Equal(t, 20, g.Scan.MaxDepth)
	assert.NotEmpty(t, g.Scan.Exclude, "empty excludes fall back to the defaults")
}

func TestSetupLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "propgen.log")
	logger, closeLog, err := setupLogger(LogOptions{Level: "debug", Format: "json", File: path})
	require.NoError(t, err)
	logger.Debug("hello", "k", "v")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=hello")
}

func TestVersionCmd(t *testing.T) {
	out := captureStdout(t)
	require.NoError(t, (&VersionCmd{}).Run())
	assert.Equal(t, "propgen "+version+"\n", out.String())
}
