package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	kongtoml "github.com/alecthomas/kong-toml"
	kongyaml "github.com/alecthomas/kong-yaml"

	"github.com/gnana997/propgen/pkg/util"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0-dev"

// Replaceable for testing.
var (
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
)

// CLI is the command line grammar. Options are global so config files can
// set them once for every command.
type CLI struct {
	Config string     `help:"Config file (.json, .yaml, .yml or .toml)." env:"PROPGEN_CONFIG" placeholder:"PATH"`
	Log    LogOptions `embed:"" prefix:"log-"`

	Options `embed:""`

	Generate GenerateCmd   `cmd:"" default:"withargs" help:"Generate prop validators for the units under --root, or for the given units."`
	Inspect  InspectCmd    `cmd:"" help:"Print the components and classified props of a unit or directory."`
	Watch    WatchCmd      `cmd:"" help:"Generate, then regenerate units as they change."`
	Serve    ServeCmd      `cmd:"" help:"Serve the MCP tools on stdio."`
	Setup    SetupCmd      `cmd:"" help:"Register the propgen MCP server in a client config file."`
	Cfg      ConfigCommand `cmd:"" name:"config" help:"Configuration helpers."`
	Version  VersionCmd    `cmd:"" help:"Print version."`
}

// LogOptions configures the process logger.
type LogOptions struct {
	Level  string `help:"Log level." enum:"debug,info,warn,error" default:"info"`
	Format string `help:"Log format. auto is text on a terminal, JSON otherwise." enum:"auto,json,text" default:"auto"`
	File   string `help:"Also append text logs to this file." type:"path"`
}

func main() {
	userCfg := findUserConfig(os.Args[1:])
	jsonPaths, yamlPaths, tomlPaths := configCandidatePaths(userCfg)

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("propgen"),
		kong.Description("Generate runtime prop validators from TypeScript component prop types."),
		kong.UsageOnError(),
		// Flags and env override config values.
		kong.Configuration(kong.JSON, jsonPaths...),
		kong.Configuration(kongyaml.Loader, yamlPaths...),
		kong.Configuration(kongtoml.Loader, tomlPaths...),
	)

	logger, closeLog, err := setupLogger(cli.Log)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
		os.Exit(2)
	}
	defer closeLog()
	util.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kctx.Bind(&cli.Options, logger)
	kctx.BindTo(ctx, (*context.Context)(nil))

	err = kctx.Run()
	kctx.FatalIfErrorf(err)
}

// setupLogger builds the process logger. The returned func closes the log
// file, if any.
func setupLogger(opts LogOptions) (*slog.Logger, func(), error) {
	cfg := util.DefaultLoggerConfig()
	cfg.Level = util.LogLevel(opts.Level)
	cfg.Format = util.LogFormat(opts.Format)

	closeFn := func() {}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, err
		}
		cfg.File = f
		closeFn = func() { _ = f.Close() }
	}
	return util.NewLogger(cfg), closeFn, nil
}

// findUserConfig returns the --config value, or $PROPGEN_CONFIG. It runs
// before kong so the file can feed the resolvers.
func findUserConfig(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "--config=") {
			return a[len("--config="):]
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return os.Getenv("PROPGEN_CONFIG")
}

// configCandidatePaths lists config files per format in priority order. A
// user path is routed to its loader by extension.
func configCandidatePaths(userPath string) (jsonPaths, yamlPaths, tomlPaths []string) {
	add := func(slice *[]string, p string) { *slice = append(*slice, p) }

	if userPath != "" {
		switch filepath.Ext(userPath) {
		case ".yaml", ".yml":
			add(&yamlPaths, userPath)
		case ".toml":
			add(&tomlPaths, userPath)
		default:
			add(&jsonPaths, userPath)
		}
	}

	wd, _ := os.Getwd()
	for _, base := range []string{"propgen", filepath.Join(".propgen", "config")} {
		add(&jsonPaths, filepath.Join(wd, base+".json"))
		add(&yamlPaths, filepath.Join(wd, base+".yaml"))
		add(&yamlPaths, filepath.Join(wd, base+".yml"))
		add(&tomlPaths, filepath.Join(wd, base+".toml"))
	}
	return jsonPaths, yamlPaths, tomlPaths
}

// VersionCmd prints the version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	_, err := io.WriteString(stdout, "propgen "+version+"\n")
	return err
}
