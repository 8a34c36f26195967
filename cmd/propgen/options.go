package main

import (
	"log/slog"
	"slices"

	"github.com/gnana997/propgen/pkg/emitter"
	"github.com/gnana997/propgen/pkg/generate"
	"github.com/gnana997/propgen/pkg/materialize"
	"github.com/gnana997/propgen/pkg/props"
	"github.com/gnana997/propgen/pkg/scanner"
)

// Options are the generation options shared by every command.
type Options struct {
	Root       string   `help:"Scan root." default:"." type:"path"`
	SourceGlob []string `help:"Include glob, relative to the root. Repeatable." sep:"none" placeholder:"GLOB"`
	Exclude    []string `help:"Exclude glob, matched against files and directories, added to the built-in excludes. Repeatable." sep:"none" placeholder:"GLOB"`
	OutputDir  string   `help:"Write companion units under this directory, mirroring the root." type:"path"`
	Inline     bool     `help:"Write validator blocks into the source units."`
	Format     bool     `help:"Run the formatter over written files."`
	Formatter  string   `help:"Formatter executable, invoked as <formatter> --write <files>." default:"prettier"`

	Validator      string `help:"Validator namespace." default:"PropTypes"`
	RequiredMarker string `help:"Required-marker member." default:"isRequired"`
	SchemaField    string `help:"Static field the block assigns." default:"propTypes"`
	Import         string `help:"Validator import statement. Defaults to an import from prop-types."`

	MaxDepth int    `help:"Nested object levels walked per component." default:"20"`
	Workers  int    `help:"Worker pool size. 0 picks one from the CPU count."`
	DryRun   bool   `help:"Render without writing; print the units to stdout."`
	Report   string `help:"Write a JSON run report to this path." type:"path"`
}

// defaultOptions mirrors the flag defaults with the scanner's globs filled
// in. config init renders it.
func defaultOptions() Options {
	return Options{
		Root:           ".",
		SourceGlob:     append([]string(nil), scanner.DefaultInclude...),
		Exclude:        append([]string(nil), scanner.DefaultExclude...),
		Formatter:      materialize.DefaultFormatter,
		Validator:      emitter.DefaultValidator,
		RequiredMarker: emitter.DefaultRequiredMarker,
		SchemaField:    emitter.DefaultSchemaField,
		MaxDepth:       props.DefaultMaxDepth,
	}
}

// scanConfig maps the options to a scanner config. User excludes extend
// scanner.DefaultExclude so dependencies and generated units stay skipped.
func (o *Options) scanConfig() scanner.Config {
	cfg := scanner.DefaultConfig()
	if len(o.SourceGlob) > 0 {
		cfg.Include = o.SourceGlob
	}
	for _, pattern := range o.Exclude {
		if !slices.Contains(cfg.Exclude, pattern) {
			cfg.Exclude = append(cfg.Exclude, pattern)
		}
	}
	cfg.MaxDepth = o.MaxDepth
	cfg.Workers = o.Workers
	return cfg
}

func (o *Options) generateOptions(logger *slog.Logger) generate.Options {
	return generate.Options{
		Scan: o.scanConfig(),
		Emit: emitter.Options{
			Validator:      o.Validator,
			RequiredMarker: o.RequiredMarker,
			SchemaField:    o.SchemaField,
			Import:         o.Import,
		},
		Write: materialize.Options{
			Root:      o.Root,
			OutputDir: o.OutputDir,
			Inline:    o.Inline,
			Format:    o.Format,
			Formatter: o.Formatter,
			DryRun:    o.DryRun,
			Workers:   o.Workers,
			Logger:    logger,
		},
	}
}

func (o *Options) newGenerator(logger *slog.Logger) (*generate.Generator, error) {
	return generate.New(o.generateOptions(logger), logger)
}
