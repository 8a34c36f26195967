// Package generate wires the scanner, emitter and writer into one
// generation pass. The CLI, the watcher and the MCP server share it.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gnana997/propgen/pkg/emitter"
	"github.com/gnana997/propgen/pkg/materialize"
	"github.com/gnana997/propgen/pkg/scanner"
)

// Options configures a Generator.
type Options struct {
	Scan  scanner.Config
	Emit  emitter.Options
	Write materialize.Options
}

// Run is the outcome of one pass.
type Run struct {
	Scan  *scanner.Result
	Write *materialize.Result
}

// Generator runs generation passes. Reuse it across passes so unchanged
// targets are recognized.
type Generator struct {
	sc  *scanner.Scanner
	em  *emitter.Emitter
	w   *materialize.Writer
	log *slog.Logger
}

// New creates a Generator.
func New(opts Options, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sc, err := scanner.New(opts.Scan, logger)
	if err != nil {
		return nil, err
	}
	em := emitter.New(opts.Emit)
	if opts.Write.Logger == nil {
		opts.Write.Logger = logger
	}
	w, err := materialize.New(em, opts.Write)
	if err != nil {
		sc.Close()
		return nil, err
	}
	return &Generator{sc: sc, em: em, w: w, log: logger}, nil
}

// Scanner returns the underlying scanner.
func (g *Generator) Scanner() *scanner.Scanner { return g.sc }

// Emitter returns the emitter.
func (g *Generator) Emitter() *emitter.Emitter { return g.em }

// Writer returns the writer.
func (g *Generator) Writer() *materialize.Writer { return g.w }

// Run scans root and writes every unit with emittable components. Output
// generated earlier for units that no longer have any is cleared.
//
// When the scan fails because every unit failed, the scan result is still
// returned so callers can report it.
func (g *Generator) Run(ctx context.Context, root string) (*Run, error) {
	start := time.Now()
	res, err := g.sc.Run(ctx, root)
	if err != nil {
		if res != nil && errors.Is(err, scanner.ErrAllUnitsFailed) {
			return &Run{Scan: res}, err
		}
		return nil, err
	}
	return g.write(ctx, res, start)
}

// RunFiles locates and writes the given units only.
func (g *Generator) RunFiles(ctx context.Context, paths []string) (*Run, error) {
	start := time.Now()
	res, err := g.sc.LocateFiles(ctx, paths)
	if err != nil {
		if res != nil && errors.Is(err, scanner.ErrAllUnitsFailed) {
			return &Run{Scan: res}, err
		}
		return nil, err
	}
	return g.write(ctx, res, start)
}

// Regenerate runs RunFiles and logs the outcome.
func (g *Generator) Regenerate(ctx context.Context, paths []string) error {
	run, err := g.RunFiles(ctx, paths)
	if err != nil {
		return err
	}
	g.log.Info("regenerated",
		"files", len(paths),
		"components", run.Scan.Stats.ComponentsFound,
		"written", run.Write.Stats.FilesWritten,
		"removed", run.Write.Stats.FilesRemoved)
	return nil
}

// Owns reports whether content at path is this generator's own output.
func (g *Generator) Owns(path string, content []byte) bool {
	return g.w.Owns(path, content)
}

// Close releases the scanner.
func (g *Generator) Close() error {
	return g.sc.Close()
}

func (g *Generator) write(ctx context.Context, res *scanner.Result, start time.Time) (*Run, error) {
	units := make([]materialize.Unit, 0, len(res.Units))
	for _, u := range res.Units {
		if u.Err != nil || u.Discovery == nil {
			continue
		}
		units = append(units, materialize.Unit{
			Source:     u.Path,
			Components: u.Emittable(),
			Stale:      u.Stale(),
		})
	}

	wres, err := g.w.Write(ctx, units)
	if err != nil {
		return &Run{Scan: res}, fmt.Errorf("write failed: %w", err)
	}

	g.log.Info("generation complete",
		"units", len(res.Units),
		"components", res.Stats.ComponentsFound,
		"blocks", wres.Stats.BlocksEmitted,
		"ms", time.Since(start).Milliseconds())
	return &Run{Scan: res, Write: wres}, nil
}
