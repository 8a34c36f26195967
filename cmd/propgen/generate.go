package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/gnana997/propgen/pkg/generate"
	"github.com/gnana997/propgen/pkg/report"
)

// GenerateCmd runs one generation pass.
type GenerateCmd struct {
	Paths []string `arg:"" optional:"" help:"Units to generate instead of scanning the root." type:"path"`
}

func (c *GenerateCmd) Run(ctx context.Context, opts *Options, logger *slog.Logger) error {
	g, err := opts.newGenerator(logger)
	if err != nil {
		return err
	}
	defer g.Close()

	var run *generate.Run
	if len(c.Paths) > 0 {
		run, err = g.RunFiles(ctx, c.Paths)
	} else {
		run, err = g.Run(ctx, opts.Root)
	}

	// A report is still useful when every unit failed.
	if run != nil && opts.Report != "" {
		r := report.Build(run.Scan, run.Write, g.Emitter(), version)
		r.DryRun = opts.DryRun
		if serr := r.Save(opts.Report); serr != nil {
			logger.Error("failed to write report", "path", opts.Report, "error", serr)
		} else {
			logger.Info("report written", "path", opts.Report)
		}
	}
	if err != nil {
		return err
	}

	if opts.DryRun {
		return printDryRun(stdout, run)
	}
	printSummary(stdout, run)
	return nil
}

// printDryRun prints every rendered unit under a header naming its target,
// and the targets a run would remove.
func printDryRun(w io.Writer, run *generate.Run) error {
	for _, out := range run.Write.Outputs {
		var err error
		if out.Removed {
			_, err = fmt.Fprintf(w, "==> %s <== (removed)\n", out.Path)
		} else {
			_, err = fmt.Fprintf(w, "==> %s <==\n%s\n", out.Path, out.Content)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func printSummary(w io.Writer, run *generate.Run) {
	s, ws := run.Scan.Stats, run.Write.Stats
	fmt.Fprintf(w, "%d components in %d units, %d blocks: %d files written, %d unchanged\n",
		s.ComponentsFound, s.UnitsLocated, ws.BlocksEmitted, ws.FilesWritten, ws.FilesUnchanged)
	if ws.FilesRemoved > 0 {
		fmt.Fprintf(w, "%d stale files removed\n", ws.FilesRemoved)
	}
	if s.UnitsFailed > 0 {
		fmt.Fprintf(w, "%d units failed\n", s.UnitsFailed)
	}
	if ws.FormatError != "" {
		fmt.Fprintf(w, "formatter failed: %s\n", ws.FormatError)
	}
}
