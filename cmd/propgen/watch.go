package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gnana997/propgen/pkg/scanner"
	"github.com/gnana997/propgen/pkg/watch"
)

// WatchCmd generates once, then regenerates changed units until interrupted.
type WatchCmd struct {
	Debounce time.Duration `help:"Quiet period before a changed unit is regenerated." default:"200ms"`
}

func (c *WatchCmd) Run(ctx context.Context, opts *Options, logger *slog.Logger) error {
	g, err := opts.newGenerator(logger)
	if err != nil {
		return err
	}
	defer g.Close()

	// An empty or entirely broken tree is still worth watching.
	if _, err := g.Run(ctx, opts.Root); err != nil && !errors.Is(err, scanner.ErrAllUnitsFailed) {
		return err
	}

	w, err := watch.New(opts.Root, g, watch.Options{
		Scan:     opts.scanConfig(),
		Debounce: c.Debounce,
	}, logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	err = w.Run(ctx)
	s := w.Stats()
	logger.Info("watch stopped", "regenerations", s.Regenerations, "failures", s.Failures, "ignored", s.Ignored)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
