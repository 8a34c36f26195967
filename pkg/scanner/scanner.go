package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gnana997/propgen/pkg/locator"
	"github.com/gnana997/propgen/pkg/parser"
	"github.com/gnana997/propgen/pkg/parser/queries"
	"github.com/gnana997/propgen/pkg/util"
)

// Scanner runs discovery and location over a source tree.
type Scanner struct {
	cfg Config
	pm  *parser.ParserManager
	qm  *queries.QueryManager
	loc *locator.Locator
	log *slog.Logger
}

// New creates a scanner. The grammars are probed up front so an unusable
// parser fails here rather than once per unit.
func New(cfg Config, logger *slog.Logger) (*Scanner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ValidatePatterns(cfg); err != nil {
		return nil, err
	}

	pm := parser.NewParserManager(logger)
	if err := pm.Probe(); err != nil {
		pm.Close()
		return nil, err
	}
	qm := queries.NewQueryManager(pm, logger)
	loc := locator.New(pm, qm, locator.Options{MaxDepth: cfg.MaxDepth})
	return &Scanner{cfg: cfg, pm: pm, qm: qm, loc: loc, log: logger}, nil
}

// Config returns the scanner configuration.
func (s *Scanner) Config() Config { return s.cfg }

// Locator exposes the locator for single-unit callers.
func (s *Scanner) Locator() *locator.Locator { return s.loc }

// Run discovers the units under rootDir and locates their components.
//
// A failing unit is logged and counted; Run only fails on invalid globs,
// cancellation, or when every discovered unit failed.
func (s *Scanner) Run(ctx context.Context, rootDir string) (*Result, error) {
	totalStart := time.Now()

	discoveryStart := time.Now()
	files, err := DiscoverFiles(rootDir, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}
	discoveryMs := time.Since(discoveryStart).Milliseconds()
	s.log.Info("discovery complete", "files", len(files), "ms", discoveryMs)

	res, err := s.LocateFiles(ctx, files)
	if res != nil {
		res.Root = rootDir
		res.Stats.DiscoveryTimeMs = discoveryMs
		res.Stats.TotalTimeMs = time.Since(totalStart).Milliseconds()
	}
	return res, err
}

// LocateFiles locates components in files on the worker pool. Units are
// returned in the order of files.
func (s *Scanner) LocateFiles(ctx context.Context, files []string) (*Result, error) {
	start := time.Now()
	res := &Result{Units: make([]UnitResult, len(files))}
	res.Stats.FilesDiscovered = len(files)
	if len(files) == 0 {
		return res, nil
	}

	cache := util.NewFileCache(&util.FileCacheConfig{Logger: s.log})
	defer func() {
		if err := cache.Close(); err != nil {
			s.log.Warn("failed to release source cache", "error", err)
		}
	}()

	numWorkers := util.GetOptimalPoolSizeWithOverride(s.cfg.Workers)
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	jobs := make(chan int, numWorkers*2)
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				path := files[idx]
				unit := UnitResult{Path: path}
				if err := ctx.Err(); err != nil {
					unit.Err = err
				} else if source, err := cache.Read(path); err != nil {
					unit.Err = fmt.Errorf("failed to read %s: %w", path, err)
				} else {
					unit.Discovery, unit.Err = s.loc.Locate(path, source)
				}
				// Each worker owns distinct indexes.
				res.Units[idx] = unit
			}
		}()
	}

	for idx := range files {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.tally(res)
	res.Stats.LocateTimeMs = time.Since(start).Milliseconds()
	res.Stats.TotalTimeMs = res.Stats.LocateTimeMs

	s.log.Info("location complete",
		"units", res.Stats.UnitsLocated,
		"failed", res.Stats.UnitsFailed,
		"components", res.Stats.ComponentsFound,
		"props", res.Stats.PropsExtracted,
		"ms", res.Stats.LocateTimeMs)

	if res.Stats.UnitsFailed == len(files) {
		return res, fmt.Errorf("%w: %d units", ErrAllUnitsFailed, len(files))
	}
	return res, nil
}

// LocateSource locates components in one in-memory unit.
func (s *Scanner) LocateSource(path string, source []byte) (*locator.Discovery, error) {
	return s.loc.Locate(path, source)
}

// tally fills the counters and logs the per-unit outcomes.
func (s *Scanner) tally(res *Result) {
	st := &res.Stats
	for _, u := range res.Units {
		if u.Err != nil {
			st.UnitsFailed++
			s.log.Warn("unit failed", "file", u.Path, "error", u.Err)
			continue
		}
		d := u.Discovery
		st.UnitsLocated++
		st.ExportsSkipped += len(d.Skipped)
		if d.SyntaxErrors {
			s.log.Warn("unit has syntax errors", "file", u.Path)
		}
		if len(d.Components) == 0 {
			st.UnitsWithoutComponents++
			s.log.Info("no components found", "file", u.Path, "skipped", len(d.Skipped))
			continue
		}
		for _, c := range d.Components {
			st.ComponentsFound++
			st.PropsExtracted += len(c.Props)
			st.Truncations += len(c.Truncations)
			if len(c.Props) == 0 {
				st.ComponentsEmpty++
				s.log.Info("component has no props", "component", c.Name, "file", u.Path)
			}
			for _, tr := range c.Truncations {
				s.log.Debug("nested shape truncated",
					"component", c.Name, "path", tr.Path, "reason", tr.Reason)
			}
		}
	}
}

// Close releases parser and query manager resources.
func (s *Scanner) Close() error {
	return errors.Join(s.qm.Close(), s.pm.Close())
}
