// Package materialize writes emitted validator blocks to disk.
//
// Two layouts are supported. By default every source unit gets a companion
// unit, <base>.proptypes.ts (or .js), next to it or mirrored under an output
// directory; the companion imports the validator module and the components
// it annotates. In inline mode the blocks are written into the source unit
// itself, replacing blocks from an earlier run in place.
//
// A Writer remembers the hash of everything it wrote, so unchanged targets
// are not rewritten and a watcher can recognize its own writes.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/gnana997/propgen/pkg/emitter"
	"github.com/gnana997/propgen/pkg/parser"
	"github.com/gnana997/propgen/pkg/proptype"
	"github.com/gnana997/propgen/pkg/util"
)

// UnitSuffix marks generated companion units.
const UnitSuffix = ".proptypes"

// GeneratedHeader is the first line of every companion unit.
const GeneratedHeader = "// Code generated by propgen. DO NOT EDIT."

// DefaultFormatter is the external formatter run when formatting is on.
const DefaultFormatter = "prettier"

// ErrOutsideRoot is returned when an output directory is set and a source
// does not live under the root.
var ErrOutsideRoot = errors.New("source is outside the root directory")

// hashCacheSize bounds the remembered targets.
const hashCacheSize = 4096

// Options configures a Writer.
type Options struct {
	// Root is the scan root; OutputDir mirrors paths relative to it.
	Root string
	// OutputDir receives companion units. Empty writes next to the source.
	OutputDir string
	// Inline writes blocks into the source unit instead.
	Inline bool
	// Format runs Formatter over the written files.
	Format    bool
	Formatter string
	// DryRun renders without touching disk.
	DryRun bool
	// Workers bounds concurrent writes. 0 uses util.GetOptimalPoolSize().
	Workers int
	Logger  *slog.Logger
}

// Unit is one source unit and the components to emit for it.
type Unit struct {
	Source     string
	Components []proptype.Component
	// Stale names components that lost their props. In inline mode their
	// blocks from an earlier run are removed.
	Stale []string
}

// Output describes one target.
type Output struct {
	Source string `json:"source"`
	Path   string `json:"path"`
	Blocks int    `json:"blocks"`
	// Content is the rendered text, before formatting.
	Content   string `json:"-"`
	Written   bool   `json:"written"`
	Unchanged bool   `json:"unchanged"`
	// Removed marks a generated companion unit deleted because its source
	// has nothing left to emit.
	Removed bool `json:"removed,omitempty"`
}

// Stats tallies one Write.
type Stats struct {
	UnitsRendered  int    `json:"unitsRendered"`
	BlocksEmitted  int    `json:"blocksEmitted"`
	FilesWritten   int    `json:"filesWritten"`
	FilesUnchanged int    `json:"filesUnchanged"`
	FilesRemoved   int    `json:"filesRemoved,omitempty"`
	FilesFormatted int    `json:"filesFormatted"`
	FormatError    string `json:"formatError,omitempty"`
	WriteTimeMs    int64  `json:"writeTimeMs"`
}

// Result is the outcome of one Write, outputs in unit order.
type Result struct {
	Outputs []Output
	Stats   Stats
}

// fingerprint is what a Writer remembers about a target: the hash of the
// text it rendered and of the bytes left on disk afterwards. They differ
// when a formatter rewrote the file.
type fingerprint struct {
	rendered uint64
	disk     uint64
}

// Writer materializes units. It is safe for concurrent use and meant to be
// reused across runs.
type Writer struct {
	opts   Options
	em     *emitter.Emitter
	hashes *lru.Cache[string, fingerprint]
	log    *slog.Logger
}

// New creates a Writer.
func New(em *emitter.Emitter, opts Options) (*Writer, error) {
	if em == nil {
		em = emitter.New(emitter.Options{})
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Formatter == "" {
		opts.Formatter = DefaultFormatter
	}
	if opts.Inline && opts.OutputDir != "" {
		return nil, fmt.Errorf("inline mode cannot be combined with an output directory")
	}
	if opts.OutputDir != "" {
		abs, err := filepath.Abs(opts.OutputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output directory: %w", err)
		}
		opts.OutputDir = abs
	}
	if opts.Root != "" {
		abs, err := filepath.Abs(opts.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path: %w", err)
		}
		opts.Root = abs
	}

	hashes, err := lru.New[string, fingerprint](hashCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create hash cache: %w", err)
	}
	return &Writer{opts: opts, em: em, hashes: hashes, log: opts.Logger}, nil
}

// Target returns the file a unit's blocks are written to.
func (w *Writer) Target(source string) (string, error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", err
	}
	if w.opts.Inline {
		return abs, nil
	}

	ext := filepath.Ext(abs)
	outExt := ".ts"
	if parser.DetectLanguage(abs) == parser.LanguageJavaScript {
		outExt = ".js"
	}
	name := strings.TrimSuffix(filepath.Base(abs), ext) + UnitSuffix + outExt

	if w.opts.OutputDir == "" {
		return filepath.Join(filepath.Dir(abs), name), nil
	}
	root := w.opts.Root
	if root == "" {
		root, _ = os.Getwd()
	}
	rel, err := filepath.Rel(root, filepath.Dir(abs))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, source)
	}
	return filepath.Join(w.opts.OutputDir, rel, name), nil
}

// Render produces the target path and content for u without writing.
func (w *Writer) Render(u Unit) (Output, error) {
	target, err := w.Target(u.Source)
	if err != nil {
		return Output{}, err
	}
	components := dedupe(u.Components)
	out := Output{Source: u.Source, Path: target, Blocks: len(components)}

	if w.opts.Inline {
		existing, err := os.ReadFile(target)
		if err != nil {
			return Output{}, fmt.Errorf("failed to read %s: %w", target, err)
		}
		out.Content = w.inline(string(existing), components, u.Stale)
	} else {
		out.Content = w.companion(target, u.Source, components)
	}
	return out, nil
}

// Write renders and writes every unit with at least one component.
//
// Units without components clear what earlier runs generated for them: in
// inline mode the blocks named in Stale are removed from the source, and
// otherwise a generated companion unit is deleted. Targets are written
// concurrently; the first error cancels the rest.
func (w *Writer) Write(ctx context.Context, units []Unit) (*Result, error) {
	start := time.Now()
	res := &Result{}

	var pending, cleared []Unit
	for _, u := range units {
		switch {
		case len(u.Components) > 0:
			pending = append(pending, u)
		case w.opts.Inline && len(u.Stale) == 0:
		default:
			cleared = append(cleared, u)
		}
	}
	claimed, err := w.checkCollisions(pending)
	if err != nil {
		return nil, err
	}

	work := append(pending, cleared...)
	outs := make([]Output, len(work))
	keep := make([]bool, len(work))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(util.GetOptimalPoolSizeWithOverride(w.opts.Workers))
	for i, u := range work {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var out Output
			var err error
			if len(u.Components) > 0 {
				out, err = w.Render(u)
			} else {
				var ok bool
				if out, ok, err = w.clear(u, claimed); err == nil && !ok {
					return nil
				}
			}
			if err != nil {
				return err
			}
			if !w.opts.DryRun {
				if out.Removed {
					err = w.remove(&out)
				} else {
					err = w.commit(&out)
				}
				if err != nil {
					return err
				}
			}
			outs[i], keep[i] = out, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, out := range outs {
		if keep[i] {
			res.Outputs = append(res.Outputs, out)
		}
	}

	var written []string
	for _, out := range res.Outputs {
		if out.Removed {
			if !w.opts.DryRun {
				res.Stats.FilesRemoved++
			}
			continue
		}
		res.Stats.UnitsRendered++
		res.Stats.BlocksEmitted += out.Blocks
		switch {
		case out.Written:
			res.Stats.FilesWritten++
			written = append(written, out.Path)
		case out.Unchanged:
			res.Stats.FilesUnchanged++
		}
	}

	if w.opts.Format && len(written) > 0 {
		ran, err := w.format(ctx, written)
		switch {
		case err != nil:
			res.Stats.FormatError = err.Error()
			w.log.Error("formatting failed", "files", len(written), "error", err)
		case ran:
			res.Stats.FilesFormatted = w.formatted(written)
		}
	}

	res.Stats.WriteTimeMs = time.Since(start).Milliseconds()
	w.log.Info("write complete",
		"written", res.Stats.FilesWritten,
		"unchanged", res.Stats.FilesUnchanged,
		"removed", res.Stats.FilesRemoved,
		"blocks", res.Stats.BlocksEmitted,
		"dry_run", w.opts.DryRun,
		"ms", res.Stats.WriteTimeMs)
	return res, nil
}

// Owns reports whether content is exactly what this Writer last left at
// path.
func (w *Writer) Owns(path string, content []byte) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	fp, ok := w.hashes.Get(abs)
	return ok && fp.disk == xxhash.Sum64(content)
}

// commit writes out unless the target already holds the same content.
func (w *Writer) commit(out *Output) error {
	rendered := xxhash.Sum64String(out.Content)

	current, err := os.ReadFile(out.Path)
	switch {
	case err == nil:
		disk := xxhash.Sum64(current)
		fp, seen := w.hashes.Get(out.Path)
		if disk == rendered || (seen && fp.rendered == rendered && fp.disk == disk) {
			w.hashes.Add(out.Path, fingerprint{rendered: rendered, disk: disk})
			out.Unchanged = true
			return nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("failed to read %s: %w", out.Path, err)
	}

	if err := os.MkdirAll(filepath.Dir(out.Path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(out.Path), err)
	}
	if err := os.WriteFile(out.Path, []byte(out.Content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out.Path, err)
	}
	w.hashes.Add(out.Path, fingerprint{rendered: rendered, disk: rendered})
	out.Written = true
	w.log.Debug("wrote target", "path", out.Path, "blocks", out.Blocks)
	return nil
}

// formatted refreshes the disk hashes of files a formatter may have
// rewritten and returns how many could be re-read.
func (w *Writer) formatted(paths []string) int {
	n := 0
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		n++
		if fp, seen := w.hashes.Get(p); seen {
			fp.disk = xxhash.Sum64(data)
			w.hashes.Add(p, fp)
		}
	}
	return n
}

// checkCollisions returns the target of every unit keyed by path.
func (w *Writer) checkCollisions(units []Unit) (map[string]string, error) {
	owners := make(map[string]string, len(units))
	for _, u := range units {
		target, err := w.Target(u.Source)
		if err != nil {
			return nil, err
		}
		if prev, ok := owners[target]; ok {
			srcs := []string{prev, u.Source}
			sort.Strings(srcs)
			return nil, fmt.Errorf("output collision: %s and %s both write %s", srcs[0], srcs[1], target)
		}
		owners[target] = u.Source
	}
	return owners, nil
}

// clear renders a unit left without components. It reports false when
// nothing generated for the unit remains on disk. Targets claimed by another
// unit are left alone.
func (w *Writer) clear(u Unit, claimed map[string]string) (Output, bool, error) {
	target, err := w.Target(u.Source)
	if err != nil {
		return Output{}, false, nil
	}
	out := Output{Source: u.Source, Path: target}

	if w.opts.Inline {
		existing, err := os.ReadFile(target)
		if err != nil {
			return Output{}, false, fmt.Errorf("failed to read %s: %w", target, err)
		}
		out.Content = w.inline(string(existing), nil, u.Stale)
		return out, out.Content != string(existing), nil
	}

	if _, taken := claimed[target]; taken {
		return Output{}, false, nil
	}
	generated, err := w.generated(target)
	if err != nil || !generated {
		return Output{}, false, err
	}
	out.Removed = true
	return out, true, nil
}

// generated reports whether path holds a companion unit written by this
// Writer or by an earlier run.
func (w *Writer) generated(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if w.Owns(path, data) {
		return true, nil
	}
	first, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(first) == GeneratedHeader, nil
}

func (w *Writer) remove(out *Output) error {
	if err := os.Remove(out.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", out.Path, err)
	}
	w.hashes.Remove(out.Path)
	w.log.Debug("removed target", "path", out.Path)
	return nil
}

// dedupe keeps the first component of each name. A name exported both as
// itself and as the default yields one block.
func dedupe(components []proptype.Component) []proptype.Component {
	seen := make(map[string]bool, len(components))
	out := make([]proptype.Component, 0, len(components))
	for _, c := range components {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		out = append(out, c)
	}
	return out
}
