package materialize

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// lookPathFunc is replaced in tests.
var lookPathFunc = exec.LookPath

// formatterCommand resolves the formatter binary. A bare prettier that is
// not on PATH falls back to the project's copy through npx.
func (w *Writer) formatterCommand() (string, []string, bool) {
	if p, err := lookPathFunc(w.opts.Formatter); err == nil {
		return p, nil, true
	}
	if filepath.Base(w.opts.Formatter) == DefaultFormatter {
		if p, err := lookPathFunc("npx"); err == nil {
			return p, []string{"--no-install", DefaultFormatter}, true
		}
	}
	return "", nil, false
}

// format runs the formatter over paths and reports whether it ran. A
// missing formatter is logged and ignored.
func (w *Writer) format(ctx context.Context, paths []string) (bool, error) {
	bin, args, ok := w.formatterCommand()
	if !ok {
		w.log.Warn("formatter not found, leaving output unformatted", "formatter", w.opts.Formatter)
		return false, nil
	}

	args = append(args, "--write")
	args = append(args, paths...)
	cmd := exec.CommandContext(ctx, bin, args...)
	if w.opts.Root != "" {
		cmd.Dir = w.opts.Root
	}
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	w.log.Info("running formatter", "formatter", filepath.Base(bin), "files", len(paths))
	if err := cmd.Run(); err != nil {
		return true, fmt.Errorf("formatter failed: %w (output: %s)", err, strings.TrimSpace(output.String()))
	}
	return true, nil
}
