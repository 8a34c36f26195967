package scanner

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/propgen/pkg/proptype"
)

func newTestScanner(t *testing.T, cfg Config) *Scanner {
	t.Helper()
	s, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRun_LocatesComponentsAndTallies(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "button.tsx", `interface ButtonProps {
  label: string;
  onClick: () => void;
  disabled?: boolean;
}
export function Button(props: ButtonProps) { return null; }
`)
	writeFile(t, tmp, "empty.tsx", `export function Divider(props: {}) { return null; }`)
	writeFile(t, tmp, "utils.ts", `export const VERSION = '1.0.0';
export type Id = string;
`)

	s := newTestScanner(t, DefaultConfig())
	res, err := s.Run(context.Background(), tmp)
	require.NoError(t, err)

	require.Len(t, res.Units, 3)
	assert.Equal(t, []string{"button.tsx", "empty.tsx", "utils.ts"}, unitNames(res))

	button := res.Units[0]
	require.NoError(t, button.Err)
	require.Len(t, button.Discovery.Components, 1)
	assert.Equal(t, "Button", button.Discovery.Components[0].Name)
	assert.Equal(t, []proptype.Prop{
		{Name: "label", Type: proptype.PrimitiveOf(proptype.PrimitiveString), Required: true},
		{Name: "onClick", Type: proptype.Function(), Required: true},
		{Name: "disabled", Type: proptype.PrimitiveOf(proptype.PrimitiveBoolean), Required: false},
	}, button.Discovery.Components[0].Props)
	assert.Len(t, button.Emittable(), 1)

	empty := res.Units[1]
	require.Len(t, empty.Discovery.Components, 1)
	assert.Empty(t, empty.Emittable())

	st := res.Stats
	assert.Equal(t, 3, st.FilesDiscovered)
	assert.Equal(t, 3, st.UnitsLocated)
	assert.Equal(t, 0, st.UnitsFailed)
	assert.Equal(t, 1, st.UnitsWithoutComponents)
	assert.Equal(t, 2, st.ComponentsFound)
	assert.Equal(t, 1, st.ComponentsEmpty)
	assert.Equal(t, 3, st.PropsExtracted)
	assert.Equal(t, 2, st.ExportsSkipped)
	assert.Equal(t, tmp, res.Root)
}

func TestRun_NoFiles(t *testing.T) {
	s := newTestScanner(t, DefaultConfig())
	res, err := s.Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, res.Units)
	assert.Equal(t, 0, res.Stats.FilesDiscovered)
}

func TestRun_SyntaxErrorsAreStillLocated(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "broken.tsx", `export function Tag(props: { text: string }) { return <div>; }
export const = ;
`)

	s := newTestScanner(t, DefaultConfig())
	res, err := s.Run(context.Background(), tmp)
	require.NoError(t, err)
	require.Len(t, res.Units, 1)
	require.NoError(t, res.Units[0].Err)
	assert.True(t, res.Units[0].Discovery.SyntaxErrors)
}

func TestLocateFiles_AllUnitsFailed(t *testing.T) {
	tmp := t.TempDir()
	s := newTestScanner(t, DefaultConfig())

	res, err := s.LocateFiles(context.Background(), []string{
		filepath.Join(tmp, "missing-a.tsx"),
		filepath.Join(tmp, "missing-b.tsx"),
	})
	require.ErrorIs(t, err, ErrAllUnitsFailed)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Stats.UnitsFailed)
	for _, u := range res.Units {
		assert.Error(t, u.Err)
		assert.Nil(t, u.Discovery)
	}
}

func TestLocateFiles_PartialFailureIsNotFatal(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "ok.tsx", `export const Ok = (props: { a: string }) => null;`)

	s := newTestScanner(t, DefaultConfig())
	res, err := s.LocateFiles(context.Background(), []string{
		filepath.Join(tmp, "missing.tsx"),
		filepath.Join(tmp, "ok.tsx"),
	})
	require.NoError(t, err)
	assert.Error(t, res.Units[0].Err)
	require.NoError(t, res.Units[1].Err)
	assert.Equal(t, 1, res.Stats.UnitsFailed)
	assert.Equal(t, 1, res.Stats.ComponentsFound)
}

func TestLocateFiles_PreservesOrderAcrossWorkers(t *testing.T) {
	tmp := t.TempDir()
	var files []string
	for _, name := range []string{"e.tsx", "a.tsx", "d.tsx", "b.tsx", "c.tsx"} {
		writeFile(t, tmp, name, `export function C(props: { v: number }) { return null; }`)
		files = append(files, filepath.Join(tmp, name))
	}

	cfg := DefaultConfig()
	cfg.Workers = 3
	s := newTestScanner(t, cfg)
	res, err := s.LocateFiles(context.Background(), files)
	require.NoError(t, err)
	for i, u := range res.Units {
		assert.Equal(t, files[i], u.Path)
	}
}

func TestLocateFiles_Canceled(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, tmp, "a.tsx", `export function A(props: { v: number }) { return null; }`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestScanner(t, DefaultConfig())
	_, err := s.LocateFiles(ctx, []string{filepath.Join(tmp, "a.tsx")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocateSource(t *testing.T) {
	s := newTestScanner(t, DefaultConfig())
	d, err := s.LocateSource("src/card.tsx", []byte(`export default function (props: { title: string }) { return null; }`))
	require.NoError(t, err)
	require.Len(t, d.Components, 1)
	assert.Equal(t, "Card", d.Components[0].Name)
	assert.True(t, d.Components[0].Default)
}

func TestNew_InvalidPattern(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Exclude = append(cfg.Exclude, "[oops")
	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func unitNames(res *Result) []string {
	names := make([]string, len(res.Units))
	for i, u := range res.Units {
		names[i] = filepath.Base(u.Path)
	}
	return names
}
