// Package scanner drives component discovery over a source tree: it expands
// the include and exclude globs, locates components in every matched unit
// on a bounded worker pool, and tallies the outcome.
package scanner

import (
	"errors"

	"github.com/gnana997/propgen/pkg/locator"
	"github.com/gnana997/propgen/pkg/proptype"
)

// ErrAllUnitsFailed is returned when units were found but none could be
// located.
var ErrAllUnitsFailed = errors.New("every discovered unit failed")

// Config configures discovery and location.
type Config struct {
	// Include glob patterns, relative to the scan root.
	Include []string
	// Exclude glob patterns, matched against files and directories.
	Exclude []string
	// MaxDepth bounds nested object recursion per component.
	MaxDepth int
	// Workers is the worker pool size. 0 uses util.GetOptimalPoolSize().
	Workers int
}

// DefaultInclude matches TypeScript units.
var DefaultInclude = []string{"**/*.tsx", "**/*.ts"}

// DefaultExclude skips dependencies, build output, tests, stories and the
// files propgen writes itself.
var DefaultExclude = []string{
	"**/node_modules/**",
	".git/**",
	"dist/**",
	"build/**",
	".next/**",
	"coverage/**",
	"**/*.d.ts",
	"**/*.test.*",
	"**/*.spec.*",
	"**/*.stories.*",
	"**/__tests__/**",
	"**/__mocks__/**",
	"**/*.proptypes.*",
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Include: append([]string(nil), DefaultInclude...),
		Exclude: append([]string(nil), DefaultExclude...),
	}
}

// UnitResult is the outcome for one unit. Exactly one of Discovery and Err
// is set.
type UnitResult struct {
	Path      string
	Discovery *locator.Discovery
	Err       error
}

// Result is the outcome of one run, with units in path order.
type Result struct {
	Root  string
	Units []UnitResult
	Stats Stats
}

// Stats tallies a run.
type Stats struct {
	FilesDiscovered int `json:"filesDiscovered"`
	UnitsLocated    int `json:"unitsLocated"`
	UnitsFailed     int `json:"unitsFailed"`
	// UnitsWithoutComponents counts located units with no component.
	UnitsWithoutComponents int `json:"unitsWithoutComponents"`

	ComponentsFound int `json:"componentsFound"`
	// ComponentsEmpty counts components without props; they are not
	// emitted.
	ComponentsEmpty int   `json:"componentsEmpty"`
	ExportsSkipped  int   `json:"exportsSkipped"`
	PropsExtracted  int   `json:"propsExtracted"`
	Truncations     int   `json:"truncations"`
	DiscoveryTimeMs int64 `json:"discoveryTimeMs"`
	LocateTimeMs    int64 `json:"locateTimeMs"`
	TotalTimeMs     int64 `json:"totalTimeMs"`
}

// Emittable returns the located components that have props, in unit order.
func (r UnitResult) Emittable() []proptype.Component {
	if r.Discovery == nil {
		return nil
	}
	var out []proptype.Component
	for _, c := range r.Discovery.Components {
		if len(c.Props) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Stale returns the names of located components without props.
func (r UnitResult) Stale() []string {
	if r.Discovery == nil {
		return nil
	}
	var out []string
	for _, c := range r.Discovery.Components {
		if len(c.Props) == 0 {
			out = append(out, c.Name)
		}
	}
	return out
}
