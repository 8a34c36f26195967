// Package report records a generation run as JSON: the tallies, every unit
// with its components and skips, and the failures.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/gnana997/propgen/pkg/emitter"
	"github.com/gnana997/propgen/pkg/materialize"
	"github.com/gnana997/propgen/pkg/scanner"
)

// Tool is the tool name written into reports.
const Tool = "propgen"

// Build assembles a report. write may be nil when nothing was written.
func Build(scan *scanner.Result, write *materialize.Result, em *emitter.Emitter, version string) *Report {
	r := &Report{
		Tool:        Tool,
		Version:     version,
		Root:        scan.Root,
		GeneratedAt: time.Now().UTC(),
		Stats:       scan.Stats,
	}

	outputs := make(map[string]materialize.Output)
	if write != nil {
		stats := write.Stats
		r.Write = &stats
		for _, out := range write.Outputs {
			outputs[out.Source] = out
		}
	}

	for _, u := range scan.Units {
		unit := Unit{Path: u.Path}
		if u.Err != nil {
			unit.Error = u.Err.Error()
			r.Units = append(r.Units, unit)
			continue
		}
		if out, ok := outputs[u.Path]; ok {
			if out.Removed {
				unit.Removed = out.Path
			} else {
				unit.Output = out.Path
				unit.Written = out.Written
			}
		}
		unit.Skipped = u.Discovery.Skipped
		unit.SyntaxErrors = u.Discovery.SyntaxErrors
		for _, c := range u.Discovery.Components {
			comp := Component{
				Name:        c.Name,
				Location:    c.Location,
				Kind:        c.Kind,
				Default:     c.Default,
				Emitted:     len(c.Props) > 0 && unit.Output != "",
				Props:       make([]Prop, 0, len(c.Props)),
				Truncations: c.Truncations,
			}
			for _, p := range c.Props {
				comp.Props = append(comp.Props, Prop{
					Name:      p.Name,
					Type:      p.Type.String(),
					Validator: em.Prop(p),
					Required:  p.Required,
				})
			}
			unit.Components = append(unit.Components, comp)
		}
		r.Units = append(r.Units, unit)
	}
	return r
}

// Validate checks the report for internal consistency.
// Returns a slice of validation errors (empty slice if valid).
func (r *Report) Validate() []error {
	var errs []error
	if r.Tool == "" {
		errs = append(errs, fmt.Errorf("report tool is required"))
	}

	seen := make(map[string]bool, len(r.Units))
	located := 0
	for i, u := range r.Units {
		if u.Path == "" {
			errs = append(errs, fmt.Errorf("units[%d]: path is required", i))
			continue
		}
		if seen[u.Path] {
			errs = append(errs, fmt.Errorf("unit %q: duplicate unit", u.Path))
			continue
		}
		seen[u.Path] = true
		if u.Error != "" {
			if len(u.Components) > 0 {
				errs = append(errs, fmt.Errorf("unit %q: failed unit lists components", u.Path))
			}
			continue
		}
		located++

		for j, c := range u.Components {
			if c.Name == "" {
				errs = append(errs, fmt.Errorf("unit %q components[%d]: name is required", u.Path, j))
			}
			for k, p := range c.Props {
				if p.Name == "" {
					errs = append(errs, fmt.Errorf("component %q props[%d]: name is required", c.Name, k))
				}
				if p.Validator == "" {
					errs = append(errs, fmt.Errorf("component %q props[%d]: validator is required", c.Name, k))
				}
			}
		}
	}

	if located != r.Stats.UnitsLocated {
		errs = append(errs, fmt.Errorf("stats report %d located units, found %d", r.Stats.UnitsLocated, located))
	}
	return errs
}

// Save writes the report as indented JSON, creating parent directories.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// LoadFromFile loads and validates a report.
func LoadFromFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates a report from raw JSON bytes.
func LoadFromBytes(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report JSON: %w", err)
	}
	if errs := r.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("report validation failed: %w", errors.Join(errs...))
	}
	return &r, nil
}

// ComponentRef is a component and the unit it was found in.
type ComponentRef struct {
	Unit      string
	Component *Component
}

// FindComponent returns every component named name, case-insensitively,
// in unit order.
func (r *Report) FindComponent(name string) []ComponentRef {
	var refs []ComponentRef
	for i := range r.Units {
		u := &r.Units[i]
		for j := range u.Components {
			if strings.EqualFold(u.Components[j].Name, name) {
				refs = append(refs, ComponentRef{Unit: u.Path, Component: &u.Components[j]})
			}
		}
	}
	return refs
}

// ListComponents returns components whose name contains keyword,
// case-insensitively, sorted by name then unit. An empty keyword lists all.
func (r *Report) ListComponents(keyword string) []ComponentRef {
	keyword = strings.ToLower(keyword)
	var refs []ComponentRef
	for i := range r.Units {
		u := &r.Units[i]
		for j := range u.Components {
			c := &u.Components[j]
			if keyword == "" || strings.Contains(strings.ToLower(c.Name), keyword) {
				refs = append(refs, ComponentRef{Unit: u.Path, Component: c})
			}
		}
	}
	sort.SliceStable(refs, func(a, b int) bool {
		if refs[a].Component.Name != refs[b].Component.Name {
			return refs[a].Component.Name < refs[b].Component.Name
		}
		return refs[a].Unit < refs[b].Unit
	})
	return refs
}

// Failures returns the units that failed, in unit order.
func (r *Report) Failures() []Unit {
	var out []Unit
	for _, u := range r.Units {
		if u.Error != "" {
			out = append(out, u)
		}
	}
	return out
}
