package report

import (
	"time"

	"github.com/gnana997/propgen/pkg/locator"
	"github.com/gnana997/propgen/pkg/materialize"
	"github.com/gnana997/propgen/pkg/proptype"
	"github.com/gnana997/propgen/pkg/scanner"
)

// Report is the record of one generation run.
type Report struct {
	Tool        string             `json:"tool"`
	Version     string             `json:"version"`
	Root        string             `json:"root"`
	GeneratedAt time.Time          `json:"generated_at"`
	DryRun      bool               `json:"dry_run,omitempty"`
	Stats       scanner.Stats      `json:"stats"`
	Write       *materialize.Stats `json:"write,omitempty"`
	Units       []Unit             `json:"units"`
}

// Unit is one scanned source unit.
type Unit struct {
	Path         string         `json:"path"`
	Output       string         `json:"output,omitempty"`
	Written      bool           `json:"written,omitempty"`
	Removed      string         `json:"removed,omitempty"`
	Components   []Component    `json:"components,omitempty"`
	Skipped      []locator.Skip `json:"skipped,omitempty"`
	SyntaxErrors bool           `json:"syntax_errors,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// Component is a discovered component.
type Component struct {
	Name        string                `json:"name"`
	Location    string                `json:"location"`
	Kind        proptype.DeclKind     `json:"kind"`
	Default     bool                  `json:"default,omitempty"`
	Emitted     bool                  `json:"emitted"`
	Props       []Prop                `json:"props"`
	Truncations []proptype.Truncation `json:"truncations,omitempty"`
}

// Prop is a classified prop with its rendered validator.
type Prop struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Validator string `json:"validator"`
	Required  bool   `json:"required"`
}
