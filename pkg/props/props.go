// Package props walks a component's declared input shape and produces one
// classified prop per member, flattening nested object members after their
// parent.
package props

import (
	"fmt"

	"github.com/gnana997/propgen/pkg/proptype"
	"github.com/gnana997/propgen/pkg/typesys"
)

// DefaultMaxDepth bounds how many object levels below the root are walked.
const DefaultMaxDepth = 20

const (
	ReasonDepthExceeded = "depth-exceeded"
	ReasonCycle         = "cycle"
)

// Options configures an Extractor.
type Options struct {
	// MaxDepth is the number of nested object levels walked below the root.
	// Zero means DefaultMaxDepth.
	MaxDepth int
}

// Result is the outcome of one walk.
type Result struct {
	Props       []proptype.Prop
	Truncations []proptype.Truncation
}

// Extractor flattens object types into prop lists.
type Extractor struct {
	maxDepth int
}

// New creates an Extractor.
func New(opts Options) *Extractor {
	depth := opts.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	return &Extractor{maxDepth: depth}
}

// Extract walks root with the default options, treating the root as required.
func Extract(root typesys.Type) []proptype.Prop {
	return New(Options{}).Walk(root, true).Props
}

// Walk enumerates root's members. A member is required only when it is not
// optional, does not admit undefined, and parentRequired holds.
func (e *Extractor) Walk(root typesys.Type, parentRequired bool) Result {
	var res Result
	if root == nil {
		return res
	}
	w := walker{
		maxDepth: e.maxDepth,
		visiting: map[string]bool{root.Key(): true},
		res:      &res,
	}
	w.members(root, parentRequired, "", 0)
	return res
}

type walker struct {
	maxDepth int
	visiting map[string]bool
	res      *Result
}

func (w *walker) members(t typesys.Type, parentRequired bool, path string, depth int) {
	for _, p := range t.Properties() {
		nt, admitsUndefined := proptype.ClassifyMember(p.Type)
		required := !p.Optional && !admitsUndefined && parentRequired

		w.res.Props = append(w.res.Props, proptype.Prop{
			Name:     p.Name,
			Type:     nt,
			Required: required,
		})

		if nt.Kind != proptype.KindObject {
			continue
		}

		memberPath := joinPath(path, p.Name)
		shape := objectShape(p.Type)
		key := shape.Key()

		switch {
		case depth+1 > w.maxDepth:
			w.truncate(memberPath, fmt.Sprintf("%s (max %d)", ReasonDepthExceeded, w.maxDepth))
			continue
		case w.visiting[key]:
			w.truncate(memberPath, ReasonCycle)
			continue
		}

		w.visiting[key] = true
		w.members(shape, required, memberPath, depth+1)
		delete(w.visiting, key)
	}
}

func (w *walker) truncate(path, reason string) {
	w.res.Truncations = append(w.res.Truncations, proptype.Truncation{Path: path, Reason: reason})
}

// objectShape returns the member type that actually carries the object
// members: for `T | undefined` that is T.
func objectShape(t typesys.Type) typesys.Type {
	if !t.IsUnion() {
		return t
	}
	for _, m := range t.UnionTypes() {
		if !m.IsUndefined() {
			return m
		}
	}
	return t
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
