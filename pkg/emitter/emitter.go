// Package emitter renders classified components as validator assignment
// blocks:
//
//	Button.propTypes = {
//	  label: PropTypes.string.isRequired,
//	  size: PropTypes.oneOf(['sm', 'md', 'lg']),
//	};
package emitter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gnana997/propgen/pkg/proptype"
	"github.com/gnana997/propgen/pkg/typesys"
)

const (
	DefaultValidator      = "PropTypes"
	DefaultRequiredMarker = "isRequired"
	DefaultSchemaField    = "propTypes"
	DefaultModule         = "prop-types"
)

// Options names the validator namespace and the tokens placed around it.
// Empty fields take the defaults above.
type Options struct {
	Validator      string
	RequiredMarker string
	SchemaField    string
	// Import is the full validator import statement. Empty renders
	// `import <Validator> from 'prop-types';`.
	Import string
}

// Emitter renders validator blocks. It holds no state beyond its options and
// is safe for concurrent use.
type Emitter struct {
	opts Options
}

// New returns an Emitter with defaults applied to opts.
func New(opts Options) *Emitter {
	if opts.Validator == "" {
		opts.Validator = DefaultValidator
	}
	if opts.RequiredMarker == "" {
		opts.RequiredMarker = DefaultRequiredMarker
	}
	if opts.SchemaField == "" {
		opts.SchemaField = DefaultSchemaField
	}
	return &Emitter{opts: opts}
}

// Options returns the effective options.
func (e *Emitter) Options() Options { return e.opts }

// Emit renders one component's block. An empty prop list renders a single
// empty line between the braces.
func (e *Emitter) Emit(c proptype.Component) string {
	var b strings.Builder
	b.WriteString(c.Name)
	b.WriteByte('.')
	b.WriteString(e.opts.SchemaField)
	b.WriteString(" = {\n")
	if len(c.Props) == 0 {
		b.WriteByte('\n')
	}
	for _, p := range c.Props {
		b.WriteString("  ")
		b.WriteString(propName(p.Name))
		b.WriteString(": ")
		b.WriteString(e.Prop(p))
		b.WriteString(",\n")
	}
	b.WriteString("};")
	return b.String()
}

// EmitUnit renders the blocks of one output unit, separated by blank lines,
// after header. The result ends with a newline.
func (e *Emitter) EmitUnit(header string, components []proptype.Component) string {
	var b strings.Builder
	if header != "" {
		b.WriteString(strings.TrimRight(header, "\n"))
		b.WriteString("\n\n")
	}
	for i, c := range components {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(e.Emit(c))
	}
	b.WriteByte('\n')
	return b.String()
}

// ImportLine returns the validator import statement.
func (e *Emitter) ImportLine() string {
	if e.opts.Import != "" {
		return e.opts.Import
	}
	return fmt.Sprintf("import %s from '%s';", e.opts.Validator, DefaultModule)
}

// BlockPrefix is the text that opens a component's block, used to find a
// previously generated block in a unit.
func (e *Emitter) BlockPrefix(name string) string {
	return name + "." + e.opts.SchemaField + " = {"
}

// Prop renders a prop's validator expression including the required marker.
func (e *Emitter) Prop(p proptype.Prop) string {
	expr := e.Type(p.Type)
	if p.Required {
		expr += "." + e.opts.RequiredMarker
	}
	return expr
}

// Type renders a normalized type without the required marker.
func (e *Emitter) Type(t proptype.Type) string {
	v := e.opts.Validator
	switch t.Kind {
	case proptype.KindPrimitive:
		if t.Primitive == proptype.PrimitiveBoolean {
			return v + ".bool"
		}
		return v + "." + string(t.Primitive)
	case proptype.KindArray:
		return v + ".array"
	case proptype.KindObject:
		return v + ".object"
	case proptype.KindFunction:
		return v + ".func"
	case proptype.KindAny:
		return v + ".any"
	case proptype.KindOneOf:
		return v + ".oneOf([" + literals(t.Values) + "])"
	case proptype.KindOneOfType:
		parts := make([]string, len(t.Types))
		for i, m := range t.Types {
			parts[i] = e.Type(m)
		}
		return v + ".oneOfType([" + strings.Join(parts, ", ") + "])"
	default:
		panic(fmt.Sprintf("emitter: unhandled kind %v", t.Kind))
	}
}

func literals(values []typesys.Literal) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.Source()
	}
	return strings.Join(parts, ", ")
}

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

func propName(name string) string {
	if identifier.MatchString(name) {
		return name
	}
	return typesys.StringLiteral(name).Source()
}
