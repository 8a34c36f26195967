// Package typesys defines the queryable view of a resolved static type that the
// classifier and prop extractor work against. Implementations supply the type
// facts; nothing in this package parses source.
package typesys

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Type is a resolved static type.
type Type interface {
	// Text is the type's textual form, e.g. "string" or "'a' | 'b'".
	Text() string

	// IsUnion reports whether the type is a union; UnionTypes lists its
	// members flattened in declaration order.
	IsUnion() bool
	UnionTypes() []Type

	// IsUndefined reports whether the type is the undefined type.
	IsUndefined() bool

	// IsArrayLike reports array and tuple types.
	IsArrayLike() bool

	// CallSignatures returns the number of call signatures of the type.
	CallSignatures() int

	// IsObject reports whether the type is structurally an object.
	IsObject() bool

	// Properties lists the structural members in declaration order.
	Properties() []Property

	// Literal returns the literal value of a literal type.
	Literal() (Literal, bool)

	// Key identifies the declaration backing the type. Two Types with the
	// same key describe the same shape.
	Key() string
}

// Property is a structural member of an object type.
type Property struct {
	Name     string
	Optional bool
	Type     Type
}

// LiteralKind tags the value held by a Literal.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralBool
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralString:
		return "string"
	case LiteralNumber:
		return "number"
	case LiteralBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// Literal is the single value inhabiting a literal type.
type Literal struct {
	Kind   LiteralKind
	String string
	Number float64
	Bool   bool
}

// StringLiteral returns a string literal value.
func StringLiteral(s string) Literal { return Literal{Kind: LiteralString, String: s} }

// NumberLiteral returns a numeric literal value.
func NumberLiteral(n float64) Literal { return Literal{Kind: LiteralNumber, Number: n} }

// BoolLiteral returns a boolean literal value.
func BoolLiteral(b bool) Literal { return Literal{Kind: LiteralBool, Bool: b} }

// Source renders the literal as it would be written in a script: strings
// single-quoted and escaped, numbers in shortest decimal form.
func (l Literal) Source() string {
	switch l.Kind {
	case LiteralString:
		return quote(l.String)
	case LiteralNumber:
		return strconv.FormatFloat(l.Number, 'f', -1, 64)
	case LiteralBool:
		return strconv.FormatBool(l.Bool)
	default:
		return "undefined"
	}
}

// MarshalJSON encodes the bare value.
func (l Literal) MarshalJSON() ([]byte, error) {
	switch l.Kind {
	case LiteralString:
		return json.Marshal(l.String)
	case LiteralNumber:
		return json.Marshal(l.Number)
	default:
		return json.Marshal(l.Bool)
	}
}

func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
