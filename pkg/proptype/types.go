// Package proptype holds the normalized prop type vocabulary, the classifier
// that reduces static types into it, and the component records built from it.
package proptype

import (
	"fmt"
	"strings"

	"github.com/gnana997/propgen/pkg/typesys"
)

// Kind tags a normalized type.
type Kind int

const (
	KindAny Kind = iota
	KindPrimitive
	KindArray
	KindObject
	KindFunction
	KindOneOf
	KindOneOfType
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindPrimitive:
		return "primitive"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	case KindOneOf:
		return "oneOf"
	case KindOneOfType:
		return "oneOfType"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Primitive names the runtime-checkable primitive types.
type Primitive string

const (
	PrimitiveString  Primitive = "string"
	PrimitiveNumber  Primitive = "number"
	PrimitiveBoolean Primitive = "boolean"
)

// Type is a normalized prop type. Only the fields matching Kind are set:
// Primitive for KindPrimitive, Values for KindOneOf, Types for KindOneOfType.
type Type struct {
	Kind      Kind              `json:"kind"`
	Primitive Primitive         `json:"primitive,omitempty"`
	Values    []typesys.Literal `json:"values,omitempty"`
	Types     []Type            `json:"types,omitempty"`
}

// Any is the fallback for unclassifiable types.
func Any() Type { return Type{Kind: KindAny} }

// Array is a sequence of any element type.
func Array() Type { return Type{Kind: KindArray} }

// Object is a structured shape.
func Object() Type { return Type{Kind: KindObject} }

// Function is any callable.
func Function() Type { return Type{Kind: KindFunction} }

// PrimitiveOf returns the primitive variant for name.
func PrimitiveOf(name Primitive) Type { return Type{Kind: KindPrimitive, Primitive: name} }

// OneOf returns an enumeration of literal values. An empty list yields Any.
func OneOf(values ...typesys.Literal) Type {
	if len(values) == 0 {
		return Any()
	}
	return Type{Kind: KindOneOf, Values: values}
}

// OneOfType returns a union of normalized types. An empty list yields Any.
func OneOfType(types ...Type) Type {
	if len(types) == 0 {
		return Any()
	}
	return Type{Kind: KindOneOfType, Types: types}
}

// String renders the variant for logs and inspection output.
func (t Type) String() string {
	switch t.Kind {
	case KindPrimitive:
		return string(t.Primitive)
	case KindAny, KindArray, KindObject, KindFunction:
		return t.Kind.String()
	case KindOneOf:
		parts := make([]string, len(t.Values))
		for i, v := range t.Values {
			parts[i] = v.Source()
		}
		return "oneOf(" + strings.Join(parts, " | ") + ")"
	case KindOneOfType:
		parts := make([]string, len(t.Types))
		for i, m := range t.Types {
			parts[i] = m.String()
		}
		return "oneOfType(" + strings.Join(parts, " | ") + ")"
	default:
		panic(fmt.Sprintf("proptype: unhandled kind %v", t.Kind))
	}
}

// Prop is one classified member of a component's input shape.
type Prop struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Required bool   `json:"required"`
}

// DeclKind describes how a component was declared.
type DeclKind string

const (
	DeclFunction   DeclKind = "function"
	DeclArrow      DeclKind = "arrow"
	DeclFunctionEx DeclKind = "functionExpression"
	DeclClass      DeclKind = "class"
	DeclMemo       DeclKind = "memo"
	DeclForwardRef DeclKind = "forwardRef"
)

// Truncation records a nested shape the extractor stopped descending into.
type Truncation struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Component is a discovered exported component and its flattened props.
type Component struct {
	Name        string       `json:"name"`
	Props       []Prop       `json:"props"`
	Location    string       `json:"location"`
	Kind        DeclKind     `json:"kind"`
	Default     bool         `json:"default,omitempty"`
	Truncations []Truncation `json:"truncations,omitempty"`
}
