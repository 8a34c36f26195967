package proptype

import (
	"github.com/gnana997/propgen/pkg/typesys"
)

// Classify reduces a static type to its normalized variant. It is total:
// anything it cannot place is Any.
func Classify(t typesys.Type) Type {
	nt, _ := ClassifyMember(t)
	return nt
}

// ClassifyMember classifies t and additionally reports whether t admits
// undefined, which makes the member carrying it optional.
func ClassifyMember(t typesys.Type) (Type, bool) {
	if t == nil {
		return Any(), false
	}

	switch t.Text() {
	case "string":
		return PrimitiveOf(PrimitiveString), false
	case "number":
		return PrimitiveOf(PrimitiveNumber), false
	case "boolean":
		return PrimitiveOf(PrimitiveBoolean), false
	}

	if t.IsUnion() {
		return classifyUnion(t.UnionTypes())
	}

	switch {
	case t.IsArrayLike():
		return Array(), false
	case t.CallSignatures() > 0:
		return Function(), false
	case t.IsObject():
		return Object(), false
	}
	return Any(), false
}

func classifyUnion(members []typesys.Type) (Type, bool) {
	defined := make([]typesys.Type, 0, len(members))
	optional := false
	for _, m := range members {
		if m.IsUndefined() {
			optional = true
			continue
		}
		defined = append(defined, m)
	}

	if len(defined) == 1 {
		nt, _ := ClassifyMember(defined[0])
		return nt, optional
	}

	if values, ok := literalValues(defined); ok {
		if isBooleanPair(values) {
			return PrimitiveOf(PrimitiveBoolean), optional
		}
		return OneOf(values...), optional
	}

	types := make([]Type, 0, len(defined))
	for _, m := range defined {
		types = append(types, Classify(m))
	}
	return OneOfType(types...), optional
}

func literalValues(members []typesys.Type) ([]typesys.Literal, bool) {
	values := make([]typesys.Literal, 0, len(members))
	for _, m := range members {
		lit, ok := m.Literal()
		if !ok {
			return nil, false
		}
		values = append(values, lit)
	}
	return values, true
}

// isBooleanPair reports a literal set made of exactly true and false, the
// way a checker spells the boolean type inside a union.
func isBooleanPair(values []typesys.Literal) bool {
	var sawTrue, sawFalse bool
	for _, v := range values {
		if v.Kind != typesys.LiteralBool {
			return false
		}
		if v.Bool {
			sawTrue = true
		} else {
			sawFalse = true
		}
	}
	return sawTrue && sawFalse
}
