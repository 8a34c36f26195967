package resolver

import (
	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/propgen/pkg/typesys"
)

type form int

const (
	formOpaque form = iota
	formKeyword
	formUndefined
	formLiteral
	formUnion
	formArray
	formFunction
	formObject
)

// tsType is the typesys.Type implementation backed by syntax nodes.
type tsType struct {
	u       *Unit
	form    form
	text    string
	key     string
	literal typesys.Literal
	members []typesys.Type
	calls   int

	// bodies are the object_type / interface_body nodes contributing
	// members, in declaration order. Members are read lazily so recursive
	// interfaces never expand eagerly.
	bodies []*ts.Node
}

var _ typesys.Type = (*tsType)(nil)

func opaque(text string) *tsType {
	return &tsType{form: formOpaque, text: text, key: "opaque:" + text}
}

func keyword(text string) *tsType {
	return &tsType{form: formKeyword, text: text, key: "keyword:" + text}
}

func undefinedType() *tsType {
	return &tsType{form: formUndefined, text: "undefined", key: "keyword:undefined"}
}

func literalType(text string, lit typesys.Literal) *tsType {
	return &tsType{form: formLiteral, text: text, key: "literal:" + text, literal: lit}
}

func (t *tsType) Text() string { return t.text }

func (t *tsType) IsUnion() bool { return t.form == formUnion }

func (t *tsType) UnionTypes() []typesys.Type {
	if t.form != formUnion {
		return nil
	}
	return t.members
}

func (t *tsType) IsUndefined() bool { return t.form == formUndefined }

func (t *tsType) IsArrayLike() bool { return t.form == formArray }

func (t *tsType) CallSignatures() int { return t.calls }

func (t *tsType) IsObject() bool {
	return t.form == formObject || t.form == formFunction
}

func (t *tsType) Literal() (typesys.Literal, bool) {
	if t.form != formLiteral {
		return typesys.Literal{}, false
	}
	return t.literal, true
}

func (t *tsType) Key() string { return t.key }

// Properties reads the members of every contributing body. The first
// declaration of a name wins, so own members shadow inherited ones.
func (t *tsType) Properties() []typesys.Property {
	if len(t.bodies) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var out []typesys.Property
	for _, body := range t.bodies {
		for i := uint(0); i < body.NamedChildCount(); i++ {
			sig := body.NamedChild(i)
			prop, ok := t.u.member(sig)
			if !ok || seen[prop.Name] {
				continue
			}
			seen[prop.Name] = true
			out = append(out, prop)
		}
	}
	return out
}

// member converts a property or method signature into a Property.
func (u *Unit) member(sig *ts.Node) (typesys.Property, bool) {
	kind := sig.Kind()
	if kind != "property_signature" && kind != "method_signature" {
		return typesys.Property{}, false
	}
	name, ok := u.memberName(sig.ChildByFieldName("name"))
	if !ok {
		return typesys.Property{}, false
	}

	prop := typesys.Property{
		Name:     name,
		Optional: findChildByKind(sig, "?") != nil,
	}
	if kind == "method_signature" {
		prop.Type = &tsType{
			u:     u,
			form:  formFunction,
			text:  u.Text(sig),
			key:   u.nodeKey(sig),
			calls: 1,
		}
		return prop, true
	}

	if anno := sig.ChildByFieldName("type"); anno != nil {
		prop.Type = u.build(anno, newEnv())
	} else {
		prop.Type = u.Unknown()
	}
	return prop, true
}

func (u *Unit) memberName(node *ts.Node) (string, bool) {
	if node == nil {
		return "", false
	}
	switch node.Kind() {
	case "property_identifier", "identifier", "private_property_identifier":
		return u.Text(node), true
	case "string":
		return unquoteString(u.Text(node)), true
	case "number":
		lit, ok := parseNumber(u.Text(node))
		if !ok {
			return "", false
		}
		return lit.Source(), true
	default:
		// computed_property_name and friends need evaluation.
		return "", false
	}
}

func findChildByKind(node *ts.Node, kind string) *ts.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}
