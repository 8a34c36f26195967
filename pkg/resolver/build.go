package resolver

import (
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/propgen/pkg/typesys"
)

// objectGlobals are library types known to be plain object shapes. Their
// members are not tracked.
var objectGlobals = map[string]bool{
	"Date":     true,
	"RegExp":   true,
	"Map":      true,
	"Set":      true,
	"WeakMap":  true,
	"WeakSet":  true,
	"Promise":  true,
	"Error":    true,
	"Object":   true,
	"Function": true, // no call signatures of its own
	"Record":   true,
	"Partial":  true,
	"Required": true,
	"Pick":     true,
	"Omit":     true,
}

func (u *Unit) build(node *ts.Node, e *env) *tsType {
	if node == nil {
		return u.Unknown().(*tsType)
	}
	if e.depth > maxBuildDepth {
		return opaque(u.Text(node))
	}
	text := u.Text(node)

	switch node.Kind() {
	case "type_annotation", "opting_type_annotation", "omitting_type_annotation",
		"parenthesized_type", "constraint", "default_type":
		inner := firstNamedChild(node)
		if inner == nil {
			return opaque(text)
		}
		return u.build(inner, e.deeper())

	case "predefined_type":
		return u.predefined(text)

	case "literal_type":
		return u.literal(node)

	case "undefined":
		return undefinedType()

	case "union_type":
		return u.union(node, e)

	case "intersection_type":
		return u.intersection(node, e)

	case "array_type", "tuple_type":
		return &tsType{u: u, form: formArray, text: text, key: u.nodeKey(node)}

	case "readonly_type":
		inner := firstNamedChild(node)
		if inner == nil {
			return opaque(text)
		}
		return u.build(inner, e.deeper())

	case "function_type":
		return &tsType{u: u, form: formFunction, text: text, key: u.nodeKey(node), calls: 1}

	case "constructor_type":
		return &tsType{u: u, form: formObject, text: text, key: u.nodeKey(node)}

	case "object_type", "interface_body":
		return &tsType{
			u:      u,
			form:   formObject,
			text:   text,
			key:    u.nodeKey(node),
			calls:  countCallSignatures(node),
			bodies: []*ts.Node{node},
		}

	case "type_identifier", "identifier":
		if text == "undefined" {
			return undefinedType()
		}
		return u.resolveName(text, node, e)

	case "generic_type":
		return u.generic(node, e)

	default:
		// nested_type_identifier, type_query, lookup_type, conditional_type,
		// template_literal_type, index_type_query, infer_type, this_type.
		return opaque(text)
	}
}

func (u *Unit) predefined(text string) *tsType {
	switch text {
	case "undefined":
		return undefinedType()
	case "object":
		return &tsType{u: u, form: formObject, text: text, key: "keyword:object"}
	default:
		return keyword(text)
	}
}

func (u *Unit) literal(node *ts.Node) *tsType {
	text := u.Text(node)
	inner := firstNamedChild(node)
	if inner == nil {
		// Keyword-only literal types expose no named child in some grammar
		// versions.
		switch text {
		case "true":
			return literalType(text, typesys.BoolLiteral(true))
		case "false":
			return literalType(text, typesys.BoolLiteral(false))
		case "undefined":
			return undefinedType()
		}
		return opaque(text)
	}

	switch inner.Kind() {
	case "string":
		return literalType(text, typesys.StringLiteral(unquoteString(u.Text(inner))))
	case "number":
		if lit, ok := parseNumber(u.Text(inner)); ok {
			return literalType(text, lit)
		}
	case "unary_expression":
		if lit, ok := parseNumber(strings.ReplaceAll(u.Text(inner), " ", "")); ok {
			return literalType(text, lit)
		}
	case "true":
		return literalType(text, typesys.BoolLiteral(true))
	case "false":
		return literalType(text, typesys.BoolLiteral(false))
	case "undefined":
		return undefinedType()
	}
	// null and template strings are not literal values here.
	return opaque(text)
}

// union flattens nested and aliased unions into one member list.
func (u *Unit) union(node *ts.Node, e *env) *tsType {
	var members []typesys.Type
	for _, m := range flattenTypeList(node, "union_type") {
		t := u.build(m, e.deeper())
		if t.form == formUnion {
			members = append(members, t.members...)
			continue
		}
		members = append(members, t)
	}
	return &tsType{
		u:       u,
		form:    formUnion,
		text:    u.Text(node),
		key:     u.nodeKey(node),
		members: expandBoolean(members),
	}
}

// expandBoolean spells boolean as true | false when every other defined
// member is a literal, the way a checker normalizes such unions.
func expandBoolean(members []typesys.Type) []typesys.Type {
	hasBoolean := false
	for _, m := range members {
		t := m.(*tsType)
		switch {
		case t.form == formKeyword && t.text == "boolean":
			hasBoolean = true
		case t.form == formLiteral, t.form == formUndefined:
		default:
			return members
		}
	}
	if !hasBoolean {
		return members
	}
	out := make([]typesys.Type, 0, len(members)+1)
	for _, m := range members {
		t := m.(*tsType)
		if t.form == formKeyword && t.text == "boolean" {
			out = append(out,
				literalType("true", typesys.BoolLiteral(true)),
				literalType("false", typesys.BoolLiteral(false)))
			continue
		}
		out = append(out, m)
	}
	return out
}

// intersection merges object parts. Unresolvable references contribute no
// members but keep the result an object; a primitive part makes the whole
// intersection opaque.
func (u *Unit) intersection(node *ts.Node, e *env) *tsType {
	out := &tsType{u: u, form: formObject, text: u.Text(node), key: u.nodeKey(node)}
	sawObject := false
	for _, m := range flattenTypeList(node, "intersection_type") {
		t := u.build(m, e.deeper())
		switch t.form {
		case formObject, formFunction:
			sawObject = true
			out.calls += t.calls
			out.bodies = append(out.bodies, t.bodies...)
		case formOpaque:
		default:
			return opaque(out.text)
		}
	}
	if !sawObject {
		return opaque(out.text)
	}
	if out.calls > 0 {
		out.form = formFunction
	}
	return out
}

func (u *Unit) generic(node *ts.Node, e *env) *tsType {
	text := u.Text(node)
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = firstNamedChild(node)
	}
	if nameNode == nil || nameNode.Kind() != "type_identifier" {
		return opaque(text)
	}
	name := u.Text(nameNode)
	if name == "Array" || name == "ReadonlyArray" {
		return &tsType{u: u, form: formArray, text: text, key: u.nodeKey(node)}
	}
	t := u.resolveName(name, nameNode, e)
	if t.form == formOpaque {
		return opaque(text)
	}
	return t
}

// resolveName follows a type name: type parameters in scope first, then the
// unit's declarations, then the known library object types.
func (u *Unit) resolveName(name string, ref *ts.Node, e *env) *tsType {
	if ref != nil {
		if param, ok := findTypeParameter(ref, name, u.source); ok {
			constraint := param.ChildByFieldName("constraint")
			if constraint == nil {
				return opaque(name)
			}
			return u.build(constraint, e.deeper())
		}
	}

	if decls, ok := u.interfaces[name]; ok {
		return u.interfaceType(name, decls, e)
	}
	if decl, ok := u.aliases[name]; ok {
		return u.aliasType(name, decl, e)
	}
	if decl, ok := u.enums[name]; ok {
		return u.enumType(name, decl)
	}
	if decl, ok := u.classes[name]; ok {
		return &tsType{u: u, form: formObject, text: name, key: u.declKey(name, decl)}
	}
	if objectGlobals[name] {
		return &tsType{u: u, form: formObject, text: name, key: "global:" + name}
	}
	return opaque(name)
}

func (u *Unit) aliasType(name string, decl *ts.Node, e *env) *tsType {
	start := decl.StartByte()
	if e.aliases[start] {
		return opaque(name)
	}
	value := decl.ChildByFieldName("value")
	if value == nil {
		return opaque(name)
	}
	e.aliases[start] = true
	defer delete(e.aliases, start)
	return u.build(value, e.deeper())
}

func (u *Unit) interfaceType(name string, decls []*ts.Node, e *env) *tsType {
	t := &tsType{u: u, form: formObject, text: name, key: u.declKey(name, decls[0])}
	visited := map[string]bool{name: true}
	u.collectInterface(t, decls, visited, e)
	if t.calls > 0 {
		t.form = formFunction
	}
	return t
}

// collectInterface appends the bodies of decls and then of their local base
// interfaces, depth first.
func (u *Unit) collectInterface(t *tsType, decls []*ts.Node, visited map[string]bool, e *env) {
	var bases []*ts.Node
	for _, decl := range decls {
		body := decl.ChildByFieldName("body")
		if body != nil {
			t.bodies = append(t.bodies, body)
			t.calls += countCallSignatures(body)
		}
		if clause := findChildByKind(decl, "extends_type_clause"); clause != nil {
			for i := uint(0); i < clause.NamedChildCount(); i++ {
				bases = append(bases, clause.NamedChild(i))
			}
		}
	}

	for _, base := range bases {
		baseName := u.Text(base)
		if base.Kind() == "generic_type" {
			if n := base.ChildByFieldName("name"); n != nil {
				baseName = u.Text(n)
			}
		}
		if visited[baseName] {
			continue
		}
		visited[baseName] = true

		if baseDecls, ok := u.interfaces[baseName]; ok {
			u.collectInterface(t, baseDecls, visited, e)
			continue
		}
		if alias, ok := u.aliases[baseName]; ok {
			bt := u.aliasType(baseName, alias, e)
			t.bodies = append(t.bodies, bt.bodies...)
			t.calls += bt.calls
		}
	}
}

// enumType spells an enum as the union of its member values. Enums with
// computed members stay opaque.
func (u *Unit) enumType(name string, decl *ts.Node) *tsType {
	body := decl.ChildByFieldName("body")
	if body == nil {
		return opaque(name)
	}
	var members []typesys.Type
	next := 0.0
	for i := uint(0); i < body.NamedChildCount(); i++ {
		m := body.NamedChild(i)
		switch m.Kind() {
		case "property_identifier", "string":
			members = append(members, numberMember(next))
			next++
		case "enum_assignment":
			value := m.ChildByFieldName("value")
			if value == nil {
				return opaque(name)
			}
			valueText := u.Text(value)
			switch value.Kind() {
			case "string":
				s := unquoteString(valueText)
				members = append(members, literalType(valueText, typesys.StringLiteral(s)))
			case "number", "unary_expression":
				lit, ok := parseNumber(strings.ReplaceAll(valueText, " ", ""))
				if !ok {
					return opaque(name)
				}
				members = append(members, literalType(valueText, lit))
				next = lit.Number + 1
			default:
				return opaque(name)
			}
		}
	}
	if len(members) == 0 {
		return opaque(name)
	}
	return &tsType{u: u, form: formUnion, text: name, key: u.declKey(name, decl), members: members}
}

func numberMember(n float64) *tsType {
	lit := typesys.NumberLiteral(n)
	return literalType(lit.Source(), lit)
}

// flattenTypeList collects the operands of a left-nested binary type node
// such as a | b | c.
func flattenTypeList(node *ts.Node, kind string) []*ts.Node {
	if node.Kind() != kind {
		return []*ts.Node{node}
	}
	var out []*ts.Node
	for i := uint(0); i < node.NamedChildCount(); i++ {
		out = append(out, flattenTypeList(node.NamedChild(i), kind)...)
	}
	return out
}

func countCallSignatures(body *ts.Node) int {
	n := 0
	for i := uint(0); i < body.NamedChildCount(); i++ {
		if body.NamedChild(i).Kind() == "call_signature" {
			n++
		}
	}
	return n
}

func firstNamedChild(node *ts.Node) *ts.Node {
	if node.NamedChildCount() == 0 {
		return nil
	}
	return node.NamedChild(0)
}

// typeParameterOwners are the nodes that can declare type parameters.
var typeParameterOwners = map[string]bool{
	"function_declaration":           true,
	"function_expression":            true,
	"function":                       true,
	"generator_function_declaration": true,
	"arrow_function":                 true,
	"method_definition":              true,
	"method_signature":               true,
	"class_declaration":              true,
	"abstract_class_declaration":     true,
	"class":                          true,
	"interface_declaration":          true,
	"type_alias_declaration":         true,
	"function_type":                  true,
	"call_signature":                 true,
}

// findTypeParameter walks up from ref looking for a type parameter named
// name declared by an enclosing declaration.
func findTypeParameter(ref *ts.Node, name string, source []byte) (*ts.Node, bool) {
	for n := ref.Parent(); n != nil; n = n.Parent() {
		if !typeParameterOwners[n.Kind()] {
			continue
		}
		params := n.ChildByFieldName("type_parameters")
		if params == nil {
			continue
		}
		for i := uint(0); i < params.NamedChildCount(); i++ {
			p := params.NamedChild(i)
			if p.Kind() != "type_parameter" {
				continue
			}
			if pn := p.ChildByFieldName("name"); pn != nil && pn.Utf8Text(source) == name {
				return p, true
			}
		}
	}
	return nil, false
}
