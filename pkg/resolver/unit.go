// Package resolver answers type questions about one parsed TypeScript unit.
//
// It is a syntactic stand-in for a type checker: references to interfaces,
// type aliases, enums and classes declared in the same unit are followed,
// everything else (imports, globals it does not know, mapped or conditional
// types) resolves to an opaque type that classifies as any.
//
// Types handed out by a Unit hold tree-sitter nodes and are only valid while
// the tree the Unit was built from is open.
package resolver

import (
	"fmt"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/propgen/pkg/typesys"
)

// maxBuildDepth caps syntactic nesting followed while building one type.
const maxBuildDepth = 64

// Unit indexes the named type declarations of one compilation unit.
type Unit struct {
	path   string
	source []byte
	root   *ts.Node

	interfaces map[string][]*ts.Node
	aliases    map[string]*ts.Node
	enums      map[string]*ts.Node
	classes    map[string]*ts.Node
}

// NewUnit indexes the top-level declarations under root.
func NewUnit(path string, source []byte, root *ts.Node) *Unit {
	u := &Unit{
		path:       path,
		source:     source,
		root:       root,
		interfaces: make(map[string][]*ts.Node),
		aliases:    make(map[string]*ts.Node),
		enums:      make(map[string]*ts.Node),
		classes:    make(map[string]*ts.Node),
	}
	if root != nil {
		u.index(root)
	}
	return u
}

// Path returns the unit's file path.
func (u *Unit) Path() string { return u.path }

// Source returns the unit's source bytes.
func (u *Unit) Source() []byte { return u.source }

// Text returns the source text of node.
func (u *Unit) Text(node *ts.Node) string {
	if node == nil {
		return ""
	}
	return node.Utf8Text(u.source)
}

// TypeOf resolves a type node. It also accepts the type_annotation wrapper
// found on parameters and members. A nil node is the unknown type.
func (u *Unit) TypeOf(node *ts.Node) typesys.Type {
	if node == nil {
		return u.Unknown()
	}
	return u.build(node, newEnv())
}

// Named resolves a type name as if referenced at the top level of the unit.
func (u *Unit) Named(name string) typesys.Type {
	return u.resolveName(name, nil, newEnv())
}

// Unknown returns the opaque type used for untyped bindings.
func (u *Unit) Unknown() typesys.Type {
	return opaque("unknown")
}

func (u *Unit) index(root *ts.Node) {
	for i := uint(0); i < root.NamedChildCount(); i++ {
		child := root.NamedChild(i)
		switch child.Kind() {
		case "export_statement":
			if decl := child.ChildByFieldName("declaration"); decl != nil {
				u.register(decl)
			}
		case "ambient_declaration":
			for j := uint(0); j < child.NamedChildCount(); j++ {
				u.register(child.NamedChild(j))
			}
		default:
			u.register(child)
		}
	}
}

func (u *Unit) register(decl *ts.Node) {
	if decl == nil {
		return
	}
	nameNode := decl.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := u.Text(nameNode)

	switch decl.Kind() {
	case "interface_declaration":
		u.interfaces[name] = append(u.interfaces[name], decl)
	case "type_alias_declaration":
		u.aliases[name] = decl
	case "enum_declaration":
		u.enums[name] = decl
	case "class_declaration", "abstract_class_declaration":
		u.classes[name] = decl
	}
}

// declKey identifies a named declaration across lookups.
func (u *Unit) declKey(name string, decl *ts.Node) string {
	return fmt.Sprintf("%s#%s@%d", u.path, name, decl.StartByte())
}

// nodeKey identifies an anonymous type node.
func (u *Unit) nodeKey(node *ts.Node) string {
	return fmt.Sprintf("%s@%d-%d", u.path, node.StartByte(), node.EndByte())
}

// env carries the alias chain of the type being built so that alias cycles
// terminate.
type env struct {
	aliases map[uint]bool
	depth   int
}

func newEnv() *env {
	return &env{aliases: make(map[uint]bool)}
}

func (e *env) deeper() *env {
	return &env{aliases: e.aliases, depth: e.depth + 1}
}
