// Package locator finds the exported components of a compilation unit and
// extracts their classified props.
//
// Recognized shapes:
//
//	export function Button(props: ButtonProps) {}
//	export default function (props: CardProps) {}
//	export const Badge = (props: BadgeProps) => ...
//	export const Badge: FC<BadgeProps> = (props) => ...
//	export const Field = forwardRef<HTMLInputElement, FieldProps>((props, ref) => ...)
//	export class Panel<P extends PanelProps> extends Component<P> {}
//	export class Panel extends Component<PanelProps> {}
//	export { Button, Button as default }
//
// Discovery never logs; everything it decides is returned in a Discovery.
package locator

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/propgen/pkg/parser"
	"github.com/gnana997/propgen/pkg/parser/queries"
	"github.com/gnana997/propgen/pkg/props"
	"github.com/gnana997/propgen/pkg/proptype"
	"github.com/gnana997/propgen/pkg/resolver"
	"github.com/gnana997/propgen/pkg/typesys"
)

// Skip reasons.
const (
	ReasonNotComponent    = "not a component"
	ReasonTypeDeclaration = "type declaration"
	ReasonNoParameters    = "no parameters"
	ReasonNoPropsType     = "no props type parameter"
	ReasonReExport        = "re-export"
	ReasonUnresolved      = "unresolved local reference"
)

// Discovery is everything the locator decided about one unit.
type Discovery struct {
	Path       string               `json:"path"`
	Components []proptype.Component `json:"components"`
	Skipped    []Skip               `json:"skipped,omitempty"`
	// Declarations counts the exported names examined.
	Declarations int `json:"declarations"`
	// SyntaxErrors is set when the parse tree contains error nodes.
	SyntaxErrors bool `json:"syntaxErrors,omitempty"`
}

// Skip is an exported name that did not yield a component.
type Skip struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Options configures a Locator.
type Options struct {
	// MaxDepth bounds nested object recursion; see props.Options.
	MaxDepth int
}

// Locator discovers components. It is safe for concurrent use when the
// underlying managers are.
type Locator struct {
	parsers   *parser.ParserManager
	queries   *queries.QueryManager
	extractor *props.Extractor
}

// New creates a Locator.
func New(pm *parser.ParserManager, qm *queries.QueryManager, opts Options) *Locator {
	return &Locator{
		parsers:   pm,
		queries:   qm,
		extractor: props.New(props.Options{MaxDepth: opts.MaxDepth}),
	}
}

// Locate parses source as the unit at path and returns its components in
// export order.
func (l *Locator) Locate(path string, source []byte) (*Discovery, error) {
	lang := parser.DetectLanguage(path)
	isTSX := parser.IsTSXFile(path)

	tree, err := l.parsers.ParseFile(source, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	s := &scan{
		l:      l,
		unit:   resolver.NewUnit(path, source, root),
		path:   path,
		locals: make(map[string]local),
		disc:   &Discovery{Path: path, SyntaxErrors: root.HasError()},
	}

	declQuery, err := l.queries.GetQuery(lang, isTSX, queries.QueryTypeDeclarations)
	if err != nil {
		return nil, err
	}
	declMatches, err := l.queries.ExecuteQuery(tree, declQuery, source)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate declarations in %s: %w", path, err)
	}
	s.indexLocals(declMatches)

	exportQuery, err := l.queries.GetQuery(lang, isTSX, queries.QueryTypeExports)
	if err != nil {
		return nil, err
	}
	exportMatches, err := l.queries.ExecuteQuery(tree, exportQuery, source)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate exports in %s: %w", path, err)
	}

	var entries []entry
	for _, m := range exportMatches {
		if c, ok := m.Capture("export.statement"); ok {
			entries = append(entries, s.exportEntries(c.Node)...)
		}
	}
	for _, e := range entries {
		s.locate(e)
	}
	return s.disc, nil
}

// DefaultName is the name reported for an anonymous default export: the
// file's base name without extension, first letter upper-cased.
func DefaultName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	r, size := utf8.DecodeRuneInString(base)
	if r == utf8.RuneError {
		return base
	}
	return string(unicode.ToUpper(r)) + base[size:]
}

// local is a top-level value declaration an export can refer to.
type local struct {
	name       string
	node       *ts.Node
	annotation *ts.Node
}

// entry is one exported name awaiting analysis. node is nil for entries
// already known to be skipped.
type entry struct {
	exported   string
	isDefault  bool
	ownName    string
	node       *ts.Node
	annotation *ts.Node
	reason     string
}

type scan struct {
	l      *Locator
	unit   *resolver.Unit
	path   string
	locals map[string]local
	disc   *Discovery
}

func (s *scan) indexLocals(matches []queries.QueryMatch) {
	for _, m := range matches {
		for _, c := range m.Captures {
			if c.Field != "definition" {
				continue
			}
			s.addLocal(c.Node)
		}
	}
}

func (s *scan) addLocal(def *ts.Node) {
	name := s.unit.Text(def.ChildByFieldName("name"))
	if name == "" {
		return
	}
	switch def.Kind() {
	case "variable_declarator":
		value := def.ChildByFieldName("value")
		if value == nil {
			return
		}
		s.locals[name] = local{name: name, node: value, annotation: def.ChildByFieldName("type")}
	default:
		s.locals[name] = local{name: name, node: def}
	}
}

// exportEntries splits one export statement into its exported names. Local
// declarations made by the statement are indexed first so later clauses
// can refer to them.
func (s *scan) exportEntries(stmt *ts.Node) []entry {
	isDefault := findChild(stmt, "default") != nil

	if decl := stmt.ChildByFieldName("declaration"); decl != nil {
		return s.declarationEntries(decl, isDefault)
	}

	if value := stmt.ChildByFieldName("value"); value != nil {
		e := entry{exported: "default", isDefault: true}
		if value.Kind() == "identifier" {
			name := s.unit.Text(value)
			loc, ok := s.locals[name]
			if !ok {
				e.ownName = name
				e.reason = ReasonUnresolved
				return []entry{e}
			}
			e.ownName = loc.name
			e.node = loc.node
			e.annotation = loc.annotation
			return []entry{e}
		}
		e.node = value
		return []entry{e}
	}

	clause := findChild(stmt, "export_clause")
	if clause == nil {
		// export * from, export = x, export as namespace.
		return []entry{{exported: strings.TrimSpace(s.unit.Text(stmt)), reason: ReasonReExport}}
	}

	reExport := stmt.ChildByFieldName("source") != nil
	typeOnly := findChild(stmt, "type") != nil
	var out []entry
	for i := uint(0); i < clause.NamedChildCount(); i++ {
		spec := clause.NamedChild(i)
		if spec.Kind() != "export_specifier" {
			continue
		}
		name := s.unit.Text(spec.ChildByFieldName("name"))
		exported := name
		if alias := spec.ChildByFieldName("alias"); alias != nil {
			exported = s.unit.Text(alias)
		}
		e := entry{exported: exported, isDefault: exported == "default", ownName: name}
		switch loc, ok := s.locals[name]; {
		case reExport:
			e.reason = ReasonReExport
		case typeOnly || findChild(spec, "type") != nil:
			e.reason = ReasonTypeDeclaration
		case !ok:
			e.reason = ReasonUnresolved
		default:
			e.node = loc.node
			e.annotation = loc.annotation
		}
		out = append(out, e)
	}
	return out
}

func (s *scan) declarationEntries(decl *ts.Node, isDefault bool) []entry {
	name := s.unit.Text(decl.ChildByFieldName("name"))
	exported := name
	if isDefault {
		exported = "default"
	}

	switch decl.Kind() {
	case "function_declaration", "generator_function_declaration",
		"class_declaration", "abstract_class_declaration":
		if name != "" {
			s.locals[name] = local{name: name, node: decl}
		}
		return []entry{{exported: exported, isDefault: isDefault, ownName: name, node: decl}}

	case "lexical_declaration", "variable_declaration":
		var out []entry
		for i := uint(0); i < decl.NamedChildCount(); i++ {
			d := decl.NamedChild(i)
			if d.Kind() != "variable_declarator" {
				continue
			}
			s.addLocal(d)
			vname := s.unit.Text(d.ChildByFieldName("name"))
			e := entry{exported: vname, ownName: vname}
			if value := d.ChildByFieldName("value"); value != nil {
				e.node = value
				e.annotation = d.ChildByFieldName("type")
			} else {
				e.reason = ReasonNotComponent
			}
			out = append(out, e)
		}
		return out

	case "interface_declaration", "type_alias_declaration", "enum_declaration",
		"internal_module", "module", "ambient_declaration":
		if name == "" {
			name = strings.Fields(s.unit.Text(decl))[0]
		}
		return []entry{{exported: name, reason: ReasonTypeDeclaration}}

	default:
		return []entry{{exported: exported, isDefault: isDefault, ownName: name, node: decl}}
	}
}

func (s *scan) locate(e entry) {
	s.disc.Declarations++

	name := e.exported
	if e.isDefault {
		name = ""
	}
	if e.reason != "" {
		s.skip(s.displayName(name, e.ownName), e.reason)
		return
	}

	shape := s.analyze(e.node, e.annotation, 0)
	if shape.ownName != "" && e.ownName == "" {
		e.ownName = shape.ownName
	}
	display := s.displayName(name, e.ownName)
	if shape.reason != "" {
		s.skip(display, shape.reason)
		return
	}

	res := s.l.extractor.Walk(shape.props, true)
	pos := e.node.StartPosition()
	s.disc.Components = append(s.disc.Components, proptype.Component{
		Name:        display,
		Props:       res.Props,
		Location:    fmt.Sprintf("%s:%d:%d", s.path, pos.Row+1, pos.Column+1),
		Kind:        shape.kind,
		Default:     e.isDefault,
		Truncations: res.Truncations,
	})
}

// displayName resolves the public name. Default exports use the
// declaration's own name, then the file name.
func (s *scan) displayName(exported, ownName string) string {
	if exported != "" {
		return exported
	}
	if ownName != "" {
		return ownName
	}
	return DefaultName(s.path)
}

func (s *scan) skip(name, reason string) {
	s.disc.Skipped = append(s.disc.Skipped, Skip{Name: name, Reason: reason})
}

// shape is the analysis of one exported value.
type shape struct {
	kind    proptype.DeclKind
	ownName string
	props   typesys.Type
	reason  string
}

// maxWrapDepth bounds memo(forwardRef(...)) and identifier indirections.
const maxWrapDepth = 8

func (s *scan) analyze(node, annotation *ts.Node, depth int) shape {
	if node == nil || depth > maxWrapDepth {
		return shape{reason: ReasonNotComponent}
	}

	switch node.Kind() {
	case "function_declaration", "generator_function_declaration":
		return s.function(node, annotation, proptype.DeclFunction)
	case "function_expression", "function":
		return s.function(node, annotation, proptype.DeclFunctionEx)
	case "arrow_function":
		return s.function(node, annotation, proptype.DeclArrow)
	case "class_declaration", "abstract_class_declaration", "class":
		return s.class(node)
	case "call_expression":
		return s.wrapped(node, annotation, depth)
	case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression":
		inner := firstNamed(node)
		return s.analyze(inner, annotation, depth+1)
	case "identifier":
		loc, ok := s.locals[s.unit.Text(node)]
		if !ok {
			return shape{reason: ReasonUnresolved}
		}
		sh := s.analyze(loc.node, loc.annotation, depth+1)
		if sh.ownName == "" {
			sh.ownName = loc.name
		}
		return sh
	default:
		return shape{reason: ReasonNotComponent}
	}
}

func (s *scan) function(fn, annotation *ts.Node, kind proptype.DeclKind) shape {
	sh := shape{kind: kind}
	if nameNode := fn.ChildByFieldName("name"); nameNode != nil {
		sh.ownName = s.unit.Text(nameNode)
	}

	var param *ts.Node
	if p := fn.ChildByFieldName("parameter"); p != nil {
		// x => ... has a single untyped parameter.
		param = p
	} else if params := fn.ChildByFieldName("parameters"); params != nil {
		param = firstParameter(s.unit, params)
	}
	if param == nil {
		sh.reason = ReasonNoParameters
		return sh
	}

	var typeNode *ts.Node
	if param.Kind() == "required_parameter" || param.Kind() == "optional_parameter" {
		typeNode = param.ChildByFieldName("type")
	}
	switch {
	case typeNode != nil:
		sh.props = s.unit.TypeOf(typeNode)
	case annotation != nil:
		sh.props = s.annotatedProps(annotation)
	default:
		sh.props = s.unit.Unknown()
	}
	return sh
}

// componentTypes are the variable annotations whose first type argument is
// the props type.
var componentTypes = map[string]bool{
	"FC":                    true,
	"FunctionComponent":     true,
	"VFC":                   true,
	"VoidFunctionComponent": true,
}

func (s *scan) annotatedProps(annotation *ts.Node) typesys.Type {
	t := annotation
	if t.Kind() == "type_annotation" {
		t = firstNamed(t)
	}
	if t == nil || t.Kind() != "generic_type" {
		return s.unit.Unknown()
	}
	name := s.unit.Text(t.ChildByFieldName("name"))
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if !componentTypes[name] {
		return s.unit.Unknown()
	}
	args := typeArguments(t)
	if len(args) == 0 {
		return s.unit.Unknown()
	}
	return s.unit.TypeOf(args[0])
}

func (s *scan) class(node *ts.Node) shape {
	sh := shape{kind: proptype.DeclClass}
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		sh.ownName = s.unit.Text(nameNode)
	}

	if params := node.ChildByFieldName("type_parameters"); params != nil {
		for i := uint(0); i < params.NamedChildCount(); i++ {
			p := params.NamedChild(i)
			if p.Kind() != "type_parameter" {
				continue
			}
			if c := p.ChildByFieldName("constraint"); c != nil {
				sh.props = s.unit.TypeOf(c)
				return sh
			}
			break
		}
	}

	if heritage := findChild(node, "class_heritage"); heritage != nil {
		if ext := findChild(heritage, "extends_clause"); ext != nil {
			args := typeArguments(ext)
			if value := ext.ChildByFieldName("value"); len(args) == 0 && value != nil {
				// Some grammar versions read Component<P> as an
				// instantiation expression.
				args = typeArguments(value)
			}
			if len(args) > 0 {
				sh.props = s.unit.TypeOf(args[0])
				return sh
			}
		}
	}

	sh.reason = ReasonNoPropsType
	return sh
}

// wrapped handles memo(...) and forwardRef(...) around a component.
func (s *scan) wrapped(call, annotation *ts.Node, depth int) shape {
	callee := s.unit.Text(call.ChildByFieldName("function"))
	if i := strings.LastIndexByte(callee, '.'); i >= 0 {
		callee = callee[i+1:]
	}

	var kind proptype.DeclKind
	propsArg := 0
	switch callee {
	case "memo":
		kind = proptype.DeclMemo
	case "forwardRef":
		kind = proptype.DeclForwardRef
		propsArg = 1
	default:
		return shape{reason: ReasonNotComponent}
	}

	args := call.ChildByFieldName("arguments")
	if args == nil {
		return shape{reason: ReasonNotComponent}
	}
	inner := firstNamed(args)
	sh := s.analyze(inner, annotation, depth+1)
	if sh.reason == ReasonNotComponent || sh.reason == ReasonUnresolved {
		return sh
	}

	if explicit := typeArguments(call); len(explicit) > propsArg {
		sh.props = s.unit.TypeOf(explicit[propsArg])
		sh.reason = ""
	}
	sh.kind = kind
	return sh
}

func firstParameter(u *resolver.Unit, params *ts.Node) *ts.Node {
	for i := uint(0); i < params.NamedChildCount(); i++ {
		p := params.NamedChild(i)
		if p.Kind() == "comment" {
			continue
		}
		if p.Kind() == "required_parameter" {
			if pattern := p.ChildByFieldName("pattern"); pattern != nil && u.Text(pattern) == "this" {
				continue
			}
		}
		return p
	}
	return nil
}

// typeArguments lists the explicit type arguments of a generic type, call
// or extends clause.
func typeArguments(owner *ts.Node) []*ts.Node {
	args := owner.ChildByFieldName("type_arguments")
	if args == nil {
		args = findChild(owner, "type_arguments")
	}
	if args == nil {
		return nil
	}
	var out []*ts.Node
	for i := uint(0); i < args.NamedChildCount(); i++ {
		if c := args.NamedChild(i); c.Kind() != "comment" {
			out = append(out, c)
		}
	}
	return out
}

func firstNamed(node *ts.Node) *ts.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if c := node.NamedChild(i); c.Kind() != "comment" {
			return c
		}
	}
	return nil
}

func findChild(node *ts.Node, kind string) *ts.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		if c := node.Child(i); c.Kind() == kind {
			return c
		}
	}
	return nil
}
