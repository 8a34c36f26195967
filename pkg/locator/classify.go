package locator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gnana997/propgen/pkg/parser"
	"github.com/gnana997/propgen/pkg/proptype"
	"github.com/gnana997/propgen/pkg/resolver"
)

// ErrInvalidTypeExpression is returned by ClassifyType for text that does
// not parse as a single type.
var ErrInvalidTypeExpression = errors.New("invalid type expression")

// TypeInfo is the classification of a free-standing type expression.
type TypeInfo struct {
	Type     proptype.Type   `json:"type"`
	Optional bool            `json:"optional"`
	Props    []proptype.Prop `json:"props,omitempty"`
}

const exprAlias = "PropgenExpr"

// ClassifyType classifies a type expression. Declarations in prelude are
// visible to the expression, so `interface P { a: string }` + `P` works.
func (l *Locator) ClassifyType(prelude, expr string) (*TypeInfo, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidTypeExpression)
	}

	src := []byte(prelude + "\ntype " + exprAlias + " = " + expr + ";\n")
	tree, err := l.parsers.Parse(src, parser.LanguageTypeScript, false)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTypeExpression, expr)
	}

	unit := resolver.NewUnit("<expr>", src, root)
	t := unit.Named(exprAlias)
	nt, optional := proptype.ClassifyMember(t)

	info := &TypeInfo{Type: nt, Optional: optional}
	if nt.Kind == proptype.KindObject {
		info.Props = l.extractor.Walk(t, !optional).Props
	}
	return info, nil
}
