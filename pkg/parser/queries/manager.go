// Package queries compiles, caches and runs the tree-sitter queries that
// enumerate a unit's top-level declarations.
package queries

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/gnana997/propgen/pkg/parser"
	"github.com/gnana997/propgen/pkg/parser/queries/declarations"
	"github.com/gnana997/propgen/pkg/parser/queries/exports"
)

// QueryType selects a query.
type QueryType int

const (
	// QueryTypeExports matches top-level export statements.
	QueryTypeExports QueryType = iota
	// QueryTypeDeclarations matches top-level function, variable and class
	// declarations.
	QueryTypeDeclarations
)

func (qt QueryType) String() string {
	switch qt {
	case QueryTypeExports:
		return "exports"
	case QueryTypeDeclarations:
		return "declarations"
	default:
		return "unknown"
	}
}

// queryKey identifies a compiled query. TS and TSX are distinct grammars
// and need their own compiled copies.
type queryKey struct {
	lang  parser.Language
	isTSX bool
	qtype QueryType
}

// QueryManager compiles queries lazily and caches them per grammar.
//
//	qm := NewQueryManager(pm, logger)
//	defer qm.Close()
//
//	q, err := qm.GetQuery(parser.LanguageTypeScript, true, QueryTypeExports)
//	matches, err := qm.ExecuteQuery(tree, q, source)
type QueryManager struct {
	parserManager *parser.ParserManager
	cache         map[queryKey]*ts.Query
	mutex         sync.RWMutex
	logger        *slog.Logger
}

// NewQueryManager creates a query manager. A nil logger uses slog.Default().
func NewQueryManager(pm *parser.ParserManager, logger *slog.Logger) *QueryManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryManager{
		parserManager: pm,
		cache:         make(map[queryKey]*ts.Query),
		logger:        logger,
	}
}

// GetQuery returns the compiled query for a grammar, compiling it on first
// use. isTSX is ignored for JavaScript.
func (qm *QueryManager) GetQuery(lang parser.Language, isTSX bool, qtype QueryType) (*ts.Query, error) {
	if lang != parser.LanguageTypeScript {
		isTSX = false
	}
	key := queryKey{lang: lang, isTSX: isTSX, qtype: qtype}

	qm.mutex.RLock()
	query, exists := qm.cache[key]
	qm.mutex.RUnlock()
	if exists {
		return query, nil
	}

	qm.mutex.Lock()
	defer qm.mutex.Unlock()
	if query, exists = qm.cache[key]; exists {
		return query, nil
	}

	queryString, err := queryString(lang, qtype)
	if err != nil {
		return nil, err
	}

	langPtr, err := qm.parserManager.GetLanguagePointer(lang, isTSX)
	if err != nil {
		return nil, fmt.Errorf("failed to get language pointer for %s: %w", lang, err)
	}

	query, qerr := ts.NewQuery(ts.NewLanguage(langPtr), queryString)
	if qerr != nil {
		return nil, fmt.Errorf("failed to compile %s query for %s: %s", qtype, lang, qerr.Message)
	}
	qm.cache[key] = query

	qm.logger.Debug("compiled query",
		"language", lang.String(),
		"tsx", isTSX,
		"type", qtype.String())
	return query, nil
}

func queryString(lang parser.Language, qtype QueryType) (string, error) {
	switch qtype {
	case QueryTypeExports:
		switch lang {
		case parser.LanguageTypeScript:
			return exports.TSQueries, nil
		case parser.LanguageJavaScript:
			return exports.JSQueries, nil
		}
	case QueryTypeDeclarations:
		switch lang {
		case parser.LanguageTypeScript:
			return declarations.TSQueries, nil
		case parser.LanguageJavaScript:
			return declarations.JSQueries, nil
		}
	default:
		return "", fmt.Errorf("unknown query type: %d", qtype)
	}
	return "", fmt.Errorf("unsupported language for %s queries: %s", qtype, lang)
}

// ExecuteQuery runs query over tree and returns every match in document
// order. Captured nodes stay valid while tree is open.
func (qm *QueryManager) ExecuteQuery(tree *ts.Tree, query *ts.Query, source []byte) ([]QueryMatch, error) {
	if tree == nil {
		return nil, fmt.Errorf("tree is nil")
	}
	if query == nil {
		return nil, fmt.Errorf("query is nil")
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	captureNames := query.CaptureNames()
	iter := cursor.Matches(query, tree.RootNode(), source)

	var matches []QueryMatch
	for {
		match := iter.Next()
		if match == nil {
			break
		}

		captures := make([]QueryCapture, 0, len(match.Captures))
		for _, capture := range match.Captures {
			var name string
			if int(capture.Index) < len(captureNames) {
				name = captureNames[capture.Index]
			}
			category, field := parseCaptureName(name)
			node := capture.Node
			captures = append(captures, QueryCapture{
				Name:     name,
				Category: category,
				Field:    field,
				Node:     &node,
				Text:     node.Utf8Text(source),
				Location: nodeLocation(&node),
			})
		}

		matches = append(matches, QueryMatch{
			PatternIndex: uint32(match.PatternIndex),
			Captures:     captures,
		})
	}
	return matches, nil
}

// Close releases all compiled queries.
func (qm *QueryManager) Close() error {
	qm.mutex.Lock()
	defer qm.mutex.Unlock()

	qm.logger.Debug("closing QueryManager", "queries_compiled", len(qm.cache))
	for key, query := range qm.cache {
		if query != nil {
			query.Close()
		}
		delete(qm.cache, key)
	}
	return nil
}

// QueryMatch is one pattern match.
type QueryMatch struct {
	PatternIndex uint32
	Captures     []QueryCapture
}

// Capture returns the first capture named name.
func (m QueryMatch) Capture(name string) (QueryCapture, bool) {
	for _, c := range m.Captures {
		if c.Name == name {
			return c, true
		}
	}
	return QueryCapture{}, false
}

// QueryCapture is one captured node. Name "function.name" splits into
// Category "function" and Field "name".
type QueryCapture struct {
	Name     string
	Category string
	Field    string
	Node     *ts.Node
	Text     string
	Location Location
}

// Location is a node position: 1-based lines and columns, 0-based bytes.
type Location struct {
	StartLine   uint32
	StartColumn uint32
	EndLine     uint32
	EndColumn   uint32
	StartByte   uint32
	EndByte     uint32
}

func parseCaptureName(name string) (category, field string) {
	parts := strings.SplitN(name, ".", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return name, ""
}

func nodeLocation(node *ts.Node) Location {
	start := node.StartPosition()
	end := node.EndPosition()
	return Location{
		StartLine:   uint32(start.Row + 1),
		StartColumn: uint32(start.Column + 1),
		EndLine:     uint32(end.Row + 1),
		EndColumn:   uint32(end.Column + 1),
		StartByte:   uint32(node.StartByte()),
		EndByte:     uint32(node.EndByte()),
	}
}
