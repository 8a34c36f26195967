package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	ts "github.com/tree-sitter/go-tree-sitter"
	ts_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	ts_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

// ErrUnsupportedFile is returned for paths whose extension has no grammar.
var ErrUnsupportedFile = errors.New("unsupported file extension")

// poolKey identifies a parser pool: TypeScript with and without JSX use
// different grammars.
type poolKey struct {
	lang  Language
	isTSX bool
}

// ParserManager hands out pooled tree-sitter parsers per grammar.
//
// Pools are created lazily on first use. The manager must be closed via
// Close; callers own the returned trees and must Close them.
//
//	pm := NewParserManager(logger)
//	defer pm.Close()
//
//	tree, err := pm.ParseFile(src, "src/button.tsx")
//	if err != nil {
//	    return err
//	}
//	defer tree.Close()
type ParserManager struct {
	pools map[poolKey]*parserPool
	mutex sync.RWMutex

	logger *slog.Logger

	parsesCalled int
}

// NewParserManager creates a ParserManager. A nil logger uses slog.Default().
func NewParserManager(logger *slog.Logger) *ParserManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParserManager{
		pools:  make(map[poolKey]*parserPool),
		logger: logger,
	}
}

// Probe parses an empty TypeScript unit to confirm the grammars load.
func (pm *ParserManager) Probe() error {
	tree, err := pm.Parse([]byte(""), LanguageTypeScript, true)
	if err != nil {
		return fmt.Errorf("typescript grammar unavailable: %w", err)
	}
	tree.Close()
	return nil
}

// Parse parses source with the grammar for lang. isTSX selects the TSX
// grammar and is ignored for JavaScript, whose grammar accepts JSX.
//
// Trees with syntax errors are still returned; tree-sitter recovers and the
// declarations around the error remain usable.
func (pm *ParserManager) Parse(source []byte, lang Language, isTSX bool) (*ts.Tree, error) {
	if lang == LanguageUnknown {
		return nil, fmt.Errorf("cannot parse unknown language")
	}
	if lang != LanguageTypeScript {
		isTSX = false
	}

	pm.mutex.Lock()
	pm.parsesCalled++
	pm.mutex.Unlock()

	pool, err := pm.getOrCreatePool(lang, isTSX)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool for %s: %w", lang, err)
	}

	parser, err := pool.acquire()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire parser: %w", err)
	}
	tree := parser.Parse(source, nil)
	pool.release(parser)

	if tree == nil {
		return nil, fmt.Errorf("parser returned nil tree")
	}

	if tree.RootNode().HasError() {
		pm.logger.Debug("parse tree contains errors", "language", lang.String(), "tsx", isTSX)
	}
	return tree, nil
}

// ParseFile detects the grammar from filePath and parses source.
func (pm *ParserManager) ParseFile(source []byte, filePath string) (*ts.Tree, error) {
	lang := DetectLanguage(filePath)
	if lang == LanguageUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filePath)
	}
	return pm.Parse(source, lang, IsTSXFile(filePath))
}

// Close releases every pooled parser. The manager is unusable afterwards.
func (pm *ParserManager) Close() error {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	created := 0
	for _, pool := range pm.pools {
		created += pool.getCreatedCount()
		pool.close()
	}
	pm.logger.Debug("closing ParserManager",
		"parsers_created", created,
		"parses_called", pm.parsesCalled)

	pm.pools = make(map[poolKey]*parserPool)
	return nil
}

// getOrCreatePool returns the pool for a grammar, creating it under the
// write lock with a double check.
func (pm *ParserManager) getOrCreatePool(lang Language, isTSX bool) (*parserPool, error) {
	key := poolKey{lang: lang, isTSX: isTSX}

	pm.mutex.RLock()
	pool, exists := pm.pools[key]
	pm.mutex.RUnlock()
	if exists {
		return pool, nil
	}

	pm.mutex.Lock()
	defer pm.mutex.Unlock()
	if pool, exists = pm.pools[key]; exists {
		return pool, nil
	}

	langPtr, err := pm.GetLanguagePointer(lang, isTSX)
	if err != nil {
		return nil, err
	}

	size := getDefaultPoolSize()
	pool = newParserPool(lang, langPtr, isTSX, size, pm.logger)
	pm.pools[key] = pool

	pm.logger.Debug("created parser pool",
		"language", lang.String(),
		"tsx", isTSX,
		"max_size", size)
	return pool, nil
}

// GetLanguagePointer returns the grammar pointer used to build parsers and
// compile queries.
func (pm *ParserManager) GetLanguagePointer(lang Language, isTSX bool) (unsafe.Pointer, error) {
	switch lang {
	case LanguageTypeScript:
		if isTSX {
			return ts_typescript.LanguageTSX(), nil
		}
		return ts_typescript.LanguageTypescript(), nil
	case LanguageJavaScript:
		return ts_javascript.Language(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang.String())
	}
}

// GetStats returns parser usage counters.
func (pm *ParserManager) GetStats() ParserStats {
	pm.mutex.RLock()
	defer pm.mutex.RUnlock()

	total := 0
	for _, pool := range pm.pools {
		total += pool.getCreatedCount()
	}
	return ParserStats{
		ParsersCreated: total,
		ParsesCalled:   pm.parsesCalled,
		Pools:          len(pm.pools),
	}
}

// ParserStats contains parser usage counters.
type ParserStats struct {
	ParsersCreated int
	ParsesCalled   int
	Pools          int
}
