// Package query assembles multi-entity read views over the index: symbol
// context bundles, impact analysis, combined search, file summaries, and
// the import graph. Everything here is a pure read.
package query

import (
	"os"
	"path/filepath"
	"strings"

	"codeindex/internal/storage"
)

const (
	callerLimit  = 30
	siblingLimit = 20
)

// Engine answers relationship questions against a populated index.
type Engine struct {
	db *storage.DB

	// projectRoot is needed to read symbol source off disk; empty disables
	// inline source.
	projectRoot string

	// inlineSourceThreshold attaches the symbol's source text to context
	// results when its span is at most this many lines. Zero disables it.
	inlineSourceThreshold int
}

// New creates a query engine over the store.
func New(db *storage.DB) *Engine {
	return &Engine{db: db}
}

// WithInlineSource enables attaching symbol source text to context results
// for symbols spanning at most threshold lines.
func (e *Engine) WithInlineSource(projectRoot string, threshold int) *Engine {
	e.projectRoot = projectRoot
	e.inlineSourceThreshold = threshold
	return e
}

// Callee is one outgoing call, tagged with a receiver category.
type Callee struct {
	CalleeExpr string `json:"callee_expr"`
	Line       int    `json:"line"`
	Category   string `json:"category"`
}

// SymbolContext bundles everything the index knows about one symbol.
type SymbolContext struct {
	Symbol      *storage.Symbol      `json:"symbol"`
	Source      string               `json:"source,omitempty"`
	Callers     []storage.CallerInfo `json:"callers"`
	Callees     []Callee             `json:"callees"`
	Refs        []storage.Ref        `json:"refs"`
	Annotations []storage.Annotation `json:"annotations"`
	Diagnostics []storage.Diagnostic `json:"diagnostics"`
	Siblings    []storage.Symbol     `json:"siblings"`
}

// Found reports whether the context resolved to a symbol.
func (c *SymbolContext) Found() bool {
	return c.Symbol != nil
}

// GetContext resolves a symbol by exact name first, falling back to a
// substring match, and gathers its callers, callees, references,
// annotations, in-range diagnostics, and siblings. Multiple exact matches
// resolve to the first ordered by file path then line.
func (e *Engine) GetContext(name, kind string) (*SymbolContext, error) {
	ctx := &SymbolContext{}

	sym, err := e.resolveSymbol(name, kind)
	if err != nil {
		return nil, err
	}
	if sym == nil {
		return ctx, nil
	}
	ctx.Symbol = sym

	ctx.Callers, err = e.db.Callers(name, callerLimit)
	if err != nil {
		return nil, err
	}

	callees, err := e.db.CalleesOf(sym.ID)
	if err != nil {
		return nil, err
	}
	ctx.Callees = categorizeCallees(callees)

	ctx.Refs, err = e.db.RefsOfSymbol(sym.ID)
	if err != nil {
		return nil, err
	}

	ctx.Annotations, err = e.db.AnnotationsFor(sym.Name, "")
	if err != nil {
		return nil, err
	}

	ctx.Diagnostics, err = e.db.UnresolvedForRange(sym.FileID, sym.LineStart, sym.LineEnd)
	if err != nil {
		return nil, err
	}

	if sym.ParentID != nil {
		ctx.Siblings, err = e.db.Siblings(*sym.ParentID, sym.ID, siblingLimit)
		if err != nil {
			return nil, err
		}
	}

	if e.inlineSourceThreshold > 0 && sym.LineEnd-sym.LineStart+1 <= e.inlineSourceThreshold {
		// Best effort: a read failure just omits the text.
		ctx.Source = e.readSource(sym)
	}

	return ctx, nil
}

// resolveSymbol finds the best symbol row for a name: exact match first,
// then substring.
func (e *Engine) resolveSymbol(name, kind string) (*storage.Symbol, error) {
	exact, err := e.db.FindSymbolsExact(name, kind, 1)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return &exact[0], nil
	}

	fuzzy, err := e.db.FindSymbols(storage.SymbolFilter{Name: name, Kind: kind, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(fuzzy) > 0 {
		return &fuzzy[0], nil
	}
	return nil, nil
}

func (e *Engine) readSource(sym *storage.Symbol) string {
	if e.projectRoot == "" || sym.File == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(e.projectRoot, filepath.FromSlash(sym.File)))
	if err != nil {
		return ""
	}
	lines := strings.Split(string(data), "\n")
	start, end := sym.LineStart, sym.LineEnd
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
