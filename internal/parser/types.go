// Package parser turns source text into symbols, calls, refs, and imports.
// One implementation per language, selected by file extension through the
// Registry. Results carry only per-file local indices; the indexer resolves
// them to database IDs after insertion.
package parser

import "context"

// NoParent marks a symbol, call, or ref with no enclosing symbol.
const NoParent = -1

// Param describes one function parameter.
type Param struct {
	Name    string `json:"name"`
	Type    string `json:"type,omitempty"`
	Default string `json:"default,omitempty"`
}

// Symbol is one extracted code unit. LocalID is the symbol's position in
// Result.Symbols; ParentLocal points at the enclosing symbol the same way,
// or NoParent at module level. Neither survives past indexing.
type Symbol struct {
	LocalID     int
	ParentLocal int
	Kind        string // "class", "function", "method"
	Name        string
	Params      []Param
	ReturnType  string
	Decorators  []string
	Bases       []string
	Docstring   string
	LineStart   int
	LineEnd     int
	Complexity  int
	IsAsync     bool
}

// Call is one call site. CalleeExpr is the raw source text of the call
// target, never a resolved reference.
type Call struct {
	CallerLocal int
	CalleeExpr  string
	Line        int
}

// Ref is an attribute reference inside a symbol body.
type Ref struct {
	SymbolLocal int
	Kind        string
	Target      string
	Name        string
	Line        int
}

// Import is one imported module or name.
type Import struct {
	Module string
	Name   string
	Alias  string
	IsFrom bool
	Line   int
}

// Result is the output of parsing a single file. ParseError is set when the
// source is malformed; whatever was extracted before the error still counts.
type Result struct {
	Symbols    []Symbol
	Calls      []Call
	Refs       []Ref
	Imports    []Import
	ParseError string
}

// Parser extracts structure from one language's source files.
type Parser interface {
	// Language returns the identifier stored on File rows, e.g. "python".
	Language() string
	// Extensions returns the lowercased file extensions this parser claims.
	Extensions() []string
	// Parse extracts symbols, calls, refs, and imports from source. A
	// non-nil error means parsing could not run at all; syntax errors in
	// the source are reported through Result.ParseError instead.
	Parse(ctx context.Context, source []byte, relPath string) (*Result, error)
}
