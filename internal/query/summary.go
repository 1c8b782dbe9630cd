package query

import (
	"strings"

	"codeindex/internal/storage"
)

// FileSummary is the structured overview of one indexed file.
type FileSummary struct {
	File        *storage.File        `json:"file"`
	Symbols     []storage.Symbol     `json:"symbols"`
	Imports     []storage.Import     `json:"imports"`
	Diagnostics []storage.Diagnostic `json:"diagnostics"`
}

// GetFileSummary returns a file's row with its symbols, imports, and open
// diagnostics, or nil when the file is not indexed.
func (e *Engine) GetFileSummary(relPath string) (*FileSummary, error) {
	f, err := e.db.GetFileByPath(relPath)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, nil
	}

	symbols, err := e.db.SymbolsByFile(f.ID)
	if err != nil {
		return nil, err
	}
	imports, err := e.db.ImportsOfFile(f.ID)
	if err != nil {
		return nil, err
	}
	diags, err := e.db.UnresolvedForFile(f.ID)
	if err != nil {
		return nil, err
	}

	return &FileSummary{
		File:        f,
		Symbols:     symbols,
		Imports:     imports,
		Diagnostics: diags,
	}, nil
}

// ImportsGraph is a file-to-imported-modules adjacency list. Nodes keeps
// files in path order.
type ImportsGraph struct {
	Nodes []string            `json:"nodes"`
	Edges map[string][]string `json:"edges"`
}

// GetImportsGraph builds the import adjacency list, optionally filtered to
// files whose path contains filePattern.
func (e *Engine) GetImportsGraph(filePattern string) (*ImportsGraph, error) {
	imports, err := e.db.AllImports()
	if err != nil {
		return nil, err
	}

	graph := &ImportsGraph{Edges: make(map[string][]string)}
	for _, imp := range imports {
		if filePattern != "" && !strings.Contains(imp.File, filePattern) {
			continue
		}
		if _, ok := graph.Edges[imp.File]; !ok {
			graph.Nodes = append(graph.Nodes, imp.File)
		}
		graph.Edges[imp.File] = append(graph.Edges[imp.File], imp.Module)
	}
	return graph, nil
}
