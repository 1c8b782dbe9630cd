package query

import (
	"sort"
	"strings"

	"codeindex/internal/storage"
)

// Symbol match scores. Exact beats case-insensitive exact beats prefix
// beats case-insensitive prefix beats plain substring.
const (
	scoreExact      = 100
	scoreExactFold  = 90
	scorePrefix     = 50
	scorePrefixFold = 40
	scoreSubstring  = 10
)

// SearchResult is one scored hit from the combined symbol and full-text
// search.
type SearchResult struct {
	Type        string  `json:"type"`
	Name        string  `json:"name,omitempty"`
	Kind        string  `json:"kind,omitempty"`
	ParentName  string  `json:"parent_name,omitempty"`
	File        string  `json:"file"`
	LineStart   int     `json:"line_start,omitempty"`
	SymbolNames string  `json:"symbol_names,omitempty"`
	Score       float64 `json:"score"`
}

// Search combines symbol-name matching with full-text search. Symbols are
// the primary source; full-text hits fill in only when fewer than limit
// symbols matched, scored at half their native rank and skipping files
// already represented. Results are deduplicated by (name, file) and sorted
// by descending score.
func (e *Engine) Search(query, kind string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	symbols, err := e.db.FindSymbols(storage.SymbolFilter{Name: query, Kind: kind, Limit: limit})
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	symbolFiles := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		results = append(results, SearchResult{
			Type:       "symbol",
			Name:       s.Name,
			Kind:       s.Kind,
			ParentName: s.ParentName,
			File:       s.File,
			LineStart:  s.LineStart,
			Score:      scoreName(s.Name, query),
		})
		symbolFiles[s.File] = true
	}

	if len(symbols) < limit {
		hits, err := e.db.SearchFTS(query, limit)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			if symbolFiles[h.RelPath] {
				continue
			}
			results = append(results, SearchResult{
				Type:        "file",
				File:        h.RelPath,
				SymbolNames: h.SymbolNames,
				Score:       h.Score / 2,
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	seen := make(map[callerKey]bool, len(results))
	unique := results[:0]
	for _, r := range results {
		key := callerKey{r.Name, r.File, 0}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, r)
	}

	if len(unique) > limit {
		unique = unique[:limit]
	}
	return unique, nil
}

func scoreName(name, query string) float64 {
	switch {
	case name == query:
		return scoreExact
	case strings.EqualFold(name, query):
		return scoreExactFold
	case strings.HasPrefix(name, query):
		return scorePrefix
	case strings.HasPrefix(strings.ToLower(name), strings.ToLower(query)):
		return scorePrefixFold
	default:
		return scoreSubstring
	}
}
