package rules

import "codeindex/internal/storage"

// The builtin rules ship with every index. Their queries run through
// storage.QueryRows like any custom rule, so they are plain SELECTs over
// the index tables with no privileged access.

// deadSymbol flags functions and methods that are heuristically
// unreferenced: not underscore-private, not a property accessor, never the
// enclosing caller of any call site, and never named as a call target
// (bare or as the final dotted segment of a call expression). A symbol
// that makes calls counts as alive even when nothing calls it, which keeps
// entry points and wiring code out of the report.
var deadSymbol = storage.Rule{
	ID:          "DEAD_SYMBOL",
	Name:        "Dead symbol",
	Description: "Symbol never referenced in any call site",
	Severity:    "info",
	IsBuiltin:   true,
	Enabled:     true,
	Query: `
		SELECT s.symbol_id, s.name, s.kind, s.line_start, f.rel_path, f.file_id,
		       p.name AS parent_name
		FROM symbols s
		JOIN files f ON s.file_id = f.file_id
		LEFT JOIN symbols p ON s.parent_id = p.symbol_id
		WHERE s.kind IN ('function', 'method')
		  AND s.name NOT LIKE '\_%' ESCAPE '\'
		  AND s.decorators_json NOT LIKE '%property%'
		  AND s.decorators_json NOT LIKE '%.setter%'
		  AND s.symbol_id NOT IN (
		      SELECT DISTINCT c.caller_id FROM calls c WHERE c.caller_id IS NOT NULL
		  )
		  AND NOT EXISTS (
		      SELECT 1 FROM calls c
		      WHERE c.callee_expr = s.name
		         OR SUBSTR(c.callee_expr, -LENGTH(s.name) - 1) = '.' || s.name
		  )
	`,
}

// largeSymbol flags functions and methods spanning more than 50 lines
// (inclusive of the def line) or with cyclomatic complexity above 15.
var largeSymbol = storage.Rule{
	ID:          "LARGE_SYMBOL",
	Name:        "Large symbol",
	Description: "Function/method exceeds 50 lines or complexity > 15",
	Severity:    "warning",
	IsBuiltin:   true,
	Enabled:     true,
	Query: `
		SELECT s.symbol_id, s.name, s.kind, s.line_start, s.line_end, s.complexity,
		       f.rel_path, f.file_id,
		       p.name AS parent_name
		FROM symbols s
		JOIN files f ON s.file_id = f.file_id
		LEFT JOIN symbols p ON s.parent_id = p.symbol_id
		WHERE s.kind IN ('function', 'method')
		  AND ((s.line_end - s.line_start + 1) > 50 OR s.complexity > 15)
	`,
}

// circularImport flags file pairs that import each other. Module paths are
// derived from rel_path by dot-joining the segments; the pair is reported
// once with the lexicographically smaller path first.
var circularImport = storage.Rule{
	ID:          "CIRCULAR_IMPORT",
	Name:        "Circular import",
	Description: "Module A imports B and B imports A",
	Severity:    "warning",
	IsBuiltin:   true,
	Enabled:     true,
	Query: `
		SELECT DISTINCT
		    f1.rel_path AS file_a, f1.file_id,
		    f2.rel_path AS file_b
		FROM imports i1
		JOIN files f1 ON i1.file_id = f1.file_id
		JOIN files f2 ON REPLACE(REPLACE(f2.rel_path, '/', '.'), '.py', '') = i1.module
		JOIN imports i2 ON i2.file_id = f2.file_id
		WHERE REPLACE(REPLACE(f1.rel_path, '/', '.'), '.py', '') = i2.module
		  AND f1.rel_path < f2.rel_path
	`,
}

// Builtins returns the builtin rule set in seeding order.
func Builtins() []storage.Rule {
	return []storage.Rule{deadSymbol, largeSymbol, circularImport}
}
