package mcp

import (
	"context"
	"fmt"

	"codeindex/internal/errors"
	"codeindex/internal/storage"
)

// Tool describes one tool in the tools/list response.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

const (
	defaultSearchLimit  = 20
	defaultHistoryLimit = 10
	statusChangeLimit   = 20
)

func (s *Server) registerTools() {
	s.tools = map[string]toolFunc{
		"index":        s.toolIndex,
		"get_context":  s.toolGetContext,
		"get_impact":   s.toolGetImpact,
		"search":       s.toolSearch,
		"file_summary": s.toolFileSummary,
		"diagnostics":  s.toolDiagnostics,
		"annotate":     s.toolAnnotate,
		"session":      s.toolSession,
	}
}

// toolIndex rebuilds or updates the index. Full mode always re-runs the
// rules; incremental mode only does when something actually changed.
func (s *Server) toolIndex(args map[string]interface{}) (interface{}, error) {
	mode := stringArg(args, "mode", "incremental")

	switch mode {
	case "full":
		stats, err := s.deps.Indexer.FullRebuild(context.Background())
		if err != nil {
			return nil, err
		}
		results, err := s.deps.Rules.RunAll()
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"mode":  "full",
			"stats": stats,
			"rules": results,
		}, nil

	case "incremental":
		counts, err := s.deps.Indexer.Incremental(context.Background())
		if err != nil {
			return nil, err
		}
		out := map[string]interface{}{
			"mode":    "incremental",
			"changes": counts,
		}
		if counts.Added+counts.Changed+counts.Removed > 0 {
			results, err := s.deps.Rules.RunAll()
			if err != nil {
				return nil, err
			}
			out["rules"] = results
		}
		return out, nil

	default:
		return nil, errors.Newf(errors.InvalidInput, "unknown index mode %q (want full or incremental)", mode)
	}
}

func (s *Server) toolGetContext(args map[string]interface{}) (interface{}, error) {
	name := stringArg(args, "name", "")
	if name == "" {
		return nil, errors.New(errors.InvalidInput, "get_context requires a symbol name")
	}

	ctx, err := s.deps.Queries.GetContext(name, stringArg(args, "kind", ""))
	if err != nil {
		return nil, err
	}
	if !ctx.Found() {
		return map[string]interface{}{
			"found":   false,
			"message": fmt.Sprintf("no symbol matching %q in the index", name),
		}, nil
	}
	return ctx, nil
}

func (s *Server) toolGetImpact(args map[string]interface{}) (interface{}, error) {
	name := stringArg(args, "name", "")
	if name == "" {
		return nil, errors.New(errors.InvalidInput, "get_impact requires a symbol name")
	}
	return s.deps.Queries.GetImpact(name)
}

func (s *Server) toolSearch(args map[string]interface{}) (interface{}, error) {
	query := stringArg(args, "query", "")
	if query == "" {
		return nil, errors.New(errors.InvalidInput, "search requires a query")
	}

	results, err := s.deps.Queries.Search(query, stringArg(args, "kind", ""), intArg(args, "limit", defaultSearchLimit))
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"query":   query,
		"results": results,
	}, nil
}

func (s *Server) toolFileSummary(args map[string]interface{}) (interface{}, error) {
	path := stringArg(args, "path", "")
	if path == "" {
		return nil, errors.New(errors.InvalidInput, "file_summary requires a path")
	}

	summary, err := s.deps.Queries.GetFileSummary(path)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, errors.Newf(errors.FileNotIndexed, "%s is not in the index", path)
	}
	return summary, nil
}

func (s *Server) toolDiagnostics(args map[string]interface{}) (interface{}, error) {
	action := stringArg(args, "action", "list")

	switch action {
	case "run":
		if ruleID := stringArg(args, "rule_id", ""); ruleID != "" {
			count, err := s.deps.Rules.RunOne(ruleID)
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"rule_id":        ruleID,
				"findings_count": count,
			}, nil
		}
		results, err := s.deps.Rules.RunAll()
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"rules": results}, nil

	case "list":
		diags, err := s.deps.DB.ListDiagnostics(storage.DiagnosticFilter{
			Severity: stringArg(args, "severity", ""),
			RuleID:   stringArg(args, "rule_id", ""),
			Path:     stringArg(args, "path", ""),
			Limit:    intArg(args, "limit", 0),
		})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"count":       len(diags),
			"diagnostics": diags,
		}, nil

	case "add_rule":
		rule, err := s.deps.Rules.Add(
			stringArg(args, "rule_id", ""),
			stringArg(args, "name", ""),
			stringArg(args, "query", ""),
			stringArg(args, "severity", "info"),
			stringArg(args, "description", ""),
			floatArg(args, "weight", 1.0),
			stringArg(args, "learned_from", ""),
		)
		if err != nil {
			return nil, err
		}
		return rule, nil

	case "rate":
		ruleID := stringArg(args, "rule_id", "")
		if ruleID == "" {
			return nil, errors.New(errors.InvalidInput, "rate requires a rule_id")
		}
		useful := boolArg(args, "useful", true)
		if err := s.deps.Rules.Rate(ruleID, useful); err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"rule_id": ruleID,
			"useful":  useful,
		}, nil

	case "effectiveness":
		eff, err := s.deps.Rules.Effectiveness()
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"rules": eff}, nil

	default:
		return nil, errors.Newf(errors.InvalidInput, "unknown diagnostics action %q", action)
	}
}

func (s *Server) toolAnnotate(args map[string]interface{}) (interface{}, error) {
	switch action := stringArg(args, "action", "add"); action {
	case "add":
		text := stringArg(args, "text", "")
		if text == "" {
			return nil, errors.New(errors.InvalidInput, "annotate requires text")
		}
		ann := &storage.Annotation{
			TargetSymbol: stringArg(args, "symbol_name", ""),
			TargetPath:   stringArg(args, "file_path", ""),
			Text:         text,
			Author:       stringArg(args, "author", "ai"),
		}
		if ann.TargetSymbol == "" && ann.TargetPath == "" {
			return nil, errors.New(errors.InvalidInput, "annotate requires a symbol_name or file_path")
		}
		id, err := s.deps.DB.AddAnnotation(ann)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"annotation_id": id,
			"target_symbol": ann.TargetSymbol,
			"target_path":   ann.TargetPath,
		}, nil

	case "list":
		anns, err := s.deps.DB.ListAnnotations(intArg(args, "limit", 0))
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"count":       len(anns),
			"annotations": anns,
		}, nil

	default:
		return nil, errors.Newf(errors.InvalidInput, "unknown annotate action %q", action)
	}
}

func (s *Server) toolSession(args map[string]interface{}) (interface{}, error) {
	switch action := stringArg(args, "action", "status"); action {
	case "start":
		sess, err := s.deps.Tracker.Start(stringArg(args, "transcript_path", ""))
		if err != nil {
			return nil, err
		}
		return sess, nil

	case "end":
		active, err := s.deps.Tracker.Active()
		if err != nil {
			return nil, err
		}
		if active == nil {
			return map[string]interface{}{"message": "no active session"}, nil
		}
		changes, err := s.deps.History.RecordSnapshot(active.ID)
		if err != nil {
			return nil, err
		}
		sess, err := s.deps.Tracker.End(active.ID, stringArg(args, "summary", ""))
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"session":          sess,
			"changes_recorded": len(changes),
		}, nil

	case "status":
		active, err := s.deps.Tracker.Active()
		if err != nil {
			return nil, err
		}
		pending, err := s.deps.History.CurrentChanges()
		if err != nil {
			return nil, err
		}
		shown := pending
		if len(shown) > statusChangeLimit {
			shown = shown[:statusChangeLimit]
		}
		return map[string]interface{}{
			"active":          active,
			"pending_changes": len(pending),
			"changes":         shown,
		}, nil

	case "changes":
		sessionID := int64(intArg(args, "session_id", 0))
		if sessionID == 0 {
			active, err := s.deps.Tracker.Active()
			if err != nil {
				return nil, err
			}
			if active == nil {
				return nil, errors.New(errors.InvalidInput, "changes requires a session_id when no session is active")
			}
			sessionID = active.ID
		}
		changes, err := s.deps.History.ChangesSince(sessionID)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"session_id": sessionID,
			"count":      len(changes),
			"changes":    changes,
		}, nil

	case "history":
		sessions, err := s.deps.Tracker.History(intArg(args, "limit", defaultHistoryLimit))
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"sessions": sessions}, nil

	default:
		return nil, errors.Newf(errors.InvalidInput, "unknown session action %q", action)
	}
}

func stringArg(args map[string]interface{}, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// intArg reads a numeric argument. JSON numbers decode as float64.
func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

func floatArg(args map[string]interface{}, key string, fallback float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return fallback
}

func boolArg(args map[string]interface{}, key string, fallback bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return fallback
}

func toolDefinitions() []Tool {
	objectSchema := func(required []string, props map[string]interface{}) map[string]interface{} {
		schema := map[string]interface{}{
			"type":       "object",
			"properties": props,
		}
		if len(required) > 0 {
			schema["required"] = required
		}
		return schema
	}
	str := func(desc string) map[string]interface{} {
		return map[string]interface{}{"type": "string", "description": desc}
	}

	return []Tool{
		{
			Name:        "index",
			Description: "Build or update the code index. Full mode re-parses every file; incremental mode only touches added, changed, and removed files. Analysis rules run after indexing.",
			InputSchema: objectSchema(nil, map[string]interface{}{
				"mode": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"full", "incremental"},
					"default":     "incremental",
					"description": "Indexing mode",
				},
			}),
		},
		{
			Name:        "get_context",
			Description: "Get everything the index knows about a symbol: definition, callers, callees, references, annotations, diagnostics, and sibling symbols.",
			InputSchema: objectSchema([]string{"name"}, map[string]interface{}{
				"name": str("Symbol name to look up"),
				"kind": str("Optional kind filter: function, method, class, interface, enum"),
			}),
		},
		{
			Name:        "get_impact",
			Description: "Estimate the blast radius of changing a symbol: direct callers, one hop of transitive callers, affected files, and an impact score. Class names aggregate over every member.",
			InputSchema: objectSchema([]string{"name"}, map[string]interface{}{
				"name": str("Symbol or class name to analyze"),
			}),
		},
		{
			Name:        "search",
			Description: "Search symbols by name with ranked scoring, backfilled by full-text search over docstrings.",
			InputSchema: objectSchema([]string{"query"}, map[string]interface{}{
				"query": str("Search text"),
				"kind":  str("Optional kind filter"),
				"limit": map[string]interface{}{
					"type":        "integer",
					"default":     defaultSearchLimit,
					"description": "Maximum results",
				},
			}),
		},
		{
			Name:        "file_summary",
			Description: "Summarize one indexed file: symbols, imports, and unresolved diagnostics.",
			InputSchema: objectSchema([]string{"path"}, map[string]interface{}{
				"path": str("Project-relative file path"),
			}),
		},
		{
			Name:        "diagnostics",
			Description: "Run analysis rules and work with their findings: run, list, add_rule, rate, effectiveness.",
			InputSchema: objectSchema([]string{"action"}, map[string]interface{}{
				"action":       str("One of run, list, add_rule, rate, effectiveness"),
				"rule_id":      str("Rule ID for run (single rule), add_rule, and rate"),
				"severity":     str("Severity filter for list, or severity for add_rule"),
				"path":         str("File-path substring filter for list"),
				"name":         str("Rule name for add_rule"),
				"query":        str("SQL query for add_rule"),
				"description":  str("Description for add_rule"),
				"learned_from": str("Provenance tag for add_rule"),
				"weight": map[string]interface{}{
					"type":        "number",
					"description": "Rule weight for add_rule",
				},
				"useful": map[string]interface{}{
					"type":        "boolean",
					"description": "Vote for rate: true = useful",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum findings for list",
				},
			}),
		},
		{
			Name:        "annotate",
			Description: "Attach or list free-form notes on symbols and files. Notes are keyed by name and path so they survive reindexing.",
			InputSchema: objectSchema(nil, map[string]interface{}{
				"action":      str("add (default) or list"),
				"symbol_name": str("Symbol to annotate"),
				"file_path":   str("File to annotate"),
				"text":        str("Note text (required for add)"),
				"author":      str("Note author, defaults to \"ai\""),
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum notes for list",
				},
			}),
		},
		{
			Name:        "session",
			Description: "Track editing sessions: start, end (records a change snapshot), status, changes, history. Starting a session auto-ends any previous one.",
			InputSchema: objectSchema([]string{"action"}, map[string]interface{}{
				"action":          str("One of start, end, status, changes, history"),
				"transcript_path": str("Transcript reference for start"),
				"summary":         str("Summary for end"),
				"session_id": map[string]interface{}{
					"type":        "integer",
					"description": "Session for changes; defaults to the active session",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum sessions for history",
				},
			}),
		},
	}
}
