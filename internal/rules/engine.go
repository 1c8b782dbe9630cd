// Package rules executes SQL-based analysis rules over the index and
// tracks how useful their findings turn out to be. Rules are stored rows:
// the builtins ship with the tool, custom rules arrive through Add or a
// YAML import, and all of them run through the same read-only query path.
package rules

import (
	"fmt"
	"strings"

	"codeindex/internal/errors"
	"codeindex/internal/logging"
	"codeindex/internal/storage"
)

const testRulePreviewLimit = 50

// Engine runs rules and records their outcomes.
type Engine struct {
	db  *storage.DB
	log *logging.Logger
}

// New creates a rule engine.
func New(db *storage.DB, log *logging.Logger) *Engine {
	return &Engine{db: db, log: log}
}

// RunResult summarizes one rule's execution within a run.
type RunResult struct {
	RuleID        string `json:"rule_id"`
	Name          string `json:"name"`
	Severity      string `json:"severity"`
	FindingsCount int    `json:"findings_count"`
}

// SeedBuiltins registers the builtin rules, resetting their definitions if
// they already exist. Returns the number seeded.
func (e *Engine) SeedBuiltins() (int, error) {
	for _, rule := range Builtins() {
		r := rule
		if err := e.db.UpsertRule(&r); err != nil {
			return 0, err
		}
	}
	return len(Builtins()), nil
}

// RunAll clears every stored diagnostic and regenerates the full set from
// the enabled rules. Each rule gets a RunResult entry even when its query
// produced nothing.
func (e *Engine) RunAll() ([]RunResult, error) {
	if err := e.db.ClearDiagnostics(); err != nil {
		return nil, err
	}

	enabled, err := e.db.ListRules(true)
	if err != nil {
		return nil, err
	}

	results := make([]RunResult, 0, len(enabled))
	for i := range enabled {
		findings := e.runRule(&enabled[i])
		results = append(results, RunResult{
			RuleID:        enabled[i].ID,
			Name:          enabled[i].Name,
			Severity:      enabled[i].Severity,
			FindingsCount: findings,
		})
	}
	return results, nil
}

// RunOne executes a single rule by ID without clearing existing
// diagnostics. Unknown IDs are an error.
func (e *Engine) RunOne(ruleID string) (int, error) {
	rule, err := e.db.GetRule(ruleID)
	if err != nil {
		return 0, err
	}
	if rule == nil {
		return 0, errors.Newf(errors.RuleNotFound, "unknown rule: %s", ruleID)
	}
	return e.runRule(rule), nil
}

// runRule executes one rule's query and stores its findings. A failing
// query counts as zero findings and records no run; rules must not take
// the whole analysis pass down with them.
func (e *Engine) runRule(rule *storage.Rule) int {
	rows, err := e.db.QueryRows(rule.Query)
	if err != nil {
		e.log.Warn("Rule query failed", map[string]interface{}{
			"rule_id": rule.ID,
			"error":   err.Error(),
		})
		return 0
	}

	var diags []storage.Diagnostic
	for _, row := range rows {
		fileID, ok := row.Int64("file_id")
		if !ok || fileID == 0 {
			continue
		}

		line, ok := row.Int64("line_start")
		if !ok || line == 0 {
			line, _ = row.Int64("line_no")
		}

		diags = append(diags, storage.Diagnostic{
			FileID:   fileID,
			RuleID:   rule.ID,
			Severity: rule.Severity,
			Message:  buildMessage(rule, row),
			LineNo:   int(line),
			Context:  row.String("rel_path"),
		})
	}

	if len(diags) > 0 {
		if err := e.db.InsertDiagnostics(diags); err != nil {
			e.log.Warn("Failed to store findings", map[string]interface{}{
				"rule_id": rule.ID,
				"error":   err.Error(),
			})
			return 0
		}
	}

	if _, err := e.db.InsertRuleRun(rule.ID, len(diags)); err != nil {
		e.log.Warn("Failed to record rule run", map[string]interface{}{
			"rule_id": rule.ID,
			"error":   err.Error(),
		})
	}
	return len(diags)
}

// buildMessage renders a finding row into a human-readable message. The
// builtins get bespoke formats; custom rules fall back to "name: symbol".
func buildMessage(rule *storage.Rule, row storage.Row) string {
	name := row.String("name")
	qual := name
	if parent := row.String("parent_name"); parent != "" {
		qual = parent + "." + name
	}

	switch rule.ID {
	case deadSymbol.ID:
		return fmt.Sprintf("%s (%s) -- never called", qual, row.String("kind"))

	case largeSymbol.ID:
		lineStart, _ := row.Int64("line_start")
		lineEnd, _ := row.Int64("line_end")
		cx, _ := row.Int64("complexity")
		lines := lineEnd - lineStart + 1

		var parts []string
		if lines > 50 {
			parts = append(parts, fmt.Sprintf("%d lines", lines))
		}
		if cx > 15 {
			parts = append(parts, fmt.Sprintf("complexity %d", cx))
		}
		return fmt.Sprintf("%s: %s", qual, strings.Join(parts, ", "))

	case circularImport.ID:
		return fmt.Sprintf("Circular import: %s <-> %s", row.String("file_a"), row.String("file_b"))

	default:
		if qual == "" {
			return rule.Name
		}
		return fmt.Sprintf("%s: %s", rule.Name, qual)
	}
}

// Add registers a custom rule. Severity defaults to "warning" and weight
// to 1.0.
func (e *Engine) Add(ruleID, name, query, severity, description string, weight float64, learnedFrom string) (*storage.Rule, error) {
	if ruleID == "" || name == "" || query == "" {
		return nil, errors.New(errors.InvalidInput, "rule id, name, and query are required")
	}
	if severity == "" {
		severity = "warning"
	}

	rule := &storage.Rule{
		ID:          ruleID,
		Name:        name,
		Description: description,
		Severity:    severity,
		Query:       query,
		IsBuiltin:   false,
		Enabled:     true,
		Weight:      weight,
		LearnedFrom: learnedFrom,
	}
	if err := e.db.UpsertRule(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// Test dry-runs a query without storing anything, for interactive rule
// authoring. Failures come back as a single row with an "error" column so
// clients always get rows.
func (e *Engine) Test(query string) []storage.Row {
	rows, err := e.db.QueryRows(query)
	if err != nil {
		return []storage.Row{{"error": err.Error()}}
	}
	if len(rows) > testRulePreviewLimit {
		rows = rows[:testRulePreviewLimit]
	}
	return rows
}

// Rate applies a usefulness vote to the most recent run of a rule. A rule
// that has never run is a no-op.
func (e *Engine) Rate(ruleID string, useful bool) error {
	runID, ok, err := e.db.LatestRunID(ruleID)
	if err != nil || !ok {
		return err
	}

	delta := 1
	if !useful {
		delta = -1
	}
	return e.db.AdjustRunUseful(runID, delta)
}

// Effectiveness reports per-rule run history, most useful first.
func (e *Engine) Effectiveness() ([]storage.RuleEffectiveness, error) {
	return e.db.Effectiveness()
}
