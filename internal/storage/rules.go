package storage

import (
	"database/sql"
	"fmt"
)

// UpsertRule inserts or replaces a rule by ID. Reseeding a builtin resets
// its definition but keeps historical rule_runs.
func (db *DB) UpsertRule(r *Rule) error {
	weight := r.Weight
	if weight == 0 {
		weight = 1.0
	}

	_, err := db.Exec(`
		INSERT INTO rules (rule_id, name, description, severity, query, is_builtin, enabled, weight, learned_from)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(rule_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			severity = excluded.severity,
			query = excluded.query,
			is_builtin = excluded.is_builtin,
			enabled = excluded.enabled,
			weight = excluded.weight,
			learned_from = excluded.learned_from
	`, r.ID, r.Name, nullableString(r.Description), r.Severity, r.Query,
		boolToInt(r.IsBuiltin), boolToInt(r.Enabled), weight, nullableString(r.LearnedFrom))
	if err != nil {
		return fmt.Errorf("failed to upsert rule %s: %w", r.ID, err)
	}
	return nil
}

// GetRule returns one rule or nil when unknown.
func (db *DB) GetRule(ruleID string) (*Rule, error) {
	row := db.QueryRow(`
		SELECT rule_id, name, description, severity, query, is_builtin, enabled, weight, learned_from, created_at
		FROM rules WHERE rule_id = ?
	`, ruleID)

	r, err := scanRule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRules returns rules ordered by builtin-first then ID.
func (db *DB) ListRules(enabledOnly bool) ([]Rule, error) {
	query := `
		SELECT rule_id, name, description, severity, query, is_builtin, enabled, weight, learned_from, created_at
		FROM rules
	`
	if enabledOnly {
		query += " WHERE enabled = 1"
	}
	query += " ORDER BY is_builtin DESC, rule_id"

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

// SetRuleEnabled toggles a rule on or off.
func (db *DB) SetRuleEnabled(ruleID string, enabled bool) error {
	_, err := db.Exec("UPDATE rules SET enabled = ? WHERE rule_id = ?", boolToInt(enabled), ruleID)
	return err
}

// InsertRuleRun records one execution of a rule and returns the run ID.
func (db *DB) InsertRuleRun(ruleID string, findingsCount int) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO rule_runs (rule_id, findings_count) VALUES (?, ?)
	`, ruleID, findingsCount)
	if err != nil {
		return 0, fmt.Errorf("failed to record rule run for %s: %w", ruleID, err)
	}
	return res.LastInsertId()
}

// LatestRunID returns the most recent run of a rule, or ok=false when the
// rule has never run.
func (db *DB) LatestRunID(ruleID string) (int64, bool, error) {
	var runID int64
	err := db.QueryRow(`
		SELECT run_id FROM rule_runs WHERE rule_id = ?
		ORDER BY run_id DESC LIMIT 1
	`, ruleID).Scan(&runID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return runID, true, nil
}

// AdjustRunUseful applies a +1/-1 usefulness vote to a run.
func (db *DB) AdjustRunUseful(runID int64, delta int) error {
	_, err := db.Exec("UPDATE rule_runs SET useful_count = useful_count + ? WHERE run_id = ?", delta, runID)
	return err
}

// Effectiveness aggregates run history per rule, most useful first.
func (db *DB) Effectiveness() ([]RuleEffectiveness, error) {
	rows, err := db.Query(`
		SELECT r.rule_id, r.name, r.severity, r.enabled, r.weight,
		       COUNT(rr.run_id),
		       COALESCE(SUM(rr.findings_count), 0),
		       COALESCE(SUM(rr.useful_count), 0)
		FROM rules r
		LEFT JOIN rule_runs rr ON r.rule_id = rr.rule_id
		GROUP BY r.rule_id
		ORDER BY COALESCE(SUM(rr.useful_count), 0) DESC,
		         COALESCE(SUM(rr.findings_count), 0) DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RuleEffectiveness
	for rows.Next() {
		var e RuleEffectiveness
		var enabled int
		if err := rows.Scan(&e.RuleID, &e.Name, &e.Severity, &enabled, &e.Weight,
			&e.TotalRuns, &e.TotalFindings, &e.TotalUseful); err != nil {
			return nil, err
		}
		e.Enabled = enabled != 0
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanRule(r rowScanner) (*Rule, error) {
	var rule Rule
	var description, learnedFrom sql.NullString
	var isBuiltin, enabled int

	err := r.Scan(&rule.ID, &rule.Name, &description, &rule.Severity, &rule.Query,
		&isBuiltin, &enabled, &rule.Weight, &learnedFrom, &rule.CreatedAt)
	if err != nil {
		return nil, err
	}

	rule.Description = description.String
	rule.LearnedFrom = learnedFrom.String
	rule.IsBuiltin = isBuiltin != 0
	rule.Enabled = enabled != 0
	return &rule, nil
}
