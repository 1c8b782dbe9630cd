package storage

import (
	"database/sql"
	"fmt"
)

// ClearDiagnostics removes every diagnostic. Rule runs regenerate the full
// set, so stale findings never linger.
func (db *DB) ClearDiagnostics() error {
	_, err := db.Exec("DELETE FROM diagnostics")
	return err
}

// InsertDiagnostics bulk-inserts findings in one transaction.
func (db *DB) InsertDiagnostics(diags []Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}

	return db.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO diagnostics (file_id, rule_id, severity, message, line_no, context)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare diagnostic insert: %w", err)
		}
		defer stmt.Close()

		for _, d := range diags {
			if _, err := stmt.Exec(d.FileID, nullableString(d.RuleID), d.Severity,
				d.Message, d.LineNo, nullableString(d.Context)); err != nil {
				return fmt.Errorf("failed to insert diagnostic: %w", err)
			}
		}
		return nil
	})
}

// DiagnosticFilter narrows ListDiagnostics. Path matches as a substring.
type DiagnosticFilter struct {
	Severity string
	RuleID   string
	Path     string
	Limit    int
}

// ListDiagnostics returns findings ordered by severity (errors first),
// then file path, then line.
func (db *DB) ListDiagnostics(filter DiagnosticFilter) ([]Diagnostic, error) {
	query := `
		SELECT d.diag_id, d.file_id, d.rule_id, d.severity, d.message, d.line_no,
		       d.context, d.is_resolved, d.first_seen, d.last_seen, f.rel_path
		FROM diagnostics d
		JOIN files f ON d.file_id = f.file_id
		WHERE 1=1
	`
	var args []interface{}

	if filter.Severity != "" {
		query += " AND d.severity = ?"
		args = append(args, filter.Severity)
	}
	if filter.RuleID != "" {
		query += " AND d.rule_id = ?"
		args = append(args, filter.RuleID)
	}
	if filter.Path != "" {
		query += " AND f.rel_path LIKE ?"
		args = append(args, "%"+filter.Path+"%")
	}

	query += `
		ORDER BY CASE d.severity WHEN 'error' THEN 0 WHEN 'warning' THEN 1 ELSE 2 END,
		         f.rel_path, d.line_no
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)

	return db.queryDiagnostics(query, args...)
}

// UnresolvedForFile returns all open findings of a file ordered by line.
func (db *DB) UnresolvedForFile(fileID int64) ([]Diagnostic, error) {
	return db.queryDiagnostics(`
		SELECT d.diag_id, d.file_id, d.rule_id, d.severity, d.message, d.line_no,
		       d.context, d.is_resolved, d.first_seen, d.last_seen, f.rel_path
		FROM diagnostics d
		JOIN files f ON d.file_id = f.file_id
		WHERE d.file_id = ? AND d.is_resolved = 0
		ORDER BY d.line_no
	`, fileID)
}

// UnresolvedForRange returns open findings of a file whose line falls
// within [lineStart, lineEnd].
func (db *DB) UnresolvedForRange(fileID int64, lineStart, lineEnd int) ([]Diagnostic, error) {
	return db.queryDiagnostics(`
		SELECT d.diag_id, d.file_id, d.rule_id, d.severity, d.message, d.line_no,
		       d.context, d.is_resolved, d.first_seen, d.last_seen, f.rel_path
		FROM diagnostics d
		JOIN files f ON d.file_id = f.file_id
		WHERE d.file_id = ? AND d.is_resolved = 0 AND d.line_no BETWEEN ? AND ?
		ORDER BY d.line_no
	`, fileID, lineStart, lineEnd)
}

func (db *DB) queryDiagnostics(query string, args ...interface{}) ([]Diagnostic, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var diags []Diagnostic
	for rows.Next() {
		var d Diagnostic
		var ruleID, context sql.NullString
		var isResolved int
		if err := rows.Scan(&d.ID, &d.FileID, &ruleID, &d.Severity, &d.Message,
			&d.LineNo, &context, &isResolved, &d.FirstSeen, &d.LastSeen, &d.File); err != nil {
			return nil, err
		}
		d.RuleID = ruleID.String
		d.Context = context.String
		d.IsResolved = isResolved != 0
		diags = append(diags, d)
	}
	return diags, rows.Err()
}
