package storage

import (
	"database/sql"
	"fmt"
)

// InsertCallsTx bulk-inserts call sites for one file.
func (db *DB) InsertCallsTx(tx *sql.Tx, fileID int64, calls []Call) error {
	if len(calls) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO calls (file_id, caller_id, callee_expr, line_no)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare call insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range calls {
		if _, err := stmt.Exec(fileID, nullableID(c.CallerID), c.CalleeExpr, c.LineNo); err != nil {
			return fmt.Errorf("failed to insert call %s: %w", c.CalleeExpr, err)
		}
	}
	return nil
}

// Callers returns call sites whose callee expression contains name, with
// the enclosing caller resolved where known, ordered by file then line.
func (db *DB) Callers(name string, limit int) ([]CallerInfo, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`
		SELECT f.rel_path, c.line_no, c.callee_expr, s.name, s.kind, p.name
		FROM calls c
		JOIN files f ON c.file_id = f.file_id
		LEFT JOIN symbols s ON c.caller_id = s.symbol_id
		LEFT JOIN symbols p ON s.parent_id = p.symbol_id
		WHERE c.callee_expr LIKE ?
		ORDER BY f.rel_path, c.line_no
		LIMIT ?
	`, "%"+name+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var callers []CallerInfo
	for rows.Next() {
		var ci CallerInfo
		var callerName, callerKind, callerClass sql.NullString
		if err := rows.Scan(&ci.File, &ci.Line, &ci.CalleeExpr, &callerName, &callerKind, &callerClass); err != nil {
			return nil, err
		}
		ci.CallerName = callerName.String
		ci.CallerKind = callerKind.String
		ci.CallerClass = callerClass.String
		callers = append(callers, ci)
	}
	return callers, rows.Err()
}

// CalleesOf returns the outgoing calls of one symbol ordered by line.
func (db *DB) CalleesOf(callerID int64) ([]Call, error) {
	rows, err := db.Query(`
		SELECT call_id, file_id, caller_id, callee_expr, line_no
		FROM calls WHERE caller_id = ? ORDER BY line_no
	`, callerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []Call
	for rows.Next() {
		var c Call
		var callerID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.FileID, &callerID, &c.CalleeExpr, &c.LineNo); err != nil {
			return nil, err
		}
		if callerID.Valid {
			c.CallerID = &callerID.Int64
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}
