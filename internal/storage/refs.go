package storage

import (
	"database/sql"
	"fmt"
)

// InsertRefsTx bulk-inserts references for one file.
func (db *DB) InsertRefsTx(tx *sql.Tx, fileID int64, refs []Ref) error {
	if len(refs) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO refs (file_id, symbol_id, ref_kind, target, name, line_no)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare ref insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range refs {
		refKind := r.RefKind
		if refKind == "" {
			refKind = "read"
		}
		if _, err := stmt.Exec(fileID, nullableID(r.SymbolID), refKind, r.Target, r.Name, r.LineNo); err != nil {
			return fmt.Errorf("failed to insert ref %s: %w", r.Name, err)
		}
	}
	return nil
}

// RefsOfSymbol returns the references recorded inside one symbol, ordered
// by line.
func (db *DB) RefsOfSymbol(symbolID int64) ([]Ref, error) {
	return db.queryRefs(`
		SELECT r.ref_id, r.file_id, r.symbol_id, r.ref_kind, r.target, r.name, r.line_no, f.rel_path
		FROM refs r
		JOIN files f ON r.file_id = f.file_id
		WHERE r.symbol_id = ?
		ORDER BY r.line_no
	`, symbolID)
}

// RefsByName returns references whose name matches exactly, ordered by file
// then line.
func (db *DB) RefsByName(name string, limit int) ([]Ref, error) {
	if limit <= 0 {
		limit = 50
	}
	return db.queryRefs(`
		SELECT r.ref_id, r.file_id, r.symbol_id, r.ref_kind, r.target, r.name, r.line_no, f.rel_path
		FROM refs r
		JOIN files f ON r.file_id = f.file_id
		WHERE r.name = ?
		ORDER BY f.rel_path, r.line_no
		LIMIT ?
	`, name, limit)
}

func (db *DB) queryRefs(query string, args ...interface{}) ([]Ref, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []Ref
	for rows.Next() {
		var r Ref
		var symbolID sql.NullInt64
		if err := rows.Scan(&r.ID, &r.FileID, &symbolID, &r.RefKind, &r.Target, &r.Name, &r.LineNo, &r.File); err != nil {
			return nil, err
		}
		if symbolID.Valid {
			r.SymbolID = &symbolID.Int64
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}
