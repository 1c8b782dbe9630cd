package storage

import (
	"database/sql"
	"fmt"
)

// UpsertFileTx inserts or updates a file row by rel_path and returns its ID.
// Updating replaces the hash, line count, and parse error and refreshes
// indexed_at; existing symbol rows for the file are not touched here.
func (db *DB) UpsertFileTx(tx *sql.Tx, relPath, fileHash, language string, lineCount int, parseError string) (int64, error) {
	var parseErr interface{}
	if parseError != "" {
		parseErr = parseError
	}

	_, err := tx.Exec(`
		INSERT INTO files (rel_path, file_hash, language, line_count, parse_error, indexed_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(rel_path) DO UPDATE SET
			file_hash = excluded.file_hash,
			language = excluded.language,
			line_count = excluded.line_count,
			parse_error = excluded.parse_error,
			indexed_at = excluded.indexed_at
	`, relPath, fileHash, language, lineCount, parseErr)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert file %s: %w", relPath, err)
	}

	var fileID int64
	if err := tx.QueryRow("SELECT file_id FROM files WHERE rel_path = ?", relPath).Scan(&fileID); err != nil {
		return 0, fmt.Errorf("failed to read back file %s: %w", relPath, err)
	}
	return fileID, nil
}

// ClearSymbolDataTx removes all symbol-derived rows for a file, keeping the
// file row itself. Used when reindexing a changed file.
func (db *DB) ClearSymbolDataTx(tx *sql.Tx, fileID int64) error {
	stmts := []string{
		"DELETE FROM calls WHERE file_id = ?",
		"DELETE FROM refs WHERE file_id = ?",
		"DELETE FROM imports WHERE file_id = ?",
		"DELETE FROM symbols WHERE file_id = ?",
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, fileID); err != nil {
			return fmt.Errorf("failed to clear file data: %w", err)
		}
	}
	return nil
}

// GetFileByPath returns the file row for rel_path, or nil when not indexed.
func (db *DB) GetFileByPath(relPath string) (*File, error) {
	row := db.QueryRow(`
		SELECT file_id, rel_path, file_hash, language, line_count, parse_error, indexed_at
		FROM files WHERE rel_path = ?
	`, relPath)

	f, err := scanFile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListFiles returns all indexed files ordered by path.
func (db *DB) ListFiles() ([]File, error) {
	rows, err := db.Query(`
		SELECT file_id, rel_path, file_hash, language, line_count, parse_error, indexed_at
		FROM files ORDER BY rel_path
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *f)
	}
	return files, rows.Err()
}

// FileHashes returns rel_path -> stored hash for every indexed file.
func (db *DB) FileHashes() (map[string]string, error) {
	rows, err := db.Query("SELECT rel_path, file_hash FROM files")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var relPath, hash string
		if err := rows.Scan(&relPath, &hash); err != nil {
			return nil, err
		}
		hashes[relPath] = hash
	}
	return hashes, rows.Err()
}

// DeleteFile removes a file row and, via cascades, its symbols, calls,
// refs, imports, and diagnostics. The FTS row is removed alongside.
func (db *DB) DeleteFile(relPath string) error {
	if err := db.DeleteFTS(relPath); err != nil {
		return err
	}
	_, err := db.Exec("DELETE FROM files WHERE rel_path = ?", relPath)
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", relPath, err)
	}
	return nil
}

// DeleteFileTx is DeleteFile inside an open transaction. The store holds a
// single connection, so statements issued during a transaction must go
// through it.
func (db *DB) DeleteFileTx(tx *sql.Tx, relPath string) error {
	if _, err := tx.Exec("DELETE FROM fts WHERE rel_path = ?", relPath); err != nil {
		return fmt.Errorf("failed to delete fts row for %s: %w", relPath, err)
	}
	if _, err := tx.Exec("DELETE FROM files WHERE rel_path = ?", relPath); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", relPath, err)
	}
	return nil
}

// ClearForRebuild wipes the FTS index, diagnostics, and all file rows
// (cascading to symbols, calls, refs, imports, change log entries).
func (db *DB) ClearForRebuild() error {
	stmts := []string{
		"DELETE FROM fts",
		"DELETE FROM diagnostics",
		"DELETE FROM files",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to clear for rebuild: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFile(r rowScanner) (*File, error) {
	var f File
	var parseError sql.NullString
	if err := r.Scan(&f.ID, &f.RelPath, &f.FileHash, &f.Language, &f.LineCount, &parseError, &f.IndexedAt); err != nil {
		return nil, err
	}
	f.ParseError = parseError.String
	return &f, nil
}
