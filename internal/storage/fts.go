// Full-text search over symbol names and docstrings, one FTS row per file.
package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// UpdateFTSTx replaces the FTS row for a file with fresh symbol names and
// docstrings.
func (db *DB) UpdateFTSTx(tx *sql.Tx, relPath, symbolNames, docstrings string) error {
	if _, err := tx.Exec("DELETE FROM fts WHERE rel_path = ?", relPath); err != nil {
		return fmt.Errorf("failed to clear fts row for %s: %w", relPath, err)
	}
	if _, err := tx.Exec(`
		INSERT INTO fts (rel_path, symbol_names, docstrings) VALUES (?, ?, ?)
	`, relPath, symbolNames, docstrings); err != nil {
		return fmt.Errorf("failed to insert fts row for %s: %w", relPath, err)
	}
	return nil
}

// DeleteFTS removes the FTS row for a file.
func (db *DB) DeleteFTS(relPath string) error {
	_, err := db.Exec("DELETE FROM fts WHERE rel_path = ?", relPath)
	return err
}

// SearchFTS runs an FTS5 MATCH query ordered by rank. Scores are the
// negated rank so larger means better. Queries FTS5 cannot parse return no
// hits rather than an error; users type these freely.
func (db *DB) SearchFTS(query string, limit int) ([]FTSHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT rel_path, symbol_names, docstrings, rank
		FROM fts WHERE fts MATCH ?
		ORDER BY rank LIMIT ?
	`, query, limit)
	if err != nil {
		if isFTSSyntaxError(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var hits []FTSHit
	for rows.Next() {
		var h FTSHit
		var rank float64
		if err := rows.Scan(&h.RelPath, &h.SymbolNames, &h.Docstrings, &rank); err != nil {
			return nil, err
		}
		h.Score = -rank
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// isFTSSyntaxError matches the errors FTS5 raises on malformed MATCH input.
func isFTSSyntaxError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "fts5: syntax error") ||
		strings.Contains(msg, "unknown special query") ||
		strings.Contains(msg, "malformed MATCH expression") ||
		strings.Contains(msg, "no such column")
}
