package storage

import (
	"database/sql"
	"fmt"
)

// AddAnnotation stores a note. TargetPath/TargetSymbol carry the stable
// identity; FileID/SymbolID are best-effort caches from resolution time.
func (db *DB) AddAnnotation(a *Annotation) (int64, error) {
	author := a.Author
	if author == "" {
		author = "user"
	}

	res, err := db.Exec(`
		INSERT INTO annotations (file_id, symbol_id, target_path, target_symbol, text, author)
		VALUES (?, ?, ?, ?, ?, ?)
	`, nullableID(a.FileID), nullableID(a.SymbolID), a.TargetPath, a.TargetSymbol, a.Text, author)
	if err != nil {
		return 0, fmt.Errorf("failed to add annotation: %w", err)
	}
	return res.LastInsertId()
}

// AnnotationsFor returns notes matching a symbol name and/or file path by
// their stable keys, newest first. Either argument may be empty.
func (db *DB) AnnotationsFor(targetSymbol, targetPath string) ([]Annotation, error) {
	query := `
		SELECT annotation_id, file_id, symbol_id, target_path, target_symbol, text, author, created_at
		FROM annotations WHERE 1=1
	`
	var args []interface{}

	if targetSymbol != "" {
		query += " AND target_symbol = ?"
		args = append(args, targetSymbol)
	}
	if targetPath != "" {
		query += " AND target_path = ?"
		args = append(args, targetPath)
	}
	query += " ORDER BY annotation_id DESC"

	return db.queryAnnotations(query, args...)
}

// ListAnnotations returns recent notes, newest first.
func (db *DB) ListAnnotations(limit int) ([]Annotation, error) {
	if limit <= 0 {
		limit = 50
	}
	return db.queryAnnotations(`
		SELECT annotation_id, file_id, symbol_id, target_path, target_symbol, text, author, created_at
		FROM annotations ORDER BY annotation_id DESC LIMIT ?
	`, limit)
}

func (db *DB) queryAnnotations(query string, args ...interface{}) ([]Annotation, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var annotations []Annotation
	for rows.Next() {
		var a Annotation
		var fileID, symbolID sql.NullInt64
		if err := rows.Scan(&a.ID, &fileID, &symbolID, &a.TargetPath, &a.TargetSymbol, &a.Text, &a.Author, &a.CreatedAt); err != nil {
			return nil, err
		}
		if fileID.Valid {
			a.FileID = &fileID.Int64
		}
		if symbolID.Valid {
			a.SymbolID = &symbolID.Int64
		}
		annotations = append(annotations, a)
	}
	return annotations, rows.Err()
}
