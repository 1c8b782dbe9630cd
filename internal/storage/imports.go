package storage

import (
	"database/sql"
	"fmt"
)

// InsertImportsTx bulk-inserts import statements for one file.
func (db *DB) InsertImportsTx(tx *sql.Tx, fileID int64, imports []Import) error {
	if len(imports) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(`
		INSERT INTO imports (file_id, module, name, alias, is_from, line_no)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare import insert: %w", err)
	}
	defer stmt.Close()

	for _, imp := range imports {
		if _, err := stmt.Exec(fileID, imp.Module, nullableString(imp.Name),
			nullableString(imp.Alias), boolToInt(imp.IsFrom), imp.LineNo); err != nil {
			return fmt.Errorf("failed to insert import %s: %w", imp.Module, err)
		}
	}
	return nil
}

// ImportsOfFile returns the imports of one file ordered by line.
func (db *DB) ImportsOfFile(fileID int64) ([]Import, error) {
	return db.queryImports(`
		SELECT i.import_id, i.file_id, i.module, i.name, i.alias, i.is_from, i.line_no, f.rel_path
		FROM imports i JOIN files f ON i.file_id = f.file_id
		WHERE i.file_id = ? ORDER BY i.line_no
	`, fileID)
}

// AllImports returns every import with its file path, ordered by file then
// line. Feeds the import graph and the convention checker.
func (db *DB) AllImports() ([]Import, error) {
	return db.queryImports(`
		SELECT i.import_id, i.file_id, i.module, i.name, i.alias, i.is_from, i.line_no, f.rel_path
		FROM imports i JOIN files f ON i.file_id = f.file_id
		ORDER BY f.rel_path, i.line_no
	`)
}

func (db *DB) queryImports(query string, args ...interface{}) ([]Import, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var imports []Import
	for rows.Next() {
		var imp Import
		var name, alias sql.NullString
		var isFrom int
		if err := rows.Scan(&imp.ID, &imp.FileID, &imp.Module, &name, &alias, &isFrom, &imp.LineNo, &imp.File); err != nil {
			return nil, err
		}
		imp.Name = name.String
		imp.Alias = alias.String
		imp.IsFrom = isFrom != 0
		imports = append(imports, imp)
	}
	return imports, rows.Err()
}
