package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

const symbolSelect = `
	SELECT s.symbol_id, s.file_id, s.parent_id, s.kind, s.name,
	       s.params_json, s.return_type, s.decorators_json, s.bases_json,
	       s.docstring, s.line_start, s.line_end, s.complexity, s.is_async,
	       f.rel_path, p.name, p.kind
	FROM symbols s
	JOIN files f ON s.file_id = f.file_id
	LEFT JOIN symbols p ON s.parent_id = p.symbol_id
`

// InsertSymbolTx inserts one symbol and returns its ID.
func (db *DB) InsertSymbolTx(tx *sql.Tx, s *Symbol) (int64, error) {
	paramsJSON, err := marshalParams(s.Params)
	if err != nil {
		return 0, err
	}
	decoratorsJSON, err := marshalStrings(s.Decorators)
	if err != nil {
		return 0, err
	}
	basesJSON, err := marshalStrings(s.Bases)
	if err != nil {
		return 0, err
	}

	res, err := tx.Exec(`
		INSERT INTO symbols (file_id, parent_id, kind, name, params_json,
			return_type, decorators_json, bases_json, docstring,
			line_start, line_end, complexity, is_async)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.FileID, nullableID(s.ParentID), s.Kind, s.Name, paramsJSON,
		nullableString(s.ReturnType), decoratorsJSON, basesJSON,
		nullableString(s.Docstring), s.LineStart, s.LineEnd, s.Complexity,
		boolToInt(s.IsAsync))
	if err != nil {
		return 0, fmt.Errorf("failed to insert symbol %s: %w", s.Name, err)
	}
	return res.LastInsertId()
}

// SymbolFilter narrows FindSymbols results. Name and File match as
// substrings; Kind and Parent name match exactly where set.
type SymbolFilter struct {
	Name   string
	Kind   string
	File   string
	Parent string
	Limit  int
}

// FindSymbols returns symbols matching the filter, ordered by file path
// then start line.
func (db *DB) FindSymbols(filter SymbolFilter) ([]Symbol, error) {
	query := symbolSelect + " WHERE 1=1"
	var args []interface{}

	if filter.Name != "" {
		query += " AND s.name LIKE ?"
		args = append(args, "%"+filter.Name+"%")
	}
	if filter.Kind != "" {
		query += " AND s.kind = ?"
		args = append(args, filter.Kind)
	}
	if filter.File != "" {
		query += " AND f.rel_path LIKE ?"
		args = append(args, "%"+filter.File+"%")
	}
	if filter.Parent != "" {
		query += " AND p.name = ?"
		args = append(args, filter.Parent)
	}

	query += " ORDER BY f.rel_path, s.line_start"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)

	return db.querySymbols(query, args...)
}

// FindSymbolsExact returns symbols whose name matches exactly, optionally
// filtered by kind, ordered by file path then start line.
func (db *DB) FindSymbolsExact(name, kind string, limit int) ([]Symbol, error) {
	query := symbolSelect + " WHERE s.name = ?"
	args := []interface{}{name}
	if kind != "" {
		query += " AND s.kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY f.rel_path, s.line_start"
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)

	return db.querySymbols(query, args...)
}

// GetSymbolByID returns one symbol or nil.
func (db *DB) GetSymbolByID(id int64) (*Symbol, error) {
	symbols, err := db.querySymbols(symbolSelect+" WHERE s.symbol_id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, nil
	}
	return &symbols[0], nil
}

// SymbolsByFile returns all symbols of a file ordered by start line.
func (db *DB) SymbolsByFile(fileID int64) ([]Symbol, error) {
	return db.querySymbols(symbolSelect+" WHERE s.file_id = ? ORDER BY s.line_start", fileID)
}

// Siblings returns other symbols sharing the same parent, ordered by start
// line, excluding the symbol itself.
func (db *DB) Siblings(parentID, excludeID int64, limit int) ([]Symbol, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.querySymbols(symbolSelect+`
		WHERE s.parent_id = ? AND s.symbol_id != ?
		ORDER BY s.line_start LIMIT ?`, parentID, excludeID, limit)
}

// MethodsOfClass returns the method symbols whose parent is the given class.
func (db *DB) MethodsOfClass(classID int64) ([]Symbol, error) {
	return db.querySymbols(symbolSelect+`
		WHERE s.parent_id = ? AND s.kind = 'method'
		ORDER BY s.line_start`, classID)
}

func (db *DB) querySymbols(query string, args ...interface{}) ([]Symbol, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []Symbol
	for rows.Next() {
		s, err := scanSymbol(rows)
		if err != nil {
			return nil, err
		}
		symbols = append(symbols, *s)
	}
	return symbols, rows.Err()
}

func scanSymbol(r rowScanner) (*Symbol, error) {
	var s Symbol
	var parentID sql.NullInt64
	var paramsJSON, decoratorsJSON, basesJSON string
	var returnType, docstring, parentName, parentKind sql.NullString
	var isAsync int

	err := r.Scan(&s.ID, &s.FileID, &parentID, &s.Kind, &s.Name,
		&paramsJSON, &returnType, &decoratorsJSON, &basesJSON,
		&docstring, &s.LineStart, &s.LineEnd, &s.Complexity, &isAsync,
		&s.File, &parentName, &parentKind)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		s.ParentID = &parentID.Int64
	}
	s.ReturnType = returnType.String
	s.Docstring = docstring.String
	s.ParentName = parentName.String
	s.ParentKind = parentKind.String
	s.IsAsync = isAsync != 0

	if err := json.Unmarshal([]byte(paramsJSON), &s.Params); err != nil {
		s.Params = nil
	}
	if err := json.Unmarshal([]byte(decoratorsJSON), &s.Decorators); err != nil {
		s.Decorators = nil
	}
	if err := json.Unmarshal([]byte(basesJSON), &s.Bases); err != nil {
		s.Bases = nil
	}

	return &s, nil
}

func marshalStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to marshal string list: %w", err)
	}
	return string(data), nil
}

func marshalParams(params []Param) (string, error) {
	if params == nil {
		params = []Param{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal params: %w", err)
	}
	return string(data), nil
}

func nullableID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
