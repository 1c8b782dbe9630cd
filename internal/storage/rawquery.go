package storage

import (
	"strings"

	"codeindex/internal/errors"
)

// Row is one result row of a rule query, keyed by column name.
type Row map[string]interface{}

// Int64 reads a column as int64, tolerating the types the driver hands
// back. ok is false when the column is absent or NULL.
func (r Row) Int64(column string) (int64, bool) {
	v, present := r[column]
	if !present || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// String reads a column as a string; absent or NULL yields "".
func (r Row) String(column string) string {
	v, present := r[column]
	if !present || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return ""
}

// QueryRows executes a single read-only SELECT and returns its rows keyed
// by column name. This is the only path rule queries run through: anything
// that is not one SELECT (or WITH...SELECT) statement is rejected.
func (db *DB) QueryRows(query string) ([]Row, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, errors.New(errors.QueryInvalid, "empty query")
	}

	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return nil, errors.New(errors.QueryInvalid, "only SELECT queries are allowed")
	}

	// A trailing semicolon is tolerated; an interior one means a second
	// statement.
	body := strings.TrimRight(trimmed, "; \t\n\r")
	if strings.Contains(body, ";") {
		return nil, errors.New(errors.QueryInvalid, "multiple statements are not allowed")
	}

	rows, err := db.Query(body)
	if err != nil {
		return nil, errors.Wrap(errors.QueryInvalid, "query failed", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
