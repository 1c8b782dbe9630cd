package storage

// GetStats summarizes the index contents.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{Diagnostics: map[string]int{}}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM files", &stats.Files},
		{"SELECT COUNT(*) FROM symbols", &stats.Symbols},
		{"SELECT COUNT(*) FROM symbols WHERE kind = 'class'", &stats.Classes},
		{"SELECT COUNT(*) FROM symbols WHERE kind IN ('function', 'method')", &stats.Functions},
		{"SELECT COUNT(*) FROM calls", &stats.Calls},
		{"SELECT COUNT(*) FROM refs", &stats.Refs},
		{"SELECT COUNT(*) FROM imports", &stats.Imports},
		{"SELECT COUNT(*) FROM files WHERE parse_error IS NOT NULL", &stats.ParseErrors},
	}
	for _, c := range counts {
		if err := db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	rows, err := db.Query("SELECT severity, COUNT(*) FROM diagnostics WHERE is_resolved = 0 GROUP BY severity")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, err
		}
		stats.Diagnostics[severity] = count
	}
	return stats, rows.Err()
}
