package storage

import (
	"database/sql"
	"fmt"
	"strconv"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createMetaTable(tx); err != nil {
			return err
		}

		if err := createFilesTable(tx); err != nil {
			return err
		}
		if err := createSymbolsTable(tx); err != nil {
			return err
		}
		if err := createCallsTable(tx); err != nil {
			return err
		}
		if err := createRefsTable(tx); err != nil {
			return err
		}
		if err := createImportsTable(tx); err != nil {
			return err
		}
		if err := createRulesTables(tx); err != nil {
			return err
		}
		if err := createDiagnosticsTable(tx); err != nil {
			return err
		}
		if err := createSessionTables(tx); err != nil {
			return err
		}
		if err := createAnnotationsTable(tx); err != nil {
			return err
		}
		if err := createKnowledgeTable(tx); err != nil {
			return err
		}
		if err := createFTSTable(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})

		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}

	if version == 0 {
		// Database file exists but carries no schema (e.g. created empty).
		return db.initializeSchema()
	}

	db.logger.Info("Running database migrations", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	// Run migrations sequentially as the schema evolves.

	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='meta'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var value string
	err = db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	version, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("corrupt schema_version %q: %w", value, err)
	}
	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec(`
		INSERT INTO meta (key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, strconv.Itoa(version))
	return err
}

// createMetaTable creates the key/value metadata table
func createMetaTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	return err
}

// createFilesTable creates the files table
func createFilesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS files (
			file_id INTEGER PRIMARY KEY AUTOINCREMENT,
			rel_path TEXT NOT NULL UNIQUE,
			file_hash TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT 'python',
			line_count INTEGER NOT NULL DEFAULT 0,
			parse_error TEXT,
			indexed_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create files table: %w", err)
	}
	return nil
}

// createSymbolsTable creates the symbols table
func createSymbolsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS symbols (
			symbol_id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id INTEGER NOT NULL REFERENCES files(file_id) ON DELETE CASCADE,
			parent_id INTEGER REFERENCES symbols(symbol_id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			params_json TEXT NOT NULL DEFAULT '[]',
			return_type TEXT,
			decorators_json TEXT NOT NULL DEFAULT '[]',
			bases_json TEXT NOT NULL DEFAULT '[]',
			docstring TEXT,
			line_start INTEGER NOT NULL,
			line_end INTEGER NOT NULL,
			complexity INTEGER NOT NULL DEFAULT 1,
			is_async INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create symbols table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_parent ON symbols(parent_id)",
		"CREATE INDEX IF NOT EXISTS idx_symbols_kind ON symbols(kind)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createCallsTable creates the calls table
func createCallsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS calls (
			call_id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id INTEGER NOT NULL REFERENCES files(file_id) ON DELETE CASCADE,
			caller_id INTEGER REFERENCES symbols(symbol_id) ON DELETE CASCADE,
			callee_expr TEXT NOT NULL,
			line_no INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create calls table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_calls_callee ON calls(callee_expr)",
		"CREATE INDEX IF NOT EXISTS idx_calls_caller ON calls(caller_id)",
		"CREATE INDEX IF NOT EXISTS idx_calls_file ON calls(file_id)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createRefsTable creates the refs table
func createRefsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS refs (
			ref_id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id INTEGER NOT NULL REFERENCES files(file_id) ON DELETE CASCADE,
			symbol_id INTEGER REFERENCES symbols(symbol_id) ON DELETE CASCADE,
			ref_kind TEXT NOT NULL DEFAULT 'read',
			target TEXT NOT NULL,
			name TEXT NOT NULL,
			line_no INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create refs table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_refs_target ON refs(target, name)",
		"CREATE INDEX IF NOT EXISTS idx_refs_symbol ON refs(symbol_id)",
		"CREATE INDEX IF NOT EXISTS idx_refs_name ON refs(name)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createImportsTable creates the imports table
func createImportsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS imports (
			import_id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id INTEGER NOT NULL REFERENCES files(file_id) ON DELETE CASCADE,
			module TEXT NOT NULL,
			name TEXT,
			alias TEXT,
			is_from INTEGER NOT NULL DEFAULT 0,
			line_no INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create imports table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_imports_module ON imports(module)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// createRulesTables creates the rules and rule_runs tables
func createRulesTables(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS rules (
			rule_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			severity TEXT NOT NULL DEFAULT 'info',
			query TEXT NOT NULL,
			is_builtin INTEGER NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 1,
			weight REAL NOT NULL DEFAULT 1.0,
			learned_from TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create rules table: %w", err)
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS rule_runs (
			run_id INTEGER PRIMARY KEY AUTOINCREMENT,
			rule_id TEXT NOT NULL REFERENCES rules(rule_id) ON DELETE CASCADE,
			findings_count INTEGER NOT NULL DEFAULT 0,
			useful_count INTEGER NOT NULL DEFAULT 0,
			ran_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create rule_runs table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_rule_runs_rule ON rule_runs(rule_id)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// createDiagnosticsTable creates the diagnostics table
func createDiagnosticsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS diagnostics (
			diag_id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id INTEGER NOT NULL REFERENCES files(file_id) ON DELETE CASCADE,
			rule_id TEXT,
			severity TEXT NOT NULL DEFAULT 'info',
			message TEXT NOT NULL,
			line_no INTEGER NOT NULL DEFAULT 0,
			context TEXT,
			is_resolved INTEGER NOT NULL DEFAULT 0,
			first_seen TEXT NOT NULL DEFAULT (datetime('now')),
			last_seen TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create diagnostics table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_diag_rule ON diagnostics(rule_id)",
		"CREATE INDEX IF NOT EXISTS idx_diag_file ON diagnostics(file_id)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createSessionTables creates the sessions and change_log tables
func createSessionTables(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL DEFAULT (datetime('now')),
			ended_at TEXT,
			transcript_path TEXT,
			summary TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS change_log (
			change_id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
			file_id INTEGER NOT NULL REFERENCES files(file_id) ON DELETE CASCADE,
			change_type TEXT NOT NULL,
			old_hash TEXT,
			new_hash TEXT,
			changed_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create change_log table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_change_log_session ON change_log(session_id)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// createAnnotationsTable creates the annotations table.
// The FK columns are SET NULL so notes survive file deletion and rebuilds;
// target_path/target_symbol remain the stable identity.
func createAnnotationsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS annotations (
			annotation_id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id INTEGER REFERENCES files(file_id) ON DELETE SET NULL,
			symbol_id INTEGER REFERENCES symbols(symbol_id) ON DELETE SET NULL,
			target_path TEXT NOT NULL DEFAULT '',
			target_symbol TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT 'user',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create annotations table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_annotations_target ON annotations(target_symbol, target_path)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// createKnowledgeTable creates the knowledge key/value table
func createKnowledgeTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS knowledge (
			key TEXT PRIMARY KEY,
			value_json TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create knowledge table: %w", err)
	}
	return nil
}

// createFTSTable creates the FTS5 virtual table over symbol names and
// docstrings, one row per file
func createFTSTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS fts USING fts5(
			rel_path,
			symbol_names,
			docstrings,
			tokenize='porter unicode61'
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create fts table: %w", err)
	}
	return nil
}
