package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// SetKnowledge stores an arbitrary JSON-encodable value under a key.
func (db *DB) SetKnowledge(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode knowledge %s: %w", key, err)
	}

	_, err = db.Exec(`
		INSERT INTO knowledge (key, value_json, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET
			value_json = excluded.value_json,
			updated_at = excluded.updated_at
	`, key, string(data))
	if err != nil {
		return fmt.Errorf("failed to store knowledge %s: %w", key, err)
	}
	return nil
}

// GetKnowledge decodes the value stored under key into out. Returns false
// when the key is absent.
func (db *DB) GetKnowledge(key string, out interface{}) (bool, error) {
	var valueJSON string
	err := db.QueryRow("SELECT value_json FROM knowledge WHERE key = ?", key).Scan(&valueJSON)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := json.Unmarshal([]byte(valueJSON), out); err != nil {
		return false, fmt.Errorf("failed to decode knowledge %s: %w", key, err)
	}
	return true, nil
}
