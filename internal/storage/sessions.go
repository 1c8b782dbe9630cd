package storage

import (
	"database/sql"
	"fmt"
)

// autoEndSummary marks sessions that were force-ended when a new one began.
const autoEndSummary = "Auto-ended by new session"

// StartSession opens a new session and returns its ID. At most one session
// is active at a time; any session still open is ended here, at the write
// path, so the invariant holds regardless of caller.
func (db *DB) StartSession(transcriptPath string) (int64, error) {
	var newID int64
	err := db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			UPDATE sessions SET ended_at = datetime('now'), summary = ?
			WHERE ended_at IS NULL
		`, autoEndSummary); err != nil {
			return fmt.Errorf("failed to auto-end active session: %w", err)
		}

		res, err := tx.Exec(`
			INSERT INTO sessions (transcript_path) VALUES (?)
		`, nullableString(transcriptPath))
		if err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}
		newID, err = res.LastInsertId()
		return err
	})
	return newID, err
}

// EndSession closes a session with an optional summary.
func (db *DB) EndSession(sessionID int64, summary string) error {
	_, err := db.Exec(`
		UPDATE sessions SET ended_at = datetime('now'), summary = ?
		WHERE session_id = ?
	`, nullableString(summary), sessionID)
	if err != nil {
		return fmt.Errorf("failed to end session %d: %w", sessionID, err)
	}
	return nil
}

// ActiveSession returns the open session, or nil when none is active.
func (db *DB) ActiveSession() (*Session, error) {
	row := db.QueryRow(`
		SELECT session_id, started_at, ended_at, transcript_path, summary
		FROM sessions WHERE ended_at IS NULL
		ORDER BY session_id DESC LIMIT 1
	`)

	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession returns one session or nil.
func (db *DB) GetSession(sessionID int64) (*Session, error) {
	row := db.QueryRow(`
		SELECT session_id, started_at, ended_at, transcript_path, summary
		FROM sessions WHERE session_id = ?
	`, sessionID)

	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SessionHistory returns recent sessions, newest first, each with its
// recorded change count.
func (db *DB) SessionHistory(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.Query(`
		SELECT s.session_id, s.started_at, s.ended_at, s.transcript_path, s.summary,
		       (SELECT COUNT(*) FROM change_log c WHERE c.session_id = s.session_id)
		FROM sessions s
		ORDER BY s.session_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var endedAt, transcriptPath, summary sql.NullString
		if err := rows.Scan(&s.ID, &s.StartedAt, &endedAt, &transcriptPath, &summary, &s.ChangeCount); err != nil {
			return nil, err
		}
		s.EndedAt = endedAt.String
		s.TranscriptPath = transcriptPath.String
		s.Summary = summary.String
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// InsertChange attributes one file change to a session.
func (db *DB) InsertChange(sessionID, fileID int64, changeType, oldHash, newHash string) error {
	_, err := db.Exec(`
		INSERT INTO change_log (session_id, file_id, change_type, old_hash, new_hash)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, fileID, changeType, nullableString(oldHash), nullableString(newHash))
	if err != nil {
		return fmt.Errorf("failed to record change: %w", err)
	}
	return nil
}

// ChangesForSession returns a session's changes with file paths, oldest
// first.
func (db *DB) ChangesForSession(sessionID int64) ([]Change, error) {
	rows, err := db.Query(`
		SELECT c.change_id, c.session_id, c.file_id, c.change_type, c.old_hash, c.new_hash, c.changed_at, f.rel_path
		FROM change_log c
		JOIN files f ON c.file_id = f.file_id
		WHERE c.session_id = ?
		ORDER BY c.change_id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var c Change
		var oldHash, newHash sql.NullString
		if err := rows.Scan(&c.ID, &c.SessionID, &c.FileID, &c.ChangeType, &oldHash, &newHash, &c.ChangedAt, &c.File); err != nil {
			return nil, err
		}
		c.OldHash = oldHash.String
		c.NewHash = newHash.String
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

func scanSession(r rowScanner) (*Session, error) {
	var s Session
	var endedAt, transcriptPath, summary sql.NullString
	if err := r.Scan(&s.ID, &s.StartedAt, &endedAt, &transcriptPath, &summary); err != nil {
		return nil, err
	}
	s.EndedAt = endedAt.String
	s.TranscriptPath = transcriptPath.String
	s.Summary = summary.String
	return &s, nil
}
