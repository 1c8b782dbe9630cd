// Package sessions tracks editing sessions and their recorded file changes.
// At most one session is active at a time; the store enforces that at the
// write path, so the invariant survives process restarts.
package sessions

import (
	"codeindex/internal/differ"
	"codeindex/internal/storage"
)

// Tracker starts and ends sessions.
type Tracker struct {
	db *storage.DB
}

// NewTracker creates a tracker over the store.
func NewTracker(db *storage.DB) *Tracker {
	return &Tracker{db: db}
}

// Start begins a new session, force-ending any session still active, and
// returns the new session.
func (tr *Tracker) Start(transcriptPath string) (*storage.Session, error) {
	id, err := tr.db.StartSession(transcriptPath)
	if err != nil {
		return nil, err
	}
	return tr.db.GetSession(id)
}

// End closes a session. A zero sessionID means the active session; when
// none is active it returns nil without error.
func (tr *Tracker) End(sessionID int64, summary string) (*storage.Session, error) {
	if sessionID == 0 {
		active, err := tr.db.ActiveSession()
		if err != nil {
			return nil, err
		}
		if active == nil {
			return nil, nil
		}
		sessionID = active.ID
	}

	if err := tr.db.EndSession(sessionID, summary); err != nil {
		return nil, err
	}
	return tr.db.GetSession(sessionID)
}

// Active returns the open session, or nil when none is active.
func (tr *Tracker) Active() (*storage.Session, error) {
	return tr.db.ActiveSession()
}

// History returns recent sessions, newest first, with change counts.
func (tr *Tracker) History(limit int) ([]storage.Session, error) {
	return tr.db.SessionHistory(limit)
}

// History answers questions about what changed during sessions.
type History struct {
	db     *storage.DB
	differ *differ.Differ
}

// NewHistory creates a session history over the store and differ.
func NewHistory(db *storage.DB, d *differ.Differ) *History {
	return &History{db: db, differ: d}
}

// ChangesSince returns the persisted change log for a session.
func (h *History) ChangesSince(sessionID int64) ([]storage.Change, error) {
	return h.differ.ChangesSinceSession(sessionID)
}

// CurrentChanges returns files changed since the last index update.
func (h *History) CurrentChanges() ([]differ.FileChange, error) {
	return h.differ.DetectCurrentChanges()
}

// RecordSnapshot writes the current change set into a session's change log.
func (h *History) RecordSnapshot(sessionID int64) ([]differ.FileChange, error) {
	return h.differ.RecordChanges(sessionID, nil)
}
