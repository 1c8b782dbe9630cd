// Package differ compares on-disk file state against the index to produce
// change sets for session tracking.
package differ

import (
	"sort"

	"codeindex/internal/indexer"
	"codeindex/internal/storage"
)

// Change types recorded in the change log.
const (
	ChangeAdded    = "added"
	ChangeModified = "modified"
	ChangeDeleted  = "deleted"
)

// FileChange is one detected difference between disk and index.
type FileChange struct {
	RelPath    string `json:"rel_path"`
	ChangeType string `json:"change_type"`
	OldHash    string `json:"old_hash,omitempty"`
	NewHash    string `json:"new_hash,omitempty"`
}

// Differ detects file changes relative to the last index update.
type Differ struct {
	db *storage.DB
	ix *indexer.Indexer
}

// New creates a differ over the given store and indexer.
func New(db *storage.DB, ix *indexer.Indexer) *Differ {
	return &Differ{db: db, ix: ix}
}

// DetectCurrentChanges compares every discovered file against the stored
// hashes: an unknown path is added, a differing hash is modified, and any
// indexed path missing from discovery is deleted. Discovered files come
// first in walk order, deletions follow sorted by path.
func (d *Differ) DetectCurrentChanges() ([]FileChange, error) {
	files := d.ix.DiscoverFiles()
	current := make(map[string]bool, len(files))

	stored, err := d.db.FileHashes()
	if err != nil {
		return nil, err
	}

	var changes []FileChange
	for _, f := range files {
		current[f.RelPath] = true

		hash, hashErr := indexer.HashFile(f.AbsPath)
		if hashErr != nil {
			hash = ""
		}
		oldHash, exists := stored[f.RelPath]
		switch {
		case !exists:
			changes = append(changes, FileChange{
				RelPath:    f.RelPath,
				ChangeType: ChangeAdded,
				NewHash:    hash,
			})
		case oldHash != hash:
			changes = append(changes, FileChange{
				RelPath:    f.RelPath,
				ChangeType: ChangeModified,
				OldHash:    oldHash,
				NewHash:    hash,
			})
		}
	}

	var deleted []string
	for rel := range stored {
		if !current[rel] {
			deleted = append(deleted, rel)
		}
	}
	sort.Strings(deleted)
	for _, rel := range deleted {
		changes = append(changes, FileChange{
			RelPath:    rel,
			ChangeType: ChangeDeleted,
			OldHash:    stored[rel],
		})
	}
	return changes, nil
}

// RecordChanges appends changes to a session's change log. A nil list means
// detect fresh. Changes whose path no longer resolves to an indexed file
// row are skipped.
func (d *Differ) RecordChanges(sessionID int64, changes []FileChange) ([]FileChange, error) {
	if changes == nil {
		detected, err := d.DetectCurrentChanges()
		if err != nil {
			return nil, err
		}
		changes = detected
	}

	for _, c := range changes {
		f, err := d.db.GetFileByPath(c.RelPath)
		if err != nil {
			return nil, err
		}
		if f == nil {
			continue
		}
		if err := d.db.InsertChange(sessionID, f.ID, c.ChangeType, c.OldHash, c.NewHash); err != nil {
			return nil, err
		}
	}
	return changes, nil
}

// ChangesSinceSession returns the persisted change log for a session,
// joined with file paths.
func (d *Differ) ChangesSinceSession(sessionID int64) ([]storage.Change, error) {
	return d.db.ChangesForSession(sessionID)
}
