package differ

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"codeindex/internal/indexer"
	"codeindex/internal/logging"
	"codeindex/internal/storage"
	"codeindex/internal/testutil"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: logging.ErrorLevel})
}

// newIndexedProject writes the fixture project, indexes it, and returns a
// differ over the result plus the store and project root.
func newIndexedProject(t *testing.T) (*Differ, *storage.DB, string) {
	t.Helper()

	dir := t.TempDir()
	testutil.WriteFixtureProject(t, dir)

	db, err := storage.Open(dir, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ix := indexer.New(db, dir, nil, testLogger())
	if _, err := ix.FullRebuild(context.Background()); err != nil {
		t.Fatalf("FullRebuild: %v", err)
	}
	return New(db, ix), db, dir
}

func changesByPath(changes []FileChange) map[string]FileChange {
	m := make(map[string]FileChange, len(changes))
	for _, c := range changes {
		m[c.RelPath] = c
	}
	return m
}

func TestDetectCurrentChangesClean(t *testing.T) {
	d, _, _ := newIndexedProject(t)

	changes, err := d.DetectCurrentChanges()
	if err != nil {
		t.Fatalf("DetectCurrentChanges: %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("changes = %+v, want none on a freshly indexed tree", changes)
	}
}

func TestDetectCurrentChanges(t *testing.T) {
	d, _, dir := newIndexedProject(t)

	testutil.WriteFile(t, dir, "newfile.py", "def newcomer():\n    return 1\n")
	testutil.WriteFile(t, dir, "pkg/utils.py", "def helper_function(value):\n    return value * 3\n")
	if err := os.Remove(filepath.Join(dir, "consumer.py")); err != nil {
		t.Fatal(err)
	}

	changes, err := d.DetectCurrentChanges()
	if err != nil {
		t.Fatalf("DetectCurrentChanges: %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("got %d changes, want 3: %+v", len(changes), changes)
	}
	byPath := changesByPath(changes)

	added := byPath["newfile.py"]
	if added.ChangeType != ChangeAdded {
		t.Errorf("newfile.py = %q, want added", added.ChangeType)
	}
	if added.NewHash == "" || added.OldHash != "" {
		t.Errorf("added hashes = old %q new %q, want only new set", added.OldHash, added.NewHash)
	}

	modified := byPath["pkg/utils.py"]
	if modified.ChangeType != ChangeModified {
		t.Errorf("pkg/utils.py = %q, want modified", modified.ChangeType)
	}
	if modified.OldHash == "" || modified.NewHash == "" || modified.OldHash == modified.NewHash {
		t.Errorf("modified hashes = old %q new %q, want distinct non-empty", modified.OldHash, modified.NewHash)
	}

	deleted := byPath["consumer.py"]
	if deleted.ChangeType != ChangeDeleted {
		t.Errorf("consumer.py = %q, want deleted", deleted.ChangeType)
	}
	if deleted.OldHash == "" || deleted.NewHash != "" {
		t.Errorf("deleted hashes = old %q new %q, want only old set", deleted.OldHash, deleted.NewHash)
	}
}

func TestRecordChanges(t *testing.T) {
	d, db, dir := newIndexedProject(t)

	sessionID, err := db.StartSession("")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	// An added file has no index row yet, so it cannot be attributed and
	// is silently skipped. The modified and deleted files still resolve.
	testutil.WriteFile(t, dir, "newfile.py", "def newcomer():\n    return 1\n")
	testutil.WriteFile(t, dir, "pkg/utils.py", "def helper_function(value):\n    return value * 3\n")
	if err := os.Remove(filepath.Join(dir, "consumer.py")); err != nil {
		t.Fatal(err)
	}

	changes, err := d.RecordChanges(sessionID, nil)
	if err != nil {
		t.Fatalf("RecordChanges: %v", err)
	}
	if len(changes) != 3 {
		t.Fatalf("returned %d changes, want 3", len(changes))
	}

	recorded, err := d.ChangesSinceSession(sessionID)
	if err != nil {
		t.Fatalf("ChangesSinceSession: %v", err)
	}
	if len(recorded) != 2 {
		t.Fatalf("recorded %d changes, want 2: %+v", len(recorded), recorded)
	}
	byFile := make(map[string]storage.Change, len(recorded))
	for _, c := range recorded {
		if c.File == "" {
			t.Errorf("change %+v has no file path", c)
		}
		byFile[c.File] = c
	}
	if byFile["pkg/utils.py"].ChangeType != ChangeModified {
		t.Errorf("pkg/utils.py recorded as %q, want modified", byFile["pkg/utils.py"].ChangeType)
	}
	if byFile["consumer.py"].ChangeType != ChangeDeleted {
		t.Errorf("consumer.py recorded as %q, want deleted", byFile["consumer.py"].ChangeType)
	}
}

func TestRecordChangesExplicitList(t *testing.T) {
	d, db, _ := newIndexedProject(t)

	sessionID, err := db.StartSession("")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	explicit := []FileChange{
		{RelPath: "main.py", ChangeType: ChangeModified, OldHash: "a", NewHash: "b"},
		{RelPath: "not/indexed.py", ChangeType: ChangeAdded, NewHash: "c"},
	}
	returned, err := d.RecordChanges(sessionID, explicit)
	if err != nil {
		t.Fatalf("RecordChanges: %v", err)
	}
	if len(returned) != 2 {
		t.Fatalf("returned %d changes, want the 2 given", len(returned))
	}

	recorded, err := d.ChangesSinceSession(sessionID)
	if err != nil {
		t.Fatalf("ChangesSinceSession: %v", err)
	}
	if len(recorded) != 1 {
		t.Fatalf("recorded %d changes, want 1", len(recorded))
	}
	if recorded[0].File != "main.py" || recorded[0].OldHash != "a" || recorded[0].NewHash != "b" {
		t.Errorf("recorded = %+v, want main.py with hashes a/b", recorded[0])
	}
}
