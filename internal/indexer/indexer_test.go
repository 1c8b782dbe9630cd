package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeindex/internal/logging"
	"codeindex/internal/storage"
	"codeindex/internal/testutil"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: logging.ErrorLevel})
}

// newFixtureIndexer writes the fixture project into a temp dir and returns
// an indexer over it together with its store and root.
func newFixtureIndexer(t *testing.T) (*Indexer, *storage.DB, string) {
	t.Helper()

	dir := t.TempDir()
	testutil.WriteFixtureProject(t, dir)

	db, err := storage.Open(dir, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return New(db, dir, nil, testLogger()), db, dir
}

func rebuild(t *testing.T, ix *Indexer) *storage.Stats {
	t.Helper()

	stats, err := ix.FullRebuild(context.Background())
	if err != nil {
		t.Fatalf("FullRebuild: %v", err)
	}
	return stats
}

func incremental(t *testing.T, ix *Indexer) *ChangeCounts {
	t.Helper()

	counts, err := ix.Incremental(context.Background())
	if err != nil {
		t.Fatalf("Incremental: %v", err)
	}
	return counts
}

func appendToFile(t *testing.T, path, text string) {
	t.Helper()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(text); err != nil {
		t.Fatalf("append to %s: %v", path, err)
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	if err := os.WriteFile(path, []byte("hello\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	want := "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03"
	if got != want {
		t.Errorf("HashFile = %s, want %s", got, want)
	}

	if _, err := HashFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("HashFile on a missing file should fail")
	}
}

func TestDiscoverFiles(t *testing.T) {
	ix, _, _ := newFixtureIndexer(t)

	files := ix.DiscoverFiles()
	if len(files) != 7 {
		t.Fatalf("discovered %d files, want 7", len(files))
	}

	rels := make(map[string]bool, len(files))
	for _, f := range files {
		if strings.Contains(f.RelPath, "\\") {
			t.Errorf("rel path %q contains a backslash", f.RelPath)
		}
		if !filepath.IsAbs(f.AbsPath) {
			t.Errorf("abs path %q is not absolute", f.AbsPath)
		}
		rels[f.RelPath] = true
	}
	for _, want := range []string{"main.py", "consumer.py", "pkg/__init__.py", "pkg/manager.py", "pkg/models.py", "pkg/signals.py", "pkg/utils.py"} {
		if !rels[want] {
			t.Errorf("discovery missed %s", want)
		}
	}
}

func TestDiscoverSkipsJunkDirs(t *testing.T) {
	ix, _, dir := newFixtureIndexer(t)

	testutil.WriteFile(t, dir, "__pycache__/cached.py", "x = 1\n")
	testutil.WriteFile(t, dir, "build/lib/mod.py", "x = 1\n")
	testutil.WriteFile(t, dir, ".venv/lib/site.py", "x = 1\n")
	testutil.WriteFile(t, dir, "demo.egg-info/meta.py", "x = 1\n")
	testutil.WriteFile(t, dir, "README.md", "readme\n")

	if got := len(ix.DiscoverFiles()); got != 7 {
		t.Fatalf("discovered %d files, want 7", got)
	}
}

func TestDiscoverRespectsIgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFixtureProject(t, dir)
	testutil.WriteFile(t, dir, ".gitignore", "scratch/\n*_wip.py\n")
	testutil.WriteFile(t, dir, "scratch/draft.py", "x = 1\n")
	testutil.WriteFile(t, dir, "pkg/models_wip.py", "x = 1\n")
	testutil.WriteFile(t, dir, "generated_pb2.py", "x = 1\n")

	db, err := storage.Open(dir, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ix := New(db, dir, []string{"*_pb2.py"}, testLogger())
	files := ix.DiscoverFiles()
	if len(files) != 7 {
		names := make([]string, 0, len(files))
		for _, f := range files {
			names = append(names, f.RelPath)
		}
		t.Fatalf("discovered %v, want only the 7 project files", names)
	}
}

func TestFullRebuild(t *testing.T) {
	ix, db, _ := newFixtureIndexer(t)

	stats := rebuild(t, ix)
	if stats.Files != 7 {
		t.Errorf("Files = %d, want 7", stats.Files)
	}
	if stats.Symbols != 18 {
		t.Errorf("Symbols = %d, want 18", stats.Symbols)
	}
	if stats.Classes != 3 {
		t.Errorf("Classes = %d, want 3", stats.Classes)
	}
	if stats.Functions != 15 {
		t.Errorf("Functions = %d, want 15", stats.Functions)
	}
	if stats.Imports != 5 {
		t.Errorf("Imports = %d, want 5", stats.Imports)
	}
	if stats.ParseErrors != 0 {
		t.Errorf("ParseErrors = %d, want 0", stats.ParseErrors)
	}
	if stats.Calls == 0 {
		t.Error("Calls = 0, want > 0")
	}

	// Methods must point at their class row.
	spawns, err := db.FindSymbolsExact("spawn", "", 10)
	if err != nil {
		t.Fatalf("FindSymbolsExact: %v", err)
	}
	if len(spawns) != 1 {
		t.Fatalf("found %d spawn symbols, want 1", len(spawns))
	}
	if spawns[0].Kind != "method" || spawns[0].ParentName != "TaskManager" {
		t.Errorf("spawn = kind %q parent %q, want method under TaskManager", spawns[0].Kind, spawns[0].ParentName)
	}

	// Call sites must be attributed to their enclosing function.
	callers, err := db.Callers("helper_function", 30)
	if err != nil {
		t.Fatalf("Callers: %v", err)
	}
	if len(callers) != 1 {
		t.Fatalf("helper_function has %d callers, want 1", len(callers))
	}
	if callers[0].File != "main.py" || callers[0].CallerName != "main" {
		t.Errorf("caller = %s in %s, want main in main.py", callers[0].CallerName, callers[0].File)
	}
}

func TestFullRebuildRecordsKnowledge(t *testing.T) {
	ix, db, _ := newFixtureIndexer(t)
	rebuild(t, ix)

	var record struct {
		Timestamp      string  `json:"timestamp"`
		ElapsedSeconds float64 `json:"elapsed_seconds"`
		FilesIndexed   int     `json:"files_indexed"`
	}
	found, err := db.GetKnowledge("last_rebuild", &record)
	if err != nil {
		t.Fatalf("GetKnowledge: %v", err)
	}
	if !found {
		t.Fatal("last_rebuild knowledge entry missing")
	}
	if record.FilesIndexed != 7 {
		t.Errorf("files_indexed = %d, want 7", record.FilesIndexed)
	}
	if record.Timestamp == "" {
		t.Error("timestamp is empty")
	}
}

func TestFullRebuildTwiceIsClean(t *testing.T) {
	ix, _, _ := newFixtureIndexer(t)

	first := rebuild(t, ix)
	second := rebuild(t, ix)
	if second.Files != first.Files || second.Symbols != first.Symbols || second.Calls != first.Calls {
		t.Errorf("second rebuild diverged: %+v vs %+v", second, first)
	}
}

func TestFullRebuildPopulatesFTS(t *testing.T) {
	ix, db, _ := newFixtureIndexer(t)
	rebuild(t, ix)

	hits, err := db.SearchFTS("pipeline", 10)
	if err != nil {
		t.Fatalf("SearchFTS: %v", err)
	}
	var found bool
	for _, h := range hits {
		if h.RelPath == "pkg/utils.py" {
			found = true
		}
	}
	if !found {
		t.Errorf("docstring search missed pkg/utils.py, got %+v", hits)
	}
}

func TestIncrementalNoChanges(t *testing.T) {
	ix, _, _ := newFixtureIndexer(t)
	rebuild(t, ix)

	counts := incremental(t, ix)
	if counts.Added != 0 || counts.Changed != 0 || counts.Removed != 0 {
		t.Errorf("counts = %+v, want all zero", counts)
	}
}

func TestIncrementalTouchWithoutEdit(t *testing.T) {
	ix, _, dir := newFixtureIndexer(t)
	rebuild(t, ix)

	// Rewriting identical bytes must not trigger a reindex.
	path := filepath.Join(dir, "main.py")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	counts := incremental(t, ix)
	if counts.Added != 0 || counts.Changed != 0 || counts.Removed != 0 {
		t.Errorf("counts = %+v, want all zero", counts)
	}
}

func TestIncrementalAddChangeRemove(t *testing.T) {
	ix, db, dir := newFixtureIndexer(t)
	rebuild(t, ix)

	testutil.WriteFile(t, dir, "extra.py", "def extra_job():\n    return 1\n")
	appendToFile(t, filepath.Join(dir, "pkg/utils.py"), "\n\ndef fresh_helper(value):\n    return value + 3\n")
	if err := os.Remove(filepath.Join(dir, "consumer.py")); err != nil {
		t.Fatal(err)
	}

	counts := incremental(t, ix)
	if counts.Added != 1 || counts.Changed != 1 || counts.Removed != 1 {
		t.Fatalf("counts = %+v, want added=1 changed=1 removed=1", counts)
	}

	for _, name := range []string{"extra_job", "fresh_helper"} {
		syms, err := db.FindSymbolsExact(name, "", 10)
		if err != nil {
			t.Fatalf("FindSymbolsExact(%s): %v", name, err)
		}
		if len(syms) != 1 {
			t.Errorf("found %d %s symbols, want 1", len(syms), name)
		}
	}

	// The changed file must not keep duplicate rows.
	helpers, err := db.FindSymbolsExact("helper_function", "", 10)
	if err != nil {
		t.Fatalf("FindSymbolsExact: %v", err)
	}
	if len(helpers) != 1 {
		t.Errorf("found %d helper_function symbols, want 1", len(helpers))
	}

	// The removed file must be gone entirely.
	f, err := db.GetFileByPath("consumer.py")
	if err != nil {
		t.Fatalf("GetFileByPath: %v", err)
	}
	if f != nil {
		t.Error("consumer.py row still present after removal")
	}
	jobs, err := db.FindSymbolsExact("run_jobs", "", 10)
	if err != nil {
		t.Fatalf("FindSymbolsExact: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("found %d run_jobs symbols, want 0", len(jobs))
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Files != 7 {
		t.Errorf("Files = %d, want 7", stats.Files)
	}
}

func TestReindexFile(t *testing.T) {
	ix, db, dir := newFixtureIndexer(t)
	rebuild(t, ix)

	appendToFile(t, filepath.Join(dir, "pkg/signals.py"), "\n\ndef repaint(dashboard):\n    dashboard.refresh()\n")
	if err := ix.ReindexFile(context.Background(), "pkg/signals.py"); err != nil {
		t.Fatalf("ReindexFile: %v", err)
	}

	repaints, err := db.FindSymbolsExact("repaint", "", 10)
	if err != nil {
		t.Fatalf("FindSymbolsExact: %v", err)
	}
	if len(repaints) != 1 {
		t.Errorf("found %d repaint symbols, want 1", len(repaints))
	}
	refreshes, err := db.FindSymbolsExact("refresh", "", 10)
	if err != nil {
		t.Fatalf("FindSymbolsExact: %v", err)
	}
	if len(refreshes) != 1 {
		t.Errorf("found %d refresh symbols, want 1", len(refreshes))
	}
}

func TestReindexFileRemovesDeleted(t *testing.T) {
	ix, db, dir := newFixtureIndexer(t)
	rebuild(t, ix)

	if err := os.Remove(filepath.Join(dir, "pkg/signals.py")); err != nil {
		t.Fatal(err)
	}
	if err := ix.ReindexFile(context.Background(), "pkg/signals.py"); err != nil {
		t.Fatalf("ReindexFile: %v", err)
	}

	f, err := db.GetFileByPath("pkg/signals.py")
	if err != nil {
		t.Fatalf("GetFileByPath: %v", err)
	}
	if f != nil {
		t.Error("pkg/signals.py row still present")
	}

	// Reindexing a path that was never indexed is a no-op.
	if err := ix.ReindexFile(context.Background(), "never/was.py"); err != nil {
		t.Fatalf("ReindexFile on unknown path: %v", err)
	}
}

func TestIndexUnreadableFile(t *testing.T) {
	ix, db, dir := newFixtureIndexer(t)

	// A dangling symlink is discovered but cannot be read.
	target := filepath.Join(dir, "real_target.py")
	if err := os.Symlink(target, filepath.Join(dir, "ghost.py")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	stats := rebuild(t, ix)
	if stats.Files != 8 {
		t.Errorf("Files = %d, want 8", stats.Files)
	}
	if stats.ParseErrors != 1 {
		t.Errorf("ParseErrors = %d, want 1", stats.ParseErrors)
	}

	f, err := db.GetFileByPath("ghost.py")
	if err != nil {
		t.Fatalf("GetFileByPath: %v", err)
	}
	if f == nil {
		t.Fatal("ghost.py has no file row")
	}
	if f.FileHash != "" {
		t.Errorf("FileHash = %q, want empty for unreadable file", f.FileHash)
	}
	if f.ParseError == "" {
		t.Error("ParseError is empty for unreadable file")
	}

	// Unreadable files stay skipped until they become readable.
	counts := incremental(t, ix)
	if counts.Added != 0 || counts.Changed != 0 || counts.Removed != 0 {
		t.Errorf("counts = %+v, want all zero while still unreadable", counts)
	}

	// Once the target exists the link resolves: the new file is added and
	// the formerly unreadable one is reindexed.
	testutil.WriteFile(t, dir, "real_target.py", "def back_online():\n    return 1\n")
	counts = incremental(t, ix)
	if counts.Added != 1 || counts.Changed != 1 {
		t.Errorf("counts = %+v, want added=1 changed=1", counts)
	}

	f, err = db.GetFileByPath("ghost.py")
	if err != nil {
		t.Fatalf("GetFileByPath: %v", err)
	}
	if f == nil || f.FileHash == "" || f.ParseError != "" {
		t.Errorf("ghost.py after recovery = %+v, want hash set and no parse error", f)
	}
}

func TestIndexSyntaxError(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "broken.py", "def good():\n    return 1\n\ndef bad(:\n    pass\n")

	db, err := storage.Open(dir, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ix := New(db, dir, nil, testLogger())
	stats := rebuild(t, ix)
	if stats.ParseErrors != 1 {
		t.Errorf("ParseErrors = %d, want 1", stats.ParseErrors)
	}

	f, err := db.GetFileByPath("broken.py")
	if err != nil {
		t.Fatalf("GetFileByPath: %v", err)
	}
	if f == nil || f.ParseError != "syntax error" {
		t.Fatalf("broken.py = %+v, want parse_error %q", f, "syntax error")
	}
	if f.FileHash == "" {
		t.Error("FileHash empty; syntax errors should still record content")
	}

	// Extraction keeps whatever the tree still contains.
	goods, err := db.FindSymbolsExact("good", "", 10)
	if err != nil {
		t.Fatalf("FindSymbolsExact: %v", err)
	}
	if len(goods) != 1 {
		t.Errorf("found %d good symbols, want 1", len(goods))
	}
}
