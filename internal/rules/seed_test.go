package rules

import (
	"testing"

	"codeindex/internal/testutil"
)

func TestSeedFromInstructions(t *testing.T) {
	_, db := newBareEngine(t)
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "CLAUDE.md", "Always run the linter.\n")
	testutil.WriteFile(t, dir, "CONTRIBUTING.md", "Be kind.\n")

	count, err := SeedFromInstructions(db, dir, nil)
	if err != nil {
		t.Fatalf("SeedFromInstructions: %v", err)
	}
	if count != 2 {
		t.Fatalf("seeded %d instruction files, want 2", count)
	}

	var entry struct {
		Path string `json:"path"`
		Size int64  `json:"size"`
	}
	ok, err := db.GetKnowledge("instructions_file:CLAUDE.md", &entry)
	if err != nil {
		t.Fatalf("GetKnowledge: %v", err)
	}
	if !ok {
		t.Fatal("CLAUDE.md knowledge entry missing")
	}
	if entry.Size != int64(len("Always run the linter.\n")) {
		t.Errorf("recorded size = %d", entry.Size)
	}
	if entry.Path == "" {
		t.Error("recorded path is empty")
	}
}

func TestSeedFromInstructionsExtraCandidates(t *testing.T) {
	_, db := newBareEngine(t)
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "docs/GUIDE.md", "House rules.\n")

	count, err := SeedFromInstructions(db, dir, []string{"docs/GUIDE.md"})
	if err != nil {
		t.Fatalf("SeedFromInstructions: %v", err)
	}
	if count != 1 {
		t.Fatalf("seeded %d files, want 1", count)
	}

	var entry struct {
		Path string `json:"path"`
	}
	ok, err := db.GetKnowledge("instructions_file:docs/GUIDE.md", &entry)
	if err != nil {
		t.Fatalf("GetKnowledge: %v", err)
	}
	if !ok {
		t.Fatal("extra candidate was not recorded")
	}
}

func TestSeedFromInstructionsNothingFound(t *testing.T) {
	_, db := newBareEngine(t)

	count, err := SeedFromInstructions(db, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("SeedFromInstructions: %v", err)
	}
	if count != 0 {
		t.Errorf("seeded %d files from an empty project, want 0", count)
	}
}
