package rules

import (
	"path/filepath"
	"testing"

	"codeindex/internal/testutil"
)

const ruleImportYAML = `rules:
  - id: TODO_COMMENT
    name: Symbol named todo
    description: Placeholder symbols left in the tree
    severity: info
    query: >
      SELECT s.symbol_id, s.name, s.kind, s.line_start, f.rel_path, f.file_id
      FROM symbols s JOIN files f ON s.file_id = f.file_id
      WHERE s.name LIKE '%todo%'
    weight: 2.0
    learned_from: review-2024-06

  - name: Missing its id
    query: SELECT 1

  - id: BAD_SQL
    name: Writes are rejected
    query: DELETE FROM files
`

func TestImportRules(t *testing.T) {
	e, db := newFixtureEngine(t)

	dir := t.TempDir()
	testutil.WriteFile(t, dir, "rules.yaml", ruleImportYAML)

	report, err := e.ImportRules(filepath.Join(dir, "rules.yaml"))
	if err != nil {
		t.Fatalf("ImportRules: %v", err)
	}

	if len(report.Imported) != 1 || report.Imported[0] != "TODO_COMMENT" {
		t.Errorf("imported = %v, want [TODO_COMMENT]", report.Imported)
	}
	if len(report.Skipped) != 2 {
		t.Fatalf("got %d skipped entries, want 2: %+v", len(report.Skipped), report.Skipped)
	}
	if report.Skipped[0].Reason != "missing id" {
		t.Errorf("first skip reason = %q", report.Skipped[0].Reason)
	}
	if report.Skipped[1].ID != "BAD_SQL" || report.Skipped[1].Reason == "" {
		t.Errorf("second skip = %+v, want BAD_SQL with a rejection reason", report.Skipped[1])
	}

	rule, err := db.GetRule("TODO_COMMENT")
	if err != nil {
		t.Fatalf("GetRule: %v", err)
	}
	if rule == nil {
		t.Fatal("imported rule not persisted")
	}
	if rule.Severity != "info" || rule.Weight != 2.0 || rule.LearnedFrom != "review-2024-06" {
		t.Errorf("imported rule fields = severity %s weight %v learned_from %s",
			rule.Severity, rule.Weight, rule.LearnedFrom)
	}

	// The imported rule runs like any other.
	if _, err := e.RunOne("TODO_COMMENT"); err != nil {
		t.Fatalf("RunOne on imported rule: %v", err)
	}
}

func TestImportRulesUnreadableFile(t *testing.T) {
	e, _ := newBareEngine(t)

	if _, err := e.ImportRules(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing rule file")
	}
}

func TestImportRulesMalformedYAML(t *testing.T) {
	e, _ := newBareEngine(t)

	dir := t.TempDir()
	testutil.WriteFile(t, dir, "rules.yaml", "rules: [unclosed\n")

	if _, err := e.ImportRules(filepath.Join(dir, "rules.yaml")); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}
