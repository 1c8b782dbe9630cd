package rules

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"codeindex/internal/errors"
	"codeindex/internal/indexer"
	"codeindex/internal/logging"
	"codeindex/internal/storage"
	"codeindex/internal/testutil"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: logging.ErrorLevel})
}

// newFixtureEngine builds an engine over a fully indexed fixture project.
func newFixtureEngine(t *testing.T) (*Engine, *storage.DB) {
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
	return New(db, testLogger()), db
}

// newBareEngine builds an engine over an empty store, for tests that
// insert rows directly.
func newBareEngine(t *testing.T) (*Engine, *storage.DB) {
	t.Helper()

	db, err := storage.Open(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, testLogger()), db
}

func seedAll(t *testing.T, e *Engine) {
	t.Helper()

	n, err := e.SeedBuiltins()
	if err != nil {
		t.Fatalf("SeedBuiltins: %v", err)
	}
	if n != 3 {
		t.Fatalf("seeded %d rules, want 3", n)
	}
}

func findingsByRule(results []RunResult) map[string]int {
	counts := make(map[string]int, len(results))
	for _, r := range results {
		counts[r.RuleID] = r.FindingsCount
	}
	return counts
}

func messagesFor(t *testing.T, db *storage.DB, ruleID string) []string {
	t.Helper()

	diags, err := db.ListDiagnostics(storage.DiagnosticFilter{RuleID: ruleID})
	if err != nil {
		t.Fatalf("ListDiagnostics(%s): %v", ruleID, err)
	}
	messages := make([]string, len(diags))
	for i, d := range diags {
		messages[i] = d.Message
	}
	return messages
}

func containsMessage(messages []string, want string) bool {
	for _, m := range messages {
		if m == want {
			return true
		}
	}
	return false
}

func TestSeedBuiltinsIdempotent(t *testing.T) {
	e, db := newFixtureEngine(t)

	seedAll(t, e)
	seedAll(t, e)

	rules, err := db.ListRules(false)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("got %d rules after reseeding, want 3", len(rules))
	}
	for _, r := range rules {
		if !r.IsBuiltin || !r.Enabled {
			t.Errorf("rule %s: builtin=%v enabled=%v, want both true", r.ID, r.IsBuiltin, r.Enabled)
		}
	}
}

func TestRunAllFixtureFindings(t *testing.T) {
	e, db := newFixtureEngine(t)
	seedAll(t, e)

	results, err := e.RunAll()
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d run results, want 3", len(results))
	}

	counts := findingsByRule(results)
	if counts["DEAD_SYMBOL"] != 2 {
		t.Errorf("DEAD_SYMBOL findings = %d, want 2", counts["DEAD_SYMBOL"])
	}
	if counts["LARGE_SYMBOL"] != 1 {
		t.Errorf("LARGE_SYMBOL findings = %d, want 1", counts["LARGE_SYMBOL"])
	}
	if counts["CIRCULAR_IMPORT"] != 1 {
		t.Errorf("CIRCULAR_IMPORT findings = %d, want 1", counts["CIRCULAR_IMPORT"])
	}

	dead := messagesFor(t, db, "DEAD_SYMBOL")
	if !containsMessage(dead, "dead_function (function) -- never called") {
		t.Errorf("dead messages missing dead_function: %v", dead)
	}
	if !containsMessage(dead, "TaskManager.a_very_long_method_that_exceeds_fifty_lines (method) -- never called") {
		t.Errorf("dead messages missing the long method: %v", dead)
	}
	for _, m := range dead {
		if strings.Contains(m, "_internal_probe") {
			t.Errorf("underscore-prefixed symbol flagged as dead: %q", m)
		}
		if strings.Contains(m, "restart") {
			t.Errorf("restart makes calls and must not be flagged: %q", m)
		}
	}

	large := messagesFor(t, db, "LARGE_SYMBOL")
	want := "TaskManager.a_very_long_method_that_exceeds_fifty_lines: 56 lines"
	if len(large) != 1 || large[0] != want {
		t.Errorf("large messages = %v, want [%q]", large, want)
	}

	circular, err := db.ListDiagnostics(storage.DiagnosticFilter{RuleID: "CIRCULAR_IMPORT"})
	if err != nil {
		t.Fatalf("ListDiagnostics: %v", err)
	}
	if len(circular) != 1 {
		t.Fatalf("got %d circular findings, want 1", len(circular))
	}
	if circular[0].Message != "Circular import: pkg/manager.py <-> pkg/models.py" {
		t.Errorf("circular message = %q", circular[0].Message)
	}
	if circular[0].File != "pkg/manager.py" {
		t.Errorf("circular finding attached to %s, want pkg/manager.py", circular[0].File)
	}
	if circular[0].Severity != "warning" {
		t.Errorf("circular severity = %s, want warning", circular[0].Severity)
	}
}

func TestRunAllReplacesPriorFindings(t *testing.T) {
	e, db := newFixtureEngine(t)
	seedAll(t, e)

	if _, err := e.RunAll(); err != nil {
		t.Fatalf("first RunAll: %v", err)
	}
	results, err := e.RunAll()
	if err != nil {
		t.Fatalf("second RunAll: %v", err)
	}

	total := 0
	for _, r := range results {
		total += r.FindingsCount
	}
	diags, err := db.ListDiagnostics(storage.DiagnosticFilter{})
	if err != nil {
		t.Fatalf("ListDiagnostics: %v", err)
	}
	if len(diags) != total {
		t.Errorf("stored %d diagnostics after rerun, want %d (no accumulation)", len(diags), total)
	}
}

func TestRunOneAccumulates(t *testing.T) {
	e, db := newFixtureEngine(t)
	seedAll(t, e)

	if _, err := e.RunAll(); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	n, err := e.RunOne("DEAD_SYMBOL")
	if err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	if n != 2 {
		t.Errorf("RunOne findings = %d, want 2", n)
	}

	// RunOne does not clear, so the dead findings double up.
	dead := messagesFor(t, db, "DEAD_SYMBOL")
	if len(dead) != 4 {
		t.Errorf("got %d dead diagnostics after RunAll+RunOne, want 4", len(dead))
	}
}

func TestRunOneUnknownRule(t *testing.T) {
	e, _ := newFixtureEngine(t)

	_, err := e.RunOne("NO_SUCH_RULE")
	if err == nil {
		t.Fatal("expected an error for an unknown rule")
	}
	if !errors.IsNotFound(err) {
		t.Errorf("error = %v, want a not-found code", err)
	}
}

func TestRunAllSkipsDisabledRules(t *testing.T) {
	e, db := newFixtureEngine(t)
	seedAll(t, e)

	if err := db.SetRuleEnabled("DEAD_SYMBOL", false); err != nil {
		t.Fatalf("SetRuleEnabled: %v", err)
	}
	results, err := e.RunAll()
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d run results with one rule disabled, want 2", len(results))
	}
	if _, present := findingsByRule(results)["DEAD_SYMBOL"]; present {
		t.Error("disabled rule still ran")
	}
}

// insertAnalysisRows inserts one file with handcrafted symbols and calls,
// bypassing the parser so tests control spans and complexity exactly.
func insertAnalysisRows(t *testing.T, db *storage.DB, relPath string, syms []storage.Symbol, calls []storage.Call) {
	t.Helper()

	err := db.WithTx(func(tx *sql.Tx) error {
		fileID, err := db.UpsertFileTx(tx, relPath, "feedcafe", "python", 500, "")
		if err != nil {
			return err
		}
		for i := range syms {
			syms[i].FileID = fileID
			if _, err := db.InsertSymbolTx(tx, &syms[i]); err != nil {
				return err
			}
		}
		return db.InsertCallsTx(tx, fileID, calls)
	})
	if err != nil {
		t.Fatalf("insert analysis rows: %v", err)
	}
}

func TestLargeSymbolBoundary(t *testing.T) {
	e, db := newBareEngine(t)
	seedAll(t, e)

	insertAnalysisRows(t, db, "span.py", []storage.Symbol{
		{Kind: "function", Name: "exactly_fifty", LineStart: 10, LineEnd: 59, Complexity: 1},
		{Kind: "function", Name: "fifty_one", LineStart: 100, LineEnd: 150, Complexity: 1},
		{Kind: "function", Name: "complexity_fifteen", LineStart: 200, LineEnd: 205, Complexity: 15},
		{Kind: "function", Name: "complexity_sixteen", LineStart: 300, LineEnd: 305, Complexity: 16},
	}, nil)

	n, err := e.RunOne("LARGE_SYMBOL")
	if err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	if n != 2 {
		t.Fatalf("got %d large findings, want 2", n)
	}

	messages := messagesFor(t, db, "LARGE_SYMBOL")
	if !containsMessage(messages, "fifty_one: 51 lines") {
		t.Errorf("missing the 51-line finding: %v", messages)
	}
	if !containsMessage(messages, "complexity_sixteen: complexity 16") {
		t.Errorf("missing the complexity finding: %v", messages)
	}
	for _, m := range messages {
		if strings.Contains(m, "exactly_fifty") || strings.Contains(m, "complexity_fifteen") {
			t.Errorf("boundary value flagged: %q", m)
		}
	}
}

func TestDeadSymbolCallExpressionMatching(t *testing.T) {
	e, db := newBareEngine(t)
	seedAll(t, e)

	insertAnalysisRows(t, db, "scene.py", []storage.Symbol{
		// Named as the final segment of a dotted call: alive.
		{Kind: "function", Name: "render", LineStart: 1, LineEnd: 3},
		// Appears mid-expression only, never as the target: dead.
		{Kind: "function", Name: "paint", LineStart: 5, LineEnd: 7},
		// Property accessors are exempt regardless of call sites.
		{Kind: "method", Name: "area", LineStart: 9, LineEnd: 10, Decorators: []string{"property"}},
		{Kind: "method", Name: "scale", LineStart: 12, LineEnd: 13, Decorators: []string{"area.setter"}},
	}, []storage.Call{
		{CalleeExpr: "widget.painter.render", LineNo: 20},
		{CalleeExpr: "self.paint.helper", LineNo: 21},
	})

	n, err := e.RunOne("DEAD_SYMBOL")
	if err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d dead findings, want 1", n)
	}

	messages := messagesFor(t, db, "DEAD_SYMBOL")
	if !containsMessage(messages, "paint (function) -- never called") {
		t.Errorf("dead messages = %v, want paint flagged", messages)
	}
}

func TestAddAndRunCustomRule(t *testing.T) {
	e, db := newFixtureEngine(t)

	_, err := e.Add("NO_PRINT", "No print calls",
		`SELECT f.file_id, f.rel_path, c.line_no, 'print' AS name
		 FROM calls c JOIN files f ON c.file_id = f.file_id
		 WHERE c.callee_expr = 'print'`,
		"", "flag stray prints", 0, "style-guide")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	stored, err := db.GetRule("NO_PRINT")
	if err != nil {
		t.Fatalf("GetRule: %v", err)
	}
	if stored == nil {
		t.Fatal("custom rule was not persisted")
	}
	if stored.Severity != "warning" {
		t.Errorf("severity = %s, want the warning default", stored.Severity)
	}
	if stored.Weight != 1.0 {
		t.Errorf("weight = %v, want the 1.0 default", stored.Weight)
	}
	if stored.IsBuiltin {
		t.Error("custom rule stored as builtin")
	}
	if stored.LearnedFrom != "style-guide" {
		t.Errorf("learned_from = %q", stored.LearnedFrom)
	}

	n, err := e.RunOne("NO_PRINT")
	if err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d findings, want 1 (the print in main.py)", n)
	}

	diags, err := db.ListDiagnostics(storage.DiagnosticFilter{RuleID: "NO_PRINT"})
	if err != nil {
		t.Fatalf("ListDiagnostics: %v", err)
	}
	if diags[0].Message != "No print calls: print" {
		t.Errorf("message = %q", diags[0].Message)
	}
	if diags[0].File != "main.py" {
		t.Errorf("file = %s, want main.py", diags[0].File)
	}
	if diags[0].LineNo != 11 {
		t.Errorf("line = %d, want 11", diags[0].LineNo)
	}
}

func TestAddRejectsIncompleteRule(t *testing.T) {
	e, _ := newBareEngine(t)

	if _, err := e.Add("", "name", "SELECT 1", "", "", 0, ""); err == nil {
		t.Error("expected an error for a missing rule id")
	}
	if _, err := e.Add("ID", "name", "", "", "", 0, ""); err == nil {
		t.Error("expected an error for a missing query")
	}
}

func TestTestRule(t *testing.T) {
	e, _ := newFixtureEngine(t)

	rows := e.Test("SELECT name FROM symbols ORDER BY name LIMIT 3")
	if len(rows) != 3 {
		t.Fatalf("got %d preview rows, want 3", len(rows))
	}
	if rows[0].String("name") == "" {
		t.Error("preview row missing the name column")
	}

	rows = e.Test("SELECT * FROM no_such_table")
	if len(rows) != 1 || rows[0].String("error") == "" {
		t.Errorf("broken query should yield one error row, got %v", rows)
	}

	rows = e.Test("DELETE FROM files")
	if len(rows) != 1 || rows[0].String("error") == "" {
		t.Errorf("write statements should yield one error row, got %v", rows)
	}
}

func TestRateAndEffectiveness(t *testing.T) {
	e, _ := newFixtureEngine(t)
	seedAll(t, e)

	// Rating a rule that has never run is a silent no-op.
	if err := e.Rate("DEAD_SYMBOL", true); err != nil {
		t.Fatalf("Rate before any run: %v", err)
	}

	if _, err := e.RunOne("DEAD_SYMBOL"); err != nil {
		t.Fatalf("RunOne: %v", err)
	}
	if err := e.Rate("DEAD_SYMBOL", true); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if err := e.Rate("DEAD_SYMBOL", true); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if err := e.Rate("DEAD_SYMBOL", false); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	stats, err := e.Effectiveness()
	if err != nil {
		t.Fatalf("Effectiveness: %v", err)
	}
	if len(stats) != 3 {
		t.Fatalf("got %d effectiveness entries, want 3", len(stats))
	}
	if stats[0].RuleID != "DEAD_SYMBOL" {
		t.Errorf("most useful rule = %s, want DEAD_SYMBOL", stats[0].RuleID)
	}
	if stats[0].TotalRuns != 1 || stats[0].TotalFindings != 2 || stats[0].TotalUseful != 1 {
		t.Errorf("DEAD_SYMBOL stats = runs %d findings %d useful %d, want 1/2/1",
			stats[0].TotalRuns, stats[0].TotalFindings, stats[0].TotalUseful)
	}
}
