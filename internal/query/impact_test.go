package query

import "testing"

func TestGetImpactFunction(t *testing.T) {
	e, _, _ := newIndexedEngine(t)

	imp, err := e.GetImpact("helper_function")
	if err != nil {
		t.Fatalf("GetImpact: %v", err)
	}

	if len(imp.DirectCallers) != 1 {
		t.Fatalf("direct = %+v, want one caller", imp.DirectCallers)
	}
	if imp.DirectCallers[0].CallerName != "main" {
		t.Errorf("direct caller = %q, want main", imp.DirectCallers[0].CallerName)
	}

	// main is itself invoked at module level, so one transitive row with
	// no enclosing caller.
	if len(imp.TransitiveCallers) != 1 {
		t.Fatalf("transitive = %+v, want one caller", imp.TransitiveCallers)
	}
	if imp.TransitiveCallers[0].CallerName != "" {
		t.Errorf("transitive caller = %q, want module level", imp.TransitiveCallers[0].CallerName)
	}

	if imp.ImpactScore != 1.5 {
		t.Errorf("score = %v, want 1.5", imp.ImpactScore)
	}
	if len(imp.FilesAffected) != 1 || imp.FilesAffected[0] != "main.py" {
		t.Errorf("files = %v, want [main.py]", imp.FilesAffected)
	}
	if imp.Kind != "function" {
		t.Errorf("kind = %q, want function", imp.Kind)
	}
}

func TestGetImpactUncalled(t *testing.T) {
	e, _, _ := newIndexedEngine(t)

	imp, err := e.GetImpact("dead_function")
	if err != nil {
		t.Fatalf("GetImpact: %v", err)
	}
	if len(imp.DirectCallers) != 0 || len(imp.TransitiveCallers) != 0 {
		t.Errorf("impact = %+v, want no callers", imp)
	}
	if imp.ImpactScore != 0 {
		t.Errorf("score = %v, want 0", imp.ImpactScore)
	}
	if len(imp.FilesAffected) != 0 {
		t.Errorf("files = %v, want none", imp.FilesAffected)
	}
}

func TestGetImpactClass(t *testing.T) {
	e, _, _ := newIndexedEngine(t)

	imp, err := e.GetImpact("TaskManager")
	if err != nil {
		t.Fatalf("GetImpact: %v", err)
	}
	if imp.Kind != "class" {
		t.Fatalf("kind = %q, want class", imp.Kind)
	}

	// Constructors in main.py and consumer.py, manager.spawn in both
	// drivers, manager.shutdown in consumer. The class's own self.spawn
	// and self.shutdown calls are excluded.
	if len(imp.DirectCallers) != 5 {
		t.Fatalf("direct = %d callers, want 5: %+v", len(imp.DirectCallers), imp.DirectCallers)
	}
	for _, c := range imp.DirectCallers {
		if c.CallerClass == "TaskManager" {
			t.Errorf("self-referential caller leaked through: %+v", c)
		}
	}

	if len(imp.MembersAnalyzed) != 6 || imp.MembersAnalyzed[0] != "TaskManager" {
		t.Errorf("members analyzed = %v, want class name plus 5 methods", imp.MembersAnalyzed)
	}

	if got := len(imp.CallersByMember["TaskManager"]); got != 2 {
		t.Errorf("constructor callers = %d, want 2", got)
	}
	if got := len(imp.CallersByMember["spawn"]); got != 2 {
		t.Errorf("spawn callers = %d, want 2", got)
	}
	if got := len(imp.CallersByMember["shutdown"]); got != 1 {
		t.Errorf("shutdown callers = %d, want 1", got)
	}

	// One transitive row: the module-level call of main.
	if len(imp.TransitiveCallers) != 1 {
		t.Errorf("transitive = %+v, want one caller", imp.TransitiveCallers)
	}
	if imp.ImpactScore != 5.5 {
		t.Errorf("score = %v, want 5.5", imp.ImpactScore)
	}

	wantFiles := []string{"consumer.py", "main.py"}
	if len(imp.FilesAffected) != len(wantFiles) {
		t.Fatalf("files = %v, want %v", imp.FilesAffected, wantFiles)
	}
	for i, f := range wantFiles {
		if imp.FilesAffected[i] != f {
			t.Errorf("files[%d] = %q, want %q", i, imp.FilesAffected[i], f)
		}
	}
}
