// Package testutil provides testing utilities shared across packages.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFixtureProject writes a small Python project with a known call graph
// into dir. The shape is stable so tests can assert on it:
//
//   - main.main calls pkg.utils.helper_function and TaskManager.spawn
//   - pkg.utils.dead_function is never called and calls nothing
//   - pkg.utils._internal_probe is never called but underscore-prefixed
//   - TaskManager.restart calls into its own class (self-referential)
//   - TaskManager.a_very_long_method_that_exceeds_fifty_lines spans 56 lines
//   - pkg/manager.py and pkg/models.py import each other
//   - pkg/signals.py wires a handler via .connect(self.on_task_done)
//
// Files: main.py, consumer.py, pkg/__init__.py, pkg/manager.py,
// pkg/models.py, pkg/signals.py, pkg/utils.py (7 files, 18 symbols,
// 3 classes).
func WriteFixtureProject(t *testing.T, dir string) {
	t.Helper()

	files := map[string]string{
		"main.py":         fixtureMain,
		"consumer.py":     fixtureConsumer,
		"pkg/__init__.py": fixtureInit,
		"pkg/manager.py":  fixtureManager(),
		"pkg/models.py":   fixtureModels,
		"pkg/signals.py":  fixtureSignals,
		"pkg/utils.py":    fixtureUtils,
	}
	for rel, content := range files {
		WriteFile(t, dir, rel, content)
	}
}

// WriteFile writes one file under dir, creating parent directories.
func WriteFile(t *testing.T, dir, rel, content string) {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

const fixtureMain = `"""Entry point for the demo pipeline."""

from pkg.manager import TaskManager
from pkg.utils import helper_function


def main():
    manager = TaskManager()
    manager.spawn("initial")
    value = helper_function(41)
    print(value)


if __name__ == "__main__":
    main()
`

const fixtureConsumer = `"""Batch driver built on the task manager."""

from pkg.manager import TaskManager


def run_jobs(names):
    manager = TaskManager()
    for name in names:
        manager.spawn(name)
    manager.shutdown()
`

const fixtureInit = `"""Task processing package."""
`

const fixtureModels = `"""Task data model."""

from pkg.manager import TaskManager


class Task:
    """One unit of queued work."""

    def __init__(self, name):
        self.name = name
        self.done = False

    def finish(self):
        self.done = True
`

const fixtureSignals = `"""Signal wiring for task completion."""


class Dashboard:
    """Listens for task completion events."""

    def __init__(self, bus):
        self.bus = bus
        self.bus.task_done.connect(self.on_task_done)

    def on_task_done(self, task):
        task.finish()
        self.refresh()

    def refresh(self):
        self.rendered = True
`

const fixtureUtils = `"""Shared helpers."""


def helper_function(value):
    """Doubles a value for the pipeline."""
    return value * 2


def dead_function(value):
    """Never called by anything."""
    return value - 1


def _internal_probe(value):
    return value + 1
`

// fixtureManager generates pkg/manager.py. The long method body is built in
// a loop so its span stays comfortably past the large-symbol threshold.
func fixtureManager() string {
	var b strings.Builder
	b.WriteString(`"""Task lifecycle management."""

from pkg.models import Task


class TaskManager:
    """Owns the task queue and worker state."""

    def __init__(self):
        self.tasks = []

    def spawn(self, name):
        task = Task(name)
        self.tasks.append(task)
        return task

    def shutdown(self):
        self.tasks.clear()

    def restart(self):
        self.shutdown()
        self.spawn("restart")

    def a_very_long_method_that_exceeds_fifty_lines(self):
        total = 0
`)
	for i := 0; i < 53; i++ {
		fmt.Fprintf(&b, "        total = total + %d\n", i)
	}
	b.WriteString("        return total\n")
	return b.String()
}
