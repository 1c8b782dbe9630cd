package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"codeindex/internal/config"
	"codeindex/internal/differ"
	"codeindex/internal/indexer"
	"codeindex/internal/logging"
	"codeindex/internal/query"
	"codeindex/internal/rules"
	"codeindex/internal/sessions"
	"codeindex/internal/storage"
	"codeindex/internal/version"
)

var (
	// projectFlag is the project root; commands resolve it to an absolute path.
	projectFlag string
	// jsonFlag switches command output from human text to machine JSON.
	jsonFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "codeindex",
	Short: "codeindex - local code intelligence index",
	Long: `codeindex parses a source tree into structured facts (symbols, calls,
references, imports), keeps them in a SQLite index next to the code, and
answers relationship questions: who calls X, what breaks if I change X,
what does file Y contain.

It also runs declarative analysis rules over the stored facts and tracks
editing sessions with before/after change snapshots. The same operations
are available to AI agents through 'codeindex serve' (MCP over stdio).`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("codeindex version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "p", ".",
		"Project root directory")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false,
		"Emit machine-readable JSON on stdout")
}

// app bundles the per-command wiring: resolved root, loaded config, logger,
// and an open store. Commands build the components they need from it.
type app struct {
	root string
	cfg  *config.Config
	log  *logging.Logger
	db   *storage.DB
}

func openApp() (*app, error) {
	root, err := filepath.Abs(projectFlag)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve project root %q: %w", projectFlag, err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", root)
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}

	log := logging.NewLogger(logging.Config{
		Format: logging.Format(cfg.Log.Format),
		Level:  logging.ParseLevel(cfg.Log.Level),
	})

	db, err := storage.Open(root, log)
	if err != nil {
		return nil, err
	}

	return &app{root: root, cfg: cfg, log: log, db: db}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn("Cannot close database", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (a *app) indexer() *indexer.Indexer {
	return indexer.New(a.db, a.root, a.cfg.Ignore, a.log)
}

func (a *app) queries() *query.Engine {
	return query.New(a.db).WithInlineSource(a.root, a.cfg.Index.InlineSourceThreshold)
}

func (a *app) rules() *rules.Engine {
	return rules.New(a.db, a.log)
}

func (a *app) differ() *differ.Differ {
	return differ.New(a.db, a.indexer())
}

func (a *app) tracker() *sessions.Tracker {
	return sessions.NewTracker(a.db)
}

func (a *app) history() *sessions.History {
	return sessions.NewHistory(a.db, a.differ())
}

// emit writes the result: JSON when --json is set, otherwise the human
// printer.
func emit(result interface{}, human func()) error {
	if jsonFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	human()
	return nil
}
