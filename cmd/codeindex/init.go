package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"codeindex/internal/config"
	"codeindex/internal/rules"
	"codeindex/internal/storage"
)

var initWriteConfig bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the index database and run the first full build",
	Long: `Initialize codeindex for a project: create .codeindex.db, seed the
builtin analysis rules, record project instruction files (CLAUDE.md,
CONTRIBUTING.md) as knowledge, index every source file, and run the rules
once.

The project name is detected from pyproject.toml when present, falling
back to the directory name.

Examples:
  codeindex init                  # Index the current directory
  codeindex init --write-config   # Also scaffold .codeindex.yaml`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initWriteConfig, "write-config", false,
		"Scaffold a .codeindex.yaml config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	projectName := detectProjectName(app.root)

	configPath := ""
	if initWriteConfig {
		configPath, err = config.WriteScaffold(app.root, projectName)
		if err == os.ErrExist {
			app.log.Warn("Config already exists, leaving it alone", map[string]interface{}{
				"path": configPath,
			})
		} else if err != nil {
			return err
		}
	}

	eng := app.rules()
	seeded, err := eng.SeedBuiltins()
	if err != nil {
		return err
	}

	knowledge, err := rules.SeedFromInstructions(app.db, app.root, app.cfg.SeedRulesFrom)
	if err != nil {
		return err
	}

	stats, err := app.indexer().FullRebuild(context.Background())
	if err != nil {
		return err
	}

	ruleResults, err := eng.RunAll()
	if err != nil {
		return err
	}

	result := map[string]interface{}{
		"project":           projectName,
		"rules_seeded":      seeded,
		"instruction_files": knowledge,
		"stats":             stats,
		"rules":             ruleResults,
	}
	if configPath != "" {
		result["config"] = configPath
	}
	return emit(result, func() {
		fmt.Printf("Initialized codeindex for %s\n", projectName)
		if configPath != "" {
			fmt.Printf("  config:  %s\n", configPath)
		}
		fmt.Printf("  rules:   %d seeded\n", seeded)
		if knowledge > 0 {
			fmt.Printf("  notes:   %d instruction file(s) recorded\n", knowledge)
		}
		printStats(stats)
		printRuleResults(ruleResults)
	})
}

// detectProjectName reads the name from pyproject.toml ([project] or
// [tool.poetry]), falling back to the directory name.
func detectProjectName(root string) string {
	fallback := filepath.Base(root)

	data, err := os.ReadFile(filepath.Join(root, "pyproject.toml"))
	if err != nil {
		return fallback
	}

	var doc struct {
		Project struct {
			Name string `toml:"name"`
		} `toml:"project"`
		Tool struct {
			Poetry struct {
				Name string `toml:"name"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fallback
	}
	if doc.Project.Name != "" {
		return doc.Project.Name
	}
	if doc.Tool.Poetry.Name != "" {
		return doc.Tool.Poetry.Name
	}
	return fallback
}

func printStats(stats *storage.Stats) {
	fmt.Printf("  files:   %d (%d with parse errors)\n", stats.Files, stats.ParseErrors)
	fmt.Printf("  symbols: %d (%d classes, %d functions)\n", stats.Symbols, stats.Classes, stats.Functions)
	fmt.Printf("  calls:   %d, refs: %d, imports: %d\n", stats.Calls, stats.Refs, stats.Imports)
}

func printRuleResults(results []rules.RunResult) {
	total := 0
	for _, r := range results {
		total += r.FindingsCount
	}
	fmt.Printf("  findings: %d\n", total)
	for _, r := range results {
		if r.FindingsCount > 0 {
			fmt.Printf("    %-16s %-8s %d\n", r.RuleID, r.Severity, r.FindingsCount)
		}
	}
}
