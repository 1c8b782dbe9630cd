package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codeindex/internal/storage"
)

var (
	diagRun      bool
	diagSeverity string
	diagRule     string
	diagPath     string
	diagLimit    int
)

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "Run analysis rules and list their findings",
	Long: `List stored rule findings, optionally re-running the rules first.
Every run replaces the previous findings wholesale.

Examples:
  codeindex diagnostics --run
  codeindex diagnostics --severity warning --path pkg/
  codeindex diagnostics --rule DEAD_SYMBOL`,
	RunE: runDiagnostics,
}

func init() {
	diagnosticsCmd.Flags().BoolVar(&diagRun, "run", false, "Re-run all enabled rules first")
	diagnosticsCmd.Flags().StringVar(&diagSeverity, "severity", "", "Filter by severity (error, warning, info)")
	diagnosticsCmd.Flags().StringVar(&diagRule, "rule", "", "Filter by rule ID")
	diagnosticsCmd.Flags().StringVar(&diagPath, "path", "", "Filter by file-path substring")
	diagnosticsCmd.Flags().IntVar(&diagLimit, "limit", 0, "Maximum findings (0 = all)")
	rootCmd.AddCommand(diagnosticsCmd)
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	eng := app.rules()
	if diagRun {
		if _, err := eng.SeedBuiltins(); err != nil {
			return err
		}
		if _, err := eng.RunAll(); err != nil {
			return err
		}
	}

	diags, err := app.db.ListDiagnostics(storage.DiagnosticFilter{
		Severity: diagSeverity,
		RuleID:   diagRule,
		Path:     diagPath,
		Limit:    diagLimit,
	})
	if err != nil {
		return err
	}

	return emit(map[string]interface{}{
		"count":       len(diags),
		"diagnostics": diags,
	}, func() {
		if len(diags) == 0 {
			fmt.Println("No findings")
			return
		}
		for _, d := range diags {
			fmt.Printf("%-8s %-16s %s:%d  %s\n", d.Severity, d.RuleID, d.File, d.LineNo, d.Message)
		}
	})
}
