package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage analysis rules",
	Long: `Work with the declarative analysis rules: list them, register custom
rules, dry-run a query, rate findings, import rules from YAML, and review
which rules earn their keep.`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered rules",
	RunE:  runRulesList,
}

var (
	ruleAddName        string
	ruleAddQuery       string
	ruleAddSeverity    string
	ruleAddDescription string
	ruleAddWeight      float64
	ruleAddLearnedFrom string
)

var rulesAddCmd = &cobra.Command{
	Use:   "add <rule-id>",
	Short: "Register a custom rule",
	Long: `Register a custom analysis rule. The query is a single SELECT over the
index tables; rows it returns become diagnostics on the next run. Include
a file_id column so findings attach to files.

Example:
  codeindex rules add NO_PRINT --name "print call" --severity info \
    --query "SELECT c.file_id, c.line_no AS line, 'print' AS name FROM calls c WHERE c.callee_expr = 'print'"`,
	Args: cobra.ExactArgs(1),
	RunE: runRulesAdd,
}

var rulesTestCmd = &cobra.Command{
	Use:   "test <query>",
	Short: "Dry-run a rule query without storing findings",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesTest,
}

var ruleRateNotUseful bool

var rulesRateCmd = &cobra.Command{
	Use:   "rate <rule-id>",
	Short: "Rate the latest run of a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesRate,
}

var rulesEffectivenessCmd = &cobra.Command{
	Use:   "effectiveness",
	Short: "Show per-rule run history and usefulness",
	RunE:  runRulesEffectiveness,
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import custom rules from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesImport,
}

func init() {
	rulesAddCmd.Flags().StringVar(&ruleAddName, "name", "", "Human-readable rule name (required)")
	rulesAddCmd.Flags().StringVar(&ruleAddQuery, "query", "", "SELECT statement producing findings (required)")
	rulesAddCmd.Flags().StringVar(&ruleAddSeverity, "severity", "info", "Finding severity (error, warning, info)")
	rulesAddCmd.Flags().StringVar(&ruleAddDescription, "description", "", "What the rule detects")
	rulesAddCmd.Flags().Float64Var(&ruleAddWeight, "weight", 1.0, "Rule weight")
	rulesAddCmd.Flags().StringVar(&ruleAddLearnedFrom, "learned-from", "", "Provenance tag")

	rulesRateCmd.Flags().BoolVar(&ruleRateNotUseful, "not-useful", false, "Vote the latest run down instead of up")

	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesTestCmd, rulesRateCmd,
		rulesEffectivenessCmd, rulesImportCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	list, err := app.db.ListRules(false)
	if err != nil {
		return err
	}

	return emit(map[string]interface{}{"rules": list}, func() {
		for _, r := range list {
			state := "enabled"
			if !r.Enabled {
				state = "disabled"
			}
			origin := "custom"
			if r.IsBuiltin {
				origin = "builtin"
			}
			fmt.Printf("%-20s %-8s %-8s %-8s %s\n", r.ID, r.Severity, origin, state, r.Name)
		}
	})
}

func runRulesAdd(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	rule, err := app.rules().Add(args[0], ruleAddName, ruleAddQuery, ruleAddSeverity,
		ruleAddDescription, ruleAddWeight, ruleAddLearnedFrom)
	if err != nil {
		return err
	}

	return emit(rule, func() {
		fmt.Printf("Registered rule %s (%s)\n", rule.ID, rule.Severity)
	})
}

func runRulesTest(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	rows := app.rules().Test(args[0])

	return emit(map[string]interface{}{
		"count": len(rows),
		"rows":  rows,
	}, func() {
		if len(rows) == 0 {
			fmt.Println("Query returned no rows")
			return
		}
		for _, row := range rows {
			fmt.Printf("%v\n", map[string]interface{}(row))
		}
	})
}

func runRulesRate(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	useful := !ruleRateNotUseful
	if err := app.rules().Rate(args[0], useful); err != nil {
		return err
	}

	return emit(map[string]interface{}{
		"rule_id": args[0],
		"useful":  useful,
	}, func() {
		vote := "useful"
		if !useful {
			vote = "not useful"
		}
		fmt.Printf("Rated latest run of %s as %s\n", args[0], vote)
	})
}

func runRulesEffectiveness(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	eff, err := app.rules().Effectiveness()
	if err != nil {
		return err
	}

	return emit(map[string]interface{}{"rules": eff}, func() {
		fmt.Printf("%-20s %6s %9s %7s\n", "RULE", "RUNS", "FINDINGS", "USEFUL")
		for _, e := range eff {
			fmt.Printf("%-20s %6d %9d %7d\n", e.RuleID, e.TotalRuns, e.TotalFindings, e.TotalUseful)
		}
	})
}

func runRulesImport(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.rules().ImportRules(args[0])
	if err != nil {
		return err
	}

	return emit(report, func() {
		fmt.Printf("Imported %d rule(s)", len(report.Imported))
		if len(report.Skipped) > 0 {
			fmt.Printf(", skipped %d", len(report.Skipped))
		}
		fmt.Println()
		for _, s := range report.Skipped {
			fmt.Printf("  entry %d: %s\n", s.Index, s.Reason)
		}
	})
}
