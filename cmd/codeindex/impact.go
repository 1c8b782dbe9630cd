package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var impactCmd = &cobra.Command{
	Use:   "impact <name>",
	Short: "Estimate the blast radius of changing a symbol",
	Long: `Show direct callers, one hop of transitive callers, and the affected
files for a symbol. Class names aggregate the analysis over the
constructor and every member method, with a per-member breakdown.

The impact score weights direct callers at 1 and transitive at 0.5.

Examples:
  codeindex impact helper_function
  codeindex impact TaskManager`,
	Args: cobra.ExactArgs(1),
	RunE: runImpact,
}

func init() {
	rootCmd.AddCommand(impactCmd)
}

func runImpact(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	impact, err := app.queries().GetImpact(args[0])
	if err != nil {
		return err
	}

	return emit(impact, func() {
		fmt.Printf("Impact of changing %s: score %.1f\n", impact.Symbol, impact.ImpactScore)
		if len(impact.MembersAnalyzed) > 0 {
			fmt.Printf("  members analyzed: %d\n", len(impact.MembersAnalyzed))
		}
		fmt.Printf("  direct callers: %d\n", len(impact.DirectCallers))
		for _, c := range impact.DirectCallers {
			fmt.Printf("    %s:%d  %s\n", c.File, c.Line, c.CalleeExpr)
		}
		if len(impact.TransitiveCallers) > 0 {
			fmt.Printf("  transitive callers: %d\n", len(impact.TransitiveCallers))
			for _, c := range impact.TransitiveCallers {
				fmt.Printf("    %s:%d  %s\n", c.File, c.Line, c.CalleeExpr)
			}
		}
		if len(impact.CallersByMember) > 0 {
			fmt.Println("  by member:")
			for member, callers := range impact.CallersByMember {
				fmt.Printf("    %s: %d call site(s)\n", member, len(callers))
			}
		}
		if len(impact.FilesAffected) > 0 {
			fmt.Printf("  files affected: %d\n", len(impact.FilesAffected))
			for _, f := range impact.FilesAffected {
				fmt.Printf("    %s\n", f)
			}
		}
	})
}
