package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"codeindex/internal/rules"
)

var indexFull bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Update the index from the file system",
	Long: `Bring the index in line with the source tree. By default only added,
changed, and removed files are touched (hash-based change detection); with
--full the whole index is rebuilt from scratch.

Analysis rules re-run after a full rebuild, and after an incremental
update that actually changed something.

Examples:
  codeindex index         # Incremental update
  codeindex index --full  # Rebuild everything`,
	RunE: runIndexCmd,
}

func init() {
	indexCmd.Flags().BoolVar(&indexFull, "full", false, "Rebuild the whole index")
	rootCmd.AddCommand(indexCmd)
}

func runIndexCmd(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ix := app.indexer()
	eng := app.rules()
	if _, err := eng.SeedBuiltins(); err != nil {
		return err
	}

	if indexFull {
		stats, err := ix.FullRebuild(context.Background())
		if err != nil {
			return err
		}
		ruleResults, err := eng.RunAll()
		if err != nil {
			return err
		}
		return emit(map[string]interface{}{
			"mode":  "full",
			"stats": stats,
			"rules": ruleResults,
		}, func() {
			fmt.Println("Full rebuild complete")
			printStats(stats)
			printRuleResults(ruleResults)
		})
	}

	counts, err := ix.Incremental(context.Background())
	if err != nil {
		return err
	}

	var ruleResults []rules.RunResult
	if counts.Added+counts.Changed+counts.Removed > 0 {
		ruleResults, err = eng.RunAll()
		if err != nil {
			return err
		}
	}

	result := map[string]interface{}{
		"mode":    "incremental",
		"changes": counts,
	}
	if ruleResults != nil {
		result["rules"] = ruleResults
	}
	return emit(result, func() {
		fmt.Printf("Incremental update: %d added, %d changed, %d removed\n",
			counts.Added, counts.Changed, counts.Removed)
		if ruleResults != nil {
			printRuleResults(ruleResults)
		}
	})
}
