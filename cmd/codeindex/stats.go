package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	stats, err := app.db.GetStats()
	if err != nil {
		return err
	}

	return emit(stats, func() {
		printStats(stats)
		if len(stats.Diagnostics) > 0 {
			fmt.Print("  diagnostics:")
			for _, sev := range []string{"error", "warning", "info"} {
				if n := stats.Diagnostics[sev]; n > 0 {
					fmt.Printf(" %d %s", n, sev)
				}
			}
			fmt.Println()
		}
	})
}
