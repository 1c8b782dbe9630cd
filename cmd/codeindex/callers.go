package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var callersLimit int

var callersCmd = &cobra.Command{
	Use:   "callers <name>",
	Short: "List call sites that target a symbol",
	Long: `List recorded call sites whose callee expression mentions the given
name. Matching is textual, so dotted forms like obj.name() count.

Example:
  codeindex callers process_task`,
	Args: cobra.ExactArgs(1),
	RunE: runCallers,
}

func init() {
	callersCmd.Flags().IntVar(&callersLimit, "limit", 50, "Maximum call sites to show")
	rootCmd.AddCommand(callersCmd)
}

func runCallers(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	callers, err := app.db.Callers(args[0], callersLimit)
	if err != nil {
		return err
	}

	return emit(map[string]interface{}{
		"name":    args[0],
		"count":   len(callers),
		"callers": callers,
	}, func() {
		if len(callers) == 0 {
			fmt.Printf("No callers of %s found\n", args[0])
			return
		}
		fmt.Printf("%d caller(s) of %s:\n", len(callers), args[0])
		for _, c := range callers {
			from := c.CallerName
			if from == "" {
				from = "<module>"
			}
			fmt.Printf("  %s:%d  %s  (in %s)\n", c.File, c.Line, c.CalleeExpr, from)
		}
	})
}
