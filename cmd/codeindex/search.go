package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchKind  string
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search symbols by name and docstring text",
	Long: `Search the index. Symbol names are scored (exact matches first, then
prefix and substring matches); full-text hits over docstrings fill the
remaining slots.

Examples:
  codeindex search task
  codeindex search spawn --kind method --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "Restrict to a symbol kind")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	results, err := app.queries().Search(args[0], searchKind, searchLimit)
	if err != nil {
		return err
	}

	return emit(map[string]interface{}{
		"query":   args[0],
		"results": results,
	}, func() {
		if len(results) == 0 {
			fmt.Printf("No results for %q\n", args[0])
			return
		}
		for _, r := range results {
			switch r.Type {
			case "symbol":
				name := r.Name
				if r.ParentName != "" {
					name = r.ParentName + "." + name
				}
				fmt.Printf("  %5.1f  %-8s %-30s %s:%d\n", r.Score, r.Kind, name, r.File, r.LineStart)
			default:
				fmt.Printf("  %5.1f  %-8s %-30s %s\n", r.Score, "text", r.SymbolNames, r.File)
			}
		}
	})
}
