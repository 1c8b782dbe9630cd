package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var importsFilter string

var importsCmd = &cobra.Command{
	Use:   "imports",
	Short: "Show the file-to-module import graph",
	Long: `Print which modules each indexed file imports, optionally filtered to
files whose path contains a substring.

Examples:
  codeindex imports
  codeindex imports --filter pkg/`,
	RunE: runImports,
}

func init() {
	importsCmd.Flags().StringVar(&importsFilter, "filter", "", "Only files whose path contains this text")
	rootCmd.AddCommand(importsCmd)
}

func runImports(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	graph, err := app.queries().GetImportsGraph(importsFilter)
	if err != nil {
		return err
	}

	return emit(graph, func() {
		if len(graph.Nodes) == 0 {
			fmt.Println("No imports recorded")
			return
		}
		nodes := append([]string(nil), graph.Nodes...)
		sort.Strings(nodes)
		for _, node := range nodes {
			fmt.Printf("%s\n", node)
			for _, module := range graph.Edges[node] {
				fmt.Printf("  -> %s\n", module)
			}
		}
	})
}
