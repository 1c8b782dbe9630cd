package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codeindex/internal/rules"
)

var conventionsCmd = &cobra.Command{
	Use:   "check-conventions",
	Short: "Check imports against the configured architectural layers",
	Long: `Map indexed files to the layers declared in .codeindex.yaml and report
imports that cross a layer boundary outside the source layer's allow
list. Without configured layers this is a no-op.`,
	RunE: runConventions,
}

func init() {
	rootCmd.AddCommand(conventionsCmd)
}

func runConventions(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	violations, err := rules.CheckConventions(app.db, app.cfg.Layers)
	if err != nil {
		return err
	}

	return emit(map[string]interface{}{
		"layers":     len(app.cfg.Layers),
		"count":      len(violations),
		"violations": violations,
	}, func() {
		if len(app.cfg.Layers) == 0 {
			fmt.Println("No layers configured; nothing to check")
			return
		}
		if len(violations) == 0 {
			fmt.Printf("No violations across %d layer(s)\n", len(app.cfg.Layers))
			return
		}
		for _, v := range violations {
			fmt.Printf("%s:%d  %s\n", v.File, v.Line, v.Message)
		}
	})
}
