package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codeindex/internal/errors"
)

var fileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Summarize one indexed file",
	Long: `Show an indexed file's symbols, imports, and unresolved diagnostics.
The path is relative to the project root with forward slashes.

Example:
  codeindex file pkg/manager.py`,
	Args: cobra.ExactArgs(1),
	RunE: runFile,
}

func init() {
	rootCmd.AddCommand(fileCmd)
}

func runFile(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	summary, err := app.queries().GetFileSummary(args[0])
	if err != nil {
		return err
	}
	if summary == nil {
		return errors.Newf(errors.FileNotIndexed, "%s is not in the index", args[0])
	}

	return emit(summary, func() {
		f := summary.File
		fmt.Printf("%s  (%s, %d lines)\n", f.RelPath, f.Language, f.LineCount)
		if f.ParseError != "" {
			fmt.Printf("  parse error: %s\n", f.ParseError)
		}
		if len(summary.Imports) > 0 {
			fmt.Printf("\nImports (%d):\n", len(summary.Imports))
			for _, imp := range summary.Imports {
				line := imp.Module
				if imp.Name != "" {
					line += "." + imp.Name
				}
				if imp.Alias != "" {
					line += " as " + imp.Alias
				}
				fmt.Printf("  %s\n", line)
			}
		}
		if len(summary.Symbols) > 0 {
			fmt.Printf("\nSymbols (%d):\n", len(summary.Symbols))
			for _, s := range summary.Symbols {
				indent := ""
				if s.ParentName != "" {
					indent = "  "
				}
				fmt.Printf("  %s%-8s %-30s lines %d-%d\n", indent, s.Kind, s.Name, s.LineStart, s.LineEnd)
			}
		}
		if len(summary.Diagnostics) > 0 {
			fmt.Printf("\nDiagnostics (%d):\n", len(summary.Diagnostics))
			for _, d := range summary.Diagnostics {
				fmt.Printf("  %-8s line %-5d %s\n", d.Severity, d.LineNo, d.Message)
			}
		}
	})
}
