package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var contextKind string

var contextCmd = &cobra.Command{
	Use:   "context <name>",
	Short: "Show everything the index knows about a symbol",
	Long: `Resolve a symbol by name (exact match first, substring fallback) and
show its definition, callers, outgoing calls, references, annotations,
diagnostics within its span, and sibling symbols.

Examples:
  codeindex context TaskManager
  codeindex context process --kind method`,
	Args: cobra.ExactArgs(1),
	RunE: runContext,
}

func init() {
	contextCmd.Flags().StringVar(&contextKind, "kind", "",
		"Restrict to a symbol kind (function, method, class, interface, enum)")
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, err := app.queries().GetContext(args[0], contextKind)
	if err != nil {
		return err
	}

	return emit(ctx, func() {
		if !ctx.Found() {
			fmt.Printf("No symbol matching %q in the index\n", args[0])
			return
		}
		sym := ctx.Symbol
		fmt.Printf("%s %s  %s:%d-%d\n", sym.Kind, sym.QualifiedName(), sym.File, sym.LineStart, sym.LineEnd)
		if sym.Docstring != "" {
			fmt.Printf("  %s\n", sym.Docstring)
		}
		fmt.Printf("  complexity %d", sym.Complexity)
		if sym.IsAsync {
			fmt.Print(", async")
		}
		fmt.Println()

		if len(ctx.Callers) > 0 {
			fmt.Printf("\nCallers (%d):\n", len(ctx.Callers))
			for _, c := range ctx.Callers {
				fmt.Printf("  %s:%d  %s\n", c.File, c.Line, c.CalleeExpr)
			}
		}
		if len(ctx.Callees) > 0 {
			fmt.Printf("\nCalls out (%d):\n", len(ctx.Callees))
			for _, c := range ctx.Callees {
				fmt.Printf("  line %-5d %-16s %s\n", c.Line, c.Category, c.CalleeExpr)
			}
		}
		if len(ctx.Refs) > 0 {
			fmt.Printf("\nReferences (%d):\n", len(ctx.Refs))
			for _, r := range ctx.Refs {
				fmt.Printf("  line %-5d %s.%s\n", r.LineNo, r.Target, r.Name)
			}
		}
		if len(ctx.Diagnostics) > 0 {
			fmt.Printf("\nDiagnostics (%d):\n", len(ctx.Diagnostics))
			for _, d := range ctx.Diagnostics {
				fmt.Printf("  %-8s %s\n", d.Severity, d.Message)
			}
		}
		if len(ctx.Annotations) > 0 {
			fmt.Printf("\nNotes (%d):\n", len(ctx.Annotations))
			for _, a := range ctx.Annotations {
				fmt.Printf("  [%s] %s\n", a.Author, a.Text)
			}
		}
		if len(ctx.Siblings) > 0 {
			fmt.Printf("\nSiblings (%d):\n", len(ctx.Siblings))
			for _, s := range ctx.Siblings {
				fmt.Printf("  %s %s (line %d)\n", s.Kind, s.Name, s.LineStart)
			}
		}
		if ctx.Source != "" {
			fmt.Printf("\nSource:\n%s\n", ctx.Source)
		}
	})
}
