package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codeindex/internal/errors"
	"codeindex/internal/storage"
)

var (
	annotateSymbol string
	annotateFile   string
	annotateAuthor string
	annotateList   bool
	annotateLimit  int
)

var annotateCmd = &cobra.Command{
	Use:   "annotate [text]",
	Short: "Attach or list notes on symbols and files",
	Long: `Attach a free-form note to a symbol or file, or list existing notes.
Notes are keyed by symbol name and file path, so they survive reindexing.

Examples:
  codeindex annotate --symbol process_task "hot path, benchmarked"
  codeindex annotate --file pkg/manager.py "scheduled for rewrite"
  codeindex annotate --list`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnnotate,
}

func init() {
	annotateCmd.Flags().StringVar(&annotateSymbol, "symbol", "", "Symbol to annotate")
	annotateCmd.Flags().StringVar(&annotateFile, "file", "", "File to annotate")
	annotateCmd.Flags().StringVar(&annotateAuthor, "author", "user", "Note author")
	annotateCmd.Flags().BoolVar(&annotateList, "list", false, "List notes instead of adding one")
	annotateCmd.Flags().IntVar(&annotateLimit, "limit", 0, "Maximum notes to list (0 = all)")
	rootCmd.AddCommand(annotateCmd)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if annotateList {
		notes, err := app.db.ListAnnotations(annotateLimit)
		if err != nil {
			return err
		}
		return emit(map[string]interface{}{
			"count":       len(notes),
			"annotations": notes,
		}, func() {
			if len(notes) == 0 {
				fmt.Println("No notes")
				return
			}
			for _, n := range notes {
				target := n.TargetSymbol
				if target == "" {
					target = n.TargetPath
				}
				fmt.Printf("  %-30s [%s] %s\n", target, n.Author, n.Text)
			}
		})
	}

	if len(args) == 0 {
		return errors.New(errors.InvalidInput, "annotation text is required")
	}
	if annotateSymbol == "" && annotateFile == "" {
		return errors.New(errors.InvalidInput, "pass --symbol or --file to say what the note is about")
	}

	id, err := app.db.AddAnnotation(&storage.Annotation{
		TargetSymbol: annotateSymbol,
		TargetPath:   annotateFile,
		Text:         args[0],
		Author:       annotateAuthor,
	})
	if err != nil {
		return err
	}

	return emit(map[string]interface{}{"annotation_id": id}, func() {
		fmt.Printf("Added note %d\n", id)
	})
}
