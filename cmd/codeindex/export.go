package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"codeindex/internal/scipexport"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the index for external tooling",
}

var (
	exportScipOutput   string
	exportScipCompress bool
)

var exportScipCmd = &cobra.Command{
	Use:   "scip",
	Short: "Write a SCIP protobuf index",
	Long: `Translate the index into a SCIP index (one document per file, one
definition occurrence per symbol) consumable by the scip CLI, editors,
and code-intel pipelines.

Examples:
  codeindex export scip
  codeindex export scip -o build/index.scip --compress`,
	RunE: runExportScip,
}

func init() {
	exportScipCmd.Flags().StringVarP(&exportScipOutput, "output", "o", "",
		"Output path (default "+scipexport.DefaultFileName+")")
	exportScipCmd.Flags().BoolVar(&exportScipCompress, "compress", false, "gzip the output")
	exportCmd.AddCommand(exportScipCmd)
	rootCmd.AddCommand(exportCmd)
}

func runExportScip(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	summary, err := scipexport.New(app.db, app.log).Export(scipexport.Options{
		ProjectRoot: app.root,
		ProjectName: app.cfg.Project.Name,
		OutputPath:  exportScipOutput,
		Compress:    exportScipCompress,
	})
	if err != nil {
		return err
	}

	return emit(summary, func() {
		fmt.Printf("Wrote %s: %d document(s), %d symbol(s), %d byte(s)\n",
			summary.Path, summary.Documents, summary.Symbols, summary.Bytes)
	})
}
