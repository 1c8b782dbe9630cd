package main

import (
	"os"

	"github.com/spf13/cobra"

	"codeindex/internal/logging"
	"codeindex/internal/mcp"
	"codeindex/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the index to AI agents over MCP (stdio)",
	Long: `Start the Model Context Protocol server: newline-delimited JSON-RPC
2.0 on stdin/stdout exposing the index tools (index, get_context,
get_impact, search, file_summary, diagnostics, annotate, session).

Logs go to stderr as JSON so stdout stays protocol-clean. This command is
typically launched by an MCP client, not by hand.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	// stdout carries the protocol; logs must stay on stderr.
	log := logging.NewLogger(logging.Config{
		Format: logging.JSONFormat,
		Level:  logging.ParseLevel(app.cfg.Log.Level),
		Output: os.Stderr,
	})

	log.Info("Starting MCP server", map[string]interface{}{
		"version": version.Version,
		"project": app.root,
	})

	srv, err := mcp.NewServer(mcp.Deps{
		DB:      app.db,
		Indexer: app.indexer(),
		Queries: app.queries(),
		Rules:   app.rules(),
		Tracker: app.tracker(),
		History: app.history(),
	}, log)
	if err != nil {
		return err
	}
	return srv.Serve()
}
