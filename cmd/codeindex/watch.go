package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"codeindex/internal/watcher"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index live while files change",
	Long: `Watch the project tree and run an incremental index update (plus a rule
pass) whenever source files change. Events are debounced so bursts of
writes trigger one update.

Stop with Ctrl-C.

Example:
  codeindex watch --debounce 2s`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce,
		"Quiet period before reindexing after a change")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ix := app.indexer()
	eng := app.rules()
	if _, err := eng.SeedBuiltins(); err != nil {
		return err
	}

	// The whole-tree diff inside Incremental also picks up anything an
	// individual event missed, so the handler ignores the batch contents.
	handler := func(events []watcher.Event) {
		counts, err := ix.Incremental(context.Background())
		if err != nil {
			app.log.Error("Incremental update failed", map[string]interface{}{
				"error": err.Error(),
			})
			return
		}
		if counts.Added+counts.Changed+counts.Removed == 0 {
			return
		}
		fmt.Printf("Reindexed: %d added, %d changed, %d removed\n",
			counts.Added, counts.Changed, counts.Removed)
		if _, err := eng.RunAll(); err != nil {
			app.log.Error("Rule run failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	w, err := watcher.New(ix, watchDebounce, handler, app.log)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Printf("Watching %s (debounce %s, Ctrl-C to stop)\n", app.root, watchDebounce)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Stopping")
	return nil
}
