package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Track editing sessions and their file changes",
	Long: `Sessions bound intervals of editing activity. Ending a session records
a snapshot of every file added, modified, or deleted since the last index
update. Starting a session auto-ends any session still open.`,
}

var sessionTranscript string

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new session",
	RunE:  runSessionStart,
}

var sessionSummary string

var sessionEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End the active session and record its change snapshot",
	RunE:  runSessionEnd,
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active session and pending changes",
	RunE:  runSessionStatus,
}

var sessionChangesCmd = &cobra.Command{
	Use:   "changes [session-id]",
	Short: "Show the recorded change log of a session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionChanges,
}

var sessionHistoryLimit int

var sessionHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent sessions",
	RunE:  runSessionHistory,
}

func init() {
	sessionStartCmd.Flags().StringVar(&sessionTranscript, "transcript", "", "Transcript reference to attach")
	sessionEndCmd.Flags().StringVar(&sessionSummary, "summary", "", "Session summary")
	sessionHistoryCmd.Flags().IntVar(&sessionHistoryLimit, "limit", 10, "Maximum sessions to show")

	sessionCmd.AddCommand(sessionStartCmd, sessionEndCmd, sessionStatusCmd,
		sessionChangesCmd, sessionHistoryCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionStart(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sess, err := app.tracker().Start(sessionTranscript)
	if err != nil {
		return err
	}

	return emit(sess, func() {
		fmt.Printf("Started session %d at %s\n", sess.ID, sess.StartedAt)
	})
}

func runSessionEnd(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	tracker := app.tracker()
	active, err := tracker.Active()
	if err != nil {
		return err
	}
	if active == nil {
		return emit(map[string]interface{}{"message": "no active session"}, func() {
			fmt.Println("No active session")
		})
	}

	changes, err := app.history().RecordSnapshot(active.ID)
	if err != nil {
		return err
	}
	sess, err := tracker.End(active.ID, sessionSummary)
	if err != nil {
		return err
	}

	return emit(map[string]interface{}{
		"session":          sess,
		"changes_recorded": len(changes),
	}, func() {
		fmt.Printf("Ended session %d (%d change(s) recorded)\n", sess.ID, len(changes))
	})
}

func runSessionStatus(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	active, err := app.tracker().Active()
	if err != nil {
		return err
	}
	pending, err := app.history().CurrentChanges()
	if err != nil {
		return err
	}

	return emit(map[string]interface{}{
		"active":          active,
		"pending_changes": len(pending),
		"changes":         pending,
	}, func() {
		if active == nil {
			fmt.Println("No active session")
		} else {
			fmt.Printf("Session %d active since %s\n", active.ID, active.StartedAt)
		}
		fmt.Printf("%d pending change(s)\n", len(pending))
		for _, c := range pending {
			fmt.Printf("  %-10s %s\n", c.ChangeType, c.RelPath)
		}
	})
}

func runSessionChanges(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	var sessionID int64
	if len(args) == 1 {
		sessionID, err = strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session id %q", args[0])
		}
	} else {
		active, err := app.tracker().Active()
		if err != nil {
			return err
		}
		if active == nil {
			return fmt.Errorf("no active session; pass a session id")
		}
		sessionID = active.ID
	}

	changes, err := app.history().ChangesSince(sessionID)
	if err != nil {
		return err
	}

	return emit(map[string]interface{}{
		"session_id": sessionID,
		"changes":    changes,
	}, func() {
		if len(changes) == 0 {
			fmt.Printf("No changes recorded for session %d\n", sessionID)
			return
		}
		for _, c := range changes {
			fmt.Printf("  %-10s %s  (%s)\n", c.ChangeType, c.File, c.ChangedAt)
		}
	})
}

func runSessionHistory(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	sessions, err := app.tracker().History(sessionHistoryLimit)
	if err != nil {
		return err
	}

	return emit(map[string]interface{}{"sessions": sessions}, func() {
		if len(sessions) == 0 {
			fmt.Println("No sessions recorded")
			return
		}
		for _, s := range sessions {
			state := "ended " + s.EndedAt
			if s.EndedAt == "" {
				state = "active"
			}
			fmt.Printf("  %-4d started %s  %-24s %d change(s)", s.ID, s.StartedAt, state, s.ChangeCount)
			if s.Summary != "" {
				fmt.Printf("  %s", s.Summary)
			}
			fmt.Println()
		}
	})
}
