package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/creastat/onboarding/machine"
	"github.com/creastat/onboarding/session"
)

var (
	sessUser       string
	sessOutputJSON bool
	sessAll        bool
)

func init() {
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionResetCmd)

	sessionCmd.PersistentFlags().StringVar(&sessUser, "user", "", "user id")
	sessionShowCmd.Flags().BoolVar(&sessOutputJSON, "json", false, "print the stored record as JSON")
	sessionResetCmd.Flags().BoolVar(&sessAll, "all", false, "wipe every session and the owner marker of the namespace")
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and reset persisted onboarding sessions",
	Long: `Inspect and reset onboarding sessions in the configured session store.

Examples:
  # Show where a user stopped
  onboardd session show --user 3f6c9a

  # Make a user start over
  onboardd session reset --user 3f6c9a`,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a user's persisted session",
	RunE:  runSessionShow,
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete a user's persisted session",
	RunE:  runSessionReset,
}

func runSessionShow(cmd *cobra.Command, _ []string) error {
	if sessUser == "" {
		return fmt.Errorf("--user is required")
	}
	cfg, _, err := loadConfig(nil)
	if err != nil {
		return err
	}
	store, err := openSessionStore(cfg.Session)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rec, err := store.Load(ctx, sessUser)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	return printSession(cmd.OutOrStdout(), sessUser, rec, sessOutputJSON)
}

func printSession(out io.Writer, userID string, rec *session.Record, asJSON bool) error {
	if rec == nil {
		fmt.Fprintf(out, "No session stored for %s\n", userID)
		return nil
	}
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	var snap machine.Snapshot
	if err := json.Unmarshal(rec.Snapshot, &snap); err != nil {
		return fmt.Errorf("failed to decode session snapshot: %w", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "User:\t%s\n", rec.UserID)
	fmt.Fprintf(w, "Session:\t%s\n", snap.SessionID)
	fmt.Fprintf(w, "Revision:\t%d\n", rec.Revision)
	fmt.Fprintf(w, "Updated:\t%s\n", rec.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Step:\t%s\n", snap.Step)
	if snap.Tier > 0 {
		fmt.Fprintf(w, "Tier:\t%d\n", snap.Tier)
	}
	if d, ok := snap.CurrentDomain(); ok && snap.Tier == 2 {
		fmt.Fprintf(w, "Domain:\t%s (%d of %d)\n", d.Name, snap.DomainIndex+1, len(snap.Domains))
	} else if len(snap.Questions) > 0 {
		fmt.Fprintf(w, "Question:\t%d of %d\n", snap.QuestionIndex+1, len(snap.Questions))
	}
	fmt.Fprintf(w, "Golden keys:\t%d\n", len(snap.GoldenKeys))
	if snap.Pending != machine.SubmitNone {
		fmt.Fprintf(w, "Pending:\t%s\n", snap.Pending)
	}
	if snap.Error != nil {
		fmt.Fprintf(w, "Last error:\t%s\n", snap.Error.Message)
	}
	return w.Flush()
}

func runSessionReset(cmd *cobra.Command, _ []string) error {
	if sessUser == "" && !sessAll {
		return fmt.Errorf("--user or --all is required")
	}
	cfg, _, err := loadConfig(nil)
	if err != nil {
		return err
	}
	store, err := openSessionStore(cfg.Session)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sessAll {
		if err := store.Wipe(ctx); err != nil {
			return fmt.Errorf("failed to wipe sessions: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All sessions removed")
		return nil
	}
	if err := store.Delete(ctx, sessUser); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Session of %s removed\n", sessUser)
	return nil
}
