package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/guriri-logistics/autopilot/internal/logging"
	"github.com/guriri-logistics/autopilot/internal/state"
)

var (
	inspectLast     int
	inspectAttempts int
	inspectJSON     bool
)

// #region command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the current loop state, its history and recent attempts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := loadEnvironment()
		if err != nil {
			return err
		}
		if env.cfg.StateBackend == "file" {
			return errors.New("inspect needs the sqlite state backend")
		}
		if _, err := os.Stat(env.cfg.StateDB); err != nil {
			return fmt.Errorf("state db %s: %w", env.cfg.StateDB, err)
		}
		store, err := openSQLite(env.cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		journal, err := logging.NewJournal(store.DB())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		current, err := store.Load(ctx)
		if err != nil {
			return err
		}
		versions, err := store.ListVersions(ctx, inspectLast)
		if err != nil {
			return err
		}
		attempts, err := journal.Recent(ctx, inspectAttempts)
		if err != nil {
			return err
		}

		report := inspectReport{Current: current, Versions: toVersionRows(versions), Attempts: toAttemptRows(attempts)}
		if inspectJSON {
			return printJSON(cmd.OutOrStdout(), report)
		}
		printReport(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N most recent state versions")
	inspectCmd.Flags().IntVar(&inspectAttempts, "attempts", 20, "show N most recent attempt journal rows")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON instead of tables")
}

// #endregion command

// #region rows
type inspectReport struct {
	Current  state.AgentState `json:"current"`
	Versions []versionRow     `json:"versions"`
	Attempts []attemptRow     `json:"attempts"`
}

type versionRow struct {
	VersionID   string `json:"version_id"`
	Action      string `json:"action"`
	Attempts    int    `json:"attempts"`
	Fingerprint string `json:"fingerprint"`
	CreatedAt   string `json:"created_at"`
}

type attemptRow struct {
	IncidentID string `json:"incident_id"`
	Attempt    int    `json:"attempt"`
	Action     string `json:"action"`
	Baseline   string `json:"baseline,omitempty"`
	Message    string `json:"message,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func toVersionRows(versions []state.VersionRecord) []versionRow {
	rows := make([]versionRow, len(versions))
	for i, v := range versions {
		rows[i] = versionRow{
			VersionID:   v.VersionID,
			Action:      string(v.State.LastAction),
			Attempts:    v.State.Attempts,
			Fingerprint: v.State.LastFingerprint,
			CreatedAt:   v.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return rows
}

func toAttemptRows(entries []logging.AttemptEntry) []attemptRow {
	rows := make([]attemptRow, len(entries))
	for i, e := range entries {
		rows[i] = attemptRow{
			IncidentID: e.IncidentID,
			Attempt:    e.Attempt,
			Action:     e.Action,
			Baseline:   e.Baseline,
			Message:    e.Message,
			CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return rows
}

// #endregion rows

// #region output
func printReport(w io.Writer, r inspectReport) {
	fmt.Fprintln(w, "Current state")
	fmt.Fprintf(w, "  fingerprint: %s\n", shortRef(r.Current.LastFingerprint))
	if !r.Current.LastSeenAt.IsZero() {
		fmt.Fprintf(w, "  last seen:   %s\n", r.Current.LastSeenAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "  attempts:    %d\n", r.Current.Attempts)
	fmt.Fprintf(w, "  last action: %s\n", orDash(string(r.Current.LastAction)))
	if r.Current.LastActionLog != "" {
		fmt.Fprintf(w, "  last log:    %s\n", oneLine(r.Current.LastActionLog, 100))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-12s  %-18s  %8s  %-12s  %s\n", "Version", "Action", "Attempts", "Fingerprint", "Time")
	fmt.Fprintf(w, "%-12s+-%-18s+-%8s+-%-12s+-%s\n", "------------", "------------------", "--------", "------------", "--------------------")
	for _, v := range r.Versions {
		fmt.Fprintf(w, "%-12s  %-18s  %8d  %-12s  %s\n", shortRef(v.VersionID), orDash(v.Action), v.Attempts, shortRef(v.Fingerprint), v.CreatedAt)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-12s  %7s  %-18s  %-20s  %s\n", "Incident", "Attempt", "Action", "Time", "Message")
	fmt.Fprintf(w, "%-12s+-%7s+-%-18s+-%-20s+-%s\n", "------------", "-------", "------------------", "--------------------", "--------")
	for _, a := range r.Attempts {
		fmt.Fprintf(w, "%-12s  %7d  %-18s  %-20s  %s\n", shortRef(a.IncidentID), a.Attempt, a.Action, a.CreatedAt, oneLine(a.Message, 60))
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion output
