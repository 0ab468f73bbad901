package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/guriri-logistics/autopilot/internal/replay"
)

var replayJSON bool

// #region command
var replayCmd = &cobra.Command{
	Use:   "replay <fixture>...",
	Short: "Run recorded incident fixtures through the loop with scripted collaborators",
	Long: `Replay feeds each fixture's ticks through the real remediation loop. Commands,
model replies and smoke answers come from the fixture; nothing touches git, PM2
or the network. Exits non-zero when any expectation does not hold.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workDir, err := os.MkdirTemp("", "autopilot-replay-")
		if err != nil {
			return fmt.Errorf("create work dir: %w", err)
		}
		defer os.RemoveAll(workDir)

		var reports []fixtureReport
		failed := 0
		for _, path := range args {
			f, err := replay.LoadFixture(path)
			if err != nil {
				return err
			}
			results, err := replay.Replay(cmd.Context(), f, workDir)
			if err != nil {
				return fmt.Errorf("replay %s: %w", path, err)
			}
			rep := fixtureReport{
				Path:       path,
				Summary:    replay.Summarize(results),
				Mismatches: replay.Check(f, results),
			}
			for _, r := range results {
				row := tickRow{Index: r.Index, Action: string(r.Action), Attempts: r.Attempts, GeneratorCalls: r.GeneratorCalls}
				if r.Err != nil {
					row.Error = r.Err.Error()
				}
				rep.Ticks = append(rep.Ticks, row)
			}
			if len(rep.Mismatches) > 0 {
				failed++
			}
			reports = append(reports, rep)
		}

		if replayJSON {
			if err := printJSON(cmd.OutOrStdout(), reports); err != nil {
				return err
			}
		} else {
			for _, rep := range reports {
				printFixtureReport(cmd.OutOrStdout(), rep)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d fixture(s) did not match expectations", failed, len(reports))
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "output as JSON")
}

// #endregion command

// #region output
type fixtureReport struct {
	Path       string         `json:"path"`
	Ticks      []tickRow      `json:"ticks"`
	Summary    replay.Summary `json:"summary"`
	Mismatches []string       `json:"mismatches,omitempty"`
}

type tickRow struct {
	Index          int    `json:"index"`
	Action         string `json:"action"`
	Attempts       int    `json:"attempts"`
	GeneratorCalls int    `json:"generator_calls"`
	Error          string `json:"error,omitempty"`
}

func printFixtureReport(w io.Writer, rep fixtureReport) {
	fmt.Fprintf(w, "=== %s ===\n", rep.Path)
	fmt.Fprintf(w, "%-5s  %-18s  %8s  %6s  %s\n", "Tick", "Action", "Attempts", "Model", "Error")
	fmt.Fprintf(w, "%-5s+-%-18s+-%8s+-%6s+-%s\n", "-----", "------------------", "--------", "------", "-----")
	for _, t := range rep.Ticks {
		fmt.Fprintf(w, "%-5d  %-18s  %8d  %6d  %s\n", t.Index, orDash(t.Action), t.Attempts, t.GeneratorCalls, oneLine(t.Error, 60))
	}
	s := rep.Summary
	fmt.Fprintf(w, "ticks=%d promoted=%d rollbacks=%d terminal=%d errors=%d\n", s.Ticks, s.Promoted, s.Rollbacks, s.Terminal, s.Errors)
	if len(rep.Mismatches) == 0 {
		fmt.Fprintln(w, "PASS")
	} else {
		for _, m := range rep.Mismatches {
			fmt.Fprintf(w, "  MISMATCH %s\n", m)
		}
		fmt.Fprintln(w, "FAIL")
	}
	fmt.Fprintln(w)
}

// #endregion output
