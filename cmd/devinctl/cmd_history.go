package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/devinctl/internal/state"
	"github.com/user/devinctl/pkg/devin"
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd)
}

func runStore() *state.RunStore {
	cfg := loadConfig()
	return state.NewRunStore(filepath.Join(cfg.DataDir, "runs.json"))
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show dependency analyses started from this machine",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := runStore().List()
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STARTED\tSESSION\tREPO\tTARGET\tOUTCOME\tRESULT")
		for _, r := range runs {
			outcome := r.Outcome
			if outcome == "" {
				outcome = "running"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.StartedAt.Format("2006-01-02 15:04:05"),
				r.SessionID,
				r.Repo,
				r.TargetVersion,
				outcome,
				r.ResultFile,
			)
		}
		return w.Flush()
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id|url>",
	Short: "Show one recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := devin.ParseSessionRef(args[0])
		if err != nil {
			return err
		}
		r, err := runStore().Get(id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Session: %s\n", r.SessionID)
		fmt.Fprintf(out, "Repository: %s\n", r.Repo)
		if r.TargetVersion != "" {
			fmt.Fprintf(out, "Target Version: %s\n", r.TargetVersion)
		}
		fmt.Fprintf(out, "Started: %s\n", r.StartedAt.Format("2006-01-02 15:04:05"))
		if r.FinishedAt.IsZero() {
			fmt.Fprintln(out, "Outcome: running")
		} else {
			fmt.Fprintf(out, "Finished: %s (%s)\n", r.FinishedAt.Format("2006-01-02 15:04:05"), r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
			fmt.Fprintf(out, "Outcome: %s (status %s)\n", r.Outcome, r.Status)
		}
		if r.ResultFile != "" {
			fmt.Fprintf(out, "Result: %s\n", r.ResultFile)
		}
		if r.URL != "" {
			fmt.Fprintf(out, "URL: %s\n", r.URL)
		}
		return nil
	},
}
