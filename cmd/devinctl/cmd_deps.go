package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/user/devinctl/internal/deps"
	"github.com/user/devinctl/internal/notify"
	"github.com/user/devinctl/internal/poller"
	"github.com/user/devinctl/internal/state"
	"github.com/user/devinctl/pkg/devin"
)

var depsRunFlags pollFlags

func init() {
	rootCmd.AddCommand(depsCmd)
	depsCmd.AddCommand(depsRunCmd, depsShowCmd, depsListCmd)

	depsRunCmd.Flags().String("target-version", "", "also analyze this framework version")
	depsRunCmd.Flags().Bool("notify", false, "send a Telegram message when the run ends")
	depsRunFlags.register(depsRunCmd)

	depsShowCmd.Flags().String("version", "both", "which results to show: current, target or both")
	depsShowCmd.Flags().String("csv", "", "save each table as <prefix>.csv or <prefix>_current.csv and <prefix>_target.csv")
	depsShowCmd.Flags().Bool("list", false, "list saved result files")
}

var depsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Run and display Java dependency analyses",
}

var depsRunCmd = &cobra.Command{
	Use:   "run <repo>",
	Short: "Start a dependency analysis and wait for its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo := args[0]
		target, _ := cmd.Flags().GetString("target-version")
		notifyDone, _ := cmd.Flags().GetBool("notify")
		cfg := loadConfig()

		client, err := newClient()
		if err != nil {
			return err
		}
		var notifier *notify.Registry
		if notifyDone {
			if notifier, err = newNotifier(); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Configuration:")
		fmt.Fprintf(out, "  Repository: %s\n", repo)
		if target != "" {
			fmt.Fprintf(out, "  Target Version: %s\n", target)
			fmt.Fprintln(out, "  Mode: Dual (current + target)")
		} else {
			fmt.Fprintln(out, "  Mode: Current version only")
		}

		fmt.Fprintf(out, "\nCreating session for %s...\n", repo)
		created, err := client.CreateSession(cmd.Context(), devin.CreateSessionRequest{
			Prompt: deps.BuildPrompt(repo, target),
			Title:  deps.Title(repo),
		})
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		url := sessionURL(client, created.SessionID, created.URL)
		fmt.Fprintf(out, "Session created: %s\n", created.SessionID)
		fmt.Fprintf(out, "  View at: %s\n", url)

		runs := runStore()
		run := &state.Run{
			SessionID:     created.SessionID,
			Repo:          repo,
			TargetVersion: target,
			URL:           url,
			StartedAt:     time.Now(),
		}
		if err := runs.Add(run); err != nil {
			slog.Warn("failed to record run", "session_id", run.SessionID, "error", err)
		}

		opts := depsRunFlags.options(cfg)
		opts.OnPoll = progress(out)
		fmt.Fprintf(out, "Waiting for results (max %s)...\n", opts.MaxWait)
		res, err := poller.New(client, opts).Wait(cmd.Context(), created.SessionID)
		if err != nil {
			return err
		}
		report(out, res, url)

		summary := notify.RunSummary{
			Repo:          repo,
			TargetVersion: target,
			SessionID:     created.SessionID,
			URL:           url,
			Outcome:       res.Outcome.String(),
			Status:        string(res.Status),
		}
		if res.Outcome == poller.OutcomeResult {
			path, err := state.NewResultStore(cfg.OutputDir).Save(res.Document, time.Now())
			if err != nil {
				return fmt.Errorf("save result: %w", err)
			}
			fmt.Fprintf(out, "\nResults saved to: %s\n", path)
			deps.Summarize(out, res.Document)
			summary.ResultFile = path
			summary.Candidates = len(deps.CandidatePaths(res.Document, deps.VersionBoth))
		} else {
			fmt.Fprintln(out, "\nNo results retrieved")
		}

		err = runs.Update(created.SessionID, func(r *state.Run) {
			r.Status = summary.Status
			r.Outcome = summary.Outcome
			r.ResultFile = summary.ResultFile
			r.FinishedAt = time.Now()
		})
		if err != nil {
			slog.Warn("failed to update run", "session_id", created.SessionID, "error", err)
		}

		if notifier != nil {
			deliverSummary(cmd.Context(), notifier, summary)
		}
		return waitError(res)
	},
}

var depsShowCmd = &cobra.Command{
	Use:   "show [<file>|<session-id>|<url>]",
	Short: "Display dependency results from a saved file or a session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, _ := cmd.Flags().GetBool("list")
		versionFlag, _ := cmd.Flags().GetString("version")
		csvPrefix, _ := cmd.Flags().GetString("csv")
		out := cmd.OutOrStdout()

		if list {
			return listResults(out)
		}
		if len(args) == 0 {
			cmd.SilenceUsage = false
			return fmt.Errorf("a result file, session id or session URL is required")
		}
		version, err := deps.ParseVersion(versionFlag)
		if err != nil {
			return err
		}

		doc, err := loadDocument(cmd.Context(), out, args[0])
		if err != nil {
			return err
		}
		_, err = deps.Display(out, doc, deps.DisplayOptions{
			Version:   version,
			CSVPrefix: csvPrefix,
			Dir:       loadConfig().OutputDir,
		})
		return err
	},
}

var depsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved result files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listResults(cmd.OutOrStdout())
	},
}

// loadDocument reads a result from a local file, or from the session named
// by ref when no such file exists.
func loadDocument(ctx context.Context, out io.Writer, ref string) (devin.Document, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		fmt.Fprintf(out, "Reading from file: %s\n", ref)
		return state.LoadResult(ref)
	}

	id, err := devin.ParseSessionRef(ref)
	if err != nil {
		return devin.Document{}, err
	}
	client, err := newClient()
	if err != nil {
		return devin.Document{}, err
	}
	fmt.Fprintf(out, "Fetching session: %s\n", id)
	res, err := poller.New(client, new(pollFlags).options(loadConfig())).Read(ctx, id)
	if err != nil {
		return devin.Document{}, err
	}
	if res.Outcome != poller.OutcomeResult {
		return devin.Document{}, fmt.Errorf("no results found in session %s (status %s)", id, res.Status)
	}
	return res.Document, nil
}

func listResults(out io.Writer) error {
	store := state.NewResultStore(loadConfig().OutputDir)
	files, err := store.List()
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "No dependency files found in %s\n", store.Dir())
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tSIZE\tMODIFIED")
	for _, f := range files {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			f.Name,
			humanize.Bytes(uint64(f.Size)),
			f.ModTime.Format("2006-01-02 15:04:05"),
		)
	}
	return w.Flush()
}

func deliverSummary(ctx context.Context, notifier *notify.Registry, summary notify.RunSummary) {
	target := notify.TelegramTarget(loadConfig().Notify.Telegram.ChatID)
	if err := notifier.Deliver(ctx, target, summary.Text()); err != nil {
		slog.Warn("failed to send notification", "target", target, "error", err)
	}
}

func newNotifier() (*notify.Registry, error) {
	cfg := loadConfig()
	if err := cfg.RequireTelegram(); err != nil {
		return nil, err
	}
	tg, err := notify.NewTelegram(cfg.Notify.Telegram.Token, notify.DefaultRetryPolicy())
	if err != nil {
		return nil, err
	}
	// Telegram retries per chunk, so the registry delivers once.
	reg := notify.NewRegistry(nil)
	reg.Register(notify.TelegramPrefix, tg.Handler())
	return reg, nil
}
