package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/devinctl/internal/poller"
	"github.com/user/devinctl/internal/state"
	"github.com/user/devinctl/internal/view"
	"github.com/user/devinctl/pkg/devin"
)

var sessionWaitFlags pollFlags

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionInspectCmd, sessionCreateCmd, sessionWaitCmd)

	sessionListCmd.Flags().Int("limit", 15, "maximum number of sessions to show")

	sessionInspectCmd.Flags().Bool("no-save", false, "do not save the full response to a file")

	sessionCreateCmd.Flags().String("prompt", "", "prompt text")
	sessionCreateCmd.Flags().String("prompt-file", "", "read the prompt from a file")
	sessionCreateCmd.Flags().String("title", "", "session title")
	sessionCreateCmd.Flags().Bool("idempotent", false, "reuse an existing session with the same prompt")
	sessionCreateCmd.MarkFlagsMutuallyExclusive("prompt", "prompt-file")
	sessionCreateCmd.MarkFlagsOneRequired("prompt", "prompt-file")

	sessionWaitFlags.register(sessionWaitCmd)
	sessionWaitCmd.Flags().Bool("save", false, "save a retrieved result as dependencies_<timestamp>.json")
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and manage remote sessions",
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		client, err := newClient()
		if err != nil {
			return err
		}
		sessions, err := client.ListSessions(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		view.New(cmd.OutOrStdout(), client.AppURL()).SessionList(sessions)
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id|url>",
	Short: "Show everything about one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noSave, _ := cmd.Flags().GetBool("no-save")
		id, err := devin.ParseSessionRef(args[0])
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}
		session, err := client.GetSession(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get session: %w", err)
		}

		out := cmd.OutOrStdout()
		if err := view.New(out, client.AppURL()).Inspect(session); err != nil {
			return err
		}
		if noSave {
			return nil
		}
		path, err := state.SaveInspection(loadConfig().OutputDir, id, session.Raw)
		if err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		fmt.Fprintf(out, "\nFull response saved to: %s\n", path)
		return nil
	},
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Start a new session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, _ := cmd.Flags().GetString("prompt")
		promptFile, _ := cmd.Flags().GetString("prompt-file")
		title, _ := cmd.Flags().GetString("title")
		idempotent, _ := cmd.Flags().GetBool("idempotent")

		if promptFile != "" {
			data, err := os.ReadFile(promptFile)
			if err != nil {
				return fmt.Errorf("read prompt: %w", err)
			}
			prompt = string(data)
		}
		if strings.TrimSpace(prompt) == "" {
			return fmt.Errorf("prompt is empty")
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		created, err := client.CreateSession(cmd.Context(), devin.CreateSessionRequest{
			Prompt:     prompt,
			Title:      title,
			Idempotent: idempotent,
		})
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}

		out := cmd.OutOrStdout()
		if created.IsNewSession || !idempotent {
			fmt.Fprintf(out, "Session created: %s\n", created.SessionID)
		} else {
			fmt.Fprintf(out, "Existing session reused: %s\n", created.SessionID)
		}
		fmt.Fprintf(out, "  View at: %s\n", sessionURL(client, created.SessionID, created.URL))
		return nil
	},
}

var sessionWaitCmd = &cobra.Command{
	Use:   "wait <session-id|url>",
	Short: "Poll a session until it finishes and print its JSON result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		save, _ := cmd.Flags().GetBool("save")
		id, err := devin.ParseSessionRef(args[0])
		if err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		opts := sessionWaitFlags.options(loadConfig())
		opts.OnPoll = progress(out)
		fmt.Fprintf(out, "Waiting for results (max %s)...\n", opts.MaxWait)

		res, err := poller.New(client, opts).Wait(cmd.Context(), id)
		if err != nil {
			return err
		}
		report(out, res, client.WebURL(id))
		if res.Outcome != poller.OutcomeResult {
			return waitError(res)
		}

		data, err := res.Document.Indent()
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		fmt.Fprintf(out, "\n%s\n", data)

		if save {
			path, err := state.NewResultStore(loadConfig().OutputDir).Save(res.Document, time.Now())
			if err != nil {
				return fmt.Errorf("save result: %w", err)
			}
			fmt.Fprintf(out, "\nResults saved to: %s\n", path)
		}
		return nil
	},
}

// progress prints one status line per poll.
func progress(w io.Writer) func(poller.Poll) {
	return func(p poller.Poll) {
		elapsed := int(p.Elapsed.Seconds())
		fmt.Fprintf(w, "  Status: %s (elapsed: %dm %ds)\n", p.Status, elapsed/60, elapsed%60)
	}
}

// report describes how a wait ended.
func report(w io.Writer, res *poller.Result, url string) {
	switch res.Outcome {
	case poller.OutcomeResult:
		if res.Source == poller.SourceAttachment {
			fmt.Fprintf(w, "Found results in attachment %s\n", res.Attachment.Filename)
		} else {
			fmt.Fprintln(w, "Found results in structured_output")
		}
	case poller.OutcomeNoResult:
		switch res.Status {
		case devin.StatusExpired:
			fmt.Fprintln(w, "Session expired")
		case devin.StatusBlocked:
			fmt.Fprintln(w, "Session is waiting for instructions (task likely complete)")
		default:
			fmt.Fprintf(w, "Session %s\n", res.Status)
		}
		fmt.Fprintln(w, "  No structured output or attachments found")
		fmt.Fprintf(w, "  Check the session manually: %s\n", url)
	case poller.OutcomeTimeout:
		fmt.Fprintf(w, "Timeout after %s\n", res.Elapsed.Round(time.Second))
		fmt.Fprintf(w, "  Check the session manually: %s\n", url)
	}
}

func sessionURL(client *devin.Client, id, reported string) string {
	if reported != "" {
		return reported
	}
	return client.WebURL(id)
}
