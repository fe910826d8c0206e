package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user/devinctl/internal/config"
	"github.com/user/devinctl/internal/poller"
	"github.com/user/devinctl/internal/state"
	"github.com/user/devinctl/pkg/devin"
)

func TestPollFlagsOptions(t *testing.T) {
	cfg := config.Default()

	opts := new(pollFlags).options(cfg)
	if opts.MaxWait != 30*time.Minute || opts.Interval != 10*time.Second || opts.Window != 5 {
		t.Errorf("unexpected defaults: %+v", opts)
	}
	if opts.Attachments == nil {
		t.Error("expected an attachment matcher")
	}

	f := &pollFlags{maxWait: 2, interval: 3, window: 9}
	opts = f.options(cfg)
	if opts.MaxWait != 2*time.Minute || opts.Interval != 3*time.Second || opts.Window != 9 {
		t.Errorf("flags not applied: %+v", opts)
	}
}

func TestWaitError(t *testing.T) {
	if err := waitError(&poller.Result{Outcome: poller.OutcomeNoResult}); err != nil {
		t.Errorf("no result should not be an error, got %v", err)
	}
	if err := waitError(&poller.Result{Outcome: poller.OutcomeResult}); err != nil {
		t.Errorf("result should not be an error, got %v", err)
	}

	err := waitError(&poller.Result{SessionID: "devin-abc", Outcome: poller.OutcomeTimeout, Elapsed: 40 * time.Second})
	var ee *exitError
	if !errors.As(err, &ee) || ee.code != 2 {
		t.Fatalf("expected exit code 2, got %v", err)
	}
	if !strings.Contains(err.Error(), "devin-abc") {
		t.Errorf("error should name the session: %v", err)
	}
}

func TestReport(t *testing.T) {
	url := "https://app.devin.ai/sessions/abc"
	tests := []struct {
		res  poller.Result
		want string
	}{
		{poller.Result{Outcome: poller.OutcomeResult, Source: poller.SourceInline}, "structured_output"},
		{poller.Result{Outcome: poller.OutcomeResult, Source: poller.SourceAttachment, Attachment: &devin.AttachmentRef{UUID: "u", Filename: "out.json"}}, "attachment out.json"},
		{poller.Result{Outcome: poller.OutcomeNoResult, Status: devin.StatusExpired}, "Session expired"},
		{poller.Result{Outcome: poller.OutcomeNoResult, Status: devin.StatusBlocked}, url},
		{poller.Result{Outcome: poller.OutcomeTimeout, Elapsed: 40 * time.Second}, "Timeout after 40s"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		report(&buf, &tt.res, url)
		if !strings.Contains(buf.String(), tt.want) {
			t.Errorf("report(%v) = %q, want it to contain %q", tt.res.Outcome, buf.String(), tt.want)
		}
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	progress(&buf)(poller.Poll{N: 3, Status: devin.StatusWorking, Elapsed: 75 * time.Second})
	if got := buf.String(); got != "  Status: working (elapsed: 1m 15s)\n" {
		t.Errorf("progress = %q", got)
	}
}

func TestPrompter(t *testing.T) {
	var out bytes.Buffer
	p := &prompter{scanner: bufio.NewScanner(strings.NewReader("\nnew\nabc\n7\n")), out: &out}

	if got := p.ask("Kept", "old"); got != "old" {
		t.Errorf("empty answer should keep the default, got %q", got)
	}
	if got := p.ask("Changed", "old"); got != "new" {
		t.Errorf("got %q", got)
	}
	if got := p.askInt("Bad number", 5); got != 5 {
		t.Errorf("invalid number should keep the default, got %d", got)
	}
	if got := p.askInt("Number", 5); got != 7 {
		t.Errorf("got %d", got)
	}
	if !strings.Contains(out.String(), "Kept [old]: ") {
		t.Errorf("prompt should show the default: %q", out.String())
	}
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"session", "list"}, {"session", "inspect"}, {"session", "create"}, {"session", "wait"},
		{"deps", "run"}, {"deps", "show"}, {"deps", "list"},
		{"knowledge", "import"}, {"knowledge", "names"},
		{"playbook", "list"}, {"playbook", "update"},
		{"artifact", "copy"},
		{"history", "list"}, {"history", "show"},
		{"config", "list"}, {"config", "get"}, {"config", "set"},
		{"setup"},
	} {
		cmd, rest, err := rootCmd.Find(path)
		if err != nil || len(rest) != 0 || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not registered (%v)", path, err)
		}
	}
}

// execute runs the command tree against a config file in a temp dir, with
// no API key and no .env in reach. It returns everything written to
// stdout and stderr.
func execute(t *testing.T, c *config.Config, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DEVIN_API_KEY", "")

	path := filepath.Join(dir, "config.json")
	if c != nil {
		if err := config.Save(path, c); err != nil {
			t.Fatal(err)
		}
	}
	cfg = nil

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--config", path}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestExecute_MissingAPIKey(t *testing.T) {
	out, err := execute(t, nil, "session", "list")
	if !errors.Is(err, config.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if exitCode(err) != 1 {
		t.Errorf("exit code = %d, want 1", exitCode(err))
	}
	if !strings.Contains(hint(err), "devinctl setup") {
		t.Errorf("hint = %q", hint(err))
	}
	if strings.Contains(out, "Usage:") {
		t.Errorf("a missing credential is not a usage error:\n%s", out)
	}
}

func TestExecute_MissingInputPrintsUsage(t *testing.T) {
	for _, args := range [][]string{
		{"session", "wait"},
		{"deps", "show"},
		{"artifact", "copy"},
	} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			out, err := execute(t, nil, args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(out, "Usage:") {
				t.Errorf("expected usage in output, got:\n%s", out)
			}
		})
	}
}

func TestExecute_UnauthorizedHint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := config.Default()
	c.API.BaseURL = srv.URL
	c.API.APIKey = "stale"
	c.OutputDir = t.TempDir()

	_, err := execute(t, c, "session", "inspect", "abc", "--no-save")
	if !devin.IsUnauthorized(err) {
		t.Fatalf("expected a 401, got %v", err)
	}
	if !strings.Contains(hint(err), "DEVIN_API_KEY") {
		t.Errorf("hint = %q", hint(err))
	}
}

func TestUniquePaths(t *testing.T) {
	got := uniquePaths([]string{"com/a/x.jar", " /com/a/x.jar", "", "org/b/x.jar", "com/a/x.jar"})
	want := []string{"com/a/x.jar", "org/b/x.jar"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("uniquePaths = %v, want %v", got, want)
	}
}

func TestHint(t *testing.T) {
	notFound := fmt.Errorf("get session: %w", &devin.APIError{StatusCode: http.StatusNotFound})
	if !strings.Contains(hint(notFound), "No such session") {
		t.Errorf("hint(404) = %q", hint(notFound))
	}
	forbidden := &devin.APIError{StatusCode: http.StatusForbidden}
	if !strings.Contains(hint(forbidden), "DEVIN_API_KEY") {
		t.Errorf("hint(403) = %q", hint(forbidden))
	}
	if h := hint(errors.New("boom")); h != "" {
		t.Errorf("unexpected hint %q", h)
	}
}

func TestExecute_HistoryShow(t *testing.T) {
	c := config.Default()
	c.DataDir = t.TempDir()
	store := state.NewRunStore(filepath.Join(c.DataDir, "runs.json"))
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := store.Add(&state.Run{
		SessionID:     "devin-abc",
		Repo:          "acme/core",
		TargetVersion: "2.0.0",
		Status:        "finished",
		Outcome:       "result",
		ResultFile:    "deps_acme_core.json",
		StartedAt:     started,
		FinishedAt:    started.Add(95 * time.Second),
	}); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, c, "history", "show", "https://app.devin.ai/sessions/abc")
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	for _, want := range []string{"Session: devin-abc", "Repository: acme/core", "Target Version: 2.0.0", "Outcome: result (status finished)", "(1m35s)", "Result: deps_acme_core.json"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, c, "history", "show", "devin-missing"); err == nil || !strings.Contains(err.Error(), "run not found") {
		t.Errorf("expected run not found, got %v", err)
	}
}
