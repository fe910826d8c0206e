package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/devinctl/internal/config"
	"github.com/user/devinctl/internal/poller"
	"github.com/user/devinctl/pkg/devin"
)

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "devinctl",
	Short:         "Drive remote coding-agent sessions from the command line",
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Arguments are valid at this point; later failures are not usage errors.
		cmd.SilenceUsage = true

		if err := config.LoadDotEnv(".env"); err != nil {
			return err
		}
		c, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		setupLogging(cfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", filepath.Join(os.Getenv("HOME"), ".devinctl", "config.json"), "config file path")
}

// exitError carries a specific process exit status.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if h := hint(err); h != "" {
			fmt.Fprintln(os.Stderr, h)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// hint suggests a next step for errors a user can fix.
func hint(err error) string {
	switch {
	case errors.Is(err, config.ErrMissingCredential):
		return "Set it in .env or the environment, or run 'devinctl setup'."
	case devin.IsUnauthorized(err):
		return "The API rejected the credentials; check DEVIN_API_KEY."
	case devin.IsNotFound(err):
		return "No such session; check the session id or URL."
	}
	return ""
}

func loadConfig() *config.Config {
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func newClient() (*devin.Client, error) {
	cfg := loadConfig()
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return devin.New(devin.Config{
		BaseURL: cfg.API.BaseURL,
		AppURL:  cfg.API.AppURL,
		APIKey:  cfg.API.APIKey,
		Timeout: cfg.APITimeout(),
	}), nil
}

// pollFlags are the wait settings shared by every command that polls.
type pollFlags struct {
	maxWait  int
	interval int
	window   int
}

func (f *pollFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.maxWait, "max-wait", 0, "minutes to wait before giving up (default from config)")
	cmd.Flags().IntVar(&f.interval, "interval", 0, "seconds between polls (default from config)")
	cmd.Flags().IntVar(&f.window, "window", 0, "trailing messages searched for an attachment (default from config)")
}

func (f *pollFlags) options(cfg *config.Config) poller.Options {
	opts := poller.Options{
		MaxWait:     cfg.MaxWait(),
		Interval:    cfg.PollInterval(),
		Window:      cfg.Poll.MessageWindow,
		Attachments: devin.NewAttachmentMatcher(cfg.API.AppURL),
	}
	if f.maxWait > 0 {
		opts.MaxWait = time.Duration(f.maxWait) * time.Minute
	}
	if f.interval > 0 {
		opts.Interval = time.Duration(f.interval) * time.Second
	}
	if f.window > 0 {
		opts.Window = f.window
	}
	return opts
}

// waitError maps a poll outcome to the command's error and exit status.
// Only a timeout is an error; a session without a result is not.
func waitError(res *poller.Result) error {
	if res.Outcome == poller.OutcomeTimeout {
		return &exitError{code: 2, err: fmt.Errorf("timed out after %s waiting for %s", res.Elapsed.Round(time.Second), res.SessionID)}
	}
	return nil
}
