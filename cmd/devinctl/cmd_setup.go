package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/devinctl/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		out := cmd.OutOrStdout()
		p := &prompter{scanner: bufio.NewScanner(cmd.InOrStdin()), out: out}

		fmt.Fprintln(out, "devinctl setup")
		fmt.Fprintln(out, "Press Enter to keep the value shown in brackets.")
		fmt.Fprintln(out)

		cfg.API.APIKey = p.ask("API key", cfg.API.APIKey)
		cfg.API.BaseURL = p.ask("API base URL", cfg.API.BaseURL)
		cfg.API.AppURL = p.ask("Web app URL", cfg.API.AppURL)
		cfg.OutputDir = p.ask("Directory for results", cfg.OutputDir)
		cfg.Poll.MaxWaitMinutes = p.askInt("Max wait (minutes)", cfg.Poll.MaxWaitMinutes)
		cfg.Poll.IntervalSeconds = p.askInt("Poll interval (seconds)", cfg.Poll.IntervalSeconds)

		fmt.Fprintln(out, "\nArtifact copy (optional)")
		askEndpoint(p, "Source", &cfg.Artifactory.Source)
		askEndpoint(p, "Target", &cfg.Artifactory.Target)

		fmt.Fprintln(out, "\nNotifications (optional)")
		cfg.Notify.Telegram.Token = p.ask("Telegram bot token", cfg.Notify.Telegram.Token)
		chat := ""
		if cfg.Notify.Telegram.ChatID != 0 {
			chat = strconv.FormatInt(cfg.Notify.Telegram.ChatID, 10)
		}
		if v := p.ask("Telegram chat id", chat); v != "" {
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat id %q: %w", v, err)
			}
			cfg.Notify.Telegram.ChatID = id
		}

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Configuration saved to", cfgPath)
		return nil
	},
}

func askEndpoint(p *prompter, label string, ep *config.Endpoint) {
	ep.URL = p.ask(label+" URL", ep.URL)
	ep.Repo = p.ask(label+" repository", ep.Repo)
	ep.User = p.ask(label+" user", ep.User)
	ep.Password = p.ask(label+" password", ep.Password)
}

// prompter reads answers line by line. An empty answer keeps the default.
type prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func (p *prompter) ask(label, def string) string {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	if p.scanner.Scan() {
		if input := strings.TrimSpace(p.scanner.Text()); input != "" {
			return input
		}
	}
	return def
}

func (p *prompter) askInt(label string, def int) int {
	v := p.ask(label, strconv.Itoa(def))
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
