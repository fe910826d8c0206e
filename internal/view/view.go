// Package view renders sessions for the terminal.
package view

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/user/devinctl/pkg/devin"
)

const (
	// RecentMessages is how many trailing messages Inspect shows.
	RecentMessages  = 5
	maxMessageChars = 150
	timestampChars  = 19
)

// Printer writes styled output to w. Styling is dropped automatically when
// w is not a terminal.
type Printer struct {
	w      io.Writer
	appURL string
	theme  theme
}

// New creates a printer for w. appURL is used to build session links.
func New(w io.Writer, appURL string) *Printer {
	return &Printer{w: w, appURL: appURL, theme: newTheme(lipgloss.NewRenderer(w))}
}

// SessionList prints sessions in the order given, numbered from 1.
func (p *Printer) SessionList(sessions []devin.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(p.w, "No sessions found.")
		return
	}
	fmt.Fprintf(p.w, "Found %d recent session(s):\n\n", len(sessions))
	for i := range sessions {
		s := &sessions[i]
		title := s.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(p.w, "%d. %s %s\n", i+1, p.theme.glyph(s.StatusEnum), p.theme.title.Render(title))
		fmt.Fprintf(p.w, "   ID: %s\n", s.SessionID)
		fmt.Fprintf(p.w, "   Status: %s\n", p.theme.status(s.StatusEnum))
		fmt.Fprintf(p.w, "   Created: %s\n", created(s))
		fmt.Fprintf(p.w, "   URL: %s\n", devin.WebURL(p.appURL, s.SessionID))
		if !s.StructuredOutput.IsEmpty() {
			fmt.Fprintf(p.w, "   %s\n", p.theme.highlight.Render("Has structured output"))
		}
		fmt.Fprintln(p.w)
	}
}

func created(s *devin.Session) string {
	t, ok := s.Created()
	if !ok {
		if s.CreatedAt == "" {
			return "N/A"
		}
		return s.CreatedAt
	}
	return t.Format("2006-01-02 15:04:05") + " (" + humanize.Time(t) + ")"
}

// Inspect prints everything known about one session: its metadata, the
// structured output, the last messages and the top-level response keys.
func (p *Printer) Inspect(s *devin.Session) error {
	fmt.Fprintln(p.w, p.theme.heading.Render("Session "+s.SessionID))

	fmt.Fprintln(p.w, "\nSession Info:")
	fmt.Fprintf(p.w, "  Title: %s\n", orNA(s.Title))
	fmt.Fprintf(p.w, "  Status: %s\n", p.theme.status(s.StatusEnum))
	fmt.Fprintf(p.w, "  Created: %s\n", orNA(s.CreatedAt))
	fmt.Fprintf(p.w, "  Updated: %s\n", orNA(s.UpdatedAt))
	fmt.Fprintf(p.w, "  URL: %s\n", devin.WebURL(p.appURL, s.SessionID))

	fmt.Fprintln(p.w, "\nStructured Output:")
	if s.StructuredOutput.IsEmpty() {
		fmt.Fprintf(p.w, "  Not available (%s)\n", kind(s.StructuredOutput.Value()))
	} else {
		compact, err := json.Marshal(s.StructuredOutput)
		if err != nil {
			return fmt.Errorf("encode structured output: %w", err)
		}
		pretty, err := s.StructuredOutput.Indent()
		if err != nil {
			return fmt.Errorf("encode structured output: %w", err)
		}
		fmt.Fprintf(p.w, "  %s (%s)\n\n", p.theme.highlight.Render("Found"), humanize.Bytes(uint64(len(compact))))
		fmt.Fprintln(p.w, indent(string(pretty), "    "))
	}

	fmt.Fprintln(p.w, "\nRecent Messages:")
	fmt.Fprintf(p.w, "  Total messages: %d\n", len(s.Messages))
	recent := s.LastMessages(RecentMessages)
	if len(recent) > 0 {
		fmt.Fprintf(p.w, "\n  Last %d messages:\n", len(recent))
	}
	for _, m := range recent {
		typ := m.Type
		if typ == "" {
			typ = "unknown"
		}
		ts := truncate(orNA(m.Timestamp), timestampChars)
		fmt.Fprintf(p.w, "\n  [%s] %s:\n", ts, p.theme.faint.Render(typ))
		text := truncate(m.Message, maxMessageChars)
		if utf8.RuneCountInString(m.Message) > maxMessageChars {
			text += "..."
		}
		fmt.Fprintf(p.w, "  %s\n", strings.ReplaceAll(text, "\n", " "))
	}

	fmt.Fprintln(p.w, "\nTop-level keys in response:")
	keys := make([]string, 0, len(s.Raw))
	for k := range s.Raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(p.w, "  - %s\n", describe(k, s.Raw[k]))
	}
	return nil
}

func describe(key string, v any) string {
	switch x := v.(type) {
	case []any:
		return fmt.Sprintf("%s: array (size: %d)", key, len(x))
	case map[string]any:
		return fmt.Sprintf("%s: object (size: %d)", key, len(x))
	case nil:
		return key + ": null"
	}
	return fmt.Sprintf("%s: %v", key, v)
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "empty object"
	case []any:
		return "empty array"
	case string:
		return "empty string"
	case bool:
		return "false"
	}
	return "zero"
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
