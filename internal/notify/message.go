package notify

import (
	"fmt"
	"strings"
)

// RunSummary is the information sent when an analysis run ends.
type RunSummary struct {
	Repo          string
	TargetVersion string
	SessionID     string
	URL           string
	Outcome       string
	Status        string
	ResultFile    string
	Candidates    int
}

// Text renders s as a short plain-text message.
func (s RunSummary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dependency analysis %s: %s\n", s.Outcome, s.Repo)
	if s.TargetVersion != "" {
		fmt.Fprintf(&b, "Target version: %s\n", s.TargetVersion)
	}
	fmt.Fprintf(&b, "Session: %s", s.SessionID)
	if s.Status != "" {
		fmt.Fprintf(&b, " (%s)", s.Status)
	}
	b.WriteString("\n")
	if s.ResultFile != "" {
		fmt.Fprintf(&b, "Upload candidates: %d\nSaved to: %s\n", s.Candidates, s.ResultFile)
	}
	if s.URL != "" {
		fmt.Fprintf(&b, "%s\n", s.URL)
	}
	return b.String()
}
