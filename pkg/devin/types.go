package devin

import (
	"bytes"
	"encoding/json"
	"time"
)

// Status is the session state reported in the status_enum field.
type Status string

const (
	StatusWorking  Status = "working"
	StatusBlocked  Status = "blocked"
	StatusFinished Status = "finished"
	StatusExpired  Status = "expired"
)

// IsTerminal reports whether the session will not transition any further
// on its own. A blocked session is idle waiting for input and counts as
// terminal.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusBlocked, StatusFinished, StatusExpired:
		return true
	}
	return false
}

// Session is the detail view of a remote session.
type Session struct {
	SessionID        string    `json:"session_id"`
	Title            string    `json:"title"`
	Status           string    `json:"status"`
	StatusEnum       Status    `json:"status_enum"`
	CreatedAt        string    `json:"created_at"`
	UpdatedAt        string    `json:"updated_at"`
	URL              string    `json:"url,omitempty"`
	StructuredOutput Document  `json:"structured_output"`
	Messages         []Message `json:"messages"`

	// Raw holds every top-level field of the response, including the ones
	// not modeled above.
	Raw map[string]any `json:"-"`
}

func (s *Session) UnmarshalJSON(data []byte) error {
	type plain Session
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*s = Session(p)
	s.Raw = raw
	return nil
}

// Created parses CreatedAt. The second result is false when the field is
// missing or not a recognizable timestamp.
func (s *Session) Created() (time.Time, bool) {
	return parseTimestamp(s.CreatedAt)
}

// LastMessages returns up to n of the most recent messages, oldest first.
func (s *Session) LastMessages(n int) []Message {
	if n <= 0 {
		return nil
	}
	if len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// Message is one entry of a session's event log.
type Message struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Origin    string `json:"origin,omitempty"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CreateSessionRequest is the body of POST /sessions.
type CreateSessionRequest struct {
	Prompt     string `json:"prompt"`
	Title      string `json:"title,omitempty"`
	Idempotent bool   `json:"idempotent"`
}

// CreateSessionResponse is returned by POST /sessions.
type CreateSessionResponse struct {
	SessionID    string `json:"session_id"`
	URL          string `json:"url"`
	IsNewSession bool   `json:"is_new_session"`
}

// KnowledgeRequest is the body of POST /knowledge. Optional fields are
// omitted when empty.
type KnowledgeRequest struct {
	Name               string `json:"name"`
	Body               string `json:"body"`
	TriggerDescription string `json:"trigger_description,omitempty"`
	ParentFolderID     string `json:"parent_folder_id,omitempty"`
	PinnedRepo         string `json:"pinned_repo,omitempty"`
}

// Knowledge is a created knowledge item.
type Knowledge struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	TriggerDescription string `json:"trigger_description,omitempty"`
	CreatedAt          string `json:"created_at"`
}

// Playbook is a reusable prompt addressed by its macro (e.g. "!get_java_deps").
type Playbook struct {
	PlaybookID string `json:"playbook_id"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	Macro      string `json:"macro"`
}

// PlaybookRequest is the body of PUT /playbooks/{id}.
type PlaybookRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Macro string `json:"macro"`
}
