package view

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/user/devinctl/pkg/devin"
)

const appURL = "https://app.devin.ai"

func decodeSession(t *testing.T, body string) *devin.Session {
	t.Helper()
	var s devin.Session
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return &s
}

func TestSessionList(t *testing.T) {
	sessions := []devin.Session{
		*decodeSession(t, `{"session_id":"devin-aaa","title":"Java Deps: org/shop","status_enum":"finished","created_at":"2025-03-01T10:20:30Z","structured_output":{"dependencies":[1]}}`),
		*decodeSession(t, `{"session_id":"devin-bbb","status_enum":"working","created_at":""}`),
	}

	var buf bytes.Buffer
	New(&buf, appURL).SessionList(sessions)
	out := buf.String()

	for _, want := range []string{
		"Found 2 recent session(s):",
		"1. [+] Java Deps: org/shop",
		"ID: devin-aaa",
		"Status: finished",
		"Created: 2025-03-01 10:20:30",
		"URL: https://app.devin.ai/sessions/aaa",
		"Has structured output",
		"2. [~] Untitled",
		"Created: N/A",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "Has structured output") != 1 {
		t.Errorf("only the first session has structured output:\n%s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("styling should be dropped when not writing to a terminal")
	}
}

func TestSessionList_Empty(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, appURL).SessionList(nil)
	if got := buf.String(); got != "No sessions found.\n" {
		t.Errorf("got %q", got)
	}
}

func TestInspect(t *testing.T) {
	long := strings.Repeat("x", 200)
	s := decodeSession(t, `{
		"session_id": "devin-abc",
		"title": "Inspect me",
		"status_enum": "blocked",
		"created_at": "2025-03-01T10:20:30Z",
		"structured_output": {"dependencies": [{"name": "a"}]},
		"messages": [
			{"type": "user", "message": "m1", "timestamp": "2025-03-01T10:00:00.123456Z"},
			{"type": "devin", "message": "m2", "timestamp": "2025-03-01T10:01:00Z"},
			{"type": "devin", "message": "m3", "timestamp": "2025-03-01T10:02:00Z"},
			{"type": "devin", "message": "m4", "timestamp": "2025-03-01T10:03:00Z"},
			{"type": "devin", "message": "m5", "timestamp": "2025-03-01T10:04:00Z"},
			{"type": "devin", "message": "`+long+`", "timestamp": "2025-03-01T10:05:00Z"}
		],
		"tags": ["a", "b"],
		"pull_request": null,
		"snapshot_id": "snap-1"
	}`)

	var buf bytes.Buffer
	if err := New(&buf, appURL).Inspect(s); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"Title: Inspect me",
		"Status: blocked",
		"Updated: N/A",
		"URL: https://app.devin.ai/sessions/abc",
		"Found",
		`"dependencies": [`,
		"Total messages: 6",
		"Last 5 messages:",
		"[2025-03-01T10:01:00] devin:",
		strings.Repeat("x", 150) + "...",
		"- messages: array (size: 6)",
		"- structured_output: object (size: 1)",
		"- tags: array (size: 2)",
		"- pull_request: null",
		"- snapshot_id: snap-1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "m1") {
		t.Error("only the last 5 messages should be shown")
	}
	if strings.Contains(out, strings.Repeat("x", 151)) {
		t.Error("long messages should be truncated")
	}
}

func TestInspect_NoStructuredOutput(t *testing.T) {
	s := decodeSession(t, `{"session_id":"devin-abc","status_enum":"expired","structured_output":null}`)

	var buf bytes.Buffer
	if err := New(&buf, appURL).Inspect(s); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Not available (null)") {
		t.Errorf("expected missing structured output to be reported:\n%s", out)
	}
	if !strings.Contains(out, "Total messages: 0") || strings.Contains(out, "Last ") {
		t.Errorf("unexpected message section:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo", 2); got != "hé" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}
