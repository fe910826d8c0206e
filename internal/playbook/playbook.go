// Package playbook replaces the content of a playbook addressed by its
// macro.
package playbook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/user/devinctl/pkg/devin"
)

const (
	DefaultMacro = "!get_java_deps"
	DefaultTitle = "Java Dependency Discovery"
)

// ErrNotFound is returned when no playbook carries the requested macro.
var ErrNotFound = errors.New("playbook not found")

// API is the part of the client used to manage playbooks.
type API interface {
	ListPlaybooks(ctx context.Context) ([]devin.Playbook, error)
	UpdatePlaybook(ctx context.Context, playbookID string, req devin.PlaybookRequest) (devin.Document, error)
}

// FindByMacro returns the first playbook whose macro matches exactly.
func FindByMacro(playbooks []devin.Playbook, macro string) (*devin.Playbook, bool) {
	for i := range playbooks {
		if playbooks[i].Macro == macro {
			return &playbooks[i], true
		}
	}
	return nil, false
}

// Update is the result of a successful Replace.
type Update struct {
	Previous devin.Playbook
	Response devin.Document
}

// Replace looks up the playbook for macro and overwrites its title and
// body, keeping the macro unchanged.
func Replace(ctx context.Context, api API, macro, title, body string) (*Update, error) {
	playbooks, err := api.ListPlaybooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list playbooks: %w", err)
	}
	pb, ok := FindByMacro(playbooks, macro)
	if !ok {
		return nil, fmt.Errorf("%w: no playbook with macro %q", ErrNotFound, macro)
	}
	slog.Debug("updating playbook", "id", pb.PlaybookID, "macro", macro, "chars", len(body))

	resp, err := api.UpdatePlaybook(ctx, pb.PlaybookID, devin.PlaybookRequest{
		Title: title,
		Body:  body,
		Macro: macro,
	})
	if err != nil {
		return nil, fmt.Errorf("update playbook %s: %w", pb.PlaybookID, err)
	}
	return &Update{Previous: *pb, Response: resp}, nil
}

// LoadBody reads playbook content from a markdown file.
func LoadBody(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read playbook file: %w", err)
	}
	return string(data), nil
}
