package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/devinctl/pkg/devin"
)

// Creator creates knowledge items.
type Creator interface {
	CreateKnowledge(ctx context.Context, req devin.KnowledgeRequest) (*devin.Knowledge, error)
}

// Item reports what happened to one source file.
type Item struct {
	Path      string
	RelPath   string
	Name      string
	Trigger   string
	Chars     int
	Tokens    int
	ID        string
	CreatedAt string
	DryRun    bool
	// Err is set when the file could not be read and was skipped.
	Err error
}

// Importer creates one knowledge item per source file under a directory.
type Importer struct {
	Creator Creator
	// Counter, when set, fills Item.Tokens.
	Counter        TokenCounter
	Extensions     []string
	TriggerPrefix  string
	ParentFolderID string
	PinnedRepo     string
	// DryRun reports what would be created without calling Creator.
	DryRun bool
	// OnItem is called after each file is handled.
	OnItem func(index, total int, item Item)
}

// Import processes every source under dir in path order. A file that
// cannot be read is skipped; an API error stops the import and returns the
// items handled so far.
func (im *Importer) Import(ctx context.Context, dir string) ([]Item, error) {
	files, err := FindSources(dir, im.Extensions)
	if err != nil {
		return nil, err
	}
	slog.Debug("found knowledge sources", "dir", dir, "count", len(files))

	items := make([]Item, 0, len(files))
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		item, err := im.importOne(ctx, dir, path)
		if err != nil {
			return items, err
		}
		items = append(items, item)
		if im.OnItem != nil {
			im.OnItem(i+1, len(files), item)
		}
	}
	return items, nil
}

func (im *Importer) importOne(ctx context.Context, dir, path string) (Item, error) {
	src, err := ParseSource(dir, path, im.TriggerPrefix)
	if err != nil {
		slog.Warn("skipping knowledge source", "path", path, "error", err)
		return Item{Path: path, Name: ItemName(dir, path), Err: err}, nil
	}

	item := Item{
		Path:    src.Path,
		RelPath: src.RelPath,
		Name:    src.Name,
		Trigger: src.Trigger,
		Chars:   len([]rune(src.Body)),
		DryRun:  im.DryRun,
	}
	if im.Counter != nil {
		item.Tokens = im.Counter.Count(src.Body)
	}
	if im.DryRun {
		return item, nil
	}

	req := devin.KnowledgeRequest{
		Name:               src.Name,
		Body:               src.Body,
		TriggerDescription: src.Trigger,
		ParentFolderID:     firstNonEmpty(src.ParentFolderID, im.ParentFolderID),
		PinnedRepo:         firstNonEmpty(src.PinnedRepo, im.PinnedRepo),
	}
	created, err := im.Creator.CreateKnowledge(ctx, req)
	if err != nil {
		return item, fmt.Errorf("create knowledge %q: %w", src.Name, err)
	}
	item.ID = created.ID
	item.CreatedAt = created.CreatedAt
	slog.Debug("created knowledge item", "name", src.Name, "id", created.ID)
	return item, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
