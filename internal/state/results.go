package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/user/devinctl/pkg/devin"
)

const (
	resultPrefix    = "dependencies_"
	resultTimestamp = "20060102_150405"
	inspectPrefix   = "session_inspect_"
)

// ResultFile describes one saved result document.
type ResultFile struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// ResultStore keeps analysis results as dependencies_<timestamp>.json files
// in a single directory.
type ResultStore struct {
	dir string
}

// NewResultStore creates a store writing into dir.
func NewResultStore(dir string) *ResultStore {
	if dir == "" {
		dir = "."
	}
	return &ResultStore{dir: dir}
}

// Dir returns the directory used by this store.
func (s *ResultStore) Dir() string {
	return s.dir
}

// Save writes doc as indented JSON named after at and returns its path.
func (s *ResultStore) Save(doc devin.Document, at time.Time) (string, error) {
	data, err := doc.Indent()
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	path := filepath.Join(s.dir, resultPrefix+at.Format(resultTimestamp)+".json")
	if err := writeAtomic(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// List returns the saved results sorted by name, oldest first.
func (s *ResultStore) List() ([]ResultFile, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, resultPrefix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("glob results: %w", err)
	}
	sort.Strings(matches)

	files := make([]ResultFile, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, ResultFile{
			Name:    filepath.Base(m),
			Path:    m,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return files, nil
}

// LoadResult reads a result document from path. Comments and trailing
// commas left by hand edits are tolerated.
func LoadResult(path string) (devin.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return devin.Document{}, fmt.Errorf("read result: %w", err)
	}
	doc, err := devin.ParseDocument(jsonc.ToJSON(data))
	if err != nil {
		return devin.Document{}, fmt.Errorf("parse result %s: %w", path, err)
	}
	return doc, nil
}

// SaveInspection writes the full raw session response to
// session_inspect_<id>.json in dir and returns the path.
func SaveInspection(dir, sessionID string, raw map[string]any) (string, error) {
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}
	name := inspectPrefix + strings.TrimPrefix(sessionID, devin.SessionPrefix) + ".json"
	path := filepath.Join(dir, name)
	if err := writeAtomic(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// writeAtomic writes to a temp file then renames it over path.
func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
