// Package knowledge turns a directory of markdown (or HTML) notes into
// knowledge items, one per file.
package knowledge

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"gopkg.in/yaml.v3"
)

// ErrNotDirectory is returned when the import root is missing or is a file.
var ErrNotDirectory = errors.New("not a directory")

// DefaultExtensions are the file types imported when none are configured.
var DefaultExtensions = []string{".md", ".markdown"}

// FindSources walks dir recursively and returns the files whose extension
// is one of exts, sorted by path.
func FindSources(dir string, exts []string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrNotDirectory, dir)
		}
		return nil, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if hasExt(path, exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func hasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// ItemName derives the knowledge item name for path relative to root:
// the file stem, prefixed with its parent directory name when the file
// sits below root.
func ItemName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	base := filepath.Base(rel)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if dir := filepath.Dir(rel); dir != "." {
		return filepath.Base(dir) + "-" + stem
	}
	return stem
}

// Trigger builds a trigger description from a prefix and an item name.
func Trigger(prefix, name string) string {
	words := strings.NewReplacer("-", " ", "_", " ").Replace(name)
	if prefix == "" {
		return words
	}
	return prefix + " " + words
}

// frontMatter is the optional YAML header of a markdown source.
type frontMatter struct {
	Name           string `yaml:"name"`
	Trigger        string `yaml:"trigger"`
	PinnedRepo     string `yaml:"pinned_repo"`
	ParentFolderID string `yaml:"parent_folder_id"`
}

// Source is one file ready to become a knowledge item.
type Source struct {
	Path           string
	RelPath        string
	Name           string
	Trigger        string
	Body           string
	PinnedRepo     string
	ParentFolderID string
}

// ParseSource reads path and derives its item name and trigger. Markdown
// may start with a YAML front matter block overriding name, trigger,
// pinned_repo or parent_folder_id. HTML files are converted to markdown.
func ParseSource(root, path, triggerPrefix string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}

	src := &Source{
		Path:    path,
		RelPath: rel,
		Name:    ItemName(root, path),
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		md, err := htmltomarkdown.ConvertString(string(data))
		if err != nil {
			return nil, fmt.Errorf("convert %s to markdown: %w", path, err)
		}
		src.Body = md
	default:
		fm, body, err := splitFrontMatter(data)
		if err != nil {
			return nil, fmt.Errorf("front matter in %s: %w", path, err)
		}
		src.Body = body
		if fm.Name != "" {
			src.Name = fm.Name
		}
		src.Trigger = fm.Trigger
		src.PinnedRepo = fm.PinnedRepo
		src.ParentFolderID = fm.ParentFolderID
	}

	if src.Trigger == "" {
		src.Trigger = Trigger(triggerPrefix, src.Name)
	}
	return src, nil
}

var fmDelim = []byte("---")

// splitFrontMatter separates a leading "---" delimited YAML block from the
// rest of the file. Without such a block the content is returned verbatim.
func splitFrontMatter(data []byte) (frontMatter, string, error) {
	var fm frontMatter
	normalized := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, append(fmDelim, '\n')) {
		return fm, string(data), nil
	}
	rest := normalized[len(fmDelim)+1:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return fm, string(data), nil
	}
	header := rest[:end]
	body := rest[end+len("\n---"):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return fm, "", err
	}
	return fm, string(body), nil
}
