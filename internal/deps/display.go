package deps

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/user/devinctl/pkg/devin"
)

// ErrUnknownVersion is returned by ParseVersion for anything other than
// current, target or both.
var ErrUnknownVersion = errors.New("unknown version selector")

// Version selects which half of a dual analysis to display.
type Version string

const (
	VersionCurrent Version = "current"
	VersionTarget  Version = "target"
	VersionBoth    Version = "both"
)

// ParseVersion validates a --version flag value. Empty means both.
func ParseVersion(s string) (Version, error) {
	switch v := Version(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return VersionBoth, nil
	case VersionCurrent, VersionTarget, VersionBoth:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q (want current, target or both)", ErrUnknownVersion, s)
}

func (v Version) includes(part Version) bool {
	return v == VersionBoth || v == part
}

// DisplayOptions controls Display.
type DisplayOptions struct {
	Version Version
	// CSVPrefix, when set, saves each displayed table as <prefix>.csv or
	// <prefix>_current.csv and <prefix>_target.csv.
	CSVPrefix string
	// Dir is where CSV files are written. Empty means the working directory.
	Dir string
}

// Display renders a result document: one table per displayed version (or a
// single table for single-mode results), then stats, notes and errors. It
// returns the CSV files written.
func Display(w io.Writer, doc devin.Document, opts DisplayOptions) ([]string, error) {
	if doc.IsEmpty() {
		fmt.Fprintln(w, "No data to display")
		return nil, nil
	}
	if opts.Version == "" {
		opts.Version = VersionBoth
	}

	var saved []string
	section := func(heading, versionLabel string, part devin.Document, csvSuffix string) error {
		fmt.Fprintf(w, "\n%s:\n", heading)
		if versionLabel != "" {
			fmt.Fprintf(w, "  Version: %s\n", versionLabel)
		}
		t := TableFrom(part)
		if t.Empty() {
			fmt.Fprintln(w, "  No dependencies found")
			return nil
		}
		fmt.Fprintln(w)
		if err := t.Render(w); err != nil {
			return err
		}
		fmt.Fprintf(w, "\n  Total: %d dependencies\n", t.Len())
		if opts.CSVPrefix == "" {
			return nil
		}
		path := filepath.Join(opts.Dir, opts.CSVPrefix+csvSuffix+".csv")
		if err := t.SaveCSV(path); err != nil {
			return err
		}
		saved = append(saved, path)
		return nil
	}

	if results, ok := doc.Lookup("results"); ok {
		if current, ok := results.Lookup("current"); ok && opts.Version.includes(VersionCurrent) {
			if err := section("Current Version Dependencies", versionOf(doc, "current_version"), current, "_current"); err != nil {
				return saved, err
			}
		}
		if target, ok := results.Lookup("target"); ok && opts.Version.includes(VersionTarget) {
			if err := section("Target Version Dependencies", versionOf(doc, "target_version"), target, "_target"); err != nil {
				return saved, err
			}
		}
	} else {
		if err := section("Dependencies", "", doc, ""); err != nil {
			return saved, err
		}
	}

	if stats, ok := doc.Lookup("stats"); ok {
		fmt.Fprintln(w, "\nSummary Statistics:")
		title := cases.Title(language.Und)
		for _, k := range stats.Keys() {
			v, _ := stats.Lookup(k)
			fmt.Fprintf(w, "  %s: %s\n", title.String(strings.ReplaceAll(k, "_", " ")), formatCell(v.Value()))
		}
	}

	if notes, ok := doc.Lookup("notes"); ok {
		fmt.Fprintln(w, "\nNotes:")
		for _, n := range notes.Items() {
			fmt.Fprintf(w, "  - %s\n", formatCell(n.Value()))
		}
	}

	if errs, ok := doc.Lookup("errors"); ok && !errs.IsEmpty() {
		fmt.Fprintln(w, "\nErrors:")
		for _, e := range errs.Items() {
			fmt.Fprintf(w, "  - %s\n", formatCell(e.Value()))
		}
	}

	if len(saved) > 0 {
		fmt.Fprintln(w, "\nCSV files saved:")
		for _, p := range saved {
			fmt.Fprintf(w, "  - %s\n", p)
		}
	}
	return saved, nil
}

func versionOf(doc devin.Document, key string) string {
	v, ok := doc.Lookup(key)
	if !ok || v.IsEmpty() {
		return "Unknown"
	}
	return formatCell(v.Value())
}

// Summarize prints a short overview of a freshly retrieved result.
func Summarize(w io.Writer, doc devin.Document) {
	if doc.IsEmpty() {
		return
	}
	fmt.Fprintln(w, "\nRESULTS SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 60))

	switch {
	case doc.Has("results"):
		results, _ := doc.Lookup("results")
		if current, ok := results.Lookup("current"); ok {
			candidates, _ := current.Lookup("upload_candidates")
			fmt.Fprintln(w, "\nCurrent Version:")
			fmt.Fprintf(w, "  Upload candidates: %d\n", candidates.Len())
			items := candidates.Items()
			if len(items) > 0 {
				fmt.Fprintln(w, "  Top candidates:")
				for _, c := range items[:min(3, len(items))] {
					fmt.Fprintf(w, "    - %s\n", coordinate(c))
				}
			}
		}
		if target, ok := results.Lookup("target"); ok {
			candidates, _ := target.Lookup("upload_candidates")
			fmt.Fprintln(w, "\nTarget Version:")
			fmt.Fprintf(w, "  Upload candidates: %d\n", candidates.Len())
		}
	case doc.Has("upload_candidates"):
		candidates, _ := doc.Lookup("upload_candidates")
		fmt.Fprintf(w, "\nFound %d upload candidates\n", candidates.Len())
	default:
		fmt.Fprintln(w, "\nResults retrieved (check output file for details)")
	}
}

// coordinate formats a candidate as group:artifact:version.
func coordinate(c devin.Document) string {
	part := func(k string) string {
		v, _ := c.Lookup(k)
		return formatCell(v.Value())
	}
	return part("group") + ":" + part("artifact") + ":" + part("version")
}
