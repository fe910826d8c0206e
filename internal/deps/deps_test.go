package deps

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/devinctl/pkg/devin"
)

const dualResult = `{
  "dual_mode": true,
  "current_version": "3.12.0",
  "target_version": "3.17",
  "results": {
    "current": {
      "upload_candidates": [
        {"reason": "missing", "version": "1.2.3", "artifact": "core", "group": "com.acme", "is_transitive": false},
        {"group": "com.acme", "artifact": "util", "version": "2.0.0", "parents": ["com.acme:core"]},
        {"group": "org.demo", "artifact": "lib", "version": "0.9"},
        {"group": "org.demo", "artifact": "extra", "version": "0.1"}
      ]
    },
    "target": {
      "upload_candidates": []
    }
  },
  "stats": {"total_dependencies": 42},
  "notes": ["gradle 8 used"],
  "errors": []
}`

func parse(t *testing.T, s string) devin.Document {
	t.Helper()
	doc, err := devin.ParseDocument([]byte(s))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestBuildPrompt(t *testing.T) {
	dual := BuildPrompt("org/shop", "3.17")
	if !strings.HasPrefix(dual, Macro+"\n") {
		t.Errorf("prompt must start with the macro, got %q", dual[:20])
	}
	for _, want := range []string{"Repository: org/shop", "Target Version: 3.17", "Dual Mode: True", "orchestraFrameworkVersion to 3.17"} {
		if !strings.Contains(dual, want) {
			t.Errorf("dual prompt missing %q", want)
		}
	}

	single := BuildPrompt("org/shop", "")
	if !strings.Contains(single, "Dual Mode: False") || strings.Contains(single, "Target Version:") {
		t.Errorf("unexpected single-mode prompt:\n%s", single)
	}
	if !strings.Contains(single, "CURRENT version only") {
		t.Error("single-mode prompt should restrict to the current version")
	}
}

func TestTitle(t *testing.T) {
	if got := Title("org/shop"); got != "Java Deps: org/shop" {
		t.Errorf("unexpected title %q", got)
	}
}

func TestTableFrom_ColumnOrder(t *testing.T) {
	doc := parse(t, dualResult)
	current, _ := doc.Lookup("results", "current")

	table := TableFrom(current)
	want := []string{"group", "artifact", "version", "is_transitive", "parents", "reason"}
	if strings.Join(table.Columns, ",") != strings.Join(want, ",") {
		t.Errorf("columns = %v, want %v", table.Columns, want)
	}
	if table.Len() != 4 {
		t.Fatalf("expected 4 rows, got %d", table.Len())
	}
	if table.Rows[0][0] != "com.acme" || table.Rows[0][3] != "false" {
		t.Errorf("unexpected first row %v", table.Rows[0])
	}
	if table.Rows[1][4] != `["com.acme:core"]` {
		t.Errorf("nested values should render as JSON, got %q", table.Rows[1][4])
	}
	if table.Rows[2][5] != "" {
		t.Errorf("missing values should be empty, got %q", table.Rows[2][5])
	}
}

func TestTableFrom_Shapes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		rows int
	}{
		{"dependencies", `{"dependencies": [{"name": "a"}, {"name": "b"}]}`, 2},
		{"bare list", `[{"group": "g", "artifact": "a"}]`, 1},
		{"empty candidates", `{"upload_candidates": [], "dependencies": [{"name": "x"}]}`, 0},
		{"unknown", `{"something": "else"}`, 0},
		{"scalars", `["a", "b", "c"]`, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TableFrom(parse(t, tt.doc)).Len(); got != tt.rows {
				t.Errorf("rows = %d, want %d", got, tt.rows)
			}
		})
	}
}

func TestTableRender(t *testing.T) {
	table := TableFrom(parse(t, `[{"group": "com.acme", "artifact": "core\tx", "version": "1"}]`))
	var buf bytes.Buffer
	if err := table.Render(&buf); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "GROUP") || !strings.Contains(lines[1], "core x") {
		t.Errorf("unexpected rendering %q", buf.String())
	}
}

func TestTableWriteCSV(t *testing.T) {
	table := TableFrom(parse(t, `[{"group": "com.acme", "artifact": "a,b", "version": "1"}]`))
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[1][1] != "a,b" {
		t.Errorf("unexpected records %v", records)
	}
}

func TestParseVersion(t *testing.T) {
	for in, want := range map[string]Version{"": VersionBoth, "Current": VersionCurrent, "target": VersionTarget, "both": VersionBoth} {
		got, err := ParseVersion(in)
		if err != nil || got != want {
			t.Errorf("ParseVersion(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseVersion("latest"); !errors.Is(err, ErrUnknownVersion) {
		t.Errorf("expected ErrUnknownVersion, got %v", err)
	}
}

func TestDisplay_DualWithCSV(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer

	saved, err := Display(&buf, parse(t, dualResult), DisplayOptions{Version: VersionBoth, CSVPrefix: "out", Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"Current Version Dependencies:",
		"Version: 3.12.0",
		"Total: 4 dependencies",
		"Target Version Dependencies:",
		"Version: 3.17",
		"No dependencies found",
		"Total Dependencies: 42",
		"- gradle 8 used",
		"CSV files saved:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Errors:") {
		t.Error("empty errors list should not be printed")
	}
	if len(saved) != 1 || filepath.Base(saved[0]) != "out_current.csv" {
		t.Fatalf("unexpected saved files %v", saved)
	}
	if _, err := os.Stat(filepath.Join(dir, "out_current.csv")); err != nil {
		t.Errorf("csv not written: %v", err)
	}
}

func TestDisplay_VersionFilter(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Display(&buf, parse(t, dualResult), DisplayOptions{Version: VersionTarget}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "Current Version Dependencies") {
		t.Error("current section should be hidden with --version target")
	}
}

func TestDisplay_SingleModeCSVName(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	doc := parse(t, `{"upload_candidates": [{"group": "g", "artifact": "a", "version": "1"}], "errors": ["timeout on :app"]}`)

	saved, err := Display(&buf, doc, DisplayOptions{CSVPrefix: "single", Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 1 || filepath.Base(saved[0]) != "single.csv" {
		t.Errorf("unexpected saved files %v", saved)
	}
	if !strings.Contains(buf.String(), "- timeout on :app") {
		t.Errorf("errors not printed:\n%s", buf.String())
	}
}

func TestDisplay_Empty(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Display(&buf, devin.Document{}, DisplayOptions{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No data to display") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestSummarize(t *testing.T) {
	var buf bytes.Buffer
	Summarize(&buf, parse(t, dualResult))
	out := buf.String()
	for _, want := range []string{"Upload candidates: 4", "com.acme:core:1.2.3", "org.demo:lib:0.9", "Target Version:"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "org.demo:extra") {
		t.Error("summary should list at most 3 candidates")
	}

	buf.Reset()
	Summarize(&buf, parse(t, `{"upload_candidates": [1, 2]}`))
	if !strings.Contains(buf.String(), "Found 2 upload candidates") {
		t.Errorf("unexpected flat summary %q", buf.String())
	}

	buf.Reset()
	Summarize(&buf, parse(t, `{"raw_content": "text"}`))
	if !strings.Contains(buf.String(), "check output file") {
		t.Errorf("unexpected fallback summary %q", buf.String())
	}
}

func TestMavenPath(t *testing.T) {
	got := MavenPath("com.acme.tools", "core", "1.2.3", "")
	if want := "com/acme/tools/core/1.2.3/core-1.2.3.jar"; got != want {
		t.Errorf("MavenPath = %q, want %q", got, want)
	}
	if got := MavenPath("org.demo", "bom", "2.0", "pom"); got != "org/demo/bom/2.0/bom-2.0.pom" {
		t.Errorf("MavenPath with type = %q", got)
	}
}

func TestCandidatePaths(t *testing.T) {
	doc := parse(t, `{
	  "results": {
	    "current": {"upload_candidates": [
	      {"group": "com.acme", "artifact": "core", "version": "1.2.3"},
	      {"group": "com.acme", "artifact": "nover"}
	    ]},
	    "target": {"upload_candidates": [
	      {"group": "com.acme", "artifact": "core", "version": "1.2.3"},
	      {"group": "com.acme", "artifact": "core", "version": "1.4.0", "type": "pom"}
	    ]}
	  }
	}`)

	got := CandidatePaths(doc, VersionBoth)
	want := []string{
		"com/acme/core/1.2.3/core-1.2.3.jar",
		"com/acme/core/1.4.0/core-1.4.0.pom",
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("CandidatePaths(both) = %v, want %v", got, want)
	}

	if got := CandidatePaths(doc, VersionCurrent); len(got) != 1 || got[0] != want[0] {
		t.Errorf("CandidatePaths(current) = %v", got)
	}

	flat := parse(t, `{"upload_candidates": [{"group": "a.b", "artifact": "c", "version": "1"}]}`)
	if got := CandidatePaths(flat, ""); len(got) != 1 || got[0] != "a/b/c/1/c-1.jar" {
		t.Errorf("CandidatePaths(flat) = %v", got)
	}
}
