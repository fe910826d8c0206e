package deps

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/user/devinctl/pkg/devin"
)

// priorityColumns lead every table in this order when present.
var priorityColumns = []string{"group", "artifact", "name", "version", "repository", "needs_upload"}

// Table is a flattened list of dependency records.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len is the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return len(t.Rows) == 0 }

// TableFrom extracts dependency records from doc. Objects are read from
// "upload_candidates" or, failing that, "dependencies"; an array document
// is used as is. Anything else yields an empty table.
func TableFrom(doc devin.Document) *Table {
	var items []devin.Document
	switch {
	case doc.Has("upload_candidates"):
		list, _ := doc.Lookup("upload_candidates")
		items = list.Items()
	case doc.Has("dependencies"):
		list, _ := doc.Lookup("dependencies")
		items = list.Items()
	default:
		items = doc.Items()
	}
	return buildTable(items)
}

func buildTable(items []devin.Document) *Table {
	t := &Table{}
	if len(items) == 0 {
		return t
	}

	records := make([]map[string]any, 0, len(items))
	seen := make(map[string]bool)
	for _, item := range items {
		rec, ok := item.Object()
		if !ok {
			rec = map[string]any{"value": item.Value()}
		}
		records = append(records, rec)
		for k := range rec {
			seen[k] = true
		}
	}

	for _, c := range priorityColumns {
		if seen[c] {
			t.Columns = append(t.Columns, c)
			delete(seen, c)
		}
	}
	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	t.Columns = append(t.Columns, rest...)

	for _, rec := range records {
		row := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			row[i] = formatCell(rec[c])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// Render writes the table with aligned columns.
func (t *Table) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(upper(t.Columns), "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(sanitize(row), "\t"))
	}
	return tw.Flush()
}

func upper(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = strings.ToUpper(c)
	}
	return out
}

// sanitize keeps tabs and newlines inside a cell from breaking alignment.
func sanitize(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.NewReplacer("\t", " ", "\n", " ", "\r", "").Replace(c)
	}
	return out
}

// WriteCSV writes the header and rows as CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// SaveCSV writes the table to path.
func (t *Table) SaveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	return f.Close()
}
