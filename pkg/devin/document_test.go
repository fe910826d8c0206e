package devin

import (
	"encoding/json"
	"testing"
)

func mustParse(t *testing.T, s string) Document {
	t.Helper()
	doc, err := ParseDocument([]byte(s))
	if err != nil {
		t.Fatalf("ParseDocument(%q): %v", s, err)
	}
	return doc
}

func TestDocumentIsEmpty(t *testing.T) {
	tests := []struct {
		in    string
		empty bool
	}{
		{"null", true},
		{"false", true},
		{`""`, true},
		{"0", true},
		{"{}", true},
		{"[]", true},
		{"true", false},
		{`"x"`, false},
		{"1.5", false},
		{`{"a": null}`, false},
		{"[0]", false},
	}
	for _, tt := range tests {
		if got := mustParse(t, tt.in).IsEmpty(); got != tt.empty {
			t.Errorf("IsEmpty(%s) = %v, want %v", tt.in, got, tt.empty)
		}
	}
	if !(Document{}).IsEmpty() {
		t.Error("zero Document should be empty")
	}
}

func TestParseDocument_Rejects(t *testing.T) {
	for _, in := range []string{"", "not json", `{"a": 1} trailing`} {
		if _, err := ParseDocument([]byte(in)); err == nil {
			t.Errorf("ParseDocument(%q): expected error", in)
		}
	}
}

func TestDocumentAccessors(t *testing.T) {
	doc := mustParse(t, `{"summary": {"total": 12}, "dependencies": [{"name": "a"}, {"name": "b"}], "notes": "x"}`)

	if !doc.Has("summary") || doc.Has("missing") {
		t.Error("Has returned wrong result")
	}
	total, ok := doc.Lookup("summary", "total")
	if !ok || total.Value() != json.Number("12") {
		t.Errorf("Lookup(summary.total) = %v, %v", total.Value(), ok)
	}
	if _, ok := doc.Lookup("notes", "deeper"); ok {
		t.Error("Lookup through a string should fail")
	}
	deps, _ := doc.Lookup("dependencies")
	if items := deps.Items(); len(items) != 2 || !items[1].Has("name") {
		t.Errorf("unexpected items %v", items)
	}
	if keys := doc.Keys(); len(keys) != 3 || keys[0] != "dependencies" || keys[2] != "summary" {
		t.Errorf("unexpected keys %v", keys)
	}
	if doc.Len() != 3 || deps.Len() != 2 {
		t.Errorf("unexpected lengths %d, %d", doc.Len(), deps.Len())
	}
}

func TestRawContentDocument(t *testing.T) {
	doc := RawContentDocument("plain text")
	raw, ok := doc.Lookup("raw_content")
	if !ok {
		t.Fatal("expected raw_content key")
	}
	if s, _ := raw.Str(); s != "plain text" {
		t.Errorf("unexpected raw_content %q", s)
	}
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	type wrapper struct {
		Result Document `json:"result"`
	}
	in := wrapper{Result: mustParse(t, `{"big": 12345678901234567890}`)}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"result":{"big":12345678901234567890}}` {
		t.Errorf("unexpected encoding %s", data)
	}
	var out wrapper
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	big, _ := out.Result.Lookup("big")
	if big.Value() != json.Number("12345678901234567890") {
		t.Errorf("number precision lost: %v", big.Value())
	}
}
