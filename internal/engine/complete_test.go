package engine

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/woxQAQ/config-props-lsp/internal/document"
)

func insertTexts(t *testing.T, e *Engine, doc *document.Document, offset int) []string {
	t.Helper()
	var out []string
	for _, p := range e.Complete(context.Background(), doc, offset) {
		out = append(out, p.InsertText)
	}
	return out
}

func TestCompleteKeyWithDefault(t *testing.T) {
	e := testEngine(t)
	doc := props("ser")

	got := e.Complete(context.Background(), doc, 3)
	if len(got) == 0 {
		t.Fatal("Complete() returned no proposals")
	}
	top := got[0]
	text, cursor := top.Apply(doc.Text())
	if text != "server.port=8080" {
		t.Errorf("applied text mismatch: got %q, want %q", text, "server.port=8080")
	}
	if cursor != len(text) {
		t.Errorf("cursor mismatch: got %d, want %d", cursor, len(text))
	}
	want := "server.port=8080 int Port where server listens for http."
	if top.DisplayLabel != want {
		t.Errorf("label mismatch: got %q, want %q", top.DisplayLabel, want)
	}
}

func TestCompleteBooleanValue(t *testing.T) {
	e := testEngine(t)
	tests := []struct {
		text string
		want []string
	}{
		{"liquibase.enabled=", []string{"false", "true"}},
		{"liquibase.enabled:", []string{"false", "true"}},
		{"liquibase.enabled ", []string{"false", "true"}},
		{"liquibase.enabled=t", []string{"true"}},
		{"liquibase.enabled: f", []string{"false"}},
		{"liquibase.enabled t", []string{"true"}},
		{"liquibase.enabled=T", []string{"true"}},
		{"liquibase.enabled=e", nil},
		{"liquibase.enabled=rue", nil},
	}
	for _, tt := range tests {
		doc := props(tt.text)
		got := e.Complete(context.Background(), doc, len(tt.text))
		var inserts []string
		for _, p := range got {
			inserts = append(inserts, p.InsertText)
			applied, cursor := p.Apply(tt.text)
			if cursor != len(applied) {
				t.Errorf("%q: cursor %d not after %q", tt.text, cursor, applied)
			}
		}
		sort.Strings(inserts)
		if diff := cmp.Diff(tt.want, inserts); diff != "" {
			t.Errorf("%q: proposals mismatch (-want +got):\n%s", tt.text, diff)
		}
	}

	p := e.Complete(context.Background(), props("liquibase.enabled=t"), 19)[0]
	if text, _ := p.Apply("liquibase.enabled=t"); text != "liquibase.enabled=true" {
		t.Errorf("applied text mismatch: got %q", text)
	}
}

func TestCompleteSubproperty(t *testing.T) {
	e := testEngine(t)

	got := insertTexts(t, e, props("server.po"), 9)
	if len(got) != 1 || got[0] != "port=8080" {
		t.Errorf("proposals mismatch: got %v, want [port=8080]", got)
	}

	got = insertTexts(t, e, props("server.contextPath.x\nlogging."), 29)
	if len(got) != 1 || got[0] != "level." {
		t.Errorf("map proposals mismatch: got %v, want [level.]", got)
	}
}

func TestCompleteEnumAndListValues(t *testing.T) {
	e := testEngine(t)

	if got := insertTexts(t, e, props("app.mode=P"), 10); !cmp.Equal(got, []string{"PROD"}) {
		t.Errorf("enum proposals mismatch: got %v", got)
	}
	if got := insertTexts(t, e, props("app.mode=d"), 10); !cmp.Equal(got, []string{"DEV"}) {
		t.Errorf("enum proposals mismatch: got %v", got)
	}
	if got := insertTexts(t, e, props("app.mode=O"), 10); len(got) != 0 {
		t.Errorf("enum proposals for non-prefix: got %v, want none", got)
	}

	text := "app.flags=true, f"
	got := e.Complete(context.Background(), props(text), len(text))
	if len(got) != 1 || got[0].InsertText != "false" {
		t.Fatalf("list element proposals mismatch: got %+v", got)
	}
	if r := got[0].ReplacementRange; text[r.Start:r.End] != "f" {
		t.Errorf("replacement range covers %q, want %q", text[r.Start:r.End], "f")
	}
}

func TestCompleteTypedChildren(t *testing.T) {
	e := testEngine(t)

	got := insertTexts(t, e, props("app.datasource."), 15)
	sort.Strings(got)
	if diff := cmp.Diff([]string{"pool-size=", "url="}, got); diff != "" {
		t.Errorf("field proposals mismatch (-want +got):\n%s", diff)
	}

	got = insertTexts(t, e, props("app.limits."), 11)
	sort.Strings(got)
	if diff := cmp.Diff([]string{"HIGH=", "LOW="}, got); diff != "" {
		t.Errorf("enum key proposals mismatch (-want +got):\n%s", diff)
	}
}

func TestCompleteFollowsTypedSpelling(t *testing.T) {
	e := testEngine(t)
	tests := []struct {
		text string
		want []string
	}{
		{"server.context-p", []string{"context-path="}},
		{"server.contextP", []string{"contextPath="}},
		{"server.context_p", []string{"context_path="}},
		{"app.datasource.poolS", []string{"poolSize="}},
		{"app.datasource.pool_", []string{"pool_size="}},
	}
	for _, tt := range tests {
		got := insertTexts(t, e, props(tt.text), len(tt.text))
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("%q: proposals mismatch (-want +got):\n%s", tt.text, diff)
		}
	}

	doc := yamlDoc("server:\n  contextP")
	got := insertTexts(t, e, doc, doc.Len())
	if diff := cmp.Diff([]string{"contextPath: "}, got); diff != "" {
		t.Errorf("YAML proposals mismatch (-want +got):\n%s", diff)
	}
}

func TestCompleteYAML(t *testing.T) {
	e := testEngine(t)

	doc := yamlDoc("ser")
	got := e.Complete(context.Background(), doc, 3)
	if len(got) == 0 {
		t.Fatal("Complete() returned no proposals")
	}
	if text, _ := got[0].Apply(doc.Text()); text != "server:\n  port: 8080" {
		t.Errorf("applied text mismatch: got %q", text)
	}

	text := "server:\n  po"
	got = e.Complete(context.Background(), yamlDoc(text), len(text))
	if len(got) == 0 || got[0].InsertText != "port: 8080" {
		t.Fatalf("nested proposals mismatch: got %+v", got)
	}

	text = "liquibase:\n  enabled: "
	inserts := insertTexts(t, e, yamlDoc(text), len(text))
	if diff := cmp.Diff([]string{"false", "true"}, inserts); diff != "" {
		t.Errorf("boolean proposals mismatch (-want +got):\n%s", diff)
	}

	text = "app:\n  datasource: "
	inserts = insertTexts(t, e, yamlDoc(text), len(text))
	sort.Strings(inserts)
	if diff := cmp.Diff([]string{"\n    pool-size: ", "\n    url: "}, inserts); diff != "" {
		t.Errorf("child key proposals mismatch (-want +got):\n%s", diff)
	}
}

func TestCompleteMalformedYAML(t *testing.T) {
	e := testEngine(t)
	text := "server:\n  port: 8080\n  con\nlogging:\n  level:\n    root: info\n"
	offset := len("server:\n  port: 8080\n  con")
	if document.New(text, document.YAML).Err() == nil {
		t.Fatal("fixture should not parse")
	}

	got := e.Complete(context.Background(), yamlDoc(text), offset)
	if len(got) == 0 || got[0].InsertText != "context-path: " {
		t.Fatalf("recovered proposals mismatch: got %+v", got)
	}
	if r := got[0].ReplacementRange; text[r.Start:r.End] != "con" {
		t.Errorf("replacement range covers %q, want %q", text[r.Start:r.End], "con")
	}
}

func TestCompleteOrdering(t *testing.T) {
	e := testEngine(t)

	got := e.Complete(context.Background(), props(""), 0)
	if len(got) != e.Index().Len() {
		t.Fatalf("got %d proposals, want %d", len(got), e.Index().Len())
	}
	if last := got[len(got)-1]; last.PropertyID != "server.servlet-path" || !last.Deprecated {
		t.Errorf("deprecated proposals should sort last, got %s", last.PropertyID)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].SortKey >= got[i].SortKey {
			t.Errorf("sort keys out of order at %d: %s >= %s", i, got[i-1].SortKey, got[i].SortKey)
		}
	}

	capped := testEngine(t, WithMaxResults(2))
	if got := capped.Complete(context.Background(), props(""), 0); len(got) != 2 {
		t.Errorf("WithMaxResults(2) returned %d proposals", len(got))
	}
}

func TestCompleteNothing(t *testing.T) {
	e := testEngine(t)
	if got := e.Complete(context.Background(), props("# ser"), 5); len(got) != 0 {
		t.Errorf("comment proposals: got %v", got)
	}
	if got := e.Complete(context.Background(), props("server.port=8"), 13); len(got) != 0 {
		t.Errorf("integer value proposals: got %v", got)
	}
	if got := e.Complete(context.Background(), props("zzz"), 3); len(got) != 0 {
		t.Errorf("unmatched proposals: got %v", got)
	}
}
