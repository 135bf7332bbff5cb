package document

import (
	"strings"
	"testing"
)

func TestSyntaxForPath(t *testing.T) {
	tests := map[string]Syntax{
		"application.properties":      Properties,
		"file:///app/application.yml": YAML,
		"config/APPLICATION.YAML":     YAML,
		"bootstrap":                   Properties,
	}
	for path, want := range tests {
		if got := SyntaxForPath(path); got != want {
			t.Errorf("SyntaxForPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestLines(t *testing.T) {
	d := New("a=1\r\nbb=2\n\nc", Properties)
	if d.LineCount() != 4 {
		t.Fatalf("LineCount() = %d, want 4", d.LineCount())
	}
	if got := d.LineText(0); got != "a=1" {
		t.Errorf("LineText(0) = %q, want %q", got, "a=1")
	}
	if got := d.LineText(1); got != "bb=2" {
		t.Errorf("LineText(1) = %q", got)
	}
	if got := d.LineOf(strings.Index(d.Text(), "bb")); got != 1 {
		t.Errorf("LineOf(bb) = %d, want 1", got)
	}
	if got := d.LineOf(d.Len()); got != 3 {
		t.Errorf("LineOf(end) = %d, want 3", got)
	}
}

func TestPropertiesAssignments(t *testing.T) {
	text := "server.port=8080\n# comment\n  liquibase.enabled : true  \nhosts[1]=b\nempty=\n"
	d := New(text, Properties)
	got := d.Assignments()
	if len(got) != 4 {
		t.Fatalf("Assignments() returned %d entries, want 4", len(got))
	}

	want := []struct {
		path  string
		value string
		has   bool
	}{
		{"server.port", "8080", true},
		{"liquibase.enabled", "true", true},
		{"hosts[1]", "b", true},
		{"empty", "", false},
	}
	for i, w := range want {
		a := got[i]
		if a.Path.String() != w.path || a.Value != w.value || a.HasValue != w.has {
			t.Errorf("assignment %d = (%s, %q, %v), want (%s, %q, %v)",
				i, a.Path, a.Value, a.HasValue, w.path, w.value, w.has)
		}
	}

	a := got[1]
	if text[a.KeyStart:a.KeyEnd] != "liquibase.enabled" {
		t.Errorf("key range covers %q", text[a.KeyStart:a.KeyEnd])
	}
	if text[a.ValueStart:a.ValueEnd] != "true" {
		t.Errorf("value range covers %q", text[a.ValueStart:a.ValueEnd])
	}
	if seg := a.Path[1]; text[seg.Start:seg.End] != "enabled" {
		t.Errorf("segment range covers %q", text[seg.Start:seg.End])
	}
}

func TestPropertiesPathAt(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		offset  int
		isKey   bool
		path    string
		partial string
	}{
		{"empty document", "", 0, true, "", ""},
		{"first segment", "ser", 3, true, "", "ser"},
		{"later segment", "server.po", 9, true, "server", "po"},
		{"after dot", "server.", 7, true, "server", ""},
		{"value after equals", "liquibase.enabled=t", 19, false, "liquibase.enabled", "t"},
		{"value after colon", "liquibase.enabled:", 18, false, "liquibase.enabled", ""},
		{"value after space", "liquibase.enabled f", 19, false, "liquibase.enabled", "f"},
		{"blank line", "a=1\n\n", 4, true, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, ok := New(tt.text, Properties).PathAt(tt.offset)
			if !ok {
				t.Fatal("PathAt() returned false")
			}
			if ctx.IsKey != tt.isKey || ctx.Path.String() != tt.path || ctx.Partial != tt.partial {
				t.Errorf("PathAt() = (key=%v, %q, %q), want (key=%v, %q, %q)",
					ctx.IsKey, ctx.Path, ctx.Partial, tt.isKey, tt.path, tt.partial)
			}
			if ctx.PartialStart+len(ctx.Partial) != tt.offset {
				t.Errorf("partial [%d,+%d) does not end at the cursor %d", ctx.PartialStart, len(ctx.Partial), tt.offset)
			}
		})
	}

	if _, ok := New("# comm", Properties).PathAt(4); ok {
		t.Error("PathAt() inside a comment should fail")
	}
	if _, ok := New("a=1", Properties).PathAt(10); ok {
		t.Error("PathAt() past the end should fail")
	}
}

func TestPropertiesNodeAt(t *testing.T) {
	text := "server.port=8080"
	d := New(text, Properties)

	n, ok := d.NodeAt(3)
	if !ok || !n.IsKey || n.Path.String() != "server.port" {
		t.Errorf("NodeAt(key) = %+v, %v", n, ok)
	}
	n, ok = d.NodeAt(14)
	if !ok || n.IsKey || text[n.Start:n.End] != "8080" {
		t.Errorf("NodeAt(value) = %+v, %v", n, ok)
	}
}

func TestYAMLAssignments(t *testing.T) {
	text := "server:\n  port: 8080\n  address:\nlogging.level.com.acme: debug\nhosts:\n  - a\n  - \"b\"\n"
	d := New(text, YAML)
	if err := d.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	got := d.Assignments()

	want := []struct {
		path  string
		value string
		has   bool
	}{
		{"server.port", "8080", true},
		{"server.address", "", false},
		{"logging.level.com.acme", "debug", true},
		{"hosts[0]", "a", true},
		{"hosts[1]", "b", true},
	}
	if len(got) != len(want) {
		t.Fatalf("Assignments() returned %d entries, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		a := got[i]
		if a.Path.String() != w.path || a.Value != w.value || a.HasValue != w.has {
			t.Errorf("assignment %d = (%s, %q, %v), want (%s, %q, %v)",
				i, a.Path, a.Value, a.HasValue, w.path, w.value, w.has)
		}
	}

	port := got[0]
	if text[port.KeyStart:port.KeyEnd] != "port" || text[port.ValueStart:port.ValueEnd] != "8080" {
		t.Errorf("ranges cover %q and %q", text[port.KeyStart:port.KeyEnd], text[port.ValueStart:port.ValueEnd])
	}
	if seg := port.Path[0]; text[seg.Start:seg.End] != "server" {
		t.Errorf("parent segment covers %q", text[seg.Start:seg.End])
	}

	dotted := got[2]
	if seg := dotted.Path[2]; text[seg.Start:seg.End] != "com" {
		t.Errorf("dotted key segment covers %q", text[seg.Start:seg.End])
	}

	quoted := got[4]
	if text[quoted.ValueStart:quoted.ValueEnd] != `"b"` {
		t.Errorf("quoted value covers %q", text[quoted.ValueStart:quoted.ValueEnd])
	}
}

func TestYAMLMultipleDocuments(t *testing.T) {
	d := New("a: 1\n---\nb: 2\n", YAML)
	got := d.Assignments()
	if len(got) != 2 || got[0].Path.String() != "a" || got[1].Path.String() != "b" {
		t.Errorf("Assignments() = %+v", got)
	}
}

func TestYAMLMalformed(t *testing.T) {
	d := New("a: [1, 2\nb: {", YAML)
	if d.Err() == nil {
		t.Fatal("Err() should report the syntax error")
	}
	if got := d.Assignments(); got != nil {
		t.Errorf("Assignments() = %+v, want nil", got)
	}
	if _, ok := d.PathAt(2); ok {
		t.Error("PathAt() should fail on malformed YAML")
	}
	if _, ok := d.NodeAt(0); ok {
		t.Error("NodeAt() should fail on malformed YAML")
	}
}

func TestYAMLPathAt(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		offset  int
		isKey   bool
		path    string
		partial string
	}{
		{"root word", "ser", 3, true, "", "ser"},
		{"child word below key", "server:\n  po", 12, true, "server", "po"},
		{"inside existing key", "server:\n  port: 1", 12, true, "server", "po"},
		{"value", "liquibase:\n  enabled: t", 23, false, "liquibase.enabled", "t"},
		{"empty value", "liquibase:\n  enabled: ", 22, false, "liquibase.enabled", ""},
		{"indented blank line", "server:\n  port: 8080\n  ", 23, true, "server", ""},
		{"root blank line", "server:\n  port: 8080\n", 21, true, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, ok := New(tt.text, YAML).PathAt(tt.offset)
			if !ok {
				t.Fatal("PathAt() returned false")
			}
			if ctx.IsKey != tt.isKey || ctx.Path.String() != tt.path || ctx.Partial != tt.partial {
				t.Errorf("PathAt() = (key=%v, %q, %q), want (key=%v, %q, %q)",
					ctx.IsKey, ctx.Path, ctx.Partial, tt.isKey, tt.path, tt.partial)
			}
		})
	}
}

func TestYAMLPathAtIndent(t *testing.T) {
	ctx, ok := New("server:\n  po", YAML).PathAt(12)
	if !ok || ctx.Indent != 2 {
		t.Errorf("Indent = %d, want 2", ctx.Indent)
	}
	ctx, ok = New("liquibase:\n  enabled: ", YAML).PathAt(21)
	if !ok || ctx.Indent != 4 {
		t.Errorf("value Indent = %d, want 4", ctx.Indent)
	}
}

func TestYAMLNodeAt(t *testing.T) {
	text := "server:\n  port: 8080\n"
	d := New(text, YAML)

	n, ok := d.NodeAt(strings.Index(text, "port") + 1)
	if !ok || !n.IsKey || n.Path.String() != "server.port" {
		t.Errorf("NodeAt(port) = %+v, %v", n, ok)
	}
	n, ok = d.NodeAt(strings.Index(text, "8080") + 1)
	if !ok || n.IsKey || n.Path.String() != "server.port" || text[n.Start:n.End] != "8080" {
		t.Errorf("NodeAt(8080) = %+v, %v", n, ok)
	}
	n, ok = d.NodeAt(2)
	if !ok || n.Path.String() != "server" {
		t.Errorf("NodeAt(server) = %+v, %v", n, ok)
	}
}
