package lsp

import (
	"testing"
	"unicode/utf8"

	"go.lsp.dev/protocol"

	"github.com/woxQAQ/config-props-lsp/internal/document"
	props "github.com/woxQAQ/config-props-lsp/pkg/protocol"
)

func TestOffsetAt(t *testing.T) {
	// "é" is two bytes and one UTF-16 unit, "😀" four bytes and two units.
	doc := document.New("a=é😀x\r\nserver.port=1\n", document.Properties)

	tests := []struct {
		name string
		pos  protocol.Position
		want int
	}{
		{"start", protocol.Position{Line: 0, Character: 0}, 0},
		{"after two byte rune", protocol.Position{Line: 0, Character: 3}, 4},
		{"after surrogate pair", protocol.Position{Line: 0, Character: 5}, 8},
		{"past line end clamps before CR", protocol.Position{Line: 0, Character: 40}, 9},
		{"second line", protocol.Position{Line: 1, Character: 6}, 17},
		{"last empty line", protocol.Position{Line: 2, Character: 0}, 25},
		{"past document end", protocol.Position{Line: 9, Character: 0}, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := offsetAt(doc, tt.pos); got != tt.want {
				t.Errorf("offsetAt(%v) got %d, want %d", tt.pos, got, tt.want)
			}
		})
	}
}

func TestPositionAt(t *testing.T) {
	doc := document.New("a=é😀x\r\nserver.port=1\n", document.Properties)

	tests := []struct {
		offset int
		want   protocol.Position
	}{
		{0, protocol.Position{Line: 0, Character: 0}},
		{4, protocol.Position{Line: 0, Character: 3}},
		{8, protocol.Position{Line: 0, Character: 5}},
		{10, protocol.Position{Line: 0, Character: 6}},
		{17, protocol.Position{Line: 1, Character: 6}},
		{-3, protocol.Position{Line: 0, Character: 0}},
		{100, protocol.Position{Line: 2, Character: 0}},
	}
	for _, tt := range tests {
		if got := positionAt(doc, tt.offset); got != tt.want {
			t.Errorf("positionAt(%d) got %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestPositionRoundTrip(t *testing.T) {
	doc := document.New("prop: ünïcödé\n  😀: x\n", document.YAML)
	text := doc.Text()
	for off := 0; off <= doc.Len(); off++ {
		if off < len(text) && !utf8.RuneStart(text[off]) {
			continue
		}
		pos := positionAt(doc, off)
		if back := offsetAt(doc, pos); back != off {
			t.Errorf("offset %d -> %v -> %d", off, pos, back)
		}
	}
}

func TestLSPRange(t *testing.T) {
	doc := document.New("server.port=abc\n", document.Properties)
	got := lspRange(doc, props.Range{Start: 12, End: 15})
	want := protocol.Range{
		Start: protocol.Position{Line: 0, Character: 12},
		End:   protocol.Position{Line: 0, Character: 15},
	}
	if got != want {
		t.Errorf("lspRange() got %v, want %v", got, want)
	}
}

func TestSafeUint32(t *testing.T) {
	if got := safeUint32(-1); got != 0 {
		t.Errorf("safeUint32(-1) got %d, want 0", got)
	}
	if got := safeUint32(1 << 40); got != maxUint32 {
		t.Errorf("safeUint32(1<<40) got %d, want %d", got, maxUint32)
	}
	if got := safeUint32(42); got != 42 {
		t.Errorf("safeUint32(42) got %d, want 42", got)
	}
}
