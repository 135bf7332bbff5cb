package lsp

import (
	"unicode/utf16"
	"unicode/utf8"

	"fortio.org/safecast"
	"go.lsp.dev/protocol"

	"github.com/woxQAQ/config-props-lsp/internal/document"
	props "github.com/woxQAQ/config-props-lsp/pkg/protocol"
)

const maxUint32 = ^uint32(0)

func safeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

// utf16Len returns the number of UTF-16 code units needed for s. Invalid
// bytes count as one unit each, like the replacement character.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// offsetAt converts an LSP position to a byte offset in doc. Columns count
// UTF-16 code units; positions past the end of a line clamp to the line end
// and lines past the end clamp to the document end.
func offsetAt(doc *document.Document, pos protocol.Position) int {
	line := int(pos.Line)
	if line >= doc.LineCount() {
		return doc.Len()
	}
	text := doc.Text()
	start, end := doc.LineStart(line), doc.LineEnd(line)
	want := int(pos.Character)

	off, units := start, 0
	for off < end && units < want {
		r, size := utf8.DecodeRuneInString(text[off:end])
		if l := utf16.RuneLen(r); l > 0 {
			units += l
		} else {
			units++
		}
		off += size
	}
	return off
}

// positionAt converts a byte offset in doc to an LSP position.
func positionAt(doc *document.Document, offset int) protocol.Position {
	offset = min(max(offset, 0), doc.Len())
	line := doc.LineOf(offset)
	start := doc.LineStart(line)
	end := min(offset, doc.LineEnd(line))
	return protocol.Position{
		Line:      safeUint32(line),
		Character: safeUint32(utf16Len(doc.Text()[start:end])),
	}
}

func lspRange(doc *document.Document, r props.Range) protocol.Range {
	return protocol.Range{
		Start: positionAt(doc, r.Start),
		End:   positionAt(doc, r.End),
	}
}
