package document

import (
	"sort"
	"unicode/utf8"
)

func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// LineCount returns the number of lines, counting a trailing empty line.
func (d *Document) LineCount() int {
	return len(d.lines)
}

// LineOf returns the zero-based line containing offset.
func (d *Document) LineOf(offset int) int {
	return sort.Search(len(d.lines), func(i int) bool {
		return d.lines[i] > offset
	}) - 1
}

// LineStart returns the offset of the first byte of line.
func (d *Document) LineStart(line int) int {
	if line <= 0 {
		return 0
	}
	if line >= len(d.lines) {
		return len(d.text)
	}
	return d.lines[line]
}

// LineEnd returns the offset of the end of line, excluding the line break.
func (d *Document) LineEnd(line int) int {
	end := len(d.text)
	if line+1 < len(d.lines) {
		end = d.lines[line+1] - 1
	}
	if end > 0 && end <= len(d.text) && end-1 >= d.LineStart(line) && d.text[end-1] == '\r' {
		end--
	}
	return end
}

// LineText returns the text of line without its line break.
func (d *Document) LineText(line int) string {
	return d.text[d.LineStart(line):d.LineEnd(line)]
}

// runeColumnOffset converts a one-based rune column on a zero-based line to a
// byte offset, clamped to the line.
func (d *Document) runeColumnOffset(line, column int) int {
	start, end := d.LineStart(line), d.LineEnd(line)
	off := start
	for col := 1; col < column && off < end; col++ {
		_, size := utf8.DecodeRuneInString(d.text[off:end])
		off += size
	}
	return off
}
