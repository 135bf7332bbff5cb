// Package proppath models the dotted / indexed address of a configuration key.
package proppath

import (
	"strconv"
	"strings"
)

// SegmentKind distinguishes map keys from list positions.
type SegmentKind int

const (
	// Key is a named segment ("server" in "server.port").
	Key SegmentKind = iota
	// Index is a list position ("[0]" in "hosts[0]", or a YAML sequence item).
	Index
	// Append is a synthetic list segment meaning "a new element".
	Append
)

// Segment is one element of a Path. Start and End are byte offsets of the
// segment text relative to whatever the path was parsed from; both are zero
// for synthetic paths.
type Segment struct {
	Kind  SegmentKind
	Name  string
	Pos   int
	Start int
	End   int
}

// KeySegment builds a Key segment without source offsets.
func KeySegment(name string) Segment {
	return Segment{Kind: Key, Name: name}
}

// IndexSegment builds an Index segment without source offsets.
func IndexSegment(i int) Segment {
	return Segment{Kind: Index, Pos: i}
}

// String renders the segment the way it appears in a properties key.
func (s Segment) String() string {
	switch s.Kind {
	case Index:
		return "[" + strconv.Itoa(s.Pos) + "]"
	case Append:
		return "[]"
	default:
		return s.Name
	}
}

// Path is an ordered sequence of segments.
type Path []Segment

// SplitID splits a dotted property id on '.', keeping empty segments.
func SplitID(id string) []string {
	return strings.Split(id, ".")
}

// FromID converts a dotted id into a Path of Key segments.
func FromID(id string) Path {
	parts := SplitID(id)
	p := make(Path, 0, len(parts))
	off := 0
	for _, part := range parts {
		p = append(p, Segment{Kind: Key, Name: part, Start: off, End: off + len(part)})
		off += len(part) + 1
	}
	return p
}

// Parse parses a properties-style key such as "hosts[0].name" into a Path.
// Offsets in the returned segments are relative to key. Backslash escapes are
// removed from segment names but preserved in the offsets.
func Parse(key string) Path {
	var p Path
	var name strings.Builder
	start := 0
	flush := func(end int) {
		p = append(p, Segment{Kind: Key, Name: name.String(), Start: start, End: end})
		name.Reset()
	}
	pendingKey := true
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == '\\' && i+1 < len(key):
			name.WriteByte(key[i+1])
			i++
		case c == '.':
			if pendingKey {
				flush(i)
			}
			pendingKey = true
			start = i + 1
		case c == '[':
			closeAt := strings.IndexByte(key[i:], ']')
			if closeAt < 0 {
				name.WriteByte(c)
				continue
			}
			if pendingKey && (name.Len() > 0 || i > start) {
				flush(i)
			}
			inner := key[i+1 : i+closeAt]
			seg := Segment{Kind: Append, Start: i, End: i + closeAt + 1}
			if n, err := strconv.Atoi(strings.TrimSpace(inner)); err == nil {
				seg.Kind = Index
				seg.Pos = n
			} else if inner != "" {
				seg.Kind = Key
				seg.Name = inner
			}
			p = append(p, seg)
			i += closeAt
			pendingKey = false
			start = i + 1
		default:
			if !pendingKey {
				// text glued to a closing bracket, e.g. "a[0]b"
				pendingKey = true
				start = i
			}
			name.WriteByte(c)
		}
	}
	if pendingKey {
		flush(len(key))
	}
	return p
}

// String renders the path as a dotted id with bracketed indices.
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if s.Kind == Key && i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// Keys reports whether every segment is a Key.
func (p Path) Keys() bool {
	for _, s := range p {
		if s.Kind != Key {
			return false
		}
	}
	return true
}

// Append returns a copy of p with segs added.
func (p Path) Append(segs ...Segment) Path {
	out := make(Path, 0, len(p)+len(segs))
	out = append(out, p...)
	return append(out, segs...)
}

// Shift returns a copy of p with every offset moved by delta.
func (p Path) Shift(delta int) Path {
	out := make(Path, len(p))
	for i, s := range p {
		s.Start += delta
		s.End += delta
		out[i] = s
	}
	return out
}
