package document

import (
	"github.com/woxQAQ/config-props-lsp/internal/proppath"
)

// propertyLine is the parsed form of one physical line of a properties file.
type propertyLine struct {
	comment    bool
	blank      bool
	keyStart   int
	keyEnd     int
	valueStart int
	assignment *Assignment
}

func parseProperties(d *Document) []*propertyLine {
	entries := make([]*propertyLine, d.LineCount())
	for line := range entries {
		entries[line] = parsePropertyLine(d, line)
	}
	return entries
}

func isPropertySpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\f'
}

// parsePropertyLine splits a line on the first unescaped '=' or ':', or on
// whitespace when neither is present.
func parsePropertyLine(d *Document, line int) *propertyLine {
	text := d.text
	start, end := d.LineStart(line), d.LineEnd(line)

	i := start
	for i < end && isPropertySpace(text[i]) {
		i++
	}
	if i == end {
		return &propertyLine{blank: true, keyStart: i, keyEnd: i, valueStart: i}
	}
	if text[i] == '#' || text[i] == '!' {
		return &propertyLine{comment: true, keyStart: i, keyEnd: i, valueStart: i}
	}

	keyStart := i
	for i < end {
		c := text[i]
		if c == '\\' && i+1 < end {
			i += 2
			continue
		}
		if c == '=' || c == ':' || isPropertySpace(c) {
			break
		}
		i++
	}
	keyEnd := i

	j := i
	for j < end && isPropertySpace(text[j]) {
		j++
	}
	if j < end && (text[j] == '=' || text[j] == ':') {
		j++
		for j < end && isPropertySpace(text[j]) {
			j++
		}
	}
	valueStart := j
	valueEnd := end
	for valueEnd > valueStart && isPropertySpace(text[valueEnd-1]) {
		valueEnd--
	}

	e := &propertyLine{keyStart: keyStart, keyEnd: keyEnd, valueStart: valueStart}
	if keyEnd > keyStart {
		e.assignment = &Assignment{
			Path:       proppath.Parse(text[keyStart:keyEnd]).Shift(keyStart),
			KeyStart:   keyStart,
			KeyEnd:     keyEnd,
			Value:      text[valueStart:valueEnd],
			ValueStart: valueStart,
			ValueEnd:   valueEnd,
			HasValue:   valueEnd > valueStart,
			Line:       line,
		}
	}
	return e
}

func (d *Document) propertiesPathAt(offset int) (Context, bool) {
	e := d.entries[d.LineOf(offset)]
	switch {
	case e.comment:
		return Context{}, false
	case e.blank, offset <= e.keyStart:
		return Context{IsKey: true, PartialStart: offset}, true
	case offset <= e.keyEnd:
		typed := proppath.Parse(d.text[e.keyStart:offset])
		last := typed[len(typed)-1]
		if last.Kind != proppath.Key {
			return Context{
				Path:         typed.Shift(e.keyStart),
				IsKey:        true,
				PartialStart: offset,
			}, true
		}
		partialStart := e.keyStart + last.Start
		return Context{
			Path:         typed[:len(typed)-1].Shift(e.keyStart),
			IsKey:        true,
			Partial:      d.text[partialStart:offset],
			PartialStart: partialStart,
		}, true
	}
	if e.assignment == nil {
		return Context{}, false
	}

	ctx := Context{Path: e.assignment.Path, PartialStart: offset}
	if offset >= e.valueStart {
		ctx.Partial = d.text[e.valueStart:offset]
		ctx.PartialStart = e.valueStart
	}
	return ctx, true
}

func (d *Document) propertiesNodeAt(offset int) (Node, bool) {
	e := d.entries[d.LineOf(offset)]
	a := e.assignment
	if a == nil {
		return Node{}, false
	}
	if offset >= a.KeyStart && offset <= a.KeyEnd {
		return Node{Path: a.Path, Start: a.KeyStart, End: a.KeyEnd, IsKey: true}, true
	}
	if offset >= a.ValueStart && offset <= a.ValueEnd {
		return Node{Path: a.Path, Start: a.ValueStart, End: a.ValueEnd}, true
	}
	return Node{}, false
}
