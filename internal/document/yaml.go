package document

import (
	"errors"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/woxQAQ/config-props-lsp/internal/proppath"
)

type nodeKind int

const (
	keyNode nodeKind = iota
	scalarNode
	// emptyNode is the gap after "key:" when no value follows.
	emptyNode
)

// ynode is a key or scalar token of a YAML document with its byte range and
// the path it addresses.
type ynode struct {
	kind   nodeKind
	start  int
	end    int
	path   proppath.Path
	line   int
	column int
	// keySegs is the number of path segments contributed by a key token.
	keySegs int
	plain   bool
	quoted  bool
	// mapValue is set for scalars that are the value of a mapping pair;
	// ownerLine and ownerColumn locate the owning key.
	mapValue    bool
	ownerLine   int
	ownerColumn int
}

type yamlTree struct {
	d           *Document
	nodes       []*ynode
	keys        []*ynode
	assignments []Assignment
}

func parseYAML(d *Document) (*yamlTree, error) {
	t := &yamlTree{d: d}
	dec := yaml.NewDecoder(strings.NewReader(d.text))
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
			t.walk(doc.Content[0], nil, nil)
		}
	}
	return t, nil
}

func (t *yamlTree) offset(n *yaml.Node) int {
	if n.Line <= 0 {
		return 0
	}
	return t.d.runeColumnOffset(n.Line-1, n.Column)
}

func (t *yamlTree) position(off int) (line, column int) {
	line = t.d.LineOf(off)
	return line, off - t.d.LineStart(line)
}

// walk records n and its descendants and returns the end offset of n. owner
// is the key whose value n is, nil at the document root.
func (t *yamlTree) walk(n *yaml.Node, path proppath.Path, owner *ynode) int {
	start := t.offset(n)
	switch n.Kind {
	case yaml.MappingNode:
		end := start
		for i := 0; i+1 < len(n.Content); i += 2 {
			end = max(end, t.walkPair(n.Content[i], n.Content[i+1], path))
		}
		if len(n.Content) == 0 {
			end = t.flowEnd(start, '}')
		}
		return end
	case yaml.SequenceNode:
		end := start
		for i, item := range n.Content {
			itemStart := t.offset(item)
			seg := proppath.Segment{Kind: proppath.Index, Pos: i, Start: itemStart, End: itemStart}
			end = max(end, t.walk(item, path.Append(seg), owner))
		}
		if len(n.Content) == 0 {
			end = t.flowEnd(start, ']')
		}
		return end
	case yaml.ScalarNode, yaml.AliasNode:
		indent := -1
		if owner != nil {
			indent = owner.column
		}
		end := t.scalarEnd(n, start, indent)
		line, column := t.position(start)
		sn := &ynode{
			kind:   scalarNode,
			start:  start,
			end:    end,
			path:   path,
			line:   line,
			column: column,
			plain:  n.Kind == yaml.ScalarNode && n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) == 0,
			quoted: n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0,
		}
		if owner != nil {
			sn.ownerLine, sn.ownerColumn = owner.line, owner.column
			sn.mapValue = len(path) > 0 && path[len(path)-1].Kind == proppath.Key
		}
		t.nodes = append(t.nodes, sn)
		if owner != nil {
			t.assignments = append(t.assignments, Assignment{
				Path:       path,
				KeyStart:   owner.start,
				KeyEnd:     owner.end,
				Value:      n.Value,
				ValueStart: start,
				ValueEnd:   end,
				HasValue:   n.Kind == yaml.ScalarNode && n.Tag != "!!null",
				Line:       owner.line,
			})
		}
		return end
	}
	return start
}

func (t *yamlTree) walkPair(k, v *yaml.Node, path proppath.Path) int {
	if k.Value == "<<" {
		// Merge keys pull in anchored content; the anchor was validated where it was defined.
		return t.offset(v)
	}
	kStart := t.offset(k)
	kEnd := t.scalarEnd(k, kStart, -1)
	segs := t.keySegments(k, kStart, kEnd)
	kpath := path.Append(segs...)
	line, column := t.position(kStart)
	kn := &ynode{
		kind:    keyNode,
		start:   kStart,
		end:     kEnd,
		path:    kpath,
		line:    line,
		column:  column,
		keySegs: len(segs),
		plain:   k.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) == 0,
	}
	t.nodes = append(t.nodes, kn)
	t.keys = append(t.keys, kn)

	switch {
	case v.Kind == yaml.ScalarNode && v.Tag == "!!null" && v.Value == "":
		gapStart := kEnd
		lineEnd := t.d.LineEnd(line)
		if colon := strings.IndexByte(t.d.text[kEnd:lineEnd], ':'); colon >= 0 {
			gapStart = kEnd + colon + 1
		}
		t.nodes = append(t.nodes, &ynode{
			kind:        emptyNode,
			start:       gapStart,
			end:         max(gapStart, lineEnd),
			path:        kpath,
			line:        line,
			column:      gapStart - t.d.LineStart(line),
			mapValue:    true,
			ownerLine:   line,
			ownerColumn: column,
		})
		t.assignments = append(t.assignments, Assignment{
			Path: kpath, KeyStart: kStart, KeyEnd: kEnd,
			ValueStart: gapStart, ValueEnd: gapStart, Line: line,
		})
		return max(kEnd, lineEnd)
	case (v.Kind == yaml.MappingNode || v.Kind == yaml.SequenceNode) && len(v.Content) == 0:
		t.assignments = append(t.assignments, Assignment{
			Path: kpath, KeyStart: kStart, KeyEnd: kEnd,
			ValueStart: t.offset(v), ValueEnd: t.offset(v), Line: line,
		})
	}
	return max(kEnd, t.walk(v, kpath, kn))
}

// keySegments splits a key token on dots. Offsets of the parts are exact for
// plain single-line keys; otherwise every part spans the whole token.
func (t *yamlTree) keySegments(k *yaml.Node, start, end int) []proppath.Segment {
	name := k.Value
	if !strings.Contains(name, ".") {
		return []proppath.Segment{{Kind: proppath.Key, Name: name, Start: start, End: end}}
	}
	exact := end-start == len(name) && t.d.text[start:end] == name
	parts := proppath.SplitID(name)
	segs := make([]proppath.Segment, len(parts))
	off := start
	for i, part := range parts {
		segs[i] = proppath.Segment{Kind: proppath.Key, Name: part, Start: start, End: end}
		if exact {
			segs[i].Start, segs[i].End = off, off+len(part)
			off += len(part) + 1
		}
	}
	return segs
}

func (t *yamlTree) flowEnd(start int, closer byte) int {
	text := t.d.text
	if start < len(text) && (text[start] == '{' || text[start] == '[') {
		if i := strings.IndexByte(text[start:], closer); i >= 0 {
			return start + i + 1
		}
	}
	return start
}

// scalarEnd finds the end offset of the scalar or alias token starting at
// start. indent is the column of the owning key, used to bound block scalars.
func (t *yamlTree) scalarEnd(n *yaml.Node, start, indent int) int {
	text := t.d.text
	if start >= len(text) {
		return len(text)
	}
	if n.Kind == yaml.AliasNode {
		return min(len(text), start+1+len(n.Value))
	}
	switch {
	case n.Style&yaml.DoubleQuotedStyle != 0:
		for i := start + 1; i < len(text); i++ {
			if text[i] == '\\' {
				i++
				continue
			}
			if text[i] == '"' {
				return i + 1
			}
		}
		return len(text)
	case n.Style&yaml.SingleQuotedStyle != 0:
		for i := start + 1; i < len(text); i++ {
			if text[i] == '\'' {
				if i+1 < len(text) && text[i+1] == '\'' {
					i++
					continue
				}
				return i + 1
			}
		}
		return len(text)
	case n.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0:
		line := t.d.LineOf(start)
		end := t.d.LineEnd(line)
		for l := line + 1; l < t.d.LineCount(); l++ {
			lt := t.d.LineText(l)
			if strings.TrimSpace(lt) == "" {
				continue
			}
			if len(lt)-len(strings.TrimLeft(lt, " ")) <= indent {
				break
			}
			end = t.d.LineEnd(l)
		}
		return end
	}
	if !strings.Contains(n.Value, "\n") && strings.HasPrefix(text[start:], n.Value) {
		return start + len(n.Value)
	}
	// Tagged, anchored or multi-line plain scalars: up to the end of the line,
	// trailing comment excluded.
	line := t.d.LineOf(start)
	end := t.d.LineEnd(line)
	if c := strings.Index(text[start:end], " #"); c >= 0 {
		end = start + c
	}
	return start + len(strings.TrimRight(text[start:end], " \t"))
}

// innermost returns the smallest key or scalar node containing offset.
func (t *yamlTree) innermost(offset int) *ynode {
	var best *ynode
	for _, n := range t.nodes {
		if offset < n.start || offset > n.end {
			continue
		}
		if best == nil || n.end-n.start < best.end-best.start {
			best = n
		}
	}
	return best
}

func (t *yamlTree) pathAt(offset int) (Context, bool) {
	n := t.innermost(offset)
	if n == nil {
		return t.indentContext(offset)
	}

	switch n.kind {
	case keyNode:
		parent := len(n.path) - n.keySegs
		cur := parent
		for i := parent; i < len(n.path); i++ {
			if n.path[i].Start <= offset {
				cur = i
			}
		}
		start := n.path[cur].Start
		if n.plain && n.keySegs == 1 {
			start = n.start
		}
		return Context{
			Path:         n.path[:cur],
			IsKey:        true,
			Partial:      t.d.text[start:offset],
			PartialStart: start,
			Indent:       n.column,
		}, true
	case emptyNode:
		return Context{Path: n.path, PartialStart: offset, Indent: n.ownerColumn + 2}, true
	}

	if n.plain && (len(n.path) == 0 || n.mapValue && n.line > n.ownerLine) && t.d.LineOf(offset) == n.line {
		// A bare word on its own line is a key being typed.
		return Context{
			Path:         n.path,
			IsKey:        true,
			Partial:      t.d.text[n.start:offset],
			PartialStart: n.start,
			Indent:       n.column,
		}, true
	}

	start := n.start
	if n.quoted && offset > start {
		start++
	}
	return Context{
		Path:         n.path,
		Partial:      t.d.text[start:offset],
		PartialStart: start,
		Indent:       n.ownerColumn + 2,
	}, true
}

// indentContext handles offsets outside every token: on a blank (or
// whitespace-only) prefix of a line, the enclosing key is the nearest earlier
// key that is indented less than the cursor.
func (t *yamlTree) indentContext(offset int) (Context, bool) {
	line := t.d.LineOf(offset)
	lineStart := t.d.LineStart(line)
	if strings.TrimSpace(t.d.text[lineStart:offset]) != "" {
		return Context{}, false
	}
	column := offset - lineStart
	var path proppath.Path
	for i := len(t.keys) - 1; i >= 0; i-- {
		k := t.keys[i]
		if k.line < line && k.column < column {
			path = k.path
			break
		}
	}
	return Context{Path: path, IsKey: true, PartialStart: offset, Indent: column}, true
}

func (t *yamlTree) nodeAt(offset int) (Node, bool) {
	n := t.innermost(offset)
	if n == nil {
		return Node{}, false
	}
	return Node{Path: n.path, Start: n.start, End: n.end, IsKey: n.kind == keyNode}, true
}
