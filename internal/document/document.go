// Package document turns configuration file text into a path-addressable
// structure. Two syntaxes are supported: line oriented properties files and
// YAML. Both expose the same operations, so callers never branch on syntax
// except to format inserted text.
package document

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/woxQAQ/config-props-lsp/internal/proppath"
)

// Syntax identifies the textual format of a document.
type Syntax int

const (
	Properties Syntax = iota
	YAML
)

func (s Syntax) String() string {
	if s == YAML {
		return "yaml"
	}
	return "properties"
}

// SyntaxForPath picks the syntax from a file name or URI.
func SyntaxForPath(path string) Syntax {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return YAML
	}
	return Properties
}

// SyntaxForLanguageID maps an LSP language identifier to a syntax.
func SyntaxForLanguageID(id string) (Syntax, bool) {
	switch strings.ToLower(id) {
	case "yaml", "spring-boot-properties-yaml":
		return YAML, true
	case "properties", "ini", "java-properties", "spring-boot-properties":
		return Properties, true
	}
	return Properties, false
}

// Assignment is one key/value pair found in a document. Offsets are absolute
// byte offsets into the document text.
type Assignment struct {
	// Path segments carry the source range of each key segment.
	Path proppath.Path
	// KeyStart and KeyEnd delimit the key token (the last key token in YAML).
	KeyStart int
	KeyEnd   int
	Value    string
	// ValueStart and ValueEnd delimit the value token, trailing whitespace excluded.
	ValueStart int
	ValueEnd   int
	HasValue   bool
	// Line is the zero-based line of the key.
	Line int
}

// Context describes the cursor position for completion.
type Context struct {
	// Path is the committed path: for key positions it excludes the key being
	// typed, for value positions it is the full key path.
	Path  proppath.Path
	IsKey bool
	// Partial is the text typed so far for the current key segment or value.
	Partial      string
	PartialStart int
	// Indent is the column at which new YAML keys are inserted.
	Indent int
}

// Node is the smallest structural element covering an offset.
type Node struct {
	Path  proppath.Path
	Start int
	End   int
	IsKey bool
}

// Document is an immutable snapshot of a configuration file. The structure is
// computed lazily on first use and cached; a Document is safe for concurrent
// use.
type Document struct {
	text   string
	syntax Syntax
	lines  []int

	once    sync.Once
	entries []*propertyLine
	tree    *yamlTree
	err     error
}

// New creates a document snapshot.
func New(text string, syntax Syntax) *Document {
	return &Document{
		text:   text,
		syntax: syntax,
		lines:  lineStarts(text),
	}
}

// Text returns the document text.
func (d *Document) Text() string {
	return d.text
}

// Syntax returns the document syntax.
func (d *Document) Syntax() Syntax {
	return d.syntax
}

// Len returns the length of the text in bytes.
func (d *Document) Len() int {
	return len(d.text)
}

// Err returns the structural parse error, if any. Properties documents never
// fail to parse.
func (d *Document) Err() error {
	d.build()
	return d.err
}

func (d *Document) build() {
	d.once.Do(func() {
		switch d.syntax {
		case YAML:
			d.tree, d.err = parseYAML(d)
		default:
			d.entries = parseProperties(d)
		}
	})
}

// Assignments returns every key/value assignment in document order. A YAML
// document that fails to parse has no assignments.
func (d *Document) Assignments() []Assignment {
	d.build()
	if d.syntax == YAML {
		if d.err != nil {
			return nil
		}
		return d.tree.assignments
	}
	out := make([]Assignment, 0, len(d.entries))
	for _, e := range d.entries {
		if e.assignment != nil {
			out = append(out, *e.assignment)
		}
	}
	return out
}

// PathAt returns the completion context at offset. ok is false when the
// offset is outside the document, inside a comment, or the structure could
// not be parsed.
func (d *Document) PathAt(offset int) (Context, bool) {
	if offset < 0 || offset > len(d.text) {
		return Context{}, false
	}
	d.build()
	if d.syntax == YAML {
		if d.err != nil {
			return Context{}, false
		}
		return d.tree.pathAt(offset)
	}
	return d.propertiesPathAt(offset)
}

// NodeAt returns the key or value element covering offset with its full path.
func (d *Document) NodeAt(offset int) (Node, bool) {
	if offset < 0 || offset > len(d.text) {
		return Node{}, false
	}
	d.build()
	if d.syntax == YAML {
		if d.err != nil {
			return Node{}, false
		}
		return d.tree.nodeAt(offset)
	}
	return d.propertiesNodeAt(offset)
}
