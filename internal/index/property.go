// Package index holds the immutable, ordered collection of known configuration
// properties and answers exact, relaxed, prefix and fuzzy queries over it.
package index

import (
	"strings"

	"github.com/woxQAQ/config-props-lsp/internal/types"
)

// Deprecation describes why a property is deprecated and what replaces it.
type Deprecation struct {
	Replacement string
	Reason      string
}

// PropertyInfo is one metadata entry describing a configuration key.
type PropertyInfo struct {
	ID   string
	Type types.Type
	// TypeName is the type as declared in the metadata, e.g. "java.lang.Integer".
	TypeName     string
	DefaultValue string
	HasDefault   bool
	Description  string
	Deprecated   bool
	Deprecation  Deprecation
}

// IsLeaf reports whether the property holds an atomic value.
func (p *PropertyInfo) IsLeaf() bool {
	return types.IsAtomic(p.Type)
}

// TypeDisplay returns the declared type with package qualifiers removed, so
// "java.util.Map<java.lang.String,java.lang.Object>" reads
// "Map<String,Object>".
func (p *PropertyInfo) TypeDisplay() string {
	if p.TypeName == "" {
		if p.Type == nil {
			return ""
		}
		return p.Type.String()
	}
	var b strings.Builder
	word := 0
	flush := func(end int) {
		ident := p.TypeName[word:end]
		if i := strings.LastIndexAny(ident, ".$"); i >= 0 {
			ident = ident[i+1:]
		}
		b.WriteString(ident)
	}
	for i := 0; i < len(p.TypeName); i++ {
		switch c := p.TypeName[i]; c {
		case '<', '>', ',', '[', ']', ' ':
			flush(i)
			if c != ' ' {
				b.WriteByte(c)
			}
			word = i + 1
		}
	}
	flush(len(p.TypeName))
	return b.String()
}
