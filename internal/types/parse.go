package types

import (
	"strings"
)

// Hints carries optional metadata that refines a type name.
type Hints struct {
	// Values turns a String (or unknown) type into an Enum.
	Values []string
	// Fields turns an unknown class type into a Nested type.
	Fields []Field
}

var scalarNames = map[string]ScalarKind{
	"int":                 Int,
	"integer":             Int,
	"long":                Int,
	"short":               Int,
	"byte":                Int,
	"java.lang.integer":   Int,
	"java.lang.long":      Int,
	"java.lang.short":     Int,
	"java.lang.byte":      Int,
	"boolean":             Bool,
	"bool":                Bool,
	"java.lang.boolean":   Bool,
	"string":              String,
	"java.lang.string":    String,
	"char":                String,
	"java.lang.character": String,
}

var listNames = map[string]bool{
	"java.util.list":       true,
	"java.util.set":        true,
	"java.util.collection": true,
	"java.lang.iterable":   true,
	"list":                 true,
	"set":                  true,
}

var mapNames = map[string]bool{
	"java.util.map":        true,
	"java.util.properties": true,
	"map":                  true,
}

// ParseTypeName converts a metadata type string such as "java.lang.Integer",
// "java.util.List<java.lang.String>" or "java.util.Map<String,Object>" into a
// Type. Unknown names become Any, unless hints describe values or fields.
func ParseTypeName(name string, hints Hints) Type {
	p := &typeParser{src: strings.TrimSpace(name)}
	t := p.parse()
	return applyHints(t, hints)
}

func applyHints(t Type, hints Hints) Type {
	switch tt := t.(type) {
	case *Scalar:
		if len(hints.Values) > 0 && (tt.Kind == String || tt.Kind == Any) {
			return EnumOf(hints.Values...)
		}
		if len(hints.Fields) > 0 && tt.Kind == Any {
			return &Nested{Fields: hints.Fields}
		}
	case *ListOf:
		return &ListOf{Elem: applyHints(tt.Elem, hints)}
	case *MapOf:
		// Values hints on maps describe the keys.
		if len(hints.Values) > 0 {
			return &MapOf{Key: applyHints(tt.Key, Hints{Values: hints.Values}), Value: tt.Value}
		}
	}
	return t
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) parse() Type {
	base := p.ident()
	var args []Type
	p.skipSpace()
	if p.peek() == '<' {
		p.pos++
		for {
			args = append(args, p.parse())
			p.skipSpace()
			c := p.peek()
			if c == 0 {
				break
			}
			p.pos++
			if c != ',' {
				break
			}
		}
	}
	t := build(base, args)
	p.skipSpace()
	for strings.HasPrefix(p.src[p.pos:], "[]") {
		p.pos += 2
		t = &ListOf{Elem: t}
		p.skipSpace()
	}
	return t
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '<' || c == '>' || c == ',' || c == '[' || c == ' ' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *typeParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

func build(base string, args []Type) Type {
	// Nested classes use '$' in binary names.
	lower := strings.ToLower(strings.ReplaceAll(base, "$", "."))
	if kind, ok := scalarNames[lower]; ok {
		return &Scalar{Kind: kind}
	}
	if listNames[lower] {
		elem := AnyType
		if len(args) > 0 {
			elem = args[0]
		}
		return &ListOf{Elem: elem}
	}
	if mapNames[lower] {
		key, value := StringType, AnyType
		if lower == "java.util.properties" {
			value = StringType
		}
		if len(args) > 0 {
			key = args[0]
		}
		if len(args) > 1 {
			value = args[1]
		}
		return &MapOf{Key: key, Value: value}
	}
	return AnyType
}
