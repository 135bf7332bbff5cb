// Package types describes the declared shape of a configuration property value
// and navigates it along a property path.
package types

import (
	"strings"
)

// ScalarKind enumerates atomic value kinds.
type ScalarKind int

const (
	// Any accepts every value and every sub-path. It stands in for opaque
	// types the metadata does not describe further.
	Any ScalarKind = iota
	Int
	Bool
	String
	Enum
)

// Title returns the user-facing name of the kind, as used in diagnostics.
func (k ScalarKind) Title() string {
	switch k {
	case Int:
		return "Integer"
	case Bool:
		return "Boolean"
	case String:
		return "String"
	case Enum:
		return "Enum"
	default:
		return "Object"
	}
}

// Type is a type signature: one of *Scalar, *ListOf, *MapOf or *Nested.
type Type interface {
	// String renders a short, human readable form of the type.
	String() string
	isType()
}

// Scalar is an atomic value type.
type Scalar struct {
	Kind ScalarKind
	// Values lists the legal tokens of an Enum.
	Values []string
}

// ListOf is a sequence of Elem.
type ListOf struct {
	Elem Type
}

// MapOf is a map from user-defined keys to Value. Key is advisory: it is used
// to propose key literals but never enforced structurally.
type MapOf struct {
	Key   Type
	Value Type
}

// Field is one named member of a Nested type.
type Field struct {
	Name        string
	Type        Type
	Description string
}

// Nested is an object with a fixed set of fields.
type Nested struct {
	Fields []Field
}

func (*Scalar) isType() {}
func (*ListOf) isType() {}
func (*MapOf) isType() {}
func (*Nested) isType() {}

func (s *Scalar) String() string {
	switch s.Kind {
	case Int:
		return "int"
	case Bool:
		return "boolean"
	case String:
		return "String"
	case Enum:
		return "enum(" + strings.Join(s.Values, "|") + ")"
	default:
		return "Object"
	}
}

func (l *ListOf) String() string {
	return "List<" + l.Elem.String() + ">"
}

func (m *MapOf) String() string {
	return "Map<" + m.Key.String() + "," + m.Value.String() + ">"
}

func (n *Nested) String() string {
	return "Object"
}

// Convenience constructors.
var (
	IntType    Type = &Scalar{Kind: Int}
	BoolType   Type = &Scalar{Kind: Bool}
	StringType Type = &Scalar{Kind: String}
	AnyType    Type = &Scalar{Kind: Any}
)

// EnumOf returns an Enum scalar with the given values.
func EnumOf(values ...string) Type {
	return &Scalar{Kind: Enum, Values: values}
}

// IsAtomic reports whether t is a Scalar.
func IsAtomic(t Type) bool {
	_, ok := t.(*Scalar)
	return ok
}

// IsObject reports whether t has named children (Nested or MapOf).
func IsObject(t Type) bool {
	switch t.(type) {
	case *Nested, *MapOf:
		return true
	}
	return false
}

// ScalarKindOf returns the kind of t if it is a Scalar.
func ScalarKindOf(t Type) (ScalarKind, bool) {
	if s, ok := t.(*Scalar); ok {
		return s.Kind, true
	}
	return Any, false
}
