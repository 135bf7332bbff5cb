package types

import (
	"strings"

	"github.com/woxQAQ/config-props-lsp/internal/names"
	"github.com/woxQAQ/config-props-lsp/internal/proppath"
)

// TargetKind classifies the outcome of resolving a path suffix against a type.
type TargetKind int

const (
	// ExactScalar means the suffix ends on an atomic value.
	ExactScalar TargetKind = iota
	// Descend means the suffix continues into a child type.
	Descend
	// InvalidSubproperty means a scalar was followed by more segments.
	InvalidSubproperty
	// UnknownChild means the next segment is not a legal child.
	UnknownChild
)

func (k TargetKind) String() string {
	switch k {
	case ExactScalar:
		return "exact-scalar"
	case Descend:
		return "descend"
	case InvalidSubproperty:
		return "invalid-subproperty"
	case UnknownChild:
		return "unknown-child"
	default:
		return "unknown"
	}
}

// Target is the result of one resolution step (Resolve) or of a full walk
// (Walk). Consumed counts the suffix segments that were accepted.
type Target struct {
	Kind     TargetKind
	Scalar   *Scalar
	Next     Type
	Consumed int
}

// Resolve performs a single navigation step of t along suffix.
func Resolve(t Type, suffix proppath.Path) Target {
	switch tt := t.(type) {
	case *Scalar:
		if tt.Kind == Any {
			return Target{Kind: ExactScalar, Scalar: tt, Consumed: len(suffix)}
		}
		if len(suffix) == 0 {
			return Target{Kind: ExactScalar, Scalar: tt}
		}
		return Target{Kind: InvalidSubproperty, Scalar: tt}
	}

	if len(suffix) == 0 {
		return Target{Kind: Descend, Next: t}
	}
	head := suffix[0]

	switch tt := t.(type) {
	case *ListOf:
		if head.Kind == proppath.Index || head.Kind == proppath.Append {
			return Target{Kind: Descend, Next: tt.Elem, Consumed: 1}
		}
		return Target{Kind: UnknownChild}
	case *MapOf:
		if head.Kind == proppath.Append {
			return Target{Kind: UnknownChild}
		}
		n := 1
		if IsAtomic(tt.Value) {
			// Keys of maps with atomic values may contain dots.
			for n < len(suffix) && suffix[n].Kind == proppath.Key {
				n++
			}
		}
		return Target{Kind: Descend, Next: tt.Value, Consumed: n}
	case *Nested:
		if head.Kind != proppath.Key {
			return Target{Kind: UnknownChild}
		}
		if f, ok := tt.Field(head.Name); ok {
			return Target{Kind: Descend, Next: f.Type, Consumed: 1}
		}
		return Target{Kind: UnknownChild}
	}
	return Target{Kind: UnknownChild}
}

// Walk resolves suffix against t until the path is exhausted or navigation
// fails. The returned Consumed is the total number of accepted segments, and
// Next is the type reached at that point.
func Walk(t Type, suffix proppath.Path) Target {
	consumed := 0
	for {
		step := Resolve(t, suffix[consumed:])
		switch step.Kind {
		case Descend:
			if step.Consumed == 0 {
				return Target{Kind: Descend, Next: t, Consumed: consumed}
			}
			consumed += step.Consumed
			t = step.Next
		case ExactScalar:
			return Target{Kind: ExactScalar, Scalar: step.Scalar, Next: t, Consumed: consumed + step.Consumed}
		default:
			return Target{Kind: step.Kind, Scalar: step.Scalar, Next: t, Consumed: consumed}
		}
	}
}

// Field finds a field by relaxed name.
func (n *Nested) Field(name string) (Field, bool) {
	canonical := names.Canonical(name)
	for _, f := range n.Fields {
		if names.Canonical(f.Name) == canonical {
			return f, true
		}
	}
	return Field{}, false
}

// ValidLiteral reports whether value is a legal literal of s.
func ValidLiteral(s *Scalar, value string) bool {
	switch s.Kind {
	case Bool:
		return value == "true" || value == "false"
	case Int:
		return isInteger(value)
	case Enum:
		for _, v := range s.Values {
			if strings.EqualFold(v, value) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func isInteger(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Literals returns the finite set of legal literals of t, or nil when the set
// is open.
func Literals(t Type) []string {
	s, ok := t.(*Scalar)
	if !ok {
		return nil
	}
	switch s.Kind {
	case Bool:
		return []string{"true", "false"}
	case Enum:
		return s.Values
	}
	return nil
}

// Element is one item of a comma separated list value.
type Element struct {
	Text  string
	Start int
	End   int
}

// SplitList splits a comma separated value into trimmed elements with offsets
// relative to value. Empty elements are omitted.
func SplitList(value string) []Element {
	var out []Element
	start := 0
	for i := 0; i <= len(value); i++ {
		if i < len(value) && value[i] != ',' {
			continue
		}
		s, e := start, i
		for s < e && (value[s] == ' ' || value[s] == '\t') {
			s++
		}
		for e > s && (value[e-1] == ' ' || value[e-1] == '\t') {
			e--
		}
		if e > s {
			out = append(out, Element{Text: value[s:e], Start: s, End: e})
		}
		start = i + 1
	}
	return out
}
