// Package names implements relaxed matching of configuration key spellings.
//
// A key segment can be written in camelCase ("maxHttpHeaderSize"), kebab-case
// ("max-http-header-size") or snake_case ("max_http_header_size"). All three
// spellings share one canonical form: lower case words joined by hyphens.
// Two names are equivalent exactly when their canonical forms are equal, which
// makes the relation reflexive, symmetric and transitive by construction.
//
// Word boundaries are inserted before an upper-case letter that follows a
// lower-case letter or digit, and before the last upper-case letter of an
// upper-case run that is followed by a lower-case letter ("HTTPServer" ->
// "http-server"). '_' and '-' are both word separators; runs of separators
// collapse to one hyphen. Dots are left untouched so whole ids can be
// canonicalized segment by segment.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Canonical returns the canonical spelling of a name or dotted id.
func Canonical(name string) string {
	if name == "" {
		return ""
	}
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)
	pendingSep := false
	for i, r := range runes {
		if r == '_' || r == '-' {
			pendingSep = b.Len() > 0 && !endsWithDot(&b)
			continue
		}
		if r == '.' {
			pendingSep = false
			b.WriteRune('.')
			continue
		}
		if unicode.IsUpper(r) && i > 0 && !pendingSep && !endsWithDot(&b) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				pendingSep = true
			}
		}
		if pendingSep {
			b.WriteByte('-')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	// Casers keep state, so a fresh one is used per call.
	return cases.Fold().String(b.String())
}

func endsWithDot(b *strings.Builder) bool {
	s := b.String()
	return s != "" && s[len(s)-1] == '.'
}

// Equivalent reports whether a and b are spellings of the same name.
func Equivalent(a, b string) bool {
	return Canonical(a) == Canonical(b)
}

// HyphensToCamelCase converts "foo-bar-baz" to "fooBarBaz". Underscores are
// treated as hyphens. Leading separators are dropped.
func HyphensToCamelCase(name string) string {
	var b strings.Builder
	upper := false
	for _, r := range name {
		if r == '-' || r == '_' {
			upper = b.Len() > 0
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HyphensToUnderscores converts a canonical name into snake_case.
func HyphensToUnderscores(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// Style is the word joining convention of a spelling.
type Style int

const (
	Kebab Style = iota
	Camel
	Snake
)

// StyleOf guesses the convention name is written in. Names without an inner
// capital or an underscore count as kebab-case.
func StyleOf(name string) Style {
	if strings.ContainsRune(name, '_') {
		return Snake
	}
	for i, r := range name {
		if i > 0 && unicode.IsUpper(r) {
			return Camel
		}
	}
	return Kebab
}

// Spell writes name in the given style. Kebab keeps name as declared.
func Spell(name string, style Style) string {
	switch style {
	case Camel:
		return HyphensToCamelCase(Canonical(name))
	case Snake:
		return HyphensToUnderscores(Canonical(name))
	}
	return name
}
