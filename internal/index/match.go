package index

import (
	"unicode"
	"unicode/utf8"
)

// Bonus weights used by Score.
const (
	matchBonus       = 1
	consecutiveBonus = 4
	firstCharBonus   = 6
	wordStartBonus   = 3
)

// Score returns a positive value when every character of pattern occurs, in
// order and ignoring case, in data, and 0 otherwise. Denser and more
// left-anchored matches score higher. The empty pattern matches everything
// with score 1.
func Score(pattern, data string) int {
	if pattern == "" {
		return 1
	}
	bonus := 0
	prev := -2
	pi := 0
	pr, psize := utf8.DecodeRuneInString(pattern)
	pr = unicode.ToLower(pr)
	var last rune
	di := 0
	for _, dr := range data {
		if pi < len(pattern) && unicode.ToLower(dr) == pr {
			b := matchBonus
			if di == prev+1 {
				b += consecutiveBonus
			}
			if di == 0 {
				b += firstCharBonus
			} else if isWordSeparator(last) {
				b += wordStartBonus
			}
			bonus += b
			prev = di
			pi += psize
			if pi < len(pattern) {
				pr, psize = utf8.DecodeRuneInString(pattern[pi:])
				pr = unicode.ToLower(pr)
			}
		}
		last = dr
		di++
	}
	if pi < len(pattern) {
		return 0
	}
	// Normalise by candidate length so short, dense candidates rank first.
	return 1 + bonus*1000/(di+1)
}

// Matches reports whether pattern is a case-insensitive subsequence of data.
func Matches(pattern, data string) bool {
	return Score(pattern, data) > 0
}

func isWordSeparator(r rune) bool {
	return r == '.' || r == '-' || r == '_' || r == '[' || r == ' '
}
