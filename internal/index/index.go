package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/woxQAQ/config-props-lsp/internal/names"
	"github.com/woxQAQ/config-props-lsp/internal/proppath"
)

// DuplicatePropertyError occurs when two descriptors share an id.
type DuplicatePropertyError struct {
	ID string
}

func (e *DuplicatePropertyError) Error() string {
	return fmt.Sprintf("property '%s' is declared more than once", e.ID)
}

// Match is a search hit.
type Match struct {
	Info  *PropertyInfo
	Score int
	// Remainder is the part of the id after the queried prefix.
	Remainder string
}

// Index is an immutable snapshot of property metadata. It is safe for
// concurrent use once built.
type Index struct {
	props       []*PropertyInfo // sorted by ID
	ids         []string
	byID        map[string]*PropertyInfo
	byCanonical map[string]*PropertyInfo
	canonical   []canonicalEntry // sorted by key
}

type canonicalEntry struct {
	key  string
	info *PropertyInfo
}

// New builds an index. Ids must be unique.
func New(props []*PropertyInfo) (*Index, error) {
	idx := &Index{
		props:       make([]*PropertyInfo, 0, len(props)),
		byID:        make(map[string]*PropertyInfo, len(props)),
		byCanonical: make(map[string]*PropertyInfo, len(props)),
	}
	for _, p := range props {
		if _, exists := idx.byID[p.ID]; exists {
			return nil, &DuplicatePropertyError{ID: p.ID}
		}
		idx.byID[p.ID] = p
		idx.props = append(idx.props, p)
	}

	sort.Slice(idx.props, func(i, j int) bool {
		return idx.props[i].ID < idx.props[j].ID
	})

	idx.ids = make([]string, len(idx.props))
	idx.canonical = make([]canonicalEntry, 0, len(idx.props))
	for i, p := range idx.props {
		idx.ids[i] = p.ID
		key := names.Canonical(p.ID)
		// First in id order wins when two spellings collide.
		if _, exists := idx.byCanonical[key]; !exists {
			idx.byCanonical[key] = p
			idx.canonical = append(idx.canonical, canonicalEntry{key: key, info: p})
		}
	}
	sort.Slice(idx.canonical, func(i, j int) bool {
		return idx.canonical[i].key < idx.canonical[j].key
	})

	return idx, nil
}

// MustNew is like New but panics on error. Intended for tests and fixtures.
func MustNew(props ...*PropertyInfo) *Index {
	idx, err := New(props)
	if err != nil {
		panic(err)
	}
	return idx
}

// Len returns the number of properties.
func (x *Index) Len() int {
	return len(x.props)
}

// All returns every property in id order. The slice must not be modified.
func (x *Index) All() []*PropertyInfo {
	return x.props
}

// Lookup finds a property by exact id.
func (x *Index) Lookup(id string) (*PropertyInfo, bool) {
	p, ok := x.byID[id]
	return p, ok
}

// LookupRelaxed finds a property by id, accepting alternate spellings.
func (x *Index) LookupRelaxed(id string) (*PropertyInfo, bool) {
	if p, ok := x.byID[id]; ok {
		return p, true
	}
	p, ok := x.byCanonical[names.Canonical(id)]
	return p, ok
}

// Search fuzzy-matches query against every id. Results are ordered by
// descending score, ties broken by id.
func (x *Index) Search(query string) []Match {
	return x.SearchPrefix(nil, query)
}

// SearchPrefix restricts the search to ids below the dotted prefix (relaxed),
// matching query against the remainder of each id.
func (x *Index) SearchPrefix(prefix []string, query string) []Match {
	var out []Match
	for _, p := range x.WithPrefix(prefix) {
		remainder := p.ID
		if len(prefix) > 0 {
			remainder = strings.Join(proppath.SplitID(p.ID)[len(prefix):], ".")
		}
		score := Score(query, remainder)
		if score == 0 {
			// "context_p" or "contextP" still reach "context-path".
			score = Score(names.Canonical(query), remainder)
		}
		if score > 0 {
			out = append(out, Match{Info: p, Score: score, Remainder: remainder})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Info.ID < out[j].Info.ID
	})
	return out
}

// WithPrefix returns the properties whose id starts with the given segments
// followed by a dot, compared in canonical form. A nil prefix returns all
// properties. Results are in id order.
func (x *Index) WithPrefix(prefix []string) []*PropertyInfo {
	if len(prefix) == 0 {
		return x.props
	}
	key := names.Canonical(strings.Join(prefix, ".")) + "."
	lo := sort.Search(len(x.canonical), func(i int) bool {
		return x.canonical[i].key >= key
	})
	var out []*PropertyInfo
	for i := lo; i < len(x.canonical) && strings.HasPrefix(x.canonical[i].key, key); i++ {
		out = append(out, x.canonical[i].info)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// HasPrefix reports whether some id lies below the dotted prefix.
func (x *Index) HasPrefix(prefix []string) bool {
	if len(prefix) == 0 {
		return len(x.props) > 0
	}
	key := names.Canonical(strings.Join(prefix, ".")) + "."
	i := sort.Search(len(x.canonical), func(i int) bool {
		return x.canonical[i].key >= key
	})
	return i < len(x.canonical) && strings.HasPrefix(x.canonical[i].key, key)
}

// LongestKnownPrefix returns the length of the longest prefix of key that is
// also a prefix of some property id.
func (x *Index) LongestKnownPrefix(key string) int {
	i := sort.SearchStrings(x.ids, key)
	best := 0
	// In sorted order the longest common prefix is shared with a neighbour.
	for _, j := range []int{i - 1, i} {
		if j >= 0 && j < len(x.ids) {
			if n := commonPrefixLen(key, x.ids[j]); n > best {
				best = n
			}
		}
	}
	return best
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// FindOwner finds the property owning path: the longest run of leading key
// segments whose dotted form names a property (relaxed). It returns the
// property and the number of segments its id covers.
func (x *Index) FindOwner(path proppath.Path) (*PropertyInfo, int) {
	keys := 0
	for keys < len(path) && path[keys].Kind == proppath.Key {
		keys++
	}
	parts := make([]string, keys)
	for i := 0; i < keys; i++ {
		parts[i] = path[i].Name
	}
	for n := keys; n > 0; n-- {
		if p, ok := x.LookupRelaxed(strings.Join(parts[:n], ".")); ok {
			return p, n
		}
	}
	return nil, 0
}
