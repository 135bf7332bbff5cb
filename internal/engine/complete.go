package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/woxQAQ/config-props-lsp/internal/document"
	"github.com/woxQAQ/config-props-lsp/internal/index"
	"github.com/woxQAQ/config-props-lsp/internal/names"
	"github.com/woxQAQ/config-props-lsp/internal/proppath"
	"github.com/woxQAQ/config-props-lsp/internal/types"
	"github.com/woxQAQ/config-props-lsp/pkg/protocol"
)

type candidate struct {
	proposal protocol.CompletionProposal
	score    int
}

// Complete returns the proposals applicable at offset, best first.
func (e *Engine) Complete(ctx context.Context, doc *document.Document, offset int) []protocol.CompletionProposal {
	if cancelled(ctx) {
		return nil
	}
	pc, ok := doc.PathAt(offset)
	if !ok && doc.Syntax() == document.YAML && doc.Err() != nil {
		e.logger.Debug("Completing on malformed YAML", zap.Error(doc.Err()))
		pc, ok = recoverYAML(doc, offset).PathAt(offset)
	}
	if !ok {
		return nil
	}

	var cands []candidate
	if pc.IsKey {
		cands = e.keyCandidates(doc.Syntax(), pc, offset, false)
	} else {
		cands = e.valueCandidates(doc.Syntax(), pc, offset)
	}
	if cancelled(ctx) {
		return nil
	}
	return e.rank(cands)
}

// recoverYAML terminates the token under the cursor with ':' so that a bare
// word inside a mapping parses as a key.
func recoverYAML(doc *document.Document, offset int) *document.Document {
	text := doc.Text()
	end := offset
	for end < len(text) && !unicode.IsSpace(rune(text[end])) && text[end] != ':' {
		end++
	}
	return document.New(text[:end]+":"+text[end:], document.YAML)
}

func (e *Engine) rank(cands []candidate) []protocol.CompletionProposal {
	seen := make(map[string]bool, len(cands))
	uniq := cands[:0]
	for _, c := range cands {
		if seen[c.proposal.InsertText] {
			continue
		}
		seen[c.proposal.InsertText] = true
		uniq = append(uniq, c)
	}

	sort.SliceStable(uniq, func(i, j int) bool {
		a, b := uniq[i], uniq[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.proposal.Deprecated != b.proposal.Deprecated {
			return !a.proposal.Deprecated
		}
		return a.proposal.DisplayLabel < b.proposal.DisplayLabel
	})
	if e.maxResults > 0 && len(uniq) > e.maxResults {
		uniq = uniq[:e.maxResults]
	}

	out := make([]protocol.CompletionProposal, len(uniq))
	for i, c := range uniq {
		c.proposal.SortKey = fmt.Sprintf("%05d", i)
		out[i] = c.proposal
	}
	return out
}

// keyCandidates proposes keys below the committed path. With newline set the
// insertion starts a new, indented YAML line.
func (e *Engine) keyCandidates(syntax document.Syntax, pc document.Context, offset int, newline bool) []candidate {
	var cands []candidate
	r := protocol.Range{Start: pc.PartialStart, End: offset}
	lead := ""
	if newline {
		lead = "\n" + strings.Repeat(" ", pc.Indent)
	}

	// Proposals follow the spelling style of what has been typed so far.
	style := names.StyleOf(pc.Partial)

	if prefix, ok := keyNames(pc.Path); ok {
		for _, m := range e.idx.SearchPrefix(prefix, pc.Partial) {
			info := m.Info
			parts := proppath.SplitID(m.Remainder)
			for i, part := range parts {
				parts[i] = names.Spell(part, style)
			}
			insert := lead + insertion(syntax, parts, info.Type, info.DefaultValue, pc.Indent)
			cands = append(cands, candidate{
				score: m.Score,
				proposal: protocol.CompletionProposal{
					ReplacementRange:      r,
					InsertText:            insert,
					DisplayLabel:          displayLabel(info),
					ResultingCursorOffset: r.Start + len(insert),
					PropertyID:            info.ID,
					Deprecated:            info.Deprecated,
				},
			})
		}
	}

	// Children declared by the type of an enclosing property.
	owner, n := e.idx.FindOwner(pc.Path)
	if owner == nil {
		return cands
	}
	target := types.Walk(owner.Type, pc.Path[n:])
	if target.Kind != types.Descend {
		return cands
	}
	for _, child := range childKeys(target.Next) {
		score := index.Score(pc.Partial, child.name)
		if score == 0 && child.field {
			score = index.Score(names.Canonical(pc.Partial), child.name)
		}
		if score == 0 {
			continue
		}
		name := child.name
		if child.field {
			name = names.Spell(name, style)
		}
		insert := lead + insertion(syntax, []string{name}, child.typ, "", pc.Indent)
		label := child.name + " " + child.typ.String()
		if child.description != "" {
			label += " " + collapseSpace(child.description)
		}
		cands = append(cands, candidate{
			score: score,
			proposal: protocol.CompletionProposal{
				ReplacementRange:      r,
				InsertText:            insert,
				DisplayLabel:          label,
				ResultingCursorOffset: r.Start + len(insert),
				PropertyID:            owner.ID,
				Deprecated:            owner.Deprecated,
			},
		})
	}
	return cands
}

type childKey struct {
	name        string
	typ         types.Type
	description string
	// field marks a declared field name, which may be respelled.
	field bool
}

// childKeys lists the statically known children of an object type: the
// fields of a Nested type or the values of an Enum map key.
func childKeys(t types.Type) []childKey {
	switch tt := t.(type) {
	case *types.Nested:
		out := make([]childKey, len(tt.Fields))
		for i, f := range tt.Fields {
			out[i] = childKey{name: f.Name, typ: f.Type, description: f.Description, field: true}
		}
		return out
	case *types.MapOf:
		if k, ok := tt.Key.(*types.Scalar); ok && k.Kind == types.Enum {
			out := make([]childKey, len(k.Values))
			for i, v := range k.Values {
				out[i] = childKey{name: v, typ: tt.Value}
			}
			return out
		}
	}
	return nil
}

func (e *Engine) valueCandidates(syntax document.Syntax, pc document.Context, offset int) []candidate {
	owner, n := e.idx.FindOwner(pc.Path)
	if owner == nil {
		if syntax == document.YAML && strings.TrimSpace(pc.Partial) == "" {
			return e.keyCandidates(syntax, keyContext(pc, offset), offset, true)
		}
		return nil
	}

	target := types.Walk(owner.Type, pc.Path[n:])
	switch target.Kind {
	case types.ExactScalar:
		return literalCandidates(target.Scalar, pc.Partial, pc.PartialStart, offset)
	case types.Descend:
		switch next := target.Next.(type) {
		case *types.ListOf:
			if s, ok := next.Elem.(*types.Scalar); ok {
				// Comma separated list: complete the element under the cursor.
				partial, start := pc.Partial, pc.PartialStart
				if i := strings.LastIndexByte(partial, ','); i >= 0 {
					start += i + 1
					partial = partial[i+1:]
				}
				trimmed := strings.TrimLeft(partial, " \t")
				start += len(partial) - len(trimmed)
				return literalCandidates(s, trimmed, start, offset)
			}
		case *types.MapOf, *types.Nested:
			if syntax == document.YAML && strings.TrimSpace(pc.Partial) == "" {
				return e.keyCandidates(syntax, keyContext(pc, offset), offset, true)
			}
		}
	}
	return nil
}

// keyContext turns an empty YAML value position into the key position of a
// first child entry.
func keyContext(pc document.Context, offset int) document.Context {
	return document.Context{Path: pc.Path, IsKey: true, PartialStart: offset, Indent: pc.Indent}
}

func literalCandidates(s *types.Scalar, partial string, start, offset int) []candidate {
	var cands []candidate
	r := protocol.Range{Start: start, End: offset}
	// Literal sets are small and closed: filter by typed prefix, not fuzzily.
	prefix := strings.ToLower(partial)
	for _, lit := range types.Literals(s) {
		if !strings.HasPrefix(strings.ToLower(lit), prefix) {
			continue
		}
		score := max(index.Score(partial, lit), 1)
		cands = append(cands, candidate{
			score: score,
			proposal: protocol.CompletionProposal{
				ReplacementRange:      r,
				InsertText:            lit,
				DisplayLabel:          lit,
				ResultingCursorOffset: start + len(lit),
			},
		})
	}
	return cands
}

// insertion renders the text that completes a key made of parts, followed
// by whatever starts its value.
func insertion(syntax document.Syntax, parts []string, t types.Type, def string, indent int) string {
	if syntax == document.Properties {
		key := strings.Join(parts, ".")
		switch tt := t.(type) {
		case *types.Scalar:
			return key + "=" + def
		case *types.ListOf:
			if types.IsAtomic(tt.Elem) {
				return key + "=" + def
			}
		case *types.MapOf, *types.Nested:
			return key + "."
		}
		return key
	}

	var b strings.Builder
	for i, part := range parts {
		if i > 0 {
			b.WriteByte('\n')
			b.WriteString(strings.Repeat(" ", indent+2*i))
		}
		b.WriteString(part)
		b.WriteByte(':')
	}
	child := strings.Repeat(" ", indent+2*len(parts))
	switch t.(type) {
	case *types.Scalar:
		b.WriteByte(' ')
		b.WriteString(def)
	case *types.ListOf:
		b.WriteString("\n" + child + "- ")
	case *types.MapOf, *types.Nested:
		b.WriteString("\n" + child)
	}
	return b.String()
}

// displayLabel renders "id=default type description".
func displayLabel(info *index.PropertyInfo) string {
	label := info.ID
	if info.HasDefault {
		label += "=" + info.DefaultValue
	}
	if td := info.TypeDisplay(); td != "" {
		label += " " + td
	}
	if info.Description != "" {
		label += " " + collapseSpace(info.Description)
	}
	return label
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
