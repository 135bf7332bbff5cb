package engine

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/woxQAQ/config-props-lsp/internal/document"
	"github.com/woxQAQ/config-props-lsp/internal/names"
	"github.com/woxQAQ/config-props-lsp/internal/proppath"
	"github.com/woxQAQ/config-props-lsp/internal/types"
	"github.com/woxQAQ/config-props-lsp/pkg/protocol"
)

const (
	msgUnknownProperty    = "unknown property"
	msgInvalidSubproperty = "Subproperties are invalid"
)

// Reconcile validates every assignment in doc. The result is sorted by range
// and contains no two diagnostics with the same range and code. A YAML
// document that does not parse yields no diagnostics.
func (e *Engine) Reconcile(ctx context.Context, doc *document.Document) []protocol.Diagnostic {
	if cancelled(ctx) {
		return nil
	}
	if err := doc.Err(); err != nil {
		e.logger.Debug("Skipping reconcile of malformed document", zap.Error(err))
		return nil
	}

	var diags []protocol.Diagnostic
	seen := make(map[string]bool)
	for i, a := range doc.Assignments() {
		if i%64 == 0 && cancelled(ctx) {
			return nil
		}
		if len(a.Path) == 0 {
			continue
		}
		diags = append(diags, e.checkAssignment(doc, a)...)

		if doc.Syntax() == document.Properties {
			key := names.Canonical(a.Path.String())
			if seen[key] {
				diags = append(diags, protocol.Diagnostic{
					Range:    protocol.Range{Start: a.KeyStart, End: a.KeyEnd},
					Severity: protocol.SeverityWarning,
					Message:  fmt.Sprintf("Duplicate property '%s'", a.Path),
					Code:     protocol.CodeDuplicate,
				})
			}
			seen[key] = true
		}
	}
	if cancelled(ctx) {
		return nil
	}
	return normalize(diags)
}

func (e *Engine) checkAssignment(doc *document.Document, a document.Assignment) []protocol.Diagnostic {
	owner, n := e.idx.FindOwner(a.Path)
	if owner == nil {
		return []protocol.Diagnostic{{
			Range:    e.unknownRange(doc, a),
			Severity: protocol.SeverityWarning,
			Message:  msgUnknownProperty,
			Code:     protocol.CodeUnknownProperty,
		}}
	}

	var diags []protocol.Diagnostic
	if owner.Deprecated {
		msg := fmt.Sprintf("Property '%s' is deprecated", owner.ID)
		if r := owner.Deprecation.Replacement; r != "" {
			msg += fmt.Sprintf(": use '%s' instead", r)
		}
		r := protocol.Range{Start: a.KeyStart, End: a.KeyEnd}
		if doc.Syntax() == document.YAML {
			// Every entry below a deprecated map shares the warning on its key.
			r = segmentRange(doc, a, n-1, false)
		}
		diags = append(diags, protocol.Diagnostic{
			Range:    r,
			Severity: protocol.SeverityWarning,
			Message:  msg,
			Code:     protocol.CodeDeprecated,
		})
	}

	target := types.Walk(owner.Type, a.Path[n:])
	switch target.Kind {
	case types.InvalidSubproperty:
		diags = append(diags, protocol.Diagnostic{
			Range:    segmentRange(doc, a, n+target.Consumed, true),
			Severity: protocol.SeverityError,
			Message:  msgInvalidSubproperty,
			Code:     protocol.CodeInvalidSubproperty,
		})
	case types.UnknownChild:
		diags = append(diags, protocol.Diagnostic{
			Range:    segmentRange(doc, a, n+target.Consumed, false),
			Severity: protocol.SeverityWarning,
			Message:  msgUnknownProperty,
			Code:     protocol.CodeUnknownProperty,
		})
	case types.ExactScalar:
		if a.HasValue && !types.ValidLiteral(target.Scalar, a.Value) {
			diags = append(diags, mismatch(a.Value, target.Scalar, a.ValueStart, a.ValueEnd))
		}
	case types.Descend:
		diags = append(diags, listElementDiagnostics(doc, a, target.Next)...)
	}
	return diags
}

func mismatch(value string, s *types.Scalar, start, end int) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    protocol.Range{Start: start, End: end},
		Severity: protocol.SeverityError,
		Message:  fmt.Sprintf("Value '%s' is not a valid %s", value, s.Kind.Title()),
		Code:     protocol.CodeTypeMismatch,
	}
}

// listElementDiagnostics validates a comma separated value assigned to a
// list of scalars, one element at a time.
func listElementDiagnostics(doc *document.Document, a document.Assignment, t types.Type) []protocol.Diagnostic {
	list, ok := t.(*types.ListOf)
	if !ok || !a.HasValue {
		return nil
	}
	elem, ok := list.Elem.(*types.Scalar)
	if !ok {
		return nil
	}
	// Offsets are only meaningful when the token is the value verbatim.
	if doc.Text()[a.ValueStart:a.ValueEnd] != a.Value {
		return nil
	}
	var diags []protocol.Diagnostic
	for _, el := range types.SplitList(a.Value) {
		if !types.ValidLiteral(elem, el.Text) {
			diags = append(diags, mismatch(el.Text, elem, a.ValueStart+el.Start, a.ValueStart+el.End))
		}
	}
	return diags
}

// unknownRange covers the part of the key that no known id starts with.
func (e *Engine) unknownRange(doc *document.Document, a document.Assignment) protocol.Range {
	whole := protocol.Range{Start: a.KeyStart, End: a.KeyEnd}
	if doc.Syntax() == document.Properties {
		key := doc.Text()[a.KeyStart:a.KeyEnd]
		known := e.idx.LongestKnownPrefix(key)
		if known >= len(key) {
			return whole
		}
		return protocol.Range{Start: a.KeyStart + known, End: a.KeyEnd}
	}

	// YAML keys span several tokens: flag the first segment no id lies under.
	keys, ok := keyNames(a.Path)
	if !ok {
		return whole
	}
	for k := range keys {
		if !e.idx.HasPrefix(keys[:k+1]) {
			return segmentRange(doc, a, k, false)
		}
	}
	return whole
}

// segmentRange covers path segment k. When k lies in the assignment's own key
// token the range runs to the end of that token; withDot extends it over the
// separating '.'. A YAML sequence item after the key token is flagged on its
// value.
func segmentRange(doc *document.Document, a document.Assignment, k int, withDot bool) protocol.Range {
	if k < 0 || k >= len(a.Path) {
		return protocol.Range{Start: a.KeyStart, End: a.KeyEnd}
	}
	seg := a.Path[k]
	if seg.Kind != proppath.Key && seg.Start >= a.KeyEnd {
		if a.ValueEnd > a.ValueStart {
			return protocol.Range{Start: a.ValueStart, End: a.ValueEnd}
		}
		return protocol.Range{Start: a.KeyStart, End: a.KeyEnd}
	}
	start, end := seg.Start, seg.End
	if seg.Start >= a.KeyStart {
		end = a.KeyEnd
		if withDot && seg.Kind == proppath.Key && seg.Start > a.KeyStart && doc.Text()[seg.Start-1] == '.' {
			start--
		}
	}
	return protocol.Range{Start: start, End: end}
}

func normalize(diags []protocol.Diagnostic) []protocol.Diagnostic {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i].Range, diags[j].Range
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return diags[i].Code < diags[j].Code
	})
	out := diags[:0]
	for _, d := range diags {
		if last := len(out) - 1; last >= 0 && d.Range == out[last].Range && d.Code == out[last].Code {
			continue
		}
		out = append(out, d)
	}
	return out
}
