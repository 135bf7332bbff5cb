package lsp

import (
	"strings"

	"go.lsp.dev/protocol"

	"github.com/woxQAQ/config-props-lsp/internal/document"
	props "github.com/woxQAQ/config-props-lsp/pkg/protocol"
)

const diagnosticSource = "config-props"

func lspDiagnostics(doc *document.Document, diags []props.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		severity := protocol.DiagnosticSeverityWarning
		if d.Severity == props.SeverityError {
			severity = protocol.DiagnosticSeverityError
		}
		out = append(out, protocol.Diagnostic{
			Range:    lspRange(doc, d.Range),
			Severity: severity,
			Code:     d.Code,
			Source:   diagnosticSource,
			Message:  d.Message,
		})
	}
	return out
}

var snippetEscaper = strings.NewReplacer(`\`, `\\`, `$`, `\$`, `}`, `\}`)

func completionItem(doc *document.Document, p props.CompletionProposal) protocol.CompletionItem {
	item := protocol.CompletionItem{
		Label:            p.DisplayLabel,
		Kind:             protocol.CompletionItemKindValue,
		SortText:         p.SortKey,
		InsertTextFormat: protocol.InsertTextFormatPlainText,
		TextEdit: &protocol.TextEdit{
			Range:   lspRange(doc, p.ReplacementRange),
			NewText: p.InsertText,
		},
	}
	if p.PropertyID != "" {
		item.Label = p.PropertyID
		item.Detail = p.DisplayLabel
		item.Kind = protocol.CompletionItemKindProperty
	}

	// Ranking is ours: filter against what the user typed so relaxed and
	// fuzzy matches are not dropped by the client.
	start := min(max(p.ReplacementRange.Start, 0), doc.Len())
	end := min(max(p.ReplacementRange.End, start), doc.Len())
	item.FilterText = doc.Text()[start:end]
	if item.FilterText == "" {
		item.FilterText = item.Label
	}

	if rel := p.ResultingCursorOffset - p.ReplacementRange.Start; rel >= 0 && rel < len(p.InsertText) {
		item.InsertTextFormat = protocol.InsertTextFormatSnippet
		item.TextEdit.NewText = snippetEscaper.Replace(p.InsertText[:rel]) + "$0" + snippetEscaper.Replace(p.InsertText[rel:])
	}
	if p.Deprecated {
		item.Deprecated = true
		item.Tags = []protocol.CompletionItemTag{protocol.CompletionItemTagDeprecated}
	}
	return item
}

func lspHover(doc *document.Document, h *props.HoverInfo) *protocol.Hover {
	rng := lspRange(doc, h.Range)
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.Markdown,
			Value: h.Markdown,
		},
		Range: &rng,
	}
}
