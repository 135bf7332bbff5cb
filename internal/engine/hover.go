package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/woxQAQ/config-props-lsp/internal/document"
	"github.com/woxQAQ/config-props-lsp/internal/index"
	"github.com/woxQAQ/config-props-lsp/internal/types"
	"github.com/woxQAQ/config-props-lsp/pkg/protocol"
)

// Hover describes the property under offset. When the exact key is unknown
// but lies inside a map or object typed property, that property is described
// instead.
func (e *Engine) Hover(ctx context.Context, doc *document.Document, offset int) (*protocol.HoverInfo, bool) {
	if cancelled(ctx) {
		return nil, false
	}
	node, ok := doc.NodeAt(offset)
	if !ok || len(node.Path) == 0 {
		return nil, false
	}

	info := e.propertyFor(node)
	if info == nil {
		return nil, false
	}
	return &protocol.HoverInfo{
		Range:      protocol.Range{Start: node.Start, End: node.End},
		PropertyID: info.ID,
		Markdown:   renderMarkdown(info),
	}, true
}

func (e *Engine) propertyFor(node document.Node) *index.PropertyInfo {
	if node.Path.Keys() {
		if info, ok := e.idx.LookupRelaxed(node.Path.String()); ok {
			return info
		}
	}
	owner, n := e.idx.FindOwner(node.Path)
	if owner == nil {
		return nil
	}
	if n == len(node.Path) || types.IsObject(owner.Type) {
		return owner
	}
	return nil
}

func renderMarkdown(info *index.PropertyInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n\n", info.ID)
	if td := info.TypeDisplay(); td != "" {
		fmt.Fprintf(&b, "Type: `%s`\n\n", td)
	}
	if info.HasDefault {
		fmt.Fprintf(&b, "Default: `%s`\n\n", info.DefaultValue)
	}
	if info.Deprecated {
		b.WriteString("*Deprecated*")
		if r := info.Deprecation.Replacement; r != "" {
			fmt.Fprintf(&b, ": use `%s` instead", r)
		}
		if reason := info.Deprecation.Reason; reason != "" {
			fmt.Fprintf(&b, " (%s)", reason)
		}
		b.WriteString("\n\n")
	}
	if info.Description != "" {
		b.WriteString(info.Description)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
