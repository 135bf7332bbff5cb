package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/woxQAQ/config-props-lsp/internal/document"
	"github.com/woxQAQ/config-props-lsp/pkg/protocol"
)

type summary struct {
	files    int
	errors   int
	warnings int
}

func (s *summary) add(sev protocol.Severity) {
	if sev == protocol.SeverityError {
		s.errors++
	} else {
		s.warnings++
	}
}

// printer renders diagnostics as
//
//	<path>:<line>:<col>: <severity> [<code>]: <message>
//	  <source line>
//	  ^~~~
type printer struct {
	w io.Writer

	errorColor   *color.Color
	warningColor *color.Color
	pathColor    *color.Color
	caretColor   *color.Color
}

func newPrinter(w io.Writer, colored bool) *printer {
	p := &printer{
		w:            w,
		errorColor:   color.New(color.FgRed, color.Bold),
		warningColor: color.New(color.FgYellow, color.Bold),
		pathColor:    color.New(color.Bold),
		caretColor:   color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.errorColor, p.warningColor, p.pathColor, p.caretColor} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) severity(sev protocol.Severity) string {
	if sev == protocol.SeverityError {
		return p.errorColor.Sprint(sev.String())
	}
	return p.warningColor.Sprint(sev.String())
}

func (p *printer) diagnostic(path string, doc *document.Document, d protocol.Diagnostic) {
	line := doc.LineOf(d.Range.Start)
	lineStart := doc.LineStart(line)
	text := doc.LineText(line)

	rel := min(max(d.Range.Start-lineStart, 0), len(text))
	relEnd := min(max(d.Range.End-lineStart, rel), len(text))
	col := utf8.RuneCountInString(text[:rel]) + 1

	loc := p.pathColor.Sprintf("%s:%d:%d:", path, line+1, col)
	fmt.Fprintf(p.w, "%s %s [%s]: %s\n", loc, p.severity(d.Severity), d.Code, d.Message)
	fmt.Fprintf(p.w, "  %s\n", text)

	width := max(runewidth.StringWidth(text[rel:relEnd]), 1)
	underline := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(p.w, "  %s%s\n", padding(text[:rel]), p.caretColor.Sprint(underline))
}

// padding returns blanks as wide as prefix on screen, keeping tabs so the
// caret lines up with the source line.
func padding(prefix string) string {
	var b strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		b.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func (p *printer) summary(s summary) {
	if s.errors == 0 && s.warnings == 0 {
		fmt.Fprintf(p.w, "%s checked, no problems found\n", plural(s.files, "file"))
		return
	}
	fmt.Fprintf(p.w, "%s, %s in %s\n",
		plural(s.errors, "error"),
		plural(s.warnings, "warning"),
		plural(s.files, "file"),
	)
}
