package protocol

// Result types shared by the engine, the language server and the CLI.
// All offsets are byte offsets into the document text.

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Contains reports whether offset lies within the range, end inclusive.
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset <= r.End
}

// Severity of a diagnostic.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic codes.
const (
	CodeUnknownProperty    = "unknown-property"
	CodeInvalidSubproperty = "invalid-subproperty"
	CodeTypeMismatch       = "type-mismatch"
	CodeDeprecated         = "deprecated-property"
	CodeDuplicate          = "duplicate-property"
)

// Diagnostic is a problem found by reconciliation.
type Diagnostic struct {
	Range    Range    `json:"range"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Code     string   `json:"code"`
}

// CompletionProposal is an edit offered at a cursor position.
type CompletionProposal struct {
	ReplacementRange Range  `json:"replacementRange"`
	InsertText       string `json:"insertText"`
	DisplayLabel     string `json:"displayLabel"`
	SortKey          string `json:"sortKey"`
	// ResultingCursorOffset is the cursor offset after the proposal is applied.
	ResultingCursorOffset int `json:"resultingCursorOffset"`
	// PropertyID is the property the proposal was derived from, empty for literals.
	PropertyID string `json:"propertyId,omitempty"`
	Deprecated bool   `json:"deprecated,omitempty"`
}

// Apply replaces the proposal's range in text with its insert text and
// returns the new text together with the new cursor offset.
func (p CompletionProposal) Apply(text string) (string, int) {
	start := min(max(p.ReplacementRange.Start, 0), len(text))
	end := min(max(p.ReplacementRange.End, start), len(text))
	return text[:start] + p.InsertText + text[end:], p.ResultingCursorOffset
}

// HoverInfo is the rendered documentation of the property under the cursor.
type HoverInfo struct {
	Range      Range  `json:"range"`
	PropertyID string `json:"propertyId"`
	Markdown   string `json:"markdown"`
}
