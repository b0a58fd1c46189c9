package candidate

import "fmt"

// Mode identifies the extraction strategy that produced a span.
type Mode string

// Extraction modes.
const (
	ModeStructured Mode = "structured"
	ModePrefix     Mode = "prefix"
	ModeWindow     Mode = "window"
	ModeStrip      Mode = "strip"
	ModeLookup     Mode = "lookup"
)

// Fields carries side-channel data captured by a structured pattern.
type Fields struct {
	Dosage       string
	Timing       string
	Instructions string
}

// IsZero reports whether no field was captured.
func (f Fields) IsZero() bool {
	return f.Dosage == "" && f.Timing == "" && f.Instructions == ""
}

// Span is a substring of input text hypothesized to name a medicine (transient value object).
type Span struct {
	text     string
	line     int
	position int
	mode     Mode
	fields   *Fields
}

// New creates a span without side-channel fields. line and position are
// zero-based; position -1 means unknown.
func New(text string, line, position int, mode Mode) Span {
	return Span{text: text, line: line, position: position, mode: mode}
}

// WithFields returns a copy of the span carrying structured fields.
func (s Span) WithFields(f Fields) Span {
	s.fields = &f
	return s
}

// Text returns the candidate text.
func (s Span) Text() string { return s.text }

// Line returns the zero-based source line.
func (s Span) Line() int { return s.line }

// Position returns the rune offset within the line, or -1.
func (s Span) Position() int { return s.position }

// Mode returns the producing strategy.
func (s Span) Mode() Mode { return s.mode }

// Fields returns the structured fields, or nil when the span came from a fallback mode.
func (s Span) Fields() *Fields { return s.fields }

func (s Span) String() string {
	return fmt.Sprintf("%s@%d:%d(%q)", s.mode, s.line, s.position, s.text)
}
