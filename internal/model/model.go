// Package model defines core data structures for taskslabel.
package model

// Span is a half-open byte range [Start, End) within a document's text.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Contains reports whether offset lies inside the span or on its end boundary.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset <= s.End
}

// Location identifies a span inside a document. Doc is the document's
// absolute file path.
type Location struct {
	Doc  string
	Span Span
}

// LabelDefinition is one entry of a label index.
// Definition is nil when the label was only ever seen as a reference.
type LabelDefinition struct {
	Label      string
	Definition *Location
	References []Location
}

// Defined reports whether the label has a definition occurrence.
func (d *LabelDefinition) Defined() bool {
	return d.Definition != nil
}

// Clone returns a deep copy so callers can hold it across index rebuilds.
func (d *LabelDefinition) Clone() LabelDefinition {
	cp := LabelDefinition{Label: d.Label}
	if d.Definition != nil {
		def := *d.Definition
		cp.Definition = &def
	}
	if d.References != nil {
		cp.References = append([]Location(nil), d.References...)
	}
	return cp
}

// Severity of a diagnostic. Values match the LSP numbering.
type Severity int

const (
	SeverityError       Severity = 1
	SeverityWarning     Severity = 2
	SeverityInformation Severity = 3
	SeverityHint        Severity = 4
)

// Diagnostic is a problem reported against a span of a document.
type Diagnostic struct {
	Span     Span
	Severity Severity
	Message  string
	Source   string
}

// LensAnchor marks a label definition with the number of references to it.
type LensAnchor struct {
	Label    string
	Location Location
	Count    int
}

// DefinitionLink is the answer to a go-to-definition request: Origin is the
// quoted literal under the cursor, Target is the line declaring the label.
type DefinitionLink struct {
	Origin     Span
	TargetDoc  string
	TargetLine int
}

// Dependency is an edge of the task graph: the task labelled Source
// depends on every label in Targets.
type Dependency struct {
	Source  string
	Targets []string
	Doc     string
}

// Value is a string value found in a document. Span covers the literal
// including its quotes; Text is the decoded content.
type Value struct {
	Text string
	Span Span
}

// Task is one configuration object carrying task fields, as recovered by
// the tolerant tree parse. Absent fields are nil or empty.
type Task struct {
	Span          Span
	Label         *Value
	DependsOn     []Value
	PreLaunchTask *Value
}

// LabelInfo summarizes one label for reports.
type LabelInfo struct {
	Label      string
	File       string // definition document relative to the report root; empty when undefined
	Line       int    // 1-based definition line; 0 when undefined
	References int
	Rank       float64
}

// ReferenceInfo is one reference occurrence in a report.
type ReferenceInfo struct {
	Label string
	File  string
	Line  int
}

// Report is the tabular view of one label index.
type Report struct {
	Name         string
	Root         string
	Labels       []LabelInfo
	References   []ReferenceInfo
	Dependencies []Dependency
	Cycles       [][]string
}
