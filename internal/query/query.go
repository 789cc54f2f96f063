// Package query answers cursor requests against a label index: definition,
// references, completions and lens anchors.
package query

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/phobologic/taskslabel/internal/document"
	"github.com/phobologic/taskslabel/internal/index"
	"github.com/phobologic/taskslabel/internal/model"
	"github.com/phobologic/taskslabel/internal/resolve"
	"github.com/phobologic/taskslabel/internal/scan"
)

var (
	// ErrNotFound is returned when a query has no answer.
	ErrNotFound = errors.New("label not found")
	// ErrNoScope is returned for documents outside every project root.
	ErrNoScope = errors.New("document is outside every workspace folder")
)

// Scope is the index and document set a query runs against.
type Scope interface {
	Index() *index.Index
	SourceDocuments() []string
	IsSourceDocument(path string) bool
	ReadFile(path string) (string, error)
}

var labelLineRe = regexp.MustCompile(`"label"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// ResolveDefinition resolves the literal at offset in doc and finds the line
// declaring it by scanning the text of the scope's documents directly. Only
// cursors inside the scope's own task documents resolve.
func ResolveDefinition(sc Scope, doc *document.Document, offset int) (model.DefinitionLink, error) {
	if !sc.IsSourceDocument(doc.Path) {
		return model.DefinitionLink{}, ErrNotFound
	}
	lit, err := resolve.At(doc, offset)
	if err != nil {
		return model.DefinitionLink{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	for _, path := range sc.SourceDocuments() {
		text, err := sc.ReadFile(path)
		if err != nil {
			continue
		}
		if line, ok := findLabelLine(text, lit.Value); ok {
			return model.DefinitionLink{Origin: lit.Span, TargetDoc: path, TargetLine: line}, nil
		}
	}
	return model.DefinitionLink{}, ErrNotFound
}

// findLabelLine returns the first line of text with a "label" key whose
// value is label.
func findLabelLine(text, label string) (int, bool) {
	d := document.New("", text)
	for i := 0; i < d.LineCount(); i++ {
		for _, m := range labelLineRe.FindAllStringSubmatch(d.Line(i), -1) {
			if scan.Decode(m[1]) == label {
				return i, true
			}
		}
	}
	return 0, false
}

// ListReferences returns the reference occurrences of the label under the
// cursor. An unknown label has none.
func ListReferences(sc Scope, doc *document.Document, offset int) ([]model.Location, error) {
	lit, err := resolve.At(doc, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return sc.Index().References(lit.Value), nil
}

// ListLensAnchors returns an anchor for every label defined in path, with
// its reference count.
func ListLensAnchors(sc Scope, path string) []model.LensAnchor {
	var out []model.LensAnchor
	for _, e := range sc.Index().DefinedIn(path) {
		out = append(out, model.LensAnchor{
			Label:    e.Label,
			Location: *e.Definition,
			Count:    len(e.References),
		})
	}
	return out
}
