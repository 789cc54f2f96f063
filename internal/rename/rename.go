// Package rename renames a task label across its definition and every
// reference in one scope.
package rename

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/tliron/commonlog"

	"github.com/phobologic/taskslabel/internal/index"
	"github.com/phobologic/taskslabel/internal/model"
	"github.com/phobologic/taskslabel/internal/parse"
)

var log = commonlog.GetLogger("taskslabel.rename")

var (
	// ErrUnknownLabel is returned when the label is not in the index.
	ErrUnknownLabel = errors.New("unknown label")
	// ErrInvalidName is returned for a new name that cannot be used.
	ErrInvalidName = errors.New("invalid label name")
)

// Source is the scope a rename operates on.
type Source interface {
	Index() *index.Index
	SourceDocuments() []string
	ReadFile(path string) (string, error)
}

// Edit replaces the contents of one string literal. Span covers the text
// between the quotes.
type Edit struct {
	Doc     string
	Span    model.Span
	NewText string
}

// Plan is a computed rename. Edits are grouped by document in source
// document order and sorted by offset within a document.
type Plan struct {
	Label   string
	NewName string
	Edits   []Edit

	texts map[string]string
	docs  []string
}

// Prepare computes the edits renaming label to newName: its definition,
// its dependsOn references and preLaunchTask values naming it.
func Prepare(src Source, label, newName string) (*Plan, error) {
	if err := validate(newName); err != nil {
		return nil, err
	}
	ix := src.Index()
	entry, ok := ix.Lookup(label)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLabel, label)
	}
	if newName != label && ix.IsDefined(newName) {
		return nil, fmt.Errorf("%w: %q is already defined", ErrInvalidName, newName)
	}

	p := &Plan{Label: label, NewName: newName, texts: make(map[string]string)}
	replacement := escape(newName)

	spans := make(map[string][]model.Span)
	add := func(doc string, sp model.Span) {
		if !slices.Contains(spans[doc], sp) {
			spans[doc] = append(spans[doc], sp)
		}
	}
	if entry.Definition != nil {
		add(entry.Definition.Doc, entry.Definition.Span)
	}
	for _, ref := range entry.References {
		add(ref.Doc, ref.Span)
	}

	for _, doc := range src.SourceDocuments() {
		text, err := src.ReadFile(doc)
		if err != nil {
			log.Debugf("skipping %s: %s", doc, err)
			continue
		}
		tasks, err := parse.Tasks(text)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", doc, err)
		}
		for _, task := range tasks {
			if v := task.PreLaunchTask; v != nil && v.Text == label {
				add(doc, v.Span)
			}
		}

		if len(spans[doc]) == 0 {
			continue
		}
		p.texts[doc] = text
		p.docs = append(p.docs, doc)
		slices.SortFunc(spans[doc], func(a, b model.Span) int { return a.Start - b.Start })
		for _, sp := range spans[doc] {
			p.Edits = append(p.Edits, Edit{Doc: doc, Span: inner(text, sp), NewText: replacement})
		}
	}
	return p, nil
}

// Documents returns the documents the plan changes.
func (p *Plan) Documents() []string {
	return slices.Clone(p.docs)
}

// Text returns the text of doc the plan was computed from.
func (p *Plan) Text(doc string) string {
	return p.texts[doc]
}

// Result returns the text of doc after the plan's edits.
func (p *Plan) Result(doc string) string {
	text := p.texts[doc]
	var b strings.Builder
	last := 0
	for _, e := range p.Edits {
		if e.Doc != doc {
			continue
		}
		b.WriteString(text[last:e.Span.Start])
		b.WriteString(e.NewText)
		last = e.Span.End
	}
	b.WriteString(text[last:])
	return b.String()
}

// Diff renders the plan as a unified diff with paths relative to root.
func (p *Plan) Diff(root string) (string, error) {
	var out strings.Builder
	for _, doc := range p.docs {
		name := doc
		if rel, err := filepath.Rel(root, doc); err == nil {
			name = filepath.ToSlash(rel)
		}
		s, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(p.texts[doc]),
			B:        difflib.SplitLines(p.Result(doc)),
			FromFile: "a/" + name,
			ToFile:   "b/" + name,
			Context:  3,
		})
		if err != nil {
			return "", fmt.Errorf("diffing %s: %w", name, err)
		}
		out.WriteString(s)
	}
	return out.String(), nil
}

// Apply writes the renamed documents to disk.
func (p *Plan) Apply() error {
	for _, doc := range p.docs {
		mode := os.FileMode(0o644)
		if info, err := os.Stat(doc); err == nil {
			mode = info.Mode().Perm()
		}
		if err := os.WriteFile(doc, []byte(p.Result(doc)), mode); err != nil {
			return fmt.Errorf("writing %s: %w", doc, err)
		}
		log.Infof("renamed %q to %q in %s", p.Label, p.NewName, doc)
	}
	return nil
}

func validate(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: %q contains control characters", ErrInvalidName, name)
	}
	return nil
}

// escape encodes name for use inside a JSON string literal.
func escape(name string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(name)
}

// inner narrows the span of a string literal to the text between its quotes.
// An unterminated literal has no closing quote.
func inner(text string, sp model.Span) model.Span {
	out := model.Span{Start: sp.Start + 1, End: sp.End}
	if sp.Len() >= 2 && text[sp.End-1] == '"' {
		out.End--
	}
	return out
}
