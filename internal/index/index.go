// Package index builds and serves the label index: every task label known
// in a set of configuration documents, where it is defined, and where it is
// referenced from a dependsOn field.
package index

import (
	"github.com/phobologic/taskslabel/internal/model"
)

// Document is one source document fed to the builder.
type Document struct {
	Path string
	Text string
}

// Index is an immutable snapshot of label definitions and references.
// Accessors return copies, so results stay valid after the snapshot is
// replaced by a rebuild.
type Index struct {
	entries []model.LabelDefinition
	byName  map[string]int
}

// Empty returns an index with no labels.
func Empty() *Index {
	return &Index{byName: map[string]int{}}
}

// Len returns the number of labels in the index.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Lookup returns the entry for label. Labels match exactly and case-sensitively.
func (ix *Index) Lookup(label string) (model.LabelDefinition, bool) {
	i, ok := ix.byName[label]
	if !ok {
		return model.LabelDefinition{}, false
	}
	return ix.entries[i].Clone(), true
}

// IsDefined reports whether label has a definition occurrence.
func (ix *Index) IsDefined(label string) bool {
	i, ok := ix.byName[label]
	return ok && ix.entries[i].Defined()
}

// References returns the reference occurrences of label in scan order.
func (ix *Index) References(label string) []model.Location {
	i, ok := ix.byName[label]
	if !ok || len(ix.entries[i].References) == 0 {
		return nil
	}
	return append([]model.Location(nil), ix.entries[i].References...)
}

// Entries returns every entry in the order labels were first seen.
func (ix *Index) Entries() []model.LabelDefinition {
	out := make([]model.LabelDefinition, len(ix.entries))
	for i := range ix.entries {
		out[i] = ix.entries[i].Clone()
	}
	return out
}

// Labels returns every known label name, defined or not.
func (ix *Index) Labels() []string {
	out := make([]string, len(ix.entries))
	for i := range ix.entries {
		out[i] = ix.entries[i].Label
	}
	return out
}

// Defined returns the names of labels that have a definition.
func (ix *Index) Defined() []string {
	var out []string
	for i := range ix.entries {
		if ix.entries[i].Defined() {
			out = append(out, ix.entries[i].Label)
		}
	}
	return out
}

// DefinedIn returns the entries whose definition lies in doc.
func (ix *Index) DefinedIn(doc string) []model.LabelDefinition {
	var out []model.LabelDefinition
	for i := range ix.entries {
		e := &ix.entries[i]
		if e.Definition != nil && e.Definition.Doc == doc {
			out = append(out, e.Clone())
		}
	}
	return out
}

// Dangling returns the entries that are referenced but never defined.
func (ix *Index) Dangling() []model.LabelDefinition {
	var out []model.LabelDefinition
	for i := range ix.entries {
		e := &ix.entries[i]
		if !e.Defined() && len(e.References) > 0 {
			out = append(out, e.Clone())
		}
	}
	return out
}
