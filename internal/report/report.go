// Package report assembles a ranked summary of the labels of one scope:
// where each label is defined and referenced, the dependency graph between
// tasks and any dependency cycles.
package report

import (
	"path/filepath"

	"github.com/tliron/commonlog"

	"github.com/phobologic/taskslabel/internal/document"
	"github.com/phobologic/taskslabel/internal/graph"
	"github.com/phobologic/taskslabel/internal/index"
	"github.com/phobologic/taskslabel/internal/model"
)

var log = commonlog.GetLogger("taskslabel.report")

// Source is the scope a report is built from.
type Source interface {
	Root() string
	Index() *index.Index
	SourceDocuments() []string
	ReadFile(path string) (string, error)
}

// Build creates a report for src. Labels are ranked by how widely they are
// depended on. Documents that cannot be read are left out.
func Build(src Source, name string) *model.Report {
	root := src.Root()
	r := &model.Report{Name: name, Root: filepath.Base(root)}

	docs := make(map[string]*document.Document)
	var inputs []index.Document
	for _, path := range src.SourceDocuments() {
		text, err := src.ReadFile(path)
		if err != nil {
			log.Debugf("skipping %s: %s", path, err)
			continue
		}
		docs[path] = document.New(path, text)
		inputs = append(inputs, index.Document{Path: path, Text: text})
	}

	line := func(loc model.Location) int {
		doc, ok := docs[loc.Doc]
		if !ok {
			return 0
		}
		return doc.PositionAt(loc.Span.Start).Line + 1
	}

	for _, e := range src.Index().Entries() {
		info := model.LabelInfo{Label: e.Label, References: len(e.References)}
		if e.Definition != nil {
			info.File = relative(root, e.Definition.Doc)
			info.Line = line(*e.Definition)
		}
		r.Labels = append(r.Labels, info)

		for _, ref := range e.References {
			r.References = append(r.References, model.ReferenceInfo{
				Label: e.Label,
				File:  relative(root, ref.Doc),
				Line:  line(ref),
			})
		}
	}

	deps := graph.Build(inputs)
	for i := range deps {
		deps[i].Doc = relative(root, deps[i].Doc)
	}
	r.Dependencies = deps
	r.Cycles = graph.Cycles(deps)
	graph.Rank(r.Labels, deps)
	return r
}

func relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
