// Package diagnose reports dependsOn references to labels that no scanned
// document defines.
package diagnose

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/phobologic/taskslabel/internal/index"
	"github.com/phobologic/taskslabel/internal/model"
	"github.com/phobologic/taskslabel/internal/parse"
	"github.com/phobologic/taskslabel/internal/scan"
)

// Source tags every diagnostic produced by this package.
const Source = "tasks-label"

var log = commonlog.GetLogger("taskslabel.diagnose")

// Sink receives diagnostics. Replace discards whatever was previously
// reported for doc.
type Sink interface {
	Replace(doc string, diags []model.Diagnostic)
	ClearAll()
}

// Check returns one diagnostic for every raw occurrence of each dependsOn
// value in text that has no definition in ix. Empty values are skipped.
// Each unresolved label is looked up once, so repeated references do not
// produce duplicate diagnostics.
func Check(text string, ix *index.Index) ([]model.Diagnostic, error) {
	tasks, err := parse.Tasks(text)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	var diags []model.Diagnostic
	reported := make(map[string]bool)
	for _, task := range tasks {
		for _, dep := range task.DependsOn {
			if dep.Text == "" || reported[dep.Text] || ix.IsDefined(dep.Text) {
				continue
			}
			reported[dep.Text] = true
			diags = append(diags, occurrences(text, dep.Text)...)
		}
	}
	return diags, nil
}

// occurrences scans the raw tokens of text for string literals equal to label.
func occurrences(text, label string) []model.Diagnostic {
	var out []model.Diagnostic
	for tok := range scan.All(text) {
		if tok.Kind != scan.String || tok.Value != label {
			continue
		}
		out = append(out, model.Diagnostic{
			Span:     model.Span{Start: tok.Offset, End: tok.End()},
			Severity: model.SeverityError,
			Message:  fmt.Sprintf("Task \"%s\" is not defined", label),
			Source:   Source,
		})
	}
	return out
}

// Publish checks doc and replaces its diagnostics in sink. When disabled,
// every diagnostic in sink is cleared instead.
func Publish(sink Sink, doc, text string, ix *index.Index, enabled bool) {
	if !enabled {
		sink.ClearAll()
		return
	}
	diags, err := Check(text, ix)
	if err != nil {
		log.Warningf("checking %s: %s", doc, err)
		diags = nil
	}
	sink.Replace(doc, diags)
}
