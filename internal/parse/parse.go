// Package parse recovers task objects from configuration documents using
// tree-sitter. The parse is error tolerant: fields inside a document that is
// being edited are still found when their own syntax is intact.
package parse

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/taskslabel/internal/lang"
	"github.com/phobologic/taskslabel/internal/model"
	"github.com/phobologic/taskslabel/internal/scan"
)

const (
	fieldLabel         = "label"
	fieldDependsOn     = "dependsOn"
	fieldPreLaunchTask = "preLaunchTask"
)

// Tasks parses text as JSONC and returns its task objects.
func Tasks(text string) ([]model.Task, error) {
	l := lang.Languages[lang.JSONC]
	if l == nil {
		return nil, fmt.Errorf("language %q not registered", lang.JSONC)
	}
	q, err := l.GetFieldQuery()
	if err != nil {
		return nil, err
	}
	return ExtractTasks(l, l.NewParser(), q, text), nil
}

// ExtractTasks parses text and returns one Task per object that carries a
// label, dependsOn or preLaunchTask field, in document order.
// The parser must be created for l.
func ExtractTasks(l *lang.Language, parser *sitter.Parser, query *sitter.Query, text string) []model.Task {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	source := l.Source(text)
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, tree.RootNode())

	var tasks []model.Task
	byObject := make(map[uint32]int)

	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		var pair, key, value *sitter.Node
		for _, c := range match.Captures {
			switch query.CaptureNameForId(c.Index) {
			case "field":
				pair = c.Node
			case "field.key":
				key = c.Node
			case "field.value":
				value = c.Node
			}
		}
		if pair == nil || key == nil || value == nil {
			continue
		}
		obj := pair.Parent()
		if obj == nil {
			continue
		}

		i, seen := byObject[obj.StartByte()]
		if !seen {
			tasks = append(tasks, model.Task{Span: spanOf(l, text, obj)})
			i = len(tasks) - 1
			byObject[obj.StartByte()] = i
		}
		task := &tasks[i]

		switch scan.Unquote(lang.NodeText(key, source)) {
		case fieldLabel:
			if v, ok := stringValue(l, text, source, value); ok {
				task.Label = &v
			}
		case fieldDependsOn:
			task.DependsOn = append(task.DependsOn, stringValues(l, text, source, value)...)
		case fieldPreLaunchTask:
			if v, ok := stringValue(l, text, source, value); ok {
				task.PreLaunchTask = &v
			}
		}
	}

	return tasks
}

func stringValue(l *lang.Language, text string, source []byte, node *sitter.Node) (model.Value, bool) {
	if node.Type() != "string" {
		return model.Value{}, false
	}
	return model.Value{
		Text: scan.Unquote(lang.NodeText(node, source)),
		Span: spanOf(l, text, node),
	}, true
}

// stringValues accepts the singular and the array form of a field.
func stringValues(l *lang.Language, text string, source []byte, node *sitter.Node) []model.Value {
	if v, ok := stringValue(l, text, source, node); ok {
		return []model.Value{v}
	}
	if node.Type() != "array" {
		return nil
	}
	var out []model.Value
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if v, ok := stringValue(l, text, source, node.NamedChild(i)); ok {
			out = append(out, v)
		}
	}
	return out
}

func spanOf(l *lang.Language, text string, node *sitter.Node) model.Span {
	return model.Span{
		Start: l.Offset(len(text), node.StartByte()),
		End:   l.Offset(len(text), node.EndByte()),
	}
}
