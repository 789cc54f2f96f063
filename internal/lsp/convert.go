package lsp

import (
	"fmt"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/phobologic/taskslabel/internal/document"
	"github.com/phobologic/taskslabel/internal/model"
)

func toPosition(p document.Position) protocol.Position {
	return protocol.Position{Line: protocol.UInteger(p.Line), Character: protocol.UInteger(p.Character)}
}

func fromPosition(p protocol.Position) document.Position {
	return document.Position{Line: int(p.Line), Character: int(p.Character)}
}

func toRange(doc *document.Document, sp model.Span) protocol.Range {
	start, end := doc.SpanRange(sp)
	return protocol.Range{Start: toPosition(start), End: toPosition(end)}
}

// lineStart is the zero-width range at the beginning of line.
func lineStart(line int) protocol.Range {
	p := protocol.Position{Line: protocol.UInteger(line)}
	return protocol.Range{Start: p, End: p}
}

// toDiagnostics never returns nil, so that an empty set clears the client's.
func toDiagnostics(doc *document.Document, diags []model.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		severity := protocol.DiagnosticSeverity(d.Severity)
		source := d.Source
		out = append(out, protocol.Diagnostic{
			Range:    toRange(doc, d.Span),
			Severity: &severity,
			Source:   &source,
			Message:  d.Message,
		})
	}
	return out
}

func toCompletionItems(labels []string) []protocol.CompletionItem {
	kind := protocol.CompletionItemKindMethod
	detail := "task label"
	items := make([]protocol.CompletionItem, 0, len(labels))
	for _, l := range labels {
		items = append(items, protocol.CompletionItem{Label: l, Kind: &kind, Detail: &detail})
	}
	return items
}

func lensTitle(count int) string {
	if count == 1 {
		return "1 reference"
	}
	return fmt.Sprintf("%d references", count)
}

// applyChanges returns text after the content changes of a didChange
// notification. Whole-document events replace the text; ranged events are
// applied in order.
func applyChanges(path, text string, changes []any) string {
	for _, c := range changes {
		switch c := c.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = c.Text
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				text = c.Text
				continue
			}
			doc := document.New(path, text)
			start := doc.OffsetAt(fromPosition(c.Range.Start))
			end := max(start, doc.OffsetAt(fromPosition(c.Range.End)))
			text = text[:start] + c.Text + text[end:]
		}
	}
	return text
}
