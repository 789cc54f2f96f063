// Package resolve finds the quoted string literal under a cursor.
package resolve

import (
	"errors"

	"github.com/phobologic/taskslabel/internal/document"
	"github.com/phobologic/taskslabel/internal/model"
	"github.com/phobologic/taskslabel/internal/scan"
)

// ErrNoQuotedLiteral is returned when no double-quoted literal on the
// cursor's line encloses the cursor.
var ErrNoQuotedLiteral = errors.New("no quoted literal at position")

// Literal is a resolved string literal. Span covers the quotes; Value is
// the decoded text between them.
type Literal struct {
	Value string
	Span  model.Span
}

// At resolves the literal enclosing offset in doc.
//
// It starts from the word at offset and grows the range one character at a
// time on each side that does not yet sit on a quote. The range never leaves
// the cursor's line, which bounds the search.
func At(doc *document.Document, offset int) (Literal, error) {
	text := doc.Text
	line := doc.LineSpan(doc.LineOf(offset))

	start, end := offset, offset
	if word, ok := doc.WordAt(offset); ok {
		start, end = word.Start, word.End
	}
	if start < line.Start || end > line.End {
		return Literal{}, ErrNoQuotedLiteral
	}

	quote := func(i int) bool { return i >= 0 && i < len(text) && text[i] == '"' }
	for !(end-start >= 2 && quote(start) && quote(end-1)) {
		if !quote(start) {
			start--
		}
		if !quote(end-1) || end-start < 2 {
			end++
		}
		if start < line.Start || end > line.End {
			return Literal{}, ErrNoQuotedLiteral
		}
	}

	sp := model.Span{Start: start, End: end}
	return Literal{Value: scan.Unquote(text[start:end]), Span: sp}, nil
}
