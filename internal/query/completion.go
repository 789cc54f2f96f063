package query

import (
	"regexp"
	"strings"

	"github.com/phobologic/taskslabel/internal/document"
)

var (
	dependsOnKeyRe = regexp.MustCompile(`"dependsOn"\s*:`)
	// Cursor inside the string value of a dependsOn key.
	dependsOnValueRe = regexp.MustCompile(`"dependsOn"\s*:\s*"[^"]*$`)
	// Cursor inside a string element of an array opened on the same line.
	dependsOnInlineRe = regexp.MustCompile(`"dependsOn"\s*:\s*\[(?:\s*"(?:[^"\\]|\\.)*"\s*,)*\s*"[^"]*$`)
	preLaunchValueRe  = regexp.MustCompile(`"preLaunchTask"\s*:\s*"[^"]*$`)
	preLaunchKeyRe    = regexp.MustCompile(`^\s*"preLaunchTask"\s*:\s*$`)
	// Cursor inside a string that starts the line.
	elementStartRe = regexp.MustCompile(`^\s*"[^"]*$`)
	continuationRe = regexp.MustCompile(`, ?["']?$`)
)

// ListCompletions returns the defined labels when the cursor sits where a
// task label is expected, and nil otherwise.
func ListCompletions(sc Scope, doc *document.Document, offset int) []string {
	if !InCompletionContext(doc, offset) {
		return nil
	}
	return sc.Index().Defined()
}

// InCompletionContext reports whether offset is inside a dependsOn value,
// a dependsOn array element or a preLaunchTask value. The check is textual
// so that it works on documents that do not parse.
func InCompletionContext(doc *document.Document, offset int) bool {
	line := doc.LineOf(offset)
	start := doc.LineSpan(line).Start
	if offset < start {
		return false
	}
	prefix := doc.Text[start:offset]

	switch {
	case dependsOnValueRe.MatchString(prefix), dependsOnInlineRe.MatchString(prefix):
		return true
	case preLaunchValueRe.MatchString(prefix):
		return true
	}

	// preLaunchTask holds a single string: the key can only be on the
	// line right above.
	if elementStartRe.MatchString(prefix) && line > 0 && preLaunchKeyRe.MatchString(doc.Line(line-1)) {
		return true
	}

	if !IsContinuation(prefix) && !elementStartRe.MatchString(prefix) {
		return false
	}
	if IsContinuation(prefix) && dependsOnKeyRe.MatchString(prefix) {
		return true
	}
	for i := line - 1; i >= 0; i-- {
		text := doc.Line(i)
		if dependsOnKeyRe.MatchString(text) {
			return true
		}
		if !IsContinuation(text) {
			return false
		}
	}
	return false
}

// IsContinuation reports whether line looks like a non-final element of a
// multi-line array: it ends with a comma, optionally followed by a space
// and an opening quote.
func IsContinuation(line string) bool {
	return continuationRe.MatchString(strings.TrimRight(line, " \t\r"))
}
