// Package document provides the text services the rest of taskslabel expects
// from an editor: line access, offset/position conversion and word ranges.
//
// Offsets are byte offsets into the text. Positions use zero-based lines and
// UTF-16 code unit columns, as editors and the language server protocol do.
package document

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/phobologic/taskslabel/internal/model"
)

// Position is a zero-based line and UTF-16 column.
type Position struct {
	Line      int
	Character int
}

// Document is the text of one file together with its line table.
type Document struct {
	Path  string
	Text  string
	lines []int // byte offset of each line start
}

// New returns a document for path with the given text.
func New(path, text string) *Document {
	return &Document{Path: path, Text: text, lines: lineStarts(text)}
}

func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// LineCount returns the number of lines; an empty text has one line.
func (d *Document) LineCount() int {
	return len(d.lines)
}

// LineSpan returns the byte span of line, excluding its line terminator.
func (d *Document) LineSpan(line int) model.Span {
	if line < 0 || line >= len(d.lines) {
		return model.Span{Start: len(d.Text), End: len(d.Text)}
	}
	start := d.lines[line]
	end := len(d.Text)
	if line+1 < len(d.lines) {
		end = d.lines[line+1] - 1
	}
	if end > start && d.Text[end-1] == '\r' {
		end--
	}
	return model.Span{Start: start, End: end}
}

// Line returns the text of line without its terminator.
func (d *Document) Line(line int) string {
	sp := d.LineSpan(line)
	return d.Text[sp.Start:sp.End]
}

// LineOf returns the line containing offset.
func (d *Document) LineOf(offset int) int {
	offset = d.clamp(offset)
	lo, hi := 0, len(d.lines)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if d.lines[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// PositionAt converts a byte offset to a position.
func (d *Document) PositionAt(offset int) Position {
	offset = d.clamp(offset)
	line := d.LineOf(offset)
	return Position{Line: line, Character: utf16Len(d.Text[d.lines[line]:offset])}
}

// OffsetAt converts a position to a byte offset. Columns past the end of the
// line clamp to the line end; lines past the end clamp to the text end.
func (d *Document) OffsetAt(pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= len(d.lines) {
		return len(d.Text)
	}
	sp := d.LineSpan(pos.Line)
	off := sp.Start
	units := 0
	for off < sp.End && units < pos.Character {
		r, w := utf8.DecodeRuneInString(d.Text[off:])
		units += utf16.RuneLen(r)
		if units > pos.Character {
			break
		}
		off += w
	}
	return off
}

// SpanRange converts a byte span to a start and end position.
func (d *Document) SpanRange(sp model.Span) (Position, Position) {
	return d.PositionAt(sp.Start), d.PositionAt(sp.End)
}

func (d *Document) clamp(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(d.Text) {
		return len(d.Text)
	}
	return offset
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// wordRe is the default word definition of common editors: runs of
// characters other than whitespace and punctuation, or a number.
var wordRe = regexp.MustCompile("(-?\\d*\\.\\d\\w*)|([^`~!@#$%^&*()\\-=+\\[{\\]}\\\\|;:'\",.<>/?\\s]+)")

// WordAt returns the span of the word touching offset, if any. A word
// touching the offset from the left counts, as in editors.
func (d *Document) WordAt(offset int) (model.Span, bool) {
	offset = d.clamp(offset)
	line := d.LineSpan(d.LineOf(offset))
	text := d.Text[line.Start:line.End]
	for _, m := range wordRe.FindAllStringIndex(text, -1) {
		sp := model.Span{Start: line.Start + m[0], End: line.Start + m[1]}
		if sp.Contains(offset) {
			return sp, true
		}
	}
	return model.Span{}, false
}

// PathFromURI converts a file:// URI to a cleaned local path. Inputs that are
// not URIs are returned cleaned.
func PathFromURI(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return filepath.Clean(uri)
	}
	u, err := url.Parse(uri)
	if err != nil {
		return filepath.Clean(strings.TrimPrefix(uri, "file://"))
	}
	return filepath.Clean(filepath.FromSlash(u.Path))
}

// URIFromPath converts a local path to a file:// URI.
func URIFromPath(path string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
