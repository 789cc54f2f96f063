package index

import (
	"github.com/phobologic/taskslabel/internal/model"
	"github.com/phobologic/taskslabel/internal/scan"
)

const (
	labelKey     = "label"
	dependsOnKey = "dependsOn"
)

// reserved is the name of the record seeded at position zero of every scan.
// References that resolve to it (empty dependsOn values) are never recorded
// and the record itself is never published.
const reserved = ""

// Build scans docs in order and returns the resulting index.
//
// A "label" key defines the label named by the next string token; when a
// label is defined more than once the last definition scanned wins. A
// "dependsOn" key records a reference for its string value, or for every
// string up to the closing bracket of its array form.
func Build(docs []Document) *Index {
	b := newBuilder()
	for _, doc := range docs {
		b.scanDocument(doc)
	}
	return b.publish()
}

type builder struct {
	records []model.LabelDefinition
	byName  map[string]int
}

func newBuilder() *builder {
	b := &builder{byName: make(map[string]int)}
	b.record(reserved)
	return b
}

// record returns the position of the record for name, creating it if needed.
func (b *builder) record(name string) int {
	if i, ok := b.byName[name]; ok {
		return i
	}
	b.records = append(b.records, model.LabelDefinition{Label: name})
	b.byName[name] = len(b.records) - 1
	return len(b.records) - 1
}

func (b *builder) scanDocument(doc Document) {
	s := scan.New(doc.Text)
	for tok := s.Next(); tok.Kind != scan.EOF; tok = s.Next() {
		if tok.Kind != scan.String {
			continue
		}
		switch tok.Value {
		case labelKey:
			value, ok := nextString(s)
			if !ok {
				return
			}
			b.define(value, doc.Path)
		case dependsOnKey:
			if !b.scanDependsOn(s, doc.Path) {
				return
			}
		}
	}
}

func (b *builder) define(tok scan.Token, doc string) {
	if tok.Value == reserved {
		return
	}
	i := b.record(tok.Value)
	b.records[i].Definition = &model.Location{Doc: doc, Span: spanOf(tok)}
}

// scanDependsOn consumes the value of a dependsOn key. It reports false when
// the input ended.
func (b *builder) scanDependsOn(s *scan.Scanner, doc string) bool {
	tok := s.Next()
	if tok.Kind == scan.Other && tok.Value == ":" {
		tok = s.Next()
	}
	if tok.Kind == scan.String {
		b.reference(tok, doc)
		return true
	}
	for ; tok.Kind != scan.CloseBracket; tok = s.Next() {
		switch tok.Kind {
		case scan.EOF:
			return false
		case scan.String:
			b.reference(tok, doc)
		}
	}
	return true
}

func (b *builder) reference(tok scan.Token, doc string) {
	i := b.record(tok.Value)
	if i == 0 {
		return
	}
	b.records[i].References = append(b.records[i].References, model.Location{Doc: doc, Span: spanOf(tok)})
}

func (b *builder) publish() *Index {
	ix := &Index{
		entries: b.records[1:],
		byName:  make(map[string]int, len(b.records)-1),
	}
	for i := range ix.entries {
		ix.byName[ix.entries[i].Label] = i
	}
	return ix
}

// nextString skips forward to the next string token.
func nextString(s *scan.Scanner) (scan.Token, bool) {
	for {
		tok := s.Next()
		switch tok.Kind {
		case scan.String:
			return tok, true
		case scan.EOF:
			return tok, false
		}
	}
}

func spanOf(tok scan.Token) model.Span {
	return model.Span{Start: tok.Offset, End: tok.End()}
}
