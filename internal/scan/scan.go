// Package scan tokenizes JSON-with-comments text.
//
// The scanner never fails: malformed or incomplete input (a document in the
// middle of an edit) degrades to fewer or odder tokens, and every token
// stream ends with a single EOF token.
package scan

import (
	"iter"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Kind classifies a token.
type Kind int

const (
	EOF Kind = iota
	String
	OpenBracket
	CloseBracket
	Other
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "eof"
	case String:
		return "string"
	case OpenBracket:
		return "open-bracket"
	case CloseBracket:
		return "close-bracket"
	default:
		return "other"
	}
}

// Token is one lexical unit of the source text.
// Value holds the decoded contents of a String token and the raw text of
// every other kind. Offset and Length are byte positions in the source.
type Token struct {
	Kind   Kind
	Value  string
	Offset int
	Length int
}

// End returns the byte offset just past the token.
func (t Token) End() int {
	return t.Offset + t.Length
}

// Scanner produces tokens from a source text, front to back.
type Scanner struct {
	src string
	pos int
}

// New returns a scanner positioned at the start of text.
func New(text string) *Scanner {
	return &Scanner{src: text}
}

// All returns the token sequence of text, ending with EOF.
// The sequence can be ranged over any number of times.
func All(text string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		s := New(text)
		for {
			tok := s.Next()
			if !yield(tok) || tok.Kind == EOF {
				return
			}
		}
	}
}

// Next returns the next token. Once the input is exhausted it keeps
// returning EOF.
func (s *Scanner) Next() Token {
	s.skipTrivia()
	if s.pos >= len(s.src) {
		return Token{Kind: EOF, Offset: len(s.src)}
	}

	start := s.pos
	switch c := s.src[s.pos]; c {
	case '"':
		return s.scanString()
	case '[':
		s.pos++
		return Token{Kind: OpenBracket, Value: "[", Offset: start, Length: 1}
	case ']':
		s.pos++
		return Token{Kind: CloseBracket, Value: "]", Offset: start, Length: 1}
	case '{', '}', ':', ',', '/':
		s.pos++
		return Token{Kind: Other, Value: string(c), Offset: start, Length: 1}
	}

	for s.pos < len(s.src) && !isDelimiter(s.src[s.pos]) {
		s.pos++
	}
	return Token{Kind: Other, Value: s.src[start:s.pos], Offset: start, Length: s.pos - start}
}

func (s *Scanner) skipTrivia() {
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case isSpace(c):
			s.pos++
		case c == '/' && s.peek(1) == '/':
			end := strings.IndexByte(s.src[s.pos:], '\n')
			if end < 0 {
				s.pos = len(s.src)
				return
			}
			s.pos += end + 1
		case c == '/' && s.peek(1) == '*':
			end := strings.Index(s.src[s.pos+2:], "*/")
			if end < 0 {
				s.pos = len(s.src)
				return
			}
			s.pos += 2 + end + 2
		default:
			return
		}
	}
}

func (s *Scanner) peek(n int) byte {
	if s.pos+n < len(s.src) {
		return s.src[s.pos+n]
	}
	return 0
}

// scanString consumes a string literal. An unterminated literal stops at the
// end of its line.
func (s *Scanner) scanString() Token {
	start := s.pos
	s.pos++ // opening quote
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			if s.pos > len(s.src) {
				s.pos = len(s.src)
			}
			continue
		case '"':
			s.pos++
			return Token{
				Kind:   String,
				Value:  Decode(s.src[start+1 : s.pos-1]),
				Offset: start,
				Length: s.pos - start,
			}
		case '\n', '\r':
			return Token{Kind: String, Value: Decode(s.src[start+1 : s.pos]), Offset: start, Length: s.pos - start}
		}
		s.pos++
	}
	return Token{Kind: String, Value: Decode(s.src[start+1:]), Offset: start, Length: s.pos - start}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDelimiter(c byte) bool {
	switch c {
	case '"', '[', ']', '{', '}', ':', ',', '/':
		return true
	}
	return isSpace(c)
}

// Unquote strips the surrounding double quotes of a literal, when present,
// and decodes its escapes.
func Unquote(literal string) string {
	if len(literal) >= 2 && literal[0] == '"' && literal[len(literal)-1] == '"' {
		return Decode(literal[1 : len(literal)-1])
	}
	return Decode(strings.TrimPrefix(literal, `"`))
}

// Decode interprets JSON escape sequences in the body of a string literal.
// Invalid escapes are kept verbatim.
func Decode(body string) string {
	if strings.IndexByte(body, '\\') < 0 {
		return body
	}

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch esc := body[i]; esc {
		case '"', '\\', '/':
			b.WriteByte(esc)
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'u':
			r, n := decodeUnicode(body[i+1:])
			if n == 0 {
				b.WriteString(`\u`)
				continue
			}
			b.WriteRune(r)
			i += n
		default:
			b.WriteByte('\\')
			b.WriteByte(esc)
		}
	}
	return b.String()
}

// decodeUnicode reads the hex digits following `\u` (and a low surrogate
// escape if the first one is a high surrogate). It returns the rune and the
// number of bytes consumed, or 0 if the escape is malformed.
func decodeUnicode(s string) (rune, int) {
	r, ok := hex4(s)
	if !ok {
		return 0, 0
	}
	if utf16.IsSurrogate(r) && len(s) >= 10 && s[4] == '\\' && s[5] == 'u' {
		if lo, ok := hex4(s[6:]); ok {
			if dec := utf16.DecodeRune(r, lo); dec != utf8.RuneError {
				return dec, 10
			}
		}
	}
	if utf16.IsSurrogate(r) {
		return utf8.RuneError, 4
	}
	return r, 4
}

func hex4(s string) (rune, bool) {
	if len(s) < 4 {
		return 0, false
	}
	v, err := strconv.ParseUint(s[:4], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(v), true
}
