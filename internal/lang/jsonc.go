package lang

import (
	"github.com/smacker/go-tree-sitter/javascript"
)

// JSONC is the name of the JSON-with-comments language.
const JSONC = "jsonc"

// JSON with comments and trailing commas is a subset of JavaScript
// expression syntax once parenthesised, so the javascript grammar parses it
// with object, pair, array, string and comment nodes.
func init() {
	Languages[JSONC] = &Language{
		Name:       JSONC,
		Extensions: []string{".json", ".jsonc", ".code-workspace"},
		lang:       javascript.GetLanguage(),
		open:       "(",
		close:      "\n)",
	}
}
