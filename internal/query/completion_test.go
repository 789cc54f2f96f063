package query

import (
	"reflect"
	"strings"
	"testing"

	"github.com/phobologic/taskslabel/internal/document"
)

// cursorDoc returns a document for text with the "|" marker removed and
// the marker's offset.
func cursorDoc(t *testing.T, text string) (*document.Document, int) {
	t.Helper()
	i := strings.Index(text, "|")
	if i < 0 {
		t.Fatalf("no cursor marker in %q", text)
	}
	return document.New("tasks.json", text[:i]+text[i+1:]), i
}

func TestInCompletionContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"after dependsOn quote", `{"label": "a", "dependsOn": "|`, true},
		{"typing dependsOn value", `{"dependsOn": "bu|"}`, true},
		{"inline array first element", `{"dependsOn": ["|"]}`, true},
		{"inline array later element", `{"dependsOn": ["build", "te|`, true},
		{"inline array after close", `{"dependsOn": ["build"], "x": "|`, false},
		{"continuation ending with comma quote", "\"dependsOn\": [\n  \"build\",\"|", true},
		{"continuation ending with comma space quote", "\"dependsOn\": [\n  \"a\",\n  \"b\", \"|", true},
		{"element start below key", "\"dependsOn\": [\n    \"|", true},
		{"element start below continuations", "\"dependsOn\": [\n  \"a\",\n  \"b\",\n  \"|", true},
		{"broken by non-continuation", "\"dependsOn\": [\n  \"a\"\n  \"b\",\"|", false},
		{"comma on key line", "\"dependsOn\": [\"a\", |", true},
		{"preLaunchTask value", `{"name": "run", "preLaunchTask": "|`, true},
		{"preLaunchTask key above", "\"preLaunchTask\":\n    \"|", true},
		{"preLaunchTask two lines above", "\"preLaunchTask\":\n\n    \"|", false},
		{"label value", `{"label": "|`, false},
		{"elsewhere", "{\n  \"type\": \"shell\",\n  \"command\": \"|", false},
		{"start of document", `|{"dependsOn": []}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			doc, offset := cursorDoc(t, tt.text)
			if got := InCompletionContext(doc, offset); got != tt.want {
				t.Errorf("InCompletionContext(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsContinuation(t *testing.T) {
	t.Parallel()

	for line, want := range map[string]bool{
		`  "a",`:    true,
		`  "a","`:   true,
		`  "a", "`:  true,
		`  "a",'`:   true,
		`  "a", '`:  true,
		`  "a",  `:  true,
		`  "a"`:     false,
		`  "a",  "`: false,
		`[`:         false,
	} {
		if got := IsContinuation(line); got != want {
			t.Errorf("IsContinuation(%q) = %v, want %v", line, got, want)
		}
	}
}

func TestListCompletions(t *testing.T) {
	t.Parallel()

	sc := newStubScope([2]string{"tasks.json", exampleTasks})

	doc, offset := cursorDoc(t, `{"label":"x","dependsOn":["|"]}`)
	got := ListCompletions(sc, doc, offset)
	if !reflect.DeepEqual(got, []string{"build", "test"}) {
		t.Errorf("completions = %v, want defined labels", got)
	}

	doc, offset = cursorDoc(t, `{"label":"|"}`)
	if got := ListCompletions(sc, doc, offset); got != nil {
		t.Errorf("completions outside context = %v", got)
	}
}
