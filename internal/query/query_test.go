package query

import (
	"errors"
	"io/fs"
	"reflect"
	"strings"
	"testing"

	"github.com/phobologic/taskslabel/internal/document"
	"github.com/phobologic/taskslabel/internal/index"
)

// stubScope serves a fixed set of documents in the given order.
type stubScope struct {
	order []string
	files map[string]string
	ix    *index.Index
}

func newStubScope(docs ...[2]string) *stubScope {
	sc := &stubScope{files: make(map[string]string)}
	var built []index.Document
	for _, d := range docs {
		sc.order = append(sc.order, d[0])
		sc.files[d[0]] = d[1]
		built = append(built, index.Document{Path: d[0], Text: d[1]})
	}
	sc.ix = index.Build(built)
	return sc
}

func (s *stubScope) Index() *index.Index { return s.ix }
func (s *stubScope) SourceDocuments() []string { return s.order }

func (s *stubScope) IsSourceDocument(path string) bool {
	_, ok := s.files[path]
	return ok
}

func (s *stubScope) ReadFile(path string) (string, error) {
	text, ok := s.files[path]
	if !ok {
		return "", fs.ErrNotExist
	}
	return text, nil
}

const exampleTasks = `{"tasks":[{"label":"build"},{"label":"test","dependsOn":["build","missing"]}]}`

func TestExampleDefinitionAndReferences(t *testing.T) {
	t.Parallel()

	sc := newStubScope([2]string{"/ws/.vscode/tasks.json", exampleTasks})
	doc := document.New("/ws/.vscode/tasks.json", exampleTasks)
	ref := strings.Index(exampleTasks, `["build"`) + 1
	cursor := ref + 3

	link, err := ResolveDefinition(sc, doc, cursor)
	if err != nil {
		t.Fatalf("ResolveDefinition: %v", err)
	}
	if link.TargetDoc != "/ws/.vscode/tasks.json" || link.TargetLine != 0 {
		t.Errorf("target = %s:%d", link.TargetDoc, link.TargetLine)
	}
	if link.Origin.Start != ref || link.Origin.End != ref+len(`"build"`) {
		t.Errorf("origin = %+v", link.Origin)
	}

	refs, err := ListReferences(sc, doc, cursor)
	if err != nil {
		t.Fatalf("ListReferences: %v", err)
	}
	if len(refs) != 1 || refs[0].Span.Start != ref {
		t.Errorf("references = %+v, want the resolved occurrence", refs)
	}
}

func TestResolveDefinitionAcrossDocuments(t *testing.T) {
	t.Parallel()

	tasks := "{\n  \"tasks\": [\n    {\n      \"label\": \"compile\"\n    }\n  ]\n}"
	launch := `{"configurations":[{"name":"run","preLaunchTask":"compile"}]}`
	sc := newStubScope(
		[2]string{"/ws/.vscode/tasks.json", tasks},
		[2]string{"/ws/.vscode/launch.json", launch},
		[2]string{"/ws/missing.json", ""},
	)
	delete(sc.files, "/ws/missing.json")

	doc := document.New("/ws/.vscode/launch.json", launch)
	link, err := ResolveDefinition(sc, doc, strings.Index(launch, "compile"))
	if err != nil {
		t.Fatalf("ResolveDefinition: %v", err)
	}
	if link.TargetDoc != "/ws/.vscode/tasks.json" || link.TargetLine != 3 {
		t.Errorf("target = %s:%d, want tasks.json:3", link.TargetDoc, link.TargetLine)
	}
}

func TestResolveDefinitionNotFound(t *testing.T) {
	t.Parallel()

	sc := newStubScope([2]string{"/ws/.vscode/tasks.json", exampleTasks})

	tests := []struct {
		name   string
		doc    *document.Document
		cursor int
	}{
		{"undefined label", document.New("/ws/.vscode/tasks.json", exampleTasks), strings.Index(exampleTasks, "missing")},
		{"not a task document", document.New("/ws/package.json", exampleTasks), strings.Index(exampleTasks, "uild")},
		{"no literal", document.New("/ws/.vscode/tasks.json", "{\n  build\n}"), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ResolveDefinition(sc, tt.doc, tt.cursor)
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestResolveDefinitionSingleLineDocument(t *testing.T) {
	t.Parallel()

	text := `{"tasks":[{"label":"a"},{"label":"b","dependsOn":"a"},{"label":"c"}]}`
	sc := newStubScope([2]string{"t.json", text})
	doc := document.New("t.json", text)

	link, err := ResolveDefinition(sc, doc, strings.LastIndex(text, `"c"`)+1)
	if err != nil {
		t.Fatalf("ResolveDefinition: %v", err)
	}
	if link.TargetLine != 0 {
		t.Errorf("line = %d", link.TargetLine)
	}
}

func TestListReferencesUnknownLabel(t *testing.T) {
	t.Parallel()

	sc := newStubScope([2]string{"t.json", exampleTasks})
	text := `{"dependsOn": "nothing"}`
	refs, err := ListReferences(sc, document.New("x.json", text), strings.Index(text, "nothing"))
	if err != nil {
		t.Fatalf("ListReferences: %v", err)
	}
	if len(refs) != 0 {
		t.Errorf("refs = %+v", refs)
	}
}

func TestMultiRootIsolation(t *testing.T) {
	t.Parallel()

	a := newStubScope([2]string{"/a/.vscode/tasks.json", `{"tasks":[{"label":"x","dependsOn":"lint"},{"label":"lint"}]}`})
	b := newStubScope([2]string{"/b/.vscode/tasks.json", "{\"tasks\":[\n{\"label\":\"lint\"}]}"})

	text := a.files["/a/.vscode/tasks.json"]
	doc := document.New("/a/.vscode/tasks.json", text)
	link, err := ResolveDefinition(a, doc, strings.Index(text, "lint"))
	if err != nil {
		t.Fatalf("ResolveDefinition: %v", err)
	}
	if link.TargetDoc != "/a/.vscode/tasks.json" {
		t.Errorf("resolved to %s, want folder a", link.TargetDoc)
	}
	if _, err := ResolveDefinition(b, doc, strings.Index(text, "lint")); !errors.Is(err, ErrNotFound) {
		t.Errorf("folder b answered for a document of folder a: %v", err)
	}
}

func TestListLensAnchors(t *testing.T) {
	t.Parallel()

	sc := newStubScope(
		[2]string{"tasks.json", exampleTasks},
		[2]string{"more.json", `{"label":"deploy","dependsOn":["build","test"]}`},
	)
	anchors := ListLensAnchors(sc, "tasks.json")
	got := make(map[string]int)
	for _, a := range anchors {
		got[a.Label] = a.Count
		if a.Location.Doc != "tasks.json" {
			t.Errorf("anchor %s in %s", a.Label, a.Location.Doc)
		}
	}
	want := map[string]int{"build": 2, "test": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("anchors = %v, want %v", got, want)
	}
	if len(ListLensAnchors(sc, "other.json")) != 0 {
		t.Error("anchors for a document without definitions")
	}
}
