package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phobologic/taskslabel/internal/rename"
)

const sampleTasks = `{
  "version": "2.0.0",
  "tasks": [
    { "label": "build" },
    { "label": "lint" },
    { "label": "test", "dependsOn": ["build", "lint"] }
  ]
}
`

const sampleLaunch = `{
  "configurations": [
    { "name": "Debug", "preLaunchTask": "build" }
  ]
}
`

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readTestFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func createSampleRoot(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, ".vscode/tasks.json", sampleTasks)
	writeTestFile(t, dir, ".vscode/launch.json", sampleLaunch)
	return dir
}

func TestRunBasic(t *testing.T) {
	t.Parallel()
	dir := createSampleRoot(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	if !strings.HasPrefix(out, "name: "+filepath.Base(dir)+"\n") {
		t.Errorf("missing name: header:\n%s", out)
	}
	for _, want := range []string{
		"labels[3]{label,file,line,refs,rank}:",
		"references[2]{label,file,line}:",
		"  build,.vscode/tasks.json,6",
		"  lint,.vscode/tasks.json,6",
		"dependencies[1]{task,dependsOn,file}:",
		"  test,build lint,.vscode/tasks.json",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "cycles[") {
		t.Errorf("acyclic tasks should have no cycles table:\n%s", out)
	}
}

func TestRunMaxLabels(t *testing.T) {
	t.Parallel()
	dir := createSampleRoot(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"-n", "1", dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "labels[1]") {
		t.Errorf("expected 1 label, got:\n%s", out)
	}
}

func TestRunLabelFilter(t *testing.T) {
	t.Parallel()
	dir := createSampleRoot(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{dir, "--label", "lint"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	if !strings.Contains(out, "labels[2]") {
		t.Errorf("expected lint and its dependent test:\n%s", out)
	}
	if !strings.Contains(out, "  test,lint,.vscode/tasks.json") {
		t.Errorf("dependency edge should keep only the matched target:\n%s", out)
	}
	if strings.Contains(out, "\n  build,") {
		t.Errorf("build should be filtered out:\n%s", out)
	}
}

func TestRunFileFilter(t *testing.T) {
	t.Parallel()
	dir := createSampleRoot(t)
	writeTestFile(t, dir, "ci/tasks.json", `{"tasks":[{"label":"deploy","dependsOn":"build"}]}`)
	writeTestFile(t, dir, ".vscode/taskslabel.yaml", "includeFiles:\n  - ci/tasks.json\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"--file", "ci/", dir}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	if !strings.Contains(out, "  deploy,ci/tasks.json,1") {
		t.Errorf("deploy should be listed:\n%s", out)
	}
	if !strings.Contains(out, "labels[1]") {
		t.Errorf("only labels defined under ci/ should be listed:\n%s", out)
	}
}

func TestRunCycles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, ".vscode/tasks.json", `{
  "tasks": [
    { "label": "a", "dependsOn": "b" },
    { "label": "b", "dependsOn": ["a"] }
  ]
}
`)

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "cycles[1]{labels}:") {
		t.Errorf("missing cycles table:\n%s", stdout.String())
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"-V"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := stdout.String(); got != "taskslabel dev\n" {
		t.Errorf("version output: %q", got)
	}
}

func TestRunNoTaskFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var stdout, stderr bytes.Buffer
	if err := run([]string{dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "labels[0]") {
		t.Errorf("expected empty labels table:\n%s", stdout.String())
	}
}

func TestRunNotADirectory(t *testing.T) {
	t.Parallel()
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := run([]string{f}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected error for non-directory")
	}
}

func TestRunBadScope(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"-scope", "global", t.TempDir()}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "unknown index scope") {
		t.Errorf("got %v, want unknown index scope error", err)
	}
}

func TestRunMultipleRoots(t *testing.T) {
	t.Parallel()
	a := t.TempDir()
	b := t.TempDir()
	writeTestFile(t, a, ".vscode/tasks.json", `{"tasks":[{"label":"lint"}]}`)
	writeTestFile(t, b, ".vscode/tasks.json", `{"tasks":[{"label":"lint"},{"label":"fmt","dependsOn":"lint"}]}`)

	var stdout, stderr bytes.Buffer
	if err := run([]string{a, b}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := stdout.String()
	if strings.Count(out, "name: ") != 2 {
		t.Errorf("expected one report per root:\n%s", out)
	}
	if !strings.Contains(out, "labels[1]") || !strings.Contains(out, "labels[2]") {
		t.Errorf("roots should be indexed separately:\n%s", out)
	}

	stdout.Reset()
	if err := run([]string{"-scope", "workspace", a, b}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	out = stdout.String()
	if strings.Count(out, "name: ") != 1 || !strings.HasPrefix(out, "name: workspace\n") {
		t.Errorf("workspace scope should print one report:\n%s", out)
	}
	if !strings.Contains(out, "labels[2]") {
		t.Errorf("shared index should hold lint and fmt:\n%s", out)
	}
}

func TestRunCache(t *testing.T) {
	t.Parallel()
	dir := createSampleRoot(t)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	var stdout1, stderr1 bytes.Buffer
	err := run([]string{"--cache", cachePath, dir}, &stdout1, &stderr1)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Cache file should exist
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("cache not created: %v", err)
	}

	var stdout2, stderr2 bytes.Buffer
	err = run([]string{"--cache", cachePath, dir}, &stdout2, &stderr2)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if stdout1.String() != stdout2.String() {
		t.Errorf("cache mismatch:\nfirst:\n%s\nsecond:\n%s", stdout1.String(), stdout2.String())
	}
}

func TestRunCacheServedWhenFresh(t *testing.T) {
	t.Parallel()
	dir := createSampleRoot(t)
	cachePath := filepath.Join(t.TempDir(), "test.cache")
	writeTestFile(t, filepath.Dir(cachePath), filepath.Base(cachePath), "cached\n")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(cachePath, future, future); err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	if err := run([]string{"--cache", cachePath, dir}, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if stdout.String() != "cached\n" {
		t.Errorf("fresh cache should be printed as is, got:\n%s", stdout.String())
	}

	// Filters bypass the cache.
	stdout.Reset()
	if err := run([]string{"--label", "build", "--cache", cachePath, dir}, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "labels[") {
		t.Errorf("filter should work even when cache exists:\n%s", stdout.String())
	}
}

func TestRunCacheStale(t *testing.T) {
	t.Parallel()
	dir := createSampleRoot(t)
	cachePath := filepath.Join(t.TempDir(), "test.cache")
	writeTestFile(t, filepath.Dir(cachePath), filepath.Base(cachePath), "cached\n")
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(cachePath, past, past); err != nil {
		t.Fatal(err)
	}

	var stdout bytes.Buffer
	if err := run([]string{"--cache", cachePath, dir}, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "labels[3]") {
		t.Errorf("stale cache should be rebuilt:\n%s", stdout.String())
	}
	if got := readTestFile(t, filepath.Dir(cachePath), filepath.Base(cachePath)); got != stdout.String() {
		t.Errorf("cache = %q, want %q", got, stdout.String())
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, ".vscode/tasks.json", `{
  "tasks": [
    { "label": "build" },
    { "label": "test", "dependsOn": ["build", "missing"] }
  ]
}
`)

	var stdout, stderr bytes.Buffer
	err := run([]string{"check", dir}, &stdout, &stderr)
	if err == nil || err.Error() != "1 undefined task reference" {
		t.Errorf("got error %v, want 1 undefined task reference", err)
	}
	want := ".vscode/tasks.json:4:47: Task \"missing\" is not defined\n"
	if got := stdout.String(); got != want {
		t.Errorf("got = %q, want %q", got, want)
	}
}

func TestCheckClean(t *testing.T) {
	t.Parallel()
	dir := createSampleRoot(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"check", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("check: %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("expected no output, got %q", stdout.String())
	}
}

func TestCheckDisabled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, ".vscode/tasks.json", `{"tasks":[{"label":"a","dependsOn":"nope"}]}`)
	writeTestFile(t, dir, ".vscode/taskslabel.yaml", "diagnostics: false\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"check", dir}, &stdout, &stderr); err != nil {
		t.Errorf("check with diagnostics disabled: %v", err)
	}
}

func TestCheckMultipleRoots(t *testing.T) {
	t.Parallel()
	a := t.TempDir()
	b := t.TempDir()
	writeTestFile(t, a, ".vscode/tasks.json", `{"tasks":[{"label":"lint"}]}`)
	writeTestFile(t, b, ".vscode/tasks.json", `{"tasks":[{"label":"fmt","dependsOn":"lint"}]}`)

	var stdout, stderr bytes.Buffer
	err := run([]string{"check", a, b}, &stdout, &stderr)
	if err == nil {
		t.Fatal("lint is not defined in the second root")
	}
	want := filepath.Base(b) + "/.vscode/tasks.json:1:38: Task \"lint\" is not defined\n"
	if got := stdout.String(); got != want {
		t.Errorf("got = %q, want %q", got, want)
	}

	stdout.Reset()
	if err := run([]string{"check", "-scope", "workspace", a, b}, &stdout, &stderr); err != nil {
		t.Errorf("workspace scope should resolve lint across roots: %v\n%s", err, stdout.String())
	}
}

func TestRenamePreview(t *testing.T) {
	t.Parallel()
	dir := createSampleRoot(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"rename", "build", "compile", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("rename: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	for _, want := range []string{
		"--- a/.vscode/tasks.json",
		"+++ b/.vscode/tasks.json",
		`+    { "label": "compile" },`,
		`+    { "label": "test", "dependsOn": ["compile", "lint"] }`,
		"--- a/.vscode/launch.json",
		`+    { "name": "Debug", "preLaunchTask": "compile" }`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("diff missing %q:\n%s", want, out)
		}
	}
	if got := readTestFile(t, dir, ".vscode/tasks.json"); got != sampleTasks {
		t.Error("preview must not modify the files")
	}
}

func TestRenameApply(t *testing.T) {
	t.Parallel()
	dir := createSampleRoot(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"rename", dir, "build", "compile", "-apply"}, &stdout, &stderr); err == nil {
		t.Fatal("root must follow the labels")
	}

	stdout.Reset()
	stderr.Reset()
	if err := run([]string{"rename", "-apply", "build", "compile", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got, want := readTestFile(t, dir, ".vscode/tasks.json"), strings.ReplaceAll(sampleTasks, `"build"`, `"compile"`); got != want {
		t.Errorf("tasks.json = %q, want %q", got, want)
	}
	if got, want := readTestFile(t, dir, ".vscode/launch.json"), strings.ReplaceAll(sampleLaunch, `"build"`, `"compile"`); got != want {
		t.Errorf("launch.json = %q, want %q", got, want)
	}
	if !strings.Contains(stderr.String(), "3 edits in 2 files") {
		t.Errorf("summary: %q", stderr.String())
	}
}

func TestRenameErrors(t *testing.T) {
	t.Parallel()
	dir := createSampleRoot(t)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"unknown label", []string{"rename", "deploy", "ship", dir}, rename.ErrUnknownLabel},
		{"name taken", []string{"rename", "build", "lint", dir}, rename.ErrInvalidName},
		{"empty name", []string{"rename", "build", "", dir}, rename.ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var stdout, stderr bytes.Buffer
			err := run(tt.args, &stdout, &stderr)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}

	var stdout, stderr bytes.Buffer
	if err := run([]string{"rename", "build"}, &stdout, &stderr); err == nil {
		t.Error("expected usage error for a missing new label")
	}
}

func TestDisplayPath(t *testing.T) {
	t.Parallel()

	roots := []string{filepath.FromSlash("/w/a"), filepath.FromSlash("/w/b")}
	tests := []struct {
		roots []string
		path  string
		want  string
	}{
		{roots[:1], filepath.FromSlash("/w/a/.vscode/tasks.json"), ".vscode/tasks.json"},
		{roots, filepath.FromSlash("/w/b/.vscode/tasks.json"), "b/.vscode/tasks.json"},
		{roots[:1], filepath.FromSlash("/w/ab/tasks.json"), filepath.FromSlash("/w/ab/tasks.json")},
	}
	for _, tt := range tests {
		if got := displayPath(tt.roots, tt.path); got != tt.want {
			t.Errorf("displayPath(%v, %q) = %q, want %q", tt.roots, tt.path, got, tt.want)
		}
	}
}

func TestReorderArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"flags first", []string{"-n", "5", "."}, []string{"-n", "5", "."}},
		{"positional first", []string{".", "-n", "5"}, []string{"-n", "5", "."}},
		{"mixed", []string{"-label", "build", ".", "-n", "5"}, []string{"-label", "build", "-n", "5", "."}},
		{"two roots", []string{"a", "-scope", "workspace", "b"}, []string{"-scope", "workspace", "a", "b"}},
		{"no flags", []string{"."}, []string{"."}},
		{"no args", nil, nil},
		{"bool flag", []string{"-V"}, []string{"-V"}},
		{"double dash", []string{"-apply", "--", "-odd", "new"}, []string{"-apply", "--", "-odd", "new"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := reorderArgs(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("len: got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("index %d: got %q, want %q (full: %v)", i, got[i], tt.want[i], got)
					break
				}
			}
		})
	}
}
