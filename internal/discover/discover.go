// Package discover resolves the task documents of a project root.
package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/taskslabel/internal/config"
	"github.com/phobologic/taskslabel/internal/lang"
)

// The two well-known documents, relative to a root.
var (
	TasksFile  = filepath.Join(".vscode", "tasks.json")
	LaunchFile = filepath.Join(".vscode", "launch.json")
)

var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	"venv":         {},
	".venv":        {},
	"dist":         {},
	".tox":         {},
}

// IsPattern reports whether an includeFiles entry uses glob syntax.
func IsPattern(entry string) bool {
	return strings.ContainsAny(entry, "*?[")
}

// Documents returns the source document set of root: tasks.json, then
// launch.json, then every includeFiles entry in order. Plain entries are
// joined to root whether or not they exist; missing files are the reader's
// concern. Pattern entries expand to the matching JSON documents under
// root, sorted by path. Duplicates keep their first position.
func Documents(root string, settings config.Settings) []string {
	paths := []string{filepath.Join(root, TasksFile), filepath.Join(root, LaunchFile)}
	seen := map[string]struct{}{paths[0]: {}, paths[1]: {}}

	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}

	for _, entry := range settings.IncludeFiles {
		if entry == "" {
			continue
		}
		if !IsPattern(entry) {
			add(filepath.Join(root, filepath.FromSlash(entry)))
			continue
		}
		for _, rel := range Matches(root, entry) {
			add(filepath.Join(root, rel))
		}
	}
	return paths
}

// IsSourceDocument reports whether path belongs to the document set of root.
func IsSourceDocument(root string, settings config.Settings, path string) bool {
	path = filepath.Clean(path)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	if rel == TasksFile || rel == LaunchFile {
		return true
	}
	for _, entry := range settings.IncludeFiles {
		if entry == "" {
			continue
		}
		if !IsPattern(entry) {
			if filepath.Join(root, filepath.FromSlash(entry)) == path {
				return true
			}
			continue
		}
		if ignore.CompileIgnoreLines(entry).MatchesPath(filepath.ToSlash(rel)) {
			return true
		}
	}
	return false
}

// Matches walks root and returns the root-relative paths of JSON documents
// matching pattern, with gitignore pattern semantics. Files that git would
// ignore are left out.
func Matches(root, pattern string) []string {
	gi := ignore.CompileIgnoreLines(pattern)
	gitFiles := gitLsFiles(root)
	var excluded *ignore.GitIgnore
	if gitFiles == nil {
		excluded = loadGitignore(root)
	}

	var results []string

	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if _, skip := skipDirs[name]; skip {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		if lang.ForExtension(filepath.Ext(name)) == "" {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		slash := filepath.ToSlash(rel)

		if !gi.MatchesPath(slash) {
			return nil
		}
		if gitFiles != nil {
			if _, ok := gitFiles[slash]; !ok {
				return nil
			}
		} else if excluded != nil && excluded.MatchesPath(slash) {
			return nil
		}

		results = append(results, rel)
		return nil
	})

	sort.Strings(results)
	return slices.Compact(results)
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
