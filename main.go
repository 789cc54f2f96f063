// taskslabel indexes the task labels of VS Code tasks.json and launch.json
// files and reports where each label is defined and depended on.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/kutil/util"

	"github.com/phobologic/taskslabel/internal/config"
	"github.com/phobologic/taskslabel/internal/discover"
	"github.com/phobologic/taskslabel/internal/ranking"
	"github.com/phobologic/taskslabel/internal/report"
	"github.com/phobologic/taskslabel/internal/toon"
	"github.com/phobologic/taskslabel/internal/workspace"
)

var version = "dev"

func main() {
	code := 0
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		code = 1
	}
	// flushes buffered log writers
	util.Exit(code)
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "init":
			return runInit(args[1:], stdout, stderr)
		case "check":
			return runCheck(args[1:], stdout, stderr)
		case "rename":
			return runRename(args[1:], stdout, stderr)
		case "lsp":
			return runLSP(args[1:], stderr)
		case "mcp":
			return runMCP(args[1:], stderr)
		}
	}

	fs := flag.NewFlagSet("taskslabel", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		maxLabels   int
		label       string
		file        string
		cachePath   string
		showVersion bool
	)
	scope := scopeFlag(fs)
	logging := logFlags(fs)

	fs.IntVar(&maxLabels, "n", 0, "maximum number of labels to include")
	fs.IntVar(&maxLabels, "max-labels", 0, "maximum number of labels to include")
	fs.StringVar(&label, "label", "", "only labels containing this text, with their direct dependencies and dependents")
	fs.StringVar(&file, "file", "", "only labels defined or referenced in files whose path contains this text")
	fs.StringVar(&cachePath, "cache", "", "cache file path")
	fs.BoolVar(&showVersion, "V", false, "show version and exit")
	fs.BoolVar(&showVersion, "version", false, "show version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: taskslabel [flags] [root...]
       taskslabel init|check|rename|lsp|mcp [flags]

Print the task labels of each root ranked by how widely they are depended on,
with their definitions, references, dependencies and dependency cycles.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}

	if showVersion {
		_, _ = fmt.Fprintf(stdout, "taskslabel %s\n", version)
		return nil
	}
	logging.configure()

	roots, err := resolveRoots(fs.Args())
	if err != nil {
		return err
	}

	// The cache holds the unfiltered report of a single root.
	useCache := cachePath != "" && len(roots) == 1 && label == "" && file == "" && maxLabels == 0
	if useCache && cacheIsFresh(cachePath, roots[0]) {
		data, err := os.ReadFile(cachePath)
		if err == nil {
			_, _ = stdout.Write(data)
			return nil
		}
	}

	ws, err := openWorkspace(context.Background(), roots, *scope)
	if err != nil {
		return err
	}

	var outputs []string
	for _, f := range ws.Folders() {
		sc, ok := ws.ScopeFor(f.Root)
		if !ok {
			continue
		}
		name := f.Name
		if ws.IndexScope() == config.ScopeWorkspace {
			name = "workspace"
		}
		r := report.Build(sc, name)
		if label != "" {
			r = ranking.FilterByLabel(r, label)
		}
		if file != "" {
			r = ranking.FilterByFile(r, file)
		}
		r = ranking.SelectLabels(r, maxLabels)
		outputs = append(outputs, toon.Encode(r))

		// one shared index covers every root
		if ws.IndexScope() == config.ScopeWorkspace {
			break
		}
	}

	for i, output := range outputs {
		if i > 0 {
			_, _ = fmt.Fprintln(stdout)
		}
		_, _ = fmt.Fprintln(stdout, output)
	}

	if useCache {
		if err := os.WriteFile(cachePath, []byte(outputs[0]+"\n"), 0o644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Warning: writing cache: %v\n", err)
		}
	}
	return nil
}

// resolveRoots turns positional arguments into absolute directories. No
// arguments means the current directory.
func resolveRoots(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	roots := make([]string, 0, len(args))
	for _, arg := range args {
		root, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolving root: %w", err)
		}
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("root path: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s: not a directory", root)
		}
		roots = append(roots, root)
	}
	return roots, nil
}

// openWorkspace indexes roots as the folders of one workspace.
func openWorkspace(ctx context.Context, roots []string, scope config.IndexScope) (*workspace.Workspace, error) {
	ws := workspace.New(workspace.Options{Scope: scope})
	for _, root := range roots {
		if err := ws.AddFolder(ctx, root, ""); err != nil {
			return nil, fmt.Errorf("indexing %s: %w", root, err)
		}
	}
	return ws, nil
}

// cacheIsFresh reports whether the cache file is newer than the settings
// file and every task document of root. Documents that do not exist are
// ignored; creating one gives it a newer modification time.
func cacheIsFresh(cachePath, root string) bool {
	cacheInfo, err := os.Stat(cachePath)
	if err != nil {
		return false
	}
	cacheMtime := cacheInfo.ModTime()

	settings, err := config.Load(root)
	if err != nil {
		return false
	}
	paths := append([]string{config.Path(root)}, discover.Documents(root, settings)...)
	for _, p := range paths {
		fi, err := os.Stat(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return false
		}
		if !fi.ModTime().Before(cacheMtime) {
			return false
		}
	}
	return true
}

// scopeFlag registers -scope on fs.
func scopeFlag(fs *flag.FlagSet) *config.IndexScope {
	scope := config.ScopeFolder
	fs.Func("scope", "index scope: folder (one index per root) or workspace (one index over all roots)", func(s string) error {
		parsed, err := config.ParseIndexScope(s)
		if err != nil {
			return err
		}
		scope = parsed
		return nil
	})
	return &scope
}

type logOptions struct {
	verbose bool
	path    string
}

// logFlags registers -v and -log on fs.
func logFlags(fs *flag.FlagSet) *logOptions {
	o := &logOptions{}
	fs.BoolVar(&o.verbose, "v", false, "log progress and skipped files")
	fs.StringVar(&o.path, "log", "", "write logs to this file instead of stderr")
	return o
}

// configure applies the options to the log backend. The defaults are left
// alone when no option is set.
func (o *logOptions) configure() {
	if !o.verbose && o.path == "" {
		return
	}
	verbosity := 0
	if o.verbose {
		verbosity = 2
	}
	if o.path == "" {
		commonlog.Configure(verbosity, nil)
		return
	}
	commonlog.Configure(verbosity, &o.path)
}

// flagsWithValue lists flags that take a value argument.
var flagsWithValue = map[string]bool{
	"-n": true, "--n": true,
	"-max-labels": true, "--max-labels": true,
	"-label": true, "--label": true,
	"-file": true, "--file": true,
	"-scope": true, "--scope": true,
	"-cache": true, "--cache": true,
	"-log": true, "--log": true,
	"-claude": true, "--claude": true,
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg).
func reorderArgs(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			flags = append(flags, "--")
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(args[i]) > 0 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if flagsWithValue[args[i]] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}
