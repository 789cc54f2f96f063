package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/phobologic/taskslabel/internal/document"
	"github.com/phobologic/taskslabel/internal/lsp"
	"github.com/phobologic/taskslabel/internal/mcptools"
	"github.com/phobologic/taskslabel/internal/rename"
)

// runCheck implements `taskslabel check`, which prints every dependsOn
// reference to an undefined label and fails when there is one.
func runCheck(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("taskslabel check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	scope := scopeFlag(fs)
	logging := logFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: taskslabel check [flags] [root...]

Report dependsOn references to task labels that no task document defines.
Roots with diagnostics disabled in .vscode/taskslabel.yaml are skipped.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	logging.configure()

	roots, err := resolveRoots(fs.Args())
	if err != nil {
		return err
	}
	ws, err := openWorkspace(context.Background(), roots, *scope)
	if err != nil {
		return err
	}

	problems := 0
	for _, rep := range ws.CheckAll() {
		text, err := ws.ReadFile(rep.Path)
		if err != nil {
			continue
		}
		doc := document.New(rep.Path, text)
		name := displayPath(roots, rep.Path)
		for _, d := range rep.Diagnostics {
			pos := doc.PositionAt(d.Span.Start)
			_, _ = fmt.Fprintf(stdout, "%s:%d:%d: %s\n", name, pos.Line+1, pos.Character+1, d.Message)
			problems++
		}
	}

	switch problems {
	case 0:
		return nil
	case 1:
		return fmt.Errorf("1 undefined task reference")
	default:
		return fmt.Errorf("%d undefined task references", problems)
	}
}

// displayPath shortens path relative to the root containing it.
func displayPath(roots []string, path string) string {
	for _, root := range roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if len(roots) == 1 {
			return filepath.ToSlash(rel)
		}
		return filepath.ToSlash(filepath.Join(filepath.Base(root), rel))
	}
	return path
}

// runRename implements `taskslabel rename`, which previews or applies the
// renaming of a label across its definition and references.
func runRename(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("taskslabel rename", flag.ContinueOnError)
	fs.SetOutput(stderr)
	logging := logFlags(fs)

	var apply bool
	fs.BoolVar(&apply, "apply", false, "write the changes instead of printing a diff")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: taskslabel rename [flags] <label> <new-label> [root]

Rename a task label in its definition, every dependsOn reference and every
preLaunchTask that names it. Prints a unified diff unless -apply is given.

root defaults to the current directory.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(reorderArgs(args)); err != nil {
		return err
	}
	logging.configure()

	if fs.NArg() < 2 || fs.NArg() > 3 {
		fs.Usage()
		return fmt.Errorf("rename takes a label, a new label and an optional root")
	}
	roots, err := resolveRoots(fs.Args()[2:])
	if err != nil {
		return err
	}
	ws, err := openWorkspace(context.Background(), roots, "")
	if err != nil {
		return err
	}
	sc, ok := ws.ScopeFor(roots[0])
	if !ok {
		return fmt.Errorf("no folder for %s", roots[0])
	}

	plan, err := rename.Prepare(sc, fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}

	if !apply {
		diff, err := plan.Diff(sc.Root())
		if err != nil {
			return err
		}
		_, _ = fmt.Fprint(stdout, diff)
		return nil
	}

	if err := plan.Apply(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(stderr, "renamed %q to %q: %d edits in %d files\n",
		plan.Label, plan.NewName, len(plan.Edits), len(plan.Documents()))
	return nil
}

// runLSP implements `taskslabel lsp`, serving the language server protocol
// on stdin and stdout.
func runLSP(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("taskslabel lsp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	logging := logFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	logging.configure()

	return lsp.New(version).RunStdio()
}

// runMCP implements `taskslabel mcp`, serving the label tools over MCP on
// stdin and stdout.
func runMCP(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("taskslabel mcp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	logging := logFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	logging.configure()

	return mcptools.ServeStdio(mcptools.New(mcptools.NewHandler(), version))
}
