package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/phobologic/taskslabel/internal/config"
)

const (
	sentinelStart = "<!-- taskslabel:start -->"
	sentinelEnd   = "<!-- taskslabel:end -->"
)

// runInit implements the `taskslabel init` subcommand, which writes a default
// .vscode/taskslabel.yaml settings file and, with -claude, a usage section in
// an agent instructions file.
func runInit(args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("taskslabel init", flag.ContinueOnError)
	flags.SetOutput(stderr)

	var (
		dryRun bool
		force  bool
		claude string
	)
	flags.BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying any file")
	flags.BoolVar(&force, "force", false, "overwrite an existing settings file")
	flags.StringVar(&claude, "claude", "", "also write a taskslabel usage section to this markdown file (e.g. CLAUDE.md)")

	flags.Usage = func() {
		fmt.Fprintf(stderr, `Usage: taskslabel init [flags] [root]

Write the default settings file .vscode/taskslabel.yaml under root. An
existing settings file is left alone unless -force is given.

With -claude, also write a taskslabel usage section to a markdown file. The
section is wrapped in sentinel comments so it can be updated in place on
subsequent runs without touching surrounding content.

root defaults to the current directory.

Flags:
`)
		flags.PrintDefaults()
	}

	if err := flags.Parse(reorderArgs(args)); err != nil {
		return err
	}
	if flags.NArg() > 1 {
		flags.Usage()
		return fmt.Errorf("init takes at most one root")
	}
	roots, err := resolveRoots(flags.Args())
	if err != nil {
		return err
	}
	root := roots[0]

	settings, err := config.Marshal(config.Default())
	if err != nil {
		return err
	}

	path := config.Path(root)
	if dryRun {
		_, _ = fmt.Fprintf(stdout, "# %s\n%s", path, settings)
	} else {
		if err := writeSettings(path, settings, force); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stderr, "wrote %s\n", path)
	}

	if claude == "" {
		return nil
	}
	existing, _ := os.ReadFile(claude)
	updated := applySection(string(existing), generateSection())
	if dryRun {
		_, _ = fmt.Fprintf(stdout, "# %s\n%s", claude, updated)
		return nil
	}
	if err := os.WriteFile(claude, []byte(updated), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", claude, err)
	}
	_, _ = fmt.Fprintf(stderr, "wrote taskslabel section to %s\n", claude)
	return nil
}

func writeSettings(path string, data []byte, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// generateSection returns the full sentinel-wrapped taskslabel documentation block.
func generateSection() string {
	body := `## taskslabel: VS Code task labels

Run ` + "`taskslabel`" + ` via the Bash tool before editing ` + "`.vscode/tasks.json`" + ` or
` + "`.vscode/launch.json`" + `. It lists every task label with its definition, the
tasks that depend on it and any dependency cycles.

**Availability:** Check with ` + "`taskslabel --version`" + ` first; skip gracefully if
not found.

**Run it:**
` + "```" + `bash
taskslabel                                   # current directory
taskslabel -label build                      # one label, its dependencies and dependents
taskslabel check                             # dependsOn entries naming undefined labels
taskslabel rename build compile              # preview a rename as a diff
taskslabel rename -apply build compile       # write it
` + "```" + `

**All flags:** ` + "`taskslabel --help`" + `, ` + "`taskslabel rename --help`" + `

**Rules:**

1. **Rename labels with ` + "`taskslabel rename`" + `**, never by hand. It updates the
   definition, every ` + "`dependsOn`" + ` entry and every ` + "`preLaunchTask`" + `.

2. **Run ` + "`taskslabel check`" + ` after editing task files.** A non-zero exit means a
   ` + "`dependsOn`" + ` entry names a label that no task defines.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
