// Package config loads per-root taskslabel settings.
//
// Settings come from three layers, later layers winning: built-in defaults,
// the optional .vscode/taskslabel.yaml file of a project root, and editor
// settings sent by a language client under the "tasksLabel" section.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Section is the editor settings section holding taskslabel options.
const Section = "tasksLabel"

// FileName is the settings file looked up in a root's .vscode directory.
const FileName = "taskslabel.yaml"

// IndexScope selects how label indexes are shared between project roots.
type IndexScope string

const (
	// ScopeFolder keeps one index per project root.
	ScopeFolder IndexScope = "folder"
	// ScopeWorkspace keeps one index over the documents of every root.
	ScopeWorkspace IndexScope = "workspace"
)

// ParseIndexScope validates s. An empty string selects ScopeFolder.
func ParseIndexScope(s string) (IndexScope, error) {
	switch IndexScope(s) {
	case "", ScopeFolder:
		return ScopeFolder, nil
	case ScopeWorkspace:
		return ScopeWorkspace, nil
	}
	return "", fmt.Errorf("unknown index scope %q (want %q or %q)", s, ScopeFolder, ScopeWorkspace)
}

// Settings are the options of one project root.
type Settings struct {
	// IncludeFiles are extra task documents, relative to the root. Entries
	// containing glob characters are patterns.
	IncludeFiles []string `yaml:"includeFiles"`
	// Diagnostics enables unresolved-label diagnostics.
	Diagnostics bool `yaml:"diagnostics"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{IncludeFiles: []string{}, Diagnostics: true}
}

// Path returns the settings file location for root.
func Path(root string) string {
	return filepath.Join(root, ".vscode", FileName)
}

// fileSettings mirrors Settings with presence tracking, so a file that sets
// only one key leaves the other at its default.
type fileSettings struct {
	IncludeFiles []string `yaml:"includeFiles"`
	Diagnostics  *bool    `yaml:"diagnostics"`
	IndexScope   string   `yaml:"indexScope"`
}

// Load reads the settings file of root on top of the defaults. A missing
// file is not an error.
func Load(root string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(Path(root))
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("reading settings: %w", err)
	}
	var f fileSettings
	if err := yaml.Unmarshal(data, &f); err != nil {
		return s, fmt.Errorf("parsing %s: %w", Path(root), err)
	}
	return s.apply(f), nil
}

func (s Settings) apply(f fileSettings) Settings {
	if f.IncludeFiles != nil {
		s.IncludeFiles = append([]string{}, f.IncludeFiles...)
	}
	if f.Diagnostics != nil {
		s.Diagnostics = *f.Diagnostics
	}
	return s
}

// Overrides are settings received from an editor. Unset keys leave the
// underlying settings alone.
type Overrides struct {
	f fileSettings
}

// IndexScope returns the requested scope, or "" when the editor did not set one.
func (o Overrides) IndexScope() string {
	return o.f.IndexScope
}

// Apply layers o over s.
func (o Overrides) Apply(s Settings) Settings {
	return s.apply(o.f)
}

// DecodeOverrides converts a decoded settings payload into Overrides. The
// payload is either the tasksLabel section itself or an object holding it,
// as sent with workspace/didChangeConfiguration. A nil payload yields empty
// overrides.
func DecodeOverrides(v any) (Overrides, error) {
	if v == nil {
		return Overrides{}, nil
	}
	if m, ok := v.(map[string]any); ok {
		if section, ok := m[Section]; ok {
			v = section
		}
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return Overrides{}, fmt.Errorf("encoding settings: %w", err)
	}
	var f fileSettings
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Overrides{}, fmt.Errorf("decoding %s settings: %w", Section, err)
	}
	return Overrides{f: f}, nil
}

// Marshal renders s as a settings file.
func Marshal(s Settings) ([]byte, error) {
	if s.IncludeFiles == nil {
		s.IncludeFiles = []string{}
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	header := "# taskslabel settings for this folder.\n" +
		"# includeFiles: extra task documents, relative to the folder (glob patterns allowed).\n" +
		"# diagnostics: report dependsOn labels that no document defines.\n"
	return append([]byte(header), data...), nil
}
