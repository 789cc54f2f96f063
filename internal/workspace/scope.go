package workspace

import (
	"github.com/phobologic/taskslabel/internal/config"
	"github.com/phobologic/taskslabel/internal/discover"
	"github.com/phobologic/taskslabel/internal/index"
)

// Scope answers queries for the documents of one folder. With a
// workspace-wide index scope it reads the shared index and document set.
type Scope struct {
	w *Workspace
	f *folder
}

func (s *Scope) global() bool {
	return s.w.IndexScope() == config.ScopeWorkspace
}

// Root returns the folder root.
func (s *Scope) Root() string {
	return s.f.Root
}

// Settings returns the folder's effective settings.
func (s *Scope) Settings() config.Settings {
	s.w.mu.RLock()
	defer s.w.mu.RUnlock()
	return s.f.Settings
}

// Index returns the current label index serving the folder.
func (s *Scope) Index() *index.Index {
	if s.global() {
		return s.w.global.Current()
	}
	return s.f.service.Current()
}

// SourceDocuments returns the document set of the scope in scan order.
func (s *Scope) SourceDocuments() []string {
	if s.global() {
		return s.w.allDocuments()
	}
	return s.folderDocuments()
}

func (s *Scope) folderDocuments() []string {
	return s.w.folderDocuments(s.f)
}

// IsSourceDocument reports whether path is one of the scope's task documents.
func (s *Scope) IsSourceDocument(path string) bool {
	if !s.global() {
		return discover.IsSourceDocument(s.f.Root, s.Settings(), path)
	}
	for _, f := range s.w.Folders() {
		if discover.IsSourceDocument(f.Root, f.Settings, path) {
			return true
		}
	}
	return false
}

// ReadFile returns the open or on-disk text of path.
func (s *Scope) ReadFile(path string) (string, error) {
	return s.w.ReadFile(path)
}
