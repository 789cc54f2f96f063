package workspace

import (
	"sort"
	"sync"
)

// Overlay holds the text of documents open in an editor. Open documents
// take precedence over their content on disk.
type Overlay struct {
	mu    sync.RWMutex
	texts map[string]string
}

// NewOverlay returns an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{texts: make(map[string]string)}
}

// Set records the current text of path.
func (o *Overlay) Set(path, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.texts[path] = text
}

// Delete forgets path.
func (o *Overlay) Delete(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.texts, path)
}

// Get returns the text of path if it is open.
func (o *Overlay) Get(path string) (string, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	text, ok := o.texts[path]
	return text, ok
}

// Paths returns the open paths in sorted order.
func (o *Overlay) Paths() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	paths := make([]string, 0, len(o.texts))
	for p := range o.texts {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
