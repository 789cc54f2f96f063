// Package workspace connects the label index to an editor session: project
// roots and their settings, open document text, rebuild triggers and
// diagnostics publication.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/taskslabel/internal/config"
	"github.com/phobologic/taskslabel/internal/diagnose"
	"github.com/phobologic/taskslabel/internal/discover"
	"github.com/phobologic/taskslabel/internal/index"
	"github.com/phobologic/taskslabel/internal/model"
)

var log = commonlog.GetLogger("taskslabel.workspace")

// readConcurrency bounds parallel document reads during a rebuild.
const readConcurrency = 8

// ErrUnknownFolder is returned for a root that was never added.
var ErrUnknownFolder = errors.New("unknown workspace folder")

// Folder is a project root and its effective settings.
type Folder struct {
	Root     string
	Name     string
	Settings config.Settings
}

type folder struct {
	Folder
	file    config.Settings // defaults and settings file, before editor overrides
	service *index.Service
	stop    func()
}

// Options configure a Workspace.
type Options struct {
	// Scope selects per-folder or workspace-wide indexes. Empty means folder.
	Scope config.IndexScope
	// Sink receives diagnostics for open documents. Nil disables publication.
	Sink diagnose.Sink
	// OnRebuild runs after every published index rebuild.
	OnRebuild func(*index.Index)
}

// Workspace owns the folders of an editor session and their label indexes.
// Event methods rebuild synchronously: once one returns, queries observe
// the rebuilt index.
type Workspace struct {
	opts    Options
	overlay *Overlay

	mu        sync.RWMutex
	scope     config.IndexScope
	overrides config.Overrides
	folders   []*folder
	global    *index.Service
	published map[string]map[string]struct{} // root -> documents with diagnostics
}

// New returns a workspace with no folders.
func New(opts Options) *Workspace {
	w := &Workspace{
		opts:      opts,
		overlay:   NewOverlay(),
		scope:     opts.Scope,
		published: make(map[string]map[string]struct{}),
	}
	if w.scope == "" {
		w.scope = config.ScopeFolder
	}
	w.global = index.NewService("workspace", w.loader(w.allDocuments))
	w.global.Subscribe(w.notify)
	return w
}

// IndexScope returns the current index scope.
func (w *Workspace) IndexScope() config.IndexScope {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.scope
}

// Folders returns the folders in the order they were added.
func (w *Workspace) Folders() []Folder {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Folder, len(w.folders))
	for i, f := range w.folders {
		out[i] = f.Folder
		out[i].Settings.IncludeFiles = append([]string{}, f.Settings.IncludeFiles...)
	}
	return out
}

// AddFolder registers a project root, loads its settings file and builds
// its index. A broken settings file is logged and the defaults are used.
func (w *Workspace) AddFolder(ctx context.Context, root, name string) error {
	root = filepath.Clean(root)
	file, err := config.Load(root)
	if err != nil {
		log.Warningf("%s; using default settings", err)
	}

	w.mu.Lock()
	if w.find(root) != nil {
		w.mu.Unlock()
		return nil
	}
	if name == "" {
		name = filepath.Base(root)
	}
	f := &folder{
		Folder: Folder{Root: root, Name: name, Settings: w.overrides.Apply(file)},
		file:   file,
	}
	f.service = index.NewService(root, w.loader(func() []string { return w.folderDocuments(f) }))
	f.stop = f.service.Subscribe(w.notify)
	w.folders = append(w.folders, f)
	w.mu.Unlock()

	log.Infof("added folder %s", root)
	return w.rebuild(ctx, f)
}

// RemoveFolder forgets a project root and withdraws its diagnostics.
func (w *Workspace) RemoveFolder(ctx context.Context, root string) error {
	root = filepath.Clean(root)
	w.mu.Lock()
	i := -1
	for j, f := range w.folders {
		if f.Root == root {
			i = j
		}
	}
	if i < 0 {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownFolder, root)
	}
	f := w.folders[i]
	w.folders = append(w.folders[:i], w.folders[i+1:]...)
	global := w.scope == config.ScopeWorkspace
	w.mu.Unlock()

	f.stop()
	w.sinkFor(root).ClearAll()
	log.Infof("removed folder %s", root)

	if global {
		return w.rebuild(ctx, nil)
	}
	return nil
}

// find returns the folder registered for root. Callers hold w.mu.
func (w *Workspace) find(root string) *folder {
	for _, f := range w.folders {
		if f.Root == root {
			return f
		}
	}
	return nil
}

// owner returns the folder with the longest root containing path.
func (w *Workspace) owner(path string) *folder {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var best *folder
	for _, f := range w.folders {
		if !within(f.Root, path) {
			continue
		}
		if best == nil || len(f.Root) > len(best.Root) {
			best = f
		}
	}
	return best
}

func within(root, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// ScopeFor returns the query scope answering for path: the owning folder's
// index, or the workspace index when the scope is workspace-wide. It
// reports false when no folder contains path.
func (w *Workspace) ScopeFor(path string) (*Scope, bool) {
	f := w.owner(filepath.Clean(path))
	if f == nil {
		return nil, false
	}
	return &Scope{w: w, f: f}, true
}

// ReadFile returns the open text of path, or its content on disk.
func (w *Workspace) ReadFile(path string) (string, error) {
	if text, ok := w.overlay.Get(path); ok {
		return text, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (w *Workspace) folderDocuments(f *folder) []string {
	w.mu.RLock()
	settings := f.Settings
	w.mu.RUnlock()
	return discover.Documents(f.Root, settings)
}

// allDocuments concatenates the document sets of every folder in folder order.
func (w *Workspace) allDocuments() []string {
	w.mu.RLock()
	folders := append([]*folder(nil), w.folders...)
	w.mu.RUnlock()

	var paths []string
	seen := make(map[string]struct{})
	for _, f := range folders {
		for _, p := range w.folderDocuments(f) {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}
	return paths
}

// loader reads the documents named by paths concurrently and returns the
// readable ones in list order.
func (w *Workspace) loader(paths func() []string) index.Loader {
	return func(ctx context.Context) ([]index.Document, error) {
		list := paths()
		texts := make([]string, len(list))
		found := make([]bool, len(list))

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(readConcurrency)
		for i, p := range list {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				text, err := w.ReadFile(p)
				if err != nil {
					log.Debugf("skipping %s: %s", p, err)
					return nil
				}
				texts[i], found[i] = text, true
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		docs := make([]index.Document, 0, len(list))
		for i, p := range list {
			if found[i] {
				docs = append(docs, index.Document{Path: p, Text: texts[i]})
			}
		}
		return docs, nil
	}
}

func (w *Workspace) notify(ix *index.Index) {
	if w.opts.OnRebuild != nil {
		w.opts.OnRebuild(ix)
	}
}

// rebuild rebuilds the index serving f, or the workspace index when the
// scope is workspace-wide or f is nil, then refreshes diagnostics of the
// open documents it serves.
func (w *Workspace) rebuild(ctx context.Context, f *folder) error {
	var err error
	if w.IndexScope() == config.ScopeWorkspace || f == nil {
		_, err = w.global.Rebuild(ctx)
		f = nil
	} else {
		_, err = f.service.Rebuild(ctx)
	}
	w.rediagnose(f)
	return err
}

// RebuildAll rebuilds every index.
func (w *Workspace) RebuildAll(ctx context.Context) error {
	if w.IndexScope() == config.ScopeWorkspace {
		return w.rebuild(ctx, nil)
	}
	w.mu.RLock()
	folders := append([]*folder(nil), w.folders...)
	w.mu.RUnlock()

	var errs []error
	for _, f := range folders {
		if err := w.rebuild(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open records an opened document and rebuilds the index it belongs to.
func (w *Workspace) Open(ctx context.Context, path, text string) {
	w.overlay.Set(path, text)
	w.touched(ctx, path)
}

// Change records new document text and rebuilds the index it belongs to.
func (w *Workspace) Change(ctx context.Context, path, text string) {
	w.overlay.Set(path, text)
	w.touched(ctx, path)
}

// Save handles a saved document. Saving a folder's settings file reloads
// that folder's settings. text is nil when the client did not include it.
func (w *Workspace) Save(ctx context.Context, path string, text *string) {
	if text != nil {
		if _, open := w.overlay.Get(path); open {
			w.overlay.Set(path, *text)
		}
	}
	if f := w.owner(path); f != nil && path == config.Path(f.Root) {
		w.reloadSettings(ctx, f)
		return
	}
	w.touched(ctx, path)
}

// Close forgets the open text of a document. Its index is rebuilt from
// the content on disk.
func (w *Workspace) Close(ctx context.Context, path string) {
	w.overlay.Delete(path)
	w.touched(ctx, path)
}

func (w *Workspace) touched(ctx context.Context, path string) {
	sc, ok := w.ScopeFor(path)
	if !ok {
		return
	}
	if !sc.IsSourceDocument(path) {
		return
	}
	if err := w.rebuild(ctx, sc.f); err != nil {
		log.Errorf("rebuilding index for %s: %s", path, err)
	}
}

func (w *Workspace) reloadSettings(ctx context.Context, f *folder) {
	file, err := config.Load(f.Root)
	if err != nil {
		log.Warningf("%s; keeping previous settings", err)
		return
	}
	w.mu.Lock()
	f.file = file
	f.Settings = w.overrides.Apply(file)
	w.mu.Unlock()
	log.Infof("reloaded settings of %s", f.Root)
	if err := w.rebuild(ctx, f); err != nil {
		log.Errorf("rebuilding index for %s: %s", f.Root, err)
	}
}

// UpdateSettings applies editor settings to every folder and rebuilds.
// payload is the decoded settings object sent by the client.
func (w *Workspace) UpdateSettings(ctx context.Context, payload any) error {
	o, err := config.DecodeOverrides(payload)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.overrides = o
	if s := o.IndexScope(); s != "" {
		scope, err := config.ParseIndexScope(s)
		if err != nil {
			log.Warningf("%s; keeping %s", err, w.scope)
		} else {
			w.scope = scope
		}
	}
	for _, f := range w.folders {
		f.Settings = o.Apply(f.file)
	}
	w.mu.Unlock()

	return w.RebuildAll(ctx)
}

// rediagnose republishes diagnostics for the open source documents served
// by f's index, or by the workspace index when f is nil.
func (w *Workspace) rediagnose(f *folder) {
	if w.opts.Sink == nil {
		return
	}
	for _, path := range w.overlay.Paths() {
		sc, ok := w.ScopeFor(path)
		if !ok || (f != nil && sc.f != f) {
			continue
		}
		if !sc.IsSourceDocument(path) {
			continue
		}
		text, _ := w.overlay.Get(path)
		diagnose.Publish(w.sinkFor(sc.f.Root), path, text, sc.Index(), sc.Settings().Diagnostics)
	}
}

// Report is the diagnostics of one document.
type Report struct {
	Path        string
	Diagnostics []model.Diagnostic
}

// CheckAll diagnoses every readable source document of every folder that
// has diagnostics enabled. Documents without problems are left out.
func (w *Workspace) CheckAll() []Report {
	var reports []Report
	seen := make(map[string]struct{})
	for _, f := range w.Folders() {
		if !f.Settings.Diagnostics {
			continue
		}
		sc, ok := w.ScopeFor(f.Root)
		if !ok {
			continue
		}
		for _, path := range sc.folderDocuments() {
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			text, err := w.ReadFile(path)
			if err != nil {
				continue
			}
			diags, err := diagnose.Check(text, sc.Index())
			if err != nil {
				log.Warningf("checking %s: %s", path, err)
				continue
			}
			if len(diags) > 0 {
				reports = append(reports, Report{Path: path, Diagnostics: diags})
			}
		}
	}
	return reports
}

// folderSink scopes a diagnostics sink to one folder, so that disabling
// diagnostics in one root does not clear the diagnostics of another.
type folderSink struct {
	w    *Workspace
	root string
}

func (w *Workspace) sinkFor(root string) diagnose.Sink {
	return folderSink{w: w, root: root}
}

func (s folderSink) Replace(doc string, diags []model.Diagnostic) {
	if s.w.opts.Sink == nil {
		return
	}
	s.w.mu.Lock()
	docs := s.w.published[s.root]
	if docs == nil {
		docs = make(map[string]struct{})
		s.w.published[s.root] = docs
	}
	docs[doc] = struct{}{}
	s.w.mu.Unlock()
	s.w.opts.Sink.Replace(doc, diags)
}

func (s folderSink) ClearAll() {
	if s.w.opts.Sink == nil {
		return
	}
	s.w.mu.Lock()
	docs := s.w.published[s.root]
	delete(s.w.published, s.root)
	s.w.mu.Unlock()
	for doc := range docs {
		s.w.opts.Sink.Replace(doc, nil)
	}
}
