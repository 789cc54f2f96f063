// Package lsp serves the label index to editors over the Language Server
// Protocol.
package lsp

import (
	"context"
	"sync"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/phobologic/taskslabel/internal/document"
	"github.com/phobologic/taskslabel/internal/index"
	"github.com/phobologic/taskslabel/internal/model"
	"github.com/phobologic/taskslabel/internal/workspace"
)

// Name identifies the server to clients.
const Name = "taskslabel"

var log = commonlog.GetLogger("taskslabel.lsp")

// Server is a language server over one editor session.
type Server struct {
	version string
	handler protocol.Handler

	mu      sync.Mutex
	ws      *workspace.Workspace
	notify  glsp.NotifyFunc
	call    glsp.CallFunc
	refresh bool // client supports workspace/codeLens/refresh
}

// New returns a server reporting version to clients.
func New(version string) *Server {
	s := &Server{version: version}
	s.handler = protocol.Handler{
		Initialize:                         s.initialize,
		Initialized:                        s.initialized,
		Shutdown:                           s.shutdown,
		SetTrace:                           s.setTrace,
		WorkspaceDidChangeConfiguration:    s.didChangeConfiguration,
		WorkspaceDidChangeWorkspaceFolders: s.didChangeWorkspaceFolders,
		TextDocumentDidOpen:                s.didOpen,
		TextDocumentDidChange:              s.didChange,
		TextDocumentDidSave:                s.didSave,
		TextDocumentDidClose:               s.didClose,
		TextDocumentCompletion:             s.completion,
		TextDocumentDefinition:             s.definition,
		TextDocumentReferences:             s.references,
		TextDocumentCodeLens:               s.codeLens,
		TextDocumentRename:                 s.rename,
	}
	return s
}

// RunStdio serves the protocol on stdin and stdout until the client exits.
func (s *Server) RunStdio() error {
	return server.NewServer(&s.handler, Name, false).RunStdio()
}

func (s *Server) session() *workspace.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ws
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	refresh := false
	if ws := params.Capabilities.Workspace; ws != nil && ws.CodeLens != nil && ws.CodeLens.RefreshSupport != nil {
		refresh = *ws.CodeLens.RefreshSupport
	}

	w := workspace.New(workspace.Options{
		Sink:      sink{s},
		OnRebuild: s.rebuilt,
	})

	s.mu.Lock()
	s.ws = w
	s.notify = ctx.Notify
	s.call = ctx.Call
	s.refresh = refresh
	s.mu.Unlock()

	// Editor settings may switch the index scope, so they are applied
	// before any folder builds an index.
	bg := context.Background()
	if params.InitializationOptions != nil {
		if err := w.UpdateSettings(bg, params.InitializationOptions); err != nil {
			log.Warningf("applying initialization options: %s", err)
		}
	}
	for _, f := range initialFolders(params) {
		if err := w.AddFolder(bg, document.PathFromURI(f.URI), f.Name); err != nil {
			log.Errorf("adding folder %s: %s", f.URI, err)
		}
	}

	return protocol.InitializeResult{
		Capabilities: s.capabilities(),
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    Name,
			Version: &s.version,
		},
	}, nil
}

// initialFolders returns the workspace folders of params, falling back to
// the root URI for clients without multi-root support.
func initialFolders(params *protocol.InitializeParams) []protocol.WorkspaceFolder {
	if len(params.WorkspaceFolders) > 0 {
		return params.WorkspaceFolders
	}
	if params.RootURI != nil && *params.RootURI != "" {
		return []protocol.WorkspaceFolder{{URI: *params.RootURI}}
	}
	return nil
}

func (s *Server) capabilities() protocol.ServerCapabilities {
	caps := s.handler.CreateServerCapabilities()
	full := protocol.TextDocumentSyncKindFull
	caps.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &full,
		Save:      &protocol.SaveOptions{IncludeText: &protocol.True},
	}
	caps.CompletionProvider = &protocol.CompletionOptions{TriggerCharacters: []string{`"`}}
	caps.CodeLensProvider = &protocol.CodeLensOptions{}
	caps.Workspace = &protocol.ServerCapabilitiesWorkspace{
		WorkspaceFolders: &protocol.WorkspaceFoldersServerCapabilities{
			Supported:           &protocol.True,
			ChangeNotifications: &protocol.BoolOrString{Value: true},
		},
	}
	return caps
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) didChangeConfiguration(ctx *glsp.Context, params *protocol.DidChangeConfigurationParams) error {
	w := s.session()
	if w == nil {
		return nil
	}
	if err := w.UpdateSettings(context.Background(), params.Settings); err != nil {
		log.Warningf("applying settings: %s", err)
	}
	return nil
}

func (s *Server) didChangeWorkspaceFolders(ctx *glsp.Context, params *protocol.DidChangeWorkspaceFoldersParams) error {
	w := s.session()
	if w == nil {
		return nil
	}
	bg := context.Background()
	for _, f := range params.Event.Removed {
		if err := w.RemoveFolder(bg, document.PathFromURI(f.URI)); err != nil {
			log.Warningf("removing folder: %s", err)
		}
	}
	for _, f := range params.Event.Added {
		if err := w.AddFolder(bg, document.PathFromURI(f.URI), f.Name); err != nil {
			log.Errorf("adding folder %s: %s", f.URI, err)
		}
	}
	return nil
}

// rebuilt asks the client to re-request code lenses after an index rebuild.
func (s *Server) rebuilt(*index.Index) {
	s.mu.Lock()
	call, refresh := s.call, s.refresh
	s.mu.Unlock()
	if !refresh || call == nil {
		return
	}
	go call(protocol.ServerWorkspaceCodeLensRefresh, nil, nil)
}

// sink publishes diagnostics to the client.
type sink struct {
	s *Server
}

func (k sink) Replace(path string, diags []model.Diagnostic) {
	k.s.mu.Lock()
	notify, w := k.s.notify, k.s.ws
	k.s.mu.Unlock()
	if notify == nil || w == nil {
		return
	}
	text, err := w.ReadFile(path)
	if err != nil {
		text = ""
	}
	notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         document.URIFromPath(path),
		Diagnostics: toDiagnostics(document.New(path, text), diags),
	})
}

// ClearAll is a no-op: each folder withdraws its own documents through Replace.
func (k sink) ClearAll() {}
