package lsp

import (
	"context"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/phobologic/taskslabel/internal/document"
)

func (s *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	if w := s.session(); w != nil {
		w.Open(context.Background(), document.PathFromURI(params.TextDocument.URI), params.TextDocument.Text)
	}
	return nil
}

func (s *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	w := s.session()
	if w == nil {
		return nil
	}
	path := document.PathFromURI(params.TextDocument.URI)
	text, err := w.ReadFile(path)
	if err != nil {
		text = ""
	}
	w.Change(context.Background(), path, applyChanges(path, text, params.ContentChanges))
	return nil
}

func (s *Server) didSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	if w := s.session(); w != nil {
		w.Save(context.Background(), document.PathFromURI(params.TextDocument.URI), params.Text)
	}
	return nil
}

func (s *Server) didClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	w := s.session()
	if w == nil {
		return nil
	}
	path := document.PathFromURI(params.TextDocument.URI)
	w.Close(context.Background(), path)
	if ctx.Notify != nil {
		ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
			URI:         params.TextDocument.URI,
			Diagnostics: []protocol.Diagnostic{},
		})
	}
	return nil
}
