package lsp

import (
	"errors"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/phobologic/taskslabel/internal/document"
	"github.com/phobologic/taskslabel/internal/query"
	"github.com/phobologic/taskslabel/internal/rename"
	"github.com/phobologic/taskslabel/internal/resolve"
	"github.com/phobologic/taskslabel/internal/workspace"
)

// target is a request's document, its query scope and the cursor offset.
type target struct {
	scope  *workspace.Scope
	doc    *document.Document
	offset int
}

func (s *Server) locate(uri protocol.DocumentUri, pos protocol.Position) (target, error) {
	w := s.session()
	if w == nil {
		return target{}, query.ErrNoScope
	}
	path := document.PathFromURI(uri)
	sc, ok := w.ScopeFor(path)
	if !ok {
		return target{}, query.ErrNoScope
	}
	text, err := w.ReadFile(path)
	if err != nil {
		return target{}, err
	}
	doc := document.New(path, text)
	return target{scope: sc, doc: doc, offset: doc.OffsetAt(fromPosition(pos))}, nil
}

func (s *Server) definition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	t, err := s.locate(params.TextDocument.URI, params.Position)
	if err != nil {
		log.Debugf("definition: %s", err)
		return nil, nil
	}
	link, err := query.ResolveDefinition(t.scope, t.doc, t.offset)
	if err != nil {
		log.Debugf("definition: %s", err)
		return nil, nil
	}
	origin := toRange(t.doc, link.Origin)
	return []protocol.LocationLink{{
		OriginSelectionRange: &origin,
		TargetURI:            document.URIFromPath(link.TargetDoc),
		TargetRange:          lineStart(link.TargetLine),
		TargetSelectionRange: lineStart(link.TargetLine),
	}}, nil
}

func (s *Server) references(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	t, err := s.locate(params.TextDocument.URI, params.Position)
	if err != nil {
		log.Debugf("references: %s", err)
		return nil, nil
	}
	refs, err := query.ListReferences(t.scope, t.doc, t.offset)
	if err != nil {
		log.Debugf("references: %s", err)
		return nil, nil
	}

	docs := map[string]*document.Document{t.doc.Path: t.doc}
	out := make([]protocol.Location, 0, len(refs))
	for _, ref := range refs {
		doc, ok := docs[ref.Doc]
		if !ok {
			text, err := t.scope.ReadFile(ref.Doc)
			if err != nil {
				continue
			}
			doc = document.New(ref.Doc, text)
			docs[ref.Doc] = doc
		}
		out = append(out, protocol.Location{
			URI:   document.URIFromPath(ref.Doc),
			Range: toRange(doc, ref.Span),
		})
	}
	return out, nil
}

func (s *Server) completion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	t, err := s.locate(params.TextDocument.URI, params.Position)
	if err != nil {
		log.Debugf("completion: %s", err)
		return nil, nil
	}
	labels := query.ListCompletions(t.scope, t.doc, t.offset)
	if labels == nil {
		return nil, nil
	}
	return toCompletionItems(labels), nil
}

func (s *Server) codeLens(ctx *glsp.Context, params *protocol.CodeLensParams) ([]protocol.CodeLens, error) {
	t, err := s.locate(params.TextDocument.URI, protocol.Position{})
	if err != nil {
		log.Debugf("code lens: %s", err)
		return nil, nil
	}
	anchors := query.ListLensAnchors(t.scope, t.doc.Path)
	lenses := make([]protocol.CodeLens, 0, len(anchors))
	for _, a := range anchors {
		lenses = append(lenses, protocol.CodeLens{
			Range: toRange(t.doc, a.Location.Span),
			Command: &protocol.Command{
				Title: lensTitle(a.Count),
			},
		})
	}
	return lenses, nil
}

func (s *Server) rename(ctx *glsp.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	t, err := s.locate(params.TextDocument.URI, params.Position)
	if err != nil {
		log.Debugf("rename: %s", err)
		return nil, nil
	}
	lit, err := resolve.At(t.doc, t.offset)
	if err != nil {
		log.Debugf("rename: %s", err)
		return nil, nil
	}
	plan, err := rename.Prepare(t.scope, lit.Value, params.NewName)
	if errors.Is(err, rename.ErrUnknownLabel) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	edit := &protocol.WorkspaceEdit{Changes: make(map[protocol.DocumentUri][]protocol.TextEdit)}
	for _, path := range plan.Documents() {
		doc := document.New(path, plan.Text(path))
		uri := document.URIFromPath(path)
		for _, e := range plan.Edits {
			if e.Doc != path {
				continue
			}
			edit.Changes[uri] = append(edit.Changes[uri], protocol.TextEdit{
				Range:   toRange(doc, e.Span),
				NewText: e.NewText,
			})
		}
	}
	return edit, nil
}
