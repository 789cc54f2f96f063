package mcptools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/tliron/commonlog"

	"github.com/phobologic/taskslabel/internal/document"
	"github.com/phobologic/taskslabel/internal/query"
	"github.com/phobologic/taskslabel/internal/ranking"
	"github.com/phobologic/taskslabel/internal/rename"
	"github.com/phobologic/taskslabel/internal/report"
	"github.com/phobologic/taskslabel/internal/toon"
	"github.com/phobologic/taskslabel/internal/workspace"
)

var log = commonlog.GetLogger("taskslabel.mcp")

// Handler answers tool calls. Each project root gets its own workspace,
// rebuilt from disk on every call.
type Handler struct {
	mu         sync.Mutex
	workspaces map[string]*workspace.Workspace
}

// NewHandler returns a Handler with no open roots.
func NewHandler() *Handler {
	return &Handler{workspaces: make(map[string]*workspace.Workspace)}
}

// open returns the workspace of the root named in req, with fresh indexes.
func (h *Handler) open(ctx context.Context, req mcp.CallToolRequest) (*workspace.Workspace, *workspace.Scope, error) {
	raw, err := req.RequireString("root")
	if err != nil {
		return nil, nil, errors.New("root is required")
	}
	root, err := filepath.Abs(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid root: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.workspaces[root]
	if !ok {
		w = workspace.New(workspace.Options{})
		if err := w.AddFolder(ctx, root, ""); err != nil {
			return nil, nil, fmt.Errorf("indexing %s: %w", root, err)
		}
		h.workspaces[root] = w
	} else if err := w.RebuildAll(ctx); err != nil {
		return nil, nil, fmt.Errorf("indexing %s: %w", root, err)
	}

	sc, ok := w.ScopeFor(root)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", query.ErrNoScope, root)
	}
	return w, sc, nil
}

// Labels handles the labels tool.
func (h *Handler) Labels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, sc, err := h.open(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	r := report.Build(sc, filepath.Base(sc.Root()))
	if label := req.GetString("label", ""); label != "" {
		r = ranking.FilterByLabel(r, label)
	}
	r = ranking.SelectLabels(r, req.GetInt("max_labels", 0))
	return mcp.NewToolResultText(toon.Encode(r)), nil
}

// cursor reads the file, line and column arguments of req.
func cursor(w *workspace.Workspace, root string, req mcp.CallToolRequest) (*document.Document, int, error) {
	file, err := req.RequireString("file")
	if err != nil {
		return nil, 0, errors.New("file is required")
	}
	line, err := req.RequireInt("line")
	if err != nil {
		return nil, 0, errors.New("line is required")
	}
	column, err := req.RequireInt("column")
	if err != nil {
		return nil, 0, errors.New("column is required")
	}
	if line < 1 || column < 1 {
		return nil, 0, errors.New("line and column are 1-based")
	}

	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	text, err := w.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", file, err)
	}
	doc := document.New(path, text)
	return doc, doc.OffsetAt(document.Position{Line: line - 1, Character: column - 1}), nil
}

// Definition handles the definition tool.
func (h *Handler) Definition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, sc, err := h.open(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, offset, err := cursor(w, sc.Root(), req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	link, err := query.ResolveDefinition(sc, doc, offset)
	if errors.Is(err, query.ErrNotFound) {
		log.Debugf("definition: %s", err)
		return mcp.NewToolResultText("no definition found"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s:%d", relative(sc.Root(), link.TargetDoc), link.TargetLine+1)), nil
}

// References handles the references tool.
func (h *Handler) References(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, sc, err := h.open(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, offset, err := cursor(w, sc.Root(), req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	refs, err := query.ListReferences(sc, doc, offset)
	if err != nil {
		log.Debugf("references: %s", err)
		return mcp.NewToolResultText("no references found"), nil
	}
	if len(refs) == 0 {
		return mcp.NewToolResultText("no references found"), nil
	}

	docs := make(map[string]*document.Document)
	var b strings.Builder
	for _, ref := range refs {
		d, ok := docs[ref.Doc]
		if !ok {
			text, err := sc.ReadFile(ref.Doc)
			if err != nil {
				continue
			}
			d = document.New(ref.Doc, text)
			docs[ref.Doc] = d
		}
		pos := d.PositionAt(ref.Span.Start)
		fmt.Fprintf(&b, "%s:%d:%d\n", relative(sc.Root(), ref.Doc), pos.Line+1, pos.Character+1)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// Check handles the check tool.
func (h *Handler) Check(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	w, sc, err := h.open(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	for _, rep := range w.CheckAll() {
		text, err := w.ReadFile(rep.Path)
		if err != nil {
			continue
		}
		doc := document.New(rep.Path, text)
		for _, d := range rep.Diagnostics {
			pos := doc.PositionAt(d.Span.Start)
			fmt.Fprintf(&b, "%s:%d:%d: %s\n", relative(sc.Root(), rep.Path), pos.Line+1, pos.Character+1, d.Message)
		}
	}
	if b.Len() == 0 {
		return mcp.NewToolResultText("all task references are defined"), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

// Rename handles the rename tool.
func (h *Handler) Rename(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, sc, err := h.open(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	label, err := req.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError("label is required"), nil
	}
	newName, err := req.RequireString("new_name")
	if err != nil {
		return mcp.NewToolResultError("new_name is required"), nil
	}

	plan, err := rename.Prepare(sc, label, newName)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	diff, err := plan.Diff(sc.Root())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(diff), nil
}

func relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
