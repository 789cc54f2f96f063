// Package mcptools exposes the label index to agents as MCP tools.
package mcptools

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates the MCP server and registers the tools of h.
func New(h *Handler, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"taskslabel",
		version,
		server.WithToolCapabilities(false),
	)

	rootParam := mcp.WithString("root",
		mcp.Required(),
		mcp.Description("Absolute path of the project root containing .vscode/tasks.json"),
	)
	position := []mcp.ToolOption{
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Task document, absolute or relative to root (e.g. .vscode/tasks.json)"),
		),
		mcp.WithNumber("line",
			mcp.Required(),
			mcp.Description("1-based line of the cursor"),
		),
		mcp.WithNumber("column",
			mcp.Required(),
			mcp.Description("1-based column of the cursor, inside a quoted task label"),
		),
	}

	s.AddTool(mcp.NewTool("labels",
		mcp.WithDescription("List the task labels of a project ranked by how widely they are depended on, with definition sites, references, dependencies and dependency cycles, in TOON format."),
		rootParam,
		mcp.WithString("label",
			mcp.Description("Only labels containing this text (case-insensitive), plus their direct dependencies and dependents"),
		),
		mcp.WithNumber("max_labels",
			mcp.Description("Maximum number of labels to include; 0 for all"),
		),
	), h.Labels)

	s.AddTool(mcp.NewTool("definition",
		append([]mcp.ToolOption{
			mcp.WithDescription("Find where the task label at a position is defined."),
			rootParam,
		}, position...)...,
	), h.Definition)

	s.AddTool(mcp.NewTool("references",
		append([]mcp.ToolOption{
			mcp.WithDescription("List the dependsOn references to the task label at a position."),
			rootParam,
		}, position...)...,
	), h.References)

	s.AddTool(mcp.NewTool("check",
		mcp.WithDescription("Report dependsOn references to task labels that are not defined anywhere in the project."),
		rootParam,
	), h.Check)

	s.AddTool(mcp.NewTool("rename",
		mcp.WithDescription("Preview renaming a task label across its definition and references as a unified diff. Nothing is written."),
		rootParam,
		mcp.WithString("label",
			mcp.Required(),
			mcp.Description("Current label"),
		),
		mcp.WithString("new_name",
			mcp.Required(),
			mcp.Description("New label"),
		),
	), h.Rename)

	return s
}

// ServeStdio serves s on stdin and stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
