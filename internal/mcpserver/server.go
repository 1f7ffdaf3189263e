// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Eihwaz tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/eihwaz/internal/converter"
	"github.com/starford/eihwaz/internal/noteservice"
)

// Server wraps the MCP server with Eihwaz tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *noteservice.Service
	settings *converter.Settings
}

// New creates a new MCP server with all Eihwaz tools registered.
func New(svc *noteservice.Service, settings *converter.Settings) *Server {
	s := &Server{svc: svc, settings: settings}

	s.mcp = server.NewMCPServer(
		"Eihwaz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Add a flashcard note. Fields are passed as a JSON array of "+
			"strings in the layout's field order. If the layout is a configured conversion "+
			"source, the note is automatically rewritten onto the target cloze layout. "+
			"Read the contract first via the get_card_contract tool or the "+
			"eihwaz://card-format resource."),
		mcp.WithString("layout", mcp.Required(), mcp.Description("Layout name (e.g. Basic or Cloze)")),
		mcp.WithString("fields", mcp.Required(), mcp.Description(`Field values as a JSON array, e.g. ["front text","back text"]`)),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note by its numeric id, including layout and field values."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, optionally filtered by layout name."),
		mcp.WithString("layout", mcp.Description("Optional layout filter (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search notes whose field values contain the query text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("convert_note",
		mcp.WithDescription("Re-run automatic cloze conversion on an existing note, "+
			"e.g. one created before conversion was configured."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Note id")),
	), s.convertNote)

	s.mcp.AddTool(mcp.NewTool("get_conversion_config",
		mcp.WithDescription("Returns the active cloze conversion configuration: source "+
			"layouts, target layout, field mapping and auto-cloze fields."),
	), s.getConversionConfig)

	s.mcp.AddTool(mcp.NewTool("get_card_contract",
		mcp.WithDescription("Returns the canonical Eihwaz card format contract. "+
			"Call this before adding notes to ensure correct structure."),
	), s.getCardContract)

	// Resource: card format contract.
	s.mcp.AddResource(
		mcp.NewResource("eihwaz://card-format", "Card Format Contract",
			mcp.WithResourceDescription("Canonical flashcard format, including cloze marker syntax."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCardFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	layout, err := req.RequireString("layout")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawFields, err := req.RequireString("fields")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var fields []string
	if err := json.Unmarshal([]byte(rawFields), &fields); err != nil {
		return mcp.NewToolResultError("fields must be a JSON array of strings: " + err.Error()), nil
	}

	note, res, err := s.svc.CreateNote(ctx, layout, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, _ := json.MarshalIndent(map[string]any{
		"note":       note,
		"conversion": res,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.GetNote(ctx, int64(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: note %d", id)), nil
	}
	out, _ := json.MarshalIndent(note, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	layout := ""
	if l, err := req.RequireString("layout"); err == nil {
		layout = l
	}

	notes, total, err := s.svc.ListNotes(ctx, 100, 0, layout)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var lines []string
	for _, n := range notes {
		front := ""
		if len(n.Fields) > 0 {
			front = n.Fields[0]
		}
		lines = append(lines, fmt.Sprintf("%d\t%s\t%s", n.ID, n.Layout, front))
	}
	lines = append(lines, fmt.Sprintf("(%d total)", total))
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(notes, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) convertNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Convert(ctx, int64(id))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: note %d", id)), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getConversionConfig(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := s.settings.Snapshot()
	if !cfg.Enabled() {
		return mcp.NewToolResultText("conversion is not configured"), nil
	}
	out, _ := json.MarshalIndent(cfg, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getCardContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CardFormatContract), nil
}

func (s *Server) readCardFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "eihwaz://card-format",
			MIMEType: "text/markdown",
			Text:     CardFormatContract,
		},
	}, nil
}
