// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes SmartScribe tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/smartscribe/internal/compiler"
	"github.com/starford/smartscribe/internal/noteservice"
)

const contractURI = "smartscribe://markup-contract"

// Server wraps the MCP server with SmartScribe tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all SmartScribe tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"SmartScribe",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("compile_prompt",
		mcp.WithDescription("Compile a stored template and a visit transcript into the note-generation prompt. "+
			"Returns the prompt text, its content hash and the SmartList ids it references."),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("Id of a stored template")),
		mcp.WithString("transcript", mcp.Required(), mcp.Description("Visit transcript")),
		mcp.WithString("prior_note", mcp.Description("Previous note for this patient, if any")),
		mcp.WithString("visit_kind", mcp.Description("Visit framing"),
			mcp.Enum(string(compiler.VisitIntake), string(compiler.VisitFollowUp))),
		mcp.WithBoolean("prior_facts", mcp.Description("Extract structured facts from prior_note on follow-up visits")),
	), s.compilePrompt)

	s.mcp.AddTool(mcp.NewTool("validate_note",
		mcp.WithDescription("Check a note against the note grammar and the SmartList catalog. "+
			"Read the markup contract first via the get_markup_contract tool or the "+contractURI+" resource."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Full note text")),
	), s.validateNote)

	s.mcp.AddTool(mcp.NewTool("get_smartlist",
		mcp.WithDescription("Look up a SmartList by id or name and return its allowed options."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("List id (e.g. 1001) or name (e.g. Mood)")),
	), s.getSmartList)

	s.mcp.AddTool(mcp.NewTool("record_selection",
		mcp.WithDescription("Record that a clinician selected value for a SmartList."),
		mcp.WithString("list_id", mcp.Required(), mcp.Description("List id")),
		mcp.WithString("value", mcp.Required(), mcp.Description("Selected option text")),
		mcp.WithString("context", mcp.Description("Free-form note about where the selection was made")),
	), s.recordSelection)

	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List stored note templates."),
	), s.listTemplates)

	s.mcp.AddTool(mcp.NewTool("convert_links",
		mcp.WithDescription("Rewrite @NAME@ SmartLinks to .NAME DotPhrases, or back with reverse."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to convert")),
		mcp.WithBoolean("reverse", mcp.Description("Convert DotPhrases back to SmartLinks")),
	), s.convertLinks)

	s.mcp.AddTool(mcp.NewTool("get_markup_contract",
		mcp.WithDescription("Returns the SmartTools markup and note layout contract. "+
			"Call this before drafting or editing notes."),
	), s.getMarkupContract)

	// Resource: markup contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Markup Contract",
			mcp.WithResourceDescription("SmartTools markup and note layout every note must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
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

func (s *Server) compilePrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("template_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	transcript, err := req.RequireString("transcript")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	creq := noteservice.CompileRequest{TemplateID: id}
	creq.Transcript = transcript
	creq.PriorNote = req.GetString("prior_note", "")
	creq.VisitKind = compiler.VisitKind(req.GetString("visit_kind", ""))
	creq.PriorFactsEnabled = req.GetBool("prior_facts", false)

	prompt, err := s.svc.Compile(ctx, creq)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(prompt)
}

func (s *Server) validateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.Validate(ctx, text))
}

func (s *Server) getSmartList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetSmartList(ctx, ref)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(d.Rendered), nil
}

func (s *Server) recordSelection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	listID, err := req.RequireString("list_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := req.RequireString("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ev, err := s.svc.RecordSelection(ctx, listID, value, req.GetString("context", ""))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("recorded: %s = %s", ev.ListID, ev.Value)), nil
}

func (s *Server) listTemplates(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.svc.ListTemplates(ctx)
	if err != nil {
		return toolError(err), nil
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("no templates found"), nil
	}
	lines := make([]string, 0, len(list))
	for _, t := range list {
		line := t.ID
		if t.Name != "" {
			line += "\t" + t.Name
		}
		lines = append(lines, line)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) convertLinks(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.svc.ConvertLinks(text, req.GetBool("reverse", false))), nil
}

func (s *Server) getMarkupContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(MarkupContract), nil
}

func (s *Server) readContractResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     MarkupContract,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
