package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/smartscribe/internal/models"
	"github.com/starford/smartscribe/internal/templates"
	"github.com/starford/smartscribe/internal/testutil"
)

func testServer(t *testing.T) (*Server, *templates.Store) {
	t.Helper()
	svc, _, store := testutil.TestService(t)
	tpl := models.Template{
		ID:   "intake",
		Name: "Psychiatric intake",
		Sections: []models.TemplateSection{
			{Order: 1, Name: "History of Present Illness", Content: "@FNAME@ reports ***. Mood: {Mood:1001}"},
		},
	}
	if err := store.Put(tpl); err != nil {
		t.Fatal(err)
	}
	return New(svc, "test"), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no direct "call tool" test helper, so handlers are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "compile_prompt":
		result, err = srv.compilePrompt(ctx, req)
	case "validate_note":
		result, err = srv.validateNote(ctx, req)
	case "get_smartlist":
		result, err = srv.getSmartList(ctx, req)
	case "record_selection":
		result, err = srv.recordSelection(ctx, req)
	case "list_templates":
		result, err = srv.listTemplates(ctx, req)
	case "convert_links":
		result, err = srv.convertLinks(ctx, req)
	case "get_markup_contract":
		result, err = srv.getMarkupContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCompilePrompt(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "compile_prompt", map[string]interface{}{
		"template_id": "intake",
		"transcript":  "Patient reports poor sleep.",
	})
	if r.IsError {
		t.Fatalf("compile error: %s", resultText(r))
	}
	text := resultText(r)
	if !strings.Contains(text, `"content_hash"`) || !strings.Contains(text, "Patient reports poor sleep.") {
		t.Errorf("compile result = %s", text)
	}
}

func TestCompilePrompt_Errors(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "compile_prompt", map[string]interface{}{"template_id": "intake"})
	if !r.IsError {
		t.Error("expected error for missing transcript")
	}

	r = callTool(t, srv, "compile_prompt", map[string]interface{}{"template_id": "nope", "transcript": "x"})
	if !r.IsError {
		t.Error("expected error for unknown template")
	}
}

func TestValidateNote(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "validate_note", map[string]interface{}{"text": testutil.ValidNote})
	if text := resultText(r); !strings.Contains(text, `"valid": true`) {
		t.Errorf("valid note result = %s", text)
	}

	r = callTool(t, srv, "validate_note", map[string]interface{}{"text": "Plan:\nnothing"})
	if text := resultText(r); !strings.Contains(text, `"valid": false`) {
		t.Errorf("invalid note result = %s", text)
	}
}

func TestGetSmartList(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_smartlist", map[string]interface{}{"ref": "Mood"})
	if r.IsError || !strings.Contains(resultText(r), "Euthymic") {
		t.Errorf("get_smartlist = %q", resultText(r))
	}

	r = callTool(t, srv, "get_smartlist", map[string]interface{}{"ref": "9999"})
	if !r.IsError {
		t.Error("expected error for missing list")
	}
}

func TestRecordSelection(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "record_selection", map[string]interface{}{"list_id": "1001", "value": "Anxious"})
	if text := resultText(r); text != "recorded: 1001 = Anxious" {
		t.Errorf("record result = %q", text)
	}

	r = callTool(t, srv, "record_selection", map[string]interface{}{"list_id": "1001", "value": "Elated"})
	if !r.IsError {
		t.Error("expected error for value outside the list")
	}
}

func TestListTemplates(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_templates", map[string]interface{}{})
	if text := resultText(r); text != "intake\tPsychiatric intake" {
		t.Errorf("list_templates = %q", text)
	}
}

func TestConvertLinks(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "convert_links", map[string]interface{}{"text": "@FNAME@ is @AGE@"})
	if text := resultText(r); text != ".FNAME is .AGE" {
		t.Errorf("convert = %q", text)
	}

	r = callTool(t, srv, "convert_links", map[string]interface{}{"text": ".FNAME", "reverse": true})
	if text := resultText(r); text != "@FNAME@" {
		t.Errorf("reverse = %q", text)
	}
}

func TestMarkupContract(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_markup_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "Selected SmartList") {
		t.Error("contract text missing SmartList forms")
	}

	contents, err := srv.readContractResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != contractURI {
		t.Errorf("resource = %+v", contents)
	}
}
