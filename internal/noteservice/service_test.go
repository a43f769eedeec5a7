package noteservice_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/smartscribe/internal/apperr"
	"github.com/starford/smartscribe/internal/catalog"
	"github.com/starford/smartscribe/internal/compiler"
	"github.com/starford/smartscribe/internal/models"
	"github.com/starford/smartscribe/internal/noteservice"
	"github.com/starford/smartscribe/internal/testutil"
)

func intakeTemplate() models.Template {
	return models.Template{
		ID:        "intake",
		VisitKind: "intake",
		Sections: []models.TemplateSection{
			{Order: 1, Name: "History of Present Illness", Content: "@FNAME@ reports ***. Mood: {Mood:1001}"},
			{Order: 2, Name: "Plan", Content: "Follow-up: ***"},
		},
	}
}

func TestCompile_ByTemplateID(t *testing.T) {
	svc, _, store := testutil.TestService(t)
	if err := store.Put(intakeTemplate()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	p, err := svc.Compile(context.Background(), noteservice.CompileRequest{
		TemplateID: "intake",
		Request:    compiler.Request{Transcript: "Patient: I feel down."},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if strings.Join(p.ListIDs, ",") != "1001" {
		t.Errorf("ListIDs = %v", p.ListIDs)
	}
	if !strings.Contains(p.Text, testutil.Signature) {
		t.Error("signature instruction missing")
	}
}

func TestCompile_UnknownTemplate(t *testing.T) {
	svc, _, _ := testutil.TestService(t)
	_, err := svc.Compile(context.Background(), noteservice.CompileRequest{
		TemplateID: "missing",
		Request:    compiler.Request{Transcript: "x"},
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestValidate(t *testing.T) {
	svc, _, _ := testutil.TestService(t)
	res := svc.Validate(context.Background(), testutil.ValidNote)
	if !res.Valid {
		t.Fatalf("errors = %v", res.Errors)
	}
	if res.Markup.Lists != 1 || res.Markup.Selected != 1 {
		t.Errorf("markup = %+v", res.Markup)
	}

	bad := strings.Replace(testutil.ValidNote, `"Depressed"`, `"Elated"`, 1)
	res = svc.Validate(context.Background(), bad)
	if res.Valid || len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "SmartLists: ") {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestGenerate(t *testing.T) {
	stub := &testutil.StubCompleter{Text: strings.Replace(testutil.ValidNote, ".FNAME reports", "@FNAME@ reports", 1)}
	svc, _, _ := testutil.TestService(t, noteservice.WithCompleter(stub))

	res, err := svc.Generate(context.Background(), noteservice.CompileRequest{
		Request: compiler.Request{Template: intakeTemplate(), Transcript: "Patient: I feel down."},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if strings.Contains(res.Note, "@FNAME@") {
		t.Error("links were not converted")
	}
	if !res.Validation.Valid {
		t.Errorf("validation errors = %v", res.Validation.Errors)
	}
	prompts := stub.Prompts()
	if len(prompts) != 1 || prompts[0] != res.Prompt.Text {
		t.Error("completer did not receive the compiled prompt")
	}
}

func TestGenerate_NoCompleter(t *testing.T) {
	svc, _, _ := testutil.TestService(t)
	_, err := svc.Generate(context.Background(), noteservice.CompileRequest{})
	if !errors.Is(err, apperr.ErrNotConfigured) {
		t.Errorf("err = %v", err)
	}
}

func TestGenerate_CompleterError(t *testing.T) {
	boom := errors.New("upstream down")
	svc, _, _ := testutil.TestService(t, noteservice.WithCompleter(&testutil.StubCompleter{Err: boom}))
	_, err := svc.Generate(context.Background(), noteservice.CompileRequest{
		Request: compiler.Request{Template: intakeTemplate(), Transcript: "x"},
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
}

func TestTemplateLifecycle(t *testing.T) {
	svc, _, _ := testutil.TestService(t)
	ctx := context.Background()

	created, err := svc.CreateTemplate(ctx, intakeTemplate())
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if _, err := svc.CreateTemplate(ctx, intakeTemplate()); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate create err = %v", err)
	}

	tpl := intakeTemplate()
	tpl.Name = "Updated"
	if _, err := svc.UpdateTemplate(ctx, tpl, "stale"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale update err = %v", err)
	}
	updated, err := svc.UpdateTemplate(ctx, tpl, created.Revision)
	if err != nil {
		t.Fatalf("UpdateTemplate: %v", err)
	}
	if updated.Name != "Updated" || updated.Revision == created.Revision {
		t.Errorf("updated = %+v", updated)
	}

	list, _ := svc.ListTemplates(ctx)
	if len(list) != 1 {
		t.Errorf("templates = %d", len(list))
	}
	if err := svc.DeleteTemplate(ctx, "intake"); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	if _, err := svc.GetTemplate(ctx, "intake"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
}

func TestSmartLists(t *testing.T) {
	svc, _, _ := testutil.TestService(t)
	ctx := context.Background()

	if got := svc.ListSmartLists(ctx, "mental_status"); len(got) != 2 {
		t.Errorf("group lists = %d", len(got))
	}
	if got := svc.ListSmartLists(ctx, "nope"); got == nil || len(got) != 0 {
		t.Errorf("unknown group = %v", got)
	}

	for _, v := range []string{"Anxious", "Anxious", "Depressed"} {
		if _, err := svc.RecordSelection(ctx, "1001", v, ""); err != nil {
			t.Fatalf("RecordSelection: %v", err)
		}
	}
	if _, err := svc.RecordSelection(ctx, "1001", "Elated", ""); !errors.Is(err, apperr.ErrInvalidSelection) {
		t.Errorf("illegal value err = %v", err)
	}

	d, err := svc.GetSmartList(ctx, "mood")
	if err != nil {
		t.Fatalf("GetSmartList: %v", err)
	}
	if d.ID != "1001" || d.MostFrequent != "Anxious" || d.Usage["Anxious"] != 2 {
		t.Errorf("detail = %+v", d)
	}
	if !strings.Contains(d.Rendered, `"Anxious" [MOST COMMON]`) {
		t.Errorf("rendered = %q", d.Rendered)
	}
	if _, err := svc.GetSmartList(ctx, "9999"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown list err = %v", err)
	}
}

func TestImportCatalog_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartlists.csv")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	svc, cat, _ := testutil.TestService(t, noteservice.WithCatalogFile(path))
	ctx := context.Background()

	csv := "list_id,names,option_text,is_default\n3000,Insight,Good,true\n3000,Insight,Poor,false\n"
	n, err := svc.ImportCatalog(ctx, strings.NewReader(csv), catalog.FormatCSV)
	if err != nil {
		t.Fatalf("ImportCatalog: %v", err)
	}
	if n != 1 {
		t.Errorf("n = %d", n)
	}
	if _, ok := cat.LookupByID("1001"); ok {
		t.Error("import should replace the whole catalog")
	}

	lists, err := catalog.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(lists) != 1 || lists[0].ID != "3000" {
		t.Errorf("persisted lists = %+v", lists)
	}

	var buf bytes.Buffer
	if err := svc.ExportCatalog(ctx, &buf, catalog.FormatCSV); err != nil {
		t.Fatalf("ExportCatalog: %v", err)
	}
	if !strings.Contains(buf.String(), "3000,Insight,,Good,1,true") {
		t.Errorf("export = %q", buf.String())
	}
}

func TestImportCatalog_InvalidKeepsCatalog(t *testing.T) {
	svc, cat, _ := testutil.TestService(t)
	_, err := svc.ImportCatalog(context.Background(), strings.NewReader("list_id,names,option_text\nabc,X,Y\n"), catalog.FormatCSV)
	if !errors.Is(err, apperr.ErrInvalidCatalog) {
		t.Errorf("err = %v", err)
	}
	if _, ok := cat.LookupByID("1001"); !ok {
		t.Error("catalog changed after failed import")
	}
}

func TestImportCatalog_WriteFailureKeepsCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "smartlists.yaml")
	n := &recordingNotifier{}
	svc, cat, _ := testutil.TestService(t, noteservice.WithCatalogFile(path), noteservice.WithNotifier(n))

	csv := "list_id,names,option_text\n3000,Insight,Good\n"
	if _, err := svc.ImportCatalog(context.Background(), strings.NewReader(csv), catalog.FormatCSV); err == nil {
		t.Fatal("expected persist error")
	}
	if _, ok := cat.LookupByID("1001"); !ok {
		t.Error("catalog replaced although the file was not written")
	}
	if _, ok := cat.LookupByID("3000"); ok {
		t.Error("imported list is live although the file was not written")
	}
	if len(n.types) != 0 {
		t.Errorf("events = %v", n.types)
	}
}

type recordingNotifier struct {
	types []string
}

func (n *recordingNotifier) Notify(eventType string, _ any) {
	n.types = append(n.types, eventType)
}

func TestNotifications(t *testing.T) {
	n := &recordingNotifier{}
	svc, _, _ := testutil.TestService(t, noteservice.WithNotifier(n))
	ctx := context.Background()

	if _, err := svc.RecordSelection(ctx, "1001", "Elated", ""); err == nil {
		t.Fatal("illegal selection should fail")
	}
	if _, err := svc.RecordSelection(ctx, "1001", "Anxious", ""); err != nil {
		t.Fatalf("RecordSelection: %v", err)
	}
	if _, err := svc.CreateTemplate(ctx, intakeTemplate()); err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if err := svc.DeleteTemplate(ctx, "intake"); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	csv := "list_id,names,option_text\n3000,Insight,Good\n"
	if _, err := svc.ImportCatalog(ctx, strings.NewReader(csv), catalog.FormatCSV); err != nil {
		t.Fatalf("ImportCatalog: %v", err)
	}

	want := []string{
		noteservice.EventSelectionRecorded,
		noteservice.EventTemplateSaved,
		noteservice.EventTemplateDeleted,
		noteservice.EventCatalogReplaced,
	}
	if strings.Join(n.types, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", n.types, want)
	}
}
