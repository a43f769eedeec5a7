package catalog

import (
	"context"
	"strings"
	"testing"
)

func TestRenderForPrompt_Example(t *testing.T) {
	c := testCatalog(t)
	out := c.RenderForPrompt("1001")
	if !strings.Contains(out, `"Euthymic" [DEFAULT]`) {
		t.Errorf("missing default marker:\n%s", out)
	}
	if !strings.Contains(out, `{Mood:1001:: "selected value"}`) {
		t.Errorf("missing selected-form syntax:\n%s", out)
	}
	if strings.Contains(out, "[MOST COMMON]") {
		t.Errorf("most common marker without history:\n%s", out)
	}
}

func TestRenderForPrompt_MostCommon(t *testing.T) {
	c := testCatalog(t)
	_, _ = c.RecordSelection(context.Background(), "1001", "Depressed", "")
	out := c.RenderForPrompt("1001")
	if !strings.Contains(out, `"Depressed" [MOST COMMON]`) {
		t.Errorf("missing most common marker:\n%s", out)
	}

	_, _ = c.RecordSelection(context.Background(), "1001", "Euthymic", "")
	_, _ = c.RecordSelection(context.Background(), "1001", "Euthymic", "")
	out = c.RenderForPrompt("1001")
	if !strings.Contains(out, `"Euthymic" [DEFAULT] [MOST COMMON]`) {
		t.Errorf("default and most common should combine:\n%s", out)
	}
}

func TestRenderManyForPrompt(t *testing.T) {
	c := testCatalog(t)
	if got := c.RenderManyForPrompt(nil); got != "" {
		t.Errorf("empty ids rendered %q", got)
	}
	if got := c.RenderManyForPrompt([]string{"42"}); got != "" {
		t.Errorf("unknown ids rendered %q", got)
	}
	out := c.RenderManyForPrompt([]string{"1002", "1001", "1002"})
	if strings.Count(out, "SmartList \"Affect\"") != 1 {
		t.Errorf("duplicate id rendered twice:\n%s", out)
	}
	if strings.Index(out, "Affect") > strings.Index(out, "\"Mood\"") {
		t.Errorf("input order not kept:\n%s", out)
	}
	if !strings.HasPrefix(out, "=== SMARTLIST DEFINITIONS ===") || !strings.HasSuffix(out, "=== END SMARTLIST DEFINITIONS ===") {
		t.Errorf("wrapper missing:\n%s", out)
	}
}

func TestValidateSelectionsInText(t *testing.T) {
	c := testCatalog(t)
	text := `Mood {Mood:1001:: "Anxious"}, affect {Affect:1002:: "Happy"}, ` +
		`sleep {Sleep:204}, other {Other:77:: "x"}`
	r := c.ValidateSelectionsInText(text)
	if r.Valid {
		t.Fatal("report should be invalid")
	}
	if len(r.Errors) != 2 {
		t.Fatalf("errors = %v", r.Errors)
	}
	if !strings.Contains(r.Errors[0], `"Happy" is not an allowed value`) {
		t.Errorf("errors[0] = %q", r.Errors[0])
	}
	if !strings.Contains(r.Errors[1], "unknown SmartList 77") {
		t.Errorf("errors[1] = %q", r.Errors[1])
	}
	if len(r.Warnings) != 1 || !strings.Contains(r.Warnings[0], "204") {
		t.Errorf("warnings = %v", r.Warnings)
	}

	ok := c.ValidateSelectionsInText(`{Mood:1001:: "Euthymic"}`)
	if !ok.Valid || len(ok.Errors) != 0 {
		t.Errorf("legal selection reported %+v", ok)
	}
}
