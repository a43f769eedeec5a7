package grammar

import (
	"strings"
	"testing"
)

const testSignature = "Jane Clinician, MD"

const validNote = `Chief Complaint:
"I have been feeling down."

History of Present Illness:
.FNAME reports a depressed mood that began about three months ago after a job loss. Symptoms have been moderate and persistent, worsening over the past month.

She describes difficulty sleeping, reduced appetite, and missing work. She has withdrawn from friends and family.

Past Psychiatric History:
Denies prior psychiatric hospitalizations. Denies history of self-harm or suicide attempts.

Formulation:
.FNAME is a 34 year old woman who presents for initial psychiatric evaluation of low mood.

Her presentation is most consistent with a diagnosis of major depressive disorder, single episode, moderate (F32.1). Biological factors include a family history of depression; psychological factors include negative self-appraisal; social factors include recent job loss.

The differential includes adjustment disorder, which is less likely because symptom severity exceeds an expected stress response. Bipolar disorder is unlikely given no history of mania.

Treatment will focus on pharmacotherapy and psychotherapy as follows:

Plan:
Medications: Start sertraline 50 mg daily.
Psychotherapy Referral: Referred to CBT.
Therapy Conducted: Supportive therapy for 20 minutes.
Follow-up: Return in 4 weeks or sooner if needed.
Jane Clinician, MD
`

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := New(DefaultConfig(testSignature))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return v
}

func TestValidateNote_Valid(t *testing.T) {
	v := newValidator(t)
	res := v.ValidateNote(validNote)
	if !res.Valid {
		t.Fatalf("expected valid note, errors: %v", res.Errors)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("errors = %v", res.Errors)
	}
	for _, name := range []string{"History of Present Illness", "Formulation", "Plan", "Formatting"} {
		if _, ok := res.Sections[name]; !ok {
			t.Errorf("missing section report %q", name)
		}
	}
}

func TestValidateNote_FormulationParagraphCount(t *testing.T) {
	v := newValidator(t)
	note := strings.Replace(validNote,
		"The differential includes adjustment disorder, which is less likely because symptom severity exceeds an expected stress response. Bipolar disorder is unlikely given no history of mania.\n\n",
		"", 1)

	res := v.ValidateNote(note)
	if res.Valid {
		t.Fatal("expected invalid note")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected exactly 1 error, got %v", res.Errors)
	}
	if !strings.Contains(res.Errors[0], "found 3") {
		t.Errorf("error = %q, want paragraph count", res.Errors[0])
	}
}

func TestValidateNote_TrailingTextAfterSignature(t *testing.T) {
	v := newValidator(t)
	res := v.ValidateNote(validNote + "\nAddendum: reviewed with attending.\n")
	if len(res.Errors) != 1 {
		t.Fatalf("expected exactly 1 error, got %v", res.Errors)
	}
	if !strings.Contains(res.Errors[0], "last line") {
		t.Errorf("error = %q, want placement error", res.Errors[0])
	}
}

func TestValidateNote_MissingSignature(t *testing.T) {
	v := newValidator(t)
	res := v.ValidateNote(strings.Replace(validNote, testSignature+"\n", "", 1))
	if len(res.Errors) != 1 {
		t.Fatalf("expected exactly 1 error, got %v", res.Errors)
	}
	if !strings.Contains(res.Errors[0], "missing closing signature") {
		t.Errorf("error = %q", res.Errors[0])
	}
}

func TestValidateNote_MissingSections(t *testing.T) {
	v := newValidator(t)
	res := v.ValidateNote("History of Present Illness:\nShort.\n")
	if res.Valid {
		t.Fatal("expected invalid")
	}
	var formulation, plan bool
	for _, e := range res.Errors {
		if strings.Contains(e, `missing required section "Formulation"`) {
			formulation = true
		}
		if strings.Contains(e, `missing required section "Plan"`) {
			plan = true
		}
	}
	if !formulation || !plan {
		t.Errorf("errors = %v", res.Errors)
	}
}

func TestValidateNote_ListBeforePlan(t *testing.T) {
	v := newValidator(t)
	note := strings.Replace(validNote, "She describes difficulty sleeping", "- She describes difficulty sleeping", 1)
	res := v.ValidateNote(note)
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "Formatting: list formatting") {
		t.Fatalf("errors = %v", res.Errors)
	}
}

func TestValidateNote_LeftoverLink(t *testing.T) {
	v := newValidator(t)
	note := strings.Replace(validNote, ".FNAME reports", "@FNAME@ reports", 1)
	res := v.ValidateNote(note)
	if len(res.Errors) != 1 || !strings.Contains(res.Errors[0], "@FNAME@") {
		t.Fatalf("errors = %v", res.Errors)
	}
}

func TestValidateNote_StructureWarnings(t *testing.T) {
	v := newValidator(t)
	note := "Plan:\nx\n\nChief Complaint:\ny\n\nChief Complaint:\nz\n"
	res := v.ValidateNote(note)
	rep, ok := res.Sections["Structure"]
	if !ok {
		t.Fatal("missing structure report")
	}
	if len(rep.Warnings) != 2 {
		t.Fatalf("warnings = %v", rep.Warnings)
	}
}

func TestValidateNote_UnrecognizedHeaderFlagged(t *testing.T) {
	v := newValidator(t)
	note := strings.Replace(validNote, "Past Psychiatric History:\n", "Past Psychiatric History:\nPrior Treatment:\n", 1)
	res := v.ValidateNote(note)
	if !res.Valid {
		t.Fatalf("errors = %v", res.Errors)
	}
	rep := res.Sections["Structure"]
	if len(rep.Warnings) != 1 || !strings.Contains(rep.Warnings[0], `"Prior Treatment:"`) {
		t.Fatalf("warnings = %v", rep.Warnings)
	}
}

func TestSection(t *testing.T) {
	v := newValidator(t)
	note := v.Section("Seen today.\n\nCHIEF COMPLAINT\nanxiety\nAssessment:\nnot a header\nplan:\nfollow up\n")

	if note.Preamble != "Seen today." {
		t.Errorf("preamble = %q", note.Preamble)
	}
	if len(note.Sections) != 2 {
		t.Fatalf("sections = %+v", note.Sections)
	}
	cc := note.Sections[0]
	if cc.Name != "Chief Complaint" || cc.Line != 3 {
		t.Errorf("first section = %+v", cc)
	}
	if cc.Body != "anxiety\nAssessment:\nnot a header\n" {
		t.Errorf("body = %q", cc.Body)
	}
	if p, ok := note.Get("PLAN"); !ok || p.Body != "follow up\n" {
		t.Errorf("plan = %+v, %v", p, ok)
	}
}

func TestParagraphs(t *testing.T) {
	got := Paragraphs("\n one\ntwo \n\n \n three\n\n")
	if len(got) != 2 || got[0] != "one\ntwo" || got[1] != "three" {
		t.Fatalf("got %q", got)
	}
}

func TestCheckHPI(t *testing.T) {
	rep := CheckHPI("Feels sad.", DefaultMinHPIChars)
	if len(rep.Errors) != 1 {
		t.Errorf("errors = %v", rep.Errors)
	}
	if len(rep.Warnings) != 3 {
		t.Errorf("warnings = %v", rep.Warnings)
	}

	long := strings.Repeat("Mood has been moderately low for weeks and affects work. ", 10)
	if rep := CheckHPI(long, DefaultMinHPIChars); len(rep.Errors) != 0 || len(rep.Warnings) != 0 {
		t.Errorf("long single paragraph: %+v", rep)
	}
}

func TestCheckPsychiatricHistory(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		warnings int
	}{
		{"denied", "Denies prior hospitalizations. No history of self-harm.", 0},
		{"placeholder", "Hospitalized *** times.", 0},
		{"asserted", "Was hospitalized twice in 2019. Reports cutting as a teen.", 2},
		{"mixed", "Denies self-harm. Admitted to an inpatient unit last year.", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := CheckPsychiatricHistory(tt.body)
			if len(rep.Warnings) != tt.warnings {
				t.Errorf("warnings = %v, want %d", rep.Warnings, tt.warnings)
			}
			if !rep.Valid {
				t.Errorf("psychiatric history never errors: %v", rep.Errors)
			}
		})
	}
}

func TestCheckFormulation_ParagraphRules(t *testing.T) {
	body := strings.Join([]string{
		"The patient presents for evaluation.",
		"Symptoms are notable.",
		"Anxiety is also present.",
		"Continue current care.",
	}, "\n\n")
	rep := CheckFormulation(body)
	want := []string{
		"paragraph 1 must open",
		"paragraph 2 must state a diagnosis",
		"missing biological, psychological, social",
		"paragraph 3 must open",
		"paragraph 3 must explain",
		"paragraph 4 must open",
	}
	if len(rep.Errors) != len(want) {
		t.Fatalf("errors = %v", rep.Errors)
	}
	for i, w := range want {
		if !strings.Contains(rep.Errors[i], w) {
			t.Errorf("error %d = %q, want %q", i, rep.Errors[i], w)
		}
	}
	if len(rep.Warnings) != 2 {
		t.Errorf("warnings = %v", rep.Warnings)
	}
}

func TestCheckFormulation_IdentificationForms(t *testing.T) {
	for _, opening := range []string{
		"Jane Doe is a 34-year-old woman",
		"Mr. Smith is a 45 year old man",
		"@FNAME@ is a @AGE@ year old patient",
		"*** is an *** year old",
	} {
		if !identificationRe.MatchString(opening) {
			t.Errorf("%q should match", opening)
		}
	}
	if identificationRe.MatchString("the patient is a 34 year old") {
		t.Error("lowercase opening should not match")
	}
}

func TestCheckPlan(t *testing.T) {
	body := "Medications: none\nTherapy Conducted: supportive therapy\nFollow-up: next month\n" + testSignature + "\n"
	rep := CheckPlan(body, "Plan:\n"+body, testSignature)
	want := []string{
		`missing required sub-header "Psychotherapy Referral"`,
		"session duration in minutes",
		"or sooner if needed",
	}
	if len(rep.Errors) != len(want) {
		t.Fatalf("errors = %v", rep.Errors)
	}
	for i, w := range want {
		if !strings.Contains(rep.Errors[i], w) {
			t.Errorf("error %d = %q, want %q", i, rep.Errors[i], w)
		}
	}
	if len(rep.Warnings) != 1 {
		t.Errorf("warnings = %v", rep.Warnings)
	}
}

func TestCheckPlan_SignatureOutsidePlan(t *testing.T) {
	body := "Medications: none\nPsychotherapy Referral: none\nTherapy Conducted: 30 minutes\nFollow-up: 2 weeks or sooner\n"
	note := "Plan:\n" + body + "\nSocial History:\n" + testSignature + "\n"
	rep := CheckPlan(body, note, testSignature)
	if len(rep.Errors) != 1 || !strings.Contains(rep.Errors[0], "close the Plan") {
		t.Fatalf("errors = %v", rep.Errors)
	}
}

func TestCheckFormatting_BlankRuns(t *testing.T) {
	rep := CheckFormatting("a\n\n\n\nb", -1)
	if !rep.Valid || len(rep.Warnings) != 1 {
		t.Fatalf("report = %+v", rep)
	}
}

func TestCheckFormatting_ListsAllowedInPlan(t *testing.T) {
	note := "Formulation:\ntext\nPlan:\n- item\n1. item\n"
	rep := CheckFormatting(note, strings.Index(note, "Plan:"))
	if !rep.Valid {
		t.Fatalf("errors = %v", rep.Errors)
	}
	if rep := CheckFormatting(note, -1); rep.Valid {
		t.Fatal("expected list error without a plan boundary")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig("")
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing signature")
	}

	cfg = DefaultConfig(testSignature)
	cfg.Plan = "Disposition"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown role header")
	}

	if _, err := New(Config{Signature: testSignature}); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
