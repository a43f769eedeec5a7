package compiler

import (
	"regexp"
	"strings"

	"github.com/starford/smartscribe/internal/grammar"
)

// Facts are values lifted from a prior note so the model copies them
// instead of re-deriving them.
type Facts struct {
	PatientName    string   `json:"patient_name,omitempty"`
	Age            string   `json:"age,omitempty"`
	Provider       string   `json:"provider,omitempty"`
	VisitDate      string   `json:"visit_date,omitempty"`
	DiagnosisCodes []string `json:"diagnosis_codes,omitempty"`
	Medications    []string `json:"medications,omitempty"`
	PriorPlan      string   `json:"prior_plan,omitempty"`
}

// Empty reports whether nothing was extracted.
func (f Facts) Empty() bool {
	return f.PatientName == "" && f.Age == "" && f.Provider == "" && f.VisitDate == "" &&
		len(f.DiagnosisCodes) == 0 && len(f.Medications) == 0 && f.PriorPlan == ""
}

var (
	identRe     = regexp.MustCompile(`(?m)^[ \t]*([A-Z][\w'\-]*\.?(?:[ \t]+[A-Z][\w'\-]*\.?){0,3}),?\s+(?i:is\s+an?)\s+(\d{1,3})[\s-]+(?i:years?)[\s-]+(?i:old)\b`)
	nameLineRe  = regexp.MustCompile(`(?im)^[ \t]*(?:patient(?:[ \t]+name)?|name)[ \t]*:[ \t]*(\S.*?)[ \t]*$`)
	providerRe  = regexp.MustCompile(`(?im)^[ \t]*(?:provider|clinician|attending|psychiatrist|seen[ \t]+by)[ \t]*:[ \t]*(\S.*?)[ \t]*$`)
	credLineRe  = regexp.MustCompile(`(?m)^[ \t]*(\S.*,[ \t]*(?:MD|DO|NP|PA-C|PMHNP(?:-BC)?|APRN|PhD|PsyD))[ \t]*$`)
	dateLineRe  = regexp.MustCompile(`(?im)^[ \t]*(?:date(?:[ \t]+of[ \t]+(?:service|visit))?|visit[ \t]+date|DOS)[ \t]*:[ \t]*(\S.*?)[ \t]*$`)
	anyDateRe   = regexp.MustCompile(`\b(?:\d{1,2}/\d{1,2}/\d{2,4}|\d{4}-\d{2}-\d{2})\b`)
	icdRe       = regexp.MustCompile(`\b[A-TV-Z]\d{2}\.\d{1,4}[A-Z]?\b`)
	bulletStrip = regexp.MustCompile(`^(?:[-*•+]|\d{1,2}[.)])\s+`)
)

var factSectioner = grammar.NewSectioner(grammar.DefaultHeaders)

// ExtractFacts pulls patient, provider, date, diagnosis code, medication
// and plan facts out of note on a best-effort basis.
func ExtractFacts(note string) Facts {
	var f Facts
	if m := identRe.FindStringSubmatch(note); m != nil {
		f.PatientName, f.Age = m[1], m[2]
	}
	if m := nameLineRe.FindStringSubmatch(note); m != nil {
		f.PatientName = m[1]
	}
	if m := providerRe.FindStringSubmatch(note); m != nil {
		f.Provider = m[1]
	} else if all := credLineRe.FindAllStringSubmatch(note, -1); len(all) > 0 {
		f.Provider = all[len(all)-1][1]
	}
	if m := dateLineRe.FindStringSubmatch(note); m != nil {
		f.VisitDate = m[1]
	} else if d := anyDateRe.FindString(note); d != "" {
		f.VisitDate = d
	}
	f.DiagnosisCodes = uniqueStrings(icdRe.FindAllString(note, -1))

	if plan, ok := factSectioner.Split(note).Get("Plan"); ok {
		f.PriorPlan = strings.TrimSpace(plan.Body)
		if f.Provider != "" {
			f.PriorPlan = strings.TrimSpace(strings.TrimSuffix(f.PriorPlan, f.Provider))
		}
		for _, b := range grammar.SplitPlan(plan.Body, f.Provider) {
			if b.Name == "Medications" {
				f.Medications = medicationLines(b.Text)
			}
		}
	}
	return f
}

func medicationLines(text string) []string {
	var out []string
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == ';' }) {
		line = strings.TrimSpace(bulletStrip.ReplaceAllString(strings.TrimSpace(line), ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
