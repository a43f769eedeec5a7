// Package grammar checks generated psychiatric notes against the note
// grammar: section structure, per-section content rules and formatting.
package grammar

import (
	"fmt"
	"strings"

	"github.com/starford/smartscribe/internal/models"
)

// Result is the aggregate report plus the findings of each checked section.
type Result struct {
	models.Report
	Sections map[string]models.Report `json:"sections"`
}

// Validator validates notes against a Config.
type Validator struct {
	cfg       Config
	sectioner *Sectioner
	order     map[string]int
}

// New returns a validator for cfg. Unset fields take their defaults.
func New(cfg Config) (*Validator, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("grammar: config: %w", err)
	}
	order := make(map[string]int, len(cfg.Headers))
	for i, h := range cfg.Headers {
		order[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return &Validator{
		cfg:       cfg,
		sectioner: NewSectioner(cfg.Headers),
		order:     order,
	}, nil
}

// Config returns the effective configuration.
func (v *Validator) Config() Config { return v.cfg }

// Section splits text at the configured headers.
func (v *Validator) Section(text string) *SectionedNote {
	return v.sectioner.Split(text)
}

// ValidateNote sections text and runs every rule over it.
func (v *Validator) ValidateNote(text string) Result {
	return v.Check(v.Section(text))
}

// Check runs every rule over an already sectioned note.
func (v *Validator) Check(note *SectionedNote) Result {
	res := Result{Report: models.NewReport(), Sections: map[string]models.Report{}}
	apply := func(name string, rep models.Report) {
		res.Sections[name] = rep
		res.Merge(name, rep)
	}

	structure := v.checkStructure(note)
	if len(structure.Errors)+len(structure.Warnings) > 0 {
		apply("Structure", structure)
	}

	if sec, ok := note.Get(v.cfg.HPI); ok {
		apply(sec.Name, CheckHPI(sec.Body, v.cfg.MinHPIChars))
	}
	if sec, ok := note.Get(v.cfg.PsychiatricHistory); ok {
		apply(sec.Name, CheckPsychiatricHistory(sec.Body))
	}

	if sec, ok := note.Get(v.cfg.Formulation); ok {
		apply(sec.Name, CheckFormulation(sec.Body))
	} else {
		res.Errorf("missing required section %q", v.cfg.Formulation)
	}

	planStart := -1
	if sec, ok := note.Get(v.cfg.Plan); ok {
		planStart = headerOffset(note.Text, sec.Start)
		apply(sec.Name, CheckPlan(sec.Body, note.Text, v.cfg.Signature))
	} else {
		res.Errorf("missing required section %q", v.cfg.Plan)
	}

	apply("Formatting", CheckFormatting(note.Text, planStart))
	return res
}

// checkStructure warns about repeated and out-of-order sections.
func (v *Validator) checkStructure(note *SectionedNote) models.Report {
	r := models.NewReport()
	seen := map[string]bool{}
	last := -1
	for _, s := range note.Sections {
		key := strings.ToLower(s.Name)
		if seen[key] {
			r.Warnf("section %q appears more than once (line %d)", s.Name, s.Line)
			continue
		}
		seen[key] = true
		pos := v.order[key]
		if pos < last {
			r.Warnf("section %q is out of order (line %d)", s.Name, s.Line)
		} else {
			last = pos
		}
	}
	for _, s := range note.Sections {
		if strings.EqualFold(s.Name, v.cfg.Plan) {
			continue
		}
		for _, line := range strings.Split(s.Body, "\n") {
			if looksLikeHeader(line) {
				r.Warnf("unrecognized header %q was merged into section %q", strings.TrimSpace(line), s.Name)
			}
		}
	}
	return r
}

// looksLikeHeader reports whether line is a short capitalized line ending
// in a colon with nothing after it.
func looksLikeHeader(line string) bool {
	line = strings.TrimSpace(line)
	if len(line) < 2 || !strings.HasSuffix(line, ":") {
		return false
	}
	if c := line[0]; c < 'A' || c > 'Z' {
		return false
	}
	return len(strings.Fields(line)) <= 5
}

// headerOffset returns the start of the header line preceding body offset start.
func headerOffset(text string, start int) int {
	if start <= 0 {
		return 0
	}
	end := start - 1
	if end >= len(text) || text[end] != '\n' {
		end = start
	}
	return strings.LastIndexByte(text[:end], '\n') + 1
}
