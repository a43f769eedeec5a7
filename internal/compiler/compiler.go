// Package compiler assembles a deterministic LLM prompt from a template,
// a transcript and optional prior-visit context.
package compiler

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/starford/smartscribe/internal/catalog"
	"github.com/starford/smartscribe/internal/checksum"
	"github.com/starford/smartscribe/internal/markup"
	"github.com/starford/smartscribe/internal/models"
)

// Vocabulary is the catalog surface the compiler needs.
type Vocabulary interface {
	Resolve(label, id string) (catalog.List, bool)
	RenderManyForPrompt(ids []string) string
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for dropped references.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSignature sets the signing-clinician line the note must end with.
func WithSignature(signature string) Option {
	return func(c *Compiler) {
		c.signature = strings.TrimSpace(signature)
	}
}

// Compiler turns requests into prompts. It holds no mutable state.
type Compiler struct {
	vocab     Vocabulary
	signature string
	logger    *slog.Logger
}

// New returns a compiler reading SmartList definitions from vocab.
func New(vocab Vocabulary, opts ...Option) *Compiler {
	c := &Compiler{vocab: vocab, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

type block struct {
	name string
	text string
}

// Compile validates req and assembles its prompt.
func (c *Compiler) Compile(req Request) (*models.CompiledPrompt, error) {
	if err := req.Validate(); err != nil {
		return nil, &CompileError{Reason: "invalid request", Err: err}
	}

	sections := req.Template.OrderedSections()
	ids, warnings := c.referencedLists(sections)

	var facts Facts
	if req.kind() == VisitFollowUp && req.PriorFactsEnabled && strings.TrimSpace(req.PriorNote) != "" {
		facts = ExtractFacts(req.PriorNote)
	}

	blocks := []block{{name: "role", text: roleBlock(req.kind())}}
	if !facts.Empty() {
		blocks = append(blocks, block{name: "prior_facts", text: factsBlock(facts)})
	}
	if defs := c.vocab.RenderManyForPrompt(ids); defs != "" {
		blocks = append(blocks, block{name: "smartlists", text: defs})
	}
	blocks = append(blocks, block{name: "template", text: templateBlock(sections)})
	if facts.Empty() {
		if prior := strings.TrimSpace(req.PriorNote); prior != "" {
			blocks = append(blocks, block{name: "prior_note", text: "=== PRIOR NOTE ===\n" + prior})
		} else if hist := historicalBlock(req.HistoricalNotes); hist != "" {
			blocks = append(blocks, block{name: "historical_notes", text: hist})
		}
	}
	blocks = append(blocks,
		block{name: "transcript", text: "=== TRANSCRIPT ===\n" + strings.TrimSpace(req.Transcript)},
		block{name: "instructions", text: c.instructionsBlock()},
	)

	texts := make([]string, len(blocks))
	stats := make([]models.BlockStat, len(blocks))
	words := 0
	for i, b := range blocks {
		texts[i] = b.text
		n := len(strings.Fields(b.text))
		stats[i] = models.BlockStat{Name: b.name, Words: n, Chars: utf8.RuneCountInString(b.text)}
		words += n
	}
	text := strings.Join(texts, "\n\n") + "\n"

	return &models.CompiledPrompt{
		Text:        text,
		ContentHash: checksum.Short(text),
		Sections:    stats,
		WordCount:   words,
		ListIDs:     ids,
		Warnings:    warnings,
	}, nil
}

// referencedLists collects the ids of every SmartList referenced by the
// sections, resolved through the vocabulary and sorted numerically.
func (c *Compiler) referencedLists(sections []models.TemplateSection) ([]string, []string) {
	seen := map[string]struct{}{}
	warned := map[string]struct{}{}
	var ids, warnings []string
	for _, s := range sections {
		for _, o := range markup.Filter(markup.Parse(s.Content), markup.KindList) {
			l, ok := c.vocab.Resolve(o.Label, o.ListID)
			if !ok {
				msg := fmt.Sprintf("section %q: unresolvable smartlist reference {%s:%s}", s.Name, o.Label, o.ListID)
				if _, dup := warned[msg]; !dup {
					warned[msg] = struct{}{}
					warnings = append(warnings, msg)
					c.logger.Warn("compiler: unresolvable smartlist reference",
						slog.String("section", s.Name),
						slog.String("label", o.Label),
						slog.String("list_id", o.ListID),
					)
				}
				continue
			}
			if _, dup := seen[l.ID]; dup {
				continue
			}
			seen[l.ID] = struct{}{}
			ids = append(ids, l.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids, warnings
}

func roleBlock(kind VisitKind) string {
	var b strings.Builder
	b.WriteString("=== ROLE ===\n")
	b.WriteString("You are a psychiatric clinical documentation assistant. ")
	b.WriteString("Write the note described by the template below using only information stated in the transcript")
	if kind == VisitFollowUp {
		b.WriteString(" and the prior visit context. This is a follow-up visit: document interval changes since the prior visit.")
	} else {
		b.WriteString(". This is an initial psychiatric evaluation.")
	}
	return b.String()
}

func factsBlock(f Facts) string {
	var b strings.Builder
	b.WriteString("=== PRIOR VISIT FACTS ===\n")
	b.WriteString("Use these values verbatim. Do not re-derive them from the transcript.\n")
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	line("Patient name", f.PatientName)
	line("Age", f.Age)
	line("Provider", f.Provider)
	line("Prior visit date", f.VisitDate)
	line("Diagnosis codes", strings.Join(f.DiagnosisCodes, ", "))
	if len(f.Medications) > 0 {
		b.WriteString("Current medications:\n")
		for _, m := range f.Medications {
			fmt.Fprintf(&b, "  %s\n", m)
		}
	}
	if f.PriorPlan != "" {
		b.WriteString("Prior plan:\n")
		b.WriteString(f.PriorPlan)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func templateBlock(sections []models.TemplateSection) string {
	var b strings.Builder
	b.WriteString("=== TEMPLATE ===")
	for i, s := range sections {
		fmt.Fprintf(&b, "\n\n--- Section %d: %s ---\n", i+1, s.Name)
		b.WriteString(strings.TrimSpace(s.Content))
		if ex := strings.TrimSpace(s.Exemplar); ex != "" {
			b.WriteString("\n\nExemplar for this section (match its style, not its facts):\n")
			b.WriteString(ex)
		}
	}
	return b.String()
}

func historicalBlock(notes []string) string {
	var parts []string
	for _, n := range notes {
		if n = strings.TrimSpace(n); n != "" {
			parts = append(parts, n)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("=== HISTORICAL NOTES ===")
	for i, n := range parts {
		fmt.Fprintf(&b, "\n\n--- Note %d ---\n%s", i+1, n)
	}
	return b.String()
}

func (c *Compiler) instructionsBlock() string {
	lines := []string{
		"=== OUTPUT INSTRUCTIONS ===",
		"Write each template section in order, using the section name alone on its line as the header.",
		`Fill every SmartList with exactly one allowed value using the form {Label:ID:: "value"}.`,
		"Write SmartLinks as DotPhrases (.NAME instead of @NAME@).",
		"Leave *** wherever the transcript does not provide the information.",
		"Use prose paragraphs in every section before the Plan. Do not use bulleted or numbered lists there.",
	}
	if c.signature != "" {
		lines = append(lines, fmt.Sprintf("End the note with this exact line and nothing after it: %s", c.signature))
	}
	return strings.Join(lines, "\n")
}
