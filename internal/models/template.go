// Package models defines the domain types shared by the smartscribe packages.
package models

import (
	"fmt"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Template is a note template made of ordered markup sections.
type Template struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name,omitempty" yaml:"name"`
	VisitKind string            `json:"visit_kind,omitempty" yaml:"visit_kind"`
	Sections  []TemplateSection `json:"sections" yaml:"sections"`
}

// TemplateSection is one named block of a template. Content holds SmartTools markup.
type TemplateSection struct {
	Order    int    `json:"order" yaml:"order"`
	Name     string `json:"name" yaml:"name"`
	Content  string `json:"content" yaml:"content"`
	Exemplar string `json:"exemplar,omitempty" yaml:"exemplar"`
}

// OrderedSections returns a copy of the sections sorted by Order. Sections
// sharing an order keep their declared position.
func (t Template) OrderedSections() []TemplateSection {
	out := make([]TemplateSection, len(t.Sections))
	copy(out, t.Sections)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Validate checks that the template has at least one section and that
// section names are unique, ignoring case.
func (t Template) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Sections, validation.Required, validation.By(uniqueSectionNames)),
	)
}

// Validate checks a single section.
func (s TemplateSection) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.Order, validation.Min(0)),
	)
}

func uniqueSectionNames(value interface{}) error {
	sections, _ := value.([]TemplateSection)
	seen := make(map[string]struct{}, len(sections))
	for _, s := range sections {
		key := strings.ToLower(strings.TrimSpace(s.Name))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate section %q", s.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}
