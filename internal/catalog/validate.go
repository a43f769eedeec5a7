package catalog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/smartscribe/internal/markup"
	"github.com/starford/smartscribe/internal/models"
)

var listIDPattern = regexp.MustCompile(`^[0-9]+$`)

// Validate checks a list against the SmartList grammar and catalog rules.
func (l List) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.ID, validation.Required, validation.Match(listIDPattern).Error("must be numeric")),
		validation.Field(&l.Aliases, validation.Required, validation.Each(validation.Required, validation.By(forbidChars(":{}\n")))),
		validation.Field(&l.Options, validation.Required, validation.By(atMostOneDefault), validation.By(uniqueOptionTexts)),
	)
}

// Validate checks a single option.
func (o ListOption) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Text, validation.Required, validation.By(forbidChars("\"\n"))),
	)
}

func forbidChars(chars string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if strings.ContainsAny(s, chars) {
			return fmt.Errorf("must not contain any of %q", chars)
		}
		return nil
	}
}

func atMostOneDefault(value interface{}) error {
	opts, _ := value.([]ListOption)
	n := 0
	for _, o := range opts {
		if o.Default {
			n++
		}
	}
	if n > 1 {
		return errors.New("at most one option may be the default")
	}
	return nil
}

func uniqueOptionTexts(value interface{}) error {
	opts, _ := value.([]ListOption)
	seen := make(map[string]struct{}, len(opts))
	for _, o := range opts {
		if _, dup := seen[o.Text]; dup {
			return fmt.Errorf("duplicate option %q", o.Text)
		}
		seen[o.Text] = struct{}{}
	}
	return nil
}

// ValidateSelectionsInText checks every SmartList reference in a finished
// document. Unknown list ids and values outside a list's options are errors;
// references left unselected are warnings.
func (c *Catalog) ValidateSelectionsInText(text string) models.Report {
	r := models.NewReport()
	for _, o := range markup.Parse(text) {
		if o.Kind != markup.KindList {
			continue
		}
		l, ok := c.LookupByID(o.ListID)
		if !ok {
			r.Errorf("unknown SmartList %s (%q)", o.ListID, o.Label)
			continue
		}
		if !o.Selected {
			r.Warnf("SmartList %s (%q) has no selection", o.ListID, o.Label)
			continue
		}
		if !l.Allows(o.Value) {
			r.Errorf("SmartList %s (%q): %q is not an allowed value", o.ListID, o.Label, o.Value)
		}
	}
	return r
}
