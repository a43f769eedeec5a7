package grammar

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultHeaders is the recognized section header set of a psychiatric
// evaluation note, in expected order.
var DefaultHeaders = []string{
	"Identifying Information",
	"Chief Complaint",
	"History of Present Illness",
	"Past Psychiatric History",
	"Substance Use History",
	"Past Medical History",
	"Family History",
	"Social History",
	"Mental Status Exam",
	"Risk Assessment",
	"Formulation",
	"Plan",
}

// DefaultMinHPIChars is the length under which a single-paragraph HPI is
// considered over-condensed.
const DefaultMinHPIChars = 400

// Config drives sectioning and the per-section rules. The role fields name
// which recognized header each rule applies to.
type Config struct {
	Headers            []string `yaml:"headers" json:"headers"`
	Signature          string   `yaml:"signature" json:"signature"`
	MinHPIChars        int      `yaml:"min_hpi_chars" json:"min_hpi_chars"`
	HPI                string   `yaml:"hpi" json:"hpi"`
	PsychiatricHistory string   `yaml:"psychiatric_history" json:"psychiatric_history"`
	Formulation        string   `yaml:"formulation" json:"formulation"`
	Plan               string   `yaml:"plan" json:"plan"`
}

// DefaultConfig returns the psychiatric note configuration signed by signature.
func DefaultConfig(signature string) Config {
	return Config{
		Headers:            append([]string(nil), DefaultHeaders...),
		Signature:          signature,
		MinHPIChars:        DefaultMinHPIChars,
		HPI:                "History of Present Illness",
		PsychiatricHistory: "Past Psychiatric History",
		Formulation:        "Formulation",
		Plan:               "Plan",
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig(c.Signature)
	if len(c.Headers) == 0 {
		c.Headers = d.Headers
	}
	if c.MinHPIChars == 0 {
		c.MinHPIChars = d.MinHPIChars
	}
	if c.HPI == "" {
		c.HPI = d.HPI
	}
	if c.PsychiatricHistory == "" {
		c.PsychiatricHistory = d.PsychiatricHistory
	}
	if c.Formulation == "" {
		c.Formulation = d.Formulation
	}
	if c.Plan == "" {
		c.Plan = d.Plan
	}
	return c
}

// Validate validates the note configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Signature, validation.Required),
		validation.Field(&c.Headers, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.MinHPIChars, validation.Min(0)),
		validation.Field(&c.HPI, validation.By(c.isHeader)),
		validation.Field(&c.PsychiatricHistory, validation.By(c.isHeader)),
		validation.Field(&c.Formulation, validation.By(c.isHeader)),
		validation.Field(&c.Plan, validation.By(c.isHeader)),
	)
}

func (c *Config) isHeader(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	for _, h := range c.Headers {
		if strings.EqualFold(h, s) {
			return nil
		}
	}
	return fmt.Errorf("%q is not one of the configured headers", s)
}
