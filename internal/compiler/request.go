package compiler

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/smartscribe/internal/apperr"
	"github.com/starford/smartscribe/internal/models"
)

// VisitKind selects intake or follow-up prompt framing.
type VisitKind string

const (
	VisitIntake   VisitKind = "intake"
	VisitFollowUp VisitKind = "follow_up"
)

// Request is the input of one compilation.
type Request struct {
	Template          models.Template `json:"template"`
	Transcript        string          `json:"transcript"`
	PriorNote         string          `json:"prior_note,omitempty"`
	HistoricalNotes   []string        `json:"historical_notes,omitempty"`
	VisitKind         VisitKind       `json:"visit_kind,omitempty"`
	PriorFactsEnabled bool            `json:"prior_facts_enabled,omitempty"`
}

// Validate validates the request. An empty VisitKind means intake.
func (r Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Template),
		validation.Field(&r.Transcript, validation.Required),
		validation.Field(&r.VisitKind, validation.In(VisitIntake, VisitFollowUp)),
	)
}

func (r Request) kind() VisitKind {
	if r.VisitKind == "" {
		return VisitIntake
	}
	return r.VisitKind
}

// CompileError reports a request the compiler rejected. It matches
// apperr.ErrInvalidRequest.
type CompileError struct {
	Reason string
	Err    error
}

func (e *CompileError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("compiler: %s", e.Reason)
	}
	return fmt.Sprintf("compiler: %s: %v", e.Reason, e.Err)
}

func (e *CompileError) Unwrap() []error {
	if e.Err == nil {
		return []error{apperr.ErrInvalidRequest}
	}
	return []error{apperr.ErrInvalidRequest, e.Err}
}
