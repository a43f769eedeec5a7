package api

import (
	"github.com/starford/smartscribe/internal/catalog"
	"github.com/starford/smartscribe/internal/models"
	"github.com/starford/smartscribe/internal/noteservice"
)

// CompileRequest is the body of /compile and /generate (aliased from the domain layer).
type CompileRequest = noteservice.CompileRequest

// CompiledPrompt is the compile response (aliased from the domain layer).
type CompiledPrompt = models.CompiledPrompt

// ValidationResult is the validate response (aliased from the domain layer).
type ValidationResult = noteservice.ValidationResult

// GenerateResult is the generate response (aliased from the domain layer).
type GenerateResult = noteservice.GenerateResult

// TextRequest carries a note or fragment to check.
type TextRequest struct {
	Text string `json:"text" example:"Mood: {Mood:1001:: \"Euthymic\"}" validate:"required"`
}

// ConvertRequest is the request body for link conversion.
type ConvertRequest struct {
	Text    string `json:"text" example:"@FNAME@ is @AGE@" validate:"required"`
	Reverse bool   `json:"reverse,omitempty"`
}

// ConvertResponse is the converted text.
type ConvertResponse struct {
	Text string `json:"text" example:".FNAME is .AGE" validate:"required"`
}

// TemplateListResponse wraps template listings.
type TemplateListResponse struct {
	Templates []models.Template `json:"templates" validate:"required"`
}

// SmartListListResponse wraps SmartList listings.
type SmartListListResponse struct {
	SmartLists []catalog.List `json:"smartlists" validate:"required"`
	Groups     []string       `json:"groups" validate:"required"`
}

// RecordSelectionRequest is the request body for recording a selection.
type RecordSelectionRequest struct {
	Value   string `json:"value" example:"Euthymic" validate:"required"`
	Context string `json:"context,omitempty" example:"intake 2026-03-14"`
}

// ImportResponse reports how many lists an import loaded.
type ImportResponse struct {
	Imported int `json:"imported" example:"12" validate:"required"`
}
