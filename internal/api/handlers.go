package api

import (
	"net/http"

	"github.com/starford/smartscribe/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// Compile handles POST /api/compile.
//
//	@Summary		Compile a template and transcript into a prompt
//	@Tags			prompts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CompileRequest	true	"Template (inline or template_id), transcript and prior context"
//	@Success		200		{object}	CompiledPrompt
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/compile [post]
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	var req CompileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	prompt, err := h.svc.Compile(r.Context(), req)
	if err != nil {
		writeServiceError(w, "compile", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, prompt)
}

// Validate handles POST /api/validate.
//
//	@Summary		Validate a generated note against the note grammar
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TextRequest	true	"Note text"
//	@Success		200		{object}	ValidationResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/validate [post]
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("text is required"))
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Validate(r.Context(), req.Text))
}

// Generate handles POST /api/generate.
//
//	@Summary		Compile, generate and validate a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CompileRequest	true	"Compile request"
//	@Success		200		{object}	GenerateResult
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/generate [post]
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req CompileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Generate(r.Context(), req)
	if err != nil {
		writeServiceError(w, "generate", err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Convert handles POST /api/convert.
//
//	@Summary		Convert SmartLinks to DotPhrases or back
//	@Tags			markup
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConvertRequest	true	"Text to convert"
//	@Success		200		{object}	ConvertResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/convert [post]
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, ConvertResponse{Text: h.svc.ConvertLinks(req.Text, req.Reverse)})
}
