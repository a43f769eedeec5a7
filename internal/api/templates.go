package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/smartscribe/internal/models"
)

// ListTemplates handles GET /api/templates.
//
//	@Summary		List stored templates
//	@Tags			templates
//	@Produce		json
//	@Success		200	{object}	TemplateListResponse
//	@Security		BearerAuth
//	@Router			/templates [get]
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListTemplates(r.Context())
	if err != nil {
		writeServiceError(w, "list templates", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, TemplateListResponse{Templates: list})
}

// GetTemplate handles GET /api/templates/{id}.
//
//	@Summary		Get a template by id
//	@Tags			templates
//	@Produce		json
//	@Param			id	path		string	true	"Template id"
//	@Success		200	{object}	noteservice.TemplateDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{id} [get]
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.svc.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "get template", err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("ETag", `"`+tpl.Revision+`"`)
	writeJSON(w, http.StatusOK, tpl)
}

// CreateTemplate handles POST /api/templates.
//
//	@Summary		Create a template
//	@Tags			templates
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Template	true	"Template"
//	@Success		201		{object}	noteservice.TemplateDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates [post]
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl models.Template
	if !decodeJSON(w, r, &tpl) {
		return
	}
	created, err := h.svc.CreateTemplate(r.Context(), tpl)
	if err != nil {
		writeServiceError(w, "create template", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// UpdateTemplate handles PUT /api/templates/{id}.
//
//	@Summary		Replace a template with optimistic concurrency
//	@Tags			templates
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string			true	"Template id"
//	@Param			If-Match	header		string			false	"Revision checksum"
//	@Param			body		body		models.Template	true	"Template"
//	@Success		200			{object}	noteservice.TemplateDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{id} [put]
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl models.Template
	if !decodeJSON(w, r, &tpl) {
		return
	}
	tpl.ID = chi.URLParam(r, "id")

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	updated, err := h.svc.UpdateTemplate(r.Context(), tpl, ifMatch)
	if err != nil {
		writeServiceError(w, "update template", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteTemplate handles DELETE /api/templates/{id}.
//
//	@Summary		Delete a template
//	@Tags			templates
//	@Param			id	path	string	true	"Template id"
//	@Success		204	"Template deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/templates/{id} [delete]
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "delete template", err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
