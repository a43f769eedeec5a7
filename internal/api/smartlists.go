package api

import (
	"bytes"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/smartscribe/internal/catalog"
)

// ListSmartLists handles GET /api/smartlists.
//
//	@Summary		List SmartLists, optionally by group
//	@Tags			smartlists
//	@Produce		json
//	@Param			group	query		string	false	"Group name"
//	@Success		200		{object}	SmartListListResponse
//	@Security		BearerAuth
//	@Router			/smartlists [get]
func (h *Handler) ListSmartLists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, SmartListListResponse{
		SmartLists: h.svc.ListSmartLists(ctx, r.URL.Query().Get("group")),
		Groups:     h.svc.Groups(ctx),
	})
}

// GetSmartList handles GET /api/smartlists/{id}.
//
//	@Summary		Get a SmartList by id or name
//	@Tags			smartlists
//	@Produce		json
//	@Param			id	path		string	true	"List id or name"
//	@Success		200	{object}	noteservice.SmartListDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/smartlists/{id} [get]
func (h *Handler) GetSmartList(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetSmartList(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "get smartlist", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// RecordSelection handles POST /api/smartlists/{id}/selections.
//
//	@Summary		Record a clinician's selection
//	@Tags			smartlists
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"List id"
//	@Param			body	body		RecordSelectionRequest	true	"Selected value"
//	@Success		201		{object}	catalog.SelectionEvent
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/smartlists/{id}/selections [post]
func (h *Handler) RecordSelection(w http.ResponseWriter, r *http.Request) {
	var req RecordSelectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Value == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("value is required"))
		return
	}
	ev, err := h.svc.RecordSelection(r.Context(), chi.URLParam(r, "id"), req.Value, req.Context)
	if err != nil {
		writeServiceError(w, "record selection", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// ValidateSelections handles POST /api/smartlists/validate.
//
//	@Summary		Check SmartList selections in a text
//	@Tags			smartlists
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TextRequest	true	"Text"
//	@Success		200		{object}	models.Report
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/smartlists/validate [post]
func (h *Handler) ValidateSelections(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, h.svc.ValidateSelections(r.Context(), req.Text))
}

// ExportSmartLists handles GET /api/smartlists/export.
//
//	@Summary		Export the catalog as CSV or YAML
//	@Tags			smartlists
//	@Produce		text/csv
//	@Produce		application/yaml
//	@Param			format	query	string	false	"Export format"	Enums(csv, yaml)
//	@Success		200		{string}	string
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/smartlists/export [get]
func (h *Handler) ExportSmartLists(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = catalog.FormatCSV
	}
	contentType, ok := exportTypes[format]
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("format must be csv or yaml"))
		return
	}
	var buf bytes.Buffer
	if err := h.svc.ExportCatalog(r.Context(), &buf, format); err != nil {
		writeServiceError(w, "export smartlists", err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="smartlists.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ImportSmartLists handles PUT /api/smartlists/import.
//
//	@Summary		Replace the catalog from CSV or YAML
//	@Tags			smartlists
//	@Accept			text/csv
//	@Accept			application/yaml
//	@Produce		json
//	@Param			format	query		string	false	"Body format, defaults from Content-Type"	Enums(csv, yaml)
//	@Success		200		{object}	ImportResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/smartlists/import [put]
func (h *Handler) ImportSmartLists(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = importFormat(r.Header.Get("Content-Type"))
	}
	if _, ok := exportTypes[format]; !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("format must be csv or yaml"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	n, err := h.svc.ImportCatalog(r.Context(), r.Body, format)
	if err != nil {
		writeServiceError(w, "import smartlists", err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, ImportResponse{Imported: n})
}

var exportTypes = map[string]string{
	catalog.FormatCSV:  "text/csv; charset=utf-8",
	catalog.FormatYAML: "application/yaml; charset=utf-8",
}

func importFormat(contentType string) string {
	mt, _, _ := mime.ParseMediaType(contentType)
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return catalog.FormatYAML
	default:
		return catalog.FormatCSV
	}
}
