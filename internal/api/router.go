package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/smartscribe/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// events, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, events http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Prompt and note pipeline.
	r.Post("/compile", h.Compile)
	r.Post("/validate", h.Validate)
	r.Post("/generate", h.Generate)
	r.Post("/convert", h.Convert)

	// Templates CRUD.
	r.Get("/templates", h.ListTemplates)
	r.Post("/templates", h.CreateTemplate)
	r.Get("/templates/{id}", h.GetTemplate)
	r.Put("/templates/{id}", h.UpdateTemplate)
	r.Delete("/templates/{id}", h.DeleteTemplate)

	// SmartList catalog. Static paths before {id}.
	r.Get("/smartlists", h.ListSmartLists)
	r.Get("/smartlists/export", h.ExportSmartLists)
	r.Put("/smartlists/import", h.ImportSmartLists)
	r.Post("/smartlists/validate", h.ValidateSelections)
	r.Get("/smartlists/{id}", h.GetSmartList)
	r.Post("/smartlists/{id}/selections", h.RecordSelection)

	// SSE endpoint (protected by same auth middleware).
	if events != nil {
		r.Get("/events", events.ServeHTTP)
	}

	return r
}
