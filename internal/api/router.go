package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/skythread/internal/postservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *postservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Outline blocks.
	r.Get("/blocks", h.SearchBlocks)
	r.Post("/blocks", h.CreateBlock)
	r.Get("/blocks/{id}", h.GetBlock)
	r.Put("/blocks/{id}", h.UpdateBlock)
	r.Delete("/blocks/{id}", h.DeleteBlock)

	// The "Post to Bluesky" command and its dry run.
	r.Post("/blocks/{id}/bluesky", h.PostThread)
	r.Get("/blocks/{id}/bluesky/preview", h.PreviewThread)

	// Settings panel.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings/credential", h.SaveCredential)
	r.Delete("/settings/credential", h.DeleteCredential)
	r.Put("/settings/append", h.UpdateAppend)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
