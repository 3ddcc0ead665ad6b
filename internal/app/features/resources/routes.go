// internal/app/features/resources/routes.go
package resources

import (
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted at /groups/{id}/resources.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Post("/", h.HandleAdd)
	r.Post("/upload", h.HandleUpload)
	r.Get("/{rid}", h.ServeURL)
	r.Delete("/{rid}", h.HandleRemove)

	return r
}
