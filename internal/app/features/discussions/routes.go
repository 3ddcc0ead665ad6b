// internal/app/features/discussions/routes.go
package discussions

import (
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted at /groups/{id}/discussion.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeDiscussion)
	r.Post("/", h.HandlePost)
	r.Put("/{mid}", h.HandleEdit)

	return r
}

// NoteRoutes is mounted at /groups/{id}/notes.
func NoteRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeNotes)
	r.Put("/", h.HandleUpdateNotes)

	return r
}
