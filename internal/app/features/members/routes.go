// internal/app/features/members/routes.go
package members

import (
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted at /groups/{id}/members.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeList)
	r.Delete("/{uid}", h.HandleRemove)

	return r
}
