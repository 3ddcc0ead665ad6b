// internal/app/features/invitations/routes.go
package invitations

import (
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// GroupRoutes is mounted at /groups/{id}/invitations.
func GroupRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeGroupList)
	r.Post("/", h.HandleSend)

	return r
}

// Routes is mounted at /invitations.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/mine", h.ServeMine)
	r.Post("/{token}/accept", h.HandleAccept)
	r.Post("/{token}/decline", h.HandleDecline)

	return r
}
