// internal/app/features/joinrequests/routes.go
package joinrequests

import (
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// GroupRoutes is mounted at /groups/{id}/join-requests.
func GroupRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/", h.ServeGroupList)
	r.Post("/", h.HandleSubmit)

	return r
}

// Routes is mounted at /join-requests.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)

	r.Get("/mine", h.ServeMine)
	r.Post("/{rid}/approve", h.HandleApprove)
	r.Post("/{rid}/reject", h.HandleReject)

	return r
}
