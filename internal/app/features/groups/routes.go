// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves /groups. Sub-resources of a group (members, resources,
// join requests, invitations, discussion, notes) are mounted by their own
// features.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Get("/mine", h.ServeMine)

		pr.Get("/{id}", h.ServeGroup)
		pr.Post("/{id}/meeting-link", h.HandleMeetingLink)
		pr.Post("/{id}/leave", h.HandleLeave)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSuperAdmin)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}

// AdminRoutes serves /admin/groups.
func AdminRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSuperAdmin)

	r.Get("/", h.ServeAdminList)
	r.Post("/{id}/approve", h.HandleApprove)
	r.Post("/{id}/reject", h.HandleReject)

	return r
}
