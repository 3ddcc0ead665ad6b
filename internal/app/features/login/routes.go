// internal/app/features/login/routes.go
package login

import "github.com/go-chi/chi/v5"

// Routes serves /login.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleLoginPost)
	return r
}

// SignupRoutes serves /signup.
func SignupRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleSignupPost)
	return r
}
