// internal/app/features/userinfo/handler.go
package userinfo

import (
	"net/http"

	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/dalemusser/studybuddy/internal/app/workflow"
)

// Handler serves information about the signed-in user.
type Handler struct {
	Svc    *workflow.Service
	ErrLog *uierrors.ErrorLogger
}

// NewHandler creates a new userinfo handler.
func NewHandler(svc *workflow.Service, errLog *uierrors.ErrorLogger) *Handler {
	return &Handler{Svc: svc, ErrLog: errLog}
}

// ServeUserInfo handles GET /me and returns the caller's user record.
func (h *Handler) ServeUserInfo(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)

	u, err := h.Svc.GetUser(r.Context(), caller.UserID)
	if err != nil {
		h.ErrLog.Handle(w, r, "get user", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, u)
}
