// internal/app/features/members/handler.go
package members

import (
	"net/http"

	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/dalemusser/studybuddy/internal/app/workflow"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves a group's member roster.
type Handler struct {
	Svc    *workflow.Service
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(svc *workflow.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger, ErrLog: errLog}
}

type memberList struct {
	Members []workflow.Member `json:"members"`
}

// ServeList handles GET /groups/{id}/members.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	ms, err := h.Svc.ListMembers(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Handle(w, r, "list members", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, memberList{Members: ms})
}

// HandleRemove handles DELETE /groups/{id}/members/{uid}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	groupID, userID := chi.URLParam(r, "id"), chi.URLParam(r, "uid")
	if err := h.Svc.RemoveMember(r.Context(), caller, groupID, userID); err != nil {
		h.ErrLog.Handle(w, r, "remove member", err)
		return
	}
	h.Log.Info("member removed",
		zap.String("group_id", groupID),
		zap.String("user_id", userID),
		zap.String("by", caller.UserID))
	w.WriteHeader(http.StatusNoContent)
}
