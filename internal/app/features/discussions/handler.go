// internal/app/features/discussions/handler.go
package discussions

import (
	"net/http"

	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/dalemusser/studybuddy/internal/app/workflow"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves a group's discussion thread and each member's private
// notes.
type Handler struct {
	Svc    *workflow.Service
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(svc *workflow.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger, ErrLog: errLog}
}

type messageRequest struct {
	Message string `json:"message"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// ServeDiscussion handles GET /groups/{id}/discussion.
func (h *Handler) ServeDiscussion(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	d, err := h.Svc.GetDiscussion(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Handle(w, r, "get discussion", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, d)
}

// HandlePost handles POST /groups/{id}/discussion.
func (h *Handler) HandlePost(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := uierrors.Decode(w, r, &req); err != nil {
		uierrors.Write(w, err)
		return
	}
	caller, _ := auth.CurrentCaller(r)
	m, err := h.Svc.AddMessage(r.Context(), caller, chi.URLParam(r, "id"), req.Message)
	if err != nil {
		h.ErrLog.Handle(w, r, "add message", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, m)
}

// HandleEdit handles PUT /groups/{id}/discussion/{mid}. Only the author
// may edit.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := uierrors.Decode(w, r, &req); err != nil {
		uierrors.Write(w, err)
		return
	}
	caller, _ := auth.CurrentCaller(r)
	m, err := h.Svc.EditMessage(r.Context(), caller, chi.URLParam(r, "id"), chi.URLParam(r, "mid"), req.Message)
	if err != nil {
		h.ErrLog.Handle(w, r, "edit message", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, m)
}

// ServeNotes handles GET /groups/{id}/notes.
func (h *Handler) ServeNotes(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	n, err := h.Svc.GetNotes(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Handle(w, r, "get notes", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, n)
}

// HandleUpdateNotes handles PUT /groups/{id}/notes.
func (h *Handler) HandleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := uierrors.Decode(w, r, &req); err != nil {
		uierrors.Write(w, err)
		return
	}
	caller, _ := auth.CurrentCaller(r)
	n, err := h.Svc.UpdateNotes(r.Context(), caller, chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		h.ErrLog.Handle(w, r, "update notes", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, n)
}
