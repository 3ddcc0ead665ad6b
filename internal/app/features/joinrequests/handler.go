// internal/app/features/joinrequests/handler.go
package joinrequests

import (
	"net/http"

	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/dalemusser/studybuddy/internal/app/workflow"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves join requests, from both the requester's and the group
// admin's side.
type Handler struct {
	Svc    *workflow.Service
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(svc *workflow.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger, ErrLog: errLog}
}

type submitRequest struct {
	Message string `json:"message"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type requestList struct {
	Requests []models.JoinRequest `json:"requests"`
}

func listOf(rs []models.JoinRequest) requestList {
	if rs == nil {
		rs = []models.JoinRequest{}
	}
	return requestList{Requests: rs}
}

// HandleSubmit handles POST /groups/{id}/join-requests.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := uierrors.DecodeOptional(w, r, &req); err != nil {
		uierrors.Write(w, err)
		return
	}
	caller, _ := auth.CurrentCaller(r)
	jr, err := h.Svc.SubmitJoinRequest(r.Context(), caller, chi.URLParam(r, "id"), req.Message)
	if err != nil {
		h.ErrLog.Handle(w, r, "submit join request", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, jr)
}

// ServeGroupList handles GET /groups/{id}/join-requests (group admin).
func (h *Handler) ServeGroupList(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	rs, err := h.Svc.ListGroupJoinRequests(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Handle(w, r, "list group join requests", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, listOf(rs))
}

// ServeMine handles GET /join-requests/mine.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	rs, err := h.Svc.ListMyJoinRequests(r.Context(), caller)
	if err != nil {
		h.ErrLog.Handle(w, r, "list my join requests", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, listOf(rs))
}

// HandleApprove handles POST /join-requests/{rid}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	jr, err := h.Svc.ApproveJoinRequest(r.Context(), caller, chi.URLParam(r, "rid"))
	if err != nil {
		h.ErrLog.Handle(w, r, "approve join request", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, jr)
}

// HandleReject handles POST /join-requests/{rid}/reject. The reason is
// optional.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := uierrors.DecodeOptional(w, r, &req); err != nil {
		uierrors.Write(w, err)
		return
	}
	caller, _ := auth.CurrentCaller(r)
	jr, err := h.Svc.RejectJoinRequest(r.Context(), caller, chi.URLParam(r, "rid"), req.Reason)
	if err != nil {
		h.ErrLog.Handle(w, r, "reject join request", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, jr)
}
