// internal/app/features/groups/admin.go
package groups

import (
	"net/http"

	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

type summaryList struct {
	Groups []models.GroupSummary `json:"groups"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// ServeAdminList handles GET /admin/groups: every group in every status,
// newest first, with member counts and creator details.
func (h *Handler) ServeAdminList(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	gs, err := h.Svc.ListAllGroupsForAdmin(r.Context(), caller)
	if err != nil {
		h.ErrLog.Handle(w, r, "admin list groups", err)
		return
	}
	if gs == nil {
		gs = []models.GroupSummary{}
	}
	uierrors.WriteJSON(w, http.StatusOK, summaryList{Groups: gs})
}

// HandleApprove handles POST /admin/groups/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	g, err := h.Svc.ApproveGroup(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Handle(w, r, "approve group", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, g)
}

// HandleReject handles POST /admin/groups/{id}/reject. The body is
// optional; an empty reason gets the default text.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := uierrors.DecodeOptional(w, r, &req); err != nil {
		uierrors.Write(w, err)
		return
	}
	caller, _ := auth.CurrentCaller(r)
	g, err := h.Svc.RejectGroup(r.Context(), caller, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.ErrLog.Handle(w, r, "reject group", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, g)
}
