// internal/app/features/groups/groups.go
package groups

import (
	"net/http"

	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/dalemusser/studybuddy/internal/app/workflow"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// groupList keeps "groups": [] rather than null for an empty result.
type groupList struct {
	Groups []models.Group `json:"groups"`
}

func listOf(gs []models.Group) groupList {
	if gs == nil {
		gs = []models.Group{}
	}
	return groupList{Groups: gs}
}

// ServeList handles GET /groups (active groups only).
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	gs, err := h.Svc.ListActiveGroups(r.Context())
	if err != nil {
		h.ErrLog.Handle(w, r, "list groups", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, listOf(gs))
}

// ServeMine handles GET /groups/mine.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	gs, err := h.Svc.ListMyGroups(r.Context(), caller)
	if err != nil {
		h.ErrLog.Handle(w, r, "list my groups", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, listOf(gs))
}

// HandleCreate handles POST /groups. The group starts pending approval.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var d workflow.GroupDraft
	if err := uierrors.Decode(w, r, &d); err != nil {
		uierrors.Write(w, err)
		return
	}
	caller, _ := auth.CurrentCaller(r)
	g, err := h.Svc.CreateGroup(r.Context(), caller, d)
	if err != nil {
		h.ErrLog.Handle(w, r, "create group", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, g)
}

// ServeGroup handles GET /groups/{id}.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	g, err := h.Svc.GetGroup(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Handle(w, r, "get group", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, g)
}

// HandleDelete handles DELETE /groups/{id} (super admin).
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	if err := h.Svc.DeleteGroup(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		h.ErrLog.Handle(w, r, "delete group", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMeetingLink handles POST /groups/{id}/meeting-link.
func (h *Handler) HandleMeetingLink(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	ov, err := h.Svc.GenerateMeetingLink(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Handle(w, r, "generate meeting link", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, ov)
}

// HandleLeave handles POST /groups/{id}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	if err := h.Svc.LeaveGroup(r.Context(), caller, chi.URLParam(r, "id")); err != nil {
		h.ErrLog.Handle(w, r, "leave group", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
