// internal/app/features/invitations/handler.go
package invitations

import (
	"net/http"

	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/dalemusser/studybuddy/internal/app/workflow"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves email invitations: sending from a group, and accepting or
// declining by token.
type Handler struct {
	Svc    *workflow.Service
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(svc *workflow.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger, ErrLog: errLog}
}

type sendRequest struct {
	Email string `json:"email"`
}

type invitationList struct {
	Invitations []models.Invitation `json:"invitations"`
}

func listOf(is []models.Invitation) invitationList {
	if is == nil {
		is = []models.Invitation{}
	}
	return invitationList{Invitations: is}
}

// HandleSend handles POST /groups/{id}/invitations. The token goes out by
// email only; the response never carries it.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := uierrors.Decode(w, r, &req); err != nil {
		uierrors.Write(w, err)
		return
	}
	caller, _ := auth.CurrentCaller(r)
	inv, err := h.Svc.SendInvitation(r.Context(), caller, chi.URLParam(r, "id"), req.Email)
	if err != nil {
		h.ErrLog.Handle(w, r, "send invitation", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, inv)
}

// ServeGroupList handles GET /groups/{id}/invitations (group admin).
func (h *Handler) ServeGroupList(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	is, err := h.Svc.ListGroupInvitations(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		h.ErrLog.Handle(w, r, "list group invitations", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, listOf(is))
}

// ownInvitation exposes the token to the invitee it was sent to.
type ownInvitation struct {
	models.Invitation
	Token string `json:"token"`
}

// ServeMine handles GET /invitations/mine: pending, unexpired invitations
// addressed to the caller's email, with their tokens.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	is, err := h.Svc.ListMyInvitations(r.Context(), caller)
	if err != nil {
		h.ErrLog.Handle(w, r, "list my invitations", err)
		return
	}
	out := make([]ownInvitation, 0, len(is))
	for _, inv := range is {
		out = append(out, ownInvitation{Invitation: inv, Token: inv.Token})
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{"invitations": out})
}

// HandleAccept handles POST /invitations/{token}/accept.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	inv, err := h.Svc.AcceptInvitation(r.Context(), caller, chi.URLParam(r, "token"))
	if err != nil {
		h.ErrLog.Handle(w, r, "accept invitation", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, inv)
}

// HandleDecline handles POST /invitations/{token}/decline.
func (h *Handler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	inv, err := h.Svc.DeclineInvitation(r.Context(), caller, chi.URLParam(r, "token"))
	if err != nil {
		h.ErrLog.Handle(w, r, "decline invitation", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, inv)
}
