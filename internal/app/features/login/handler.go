// internal/app/features/login/handler.go
package login

import (
	"net/http"

	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/dalemusser/studybuddy/internal/app/workflow"
	"go.uber.org/zap"
)

type Handler struct {
	Svc        *workflow.Service
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	ErrLog     *uierrors.ErrorLogger
}

func NewHandler(svc *workflow.Service, sessionMgr *auth.SessionManager, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:        svc,
		Log:        logger,
		SessionMgr: sessionMgr,
		ErrLog:     errLog,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLoginPost handles POST /login.
//
// Success: 200 with the user record and a fresh session cookie.
// Wrong email or password: 403 {"error":"forbidden"}.
func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := uierrors.Decode(w, r, &req); err != nil {
		uierrors.Write(w, err)
		return
	}

	u, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.ErrLog.Handle(w, r, "login", err)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u); err != nil {
		h.Log.Error("login: save session", zap.String("user_id", u.ID), zap.Error(err))
		uierrors.WriteJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "session",
			"message": "could not start a session",
		})
		return
	}

	h.Log.Info("user signed in", zap.String("user_id", u.ID))
	uierrors.WriteJSON(w, http.StatusOK, u)
}

// HandleSignupPost handles POST /signup. A successful signup also signs
// the new user in.
func (h *Handler) HandleSignupPost(w http.ResponseWriter, r *http.Request) {
	var in workflow.SignupInput
	if err := uierrors.Decode(w, r, &in); err != nil {
		uierrors.Write(w, err)
		return
	}

	u, err := h.Svc.Signup(r.Context(), in)
	if err != nil {
		h.ErrLog.Handle(w, r, "signup", err)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, u); err != nil {
		// The account exists; the client can still log in explicitly.
		h.Log.Warn("signup: save session", zap.String("user_id", u.ID), zap.Error(err))
	}
	uierrors.WriteJSON(w, http.StatusCreated, u)
}
