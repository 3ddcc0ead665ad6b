// Package auth manages the session cookie and the signed-in caller.
//
// The cookie holds only the user id. LoadCaller re-reads the user record on
// every request so a promotion to super admin (or a deleted account) takes
// effect without a fresh login.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	DefaultSessionName = "studybuddy-session"

	userIDKey = "user_id"
)

// UserLookup is the part of the user store the session layer needs.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (models.User, error)
}

// SessionManager wraps a gorilla cookie store.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
	users UserLookup
	log   *zap.Logger
}

// NewSessionManager builds the cookie store. In production (secure=true)
// cookies are Secure + SameSite=None; over plain http on localhost use
// secure=false so browsers accept them.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, users UserLookup, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = DefaultSessionName
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, users: users, log: logger}, nil
}

// SignIn stores u's id in the session cookie.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u models.User) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values[userIDKey] = u.ID
	return sess.Save(r, w)
}

// SignOut expires the session cookie.
func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, m.name)
	delete(sess.Values, userIDKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// LoadCaller injects the signed-in caller into the request context. A
// cookie naming a user that no longer exists is treated as signed out.
func (m *SessionManager) LoadCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.store.Get(r, m.name)
		if err != nil {
			// Tampered or rotated-key cookie: continue anonymously.
			next.ServeHTTP(w, r)
			return
		}
		id, _ := sess.Values[userIDKey].(string)
		if id == "" || m.users == nil {
			next.ServeHTTP(w, r)
			return
		}

		u, err := m.users.GetByID(r.Context(), id)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				m.log.Debug("session user not loaded", zap.String("user_id", id), zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, withCaller(r, CallerFor(u)))
	})
}

// RequireSignedIn rejects anonymous requests with 401.
func (m *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentCaller(r); !ok {
			writeDenied(w, http.StatusUnauthorized, "unauthorized", "sign in required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSuperAdmin rejects anonymous requests with 401 and signed-in
// non-admins with 403.
func (m *SessionManager) RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := CurrentCaller(r)
		if !ok {
			writeDenied(w, http.StatusUnauthorized, "unauthorized", "sign in required")
			return
		}
		if !c.IsSuperAdmin {
			writeDenied(w, http.StatusForbidden, "forbidden", "super admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current-caller helpers                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const currentCallerKey ctxKey = "currentCaller"

// CallerFor builds the identity the workflow sees for u.
func CallerFor(u models.User) models.Caller {
	return models.Caller{
		UserID:       u.ID,
		Email:        u.Email,
		Name:         u.DisplayName(),
		IsSuperAdmin: u.IsSuperAdmin,
	}
}

// CurrentCaller returns the caller and a "found?" flag.
func CurrentCaller(r *http.Request) (models.Caller, bool) {
	c, ok := r.Context().Value(currentCallerKey).(models.Caller)
	return c, ok
}

// WithTestCaller injects c directly, bypassing the cookie. For handler tests.
func WithTestCaller(r *http.Request, c models.Caller) *http.Request {
	return withCaller(r, c)
}

func withCaller(r *http.Request, c models.Caller) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentCallerKey, c))
}

func writeDenied(w http.ResponseWriter, status int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": msg})
}
