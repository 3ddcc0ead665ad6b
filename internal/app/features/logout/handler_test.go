package logout_test

import (
	"net/http"
	"testing"

	"github.com/dalemusser/studybuddy/internal/app/features/logout"
	"github.com/dalemusser/studybuddy/internal/testutil"
	"go.uber.org/zap"
)

func TestServeLogout_ClearsSessionCookie(t *testing.T) {
	env := testutil.NewEnv(t)
	handler := logout.NewHandler(env.Session, zap.NewNop())
	caller := env.User(t, "ada@example.com")

	rec := testutil.NewRecorder()
	logout.Routes(handler, env.Session).ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/", nil, caller))

	rec.AssertStatus(t, http.StatusNoContent)

	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" {
			found = true
			if c.MaxAge >= 0 {
				t.Errorf("cookie MaxAge: got %d, want < 0 (delete)", c.MaxAge)
			}
		}
	}
	if !found {
		t.Error("expected session cookie to be set for deletion")
	}
}

func TestServeLogout_RequiresSignIn(t *testing.T) {
	env := testutil.NewEnv(t)
	handler := logout.NewHandler(env.Session, zap.NewNop())

	rec := testutil.NewRecorder()
	logout.Routes(handler, env.Session).ServeHTTP(rec, testutil.NewRequest("POST", "/", nil))

	rec.AssertStatus(t, http.StatusUnauthorized)
}
