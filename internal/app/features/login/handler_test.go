package login_test

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/app/features/login"
	"github.com/dalemusser/studybuddy/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) *login.Handler {
	t.Helper()
	env := testutil.NewEnv(t)
	logger := zap.NewNop()
	return login.NewHandler(env.Service, env.Session, uierrors.NewErrorLogger(logger), logger)
}

func signupBody(email string) map[string]string {
	return map[string]string{
		"email":      email,
		"password":   "correct-horse-42",
		"first_name": "Ada",
		"last_name":  "Lovelace",
	}
}

func hasSessionCookie(rec *testutil.ResponseRecorder) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" && c.Value != "" {
			return true
		}
	}
	return false
}

func TestHandleSignupPost_CreatesAndSignsIn(t *testing.T) {
	h := newTestHandler(t)

	rec := testutil.NewRecorder()
	login.SignupRoutes(h).ServeHTTP(rec, testutil.NewRequest("POST", "/", signupBody("ada@example.com")))

	rec.AssertStatus(t, http.StatusCreated)
	var u map[string]any
	rec.DecodeJSON(t, &u)
	if u["email"] != "ada@example.com" {
		t.Errorf("email: got %v", u["email"])
	}
	if _, ok := u["password_hash"]; ok {
		t.Error("password hash leaked in response")
	}
	if !hasSessionCookie(rec) {
		t.Error("expected a session cookie after signup")
	}
}

func TestHandleSignupPost_Duplicate(t *testing.T) {
	h := newTestHandler(t)
	router := login.SignupRoutes(h)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest("POST", "/", signupBody("ada@example.com")))
	rec.AssertStatus(t, http.StatusCreated)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewRequest("POST", "/", signupBody("ADA@example.com ")))
	rec.AssertStatus(t, http.StatusConflict)
}

func TestHandleSignupPost_Invalid(t *testing.T) {
	h := newTestHandler(t)

	body := signupBody("not-an-email")
	rec := testutil.NewRecorder()
	h.HandleSignupPost(rec, testutil.NewRequest("POST", "/signup", body))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertContains(t, `"validation"`)
}

func TestHandleLoginPost(t *testing.T) {
	h := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.HandleSignupPost(rec, testutil.NewRequest("POST", "/signup", signupBody("ada@example.com")))
	rec.AssertStatus(t, http.StatusCreated)

	tests := []struct {
		name     string
		email    string
		password string
		status   int
	}{
		{"success", "ada@example.com", "correct-horse-42", http.StatusOK},
		{"case and whitespace", "  Ada@Example.com ", "correct-horse-42", http.StatusOK},
		{"wrong password", "ada@example.com", "nope", http.StatusForbidden},
		{"unknown email", "bob@example.com", "correct-horse-42", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			req := testutil.NewRequest("POST", "/", map[string]string{"email": tt.email, "password": tt.password})
			login.Routes(h).ServeHTTP(rec, req)
			rec.AssertStatus(t, tt.status)
			if tt.status == http.StatusOK && !hasSessionCookie(rec) {
				t.Error("expected a session cookie")
			}
		})
	}
}

func TestHandleLoginPost_BadJSON(t *testing.T) {
	h := newTestHandler(t)

	req := testutil.NewRequest("POST", "/login", nil)
	req.Body = http.NoBody
	rec := testutil.NewRecorder()
	h.HandleLoginPost(rec, req)
	rec.AssertStatus(t, http.StatusBadRequest)
}
