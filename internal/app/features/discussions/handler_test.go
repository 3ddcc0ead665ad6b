package discussions_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/dalemusser/studybuddy/internal/app/features/discussions"
	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/dalemusser/studybuddy/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRouter(t *testing.T) (chi.Router, *testutil.Env) {
	t.Helper()
	env := testutil.NewEnv(t)
	logger := zap.NewNop()
	h := discussions.NewHandler(env.Service, uierrors.NewErrorLogger(logger), logger)
	r := chi.NewRouter()
	r.Mount("/groups/{id}/discussion", discussions.Routes(h, env.Session))
	r.Mount("/groups/{id}/notes", discussions.NoteRoutes(h, env.Session))
	return r, env
}

func TestDiscussion_PostAndEdit(t *testing.T) {
	router, env := newRouter(t)
	admin := env.User(t, "carol@example.com")
	member := env.User(t, "mia@example.com")
	outsider := env.User(t, "oscar@example.com")
	g := env.ActiveGroup(t, admin)
	env.Join(t, g, admin, member)
	base := "/groups/" + g.ID + "/discussion"

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", base, map[string]string{"message": "hello"}, outsider))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", base, map[string]string{"message": "  hello  "}, member))
	rec.AssertStatus(t, http.StatusCreated)
	var msg models.Message
	rec.DecodeJSON(t, &msg)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, member.UserID, msg.UserID)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("PUT", base+"/"+msg.ID, map[string]string{"message": "hijack"}, admin))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("PUT", base+"/"+msg.ID, map[string]string{"message": "hello all"}, member))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"edited":true`)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", base, nil, admin))
	rec.AssertStatus(t, http.StatusOK)
	var d models.Discussion
	rec.DecodeJSON(t, &d)
	require.Len(t, d.Messages, 1)
	assert.Equal(t, "hello all", d.Messages[0].Text)
}

func TestDiscussion_EmptyAndLongMessages(t *testing.T) {
	router, env := newRouter(t)
	admin := env.User(t, "carol@example.com")
	g := env.ActiveGroup(t, admin)
	base := "/groups/" + g.ID + "/discussion"

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", base, map[string]string{"message": "   "}, admin))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", base, map[string]string{"message": strings.Repeat("x", 2001)}, admin))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestNotes(t *testing.T) {
	router, env := newRouter(t)
	admin := env.User(t, "carol@example.com")
	member := env.User(t, "mia@example.com")
	g := env.ActiveGroup(t, admin)
	env.Join(t, g, admin, member)
	path := "/groups/" + g.ID + "/notes"

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", path, nil, member))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"notes":""`)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("PUT", path, map[string]string{"notes": "review chapter 3"}, member))
	rec.AssertStatus(t, http.StatusOK)

	// Notes are private per user.
	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", path, nil, admin))
	rec.AssertStatus(t, http.StatusOK)
	assert.NotContains(t, rec.Body.String(), "chapter 3")

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", path, nil, member))
	rec.AssertContains(t, "review chapter 3")
}
