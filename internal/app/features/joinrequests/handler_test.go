package joinrequests_test

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/app/features/joinrequests"
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
	h := joinrequests.NewHandler(env.Service, uierrors.NewErrorLogger(logger), logger)
	r := chi.NewRouter()
	r.Mount("/groups/{id}/join-requests", joinrequests.GroupRoutes(h, env.Session))
	r.Mount("/join-requests", joinrequests.Routes(h, env.Session))
	return r, env
}

func TestJoinRequestLifecycle(t *testing.T) {
	router, env := newRouter(t)
	admin := env.User(t, "carol@example.com")
	bob := env.User(t, "bob@example.com")
	g := env.ActiveGroup(t, admin)
	groupPath := "/groups/" + g.ID + "/join-requests"

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", groupPath, map[string]string{"message": "please"}, bob))
	rec.AssertStatus(t, http.StatusCreated)
	var jr models.JoinRequest
	rec.DecodeJSON(t, &jr)
	assert.Equal(t, models.RequestPending, jr.Status)

	// Second pending request is a conflict.
	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", groupPath, nil, bob))
	rec.AssertStatus(t, http.StatusConflict)

	// Only admins list a group's requests.
	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", groupPath, nil, bob))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", groupPath, nil, admin))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, jr.ID)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", "/join-requests/mine", nil, bob))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, jr.ID)

	// The requester cannot approve their own request.
	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/join-requests/"+jr.ID+"/approve", nil, bob))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/join-requests/"+jr.ID+"/approve", nil, admin))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"approved"`)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/join-requests/"+jr.ID+"/reject", nil, admin))
	rec.AssertStatus(t, http.StatusConflict)
	rec.AssertContains(t, `"already_processed"`)
}

func TestRejectJoinRequest_WithReason(t *testing.T) {
	router, env := newRouter(t)
	admin := env.User(t, "carol@example.com")
	bob := env.User(t, "bob@example.com")
	g := env.ActiveGroup(t, admin)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/groups/"+g.ID+"/join-requests", nil, bob))
	var jr models.JoinRequest
	rec.DecodeJSON(t, &jr)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/join-requests/"+jr.ID+"/reject",
		map[string]string{"reason": "group is full"}, admin))
	rec.AssertStatus(t, http.StatusOK)

	var got models.JoinRequest
	rec.DecodeJSON(t, &got)
	require.Equal(t, models.RequestRejected, got.Status)
	assert.Equal(t, "group is full", got.RejectionReason)
}

func TestSubmit_UnknownGroup(t *testing.T) {
	router, env := newRouter(t)
	bob := env.User(t, "bob@example.com")

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/groups/nope/join-requests", nil, bob))
	rec.AssertStatus(t, http.StatusNotFound)
}
