package invitations_test

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/app/features/invitations"
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
	h := invitations.NewHandler(env.Service, uierrors.NewErrorLogger(logger), logger)
	r := chi.NewRouter()
	r.Mount("/groups/{id}/invitations", invitations.GroupRoutes(h, env.Session))
	r.Mount("/invitations", invitations.Routes(h, env.Session))
	return r, env
}

type mine struct {
	Invitations []struct {
		ID      string `json:"id"`
		GroupID string `json:"group_id"`
		Token   string `json:"token"`
	} `json:"invitations"`
}

func TestInvitationAcceptFlow(t *testing.T) {
	router, env := newRouter(t)
	admin := env.User(t, "carol@example.com")
	g := env.ActiveGroup(t, admin)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/groups/"+g.ID+"/invitations",
		map[string]string{"email": "dave@example.com"}, admin))
	rec.AssertStatus(t, http.StatusCreated)
	var inv map[string]any
	rec.DecodeJSON(t, &inv)
	assert.Equal(t, "dave@example.com", inv["invited_email"])
	_, hasToken := inv["token"]
	assert.False(t, hasToken, "token must not be returned to the sender")

	// The admin's list hides tokens too.
	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", "/groups/"+g.ID+"/invitations", nil, admin))
	rec.AssertStatus(t, http.StatusOK)
	assert.NotContains(t, rec.Body.String(), `"token"`)

	dave := env.User(t, "dave@example.com")
	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", "/invitations/mine", nil, dave))
	rec.AssertStatus(t, http.StatusOK)
	var m mine
	rec.DecodeJSON(t, &m)
	require.Len(t, m.Invitations, 1)
	token := m.Invitations[0].Token
	require.NotEmpty(t, token)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/invitations/"+token+"/accept", nil, dave))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"accepted"`)

	// Single use.
	erin := env.User(t, "erin@example.com")
	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/invitations/"+token+"/accept", nil, erin))
	rec.AssertStatus(t, http.StatusConflict)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/invitations/"+token+"/decline", nil, dave))
	rec.AssertStatus(t, http.StatusConflict)
}

func TestInvitation_Decline(t *testing.T) {
	router, env := newRouter(t)
	admin := env.User(t, "carol@example.com")
	g := env.ActiveGroup(t, admin)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/groups/"+g.ID+"/invitations",
		map[string]string{"email": "dave@example.com"}, admin))
	rec.AssertStatus(t, http.StatusCreated)

	dave := env.User(t, "dave@example.com")
	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", "/invitations/mine", nil, dave))
	var m mine
	rec.DecodeJSON(t, &m)
	require.Len(t, m.Invitations, 1)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/invitations/"+m.Invitations[0].Token+"/decline", nil, dave))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `"status":"`+models.InviteDeclined+`"`)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", "/invitations/mine", nil, dave))
	rec.AssertContains(t, `"invitations":[]`)
}

func TestInvitation_Errors(t *testing.T) {
	router, env := newRouter(t)
	admin := env.User(t, "carol@example.com")
	other := env.User(t, "oscar@example.com")
	g := env.ActiveGroup(t, admin)

	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/invitations/unknown-token/accept", nil, other))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/groups/"+g.ID+"/invitations",
		map[string]string{"email": "dave@example.com"}, other))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	router.ServeHTTP(rec, testutil.NewAuthenticatedRequest("POST", "/groups/"+g.ID+"/invitations",
		map[string]string{"email": "nope"}, admin))
	rec.AssertStatus(t, http.StatusBadRequest)
}
