package userinfo_test

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/app/features/userinfo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/dalemusser/studybuddy/internal/testutil"
	"go.uber.org/zap"
)

func TestServeUserInfo(t *testing.T) {
	env := testutil.NewEnv(t)
	h := userinfo.NewHandler(env.Service, uierrors.NewErrorLogger(zap.NewNop()))
	caller := env.User(t, "ada@example.com")

	rec := testutil.NewRecorder()
	userinfo.Routes(h, env.Session).ServeHTTP(rec, testutil.NewAuthenticatedRequest("GET", "/", nil, caller))

	rec.AssertStatus(t, http.StatusOK)
	var u models.User
	rec.DecodeJSON(t, &u)
	if u.ID != caller.UserID || u.Email != "ada@example.com" {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestServeUserInfo_Anonymous(t *testing.T) {
	env := testutil.NewEnv(t)
	h := userinfo.NewHandler(env.Service, uierrors.NewErrorLogger(zap.NewNop()))

	rec := testutil.NewRecorder()
	userinfo.Routes(h, env.Session).ServeHTTP(rec, testutil.NewRequest("GET", "/", nil))

	rec.AssertStatus(t, http.StatusUnauthorized)
}
