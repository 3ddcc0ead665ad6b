package errors_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"github.com/dalemusser/studybuddy/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWrite_StatusByKind(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{apperr.New(apperr.NotFound, "group not found"), http.StatusNotFound, "not_found"},
		{apperr.New(apperr.AlreadyProcessed, "done"), http.StatusConflict, "already_processed"},
		{apperr.New(apperr.Conflict, "dup"), http.StatusConflict, "conflict"},
		{apperr.New(apperr.Forbidden, "no"), http.StatusForbidden, "forbidden"},
		{apperr.New(apperr.Validation, "bad"), http.StatusBadRequest, "validation"},
		{errors.New("socket closed"), http.StatusServiceUnavailable, "storage"},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			rec := testutil.NewRecorder()
			uierrors.Write(rec, tt.err)
			rec.AssertStatus(t, tt.status)

			var got map[string]string
			rec.DecodeJSON(t, &got)
			assert.Equal(t, tt.kind, got["error"])
			assert.NotEmpty(t, got["message"])
		})
	}
}

func TestWrite_HidesStorageCause(t *testing.T) {
	rec := testutil.NewRecorder()
	uierrors.Write(rec, apperr.StorageErr(errors.New("mongodb://secret-host")))
	assert.NotContains(t, rec.Body.String(), "secret-host")
}

func TestDecode(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	req := testutil.NewRequest("POST", "/", map[string]string{"name": "x"})
	require.NoError(t, uierrors.Decode(testutil.NewRecorder(), req, &v))
	assert.Equal(t, "x", v.Name)

	req = testutil.NewRequest("POST", "/", map[string]string{"nmae": "x"})
	err := uierrors.Decode(testutil.NewRecorder(), req, &v)
	assert.True(t, apperr.Is(err, apperr.Validation))

	req = testutil.NewRequest("POST", "/", nil)
	req.Body = http.NoBody
	err = uierrors.Decode(testutil.NewRecorder(), req, &v)
	assert.True(t, apperr.Is(err, apperr.Validation))

	req = testutil.NewRequest("POST", "/", strings.Repeat("a", uierrors.MaxBodyBytes+1))
	err = uierrors.Decode(testutil.NewRecorder(), req, &v)
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestErrorLogger_Handle(t *testing.T) {
	l := uierrors.NewErrorLogger(zap.NewNop())
	rec := testutil.NewRecorder()
	l.Handle(rec, testutil.NewRequest("GET", "/groups/x", nil), "get group", apperr.New(apperr.NotFound, "group not found"))
	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertContains(t, "group not found")
}

func TestFallbacks(t *testing.T) {
	rec := testutil.NewRecorder()
	uierrors.NotFound(rec, testutil.NewRequest("GET", "/nope", nil))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = testutil.NewRecorder()
	uierrors.MethodNotAllowed(rec, testutil.NewRequest("PATCH", "/health", nil))
	rec.AssertStatus(t, http.StatusMethodNotAllowed)
}
