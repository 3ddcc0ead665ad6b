// internal/app/features/errors/errors.go
package errors

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"go.uber.org/zap"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// body is the JSON shape of every error response.
type body struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusFor maps a failure kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.AlreadyProcessed, apperr.Conflict:
		return http.StatusConflict
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.Validation:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Write sends err as {"error": kind, "message": msg}.
func Write(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	WriteJSON(w, StatusFor(kind), body{Error: string(kind), Message: apperr.Message(err)})
}

// Decode reads a JSON request body into v. Unknown fields are rejected.
// The returned error is a validation failure ready for Write.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid JSON body", err)
	}
	return nil
}

// DecodeOptional is Decode for endpoints whose body may be empty.
func DecodeOptional(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := Decode(w, r, v)
	if err != nil && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// ErrorLogger writes error responses and logs the ones worth seeing.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger creates an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

// Handle logs err (storage failures at error level, the rest at debug)
// and writes it.
func (l *ErrorLogger) Handle(w http.ResponseWriter, r *http.Request, op string, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	}
	if apperr.KindOf(err) == apperr.Storage {
		l.Log.Error(op+" failed", fields...)
	} else {
		l.Log.Debug(op+" rejected", fields...)
	}
	Write(w, err)
}

// NotFound is the router's fallback for unknown paths.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusNotFound, body{Error: string(apperr.NotFound), Message: "no such route"})
}

// MethodNotAllowed is the router's fallback for a known path with the
// wrong method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusMethodNotAllowed, body{Error: "method_not_allowed", Message: "method not allowed"})
}
