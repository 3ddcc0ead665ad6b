package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/studybuddy/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Checker is satisfied by *workflow.Service.
type Checker interface {
	Ping(ctx context.Context) error
	BackendName() string
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Checker Checker
	Log     *zap.Logger
}

// NewHandler constructs a health Handler.
func NewHandler(c Checker, logger *zap.Logger) *Handler {
	return &Handler{
		Checker: c,
		Log:     logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
	Message  string `json:"message,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "backend":"mongo", "database":"connected" }
//
// When the backend or user store does not answer: 503 and
//
//	{ "status":"error", "backend":"mongo", "database":"disconnected", "message":"Database unavailable" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Backend:  h.Checker.BackendName(),
		Database: "connected",
	}

	if err := h.Checker.Ping(ctx); err != nil {
		h.Log.Error("health-check: ping failed", zap.String("backend", resp.Backend), zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
	}

	_ = json.NewEncoder(w).Encode(resp)
}
