// internal/app/features/resources/handler.go
package resources

import (
	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/app/workflow"
	"go.uber.org/zap"
)

// MaxUploadSize caps multipart uploads.
const MaxUploadSize = 32 << 20

// Handler serves a group's shared resources: links and uploaded files.
type Handler struct {
	Svc    *workflow.Service
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(svc *workflow.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger, ErrLog: errLog}
}
