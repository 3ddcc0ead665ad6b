// internal/app/features/resources/resources.go
package resources

import (
	"net/http"

	uierrors "github.com/dalemusser/studybuddy/internal/app/features/errors"
	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"github.com/dalemusser/studybuddy/internal/app/system/auth"
	"github.com/dalemusser/studybuddy/internal/app/workflow"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HandleAdd handles POST /groups/{id}/resources with a JSON link.
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var d workflow.ResourceDraft
	if err := uierrors.Decode(w, r, &d); err != nil {
		uierrors.Write(w, err)
		return
	}
	caller, _ := auth.CurrentCaller(r)
	res, err := h.Svc.AddResource(r.Context(), caller, chi.URLParam(r, "id"), d)
	if err != nil {
		h.ErrLog.Handle(w, r, "add resource", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusCreated, res)
}

// HandleUpload handles POST /groups/{id}/resources/upload.
//
// Multipart form fields: file (required), type, title, description.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		uierrors.Write(w, apperr.Wrap(apperr.Validation, "invalid upload form", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		uierrors.Write(w, apperr.Wrap(apperr.Validation, "file is required", err))
		return
	}
	defer file.Close()

	up := workflow.Upload{
		Type:        r.FormValue("type"),
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}

	caller, _ := auth.CurrentCaller(r)
	groupID := chi.URLParam(r, "id")
	res, err := h.Svc.UploadResource(r.Context(), caller, groupID, up)
	if err != nil {
		h.ErrLog.Handle(w, r, "upload resource", err)
		return
	}
	h.Log.Info("resource uploaded",
		zap.String("group_id", groupID),
		zap.String("resource_id", res.ID),
		zap.Int64("size", header.Size))
	uierrors.WriteJSON(w, http.StatusCreated, res)
}

type urlResponse struct {
	URL string `json:"url"`
}

// ServeURL handles GET /groups/{id}/resources/{rid}. Uploaded files get a
// short-lived URL; links return their stored URL.
func (h *Handler) ServeURL(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	u, err := h.Svc.ResourceURL(r.Context(), caller, chi.URLParam(r, "id"), chi.URLParam(r, "rid"))
	if err != nil {
		h.ErrLog.Handle(w, r, "resource url", err)
		return
	}
	uierrors.WriteJSON(w, http.StatusOK, urlResponse{URL: u})
}

// HandleRemove handles DELETE /groups/{id}/resources/{rid}.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CurrentCaller(r)
	if err := h.Svc.RemoveResource(r.Context(), caller, chi.URLParam(r, "id"), chi.URLParam(r, "rid")); err != nil {
		h.ErrLog.Handle(w, r, "remove resource", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
