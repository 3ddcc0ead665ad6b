package workflow

import (
	"context"
	"io"
	"strings"

	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"github.com/dalemusser/studybuddy/internal/app/system/blobstore"
	"github.com/dalemusser/studybuddy/internal/app/system/htmlsanitize"
	"github.com/dalemusser/studybuddy/internal/app/system/inputval"
	"github.com/dalemusser/studybuddy/internal/app/system/notify"
	"github.com/dalemusser/studybuddy/internal/app/system/timeouts"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResourceDraft is the input to AddResource.
type ResourceDraft struct {
	Type        string `json:"type" validate:"required,resourcetype"`
	Title       string `json:"title" validate:"required,max=200"`
	URL         string `json:"url" validate:"required,http_url,max=2048"`
	Description string `json:"description" validate:"max=2000"`
}

// Upload is the input to UploadResource. Body is read once.
type Upload struct {
	Type        string    `validate:"required,resourcetype"`
	Title       string    `validate:"required,max=200"`
	Description string    `validate:"max=2000"`
	Filename    string    `validate:"required,max=255"`
	ContentType string    `validate:"max=255"`
	Size        int64     `validate:"gte=0"`
	Body        io.Reader `validate:"required"`
}

// AddResource attaches a link resource to an active group.
func (s *Service) AddResource(ctx context.Context, caller models.Caller, groupID string, d ResourceDraft) (models.Resource, error) {
	d.Type = strings.TrimSpace(strings.ToLower(d.Type))
	d.Title = htmlsanitize.PlainText(d.Title)
	d.URL = strings.TrimSpace(d.URL)
	d.Description = strings.TrimSpace(htmlsanitize.Sanitize(d.Description))
	if err := inputval.Struct(d); err != nil {
		return models.Resource{}, err
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "add resource")
	defer cancel()

	if err := s.resourceGate(ctx, caller, groupID); err != nil {
		return models.Resource{}, err
	}
	res := s.newResource(caller, d.Type, d.Title, d.Description)
	res.URL = d.URL
	return s.attachResource(ctx, caller, groupID, res)
}

// UploadResource stores a file in the blob store and attaches it to an
// active group.
func (s *Service) UploadResource(ctx context.Context, caller models.Caller, groupID string, up Upload) (models.Resource, error) {
	if s.blobs == nil {
		return models.Resource{}, apperr.New(apperr.Validation, "file uploads are not enabled")
	}
	up.Type = strings.TrimSpace(strings.ToLower(up.Type))
	up.Title = htmlsanitize.PlainText(up.Title)
	up.Description = strings.TrimSpace(htmlsanitize.Sanitize(up.Description))
	if err := inputval.Struct(up); err != nil {
		return models.Resource{}, err
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Long(), s.log, "upload resource")
	defer cancel()

	if err := s.resourceGate(ctx, caller, groupID); err != nil {
		return models.Resource{}, err
	}

	res := s.newResource(caller, up.Type, up.Title, up.Description)
	res.ObjectKey = blobstore.ResourceKey(groupID, res.ID, up.Filename)
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.blobs.Put(ctx, res.ObjectKey, up.Body, up.Size, contentType); err != nil {
		return models.Resource{}, storageErr(err)
	}

	out, err := s.attachResource(ctx, caller, groupID, res)
	if err != nil {
		s.deleteBlob(ctx, res.ObjectKey)
		return models.Resource{}, err
	}
	return out, nil
}

func (s *Service) resourceGate(ctx context.Context, caller models.Caller, groupID string) error {
	if _, err := s.activeGroup(ctx, groupID); err != nil {
		return err
	}
	_, err := s.requireMember(ctx, caller, groupID)
	return err
}

func (s *Service) newResource(caller models.Caller, typ, title, desc string) models.Resource {
	name := caller.Name
	if name == "" {
		name = caller.Email
	}
	return models.Resource{
		ID:             uuid.NewString(),
		Type:           typ,
		Title:          title,
		Description:    desc,
		UploadedBy:     caller.UserID,
		UploadedByName: name,
		UploadedAt:     s.now(),
	}
}

func (s *Service) attachResource(ctx context.Context, caller models.Caller, groupID string, res models.Resource) (models.Resource, error) {
	if err := s.b.Groups.AddResource(ctx, groupID, res); err != nil {
		return models.Resource{}, notFoundOr(err, "group not found")
	}
	s.publish(ctx, notify.Event{
		Type:    notify.ResourceAdded,
		GroupID: groupID,
		ActorID: caller.UserID,
		Data:    map[string]string{"resource_id": res.ID, "type": res.Type},
	})
	return res, nil
}

// RemoveResource detaches a resource. Its uploader may remove it while
// still an active member; group admins and super admins always may.
func (s *Service) RemoveResource(ctx context.Context, caller models.Caller, groupID, resourceID string) error {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "remove resource")
	defer cancel()

	g, err := s.getGroup(ctx, groupID)
	if err != nil {
		return err
	}
	res, ok := g.FindResource(resourceID)
	if !ok {
		return apperr.New(apperr.NotFound, "resource not found")
	}
	m, _, err := s.activeMembership(ctx, groupID, caller.UserID)
	if err != nil {
		return err
	}
	switch {
	case caller.IsSuperAdmin, m.ActiveAdmin():
	case !m.Active():
		return apperr.New(apperr.Forbidden, "you are not a member of this group")
	case res.UploadedBy != caller.UserID:
		return apperr.New(apperr.Forbidden, "only the uploader or a group admin can remove this resource")
	}

	if err := s.b.Groups.RemoveResource(ctx, groupID, resourceID); err != nil {
		return notFoundOr(err, "resource not found")
	}
	if res.ObjectKey != "" {
		s.deleteBlob(ctx, res.ObjectKey)
	}
	s.publish(ctx, notify.Event{
		Type:    notify.ResourceRemoved,
		GroupID: groupID,
		ActorID: caller.UserID,
		Data:    map[string]string{"resource_id": resourceID},
	})
	return nil
}

// ResourceURL returns where an active member can fetch a resource: a
// short-lived URL for uploaded files, the stored URL for links.
func (s *Service) ResourceURL(ctx context.Context, caller models.Caller, groupID, resourceID string) (string, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "resource url")
	defer cancel()

	g, err := s.getGroup(ctx, groupID)
	if err != nil {
		return "", err
	}
	if _, err := s.requireMember(ctx, caller, groupID); err != nil {
		return "", err
	}
	res, ok := g.FindResource(resourceID)
	if !ok {
		return "", apperr.New(apperr.NotFound, "resource not found")
	}
	if res.ObjectKey == "" {
		return res.URL, nil
	}
	if s.blobs == nil {
		return "", apperr.New(apperr.NotFound, "file storage is not configured")
	}
	u, err := s.blobs.PresignedURL(ctx, res.ObjectKey, blobstore.DefaultURLExpiry)
	if err != nil {
		return "", storageErr(err)
	}
	return u, nil
}

func (s *Service) deleteBlob(ctx context.Context, key string) {
	if s.blobs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Medium())
	defer cancel()
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Warn("blob delete failed", zap.String("key", key), zap.Error(err))
	}
}
