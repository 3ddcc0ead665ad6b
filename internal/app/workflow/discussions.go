package workflow

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"github.com/dalemusser/studybuddy/internal/app/system/htmlsanitize"
	"github.com/dalemusser/studybuddy/internal/app/system/notify"
	"github.com/dalemusser/studybuddy/internal/app/system/timeouts"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GetDiscussion returns the group's discussion, creating it on first use.
func (s *Service) GetDiscussion(ctx context.Context, caller models.Caller, groupID string) (models.Discussion, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "get discussion")
	defer cancel()

	g, err := s.discussionGate(ctx, caller, groupID)
	if err != nil {
		return models.Discussion{}, err
	}
	return s.discussion(ctx, g)
}

// AddMessage appends a message to the group's discussion.
func (s *Service) AddMessage(ctx context.Context, caller models.Caller, groupID, text string) (models.Message, error) {
	text, err := cleanMessage(text)
	if err != nil {
		return models.Message{}, err
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "add message")
	defer cancel()

	g, err := s.discussionGate(ctx, caller, groupID)
	if err != nil {
		return models.Message{}, err
	}
	if _, err := s.discussion(ctx, g); err != nil {
		return models.Message{}, err
	}

	name := caller.Name
	if name == "" {
		name = caller.Email
	}
	msg := models.Message{
		ID:        uuid.NewString(),
		UserID:    caller.UserID,
		UserName:  name,
		UserEmail: caller.Email,
		Text:      text,
		Timestamp: s.now(),
	}
	if err := s.b.Discussions.AppendMessage(ctx, groupID, msg); err != nil {
		return models.Message{}, notFoundOr(err, "discussion not found")
	}

	s.publish(ctx, notify.Event{
		Type:    notify.MessagePosted,
		GroupID: groupID,
		ActorID: caller.UserID,
		Data:    map[string]string{"message_id": msg.ID},
	})
	return msg, nil
}

// EditMessage replaces the text of one of the caller's own messages.
func (s *Service) EditMessage(ctx context.Context, caller models.Caller, groupID, messageID, text string) (models.Message, error) {
	text, err := cleanMessage(text)
	if err != nil {
		return models.Message{}, err
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "edit message")
	defer cancel()

	g, err := s.discussionGate(ctx, caller, groupID)
	if err != nil {
		return models.Message{}, err
	}
	d, err := s.discussion(ctx, g)
	if err != nil {
		return models.Message{}, err
	}

	var msg models.Message
	found := false
	for _, m := range d.Messages {
		if m.ID == messageID {
			msg, found = m, true
			break
		}
	}
	if !found {
		return models.Message{}, apperr.New(apperr.NotFound, "message not found")
	}
	if msg.UserID != caller.UserID {
		return models.Message{}, apperr.New(apperr.Forbidden, "you can only edit your own messages")
	}

	now := s.now()
	if err := s.b.Discussions.EditMessage(ctx, groupID, messageID, caller.UserID, text, now); err != nil {
		return models.Message{}, notFoundOr(err, "message not found")
	}
	msg.Text = text
	msg.Edited = true
	msg.EditedAt = &now
	return msg, nil
}

// GetNotes returns the caller's private notes for a group, empty on first
// read.
func (s *Service) GetNotes(ctx context.Context, caller models.Caller, groupID string) (models.UserGroupNotes, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "get notes")
	defer cancel()

	if _, err := s.requireMember(ctx, caller, groupID); err != nil {
		return models.UserGroupNotes{}, err
	}
	n, err := s.b.Notes.Get(ctx, caller.UserID, groupID)
	if err == nil {
		return n, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return models.UserGroupNotes{}, storageErr(err)
	}

	n = models.UserGroupNotes{UserID: caller.UserID, GroupID: groupID, UpdatedAt: s.now()}
	if err := s.b.Notes.Upsert(ctx, n); err != nil {
		return models.UserGroupNotes{}, storageErr(err)
	}
	return n, nil
}

// UpdateNotes saves the caller's notes. The last write wins; notes longer
// than models.MaxNotesLength are truncated.
func (s *Service) UpdateNotes(ctx context.Context, caller models.Caller, groupID, text string) (models.UserGroupNotes, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "update notes")
	defer cancel()

	if _, err := s.requireMember(ctx, caller, groupID); err != nil {
		return models.UserGroupNotes{}, err
	}
	n := models.UserGroupNotes{
		UserID:    caller.UserID,
		GroupID:   groupID,
		Notes:     htmlsanitize.Truncate(htmlsanitize.PlainText(text), models.MaxNotesLength),
		UpdatedAt: s.now(),
	}
	if err := s.b.Notes.Upsert(ctx, n); err != nil {
		return models.UserGroupNotes{}, storageErr(err)
	}
	return n, nil
}

func (s *Service) discussionGate(ctx context.Context, caller models.Caller, groupID string) (models.Group, error) {
	g, err := s.activeGroup(ctx, groupID)
	if err != nil {
		return models.Group{}, err
	}
	if _, err := s.requireMember(ctx, caller, groupID); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// discussion loads or creates g's discussion and links it from the group.
func (s *Service) discussion(ctx context.Context, g models.Group) (models.Discussion, error) {
	d, err := s.b.Discussions.GetOrCreate(ctx, g.ID, s.now())
	if err != nil {
		return models.Discussion{}, storageErr(err)
	}
	if g.DiscussionID != d.ID {
		if err := s.b.Groups.SetDiscussionID(ctx, g.ID, d.ID); err != nil {
			s.log.Warn("link discussion failed", zap.String("group_id", g.ID), zap.Error(err))
		}
	}
	return d, nil
}

func cleanMessage(text string) (string, error) {
	text = htmlsanitize.PlainText(text)
	if text == "" {
		return "", apperr.New(apperr.Validation, "message cannot be empty")
	}
	if utf8.RuneCountInString(text) > models.MaxMessageLength {
		return "", apperr.New(apperr.Validation, "message must be at most 2000 characters")
	}
	return text, nil
}
