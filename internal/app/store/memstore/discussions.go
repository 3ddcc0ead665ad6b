package memstore

import (
	"context"
	"slices"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/google/uuid"
)

type discussions struct{ db *DB }

func cloneDiscussion(d models.Discussion) models.Discussion {
	d.Messages = slices.Clone(d.Messages)
	if d.Messages == nil {
		d.Messages = []models.Message{}
	}
	return d
}

func (r discussions) GetOrCreate(ctx context.Context, groupID string, now time.Time) (models.Discussion, error) {
	defer r.db.lock(ctx)()
	if d, ok := r.db.discussions[groupID]; ok {
		return cloneDiscussion(d), nil
	}
	d := models.Discussion{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		Messages:  []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.db.discussions[groupID] = d
	return cloneDiscussion(d), nil
}

func (r discussions) AppendMessage(ctx context.Context, groupID string, msg models.Message) error {
	defer r.db.lock(ctx)()
	d, ok := r.db.discussions[groupID]
	if !ok {
		return repo.ErrNotFound
	}
	d = cloneDiscussion(d)
	d.Messages = append(d.Messages, msg)
	d.UpdatedAt = msg.Timestamp
	r.db.discussions[groupID] = d
	return nil
}

func (r discussions) EditMessage(ctx context.Context, groupID, messageID, userID, text string, at time.Time) error {
	defer r.db.lock(ctx)()
	d, ok := r.db.discussions[groupID]
	if !ok {
		return repo.ErrNotFound
	}
	i := slices.IndexFunc(d.Messages, func(m models.Message) bool {
		return m.ID == messageID && m.UserID == userID
	})
	if i < 0 {
		return repo.ErrNotFound
	}
	d = cloneDiscussion(d)
	d.Messages[i].Text = text
	d.Messages[i].Edited = true
	d.Messages[i].EditedAt = &at
	d.UpdatedAt = at
	r.db.discussions[groupID] = d
	return nil
}

func (r discussions) DeleteByGroup(ctx context.Context, groupID string) error {
	defer r.db.lock(ctx)()
	delete(r.db.discussions, groupID)
	return nil
}

type notes struct{ db *DB }

func (r notes) Get(ctx context.Context, userID, groupID string) (models.UserGroupNotes, error) {
	defer r.db.lock(ctx)()
	n, ok := r.db.notes[pair{userID, groupID}]
	if !ok {
		return models.UserGroupNotes{}, repo.ErrNotFound
	}
	return n, nil
}

func (r notes) Upsert(ctx context.Context, n models.UserGroupNotes) error {
	defer r.db.lock(ctx)()
	r.db.notes[pair{n.UserID, n.GroupID}] = n
	return nil
}

func (r notes) DeleteByGroup(ctx context.Context, groupID string) error {
	defer r.db.lock(ctx)()
	for k := range r.db.notes {
		if k.b == groupID {
			delete(r.db.notes, k)
		}
	}
	return nil
}
