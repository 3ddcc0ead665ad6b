package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
)

type requests struct{ db *DB }

func (r requests) Create(ctx context.Context, jr models.JoinRequest) error {
	defer r.db.lock(ctx)()
	if _, ok := r.db.requests[jr.ID]; ok {
		return repo.ErrDuplicate
	}
	for _, cur := range r.db.requests {
		if cur.GroupID == jr.GroupID && cur.UserID == jr.UserID && cur.Status == models.RequestPending {
			return repo.ErrDuplicate
		}
	}
	r.db.requests[jr.ID] = jr
	return nil
}

func (r requests) Get(ctx context.Context, id string) (models.JoinRequest, error) {
	defer r.db.lock(ctx)()
	jr, ok := r.db.requests[id]
	if !ok {
		return models.JoinRequest{}, repo.ErrNotFound
	}
	return jr, nil
}

func (r requests) FindPending(ctx context.Context, groupID, userID string) (models.JoinRequest, error) {
	defer r.db.lock(ctx)()
	for _, jr := range r.db.requests {
		if jr.GroupID == groupID && jr.UserID == userID && jr.Status == models.RequestPending {
			return jr, nil
		}
	}
	return models.JoinRequest{}, repo.ErrNotFound
}

func (r requests) ListPendingByGroup(ctx context.Context, groupID string) ([]models.JoinRequest, error) {
	return r.filter(ctx, true, func(jr models.JoinRequest) bool {
		return jr.GroupID == groupID && jr.Status == models.RequestPending
	})
}

func (r requests) ListByUser(ctx context.Context, userID string) ([]models.JoinRequest, error) {
	return r.filter(ctx, false, func(jr models.JoinRequest) bool { return jr.UserID == userID })
}

func (r requests) filter(ctx context.Context, oldestFirst bool, keep func(models.JoinRequest) bool) ([]models.JoinRequest, error) {
	defer r.db.lock(ctx)()
	out := []models.JoinRequest{}
	for _, jr := range r.db.requests {
		if keep(jr) {
			out = append(out, jr)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].RequestedAt, out[j].RequestedAt
		if a.Equal(b) {
			return out[i].ID < out[j].ID
		}
		if oldestFirst {
			return a.Before(b)
		}
		return a.After(b)
	})
	return out, nil
}

func (r requests) Decide(ctx context.Context, jr models.JoinRequest, status, processedBy, reason string, at time.Time) error {
	defer r.db.lock(ctx)()
	cur, ok := r.db.requests[jr.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if cur.Status != models.RequestPending {
		return repo.ErrPrecondition
	}
	cur.Status = status
	cur.ProcessedBy = processedBy
	cur.ProcessedAt = &at
	if reason != "" {
		cur.RejectionReason = reason
	}
	r.db.requests[jr.ID] = cur
	return nil
}

func (r requests) DeleteByGroup(ctx context.Context, groupID string) error {
	defer r.db.lock(ctx)()
	for id, jr := range r.db.requests {
		if jr.GroupID == groupID {
			delete(r.db.requests, id)
		}
	}
	return nil
}
