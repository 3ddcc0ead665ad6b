package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
)

type invitations struct{ db *DB }

func (r invitations) Create(ctx context.Context, inv models.Invitation) error {
	defer r.db.lock(ctx)()
	if _, ok := r.db.invitations[inv.ID]; ok {
		return repo.ErrDuplicate
	}
	for _, cur := range r.db.invitations {
		if cur.Token == inv.Token {
			return repo.ErrDuplicate
		}
	}
	r.db.invitations[inv.ID] = inv
	return nil
}

func (r invitations) GetByToken(ctx context.Context, token string) (models.Invitation, error) {
	defer r.db.lock(ctx)()
	for _, inv := range r.db.invitations {
		if inv.Token == token {
			return inv, nil
		}
	}
	return models.Invitation{}, repo.ErrNotFound
}

func (r invitations) FindPending(ctx context.Context, groupID, email string) (models.Invitation, error) {
	list, _ := r.filter(ctx, func(inv models.Invitation) bool {
		return inv.GroupID == groupID && inv.InvitedEmail == email && inv.Status == models.InvitePending
	})
	if len(list) == 0 {
		return models.Invitation{}, repo.ErrNotFound
	}
	return list[0], nil
}

func (r invitations) ListByGroup(ctx context.Context, groupID string) ([]models.Invitation, error) {
	return r.filter(ctx, func(inv models.Invitation) bool { return inv.GroupID == groupID })
}

func (r invitations) ListPendingByEmail(ctx context.Context, email string) ([]models.Invitation, error) {
	return r.filter(ctx, func(inv models.Invitation) bool {
		return inv.InvitedEmail == email && inv.Status == models.InvitePending
	})
}

// filter returns matches newest first.
func (r invitations) filter(ctx context.Context, keep func(models.Invitation) bool) ([]models.Invitation, error) {
	defer r.db.lock(ctx)()
	out := []models.Invitation{}
	for _, inv := range r.db.invitations {
		if keep(inv) {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].SentAt.After(out[j].SentAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r invitations) MarkAccepted(ctx context.Context, inv models.Invitation, userID string, at time.Time) error {
	return r.transition(ctx, inv.ID, func(cur *models.Invitation) {
		cur.Status = models.InviteAccepted
		cur.AcceptedAt = &at
		cur.AcceptedBy = userID
	})
}

func (r invitations) MarkDeclined(ctx context.Context, inv models.Invitation, at time.Time) error {
	return r.transition(ctx, inv.ID, func(cur *models.Invitation) {
		cur.Status = models.InviteDeclined
		cur.DeclinedAt = &at
	})
}

func (r invitations) MarkExpired(ctx context.Context, inv models.Invitation) error {
	return r.transition(ctx, inv.ID, func(cur *models.Invitation) {
		cur.Status = models.InviteExpired
	})
}

func (r invitations) transition(ctx context.Context, id string, apply func(*models.Invitation)) error {
	defer r.db.lock(ctx)()
	cur, ok := r.db.invitations[id]
	if !ok {
		return repo.ErrNotFound
	}
	if cur.Status != models.InvitePending {
		return repo.ErrPrecondition
	}
	apply(&cur)
	r.db.invitations[id] = cur
	return nil
}

func (r invitations) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	defer r.db.lock(ctx)()
	var n int64
	for id, inv := range r.db.invitations {
		if inv.Status == models.InvitePending && inv.Expired(now) {
			inv.Status = models.InviteExpired
			r.db.invitations[id] = inv
			n++
		}
	}
	return n, nil
}

func (r invitations) DeleteByGroup(ctx context.Context, groupID string) error {
	defer r.db.lock(ctx)()
	for id, inv := range r.db.invitations {
		if inv.GroupID == groupID {
			delete(r.db.invitations, id)
		}
	}
	return nil
}
