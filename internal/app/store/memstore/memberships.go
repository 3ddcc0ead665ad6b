package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
)

type memberships struct{ db *DB }

func (r memberships) Activate(ctx context.Context, m models.Membership) error {
	defer r.db.lock(ctx)()
	k := pair{m.GroupID, m.UserID}
	if cur, ok := r.db.memberships[k]; ok && cur.Active() {
		return repo.ErrDuplicate
	}
	m.Status = models.MemberActive
	r.db.memberships[k] = m
	return nil
}

func (r memberships) Get(ctx context.Context, groupID, userID string) (models.Membership, error) {
	defer r.db.lock(ctx)()
	m, ok := r.db.memberships[pair{groupID, userID}]
	if !ok {
		return models.Membership{}, repo.ErrNotFound
	}
	return m, nil
}

func (r memberships) SetStatus(ctx context.Context, groupID, userID, status string, at time.Time) error {
	defer r.db.lock(ctx)()
	k := pair{groupID, userID}
	m, ok := r.db.memberships[k]
	if !ok {
		return repo.ErrNotFound
	}
	if !m.Active() {
		return repo.ErrPrecondition
	}
	m.Status = status
	m.UpdatedAt = at
	r.db.memberships[k] = m
	return nil
}

func (r memberships) ListByGroup(ctx context.Context, groupID, status string) ([]models.Membership, error) {
	return r.filter(ctx, func(m models.Membership) bool {
		return m.GroupID == groupID && (status == "" || m.Status == status)
	})
}

func (r memberships) ListActiveByUser(ctx context.Context, userID string) ([]models.Membership, error) {
	return r.filter(ctx, func(m models.Membership) bool {
		return m.UserID == userID && m.Active()
	})
}

// filter returns matches in join order.
func (r memberships) filter(ctx context.Context, keep func(models.Membership) bool) ([]models.Membership, error) {
	defer r.db.lock(ctx)()
	out := []models.Membership{}
	for _, m := range r.db.memberships {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (r memberships) CountActive(ctx context.Context, groupID string) (int64, error) {
	defer r.db.lock(ctx)()
	var n int64
	for k, m := range r.db.memberships {
		if k.a == groupID && m.Active() {
			n++
		}
	}
	return n, nil
}

func (r memberships) DeleteByGroup(ctx context.Context, groupID string) error {
	defer r.db.lock(ctx)()
	for k := range r.db.memberships {
		if k.a == groupID {
			delete(r.db.memberships, k)
		}
	}
	return nil
}

type index struct{ db *DB }

func (r index) AddGroup(ctx context.Context, userID, groupID string) error {
	defer r.db.lock(ctx)()
	set := map[string]bool{}
	for g := range r.db.index[userID] {
		set[g] = true
	}
	set[groupID] = true
	r.db.index[userID] = set
	return nil
}

func (r index) RemoveGroup(ctx context.Context, userID, groupID string) error {
	defer r.db.lock(ctx)()
	r.db.index[userID] = without(r.db.index[userID], groupID)
	return nil
}

func (r index) GroupIDs(ctx context.Context, userID string) ([]string, error) {
	defer r.db.lock(ctx)()
	out := make([]string, 0, len(r.db.index[userID]))
	for g := range r.db.index[userID] {
		out = append(out, g)
	}
	sort.Strings(out)
	return out, nil
}

func (r index) RemoveGroupFromAll(ctx context.Context, groupID string) error {
	defer r.db.lock(ctx)()
	for u, set := range r.db.index {
		if set[groupID] {
			r.db.index[u] = without(set, groupID)
		}
	}
	return nil
}

// without returns a copy of set minus g; the stored set is never mutated
// so transaction snapshots stay valid.
func without(set map[string]bool, g string) map[string]bool {
	out := make(map[string]bool, len(set))
	for k := range set {
		if k != g {
			out[k] = true
		}
	}
	return out
}
