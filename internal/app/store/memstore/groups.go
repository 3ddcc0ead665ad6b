package memstore

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
)

type groups struct{ db *DB }

func cloneGroup(g models.Group) models.Group {
	g.Resources = slices.Clone(g.Resources)
	if g.Resources == nil {
		g.Resources = []models.Resource{}
	}
	return g
}

func (r groups) Create(ctx context.Context, g models.Group) error {
	defer r.db.lock(ctx)()
	if _, ok := r.db.groups[g.ID]; ok {
		return repo.ErrDuplicate
	}
	g.NameCI = text.Fold(g.Name)
	r.db.groups[g.ID] = cloneGroup(g)
	return nil
}

func (r groups) Get(ctx context.Context, id string) (models.Group, error) {
	defer r.db.lock(ctx)()
	g, ok := r.db.groups[id]
	if !ok {
		return models.Group{}, repo.ErrNotFound
	}
	return cloneGroup(g), nil
}

func (r groups) ListByStatus(ctx context.Context, status string) ([]models.Group, error) {
	return r.filter(ctx, func(g models.Group) bool { return g.Status == status })
}

func (r groups) ListForUser(ctx context.Context, groupIDs []string, creatorID string) ([]models.Group, error) {
	return r.filter(ctx, func(g models.Group) bool {
		return g.CreatedBy == creatorID || slices.Contains(groupIDs, g.ID)
	})
}

func (r groups) ListAll(ctx context.Context) ([]models.Group, error) {
	return r.filter(ctx, func(models.Group) bool { return true })
}

// filter returns matches newest first.
func (r groups) filter(ctx context.Context, keep func(models.Group) bool) ([]models.Group, error) {
	defer r.db.lock(ctx)()
	out := []models.Group{}
	for _, g := range r.db.groups {
		if keep(g) {
			out = append(out, cloneGroup(g))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r groups) Approve(ctx context.Context, id, adminID string, at time.Time) error {
	return r.decide(ctx, id, func(g *models.Group) {
		g.Status = models.GroupActive
		g.ApprovalStatus.ApprovedBy = adminID
		g.ApprovalStatus.ApprovedAt = &at
		g.UpdatedAt = at
	})
}

func (r groups) Reject(ctx context.Context, id, adminID, reason string, at time.Time) error {
	return r.decide(ctx, id, func(g *models.Group) {
		g.Status = models.GroupRejected
		g.ApprovalStatus.RejectedBy = adminID
		g.ApprovalStatus.RejectedAt = &at
		g.ApprovalStatus.RejectionReason = reason
		g.UpdatedAt = at
	})
}

func (r groups) decide(ctx context.Context, id string, apply func(*models.Group)) error {
	defer r.db.lock(ctx)()
	g, ok := r.db.groups[id]
	if !ok {
		return repo.ErrNotFound
	}
	if g.Status != models.GroupPendingApproval {
		return repo.ErrPrecondition
	}
	g = cloneGroup(g)
	apply(&g)
	r.db.groups[id] = g
	return nil
}

func (r groups) Delete(ctx context.Context, id string) error {
	defer r.db.lock(ctx)()
	if _, ok := r.db.groups[id]; !ok {
		return repo.ErrNotFound
	}
	delete(r.db.groups, id)
	return nil
}

func (r groups) AddResource(ctx context.Context, groupID string, res models.Resource) error {
	return r.update(ctx, groupID, func(g *models.Group) error {
		g.Resources = append(g.Resources, res)
		g.UpdatedAt = res.UploadedAt
		return nil
	})
}

func (r groups) RemoveResource(ctx context.Context, groupID, resourceID string) error {
	return r.update(ctx, groupID, func(g *models.Group) error {
		i := slices.IndexFunc(g.Resources, func(x models.Resource) bool { return x.ID == resourceID })
		if i < 0 {
			return repo.ErrNotFound
		}
		g.Resources = slices.Delete(g.Resources, i, i+1)
		g.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r groups) SetMeetingLink(ctx context.Context, groupID, link string, at time.Time) error {
	return r.update(ctx, groupID, func(g *models.Group) error {
		g.Overview.MeetingLink = link
		g.Overview.MeetingLinkCreatedAt = &at
		g.UpdatedAt = at
		return nil
	})
}

func (r groups) SetDiscussionID(ctx context.Context, groupID, discussionID string) error {
	return r.update(ctx, groupID, func(g *models.Group) error {
		g.DiscussionID = discussionID
		return nil
	})
}

func (r groups) BumpMemberVersion(ctx context.Context, groupID string, expected int64) error {
	return r.update(ctx, groupID, func(g *models.Group) error {
		if g.MemberVersion != expected {
			return repo.ErrPrecondition
		}
		g.MemberVersion++
		return nil
	})
}

func (r groups) update(ctx context.Context, id string, apply func(*models.Group) error) error {
	defer r.db.lock(ctx)()
	g, ok := r.db.groups[id]
	if !ok {
		return repo.ErrNotFound
	}
	g = cloneGroup(g)
	if err := apply(&g); err != nil {
		return err
	}
	r.db.groups[id] = g
	return nil
}
