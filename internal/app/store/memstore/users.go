package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/app/system/authutil"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/google/uuid"
)

// Users implements repo.Users in memory.
type Users struct{ db *DB }

var _ repo.Users = (*Users)(nil)

func (r *Users) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	hash, err := authutil.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	u.PasswordHash = hash
	return r.Seed(ctx, u)
}

// Seed stores u as given (PasswordHash included), assigning an id and
// timestamps when missing. Tests use it to skip password hashing.
func (r *Users) Seed(ctx context.Context, u models.User) (models.User, error) {
	defer r.db.lock(ctx)()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, cur := range r.db.users {
		if cur.Email == u.Email {
			return models.User{}, repo.ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	r.db.users[u.ID] = u
	return u, nil
}

func (r *Users) GetByID(ctx context.Context, id string) (models.User, error) {
	defer r.db.lock(ctx)()
	u, ok := r.db.users[id]
	if !ok {
		return models.User{}, repo.ErrNotFound
	}
	return u, nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (models.User, error) {
	defer r.db.lock(ctx)()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.db.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repo.ErrNotFound
}

func (r *Users) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	u, err := r.GetByEmail(ctx, email)
	if err != nil {
		return models.User{}, repo.ErrBadCredentials
	}
	if !authutil.CheckPassword(u.PasswordHash, password) {
		return models.User{}, repo.ErrBadCredentials
	}
	return u, nil
}

func (r *Users) SetSuperAdmin(ctx context.Context, id string, isSuperAdmin bool) error {
	defer r.db.lock(ctx)()
	u, ok := r.db.users[id]
	if !ok {
		return repo.ErrNotFound
	}
	u.IsSuperAdmin = isSuperAdmin
	u.UpdatedAt = time.Now().UTC()
	r.db.users[id] = u
	return nil
}
