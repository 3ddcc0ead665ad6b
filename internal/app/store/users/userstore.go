// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/app/system/authutil"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// userRow is the relational shape of models.User.
type userRow struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"uniqueIndex;size:320;not null"`
	PasswordHash string `gorm:"not null"`
	FirstName    string `gorm:"size:100"`
	LastName     string `gorm:"size:100"`
	DateOfBirth  *time.Time
	PhoneNumber  string `gorm:"size:32"`
	IsSuperAdmin bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

func (r userRow) model() models.User {
	return models.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		DateOfBirth:  r.DateOfBirth,
		PhoneNumber:  r.PhoneNumber,
		IsSuperAdmin: r.IsSuperAdmin,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type Store struct {
	db *gorm.DB
}

var _ repo.Users = (*Store)(nil)

// Open opens (creating if needed) the SQLite database at path and migrates
// the users table. ":memory:" gives a private in-process database.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// One connection: SQLite serializes writers anyway, and each
	// connection to ":memory:" would otherwise see its own empty database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return New(db)
}

// New wraps an existing gorm handle and migrates the users table.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&userRow{}); err != nil {
		return nil, fmt.Errorf("migrate users: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	hash, err := authutil.HashPassword(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	row := userRow{
		ID:           u.ID,
		Email:        normEmail(u.Email),
		PasswordHash: hash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		DateOfBirth:  u.DateOfBirth,
		PhoneNumber:  u.PhoneNumber,
		IsSuperAdmin: u.IsSuperAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isDup(err) {
			return models.User{}, repo.ErrDuplicate
		}
		return models.User{}, err
	}
	return row.model(), nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.User, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return s.first(ctx, "email = ?", normEmail(email))
}

func (s *Store) first(ctx context.Context, query string, arg any) (models.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, repo.ErrNotFound
		}
		return models.User{}, err
	}
	return row.model(), nil
}

// Authenticate returns ErrBadCredentials for both an unknown email and a
// wrong password.
func (s *Store) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	u, err := s.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return models.User{}, repo.ErrBadCredentials
		}
		return models.User{}, err
	}
	if !authutil.CheckPassword(u.PasswordHash, password) {
		return models.User{}, repo.ErrBadCredentials
	}
	return u, nil
}

func (s *Store) SetSuperAdmin(ctx context.Context, id string, isSuperAdmin bool) error {
	res := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).
		Updates(map[string]any{"is_super_admin": isSuperAdmin, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func normEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func isDup(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
