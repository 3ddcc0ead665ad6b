package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/app/system/apperr"
	"github.com/dalemusser/studybuddy/internal/app/system/authutil"
	"github.com/dalemusser/studybuddy/internal/app/system/inputval"
	"github.com/dalemusser/studybuddy/internal/app/system/timeouts"
	"github.com/dalemusser/studybuddy/internal/domain/models"
	"go.uber.org/zap"
)

// SignupInput is the input to Signup. DateOfBirth is YYYY-MM-DD.
type SignupInput struct {
	Email       string `json:"email" validate:"required,emailaddr"`
	Password    string `json:"password" validate:"required"`
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	PhoneNumber string `json:"phone_number" validate:"omitempty,e164"`
}

// Signup creates an account.
func (s *Service) Signup(ctx context.Context, in SignupInput) (models.User, error) {
	in.Email = inputval.NormalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := inputval.Struct(in); err != nil {
		return models.User{}, err
	}
	if err := authutil.ValidatePassword(in.Password); err != nil {
		return models.User{}, apperr.Wrap(apperr.Validation, err.Error(), err)
	}

	u := models.User{
		Email:       in.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
	}
	if in.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", in.DateOfBirth)
		if err != nil {
			return models.User{}, apperr.Wrap(apperr.Validation, "date_of_birth must be YYYY-MM-DD", err)
		}
		u.DateOfBirth = &dob
	}

	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "signup")
	defer cancel()

	created, err := s.users.Create(ctx, u, in.Password)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return models.User{}, apperr.Wrap(apperr.Conflict, "an account with this email already exists", err)
		}
		return models.User{}, storageErr(err)
	}
	s.log.Info("user signed up", zap.String("user_id", created.ID))
	return created, nil
}

// Login checks credentials and returns the account.
func (s *Service) Login(ctx context.Context, email, password string) (models.User, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "login")
	defer cancel()

	u, err := s.users.Authenticate(ctx, inputval.NormalizeEmail(email), password)
	if err != nil {
		if errors.Is(err, repo.ErrBadCredentials) {
			return models.User{}, apperr.Wrap(apperr.Forbidden, "invalid email or password", err)
		}
		return models.User{}, storageErr(err)
	}
	return u, nil
}

// GetUser returns an account by id.
func (s *Service) GetUser(ctx context.Context, id string) (models.User, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Short(), s.log, "get user")
	defer cancel()

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, notFoundOr(err, "user not found")
	}
	return u, nil
}

// PromoteSuperAdmin grants super-admin rights to the account with email.
func (s *Service) PromoteSuperAdmin(ctx context.Context, email string) (models.User, error) {
	ctx, cancel := timeouts.WithTimeout(ctx, timeouts.Medium(), s.log, "promote super admin")
	defer cancel()

	u, err := s.users.GetByEmail(ctx, inputval.NormalizeEmail(email))
	if err != nil {
		return models.User{}, notFoundOr(err, "user not found")
	}
	if u.IsSuperAdmin {
		return u, nil
	}
	if err := s.users.SetSuperAdmin(ctx, u.ID, true); err != nil {
		return models.User{}, notFoundOr(err, "user not found")
	}
	u.IsSuperAdmin = true
	s.log.Info("user promoted to super admin", zap.String("user_id", u.ID))
	return u, nil
}
