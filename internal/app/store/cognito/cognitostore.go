// internal/app/store/cognito/cognitostore.go
package cognitostore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/dalemusser/studybuddy/internal/app/repo"
	"github.com/dalemusser/studybuddy/internal/domain/models"
)

const (
	attrSub        = "sub"
	attrEmail      = "email"
	attrGivenName  = "given_name"
	attrFamilyName = "family_name"
	attrBirthdate  = "birthdate"
	attrPhone      = "phone_number"
	attrSuperAdmin = "custom:is_super_admin"

	birthdateLayout = "2006-01-02"
)

// API is the subset of the Cognito client the store calls.
type API interface {
	AdminCreateUser(ctx context.Context, in *cip.AdminCreateUserInput, optFns ...func(*cip.Options)) (*cip.AdminCreateUserOutput, error)
	AdminSetUserPassword(ctx context.Context, in *cip.AdminSetUserPasswordInput, optFns ...func(*cip.Options)) (*cip.AdminSetUserPasswordOutput, error)
	AdminGetUser(ctx context.Context, in *cip.AdminGetUserInput, optFns ...func(*cip.Options)) (*cip.AdminGetUserOutput, error)
	ListUsers(ctx context.Context, in *cip.ListUsersInput, optFns ...func(*cip.Options)) (*cip.ListUsersOutput, error)
	AdminInitiateAuth(ctx context.Context, in *cip.AdminInitiateAuthInput, optFns ...func(*cip.Options)) (*cip.AdminInitiateAuthOutput, error)
	AdminUpdateUserAttributes(ctx context.Context, in *cip.AdminUpdateUserAttributesInput, optFns ...func(*cip.Options)) (*cip.AdminUpdateUserAttributesOutput, error)
}

// Store keeps accounts in a Cognito user pool. The username is the
// lower-cased email and the user id is the pool's immutable "sub".
type Store struct {
	api      API
	poolID   string
	clientID string
}

var _ repo.Users = (*Store)(nil)

func New(api API, userPoolID, clientID string) *Store {
	return &Store{api: api, poolID: userPoolID, clientID: clientID}
}

func (s *Store) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	email := normEmail(u.Email)
	attrs := []types.AttributeType{
		{Name: aws.String(attrEmail), Value: aws.String(email)},
		{Name: aws.String("email_verified"), Value: aws.String("true")},
		{Name: aws.String(attrGivenName), Value: aws.String(u.FirstName)},
		{Name: aws.String(attrFamilyName), Value: aws.String(u.LastName)},
		{Name: aws.String(attrSuperAdmin), Value: aws.String(strconv.FormatBool(u.IsSuperAdmin))},
	}
	if u.DateOfBirth != nil {
		attrs = append(attrs, types.AttributeType{Name: aws.String(attrBirthdate), Value: aws.String(u.DateOfBirth.Format(birthdateLayout))})
	}
	if u.PhoneNumber != "" {
		attrs = append(attrs, types.AttributeType{Name: aws.String(attrPhone), Value: aws.String(u.PhoneNumber)})
	}

	out, err := s.api.AdminCreateUser(ctx, &cip.AdminCreateUserInput{
		UserPoolId:     aws.String(s.poolID),
		Username:       aws.String(email),
		UserAttributes: attrs,
		MessageAction:  types.MessageActionTypeSuppress,
	})
	if err != nil {
		var exists *types.UsernameExistsException
		if errors.As(err, &exists) {
			return models.User{}, repo.ErrDuplicate
		}
		return models.User{}, fmt.Errorf("cognito create user: %w", err)
	}

	if _, err := s.api.AdminSetUserPassword(ctx, &cip.AdminSetUserPasswordInput{
		UserPoolId: aws.String(s.poolID),
		Username:   aws.String(email),
		Password:   aws.String(password),
		Permanent:  true,
	}); err != nil {
		return models.User{}, fmt.Errorf("cognito set password: %w", err)
	}

	if out.User == nil {
		return s.GetByEmail(ctx, email)
	}
	return userFrom(out.User.Attributes, out.User.UserCreateDate, out.User.UserLastModifiedDate), nil
}

func (s *Store) GetByID(ctx context.Context, id string) (models.User, error) {
	out, err := s.api.ListUsers(ctx, &cip.ListUsersInput{
		UserPoolId: aws.String(s.poolID),
		Filter:     aws.String(fmt.Sprintf("sub = %q", id)),
		Limit:      aws.Int32(1),
	})
	if err != nil {
		return models.User{}, fmt.Errorf("cognito list users: %w", err)
	}
	if len(out.Users) == 0 {
		return models.User{}, repo.ErrNotFound
	}
	u := out.Users[0]
	return userFrom(u.Attributes, u.UserCreateDate, u.UserLastModifiedDate), nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	out, err := s.api.AdminGetUser(ctx, &cip.AdminGetUserInput{
		UserPoolId: aws.String(s.poolID),
		Username:   aws.String(normEmail(email)),
	})
	if err != nil {
		var nf *types.UserNotFoundException
		if errors.As(err, &nf) {
			return models.User{}, repo.ErrNotFound
		}
		return models.User{}, fmt.Errorf("cognito get user: %w", err)
	}
	return userFrom(out.UserAttributes, out.UserCreateDate, out.UserLastModifiedDate), nil
}

// Authenticate runs the admin password flow. The client must allow
// ALLOW_ADMIN_USER_PASSWORD_AUTH.
func (s *Store) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	email = normEmail(email)
	_, err := s.api.AdminInitiateAuth(ctx, &cip.AdminInitiateAuthInput{
		UserPoolId: aws.String(s.poolID),
		ClientId:   aws.String(s.clientID),
		AuthFlow:   types.AuthFlowTypeAdminUserPasswordAuth,
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		var na *types.NotAuthorizedException
		var nf *types.UserNotFoundException
		if errors.As(err, &na) || errors.As(err, &nf) {
			return models.User{}, repo.ErrBadCredentials
		}
		return models.User{}, fmt.Errorf("cognito auth: %w", err)
	}
	return s.GetByEmail(ctx, email)
}

func (s *Store) SetSuperAdmin(ctx context.Context, id string, isSuperAdmin bool) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.api.AdminUpdateUserAttributes(ctx, &cip.AdminUpdateUserAttributesInput{
		UserPoolId: aws.String(s.poolID),
		Username:   aws.String(u.Email),
		UserAttributes: []types.AttributeType{
			{Name: aws.String(attrSuperAdmin), Value: aws.String(strconv.FormatBool(isSuperAdmin))},
		},
	})
	if err != nil {
		return fmt.Errorf("cognito update attributes: %w", err)
	}
	return nil
}

func userFrom(attrs []types.AttributeType, created, modified *time.Time) models.User {
	var u models.User
	for _, a := range attrs {
		v := aws.ToString(a.Value)
		switch aws.ToString(a.Name) {
		case attrSub:
			u.ID = v
		case attrEmail:
			u.Email = v
		case attrGivenName:
			u.FirstName = v
		case attrFamilyName:
			u.LastName = v
		case attrPhone:
			u.PhoneNumber = v
		case attrSuperAdmin:
			u.IsSuperAdmin = v == "true"
		case attrBirthdate:
			if t, err := time.Parse(birthdateLayout, v); err == nil {
				u.DateOfBirth = &t
			}
		}
	}
	if created != nil {
		u.CreatedAt = *created
	}
	if modified != nil {
		u.UpdatedAt = *modified
	}
	return u
}

func normEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
