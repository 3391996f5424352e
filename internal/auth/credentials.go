package auth

import (
	"context"
	"errors"
	"fmt"

	"movie_api/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the read side of the user store the auth core depends on.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Credentials is a single login attempt. It is never persisted.
type Credentials struct {
	Username string `form:"Username" json:"Username" binding:"required"`
	Password string `form:"Password" json:"Password" binding:"required"`
}

// CredentialVerifier checks a username/password pair against the user store.
type CredentialVerifier struct {
	users     UserStore
	dummyHash string
}

// NewCredentialVerifier builds the verifier. hasher must be the one used for
// stored passwords so unknown usernames cost the same as known ones; nil
// means bcrypt at the default cost.
func NewCredentialVerifier(users UserStore, hasher PasswordHasher) (*CredentialVerifier, error) {
	if hasher == nil {
		hasher = &bcryptHasher{cost: bcrypt.DefaultCost}
	}

	// compared against when the username is unknown so both paths do the same work
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}

	return &CredentialVerifier{
		users:     users,
		dummyHash: dummy,
	}, nil
}

// Verify returns the stored user when password matches. Unknown usernames and
// wrong passwords both yield ErrInvalidCredentials.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := v.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			_ = ComparePasswordHash(v.dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if err := ComparePasswordHash(user.PasswordHash, password); err != nil {
		if !errors.Is(err, ErrPasswordMismatch) {
			logrus.WithError(err).WithField("user_id", user.ID).Warn("Stored password hash could not be compared")
		}
		return nil, ErrInvalidCredentials
	}

	return user, nil
}
