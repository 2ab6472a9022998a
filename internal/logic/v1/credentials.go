package v1

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/intervention-auth/internal/core/domain"
)

// CredentialVerifier checks a username/password pair.
type CredentialVerifier interface {
	// Verify returns the matching user, or (nil, nil) when the credentials
	// are wrong for any reason.
	Verify(ctx context.Context, username, password string) (*domain.UserRow, error)
}

// PasswordVerifier verifies bcrypt password hashes stored in the user directory.
type PasswordVerifier struct {
	users     domain.UserRepository
	dummyHash []byte
}

// NewPasswordVerifier creates a PasswordVerifier. cost should match the cost
// used for stored hashes so unknown usernames take as long as wrong passwords.
func NewPasswordVerifier(users domain.UserRepository, cost int) (*PasswordVerifier, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("unknown-user-placeholder"), cost)
	if err != nil {
		return nil, fmt.Errorf("hash placeholder password: %w", err)
	}
	return &PasswordVerifier{users: users, dummyHash: dummy}, nil
}

// Verify looks the user up by username and compares the password hash.
func (v *PasswordVerifier) Verify(ctx context.Context, username, password string) (*domain.UserRow, error) {
	row, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("query user %q: %w: %w", username, ErrStoreUnavailable, err)
	}
	if row == nil {
		_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(password))
		return nil, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			zerolog.Ctx(ctx).Warn().Err(err).Int("user_id", row.ID).Msg("Stored password hash is unusable")
		}
		return nil, nil
	}
	return row, nil
}
