package v1

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/intervention-auth/internal/core/domain"
	"github.com/duynhne/intervention-auth/middleware"
)

// DefaultTokenTTL is the lifetime of an issued bearer token.
const DefaultTokenTTL = 24 * time.Hour

// TokenManager issues, validates and resolves bearer tokens backed by the
// sessions table.
type TokenManager struct {
	sessions domain.SessionRepository
	ttl      time.Duration
	now      func() time.Time
}

// NewTokenManager creates a TokenManager. A non-positive ttl selects DefaultTokenTTL.
func NewTokenManager(sessions domain.SessionRepository, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{sessions: sessions, ttl: ttl, now: time.Now}
}

// Issue generates a 256-bit token for userID and persists it with the
// requester's fingerprint. The fingerprint is recorded only; bearer requests
// are not bound to it.
func (m *TokenManager) Issue(ctx context.Context, userID int, ipAddress, userAgent string) (string, time.Time, error) {
	ctx, span := middleware.StartSpan(ctx, "token.issue", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.Int("user.id", userID),
	))
	defer span.End()

	token, err := newRandomHex()
	if err != nil {
		span.RecordError(err)
		return "", time.Time{}, fmt.Errorf("generate token: %w", err)
	}

	expiresAt := m.now().Add(m.ttl)
	rec := domain.SessionRecord{
		ID:        token,
		UserID:    userID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ExpiresAt: expiresAt,
	}
	if err := m.sessions.Upsert(ctx, rec); err != nil {
		span.RecordError(err)
		return "", time.Time{}, fmt.Errorf("persist token: %w: %w", ErrStoreUnavailable, err)
	}

	return token, expiresAt, nil
}

// Validate reports whether token names a live session record. Expired rows
// are not deleted here; sweeps take care of them.
func (m *TokenManager) Validate(ctx context.Context, token string) (bool, error) {
	rec, err := m.Lookup(ctx, token)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// Lookup returns the live session record for token, or nil.
func (m *TokenManager) Lookup(ctx context.Context, token string) (*domain.SessionRecord, error) {
	if !wellFormedToken(token) {
		return nil, nil
	}

	ctx, span := middleware.StartSpan(ctx, "token.lookup", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	rec, err := m.sessions.GetActiveByID(ctx, token)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query session: %w: %w", ErrStoreUnavailable, err)
	}
	span.SetAttributes(attribute.Bool("session.valid", rec != nil))
	return rec, nil
}

// ResolveUser returns the user owning a live token, or nil.
func (m *TokenManager) ResolveUser(ctx context.Context, token string) (*domain.User, error) {
	if !wellFormedToken(token) {
		return nil, nil
	}

	ctx, span := middleware.StartSpan(ctx, "token.resolve_user", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	row, err := m.sessions.GetUserByToken(ctx, token)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("query session user: %w: %w", ErrStoreUnavailable, err)
	}
	if row == nil {
		span.SetAttributes(attribute.Bool("session.valid", false))
		return nil, nil
	}

	span.SetAttributes(
		attribute.Int("user.id", row.UserID),
		attribute.Bool("session.valid", true),
	)
	return domain.NewUserFromSession(row), nil
}

// RevokeUser deletes every session record owned by userID.
func (m *TokenManager) RevokeUser(ctx context.Context, userID int) error {
	if err := m.sessions.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("delete user sessions: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}
