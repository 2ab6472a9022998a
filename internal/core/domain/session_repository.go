package domain

import (
	"context"
	"time"
)

// SessionRecord mirrors a row of the sessions table. ID is either an issued
// bearer token or a cookie-session identifier.
type SessionRecord struct {
	ID        string
	UserID    int
	IPAddress string
	UserAgent string
	ExpiresAt time.Time
}

// SessionUserRow represents a live session joined with its owner user,
// returned by session lookup queries.
type SessionUserRow struct {
	UserID    int
	Username  string
	FirstName string
	LastName  string
	Role      string
	Email     string
	Avatar    string
	ExpiresAt time.Time
}

// SessionRepository defines the data-access contract for session records.
// Implementations live in internal/core/repository (Core layer).
//
// Expiry is always compared against the database clock (expires_at > NOW())
// so application and database tiers never disagree about liveness.
type SessionRepository interface {
	// Upsert atomically stores rec. A user owns at most one row: inserting a
	// record for a user that already has one replaces it.
	Upsert(ctx context.Context, rec SessionRecord) error

	// GetActiveByID returns the record with the given id if it has not expired.
	// Returns (nil, nil) when no live record matches.
	GetActiveByID(ctx context.Context, id string) (*SessionRecord, error)

	// GetUserByToken looks up a live record by id and returns the associated
	// user data together with the session expiry time.
	// Returns (nil, nil) when the token does not match any live session.
	GetUserByToken(ctx context.Context, token string) (*SessionUserRow, error)

	// DeleteByUserID removes every record owned by userID.
	DeleteByUserID(ctx context.Context, userID int) error

	// DeleteExpired removes records whose expires_at is in the past and
	// returns how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
