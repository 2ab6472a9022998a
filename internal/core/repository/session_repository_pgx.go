package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynhne/intervention-auth/internal/core/domain"
)

// PgxSessionRepository implements domain.SessionRepository using pgxpool.
type PgxSessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new PgxSessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *PgxSessionRepository {
	return &PgxSessionRepository{pool: pool}
}

// Upsert stores rec, replacing any row the same user already owns.
// sessions.user_id carries a UNIQUE constraint, so the later login wins
// within a single statement.
func (r *PgxSessionRepository) Upsert(ctx context.Context, rec domain.SessionRecord) error {
	query := `
		INSERT INTO sessions (id, user_id, ip_address, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			id = EXCLUDED.id,
			ip_address = EXCLUDED.ip_address,
			user_agent = EXCLUDED.user_agent,
			expires_at = EXCLUDED.expires_at
	`
	_, err := r.pool.Exec(ctx, query, rec.ID, rec.UserID, rec.IPAddress, rec.UserAgent, rec.ExpiresAt)
	return err
}

// GetActiveByID returns the live record with the given id.
// Returns (nil, nil) when no live record matches.
func (r *PgxSessionRepository) GetActiveByID(ctx context.Context, id string) (*domain.SessionRecord, error) {
	query := `
		SELECT id, user_id, ip_address, user_agent, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > NOW()
	`

	var rec domain.SessionRecord
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.UserID, &rec.IPAddress, &rec.UserAgent, &rec.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &rec, nil
}

// GetUserByToken looks up the live session by token and returns the associated
// user data together with the session expiry time.
// Returns (nil, nil) when the token does not match any live session.
func (r *PgxSessionRepository) GetUserByToken(ctx context.Context, token string) (*domain.SessionUserRow, error) {
	query := `
		SELECT u.id, u.username, u.first_name, u.last_name, u.role, u.email, COALESCE(u.avatar, ''), s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.id = $1 AND s.expires_at > NOW()
	`

	var row domain.SessionUserRow
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&row.UserID, &row.Username, &row.FirstName, &row.LastName, &row.Role, &row.Email, &row.Avatar, &row.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &row, nil
}

// DeleteByUserID removes every session owned by userID.
func (r *PgxSessionRepository) DeleteByUserID(ctx context.Context, userID int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

// DeleteExpired removes sessions past their expiry.
func (r *PgxSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
