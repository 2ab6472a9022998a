package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/duynhne/intervention-auth/internal/core/domain"
)

// userAgentMaxChars is the width of sessions.user_agent. Longer values are
// cut; strict sql_mode would otherwise reject the insert.
const userAgentMaxChars = 512

// MySQLSessionRepository implements domain.SessionRepository for the MySQL
// sessions table (id, user_id, ip_address, user_agent, expires_at).
type MySQLSessionRepository struct {
	db *sql.DB
}

// NewMySQLSessionRepository creates a new MySQLSessionRepository.
func NewMySQLSessionRepository(db *sql.DB) *MySQLSessionRepository {
	return &MySQLSessionRepository{db: db}
}

// Upsert stores rec. ON DUPLICATE KEY UPDATE fires on either the primary key
// or the UNIQUE(user_id) index, so a user's previous row is replaced.
func (r *MySQLSessionRepository) Upsert(ctx context.Context, rec domain.SessionRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, ip_address, user_agent, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			id = VALUES(id),
			user_id = VALUES(user_id),
			ip_address = VALUES(ip_address),
			user_agent = VALUES(user_agent),
			expires_at = VALUES(expires_at)`,
		rec.ID, rec.UserID, rec.IPAddress, clampChars(rec.UserAgent, userAgentMaxChars), rec.ExpiresAt.UTC())
	return err
}

// clampChars returns s cut to at most n characters.
func clampChars(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// GetActiveByID returns the live record with the given id.
// Returns (nil, nil) when no live record matches.
func (r *MySQLSessionRepository) GetActiveByID(ctx context.Context, id string) (*domain.SessionRecord, error) {
	var rec domain.SessionRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, ip_address, user_agent, expires_at
		FROM sessions
		WHERE id = ? AND expires_at > UTC_TIMESTAMP()
		LIMIT 1`, id).Scan(&rec.ID, &rec.UserID, &rec.IPAddress, &rec.UserAgent, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// GetUserByToken joins the live session to its user.
// Returns (nil, nil) when the token does not match any live session.
func (r *MySQLSessionRepository) GetUserByToken(ctx context.Context, token string) (*domain.SessionUserRow, error) {
	var row domain.SessionUserRow
	err := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.first_name, u.last_name, u.role, u.email, COALESCE(u.avatar, ''), s.expires_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.id = ? AND s.expires_at > UTC_TIMESTAMP()
		LIMIT 1`, token).Scan(
		&row.UserID, &row.Username, &row.FirstName, &row.LastName, &row.Role, &row.Email, &row.Avatar, &row.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// DeleteByUserID removes every session owned by userID.
func (r *MySQLSessionRepository) DeleteByUserID(ctx context.Context, userID int) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID)
	return err
}

// DeleteExpired removes sessions past their expiry.
func (r *MySQLSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < UTC_TIMESTAMP()")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
