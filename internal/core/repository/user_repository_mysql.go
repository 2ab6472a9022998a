package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/duynhne/intervention-auth/internal/core/domain"
)

const mysqlUserColumns = `id, username, password_hash, first_name, last_name, role, email, COALESCE(avatar, '')`

// MySQLUserRepository implements domain.UserRepository over database/sql with
// the go-sql-driver/mysql driver.
type MySQLUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new MySQLUserRepository.
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

// GetByUsername returns the user matching the given username.
// Returns (nil, nil) when no user is found.
func (r *MySQLUserRepository) GetByUsername(ctx context.Context, username string) (*domain.UserRow, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+mysqlUserColumns+" FROM users WHERE username = ? LIMIT 1", username))
}

// GetByID returns the user with the given id.
// Returns (nil, nil) when no user is found.
func (r *MySQLUserRepository) GetByID(ctx context.Context, id int) (*domain.UserRow, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT "+mysqlUserColumns+" FROM users WHERE id = ? LIMIT 1", id))
}

func (r *MySQLUserRepository) scanOne(row *sql.Row) (*domain.UserRow, error) {
	var u domain.UserRow
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &u.Email, &u.Avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
