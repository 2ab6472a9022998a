package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "username", "password_hash", "first_name", "last_name", "role", "email", "avatar"}

func TestMySQLUserRepository_GetByUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLUserRepository(db)

	mock.ExpectQuery(`SELECT .* FROM users WHERE username = \?`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(1, "alice", "$2a$10$hash", "Alice", "Martin", "manager", "alice@example.com", "a.png"))

	u, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Alice Martin", u.FullName())
	assert.Equal(t, "a.png", u.Avatar)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLUserRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMySQLUserRepository(db)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \?`).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(userColumns))

	u, err := repo.GetByID(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}
