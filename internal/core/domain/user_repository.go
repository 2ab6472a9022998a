package domain

import "context"

// UserRow represents a user record returned from the database.
// It includes the password hash so the Logic layer can verify credentials.
type UserRow struct {
	ID           int
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         string
	Email        string
	Avatar       string
}

// FullName joins first and last name the way the UI displays it (nom_complet).
func (u UserRow) FullName() string {
	return joinName(u.FirstName, u.LastName)
}

// UserRepository defines the read-only contract the auth core needs from the
// user-management subsystem.
// Implementations live in internal/core/repository (Core layer).
// The Logic layer depends on this interface only, never on SQL or a driver directly.
type UserRepository interface {
	// GetByUsername returns the user matching the given username.
	// Returns (nil, nil) when no user is found.
	GetByUsername(ctx context.Context, username string) (*UserRow, error)

	// GetByID returns the user with the given id.
	// Returns (nil, nil) when no user is found.
	GetByID(ctx context.Context, id int) (*UserRow, error)
}
