package domain

import "strings"

// User is the public projection of an authenticated user shared by both the
// bearer and the cookie channel.
type User struct {
	ID         int    `json:"id"`
	Username   string `json:"username"`
	NomComplet string `json:"nom_complet"`
	Role       Role   `json:"role"`
	Email      string `json:"email"`
	Avatar     string `json:"avatar"`
}

// LoginRequest is the body accepted by the login endpoint.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult is returned by a login attempt. Token and User are set only
// when Success is true; Message is set only on failure.
type LoginResult struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	User    *User  `json:"user,omitempty"`
	Message string `json:"message,omitempty"`
}

// LogoutResult is returned by logout.
type LogoutResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// NewUser builds the public projection from a user row.
func NewUser(row *UserRow) *User {
	return &User{
		ID:         row.ID,
		Username:   row.Username,
		NomComplet: row.FullName(),
		Role:       Role(row.Role),
		Email:      row.Email,
		Avatar:     row.Avatar,
	}
}

// NewUserFromSession builds the public projection from a session join row.
func NewUserFromSession(row *SessionUserRow) *User {
	return &User{
		ID:         row.UserID,
		Username:   row.Username,
		NomComplet: joinName(row.FirstName, row.LastName),
		Role:       Role(row.Role),
		Email:      row.Email,
		Avatar:     row.Avatar,
	}
}

func joinName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
