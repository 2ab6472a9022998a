package domain

import (
	"context"
	"time"
)

// SessionState is the server-side payload of a cookie session. It lives in a
// SessionStateStore keyed by the cookie identifier.
type SessionState struct {
	UserID           int       `json:"user_id,omitempty"`
	Username         string    `json:"username,omitempty"`
	NomComplet       string    `json:"nom_complet,omitempty"`
	Role             Role      `json:"role,omitempty"`
	Email            string    `json:"email,omitempty"`
	Avatar           string    `json:"avatar,omitempty"`
	IPAddress        string    `json:"ip_address,omitempty"`
	UserAgent        string    `json:"user_agent,omitempty"`
	Token            string    `json:"token,omitempty"`
	LastRegeneration time.Time `json:"last_regeneration"`
}

// Authenticated reports whether a user has logged in on this session.
func (s SessionState) Authenticated() bool {
	return s.UserID != 0
}

// User returns the public projection stored in the session.
func (s SessionState) User() *User {
	return &User{
		ID:         s.UserID,
		Username:   s.Username,
		NomComplet: s.NomComplet,
		Role:       s.Role,
		Email:      s.Email,
		Avatar:     s.Avatar,
	}
}

// SessionStateStore persists cookie-session payloads.
type SessionStateStore interface {
	// Load returns the state saved under id.
	// Returns (nil, nil) when id is unknown or has expired.
	Load(ctx context.Context, id string) (*SessionState, error)

	// Save stores state under id, refreshing its lifetime.
	Save(ctx context.Context, id string, state SessionState) error

	// Delete removes id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}
