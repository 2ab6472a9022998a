// Package v1 provides authentication business logic for API version 1.
//
// Two channels authenticate a request: a bearer token validated against the
// sessions table, and a cookie session bound to the client's IP address and
// user-agent. AuthService tries the bearer channel first and falls back to the
// cookie session; both resolve to the same domain.User projection.
//
// Error Handling:
// Authentication outcomes are reported as values (false, nil user, or a
// LoginResult with Success=false), never as errors. Errors returned from this
// package always wrap ErrStoreUnavailable and mean the request cannot be
// answered:
//
//	ok, err := auth.Authenticate(ctx, req)
//	switch {
//	case errors.Is(err, logicv1.ErrStoreUnavailable):
//	    c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
//	case !ok:
//	    c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
//	}
package v1

import "errors"

// Sentinel errors for authentication operations.
var (
	// ErrStoreUnavailable indicates the session-record store, the session-state
	// store or the user directory failed. It must never be read as "not
	// authenticated".
	// HTTP Status: 503 Service Unavailable
	ErrStoreUnavailable = errors.New("auth store unavailable")

	// ErrInvalidCredentials indicates the provided credentials are incorrect.
	// It is not returned to callers; Login reports it as a failed LoginResult.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionIntegrity indicates a cookie session failed its binding or
	// token check and was destroyed. Used for logging only.
	ErrSessionIntegrity = errors.New("session integrity violation")
)

// User-visible result messages.
const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgLoggedOut          = "Logged out successfully"
)
