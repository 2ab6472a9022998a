package domain

import (
	"context"
	"time"
)

// AuthEventType names an authentication event.
type AuthEventType string

const (
	EventLoginSucceeded     AuthEventType = "auth.login.succeeded"
	EventLoginFailed        AuthEventType = "auth.login.failed"
	EventLogout             AuthEventType = "auth.logout"
	EventIntegrityViolation AuthEventType = "auth.session.integrity_violation"
)

// AuthEvent is published for audit consumers.
type AuthEvent struct {
	Type       AuthEventType `json:"type"`
	UserID     int           `json:"user_id,omitempty"`
	Username   string        `json:"username,omitempty"`
	IPAddress  string        `json:"ip_address,omitempty"`
	UserAgent  string        `json:"user_agent,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// EventPublisher delivers auth events. Publishing is best-effort: callers log
// failures and continue.
type EventPublisher interface {
	Publish(ctx context.Context, event AuthEvent) error
}
