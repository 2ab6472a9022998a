package v1

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/intervention-auth/internal/core/domain"
	"github.com/duynhne/intervention-auth/middleware"
)

// DefaultRegenerateInterval bounds how long a cookie-session identifier is
// reused before it is rotated.
const DefaultRegenerateInterval = 300 * time.Second

// SessionManager owns the cookie-session lifecycle: bootstrap, periodic
// identifier rotation, and destruction.
type SessionManager struct {
	sessions           domain.SessionRepository
	states             domain.SessionStateStore
	regenerateInterval time.Duration
	now                func() time.Time
}

// NewSessionManager creates a SessionManager. A non-positive interval
// selects DefaultRegenerateInterval.
func NewSessionManager(sessions domain.SessionRepository, states domain.SessionStateStore, regenerateInterval time.Duration) *SessionManager {
	if regenerateInterval <= 0 {
		regenerateInterval = DefaultRegenerateInterval
	}
	return &SessionManager{
		sessions:           sessions,
		states:             states,
		regenerateInterval: regenerateInterval,
		now:                time.Now,
	}
}

// Start bootstraps sess for the current request. It is a no-op when sess was
// already started.
//
// Expired session records are swept first. An identifier the state store does
// not know is never adopted: the client gets a fresh one. A known session
// whose identifier is older than the regeneration interval is rotated.
func (m *SessionManager) Start(ctx context.Context, sess *Session) error {
	if sess.started {
		return nil
	}

	ctx, span := middleware.StartSpan(ctx, "session.start", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	swept, err := m.sessions.DeleteExpired(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("sweep expired sessions: %w: %w", ErrStoreUnavailable, err)
	}
	if swept > 0 {
		middleware.SessionsSweptTotal.Add(float64(swept))
	}

	var state *domain.SessionState
	if sess.ID != "" {
		state, err = m.states.Load(ctx, sess.ID)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("load session state: %w: %w", ErrStoreUnavailable, err)
		}
	}

	sess.destroyed = false

	if state == nil {
		span.SetAttributes(attribute.Bool("session.new", true))
		id, err := newRandomHex()
		if err != nil {
			return err
		}
		sess.ID = id
		sess.State = domain.SessionState{LastRegeneration: m.now()}
		sess.started = true
		return m.Save(ctx, sess)
	}

	sess.State = *state
	sess.started = true

	if sess.State.LastRegeneration.IsZero() {
		sess.State.LastRegeneration = m.now()
		return m.Save(ctx, sess)
	}
	if m.now().Sub(sess.State.LastRegeneration) > m.regenerateInterval {
		span.SetAttributes(attribute.Bool("session.rotated", true))
		return m.Regenerate(ctx, sess)
	}
	return nil
}

// Regenerate rotates the identifier of a started session and persists its
// state under the new identifier.
func (m *SessionManager) Regenerate(ctx context.Context, sess *Session) error {
	if err := m.rotate(ctx, sess); err != nil {
		return err
	}
	return m.Save(ctx, sess)
}

// rotate deletes the old identifier's server-side state before assigning a
// new one, so the old identifier can never validate after rotation.
func (m *SessionManager) rotate(ctx context.Context, sess *Session) error {
	if sess.ID != "" {
		if err := m.states.Delete(ctx, sess.ID); err != nil {
			return fmt.Errorf("delete rotated session state: %w: %w", ErrStoreUnavailable, err)
		}
	}

	id, err := newRandomHex()
	if err != nil {
		return err
	}
	sess.ID = id
	sess.State.LastRegeneration = m.now()
	middleware.SessionRegenerationsTotal.Inc()
	return nil
}

// Save persists the state of sess.
func (m *SessionManager) Save(ctx context.Context, sess *Session) error {
	if err := m.states.Save(ctx, sess.ID, sess.State); err != nil {
		return fmt.Errorf("save session state: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Destroy deletes the server-side state of sess and clears it in memory.
// A later Start on the same value begins a brand-new session.
func (m *SessionManager) Destroy(ctx context.Context, sess *Session) error {
	if sess.ID != "" {
		if err := m.states.Delete(ctx, sess.ID); err != nil {
			return fmt.Errorf("delete session state: %w: %w", ErrStoreUnavailable, err)
		}
	}
	sess.ID = ""
	sess.State = domain.SessionState{}
	sess.started = false
	sess.destroyed = true
	return nil
}
