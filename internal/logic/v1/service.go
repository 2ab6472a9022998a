package v1

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/intervention-auth/internal/core/domain"
	"github.com/duynhne/intervention-auth/middleware"
)

// AuthService is the single entry point for authentication and role checks.
// It depends on collaborators injected via the constructor and MUST NOT
// access the database or SQL directly.
type AuthService struct {
	users    domain.UserRepository
	verifier CredentialVerifier
	sessions *SessionManager
	tokens   *TokenManager
	events   domain.EventPublisher
	now      func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	users domain.UserRepository,
	verifier CredentialVerifier,
	sessions *SessionManager,
	tokens *TokenManager,
	events domain.EventPublisher,
) *AuthService {
	return &AuthService{
		users:    users,
		verifier: verifier,
		sessions: sessions,
		tokens:   tokens,
		events:   events,
		now:      time.Now,
	}
}

// Authenticate reports whether req carries a valid bearer token or a valid
// cookie session. The bearer channel wins when an Authorization header is
// present and never touches cookie state.
func (s *AuthService) Authenticate(ctx context.Context, req *Request) (bool, error) {
	if token, ok := bearerToken(req.Header); ok {
		valid, err := s.tokens.Validate(ctx, token)
		if err != nil {
			return false, err
		}
		middleware.AuthChecksTotal.WithLabelValues("bearer", resultLabel(valid)).Inc()
		return valid, nil
	}

	user, err := s.cookieUser(ctx, req)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

// CurrentUser returns the authenticated user of req, or nil. Bearer requests
// are resolved from the sessions table; cookie requests are answered from
// session state without re-querying the user directory.
func (s *AuthService) CurrentUser(ctx context.Context, req *Request) (*domain.User, error) {
	if token, ok := bearerToken(req.Header); ok {
		user, err := s.tokens.ResolveUser(ctx, token)
		if err != nil {
			return nil, err
		}
		middleware.AuthChecksTotal.WithLabelValues("bearer", resultLabel(user != nil)).Inc()
		return user, nil
	}
	return s.cookieUser(ctx, req)
}

// cookieUser runs the cookie-session checks. Any binding or token failure
// destroys the session.
func (s *AuthService) cookieUser(ctx context.Context, req *Request) (*domain.User, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.cookie_session", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	sess := req.session()
	if err := s.sessions.Start(ctx, sess); err != nil {
		span.RecordError(err)
		return nil, err
	}

	state := sess.State
	if !state.Authenticated() {
		middleware.AuthChecksTotal.WithLabelValues("cookie", "anonymous").Inc()
		return nil, nil
	}

	if state.IPAddress != req.RemoteAddr {
		return nil, s.violation(ctx, req, state, "ip_mismatch")
	}
	if state.UserAgent != req.UserAgent {
		return nil, s.violation(ctx, req, state, "user_agent_mismatch")
	}

	if state.Token != "" {
		rec, err := s.tokens.Lookup(ctx, state.Token)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if rec == nil {
			return nil, s.violation(ctx, req, state, "token_missing_or_expired")
		}
		if rec.UserID != state.UserID {
			return nil, s.violation(ctx, req, state, "token_user_mismatch")
		}
	}

	span.SetAttributes(attribute.Int("user.id", state.UserID))
	middleware.AuthChecksTotal.WithLabelValues("cookie", "success").Inc()
	return state.User(), nil
}

// violation destroys the cookie session after a failed integrity check. The
// only error it returns is a store failure while destroying.
func (s *AuthService) violation(ctx context.Context, req *Request, state domain.SessionState, reason string) error {
	zerolog.Ctx(ctx).Warn().
		Err(ErrSessionIntegrity).
		Int("user_id", state.UserID).
		Str("reason", reason).
		Str("client_ip", req.RemoteAddr).
		Msg("Cookie session destroyed")

	middleware.SessionIntegrityViolationsTotal.WithLabelValues(reason).Inc()
	middleware.AuthChecksTotal.WithLabelValues("cookie", "violation").Inc()

	if err := s.sessions.Destroy(ctx, req.session()); err != nil {
		return err
	}

	s.publish(ctx, domain.AuthEvent{
		Type:      domain.EventIntegrityViolation,
		UserID:    state.UserID,
		Username:  state.Username,
		IPAddress: req.RemoteAddr,
		UserAgent: req.UserAgent,
		Reason:    reason,
	})
	return nil
}

// Login verifies credentials, rotates the cookie-session identifier, issues a
// bearer token and fills the session. Wrong credentials produce a failed
// result with a generic message; only store failures are returned as errors.
func (s *AuthService) Login(ctx context.Context, req *Request, username, password string) (*domain.LoginResult, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.login", trace.WithAttributes(
		attribute.String("layer", "logic"),
		attribute.String("username", username),
	))
	defer span.End()

	verified, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		span.RecordError(err)
		middleware.AuthLoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	var profile *domain.UserRow
	if verified != nil {
		profile, err = s.users.GetByID(ctx, verified.ID)
		if err != nil {
			span.RecordError(err)
			middleware.AuthLoginsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("query user %d: %w: %w", verified.ID, ErrStoreUnavailable, err)
		}
	}

	if profile == nil {
		span.SetAttributes(attribute.Bool("auth.success", false))
		span.AddEvent("authentication.failed")
		middleware.AuthLoginsTotal.WithLabelValues("invalid_credentials").Inc()
		zerolog.Ctx(ctx).Info().Err(ErrInvalidCredentials).Str("username", username).Msg("Login rejected")
		s.publish(ctx, domain.AuthEvent{
			Type:      domain.EventLoginFailed,
			Username:  username,
			IPAddress: req.RemoteAddr,
			UserAgent: req.UserAgent,
		})
		return &domain.LoginResult{Success: false, Message: MsgInvalidCredentials}, nil
	}

	sess := req.session()
	if err := s.sessions.Start(ctx, sess); err != nil {
		span.RecordError(err)
		middleware.AuthLoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	token, _, err := s.tokens.Issue(ctx, profile.ID, req.RemoteAddr, req.UserAgent)
	if err != nil {
		span.RecordError(err)
		middleware.AuthLoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	// Privilege change: never keep an identifier chosen before login.
	if err := s.sessions.rotate(ctx, sess); err != nil {
		span.RecordError(err)
		middleware.AuthLoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	user := domain.NewUser(profile)
	sess.State = domain.SessionState{
		UserID:           user.ID,
		Username:         user.Username,
		NomComplet:       user.NomComplet,
		Role:             user.Role,
		Email:            user.Email,
		Avatar:           user.Avatar,
		IPAddress:        req.RemoteAddr,
		UserAgent:        req.UserAgent,
		Token:            token,
		LastRegeneration: sess.State.LastRegeneration,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		span.RecordError(err)
		middleware.AuthLoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("user.id", user.ID),
		attribute.Bool("auth.success", true),
	)
	span.AddEvent("user.authenticated")
	middleware.AuthLoginsTotal.WithLabelValues("success").Inc()
	s.publish(ctx, domain.AuthEvent{
		Type:      domain.EventLoginSucceeded,
		UserID:    user.ID,
		Username:  user.Username,
		IPAddress: req.RemoteAddr,
		UserAgent: req.UserAgent,
	})

	return &domain.LoginResult{Success: true, Token: token, User: user}, nil
}

// Logout deletes every session record of the cookie-session user and destroys
// the cookie session. A user has at most one live record, so logging out from
// one device ends the session on every device. A live bearer token on the
// same request is revoked too; it never replaces the cookie user.
func (s *AuthService) Logout(ctx context.Context, req *Request) (*domain.LogoutResult, error) {
	ctx, span := middleware.StartSpan(ctx, "auth.logout", trace.WithAttributes(
		attribute.String("layer", "logic"),
	))
	defer span.End()

	sess := req.session()
	if err := s.sessions.Start(ctx, sess); err != nil {
		span.RecordError(err)
		return nil, err
	}

	var users []*domain.User
	if sess.State.Authenticated() {
		users = append(users, sess.State.User())
	}
	if token, ok := bearerToken(req.Header); ok {
		bearerUser, err := s.tokens.ResolveUser(ctx, token)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if bearerUser != nil && (len(users) == 0 || users[0].ID != bearerUser.ID) {
			users = append(users, bearerUser)
		}
	}

	for _, user := range users {
		span.SetAttributes(attribute.Int("user.id", user.ID))
		if err := s.tokens.RevokeUser(ctx, user.ID); err != nil {
			span.RecordError(err)
			return nil, err
		}
	}

	if err := s.sessions.Destroy(ctx, sess); err != nil {
		span.RecordError(err)
		return nil, err
	}

	for _, user := range users {
		s.publish(ctx, domain.AuthEvent{
			Type:      domain.EventLogout,
			UserID:    user.ID,
			Username:  user.Username,
			IPAddress: req.RemoteAddr,
			UserAgent: req.UserAgent,
		})
	}

	return &domain.LogoutResult{Success: true, Message: MsgLoggedOut}, nil
}

// Authorize reports whether the authenticated user of req holds at least the
// required role. Unknown roles, on either side, never grant access.
func (s *AuthService) Authorize(ctx context.Context, req *Request, required domain.Role) (bool, error) {
	if !required.Valid() {
		return false, nil
	}

	user, err := s.CurrentUser(ctx, req)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return user.Role.Satisfies(required), nil
}

func (s *AuthService) publish(ctx context.Context, event domain.AuthEvent) {
	if s.events == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	if err := s.events.Publish(ctx, event); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("event", string(event.Type)).Msg("Auth event not published")
	}
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
