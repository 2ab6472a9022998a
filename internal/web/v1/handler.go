package v1

import (
	"context"
	"errors"
	"net/http"

	pkgzerolog "github.com/duynhne/pkg/logger/zerolog"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/intervention-auth/internal/core/domain"
	logicv1 "github.com/duynhne/intervention-auth/internal/logic/v1"
	"github.com/duynhne/intervention-auth/middleware"
)

// ExpiredSessionSweeper deletes expired session records on demand.
type ExpiredSessionSweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// Handler groups HTTP handlers for the auth API v1.
// Dependencies are injected via the constructor; no global state.
type Handler struct {
	auth    *logicv1.AuthService
	cookies CookieConfig
	sweeper ExpiredSessionSweeper
}

// NewHandler creates a new Handler. sweeper may be nil, in which case the
// manual sweep route is not registered.
func NewHandler(auth *logicv1.AuthService, cookies CookieConfig, sweeper ExpiredSessionSweeper) *Handler {
	return &Handler{auth: auth, cookies: cookies, sweeper: sweeper}
}

// RegisterRoutes registers all auth API v1 routes on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.Login)
	rg.POST("/auth/logout", h.Logout)
	rg.GET("/auth/me", h.GetMe)
	rg.GET("/auth/authorize/:role", h.Authorize)

	if h.sweeper != nil {
		rg.POST("/admin/sessions/sweep", h.RequireRole(domain.RoleAdmin), h.SweepSessions)
	}
}

func startSpan(c *gin.Context) (context.Context, trace.Span) {
	return middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.FullPath()),
	))
}

// Login handles HTTP request for user login.
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	logger := pkgzerolog.FromContext(ctx)

	var body domain.LoginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		logger.Warn().Err(err).Msg("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	span.SetAttributes(attribute.Bool("request.valid", true))

	req := h.newRequest(c)
	result, err := h.auth.Login(ctx, req, body.Username, body.Password)
	if err != nil {
		span.RecordError(err)
		h.writeStoreError(ctx, c, err, "Login failed")
		return
	}

	h.writeSessionCookie(c, req)

	if !result.Success {
		c.JSON(http.StatusUnauthorized, result)
		return
	}

	logger.Info().Int("user_id", result.User.ID).Msg("Login successful")
	c.JSON(http.StatusOK, result)
}

// Logout handles HTTP request for user logout.
// POST /api/v1/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	req := h.newRequest(c)
	result, err := h.auth.Logout(ctx, req)
	if err != nil {
		span.RecordError(err)
		h.writeStoreError(ctx, c, err, "Logout failed")
		return
	}

	h.writeSessionCookie(c, req)
	c.JSON(http.StatusOK, result)
}

// GetMe returns the current user.
// GET /api/v1/auth/me
// Authorization: Bearer <token>, or the session cookie.
func (h *Handler) GetMe(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	req := h.newRequest(c)
	user, err := h.auth.CurrentUser(ctx, req)
	if err != nil {
		span.RecordError(err)
		h.writeStoreError(ctx, c, err, "Current user lookup failed")
		return
	}

	h.writeSessionCookie(c, req)

	if user == nil {
		span.SetAttributes(attribute.Bool("auth.valid", false))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	span.SetAttributes(attribute.Int("user.id", user.ID))
	c.JSON(http.StatusOK, user)
}

// Authorize reports whether the caller holds at least the role in the path.
// GET /api/v1/auth/authorize/:role
func (h *Handler) Authorize(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	role, err := domain.ParseRole(c.Param("role"))
	if err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := h.newRequest(c)
	ok, err := h.auth.Authorize(ctx, req, role)
	if err != nil {
		span.RecordError(err)
		h.writeStoreError(ctx, c, err, "Authorization check failed")
		return
	}

	h.writeSessionCookie(c, req)
	span.SetAttributes(attribute.Bool("auth.authorized", ok))
	c.JSON(http.StatusOK, gin.H{"authorized": ok})
}

// SweepSessions deletes expired session records immediately.
// POST /api/v1/admin/sessions/sweep
func (h *Handler) SweepSessions(c *gin.Context) {
	ctx, span := startSpan(c)
	defer span.End()

	n, err := h.sweeper.Sweep(ctx)
	if err != nil {
		span.RecordError(err)
		h.writeStoreError(ctx, c, err, "Manual session sweep failed")
		return
	}

	pkgzerolog.FromContext(ctx).Info().Int64("deleted", n).Msg("Manual session sweep complete")
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// writeStoreError maps a logic-layer error to a response. Store failures are
// 503 so clients retry instead of treating the caller as logged out.
func (h *Handler) writeStoreError(ctx context.Context, c *gin.Context, err error, msg string) {
	pkgzerolog.FromContext(ctx).Error().Err(err).Msg(msg)

	if errors.Is(err, logicv1.ErrStoreUnavailable) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Service unavailable"})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
