package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/duynhne/intervention-auth/internal/core/domain"
)

const userContextKey = "auth.user"

// RequireAuth aborts with 401 unless the request is authenticated. The user
// is stored on the gin context for downstream handlers.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return h.require("")
}

// RequireRole aborts with 401 for anonymous callers and 403 for callers
// below role.
func (h *Handler) RequireRole(role domain.Role) gin.HandlerFunc {
	return h.require(role)
}

func (h *Handler) require(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := startSpan(c)
		defer span.End()

		req := h.newRequest(c)
		user, err := h.auth.CurrentUser(ctx, req)
		if err != nil {
			span.RecordError(err)
			h.writeStoreError(ctx, c, err, "Authentication check failed")
			return
		}

		h.writeSessionCookie(c, req)

		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		if role != "" && !user.Role.Satisfies(role) {
			span.SetAttributes(attribute.Bool("auth.authorized", false))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// UserFromContext returns the user stored by RequireAuth or RequireRole.
func UserFromContext(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*domain.User)
	return user, ok
}
