package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	logicv1 "github.com/duynhne/intervention-auth/internal/logic/v1"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Domain string
	Path   string
	// ForceSecure marks the cookie Secure even when the request did not
	// arrive over TLS (TLS terminated at a proxy).
	ForceSecure bool
}

// newRequest builds the logic-layer view of c. The client address comes from
// gin's ClientIP, which only honors forwarding headers from trusted proxies.
func (h *Handler) newRequest(c *gin.Context) *logicv1.Request {
	sid, _ := c.Cookie(h.cookies.Name)
	return logicv1.NewRequest(c.Request.Header, c.ClientIP(), c.Request.UserAgent(), sid)
}

// writeSessionCookie reflects the session lifecycle of req onto the response.
// Must run before the body is written.
func (h *Handler) writeSessionCookie(c *gin.Context, req *logicv1.Request) {
	sess := req.Session
	if sess == nil {
		return
	}

	secure := c.Request.TLS != nil || h.cookies.ForceSecure
	c.SetSameSite(http.SameSiteStrictMode)

	switch {
	case sess.Destroyed():
		c.SetCookie(h.cookies.Name, "", -1, h.cookies.Path, h.cookies.Domain, secure, true)
	case sess.Started():
		c.SetCookie(h.cookies.Name, sess.ID, 0, h.cookies.Path, h.cookies.Domain, secure, true)
	}
}
