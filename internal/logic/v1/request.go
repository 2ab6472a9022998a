package v1

import (
	"net/http"
	"strings"

	"github.com/duynhne/intervention-auth/internal/core/domain"
)

// Request carries what the auth core needs from one inbound HTTP request.
// It is built per request by the transport layer and never shared.
type Request struct {
	Header     http.Header
	RemoteAddr string
	UserAgent  string
	Session    *Session
}

// NewRequest builds a Request. sessionID is the cookie value presented by the
// client, empty when there is none.
func NewRequest(header http.Header, remoteAddr, userAgent, sessionID string) *Request {
	return &Request{
		Header:     header,
		RemoteAddr: remoteAddr,
		UserAgent:  userAgent,
		Session:    NewSession(sessionID),
	}
}

func (r *Request) session() *Session {
	if r.Session == nil {
		r.Session = NewSession("")
	}
	return r.Session
}

// Session is the cookie session of a single request.
type Session struct {
	ID    string
	State domain.SessionState

	presentedID string
	started     bool
	destroyed   bool
}

// NewSession wraps the identifier presented by the client.
func NewSession(presentedID string) *Session {
	return &Session{ID: presentedID, presentedID: presentedID}
}

// Started reports whether the session was bootstrapped during this request.
// The transport must then send the (possibly rotated) ID back as a cookie.
func (s *Session) Started() bool { return s.started }

// Destroyed reports whether the session was destroyed and not restarted.
// The transport must then clear the cookie.
func (s *Session) Destroyed() bool { return s.destroyed && !s.started }

// Rotated reports whether the identifier differs from the one presented.
func (s *Session) Rotated() bool { return s.ID != s.presentedID }

const bearerScheme = "bearer "

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Both the header key and the scheme are matched case-insensitively.
// A missing or malformed header reports false.
func bearerToken(h http.Header) (string, bool) {
	var value string
	for k, v := range h {
		if strings.EqualFold(k, "Authorization") && len(v) > 0 {
			value = strings.TrimSpace(v[0])
			break
		}
	}

	if len(value) <= len(bearerScheme) || !strings.EqualFold(value[:len(bearerScheme)], bearerScheme) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearerScheme):])
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
