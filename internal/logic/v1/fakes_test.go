package v1

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/duynhne/intervention-auth/internal/core/domain"
	"github.com/duynhne/intervention-auth/internal/core/repository"
)

// fakeSessionRepo is an in-memory sessions table. now plays the database
// clock; err, when set, is returned by every method.
type fakeSessionRepo struct {
	mu            sync.Mutex
	rows          map[string]domain.SessionRecord
	users         *fakeUserRepo
	now           func() time.Time
	err           error
	lookups       int
	expiredSweeps int
}

func newFakeSessionRepo(users *fakeUserRepo, now func() time.Time) *fakeSessionRepo {
	return &fakeSessionRepo{rows: make(map[string]domain.SessionRecord), users: users, now: now}
}

func (r *fakeSessionRepo) Upsert(_ context.Context, rec domain.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for id, row := range r.rows {
		if row.UserID == rec.UserID {
			delete(r.rows, id)
		}
	}
	r.rows[rec.ID] = rec
	return nil
}

func (r *fakeSessionRepo) GetActiveByID(_ context.Context, id string) (*domain.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups++
	if r.err != nil {
		return nil, r.err
	}
	rec, ok := r.rows[id]
	if !ok || !rec.ExpiresAt.After(r.now()) {
		return nil, nil
	}
	return &rec, nil
}

func (r *fakeSessionRepo) GetUserByToken(ctx context.Context, token string) (*domain.SessionUserRow, error) {
	rec, err := r.GetActiveByID(ctx, token)
	if err != nil || rec == nil {
		return nil, err
	}
	u, _ := r.users.GetByID(ctx, rec.UserID)
	if u == nil {
		return nil, nil
	}
	return &domain.SessionUserRow{
		UserID:    u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Email:     u.Email,
		Avatar:    u.Avatar,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func (r *fakeSessionRepo) DeleteByUserID(_ context.Context, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for id, row := range r.rows {
		if row.UserID == userID {
			delete(r.rows, id)
		}
	}
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expiredSweeps++
	if r.err != nil {
		return 0, r.err
	}
	var n int64
	for id, row := range r.rows {
		if row.ExpiresAt.Before(r.now()) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeSessionRepo) countForUser(userID int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.UserID == userID {
			n++
		}
	}
	return n
}

// expire moves the record's expiry into the past without deleting it.
func (r *fakeSessionRepo) expire(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.rows[id]; ok {
		rec.ExpiresAt = r.now().Add(-time.Second)
		r.rows[id] = rec
	}
}

func (r *fakeSessionRepo) get(id string) (domain.SessionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.rows[id]
	return rec, ok
}

type fakeUserRepo struct {
	byID map[int]*domain.UserRow
	err  error
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.UserRow, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*domain.UserRow, error) {
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (p *fakePublisher) Publish(_ context.Context, e domain.AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) types() []domain.AuthEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.AuthEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	now      time.Time
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	states   *repository.MemorySessionStateStore
	events   *fakePublisher
	sm       *SessionManager
	tm       *TokenManager
	auth     *AuthService
}

const (
	aliceIP = "10.1.2.3"
	aliceUA = "Mozilla/5.0 (X11; Linux x86_64)"
)

func newHarness(t *testing.T) *harness {
	t.Helper()

	hash := func(pw string) string {
		b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
		require.NoError(t, err)
		return string(b)
	}

	h := &harness{now: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return h.now }

	h.users = &fakeUserRepo{byID: map[int]*domain.UserRow{
		1: {ID: 1, Username: "alice", PasswordHash: hash("correctpw"), FirstName: "Alice", LastName: "Martin", Role: "manager", Email: "alice@example.com"},
		2: {ID: 2, Username: "claire", PasswordHash: hash("clientpw"), FirstName: "Claire", LastName: "Petit", Role: "client", Email: "claire@example.com"},
		3: {ID: 3, Username: "root", PasswordHash: hash("adminpw"), FirstName: "Ada", LastName: "Admin", Role: "admin", Email: "root@example.com"},
		4: {ID: 4, Username: "ghost", PasswordHash: hash("ghostpw"), FirstName: "G", LastName: "Host", Role: "superviseur", Email: "ghost@example.com"},
	}}
	h.sessions = newFakeSessionRepo(h.users, clock)
	h.states = repository.NewMemorySessionStateStore(24 * time.Hour)
	h.events = &fakePublisher{}

	h.sm = NewSessionManager(h.sessions, h.states, DefaultRegenerateInterval)
	h.sm.now = clock
	h.tm = NewTokenManager(h.sessions, DefaultTokenTTL)
	h.tm.now = clock

	verifier, err := NewPasswordVerifier(h.users, bcrypt.MinCost)
	require.NoError(t, err)

	h.auth = NewAuthService(h.users, verifier, h.sm, h.tm, h.events)
	h.auth.now = clock
	return h
}

func (h *harness) cookieRequest(ip, ua, sid string) *Request {
	return NewRequest(http.Header{}, ip, ua, sid)
}

func (h *harness) bearerRequest(token string) *Request {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	return NewRequest(header, "203.0.113.9", "curl/8.5", "")
}

// login logs username in over the cookie channel and returns the result and
// the session identifier handed to the client.
func (h *harness) login(t *testing.T, username, password string) (*domain.LoginResult, string) {
	t.Helper()
	req := h.cookieRequest(aliceIP, aliceUA, "")
	res, err := h.auth.Login(context.Background(), req, username, password)
	require.NoError(t, err)
	return res, req.Session.ID
}
