package v1

import (
	"context"
	"sync"
	"time"

	"github.com/duynhne/intervention-auth/internal/core/domain"
)

type memUsers struct {
	rows map[int]*domain.UserRow
}

func (u *memUsers) GetByUsername(_ context.Context, username string) (*domain.UserRow, error) {
	for _, r := range u.rows {
		if r.Username == username {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (u *memUsers) GetByID(_ context.Context, id int) (*domain.UserRow, error) {
	r, ok := u.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

type memSessions struct {
	mu    sync.Mutex
	rows  map[string]domain.SessionRecord
	users *memUsers
	err   error
}

func (s *memSessions) Upsert(_ context.Context, rec domain.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for id, r := range s.rows {
		if r.UserID == rec.UserID {
			delete(s.rows, id)
		}
	}
	s.rows[rec.ID] = rec
	return nil
}

func (s *memSessions) GetActiveByID(_ context.Context, id string) (*domain.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.rows[id]
	if !ok || !r.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	return &r, nil
}

func (s *memSessions) GetUserByToken(ctx context.Context, token string) (*domain.SessionUserRow, error) {
	rec, err := s.GetActiveByID(ctx, token)
	if err != nil || rec == nil {
		return nil, err
	}
	u, _ := s.users.GetByID(ctx, rec.UserID)
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
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func (s *memSessions) DeleteByUserID(_ context.Context, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for id, r := range s.rows {
		if r.UserID == userID {
			delete(s.rows, id)
		}
	}
	return nil
}

func (s *memSessions) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	var n int64
	for id, r := range s.rows {
		if r.ExpiresAt.Before(time.Now()) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *memSessions) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *memSessions) insert(rec domain.SessionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rec.ID] = rec
}
