package v1

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hex64 = regexp.MustCompile(`^[0-9a-f]{64}$`)

func TestTokenManager_IssuePersistsRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	token, exp, err := h.tm.Issue(ctx, 1, "10.0.0.1", "ua/1")
	require.NoError(t, err)
	assert.Regexp(t, hex64, token)
	assert.Equal(t, h.now.Add(24*time.Hour), exp)

	rec, ok := h.sessions.get(token)
	require.True(t, ok)
	assert.Equal(t, 1, rec.UserID)
	assert.Equal(t, "10.0.0.1", rec.IPAddress)
	assert.Equal(t, "ua/1", rec.UserAgent)
	assert.Equal(t, h.now.Add(24*time.Hour), rec.ExpiresAt)
	assert.Equal(t, 1, h.sessions.countForUser(1))
}

func TestTokenManager_Uniqueness(t *testing.T) {
	h := newHarness(t)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token, _, err := h.tm.Issue(context.Background(), i+100, "", "")
		require.NoError(t, err)
		assert.False(t, seen[token], "duplicate token %s", token)
		seen[token] = true
	}
}

func TestTokenManager_ExpiredTokenIsInvalidBeforeSweep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	token, _, err := h.tm.Issue(ctx, 1, aliceIP, aliceUA)
	require.NoError(t, err)

	valid, err := h.tm.Validate(ctx, token)
	require.NoError(t, err)
	assert.True(t, valid)

	h.now = h.now.Add(24*time.Hour + time.Second)

	valid, err = h.tm.Validate(ctx, token)
	require.NoError(t, err)
	assert.False(t, valid)

	user, err := h.tm.ResolveUser(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, user)

	_, stillThere := h.sessions.get(token)
	assert.True(t, stillThere, "validation must not delete expired rows")
}

func TestTokenManager_ExpiryBoundaryIsExclusive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	token, _, err := h.tm.Issue(ctx, 1, "", "")
	require.NoError(t, err)

	h.now = h.now.Add(24 * time.Hour)
	valid, err := h.tm.Validate(ctx, token)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestTokenManager_ResolveUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	token, _, err := h.tm.Issue(ctx, 1, "", "")
	require.NoError(t, err)

	user, err := h.tm.ResolveUser(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice Martin", user.NomComplet)
	assert.EqualValues(t, "manager", user.Role)
}

func TestTokenManager_MalformedTokenSkipsStore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	valid, err := h.tm.Validate(ctx, "not-a-token")
	require.NoError(t, err)
	assert.False(t, valid)

	user, err := h.tm.ResolveUser(ctx, "' OR 1=1 --")
	require.NoError(t, err)
	assert.Nil(t, user)

	assert.Zero(t, h.sessions.lookups)
}

func TestTokenManager_StoreErrorIsFatal(t *testing.T) {
	h := newHarness(t)
	token, _, err := h.tm.Issue(context.Background(), 1, "", "")
	require.NoError(t, err)

	dbErr := errors.New("connection reset")
	h.sessions.err = dbErr

	valid, err := h.tm.Validate(context.Background(), token)
	assert.False(t, valid)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, dbErr)

	_, _, err = h.tm.Issue(context.Background(), 1, "", "")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
