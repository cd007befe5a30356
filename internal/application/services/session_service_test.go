package services

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruziba3vich/toolshed/config"
	"github.com/ruziba3vich/toolshed/internal/domain/user"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/crypto"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/metrics"
)

const day = 24 * time.Hour

type sessionFixture struct {
	store   *memoryStore
	clock   *fakeClock
	service *SessionService
	user    *user.User
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	store := newMemoryStore()
	clock := newFakeClock()
	svc := NewSessionService(store, config.Defaults().Session, metrics.New()).WithClock(clock.Now)

	u := user.NewUser("alice", "")
	require.NoError(t, userRepo{store}.Create(context.Background(), u))

	return &sessionFixture{store: store, clock: clock, service: svc, user: u}
}

func TestCreateSessionStoresOnlyTheHash(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	token, err := f.service.GenerateSessionToken()
	require.NoError(t, err)

	sess, err := f.service.CreateSession(ctx, token, f.user.ID)
	require.NoError(t, err)

	assert.Equal(t, crypto.HashToken(token), sess.ID)
	assert.NotEqual(t, token, sess.ID)
	assert.Equal(t, f.clock.Now().Add(30*day), sess.ExpiresAt)
	assert.True(t, f.store.hasSession(sess.ID))
	assert.False(t, f.store.hasSession(token))

	_, writes := f.store.counts()
	assert.Equal(t, 1, writes)
}

func TestValidateImmediatelyDoesNotWrite(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	token, created, err := f.service.IssueSession(ctx, f.user.ID)
	require.NoError(t, err)
	_, writesBefore := f.store.counts()

	sess, u, err := f.service.ValidateSessionToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, created.ExpiresAt, sess.ExpiresAt)
	assert.Equal(t, f.user.ID, u.ID)
	assert.Nil(t, u.PasswordHash)

	lookups, writes := f.store.counts()
	assert.Equal(t, 1, lookups)
	assert.Equal(t, writesBefore, writes)
}

func TestValidateRenewsInsideWindow(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	token, _, err := f.service.IssueSession(ctx, f.user.ID)
	require.NoError(t, err)
	_, writesBefore := f.store.counts()

	f.clock.Advance(20 * day)
	sess, _, err := f.service.ValidateSessionToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, f.clock.Now().Add(30*day), sess.ExpiresAt)
	_, writes := f.store.counts()
	assert.Equal(t, writesBefore+1, writes)

	// The renewed expiry is what the store now holds.
	again, _, err := f.service.ValidateSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ExpiresAt, again.ExpiresAt)
}

func TestValidateExpiredDeletes(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	token, created, err := f.service.IssueSession(ctx, f.user.ID)
	require.NoError(t, err)

	f.clock.Advance(31 * day)
	sess, u, err := f.service.ValidateSessionToken(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, u)
	assert.False(t, f.store.hasSession(created.ID))
}

func TestValidateBoundaries(t *testing.T) {
	tests := []struct {
		name        string
		advance     time.Duration
		wantSession bool
		wantRenewal bool
	}{
		{"one second before renewal window", 15*day - time.Second, true, false},
		{"exactly at renewal window", 15 * day, true, true},
		{"one nanosecond before expiry", 30*day - time.Nanosecond, true, true},
		{"exactly at expiry", 30 * day, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSessionFixture(t)
			ctx := context.Background()

			token, created, err := f.service.IssueSession(ctx, f.user.ID)
			require.NoError(t, err)

			f.clock.Advance(tt.advance)
			sess, _, err := f.service.ValidateSessionToken(ctx, token)
			require.NoError(t, err)

			if !tt.wantSession {
				assert.Nil(t, sess)
				assert.False(t, f.store.hasSession(created.ID))
				return
			}
			require.NotNil(t, sess)
			if tt.wantRenewal {
				assert.Equal(t, f.clock.Now().Add(30*day), sess.ExpiresAt)
			} else {
				assert.Equal(t, created.ExpiresAt, sess.ExpiresAt)
			}
		})
	}
}

func TestSessionLifecycleScenario(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()
	t0 := f.clock.Now()

	token, created, err := f.service.IssueSession(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(30*day), created.ExpiresAt)

	sess, _, err := f.service.ValidateSessionToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, t0.Add(30*day), sess.ExpiresAt)

	f.clock.Advance(20 * day)
	sess, _, err = f.service.ValidateSessionToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, t0.Add(50*day), sess.ExpiresAt)

	// 31 days without activity after the renewal passes the new expiry.
	f.clock.Advance(31 * day)
	sess, _, err = f.service.ValidateSessionToken(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.False(t, f.store.hasSession(created.ID))

	// Without the renewal, day 31 is already too late.
	other := newSessionFixture(t)
	token, _, err = other.service.IssueSession(ctx, other.user.ID)
	require.NoError(t, err)
	other.clock.Advance(31 * day)
	sess, _, err = other.service.ValidateSessionToken(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestValidateUnknownToken(t *testing.T) {
	f := newSessionFixture(t)

	sess, u, err := f.service.ValidateSessionToken(context.Background(), "nosuchtoken")
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Nil(t, u)

	_, writes := f.store.counts()
	assert.Equal(t, 0, writes)
}

func TestValidatePropagatesStoreErrors(t *testing.T) {
	f := newSessionFixture(t)
	boom := stderrors.New("connection refused")
	f.store.err = boom

	_, _, err := f.service.ValidateSessionToken(context.Background(), "token")
	assert.ErrorIs(t, err, boom)
}

func TestInvalidateSession(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	token, sess, err := f.service.IssueSession(ctx, f.user.ID)
	require.NoError(t, err)

	require.NoError(t, f.service.InvalidateSession(ctx, sess.ID))
	require.NoError(t, f.service.InvalidateSession(ctx, sess.ID))

	got, _, err := f.service.ValidateSessionToken(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvalidateUserSessions(t *testing.T) {
	f := newSessionFixture(t)
	ctx := context.Background()

	bob := user.NewUser("bob", "")
	require.NoError(t, userRepo{f.store}.Create(ctx, bob))

	for i := 0; i < 3; i++ {
		_, _, err := f.service.IssueSession(ctx, f.user.ID)
		require.NoError(t, err)
	}
	_, _, err := f.service.IssueSession(ctx, bob.ID)
	require.NoError(t, err)

	require.NoError(t, f.service.InvalidateUserSessions(ctx, f.user.ID))
	assert.Equal(t, 0, f.store.sessionCount(f.user.ID))
	assert.Equal(t, 1, f.store.sessionCount(bob.ID))

	require.NoError(t, f.service.InvalidateUserSessions(ctx, uuid.New()))
}

func TestSessionServiceDefaults(t *testing.T) {
	svc := NewSessionService(newMemoryStore(), config.SessionConfig{}, nil)
	assert.Equal(t, 30*day, svc.Lifetime())
}
