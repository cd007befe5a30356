package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruziba3vich/toolshed/config"
	"github.com/ruziba3vich/toolshed/internal/application/dto"
	"github.com/ruziba3vich/toolshed/internal/domain/oauth"
	"github.com/ruziba3vich/toolshed/internal/domain/user"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/metrics"
	"github.com/ruziba3vich/toolshed/pkg/errors"
)

type oauthFixture struct {
	store    *memoryStore
	github   *fakeProvider
	sessions *SessionService
	service  *OAuthService
}

func newOAuthFixture(t *testing.T) *oauthFixture {
	t.Helper()
	store := newMemoryStore()
	m := metrics.New()
	sessions := NewSessionService(store, config.Defaults().Session, m).WithClock(newFakeClock().Now)
	github := &fakeProvider{
		name:     "github",
		identity: &oauth.Identity{Provider: "github", ProviderUserID: "583231", Username: "Octo.Cat"},
	}

	return &oauthFixture{
		store:    store,
		github:   github,
		sessions: sessions,
		service:  NewOAuthService(fakeRegistry{"github": github}, userRepo{store}, sessions, m),
	}
}

func TestBegin(t *testing.T) {
	f := newOAuthFixture(t)

	tests := []struct {
		name     string
		redirect string
		want     string
	}{
		{"no redirect", "", ""},
		{"local path", "/settings?tab=keys", "/settings?tab=keys"},
		{"absolute url", "https://evil.example/", ""},
		{"protocol relative", "//evil.example", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := f.service.Begin("github", tt.redirect)
			require.NoError(t, err)

			assert.Equal(t, "github", req.Provider)
			assert.Len(t, req.State, 43)
			assert.Equal(t, "https://provider.test/authorize?state="+req.State, req.URL)
			assert.Equal(t, tt.want, req.RedirectTarget)
		})
	}
}

func TestBeginStatesDiffer(t *testing.T) {
	f := newOAuthFixture(t)

	a, err := f.service.Begin("github", "")
	require.NoError(t, err)
	b, err := f.service.Begin("github", "")
	require.NoError(t, err)
	assert.NotEqual(t, a.State, b.State)
}

func TestBeginUnknownProvider(t *testing.T) {
	f := newOAuthFixture(t)

	_, err := f.service.Begin("gitlab", "")
	assert.ErrorIs(t, err, errors.ErrUnknownProvider)
}

func TestCompleteCreatesAccount(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	res, err := f.service.Complete(ctx, &dto.OAuthCallback{
		Provider: "github", State: "abc", StoredState: "abc", Code: "code-1",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"code-1"}, f.github.codes)
	assert.Equal(t, "octo-cat", res.User.Username)
	assert.False(t, res.User.HasPassword())

	sess, u, err := f.sessions.ValidateSessionToken(ctx, res.Token)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, res.User.ID, u.ID)
}

func TestCompleteReusesLinkedAccount(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()
	cb := &dto.OAuthCallback{Provider: "github", State: "abc", StoredState: "abc", Code: "code"}

	first, err := f.service.Complete(ctx, cb)
	require.NoError(t, err)

	// A renamed provider account still maps to the same local user.
	f.github.identity.Username = "renamed"
	second, err := f.service.Complete(ctx, cb)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, "octo-cat", second.User.Username)
	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, 2, f.store.sessionCount(first.User.ID))
}

func TestCompleteUsernameCollision(t *testing.T) {
	f := newOAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, userRepo{f.store}.Create(ctx, user.NewUser("octo-cat", "")))

	res, err := f.service.Complete(ctx, &dto.OAuthCallback{
		Provider: "github", State: "abc", StoredState: "abc", Code: "code",
	})
	require.NoError(t, err)
	assert.Equal(t, "octo-cat-583231", res.User.Username)
}

func TestCompleteRejects(t *testing.T) {
	tests := []struct {
		name    string
		cb      dto.OAuthCallback
		wantErr error
	}{
		{"state mismatch", dto.OAuthCallback{Provider: "github", State: "abc", StoredState: "abd", Code: "code"}, errors.ErrInvalidState},
		{"missing stored state", dto.OAuthCallback{Provider: "github", State: "abc", Code: "code"}, errors.ErrInvalidState},
		{"missing state", dto.OAuthCallback{Provider: "github", StoredState: "abc", Code: "code"}, errors.ErrInvalidState},
		{"missing code", dto.OAuthCallback{Provider: "github", State: "abc", StoredState: "abc"}, errors.ErrProviderExchange},
		{"unknown provider", dto.OAuthCallback{Provider: "gitlab", State: "abc", StoredState: "abc", Code: "code"}, errors.ErrUnknownProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOAuthFixture(t)

			res, err := f.service.Complete(context.Background(), &tt.cb)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.github.codes)
			assert.Empty(t, f.store.sessions)
		})
	}
}

func TestCompleteProviderError(t *testing.T) {
	f := newOAuthFixture(t)
	f.github.err = fmt.Errorf("%w: bad_verification_code", errors.ErrProviderExchange)

	_, err := f.service.Complete(context.Background(), &dto.OAuthCallback{
		Provider: "github", State: "abc", StoredState: "abc", Code: "stale",
	})
	assert.ErrorIs(t, err, errors.ErrProviderExchange)
	assert.Empty(t, f.store.users)
}

func TestUsernameCandidates(t *testing.T) {
	tests := []struct {
		name     string
		identity oauth.Identity
		want     []string
	}{
		{
			name:     "plain",
			identity: oauth.Identity{Provider: "github", ProviderUserID: "42", Username: "octocat"},
			want:     []string{"octocat", "octocat-42"},
		},
		{
			name:     "too short",
			identity: oauth.Identity{Provider: "google", ProviderUserID: "1234567890123", Username: "jo"},
			want:     []string{"jo-12345678"},
		},
		{
			name:     "nothing usable",
			identity: oauth.Identity{Provider: "google", ProviderUserID: "99", Username: "Ωμέγα"},
			want:     []string{"google-99"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, usernameCandidates(&tt.identity))
		})
	}
}
