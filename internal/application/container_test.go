package application

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruziba3vich/toolshed/config"
	"github.com/ruziba3vich/toolshed/internal/application/dto"
	"github.com/ruziba3vich/toolshed/internal/application/services"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/cache/redis"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/metrics"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/persistence"
	"github.com/ruziba3vich/toolshed/pkg/errors"
)

func newTestConfig(t *testing.T) *config.Config {
	cfg := config.Defaults()
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.SQLitePath = filepath.Join(t.TempDir(), "toolshed.db")
	cfg.Security.MaxLoginFailures = 2
	return cfg
}

func TestNewDependenciesWithoutRedis(t *testing.T) {
	deps, err := NewDependencies(context.Background(), newTestConfig(t), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, services.NoopLoginThrottle(), deps.Throttle)
	assert.Empty(t, deps.Providers.Names())
	assert.Equal(t, uint32(19456), deps.Hasher.Params().Memory)
}

func TestNewDependenciesProviders(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.OAuth.GitHub = config.OAuthProviderConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8080/login/github/callback",
	}

	deps, err := NewDependencies(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"github"}, deps.Providers.Names())
}

func TestServicesWiring(t *testing.T) {
	cfg := newTestConfig(t)
	ctx := context.Background()

	repos, err := persistence.Open(&cfg.Database)
	require.NoError(t, err)
	t.Cleanup(repos.Close)
	_, err = repos.Migrate(ctx)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port, err = strconv.Atoi(mr.Port())
	require.NoError(t, err)
	redisClient, err := redis.NewClient(&cfg.Redis)
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisClient.Close() })

	deps, err := NewDependencies(ctx, cfg, redisClient, metrics.New())
	require.NoError(t, err)
	svcs := NewServices(repos, deps, cfg)

	res, err := svcs.Auth.Register(ctx, &dto.RegisterRequest{Username: "alice", Password: "hunter22"})
	require.NoError(t, err)

	sess, u, err := svcs.Session.ValidateSessionToken(ctx, res.Token)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "alice", u.Username)

	// Redis-backed throttling locks the account after two failures.
	for i := 0; i < 2; i++ {
		_, err = svcs.Auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "wrong-pass"})
		require.ErrorIs(t, err, errors.ErrInvalidCredentials)
	}
	_, err = svcs.Auth.Login(ctx, &dto.LoginRequest{Username: "alice", Password: "hunter22"})
	assert.ErrorIs(t, err, errors.ErrTooManyAttempts)

	_, err = svcs.OAuth.Begin("github", "")
	assert.ErrorIs(t, err, errors.ErrUnknownProvider)
}
