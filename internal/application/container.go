package application

import (
	"context"
	"fmt"

	"github.com/ruziba3vich/toolshed/config"
	"github.com/ruziba3vich/toolshed/internal/application/services"
	domainoauth "github.com/ruziba3vich/toolshed/internal/domain/oauth"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/cache/redis"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/crypto"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/metrics"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/oauth"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/persistence"
)

// Services holds all application services.
type Services struct {
	Session *services.SessionService
	Auth    *services.AuthService
	OAuth   *services.OAuthService
}

// Dependencies holds shared dependencies for services.
type Dependencies struct {
	Hasher    *crypto.Argon2Hasher
	Throttle  services.LoginThrottle
	Providers *oauth.Registry
	Metrics   *metrics.Metrics
}

// NewDependencies creates shared dependencies from config. redisClient may
// be nil, in which case logins are not throttled. Google discovery runs
// against the issuer, so ctx bounds that request.
func NewDependencies(ctx context.Context, cfg *config.Config, redisClient *redis.Client, m *metrics.Metrics) (*Dependencies, error) {
	providers, err := newProviders(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var throttle services.LoginThrottle = services.NoopLoginThrottle()
	if redisClient != nil {
		throttle = redis.NewLoginThrottle(redisClient, cfg.Security.MaxLoginFailures, cfg.Security.LoginFailureWindow)
	}

	return &Dependencies{
		Hasher:    crypto.NewArgon2Hasher(crypto.DefaultPasswordParams, cfg.Security.MaxConcurrentHashes),
		Throttle:  throttle,
		Providers: providers,
		Metrics:   m,
	}, nil
}

func newProviders(ctx context.Context, cfg *config.Config) (*oauth.Registry, error) {
	var list []domainoauth.Provider
	if cfg.OAuth.GitHub.Enabled() {
		list = append(list, oauth.NewGitHubProvider(cfg.OAuth.GitHub))
	}
	if cfg.OAuth.Google.Enabled() {
		google, err := oauth.NewGoogleProvider(ctx, cfg.OAuth.Google, cfg.OAuth.GoogleIssuer)
		if err != nil {
			return nil, fmt.Errorf("failed to set up google provider: %w", err)
		}
		list = append(list, google)
	}
	return oauth.NewRegistry(list...), nil
}

// NewServices creates all application services.
func NewServices(repos *persistence.Repositories, deps *Dependencies, cfg *config.Config) *Services {
	sessionService := services.NewSessionService(repos.Session, cfg.Session, deps.Metrics)

	authService := services.NewAuthService(
		repos.User,
		sessionService,
		deps.Hasher,
		deps.Throttle,
		deps.Metrics,
	)

	oauthService := services.NewOAuthService(
		deps.Providers,
		repos.User,
		sessionService,
		deps.Metrics,
	)

	return &Services{
		Session: sessionService,
		Auth:    authService,
		OAuth:   oauthService,
	}
}
