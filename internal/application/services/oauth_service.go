package services

import (
	"context"
	"strings"

	"github.com/ruziba3vich/toolshed/internal/application/dto"
	"github.com/ruziba3vich/toolshed/internal/domain/oauth"
	"github.com/ruziba3vich/toolshed/internal/domain/user"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/crypto"
	"github.com/ruziba3vich/toolshed/internal/infrastructure/metrics"
	"github.com/ruziba3vich/toolshed/pkg/errors"
	"github.com/ruziba3vich/toolshed/pkg/logger"
)

// ProviderRegistry resolves providers by name.
type ProviderRegistry interface {
	Get(name string) (oauth.Provider, error)
}

// OAuthService signs users in through external providers.
type OAuthService struct {
	providers ProviderRegistry
	userRepo  user.Repository
	sessions  *SessionService
	metrics   *metrics.Metrics
}

// NewOAuthService creates a new OAuth service.
func NewOAuthService(
	providers ProviderRegistry,
	userRepo user.Repository,
	sessions *SessionService,
	m *metrics.Metrics,
) *OAuthService {
	return &OAuthService{
		providers: providers,
		userRepo:  userRepo,
		sessions:  sessions,
		metrics:   m,
	}
}

// Begin starts a provider login. An unsafe redirect target is dropped
// rather than rejected, so the login still lands on the home page.
func (s *OAuthService) Begin(providerName, redirectTarget string) (*oauth.AuthRequest, error) {
	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	state, err := crypto.GenerateState()
	if err != nil {
		return nil, err
	}

	req := &oauth.AuthRequest{
		Provider: provider.Name(),
		URL:      provider.AuthCodeURL(state, nil),
		State:    state,
	}
	if redirectTarget != "" && oauth.ValidateRedirectTarget(redirectTarget) {
		req.RedirectTarget = redirectTarget
	}
	return req, nil
}

// Complete finishes a provider login: it checks the state, exchanges the
// code, finds or creates the linked account and issues a session.
func (s *OAuthService) Complete(ctx context.Context, cb *dto.OAuthCallback) (*dto.AuthResult, error) {
	provider, err := s.providers.Get(cb.Provider)
	if err != nil {
		return nil, err
	}

	if !crypto.CompareState(cb.State, cb.StoredState) {
		s.metrics.OAuthLogin(cb.Provider, "invalid_state")
		return nil, errors.ErrInvalidState
	}
	if cb.Code == "" {
		s.metrics.OAuthLogin(cb.Provider, metrics.LoginError)
		return nil, errors.Wrap(errors.ErrProviderExchange, "missing authorization code")
	}

	identity, err := provider.Exchange(ctx, cb.Code)
	if err != nil {
		s.metrics.OAuthLogin(cb.Provider, metrics.LoginError)
		return nil, err
	}

	u, err := s.findOrCreateUser(ctx, identity)
	if err != nil {
		s.metrics.OAuthLogin(cb.Provider, metrics.LoginError)
		return nil, err
	}

	token, sess, err := s.sessions.IssueSession(ctx, u.ID)
	if err != nil {
		s.metrics.OAuthLogin(cb.Provider, metrics.LoginError)
		return nil, err
	}
	s.metrics.OAuthLogin(cb.Provider, metrics.LoginSuccess)

	return &dto.AuthResult{Token: token, Session: sess, User: u}, nil
}

func (s *OAuthService) findOrCreateUser(ctx context.Context, identity *oauth.Identity) (*user.User, error) {
	u, err := s.userRepo.GetByOAuthAccount(ctx, identity.Provider, identity.ProviderUserID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, errors.ErrUserNotFound) {
		return nil, errors.Wrap(err, "failed to look up oauth account")
	}

	for _, username := range usernameCandidates(identity) {
		u = user.NewUser(username, "")
		err = s.userRepo.CreateWithOAuthAccount(ctx, u, identity.Provider, identity.ProviderUserID)
		switch {
		case err == nil:
			logger.FromContext(ctx).Info("account created from provider",
				logger.Provider(identity.Provider),
				logger.UserID(u.ID.String()),
				logger.Username(u.Username),
			)
			return u, nil
		case errors.Is(err, errors.ErrUserAlreadyExists):
			continue
		case errors.Is(err, errors.ErrOAuthAccountTaken):
			// A concurrent callback linked the account first.
			return s.userRepo.GetByOAuthAccount(ctx, identity.Provider, identity.ProviderUserID)
		default:
			return nil, errors.Wrap(err, "failed to create oauth user")
		}
	}
	return nil, errors.ErrUserAlreadyExists
}

// usernameCandidates maps a provider username onto the local username
// rules, then offers a variant suffixed with the provider account id in
// case the plain name is taken.
func usernameCandidates(identity *oauth.Identity) []string {
	base := sanitizeUsername(identity.Username)
	suffix := sanitizeUsername(identity.ProviderUserID)
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}

	var candidates []string
	if len(base) >= user.UsernameMinLength {
		candidates = append(candidates, base)
	}

	prefix := base
	if prefix == "" {
		prefix = identity.Provider
	}
	if limit := user.UsernameMaxLength - len(suffix) - 1; len(prefix) > limit {
		prefix = prefix[:limit]
	}
	return append(candidates, prefix+"-"+suffix)
}

func sanitizeUsername(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == '.' || r == ' ':
			b.WriteRune('-')
		}
	}
	out := b.String()
	if len(out) > user.UsernameMaxLength {
		out = out[:user.UsernameMaxLength]
	}
	return out
}
