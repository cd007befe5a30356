package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/ruziba3vich/toolshed/config"
	"github.com/ruziba3vich/toolshed/internal/domain/oauth"
	apperrors "github.com/ruziba3vich/toolshed/pkg/errors"
)

const googleProviderName = "google"

var defaultGoogleScopes = []string{oidc.ScopeOpenID, "profile", "email"}

// GoogleProvider signs users in with Google through OpenID Connect.
type GoogleProvider struct {
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// NewGoogleProvider runs issuer discovery, which needs network access.
func NewGoogleProvider(ctx context.Context, cfg config.OAuthProviderConfig, issuer string) (*GoogleProvider, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes:       defaultGoogleScopes,
	}

	return newGoogleProvider(oauthCfg, oidcProvider.Verifier(&oidc.Config{ClientID: cfg.ClientID})), nil
}

func newGoogleProvider(oauthCfg *oauth2.Config, verifier *oidc.IDTokenVerifier) *GoogleProvider {
	return &GoogleProvider{oauthConfig: oauthCfg, verifier: verifier}
}

func (p *GoogleProvider) Name() string {
	return googleProviderName
}

// AuthCodeURL builds the authorization URL. The openid scope is always requested.
func (p *GoogleProvider) AuthCodeURL(state string, scopes []string) string {
	cfg := *p.oauthConfig
	if len(scopes) > 0 {
		cfg.Scopes = scopes
	}
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth.Identity, error) {
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: google token exchange: %v", apperrors.ErrProviderExchange, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: google did not return id_token", apperrors.ErrProviderExchange)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: google id_token verification: %v", apperrors.ErrProviderExchange, err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: google id_token claims: %v", apperrors.ErrProviderExchange, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: google id_token missing subject", apperrors.ErrProviderExchange)
	}

	username := claims.Name
	if local, _, found := strings.Cut(claims.Email, "@"); found && local != "" {
		username = local
	}

	return &oauth.Identity{
		Provider:       googleProviderName,
		ProviderUserID: claims.Subject,
		Username:       username,
	}, nil
}
