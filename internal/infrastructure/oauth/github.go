package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/ruziba3vich/toolshed/config"
	"github.com/ruziba3vich/toolshed/internal/domain/oauth"
	apperrors "github.com/ruziba3vich/toolshed/pkg/errors"
)

const (
	githubProviderName = "github"
	githubAPIURL       = "https://api.github.com"
)

// GitHubProvider signs users in with GitHub. The profile comes from the
// REST user endpoint since GitHub does not issue ID tokens.
type GitHubProvider struct {
	oauthConfig *oauth2.Config
	apiURL      string
}

func NewGitHubProvider(cfg config.OAuthProviderConfig) *GitHubProvider {
	return &GitHubProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     github.Endpoint,
		},
		apiURL: githubAPIURL,
	}
}

func (p *GitHubProvider) Name() string {
	return githubProviderName
}

// AuthCodeURL builds the authorization URL. No scopes are needed to read
// the public profile.
func (p *GitHubProvider) AuthCodeURL(state string, scopes []string) string {
	cfg := *p.oauthConfig
	cfg.Scopes = scopes
	return cfg.AuthCodeURL(state)
}

func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*oauth.Identity, error) {
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: github token exchange: %v", apperrors.ErrProviderExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/user", nil)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to build github user request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := p.oauthConfig.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: github user request: %v", apperrors.ErrProviderExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: github user request returned %d", apperrors.ErrProviderExchange, resp.StatusCode)
	}

	var profile struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: github user decode: %v", apperrors.ErrProviderExchange, err)
	}
	if profile.ID == 0 || profile.Login == "" {
		return nil, fmt.Errorf("%w: github profile missing id or login", apperrors.ErrProviderExchange)
	}

	return &oauth.Identity{
		Provider:       githubProviderName,
		ProviderUserID: strconv.FormatInt(profile.ID, 10),
		Username:       profile.Login,
	}, nil
}
