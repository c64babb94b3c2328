// Package strava implements the Strava provider: OAuth and the athlete activities API.
package strava

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/lildude/fitdash/internal/client"
	"github.com/lildude/fitdash/internal/token"
	"golang.org/x/oauth2"
)

const (
	Name    = "strava"
	BaseURL = "https://www.strava.com/api/v3/"

	// DefaultPerPage is the page size when ListOptions.PerPage is unset.
	DefaultPerPage = 30
)

// Endpoint is Strava's OAuth 2.0 endpoint. Client credentials are sent in
// the token request body.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://www.strava.com/oauth/authorize",
	TokenURL:  "https://www.strava.com/oauth/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// Client talks to Strava on behalf of a single athlete.
type Client struct {
	BaseURL *url.URL

	oauth *oauth2.Config
	now   func() time.Time
}

// NewClient returns a Strava client for the given OAuth application.
func NewClient(clientID, clientSecret, redirectURL string) *Client {
	u, _ := url.Parse(BaseURL)
	return &Client{
		BaseURL: u,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     Endpoint,
			RedirectURL:  redirectURL,
			Scopes:       []string{"read,activity:read"},
		},
		now: time.Now,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) TokenKey() string { return token.StravaKey }

// AuthorizationURL returns the consent page URL. approval_prompt=force makes
// Strava ask again so a refresh token is always issued.
func (c *Client) AuthorizationURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", "force"))
}

// ExchangeCode trades an authorization code for a token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*token.Token, error) {
	t, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging strava code: %w", client.FromRetrieveError(err))
	}
	return token.FromOAuth2(t), nil
}

// RefreshToken obtains a new access token. The previous refresh token is
// kept when Strava does not issue a new one.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*token.Token, error) {
	t, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing strava token: %w", client.FromRetrieveError(err))
	}

	tok := token.FromOAuth2(t)
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

func (c *Client) api(ctx context.Context, accessToken string) *client.Client {
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
	return client.NewClient(c.BaseURL, hc)
}
