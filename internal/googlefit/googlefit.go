// Package googlefit implements the Google Fit provider using the Fitness REST API.
package googlefit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/lildude/fitdash/internal/client"
	"github.com/lildude/fitdash/internal/token"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/fitness/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const Name = "googlefit"

// Client talks to Google Fit on behalf of a single user.
type Client struct {
	oauth *oauth2.Config
	now   func() time.Time
}

// NewClient returns a Google Fit client for the given OAuth application.
func NewClient(clientID, clientSecret, redirectURL string) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes: []string{
				fitness.FitnessActivityReadScope,
				fitness.FitnessBodyReadScope,
				fitness.FitnessLocationReadScope,
				fitness.FitnessHeartRateReadScope,
			},
		},
		now: time.Now,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) TokenKey() string { return token.GoogleFitKey }

// AuthorizationURL returns the consent page URL requesting offline access.
// Forcing the consent prompt makes Google issue a refresh token every time.
func (c *Client) AuthorizationURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeCode trades an authorization code for a token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*token.Token, error) {
	t, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging google fit code: %w", client.FromRetrieveError(err))
	}
	return token.FromOAuth2(t), nil
}

// RefreshToken obtains a new access token, keeping the previous refresh
// token when Google does not rotate it.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*token.Token, error) {
	t, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing google fit token: %w", client.FromRetrieveError(err))
	}

	tok := token.FromOAuth2(t)
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}
	return tok, nil
}

func (c *Client) service(ctx context.Context, accessToken string) (*fitness.Service, error) {
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
	svc, err := fitness.NewService(ctx, option.WithHTTPClient(hc))
	if err != nil {
		return nil, fmt.Errorf("creating fitness service: %w", err)
	}
	return svc, nil
}

// requestError converts a Google API failure into a *client.RequestError.
func requestError(err error) error {
	var ge *googleapi.Error
	if !errors.As(err, &ge) {
		return err
	}
	return &client.RequestError{
		StatusCode: ge.Code,
		Status:     http.StatusText(ge.Code),
		Body:       ge.Message,
	}
}
