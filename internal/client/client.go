// Package client implements a generic REST API client used by the provider clients.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

var userAgent = "fitdash/0.1"

// RequestError is returned when a provider answers with a non-2xx status.
type RequestError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *RequestError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("provider request failed: %d %s: %s", e.StatusCode, e.Status, e.Body)
	}
	return fmt.Sprintf("provider request failed: %d %s", e.StatusCode, e.Status)
}

// Unauthorized reports whether the provider rejected the credentials.
func (e *RequestError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// FromRetrieveError converts a failed OAuth token endpoint call into a
// *RequestError. Any other error is returned unchanged.
func FromRetrieveError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) || re.Response == nil {
		return err
	}
	body := string(bytes.TrimSpace(re.Body))
	if re.ErrorCode != "" {
		body = re.ErrorCode
	}
	return &RequestError{
		StatusCode: re.Response.StatusCode,
		Status:     http.StatusText(re.Response.StatusCode),
		Body:       body,
	}
}

// Client holds configuration items for the REST client and provides methods that interact with the REST API.
type Client struct {
	BaseURL *url.URL

	userAgent string
	client    *http.Client
}

// NewClient returns a new REST API client. If a nil httpClient is
// provided, http.DefaultClient will be used. Authenticated calls take an
// http.Client from golang.org/x/oauth2.
func NewClient(baseURL *url.URL, cc *http.Client) *Client {
	if cc == nil {
		cc = http.DefaultClient
	}

	return &Client{BaseURL: baseURL, userAgent: userAgent, client: cc}
}

// NewRequest creates an HTTP Request for path relative to BaseURL. Requests
// carry no body; parameters go in query.
func (c *Client) NewRequest(ctx context.Context, method, path string, query url.Values) (*http.Request, error) {
	u, err := c.BaseURL.Parse(path)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), http.NoBody)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

// Do sends a request and decodes a JSON response body into v. Any status
// outside 2xx returns a *RequestError alongside the response.
func (c *Client) Do(req *http.Request, v any) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 300 { //nolint:gomnd
		return resp, &RequestError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			Body:       string(bytes.TrimSpace(data)),
		}
	}

	if v != nil && len(data) != 0 {
		if err := json.Unmarshal(data, v); err != nil {
			return resp, fmt.Errorf("decoding response: %w", err)
		}
	}

	return resp, nil
}
