package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"golang.org/x/oauth2"
)

// stravaActivity is the subset of a Strava activity summary used here.
type stravaActivity struct {
	ID       int64   `json:"id"`
	Type     string  `json:"type"`
	Distance float64 `json:"distance"`
}

// setup starts a test server behind a client whose BaseURL mirrors the
// Strava API prefix.
func setup(t *testing.T) (*Client, *http.ServeMux) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	u, _ := url.Parse(server.URL + "/api/v3/")
	return NewClient(u, nil), mux
}

func TestNewRequest(t *testing.T) {
	base, _ := url.Parse("https://www.strava.com/api/v3/")
	c := NewClient(base, nil)

	tests := []struct {
		name    string
		method  string
		path    string
		query   url.Values
		wantURL string
		wantErr bool
	}{
		{
			name:    "activities page",
			method:  http.MethodGet,
			path:    "athlete/activities",
			query:   url.Values{"per_page": {"30"}, "after": {"1700000000"}, "activity_type": {"Ride"}},
			wantURL: "https://www.strava.com/api/v3/athlete/activities?activity_type=Ride&after=1700000000&per_page=30",
		},
		{
			name:    "single activity",
			method:  http.MethodGet,
			path:    "activities/1001",
			wantURL: "https://www.strava.com/api/v3/activities/1001",
		},
		{name: "invalid path", method: http.MethodGet, path: ":", wantErr: true},
		{name: "invalid method", method: "\n", path: "athlete/activities", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := c.NewRequest(context.Background(), tc.method, tc.path, tc.query)
			if tc.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := req.URL.String(); got != tc.wantURL {
				t.Errorf("expected URL %s, got %s", tc.wantURL, got)
			}
			if got := req.Header.Get("Accept"); got != "application/json" {
				t.Errorf("expected JSON Accept header, got %q", got)
			}
			if got := req.Header.Get("User-Agent"); got != userAgent {
				t.Errorf("expected User-Agent %s, got %s", userAgent, got)
			}
		})
	}
}

func TestDo(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantStatus int
		wantIDs    []int64
	}{
		{
			name:    "activities decoded",
			status:  http.StatusOK,
			body:    `[{"id":1001,"type":"Ride","distance":25000.5},{"id":1002,"type":"Run","distance":8000}]`,
			wantIDs: []int64{1001, 1002},
		},
		{
			name:   "empty page",
			status: http.StatusOK,
			body:   `[]`,
		},
		{
			name:   "no content",
			status: http.StatusOK,
		},
		{
			name:       "rate limited",
			status:     http.StatusTooManyRequests,
			body:       `{"message":"Rate Limit Exceeded","errors":[{"resource":"Application","code":"exceeded"}]}`,
			wantErr:    true,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "server error",
			status:     http.StatusInternalServerError,
			wantErr:    true,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:    "maintenance page",
			status:  http.StatusOK,
			body:    `<html><body>Strava is down for maintenance</body></html>`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, mux := setup(t)
			mux.HandleFunc("GET /api/v3/athlete/activities", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			})

			req, err := c.NewRequest(context.Background(), http.MethodGet, "athlete/activities", nil)
			if err != nil {
				t.Fatal(err)
			}
			var got []stravaActivity
			resp, err := c.Do(req, &got) //nolint:bodyclose // Do closes the body

			if !tc.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(got) != len(tc.wantIDs) {
					t.Fatalf("expected %d activities, got %+v", len(tc.wantIDs), got)
				}
				for i, id := range tc.wantIDs {
					if got[i].ID != id {
						t.Errorf("expected activity %d at %d, got %d", id, i, got[i].ID)
					}
				}
				return
			}

			if err == nil {
				t.Fatal("expected error")
			}
			if tc.wantStatus == 0 {
				return
			}
			var re *RequestError
			if !errors.As(err, &re) {
				t.Fatalf("expected *RequestError, got %v", err)
			}
			if re.StatusCode != tc.wantStatus || resp.StatusCode != tc.wantStatus {
				t.Errorf("expected status %d, got %d (response %d)", tc.wantStatus, re.StatusCode, resp.StatusCode)
			}
			if re.Body != tc.body {
				t.Errorf("expected body %q to be kept, got %q", tc.body, re.Body)
			}
		})
	}
}

func TestDoUnauthorized(t *testing.T) {
	c, mux := setup(t)
	mux.HandleFunc("GET /api/v3/activities/1001", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	req, _ := c.NewRequest(context.Background(), http.MethodGet, "activities/1001", nil)
	_, err := c.Do(req, nil) //nolint:bodyclose // Do closes the body

	var re *RequestError
	if !errors.As(err, &re) || !re.Unauthorized() {
		t.Errorf("expected unauthorized request error, got %v", err)
	}
	if got, want := err.Error(), "provider request failed: 401 Unauthorized"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDoCancelledContext(t *testing.T) {
	c, mux := setup(t)
	mux.HandleFunc("GET /api/v3/athlete/activities", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, _ := c.NewRequest(ctx, http.MethodGet, "athlete/activities", nil)

	resp, err := c.Do(req, nil) //nolint:bodyclose // no response on error
	if err == nil {
		t.Error("expected error")
	}
	if resp != nil {
		t.Error("expected nil response")
	}
}

func TestFromRetrieveError(t *testing.T) {
	t.Run("token endpoint failure", func(t *testing.T) {
		err := FromRetrieveError(&oauth2.RetrieveError{
			Response:  &http.Response{StatusCode: http.StatusBadRequest},
			Body:      []byte(`{"error":"invalid_grant"}`),
			ErrorCode: "invalid_grant",
		})
		var re *RequestError
		if !errors.As(err, &re) {
			t.Fatalf("expected *RequestError, got %v", err)
		}
		if re.StatusCode != http.StatusBadRequest || re.Body != "invalid_grant" {
			t.Errorf("unexpected request error %+v", re)
		}
	})

	t.Run("token endpoint failure without error code", func(t *testing.T) {
		err := FromRetrieveError(&oauth2.RetrieveError{
			Response: &http.Response{StatusCode: http.StatusUnauthorized},
			Body:     []byte(" Authorization Error \n"),
		})
		var re *RequestError
		if !errors.As(err, &re) || !re.Unauthorized() || re.Body != "Authorization Error" {
			t.Errorf("unexpected request error %+v", err)
		}
	})

	t.Run("other errors are unchanged", func(t *testing.T) {
		in := errors.New("connection reset")
		if got := FromRetrieveError(in); got != in {
			t.Errorf("expected %v, got %v", in, got)
		}
		if got := FromRetrieveError(nil); got != nil {
			t.Errorf("expected nil, got %v", got)
		}
	})
}
