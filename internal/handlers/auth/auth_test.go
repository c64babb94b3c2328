package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jarcoal/httpmock"
	"github.com/lildude/fitdash/internal/cache"
	"github.com/lildude/fitdash/internal/session"
	"github.com/lildude/fitdash/internal/strava"
	"github.com/lildude/fitdash/internal/token"
	"github.com/sirupsen/logrus/hooks/test"
)

func setup(t *testing.T) (*http.ServeMux, *session.Session, *miniredis.Miniredis) {
	t.Helper()
	r := miniredis.RunT(t)
	c, err := cache.NewRedisCache(context.Background(), fmt.Sprintf("redis://%s", r.Addr()))
	if err != nil {
		t.Fatal(err)
	}

	log, _ := test.NewNullLogger()
	s := session.New(strava.NewClient("1234", "secret", "http://localhost:8080/callback/strava"), token.NewStore(c), log)
	set := session.NewSet(s)

	mux := http.NewServeMux()
	mux.Handle("GET /connect/{provider}", ConnectHandler(set, log))
	mux.Handle("GET /callback/{provider}", CallbackHandler(set, log))
	mux.Handle("POST /disconnect/{provider}", DisconnectHandler(set, log))
	mux.Handle("GET /strava-callback", ForProvider("strava", CallbackHandler(set, log)))
	return mux, s, r
}

func serve(mux http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

// startAuthorization runs the connect step and returns the issued state.
func startAuthorization(t *testing.T, mux http.Handler) string {
	t.Helper()
	rr := serve(mux, http.MethodGet, "/connect/strava")
	if rr.Code != http.StatusFound {
		t.Fatalf("connect returned wrong status code: got %d want %d", rr.Code, http.StatusFound)
	}
	u, err := url.Parse(rr.Header().Get("Location"))
	if err != nil {
		t.Fatal(err)
	}
	if got := u.Scheme + "://" + u.Host + u.Path; got != strava.Endpoint.AuthURL {
		t.Errorf("expected redirect to %s, got %s", strava.Endpoint.AuthURL, got)
	}
	return u.Query().Get("state")
}

func TestConnectUnknownProvider(t *testing.T) {
	mux, _, _ := setup(t)
	if rr := serve(mux, http.MethodGet, "/connect/garmin"); rr.Code != http.StatusNotFound {
		t.Errorf("handler returned wrong status code: got %d want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCallbackHandler(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	expiresAt := time.Now().Add(6 * time.Hour).Unix()
	httpmock.RegisterResponder("GET", "https://www.strava.com/api/v3/athlete/activities",
		httpmock.NewStringResponder(200, `[{"id":1,"type":"Ride","distance":1000,"moving_time":60,"start_date":"2024-05-01T10:00:00Z"}]`))

	tests := []struct {
		name     string
		query    func(state string) string
		exchange httpmock.Responder
		want     int
	}{
		{
			"valid state and code",
			func(state string) string { return "?state=" + state + "&code=test-code" },
			httpmock.NewStringResponder(200, fmt.Sprintf(`{"access_token":"123456789","token_type":"Bearer","refresh_token":"987654321","expires_at":%d}`, expiresAt)),
			http.StatusFound,
		},
		{
			"access denied",
			func(state string) string { return "?state=" + state + "&error=access_denied" },
			nil,
			http.StatusBadRequest,
		},
		{
			"valid state but no code",
			func(state string) string { return "?state=" + state },
			nil,
			http.StatusBadRequest,
		},
		{
			"invalid state",
			func(string) string { return "?state=invalid-state&code=test-code" },
			nil,
			http.StatusBadRequest,
		},
		{
			"exchange failure",
			func(state string) string { return "?state=" + state + "&code=test-code" },
			httpmock.NewStringResponder(400, `{"message":"Bad Request","errors":[{"field":"code","code":"invalid"}]}`),
			http.StatusBadGateway,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mux, s, r := setup(t)
			if tc.exchange != nil {
				httpmock.RegisterResponder("POST", strava.Endpoint.TokenURL, tc.exchange)
			}

			state := startAuthorization(t, mux)
			rr := serve(mux, http.MethodGet, "/callback/strava"+tc.query(state))
			if rr.Code != tc.want {
				t.Errorf("%s: handler returned wrong status code: got %d want %d", tc.name, rr.Code, tc.want)
			}

			wantState := session.Disconnected
			if tc.want == http.StatusFound {
				wantState = session.Connected
			}
			if s.State() != wantState {
				t.Errorf("expected session %s, got %s", wantState, s.State())
			}
			if r.Exists(token.StravaKey) != (wantState == session.Connected) {
				t.Errorf("unexpected token presence after %s", tc.name)
			}
			if wantState == session.Connected && len(s.Activities()) != 1 {
				t.Errorf("expected 1 activity, got %d", len(s.Activities()))
			}
		})
	}
}

func TestCallbackWithoutConnect(t *testing.T) {
	mux, _, _ := setup(t)
	if rr := serve(mux, http.MethodGet, "/callback/strava?state=x&code=y"); rr.Code != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestForProvider(t *testing.T) {
	mux, _, _ := setup(t)
	state := startAuthorization(t, mux)

	rr := serve(mux, http.MethodGet, "/strava-callback?state="+state+"&error=access_denied")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("handler returned wrong status code: got %d want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestDisconnectHandler(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()
	httpmock.RegisterResponder("POST", strava.Endpoint.TokenURL,
		httpmock.NewStringResponder(200, fmt.Sprintf(`{"access_token":"a","token_type":"Bearer","refresh_token":"r","expires_at":%d}`, time.Now().Add(time.Hour).Unix())))
	httpmock.RegisterResponder("GET", "https://www.strava.com/api/v3/athlete/activities",
		httpmock.NewStringResponder(200, `[]`))

	mux, s, r := setup(t)
	state := startAuthorization(t, mux)
	if rr := serve(mux, http.MethodGet, "/callback/strava?state="+state+"&code=c"); rr.Code != http.StatusFound {
		t.Fatalf("callback returned wrong status code: got %d", rr.Code)
	}

	rr := serve(mux, http.MethodPost, "/disconnect/strava")
	if rr.Code != http.StatusSeeOther {
		t.Errorf("handler returned wrong status code: got %d want %d", rr.Code, http.StatusSeeOther)
	}
	if s.State() != session.Disconnected {
		t.Errorf("expected disconnected, got %s", s.State())
	}
	if r.Exists(token.StravaKey) {
		t.Error("expected token to be cleared")
	}

	if rr := serve(mux, http.MethodGet, "/connect/strava"); rr.Code != http.StatusFound {
		t.Errorf("expected reconnect to be possible, got %d", rr.Code)
	}
}
