package token

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/lildude/fitdash/internal/cache"
	"golang.org/x/oauth2"
)

func newStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	r := miniredis.RunT(t)
	c, err := cache.NewRedisCache(context.Background(), fmt.Sprintf("redis://%s", r.Addr()))
	if err != nil {
		t.Fatal(err)
	}
	return NewStore(c), r
}

func TestValidAt(t *testing.T) {
	now := time.Unix(1700000000, 0)
	tests := []struct {
		name  string
		token *Token
		want  bool
	}{
		{"expires in the future", &Token{ExpiresAt: now.Unix() + 1}, true},
		{"expires now", &Token{ExpiresAt: now.Unix()}, false},
		{"expired", &Token{ExpiresAt: now.Unix() - 3600}, false},
		{"nil token", nil, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.token.ValidAt(now); got != tc.want {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	want := &Token{AccessToken: "abc", RefreshToken: "def", ExpiresAt: 1700000000, TokenType: "Bearer", Scope: "read"}
	if err := s.Save(ctx, StravaKey, want); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(ctx, StravaKey)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *want {
		t.Errorf("expected %v, got %v", want, got)
	}

	// Other providers are independent
	if _, err := s.Load(ctx, GoogleFitKey); !errors.Is(err, ErrNoToken) {
		t.Errorf("expected ErrNoToken, got %v", err)
	}

	// Save overwrites
	want.AccessToken = "xyz"
	if err := s.Save(ctx, StravaKey, want); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Load(ctx, StravaKey)
	if got.AccessToken != "xyz" {
		t.Errorf("expected xyz, got %s", got.AccessToken)
	}
}

func TestLoadCorrupt(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not json", "{broken"},
		{"wrong shape", `["a","b"]`},
		{"no access token", `{"refreshToken":"abc"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, r := newStore(t)
			if err := r.Set(StravaKey, tc.value); err != nil {
				t.Fatal(err)
			}

			_, err := s.Load(context.Background(), StravaKey)
			if !errors.Is(err, ErrNoToken) {
				t.Errorf("expected ErrNoToken, got %v", err)
			}
			if r.Exists(StravaKey) {
				t.Error("expected corrupt token to be removed")
			}
		})
	}
}

func TestClear(t *testing.T) {
	s, r := newStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, GoogleFitKey, &Token{AccessToken: "abc"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(ctx, GoogleFitKey); err != nil {
		t.Fatal(err)
	}
	if r.Exists(GoogleFitKey) {
		t.Error("expected token to be removed")
	}
}

func TestFromOAuth2(t *testing.T) {
	expiry := time.Unix(1700003600, 0)

	t.Run("absolute expires_at", func(t *testing.T) {
		ot := (&oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: expiry}).
			WithExtra(map[string]any{"expires_at": float64(1700007200), "scope": "read,activity:read"})
		got := FromOAuth2(ot)
		if got.ExpiresAt != 1700007200 {
			t.Errorf("expected 1700007200, got %d", got.ExpiresAt)
		}
		if got.Scope != "read,activity:read" {
			t.Errorf("expected scope, got %q", got.Scope)
		}
	})

	t.Run("relative expiry", func(t *testing.T) {
		got := FromOAuth2(&oauth2.Token{AccessToken: "a", Expiry: expiry})
		if got.ExpiresAt != expiry.Unix() {
			t.Errorf("expected %d, got %d", expiry.Unix(), got.ExpiresAt)
		}
		if got.TokenType != "Bearer" {
			t.Errorf("expected default token type Bearer, got %q", got.TokenType)
		}
	})

	t.Run("round trip", func(t *testing.T) {
		tok := &Token{AccessToken: "a", RefreshToken: "r", ExpiresAt: expiry.Unix(), TokenType: "Bearer"}
		got := FromOAuth2(tok.OAuth2())
		if *got != *tok {
			t.Errorf("expected %v, got %v", tok, got)
		}
	})
}
