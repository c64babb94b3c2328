// Package token persists OAuth credentials for each provider.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lildude/fitdash/internal/cache"
	"golang.org/x/oauth2"
)

// ErrNoToken is returned by Load when no usable token is stored.
var ErrNoToken = errors.New("no token stored")

// Storage keys for each provider.
const (
	StravaKey    = "strava_token"
	GoogleFitKey = "googleFitToken"
)

// Token is the provider independent representation of an OAuth credential.
type Token struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
	TokenType    string `json:"tokenType"`
	Scope        string `json:"scope"`
}

// ValidAt reports whether the token is still valid at now.
func (t *Token) ValidAt(now time.Time) bool {
	return t != nil && t.ExpiresAt > now.Unix()
}

// Valid reports whether the token is still valid.
func (t *Token) Valid() bool {
	return t.ValidAt(time.Now())
}

// OAuth2 returns the token as an oauth2.Token for use with an oauth2 client.
func (t *Token) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       time.Unix(t.ExpiresAt, 0),
	}
}

// FromOAuth2 converts an oauth2.Token. The expiry is taken from the
// absolute expires_at field when the provider sends one.
func FromOAuth2(ot *oauth2.Token) *Token {
	t := &Token{
		AccessToken:  ot.AccessToken,
		RefreshToken: ot.RefreshToken,
		TokenType:    ot.TokenType,
	}
	if t.TokenType == "" {
		t.TokenType = "Bearer"
	}
	if s, ok := ot.Extra("scope").(string); ok {
		t.Scope = s
	}

	switch v := ot.Extra("expires_at").(type) {
	case float64:
		t.ExpiresAt = int64(v)
	case int64:
		t.ExpiresAt = v
	}
	if t.ExpiresAt == 0 && !ot.Expiry.IsZero() {
		t.ExpiresAt = ot.Expiry.Unix()
	}
	return t
}

// Store keeps one token per provider key in a cache.
type Store struct {
	cache cache.Cache
}

func NewStore(c cache.Cache) *Store {
	return &Store{cache: c}
}

// Save persists the token, overwriting any prior token for key.
func (s *Store) Save(ctx context.Context, key string, t *Token) error {
	if err := s.cache.SetJSON(ctx, key, t); err != nil {
		return fmt.Errorf("saving token %s: %w", key, err)
	}
	return nil
}

// Load returns the token stored under key. Missing and unreadable values
// both return ErrNoToken; an unreadable value is removed.
func (s *Store) Load(ctx context.Context, key string) (*Token, error) {
	var t Token
	err := s.cache.GetJSON(ctx, key, &t)
	switch {
	case err == nil:
		if t.AccessToken == "" {
			return nil, s.drop(ctx, key)
		}
		return &t, nil
	case errors.Is(err, cache.ErrNotFound):
		return nil, ErrNoToken
	case errors.Is(err, cache.ErrCorrupt):
		return nil, s.drop(ctx, key)
	default:
		return nil, fmt.Errorf("loading token %s: %w", key, err)
	}
}

func (s *Store) drop(ctx context.Context, key string) error {
	if err := s.Clear(ctx, key); err != nil {
		return err
	}
	return ErrNoToken
}

// Clear removes the token stored under key.
func (s *Store) Clear(ctx context.Context, key string) error {
	if err := s.cache.Del(ctx, key); err != nil {
		return fmt.Errorf("clearing token %s: %w", key, err)
	}
	return nil
}
