// Package config reads the dashboard settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/text/language"
)

const (
	defaultPort           = "8080"
	defaultStoreURL       = "fitdash.db"
	defaultGoogleRedirect = "http://localhost:3000/google-fit-callback"
	defaultStravaRedirect = "http://localhost:8080/callback/strava"
	defaultAthleteAge     = 30
	defaultLanguage       = "en"
	maxAthleteAge         = 120
)

// Provider holds the OAuth client settings of one provider.
type Provider struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Enabled reports whether the provider has been configured.
func (p Provider) Enabled() bool {
	return p.ClientID != ""
}

type Config struct {
	Port       string
	StoreURL   string
	Strava     Provider
	GoogleFit  Provider
	AthleteAge int
	Language   language.Tag
}

// Load reads the configuration from the environment, applying defaults for
// unset values.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     firstEnv(defaultPort, "PORT", "FUNCTIONS_CUSTOMHANDLER_PORT"),
		StoreURL: firstEnv(defaultStoreURL, "STORE_URL"),
		Strava: Provider{
			ClientID:     os.Getenv("STRAVA_CLIENT_ID"),
			ClientSecret: os.Getenv("STRAVA_CLIENT_SECRET"),
			RedirectURI:  firstEnv(defaultStravaRedirect, "STRAVA_REDIRECT_URI"),
		},
		GoogleFit: Provider{
			ClientID:     os.Getenv("GOOGLE_FIT_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_FIT_CLIENT_SECRET"),
			RedirectURI:  firstEnv(defaultGoogleRedirect, "GOOGLE_FIT_REDIRECT_URI"),
		},
		AthleteAge: defaultAthleteAge,
	}

	if v := os.Getenv("ATHLETE_AGE"); v != "" {
		age, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parsing ATHLETE_AGE: %w", err)
		}
		cfg.AthleteAge = age
	}

	lang, err := language.Parse(firstEnv(defaultLanguage, "LANGUAGE"))
	if err != nil {
		return nil, fmt.Errorf("parsing LANGUAGE: %w", err)
	}
	cfg.Language = lang

	return cfg, nil
}

// Validate checks that the configuration can start the dashboard.
func (c *Config) Validate() error {
	var errs []error
	if !c.Strava.Enabled() && !c.GoogleFit.Enabled() {
		errs = append(errs, errors.New("no provider configured: set STRAVA_CLIENT_ID or GOOGLE_FIT_CLIENT_ID"))
	}
	if c.Strava.Enabled() && c.Strava.ClientSecret == "" {
		errs = append(errs, errors.New("STRAVA_CLIENT_SECRET is required"))
	}
	if c.GoogleFit.Enabled() && c.GoogleFit.ClientSecret == "" {
		errs = append(errs, errors.New("GOOGLE_FIT_CLIENT_SECRET is required"))
	}
	if c.AthleteAge <= 0 || c.AthleteAge >= maxAthleteAge {
		errs = append(errs, fmt.Errorf("ATHLETE_AGE must be between 1 and %d", maxAthleteAge-1))
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Port))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func firstEnv(fallback string, keys ...string) string {
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok && v != "" {
			return v
		}
	}
	return fallback
}
