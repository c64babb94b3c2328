// Package auth implements the provider connect, callback and disconnect
// handlers.
package auth

import (
	"errors"
	"net/http"

	"github.com/lildude/fitdash/internal/session"
	"github.com/sirupsen/logrus"
)

// ProviderParam is the path wildcard naming the provider.
const ProviderParam = "provider"

func lookup(w http.ResponseWriter, r *http.Request, sessions *session.Set) (*session.Session, bool) {
	s, ok := sessions.Get(r.PathValue(ProviderParam))
	if !ok {
		http.Error(w, "unknown provider", http.StatusNotFound)
	}
	return s, ok
}

// ConnectHandler redirects to the provider consent page.
func ConnectHandler(sessions *session.Set, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(w, r, sessions)
		if !ok {
			return
		}

		u, err := s.Connect()
		if errors.Is(err, session.ErrAlreadyConnected) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		if err != nil {
			log.WithError(err).WithField("provider", s.Name()).Error("unable to start authorization")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		log.WithField("provider", s.Name()).Info("redirecting to provider consent")
		http.Redirect(w, r, u, http.StatusFound)
	}
}

// CallbackHandler completes the authorization started by ConnectHandler.
func CallbackHandler(sessions *session.Set, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(w, r, sessions)
		if !ok {
			return
		}

		q := r.URL.Query()
		err := s.Callback(r.Context(), session.CallbackParams{
			State: q.Get("state"),
			Code:  q.Get("code"),
			Error: q.Get("error"),
		})
		switch {
		case err == nil:
			http.Redirect(w, r, "/", http.StatusFound)
		case errors.Is(err, session.ErrAuthorizationDenied),
			errors.Is(err, session.ErrStateMismatch),
			errors.Is(err, session.ErrNotConnecting):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.WithError(err).WithField("provider", s.Name()).Error("token exchange failed")
			http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		}
	}
}

// DisconnectHandler forgets the provider token and activities.
func DisconnectHandler(sessions *session.Set, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookup(w, r, sessions)
		if !ok {
			return
		}

		if err := s.Disconnect(r.Context()); err != nil {
			log.WithError(err).WithField("provider", s.Name()).Error("unable to clear token")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// ForProvider serves h with the provider wildcard fixed to name, for
// redirect URIs registered without it.
func ForProvider(name string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.SetPathValue(ProviderParam, name)
		h.ServeHTTP(w, r)
	})
}
