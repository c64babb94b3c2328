package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Autoloads .env file to supply environment variables
	_ "github.com/joho/godotenv/autoload"

	"github.com/lildude/fitdash/internal/cache"
	"github.com/lildude/fitdash/internal/config"
	"github.com/lildude/fitdash/internal/goals"
	"github.com/lildude/fitdash/internal/googlefit"
	"github.com/lildude/fitdash/internal/handlers/api"
	"github.com/lildude/fitdash/internal/handlers/auth"
	"github.com/lildude/fitdash/internal/logger"
	"github.com/lildude/fitdash/internal/middleware"
	"github.com/lildude/fitdash/internal/session"
	"github.com/lildude/fitdash/internal/strava"
	"github.com/lildude/fitdash/internal/token"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logger.NewLogger()
	if err := run(log); err != nil {
		log.WithError(err).Fatal("fitdash stopped")
	}
}

func run(log logrus.FieldLogger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cache.New(ctx, cfg.StoreURL)
	if err != nil {
		return err
	}
	defer store.Close()

	tokens := token.NewStore(store)
	var sessions []*session.Session
	if cfg.Strava.Enabled() {
		p := strava.NewClient(cfg.Strava.ClientID, cfg.Strava.ClientSecret, cfg.Strava.RedirectURI)
		sessions = append(sessions, session.New(p, tokens, log))
	}
	if cfg.GoogleFit.Enabled() {
		p := googlefit.NewClient(cfg.GoogleFit.ClientID, cfg.GoogleFit.ClientSecret, cfg.GoogleFit.RedirectURI)
		sessions = append(sessions, session.New(p, tokens, log))
	}
	set := session.NewSet(sessions...)

	// A failed restore leaves that provider disconnected; the server still starts.
	if err := set.Init(ctx); err != nil {
		log.WithError(err).Error("restoring sessions")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           routes(set, goals.NewStore(store, log), cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("starting server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func routes(set *session.Set, g *goals.Store, cfg *config.Config, log logrus.FieldLogger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", indexHandler(log))
	mux.Handle("GET /connect/{provider}", auth.ConnectHandler(set, log))
	callback := auth.CallbackHandler(set, log)
	mux.Handle("GET /callback/{provider}", callback)
	mux.Handle("GET /google-fit-callback", auth.ForProvider(googlefit.Name, callback))
	mux.Handle("POST /disconnect/{provider}", auth.DisconnectHandler(set, log))
	api.New(set, g, log, cfg.AthleteAge, cfg.Language).Register(mux)

	return middleware.Recover(log, middleware.Logging(log, mux))
}

func indexHandler(log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("fitdash")); err != nil {
			log.WithError(err).Error("writing index")
		}
	}
}
