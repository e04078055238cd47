package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-tournament/internal/auth"
	"video-tournament/internal/platform/config"
	"video-tournament/internal/platform/logger"
	"video-tournament/internal/platform/metrics"
	"video-tournament/internal/platform/ratelimit"
	"video-tournament/internal/tournament"
	"video-tournament/internal/youtube"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	sessionTTL := config.GetEnvDuration("SESSION_TTL", tournament.DefaultSessionTTL)
	sessionCapacity := config.GetEnvInt("SESSION_CAPACITY", tournament.DefaultSessionCapacity)
	cookieSecure := config.GetEnvBool("COOKIE_SECURE", false)
	catalogRPS := config.GetEnvFloat("CATALOG_RATE_LIMIT", 5)
	catalogBurst := config.GetEnvInt("CATALOG_RATE_BURST", 10)

	log := logger.New(logLevel, logFormat)

	var authOpts []auth.Option
	if u := config.GetEnv("OAUTH_REDIRECT_URL", ""); u != "" {
		authOpts = append(authOpts, auth.WithRedirectURL(u))
	}
	authn, err := auth.New(
		config.GetEnv("GOOGLE_CLIENT_ID", ""),
		config.GetEnv("GOOGLE_CLIENT_SECRET", ""),
		authOpts...,
	)
	if err != nil {
		log.Error("oauth configuration", "error", err)
		os.Exit(1)
	}

	catalogs := func(ctx context.Context, tokens oauth2.TokenSource) (tournament.UserCatalog, error) {
		return youtube.New(ctx, option.WithTokenSource(tokens))
	}

	repo := tournament.NewSessionRepositoryWithStore(tournament.NewLRUStore(sessionCapacity, sessionTTL))
	svc := tournament.NewService(repo, catalogs, nil)
	svc.RefreshTokensWith(authn.TokenSource)
	met := metrics.New()
	h := tournament.NewHandler(svc, authn, log, met, tournament.CookieOptions{
		Secure: cookieSecure,
		MaxAge: sessionTTL,
	})
	h.LimitCatalogCalls(ratelimit.Middleware(ratelimit.New(catalogRPS, catalogBurst)))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Use(middleware.Recoverer)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveSessions(repo.ActiveSessionCount()) }).ServeHTTP(w, r)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	h.Routes(r)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"session_ttl", sessionTTL.String(),
		"session_capacity", sessionCapacity,
		"catalog_rate_limit", catalogRPS,
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
