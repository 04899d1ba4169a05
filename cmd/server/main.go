package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/loopylink/pkg/adapters/cache"
	"github.com/wadjakorntonsri/loopylink/pkg/adapters/handler"
	"github.com/wadjakorntonsri/loopylink/pkg/adapters/linkcheck"
	"github.com/wadjakorntonsri/loopylink/pkg/adapters/repository/sqlstore"
	"github.com/wadjakorntonsri/loopylink/pkg/adapters/verify"
	"github.com/wadjakorntonsri/loopylink/pkg/config"
	"github.com/wadjakorntonsri/loopylink/pkg/core/services"
	"github.com/wadjakorntonsri/loopylink/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Initialize(cfg)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.AppEnv,
			TracesSampleRate: 0.2,
		}); err != nil {
			log.Warn().Err(err).Msg("Sentry initialization failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	repo, err := sqlstore.NewSQLRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer repo.Close()

	linkCache, err := cache.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize link cache")
	}
	defer linkCache.Close()

	checker := linkcheck.NewRemoteChecker(cfg.LinkCheckURL, cfg.ServiceRoleKey, cfg.CheckTimeout)
	router, redirects := handler.NewRouter(cfg, handler.Services{
		Links:     services.NewLinkService(repo, repo, repo, checker, linkCache),
		Domains:   services.NewDomainService(repo, verify.NewResolver(), verify.NewHTTPFetcher(cfg.VerifyTimeout)),
		Analytics: services.NewAnalyticsService(repo, repo, time.UTC),
		Clicks:    services.NewClickService(repo),
		Profiles:  services.NewProfileService(repo),
		Health:    repo,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	redirects.Wait()
}
