package handler

import (
	"net/http"
	"time"

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

var mux http.Handler

func init() {
	cfg := config.Load()
	logger.Initialize(cfg)

	// On Vercel the local file is ephemeral; DATABASE_URL should point at Turso or Postgres.
	repo, err := sqlstore.NewSQLRepository(cfg.DatabaseURL)
	if err != nil {
		log.Panic().Err(err).Msg("Failed to connect to database")
	}

	linkCache, err := cache.New(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Link cache unavailable, continuing without it")
		linkCache = cache.Noop{}
	}

	checker := linkcheck.NewRemoteChecker(cfg.LinkCheckURL, cfg.ServiceRoleKey, cfg.CheckTimeout)
	mux, _ = handler.NewRouter(cfg, handler.Services{
		Links:     services.NewLinkService(repo, repo, repo, checker, linkCache),
		Domains:   services.NewDomainService(repo, verify.NewResolver(), verify.NewHTTPFetcher(cfg.VerifyTimeout)),
		Analytics: services.NewAnalyticsService(repo, repo, time.UTC),
		Clicks:    services.NewClickService(repo),
		Profiles:  services.NewProfileService(repo),
		Health:    repo,
	})
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
