// Command functions runs the service endpoints called with the service role
// key: click ingestion and broken-link probing.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/loopylink/pkg/adapters/handler"
	"github.com/wadjakorntonsri/loopylink/pkg/adapters/linkcheck"
	"github.com/wadjakorntonsri/loopylink/pkg/adapters/repository/sqlstore"
	"github.com/wadjakorntonsri/loopylink/pkg/config"
	"github.com/wadjakorntonsri/loopylink/pkg/core/services"
	"github.com/wadjakorntonsri/loopylink/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Initialize(cfg)

	if cfg.ServiceRoleKey == "" {
		log.Fatal().Msg("SERVICE_ROLE_KEY is required")
	}

	repo, err := sqlstore.NewSQLRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer repo.Close()

	h := handler.NewFunctionsHandler(services.NewClickService(repo), linkcheck.NewProber(cfg.CheckTimeout), cfg.ServiceRoleKey)
	server := &http.Server{
		Addr:         ":" + cfg.FunctionsPort,
		Handler:      handler.NewFunctionsRouter(h, handler.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.CheckTimeout + 5*time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.FunctionsPort).Msg("Functions server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Functions server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
