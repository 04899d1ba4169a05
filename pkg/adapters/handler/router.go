package handler

import (
	"context"
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/mux"
	"github.com/wadjakorntonsri/loopylink/pkg/config"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

// Services bundles everything the main router serves.
type Services struct {
	Links     ports.LinkService
	Domains   ports.DomainService
	Analytics ports.AnalyticsService
	Clicks    ports.ClickService
	Profiles  ports.ProfileService
	Health    interface{ Ping(ctx context.Context) error }
}

// NewRouter creates and configures the main application router. The returned
// RedirectHandler lets callers drain pending click writes on shutdown.
func NewRouter(cfg *config.Config, svc Services) (http.Handler, *RedirectHandler) {
	lh := NewLinkHandler(svc.Links)
	dh := NewDomainHandler(svc.Domains)
	ah := NewAnalyticsHandler(svc.Analytics, cfg.AnalyticsDefaultDays, cfg.AnalyticsMaxDays)
	ph := NewProfileHandler(svc.Profiles)
	rh := NewRedirectHandler(svc.Links, svc.Clicks)
	authHandler := NewAuthHandler(cfg, svc.Profiles)
	mw := NewMiddleware(cfg)
	limiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	redirectLimiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r := mux.NewRouter()
	r.Use(RequestID, Recovery, sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle, Logging)

	// Public Routes
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Health != nil {
			if err := svc.Health.Ping(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/auth/google/login", authHandler.Login).Methods(http.MethodGet)
	r.HandleFunc("/auth/google/callback", authHandler.Callback).Methods(http.MethodGet)
	r.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodGet)

	// Protected Routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(mw.AuthMiddleware, limiter.Limit)

	api.HandleFunc("/v1/links", lh.Create).Methods(http.MethodPost)
	api.HandleFunc("/v1/links", lh.List).Methods(http.MethodGet)
	api.HandleFunc("/v1/links/{id}", lh.Get).Methods(http.MethodGet)
	api.HandleFunc("/v1/links/{id}", lh.Update).Methods(http.MethodPut)
	api.HandleFunc("/v1/links/{id}", lh.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/v1/links/{id}/status", lh.UpdateStatus).Methods(http.MethodPatch)
	api.HandleFunc("/v1/links/{id}/analytics", ah.Link).Methods(http.MethodGet)
	api.HandleFunc("/v1/tags", lh.Tags).Methods(http.MethodGet)
	api.HandleFunc("/check-link", lh.CheckLink).Methods(http.MethodPost)

	api.HandleFunc("/v1/domains", dh.List).Methods(http.MethodGet)
	api.HandleFunc("/v1/domains", dh.Create).Methods(http.MethodPost)
	api.HandleFunc("/v1/domains/{id}", dh.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/v1/domains/{id}/groups", dh.CreateGroup).Methods(http.MethodPost)
	api.HandleFunc("/v1/domains/{id}/verify", dh.Verify).Methods(http.MethodPost)

	api.HandleFunc("/v1/analytics", ah.Dashboard).Methods(http.MethodGet)

	api.HandleFunc("/v1/profile", ph.Get).Methods(http.MethodGet)
	api.HandleFunc("/v1/profile", ph.Update).Methods(http.MethodPut)

	// Everything else is a short link.
	r.PathPrefix("/").Handler(redirectLimiter.Limit(rh))

	return r, rh
}
