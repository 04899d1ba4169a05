package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

// FunctionsHandler serves the service-to-service endpoints: click ingestion
// and destination probing. Both require the service role key.
type FunctionsHandler struct {
	clicks     ports.ClickService
	prober     ports.LinkProber
	serviceKey []byte
}

func NewFunctionsHandler(clicks ports.ClickService, prober ports.LinkProber, serviceKey string) *FunctionsHandler {
	return &FunctionsHandler{clicks: clicks, prober: prober, serviceKey: []byte(serviceKey)}
}

func (h *FunctionsHandler) authorized(r *http.Request) bool {
	token := bearerToken(r)
	if len(h.serviceKey) == 0 || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), h.serviceKey) == 1
}

func (h *FunctionsHandler) LogClick(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var event domain.ClickEvent
	if err := decodeJSON(r, &event); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.clicks.LogClick(r.Context(), event); err != nil {
		if errors.Is(err, domain.ErrMissingLinkID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reportError(r, err)
		http.Error(w, "Failed to log click", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Click logged"))
}

type probeRequest struct {
	URL    string `json:"url"`
	LinkID string `json:"linkId"`
}

func (h *FunctionsHandler) CheckBrokenLinks(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req probeRequest
	if err := decodeJSON(r, &req); err != nil || req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	result := h.prober.Probe(r.Context(), req.URL, req.LinkID)
	zerolog.Ctx(r.Context()).Info().Str("url", req.URL).Bool("broken", result.Broken).Int("status", result.Status).Msg("Probed destination")
	writeJSON(w, http.StatusOK, result)
}

// NewFunctionsRouter builds the router of the functions deployable.
func NewFunctionsRouter(h *FunctionsHandler, limiter *RateLimiter) http.Handler {
	r := mux.NewRouter()
	r.Use(RequestID, Recovery, Logging, limiter.Limit)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/log-click", h.LogClick).Methods(http.MethodPost)
	r.HandleFunc("/check-broken-links", h.CheckBrokenLinks).Methods(http.MethodPost)
	return r
}
