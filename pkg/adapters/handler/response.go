package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrLinkLimitReached):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrDomainExists),
		errors.Is(err, domain.ErrSlugTaken),
		errors.Is(err, domain.ErrDomainInUse),
		errors.Is(err, domain.ErrDomainHasGroups):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidDomain),
		errors.Is(err, domain.ErrDomainNotVerified),
		errors.Is(err, domain.ErrNotPrimary),
		errors.Is(err, domain.ErrGroupVerification),
		errors.Is(err, domain.ErrInvalidGroupName),
		errors.Is(err, domain.ErrInvalidVerifyMode),
		errors.Is(err, domain.ErrInvalidSlug),
		errors.Is(err, domain.ErrInvalidURL),
		errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidRedirect),
		errors.Is(err, domain.ErrInvalidEPC),
		errors.Is(err, domain.ErrMissingLinkID):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// handleError writes err as JSON. Unexpected errors are reported to Sentry
// and hidden from the client.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		writeError(w, status, err.Error())
		return
	}
	reportError(r, err)
	writeError(w, status, "internal server error")
}

func reportError(r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
