package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/wadjakorntonsri/loopylink/pkg/core/analytics"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

const dateLayout = "2006-01-02"

var errBadRange = errors.New("from and to must be YYYY-MM-DD with from <= to")

type AnalyticsHandler struct {
	service     ports.AnalyticsService
	defaultDays int
	maxDays     int
	now         func() time.Time
}

// NewAnalyticsHandler serves reports over defaultDays when no range is given
// and rejects ranges longer than maxDays.
func NewAnalyticsHandler(service ports.AnalyticsService, defaultDays, maxDays int) *AnalyticsHandler {
	if maxDays < 1 {
		maxDays = 366
	}
	if defaultDays < 1 || defaultDays > maxDays {
		defaultDays = min(30, maxDays)
	}
	return &AnalyticsHandler{service: service, defaultDays: defaultDays, maxDays: maxDays, now: time.Now}
}

// parseRange reads ?from=&to= as whole UTC days. "to" covers the entire day.
func (h *AnalyticsHandler) parseRange(r *http.Request) (domain.DateRange, error) {
	q := r.URL.Query()
	today := h.now().UTC().Truncate(24 * time.Hour)

	to := today
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return domain.DateRange{}, errBadRange
		}
		to = t
	}
	from := to.AddDate(0, 0, -(h.defaultDays - 1))
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			return domain.DateRange{}, errBadRange
		}
		from = t
	}
	if from.After(to) {
		return domain.DateRange{}, errBadRange
	}
	if days := int(to.Sub(from)/(24*time.Hour)) + 1; days > h.maxDays {
		return domain.DateRange{}, fmt.Errorf("date range spans %d days, at most %d allowed", days, h.maxDays)
	}
	return domain.DateRange{From: from, To: to.Add(24*time.Hour - time.Nanosecond)}, nil
}

// parseFilters reads the active ?filter= set, then applies each ?toggle= in
// order the way a click on a dashboard facet would.
func parseFilters(r *http.Request) ([]domain.Filter, error) {
	q := r.URL.Query()
	var filters []domain.Filter
	for _, raw := range q["filter"] {
		f, ok := analytics.ParseFilter(raw)
		if !ok {
			return nil, errors.New("invalid filter " + raw)
		}
		filters = append(filters, f)
	}
	for _, raw := range q["toggle"] {
		f, ok := analytics.ParseFilter(raw)
		if !ok {
			return nil, errors.New("invalid toggle " + raw)
		}
		filters = analytics.ToggleFilter(filters, f)
	}
	return filters, nil
}

func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filters, err := parseFilters(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.service.Dashboard(r.Context(), UserID(r.Context()), rng, filters)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *AnalyticsHandler) Link(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.service.LinkReport(r.Context(), UserID(r.Context()), mux.Vars(r)["id"], rng)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
