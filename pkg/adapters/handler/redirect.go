package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

// RedirectHandler serves short links on custom domains.
type RedirectHandler struct {
	links  ports.LinkService
	clicks ports.ClickService
	wg     sync.WaitGroup
	now    func() time.Time
}

func NewRedirectHandler(links ports.LinkService, clicks ports.ClickService) *RedirectHandler {
	return &RedirectHandler{links: links, clicks: clicks, now: time.Now}
}

// geo reads the country and city set by the edge proxy, if any.
func geo(r *http.Request) (country, city string) {
	country = r.Header.Get("X-Vercel-IP-Country")
	if country == "" {
		country = r.Header.Get("CF-IPCountry")
	}
	city = r.Header.Get("X-Vercel-IP-City")
	if unescaped, err := url.QueryUnescape(city); err == nil {
		city = unescaped
	}
	return country, city
}

func (h *RedirectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	res, err := h.links.Resolve(r.Context(), r.Host, r.URL.Path)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "Link not found", http.StatusNotFound)
		return
	}
	if err != nil {
		reportError(r, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if res.IsExpired(h.now()) {
		http.Error(w, "Link expired", http.StatusGone)
		return
	}
	if res.Status != domain.StatusActive {
		http.Error(w, "Link not found", http.StatusNotFound)
		return
	}

	// Async track visit (only if query param "no_stat" is not set)
	if r.URL.Query().Get("no_stat") == "" {
		country, city := geo(r)
		visit := domain.Visit{
			Referrer:  r.Referer(),
			UserAgent: r.UserAgent(),
			IP:        clientIP(r),
			Country:   country,
			City:      city,
		}
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			// The request context is cancelled once the redirect is written.
			if err := h.clicks.RecordVisit(context.Background(), res, visit); err != nil {
				log.Error().Err(err).Str("link_id", res.LinkID).Msg("Failed to record click")
			}
		}()
	}

	code := http.StatusTemporaryRedirect
	if res.RedirectType == domain.RedirectPermanent {
		code = http.StatusMovedPermanently
	}
	http.Redirect(w, r, res.DestinationURL, code)
}

// Wait blocks until pending click writes finish.
func (h *RedirectHandler) Wait() {
	h.wg.Wait()
}
