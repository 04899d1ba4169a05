package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wadjakorntonsri/loopylink/pkg/adapters/cache"
	"github.com/wadjakorntonsri/loopylink/pkg/adapters/repository/sqlstore"
	"github.com/wadjakorntonsri/loopylink/pkg/config"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/core/services"
)

type stubResolver struct {
	records map[string][]string
}

func (s *stubResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	recs, ok := s.records[name]
	if !ok {
		return nil, errors.New("no such host")
	}
	return recs, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, string) (int, string, error) {
	return http.StatusNotFound, "", nil
}

type stubChecker struct {
	err error
}

func (s *stubChecker) Check(_ context.Context, url, linkID string) (*domain.HealthCheck, json.RawMessage, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	res := &domain.HealthCheck{URL: url, LinkID: linkID, Broken: false, Status: 200}
	raw, _ := json.Marshal(res)
	return res, raw, nil
}

type apiEnv struct {
	t        *testing.T
	router   http.Handler
	redirect *RedirectHandler
	repo     *sqlstore.SQLRepository
	resolver *stubResolver
	checker  *stubChecker
	token    string
	profile  *domain.Profile
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	repo, err := sqlstore.NewSQLRepository("file:api_" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Failed to init db: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	cfg := &config.Config{JWTSecret: "test-secret", AnalyticsDefaultDays: 7}
	resolver := &stubResolver{records: map[string][]string{}}
	checker := &stubChecker{}

	profiles := services.NewProfileService(repo)
	svc := Services{
		Links:     services.NewLinkService(repo, repo, repo, checker, cache.Noop{}),
		Domains:   services.NewDomainService(repo, resolver, stubFetcher{}),
		Analytics: services.NewAnalyticsService(repo, repo, time.UTC),
		Clicks:    services.NewClickService(repo),
		Profiles:  profiles,
		Health:    repo,
	}
	router, rh := NewRouter(cfg, svc)

	p, err := profiles.LoginProfile(context.Background(), "owner@example.com", "Owner Person", "")
	if err != nil {
		t.Fatal(err)
	}
	token, _, err := SignToken([]byte(cfg.JWTSecret), p.ID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	return &apiEnv{t: t, router: router, redirect: rh, repo: repo, resolver: resolver, checker: checker, token: token, profile: p}
}

func (e *apiEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+e.token)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response %q: %v", rr.Body.String(), err)
	}
	return v
}

// verifiedDomain creates and verifies name through the API.
func (e *apiEnv) verifiedDomain(name string) domain.Domain {
	e.t.Helper()
	rr := e.do("POST", "/api/v1/domains", map[string]string{"domain": name})
	if rr.Code != http.StatusCreated {
		e.t.Fatalf("create domain: %d %s", rr.Code, rr.Body)
	}
	d := decode[domain.Domain](e.t, rr)
	e.resolver.records[d.Domain] = []string{d.TXTRecordValue}

	rr = e.do("POST", "/api/v1/domains/"+d.ID+"/verify", nil)
	res := decode[domain.VerificationResult](e.t, rr)
	if !res.Success {
		e.t.Fatalf("verify failed: %+v", res)
	}
	return *res.Domain
}

func (e *apiEnv) createLink(in domain.LinkInput) domain.LinkView {
	e.t.Helper()
	rr := e.do("POST", "/api/v1/links", in)
	if rr.Code != http.StatusCreated {
		e.t.Fatalf("create link: %d %s", rr.Code, rr.Body)
	}
	return decode[domain.LinkView](e.t, rr)
}

func TestDomainEndpoints(t *testing.T) {
	e := newAPIEnv(t)

	rr := e.do("POST", "/api/v1/domains", map[string]string{"domain": "https://bad.example.com"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid domain: expected 400, got %d", rr.Code)
	}

	rr = e.do("POST", "/api/v1/domains", map[string]string{"domain": "go.example.com"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	d := decode[domain.Domain](t, rr)

	rr = e.do("POST", "/api/v1/domains/"+d.ID+"/verify", map[string]string{"method": "TXT"})
	res := decode[domain.VerificationResult](t, rr)
	if rr.Code != http.StatusOK || res.Success || res.Reason != domain.ReasonDNSLookupFailed {
		t.Errorf("expected failed verification with DNS reason, got %d %+v", rr.Code, res)
	}

	rr = e.do("POST", "/api/v1/domains", map[string]string{"domain": "GO.example.com"})
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate domain: expected 409, got %d", rr.Code)
	}

	rr = e.do("POST", "/api/v1/domains/"+d.ID+"/groups", map[string]string{"name": "team"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create group: expected 201, got %d %s", rr.Code, rr.Body)
	}
	g := decode[domain.Domain](t, rr)

	rr = e.do("GET", "/api/v1/domains", nil)
	list := decode[struct {
		Data []domain.Domain `json:"data"`
	}](t, rr)
	if len(list.Data) != 1 || len(list.Data[0].Groups) != 1 || list.Data[0].Groups[0].Domain != "go.example.com/team" {
		t.Errorf("unexpected domain list %+v", list.Data)
	}

	if rr := e.do("DELETE", "/api/v1/domains/"+d.ID, nil); rr.Code != http.StatusConflict {
		t.Errorf("delete primary with group: expected 409, got %d", rr.Code)
	}
	if rr := e.do("DELETE", "/api/v1/domains/"+g.ID, nil); rr.Code != http.StatusNoContent {
		t.Errorf("delete group: expected 204, got %d", rr.Code)
	}
	if rr := e.do("DELETE", "/api/v1/domains/missing", nil); rr.Code != http.StatusNotFound {
		t.Errorf("delete missing: expected 404, got %d", rr.Code)
	}
}

func TestLinkEndpoints(t *testing.T) {
	e := newAPIEnv(t)
	d := e.verifiedDomain("go.example.com")

	req := httptest.NewRequest("POST", "/api/v1/links", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+e.token)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid body: expected 400, got %d", rr.Code)
	}

	link := e.createLink(domain.LinkInput{DomainID: d.ID, Slug: "promo", DestinationURL: "https://shop.example.org", Tags: []string{"sale"}})
	if link.FullURL != "https://go.example.com/promo" || link.RedirectType != domain.RedirectTemporary {
		t.Errorf("unexpected link %+v", link)
	}

	rr = e.do("POST", "/api/v1/links", domain.LinkInput{DomainID: d.ID, Slug: "promo", DestinationURL: "https://x.org"})
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate slug: expected 409, got %d", rr.Code)
	}

	rr = e.do("GET", "/api/v1/links?search=promo", nil)
	list := decode[struct {
		Data  []domain.LinkView `json:"data"`
		Total int64             `json:"total"`
	}](t, rr)
	if list.Total != 1 || list.Data[0].ID != link.ID {
		t.Errorf("unexpected list %+v", list)
	}

	rr = e.do("PATCH", "/api/v1/links/"+link.ID+"/status", map[string]string{"status": "archived"})
	if rr.Code != http.StatusOK || decode[domain.LinkView](t, rr).Status != domain.StatusArchived {
		t.Errorf("status update failed: %d", rr.Code)
	}
	rr = e.do("PATCH", "/api/v1/links/"+link.ID+"/status", map[string]string{"status": "expired"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expired status: expected 400, got %d", rr.Code)
	}

	rr = e.do("PUT", "/api/v1/links/"+link.ID, domain.LinkInput{DestinationURL: "https://new.example.org"})
	if rr.Code != http.StatusOK || decode[domain.LinkView](t, rr).DestinationURL != "https://new.example.org" {
		t.Errorf("update failed: %d", rr.Code)
	}

	rr = e.do("GET", "/api/v1/tags", nil)
	if tags := decode[map[string][]string](t, rr)["tags"]; len(tags) != 1 || tags[0] != "sale" {
		t.Errorf("tags = %v", tags)
	}

	if rr := e.do("DELETE", "/api/v1/links/"+link.ID, nil); rr.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", rr.Code)
	}
	if rr := e.do("GET", "/api/v1/links/"+link.ID, nil); rr.Code != http.StatusNotFound {
		t.Errorf("get deleted: expected 404, got %d", rr.Code)
	}
}

func TestUpdateLinkNullClearsFields(t *testing.T) {
	e := newAPIEnv(t)
	d := e.verifiedDomain("go.example.com")
	past := time.Now().Add(-time.Hour)
	link := e.createLink(domain.LinkInput{DomainID: d.ID, Slug: "promo", DestinationURL: "https://shop.example.org", Note: "old", ExpireAt: &past})

	rr := e.do("PUT", "/api/v1/links/"+link.ID, map[string]interface{}{"status": "active"})
	if got := decode[domain.LinkView](t, rr); got.Note != "old" || got.ExpireAt == nil {
		t.Errorf("absent fields must stay unchanged: %+v", got)
	}

	rr = e.do("PUT", "/api/v1/links/"+link.ID, map[string]interface{}{"note": nil, "expire_at": nil})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body)
	}
	got := decode[domain.LinkView](t, rr)
	if got.Note != "" || got.ExpireAt != nil || got.EffectiveStatus != domain.StatusActive {
		t.Errorf("expected note and expiry cleared, got %+v", got)
	}
}

func TestCheckLinkEndpoint(t *testing.T) {
	e := newAPIEnv(t)
	d := e.verifiedDomain("go.example.com")
	link := e.createLink(domain.LinkInput{DomainID: d.ID, Slug: "a", DestinationURL: "https://a.example.org"})

	if rr := e.do("POST", "/api/check-link", map[string]string{}); rr.Code != http.StatusBadRequest {
		t.Errorf("missing linkId: expected 400, got %d", rr.Code)
	}
	if rr := e.do("POST", "/api/check-link", map[string]string{"linkId": "nope"}); rr.Code != http.StatusNotFound {
		t.Errorf("unknown link: expected 404, got %d", rr.Code)
	}

	rr := e.do("POST", "/api/check-link", map[string]string{"linkId": link.ID})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body)
	}
	got := decode[domain.HealthCheck](t, rr)
	if got.LinkID != link.ID || got.URL != "https://a.example.org" {
		t.Errorf("unexpected result %+v", got)
	}

	e.checker.err = &domain.CheckFailedError{Status: 502, Details: "upstream down"}
	rr = e.do("POST", "/api/check-link", map[string]string{"linkId": link.ID})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if body := decode[errorResponse](t, rr); body.Details != "upstream down" {
		t.Errorf("details = %q", body.Details)
	}
}

func TestRedirect(t *testing.T) {
	e := newAPIEnv(t)
	d := e.verifiedDomain("go.example.com")
	past := time.Now().Add(-time.Hour)

	active := e.createLink(domain.LinkInput{DomainID: d.ID, Slug: "promo", DestinationURL: "https://dest.example.org"})
	e.createLink(domain.LinkInput{DomainID: d.ID, Slug: "perm", DestinationURL: "https://perm.example.org", RedirectType: domain.RedirectPermanent})
	e.createLink(domain.LinkInput{DomainID: d.ID, Slug: "draft", DestinationURL: "https://x.org", Status: domain.StatusDraft})
	e.createLink(domain.LinkInput{DomainID: d.ID, Slug: "old", DestinationURL: "https://x.org", ExpireAt: &past})

	tests := []struct {
		url      string
		status   int
		location string
	}{
		{"http://go.example.com/promo?no_stat=1", http.StatusTemporaryRedirect, "https://dest.example.org"},
		{"http://go.example.com/perm?no_stat=1", http.StatusMovedPermanently, "https://perm.example.org"},
		{"http://go.example.com/draft", http.StatusNotFound, ""},
		{"http://go.example.com/old", http.StatusGone, ""},
		{"http://go.example.com/missing", http.StatusNotFound, ""},
		{"http://unknown.example.com/promo", http.StatusNotFound, ""},
		{"http://localhost/r/go.example.com/promo?no_stat=1", http.StatusTemporaryRedirect, "https://dest.example.org"},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		e.router.ServeHTTP(rr, httptest.NewRequest("GET", tt.url, nil))
		if rr.Code != tt.status || rr.Header().Get("Location") != tt.location {
			t.Errorf("%s: got %d %q, want %d %q", tt.url, rr.Code, rr.Header().Get("Location"), tt.status, tt.location)
		}
	}
	e.redirect.Wait()

	now := time.Now()
	clicks, _ := e.repo.ListClicks(context.Background(), []string{active.ID}, now.Add(-time.Hour), now.Add(time.Hour))
	if len(clicks) != 0 {
		t.Fatalf("no_stat requests must not be recorded, got %d clicks", len(clicks))
	}

	req := httptest.NewRequest("GET", "http://go.example.com/promo", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Referer", "https://news.example.net/post")
	req.Header.Set("X-Forwarded-For", "203.0.113.5")
	req.Header.Set("X-Vercel-IP-Country", "TH")
	req.Header.Set("X-Vercel-IP-City", "Chiang%20Mai")
	e.router.ServeHTTP(httptest.NewRecorder(), req)
	e.redirect.Wait()

	clicks, _ = e.repo.ListClicks(context.Background(), []string{active.ID}, now.Add(-time.Hour), now.Add(time.Hour))
	if len(clicks) != 1 {
		t.Fatalf("expected 1 click, got %d", len(clicks))
	}
	c := clicks[0]
	if c.IPAddress != "203.0.113.5" || c.Country != "TH" || c.City != "Chiang Mai" || c.Browser != "Chrome" || c.OS != "Windows" || c.Device != "Desktop" {
		t.Errorf("unexpected click %+v", c)
	}
}

func TestRedirectsAreRateLimited(t *testing.T) {
	e := newAPIEnv(t)
	d := e.verifiedDomain("go.example.com")
	e.createLink(domain.LinkInput{DomainID: d.ID, Slug: "promo", DestinationURL: "https://dest.example.org"})

	cfg := &config.Config{JWTSecret: "test-secret", RateLimitRPS: 1, RateLimitBurst: 1}
	router, rh := NewRouter(cfg, Services{
		Links:     services.NewLinkService(e.repo, e.repo, e.repo, e.checker, cache.Noop{}),
		Domains:   services.NewDomainService(e.repo, e.resolver, stubFetcher{}),
		Analytics: services.NewAnalyticsService(e.repo, e.repo, time.UTC),
		Clicks:    services.NewClickService(e.repo),
		Profiles:  services.NewProfileService(e.repo),
	})
	t.Cleanup(rh.Wait)

	visit := func(ip string) int {
		req := httptest.NewRequest("GET", "http://go.example.com/promo", nil)
		req.RemoteAddr = ip + ":4000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr.Code
	}
	if code := visit("198.51.100.7"); code != http.StatusTemporaryRedirect {
		t.Fatalf("first visit: expected 307, got %d", code)
	}
	if code := visit("198.51.100.7"); code != http.StatusTooManyRequests {
		t.Errorf("second visit: expected 429, got %d", code)
	}
	if code := visit("198.51.100.8"); code != http.StatusTemporaryRedirect {
		t.Errorf("other client: expected 307, got %d", code)
	}
}

func TestAnalyticsEndpoints(t *testing.T) {
	e := newAPIEnv(t)
	d := e.verifiedDomain("go.example.com")
	link := e.createLink(domain.LinkInput{DomainID: d.ID, Slug: "promo", DestinationURL: "https://dest.example.org"})

	clicks := services.NewClickService(e.repo)
	for _, dev := range []string{"Mobile", "Desktop"} {
		if err := clicks.LogClick(context.Background(), domain.ClickEvent{LinkID: link.ID, Device: dev, IPAddress: dev}); err != nil {
			t.Fatal(err)
		}
	}

	rr := e.do("GET", "/api/v1/analytics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body)
	}
	report := decode[domain.Report](t, rr)
	if report.Stats.TotalClicks != 2 || len(report.Chart) != 7 {
		t.Errorf("unexpected report stats=%+v days=%d", report.Stats, len(report.Chart))
	}

	rr = e.do("GET", "/api/v1/analytics?filter=device:Mobile", nil)
	if report := decode[domain.Report](t, rr); report.Stats.TotalClicks != 1 {
		t.Errorf("filtered clicks = %d", report.Stats.TotalClicks)
	}

	rr = e.do("GET", "/api/v1/links/"+link.ID+"/analytics?from=2024-01-01&to=2024-01-03", nil)
	if report := decode[domain.Report](t, rr); report.Stats.TotalClicks != 0 || len(report.Chart) != 3 {
		t.Errorf("past range should be empty with 3 days, got %+v", report.Stats)
	}

	for _, path := range []string{
		"/api/v1/analytics?from=2024-02-01&to=2024-01-01",
		"/api/v1/analytics?from=yesterday",
		"/api/v1/analytics?filter=planet:mars",
	} {
		if rr := e.do("GET", path, nil); rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rr.Code)
		}
	}
	if rr := e.do("GET", "/api/v1/links/missing/analytics", nil); rr.Code != http.StatusNotFound {
		t.Errorf("unknown link: expected 404, got %d", rr.Code)
	}
}

func TestAnalyticsRangeLimit(t *testing.T) {
	e := newAPIEnv(t)
	d := e.verifiedDomain("go.example.com")
	link := e.createLink(domain.LinkInput{DomainID: d.ID, Slug: "promo", DestinationURL: "https://dest.example.org"})

	tests := []struct {
		name string
		path string
		want int
	}{
		{"full leap year", "/api/v1/analytics?from=2024-01-01&to=2024-12-31", http.StatusOK},
		{"one day over", "/api/v1/analytics?from=2023-12-31&to=2024-12-31", http.StatusBadRequest},
		{"four years", "/api/v1/analytics?from=2020-01-01&to=2024-01-01", http.StatusBadRequest},
		{"link report", "/api/v1/links/" + link.ID + "/analytics?from=1970-01-01&to=2024-01-01", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := e.do("GET", tt.path, nil); rr.Code != tt.want {
				t.Errorf("expected %d, got %d %s", tt.want, rr.Code, rr.Body)
			}
		})
	}

	rr := e.do("GET", "/api/v1/analytics?from=2024-01-01&to=2024-12-31", nil)
	if report := decode[domain.Report](t, rr); len(report.Chart) != 366 {
		t.Errorf("expected 366 chart days, got %d", len(report.Chart))
	}
}

func TestAnalyticsToggleFilters(t *testing.T) {
	e := newAPIEnv(t)
	d := e.verifiedDomain("go.example.com")
	link := e.createLink(domain.LinkInput{DomainID: d.ID, Slug: "promo", DestinationURL: "https://dest.example.org"})

	clicks := services.NewClickService(e.repo)
	for _, c := range []domain.ClickEvent{
		{Device: "Mobile", Country: "TH"},
		{Device: "Desktop", Country: "TH"},
		{Device: "Desktop", Country: "US"},
	} {
		c.LinkID = link.ID
		if err := clicks.LogClick(context.Background(), c); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name    string
		query   string
		clicks  int
		filters int
	}{
		{"toggle adds", "toggle=device:Mobile", 1, 1},
		{"toggle removes active", "filter=device:Mobile&toggle=device:Mobile", 3, 0},
		{"device replaces device", "filter=device:Mobile&toggle=device:Desktop", 2, 1},
		{"countries accumulate", "filter=country:TH&toggle=country:US", 3, 2},
		{"applied in order", "toggle=country:US&toggle=device:Desktop", 1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.do("GET", "/api/v1/analytics?"+tt.query, nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body)
			}
			report := decode[domain.Report](t, rr)
			if report.Stats.TotalClicks != tt.clicks || len(report.Filters) != tt.filters {
				t.Errorf("got clicks=%d filters=%v", report.Stats.TotalClicks, report.Filters)
			}
		})
	}

	if rr := e.do("GET", "/api/v1/analytics?toggle=device", nil); rr.Code != http.StatusBadRequest {
		t.Errorf("malformed toggle: expected 400, got %d", rr.Code)
	}
}

func TestProfileEndpoints(t *testing.T) {
	e := newAPIEnv(t)

	rr := e.do("GET", "/api/v1/profile", nil)
	p := decode[domain.Profile](t, rr)
	if p.Email != "owner@example.com" || p.Plan != domain.PlanFree {
		t.Errorf("unexpected profile %+v", p)
	}

	rr = e.do("PUT", "/api/v1/profile", map[string]string{"username": "owner", "plan": "business"})
	p = decode[domain.Profile](t, rr)
	if p.Username != "owner" || p.Plan != domain.PlanFree {
		t.Errorf("unexpected update %+v", p)
	}
}

func TestUnauthenticatedAPI(t *testing.T) {
	e := newAPIEnv(t)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/links", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	e.router.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("healthz: expected 200, got %d", rr.Code)
	}
}
