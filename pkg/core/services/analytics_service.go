package services

import (
	"context"
	"time"

	"github.com/wadjakorntonsri/loopylink/pkg/core/analytics"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

type AnalyticsService struct {
	links  ports.LinkRepository
	clicks ports.ClickRepository
	loc    *time.Location
	now    func() time.Time
}

func NewAnalyticsService(links ports.LinkRepository, clicks ports.ClickRepository, loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{links: links, clicks: clicks, loc: loc, now: time.Now}
}

func (s *AnalyticsService) Dashboard(ctx context.Context, userID string, r domain.DateRange, filters []domain.Filter) (*domain.Report, error) {
	links, err := s.links.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.report(ctx, links, r, filters)
}

func (s *AnalyticsService) LinkReport(ctx context.Context, userID, linkID string, r domain.DateRange) (*domain.Report, error) {
	link, err := s.links.GetByID(ctx, userID, linkID)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, domain.ErrNotFound
	}
	filters := []domain.Filter{{Type: domain.FilterLink, Value: link.ID}}
	return s.report(ctx, []domain.Link{*link}, r, filters)
}

func (s *AnalyticsService) report(ctx context.Context, links []domain.Link, r domain.DateRange, filters []domain.Filter) (*domain.Report, error) {
	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ID)
	}
	clicks, err := s.clicks.ListClicks(ctx, ids, r.From, r.To)
	if err != nil {
		return nil, err
	}

	report := analytics.Aggregate(analytics.Input{
		Links:    links,
		Clicks:   clicks,
		Range:    r,
		Filters:  filters,
		Now:      s.now(),
		Location: s.loc,
	})
	return &report, nil
}

var _ ports.AnalyticsService = (*AnalyticsService)(nil)
