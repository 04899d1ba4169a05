package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/core/useragent"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

type ClickService struct {
	repo ports.ClickRepository
	now  func() time.Time
}

func NewClickService(repo ports.ClickRepository) *ClickService {
	return &ClickService{repo: repo, now: time.Now}
}

// LogClick stores an ingested event as sent; the timestamp is assigned here.
func (s *ClickService) LogClick(ctx context.Context, e domain.ClickEvent) error {
	if e.LinkID == "" {
		return domain.ErrMissingLinkID
	}
	return s.repo.RecordClick(ctx, &domain.Click{
		ID:        uuid.NewString(),
		LinkID:    e.LinkID,
		Timestamp: s.now().UTC(),
		UserAgent: e.UserAgent,
		Referrer:  e.Referrer,
		IPAddress: e.IPAddress,
		Country:   e.Country,
		City:      e.City,
		Device:    e.Device,
		Browser:   e.Browser,
		OS:        e.OS,
		IsBroken:  e.IsBroken,
	})
}

// RecordVisit turns a redirect request into a click row.
func (s *ClickService) RecordVisit(ctx context.Context, r *domain.Resolved, v domain.Visit) error {
	ua := useragent.Parse(v.UserAgent)
	return s.repo.RecordClick(ctx, &domain.Click{
		ID:        uuid.NewString(),
		LinkID:    r.LinkID,
		Timestamp: s.now().UTC(),
		UserAgent: v.UserAgent,
		Referrer:  v.Referrer,
		IPAddress: v.IP,
		Country:   v.Country,
		City:      v.City,
		Device:    ua.Device,
		Browser:   ua.Browser,
		OS:        ua.OS,
		IsBroken:  r.IsBroken,
	})
}

var _ ports.ClickService = (*ClickService)(nil)
