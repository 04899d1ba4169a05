package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
)

// DomainRepository defines storage operations for domains and groups.
// Getters return nil, nil when nothing matches.
type DomainRepository interface {
	CreateDomain(ctx context.Context, d *domain.Domain) error
	GetDomain(ctx context.Context, userID, id string) (*domain.Domain, error)
	GetDomainByName(ctx context.Context, name string) (*domain.Domain, error)
	FindUserDomain(ctx context.Context, userID, name string) (*domain.Domain, error) // case-insensitive
	ListDomains(ctx context.Context, userID string) ([]domain.Domain, error)
	MarkVerified(ctx context.Context, id string, method domain.VerificationMethod, at time.Time) error
	DeleteDomain(ctx context.Context, id string) error
	CountDomainLinks(ctx context.Context, domainID string) (int64, error)
	CountGroups(ctx context.Context, primaryID string) (int64, error)
}

// LinkRepository defines storage operations for links
type LinkRepository interface {
	Create(ctx context.Context, link *domain.Link) error
	GetByID(ctx context.Context, userID, id string) (*domain.Link, error)
	GetBySlug(ctx context.Context, domainID, slug string) (*domain.Link, error)
	Update(ctx context.Context, link *domain.Link) error
	SetBroken(ctx context.Context, id string, broken bool, checkedAt time.Time) error
	Delete(ctx context.Context, userID, id string) error
	List(ctx context.Context, userID string, limit, offset int, filter domain.LinkFilter) ([]domain.Link, error)
	Count(ctx context.Context, userID string, filter domain.LinkFilter) (int64, error)
	ListAll(ctx context.Context, userID string) ([]domain.Link, error)
	ListTags(ctx context.Context, userID string) ([]string, error)
}

// ClickRepository stores raw click events.
type ClickRepository interface {
	RecordClick(ctx context.Context, click *domain.Click) error
	ListClicks(ctx context.Context, linkIDs []string, from, to time.Time) ([]domain.Click, error)
}

type ProfileRepository interface {
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error)
	CreateProfile(ctx context.Context, p *domain.Profile) error
	UpdateProfile(ctx context.Context, p *domain.Profile) error
}

// Repository is the full store used by the server.
type Repository interface {
	DomainRepository
	LinkRepository
	ClickRepository
	ProfileRepository
	Ping(ctx context.Context) error
}

// TXTResolver looks up DNS TXT records; *net.Resolver satisfies it.
type TXTResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// WellKnownFetcher retrieves the verification file served by a domain.
type WellKnownFetcher interface {
	Fetch(ctx context.Context, host string) (status int, body string, err error)
}

// LinkChecker asks the health-check function whether a destination is broken.
// The raw response is returned alongside the decoded result.
type LinkChecker interface {
	Check(ctx context.Context, url, linkID string) (*domain.HealthCheck, json.RawMessage, error)
}

// LinkProber requests a destination directly and reports whether it is broken.
type LinkProber interface {
	Probe(ctx context.Context, url, linkID string) domain.HealthCheck
}

// LinkCache caches redirect resolutions keyed by "domain/slug".
type LinkCache interface {
	Get(ctx context.Context, key string) (*domain.Resolved, bool)
	Set(ctx context.Context, key string, r *domain.Resolved)
	Delete(ctx context.Context, key string)
	Close() error
}

// DomainService defines business logic for custom domains
type DomainService interface {
	AddDomain(ctx context.Context, userID, name string) (*domain.Domain, error)
	CreateGroup(ctx context.Context, userID, primaryID, name string) (*domain.Domain, error)
	ListDomains(ctx context.Context, userID string) ([]domain.Domain, error)
	VerifyDomain(ctx context.Context, userID, domainID string, method domain.VerificationMethod) (*domain.VerificationResult, error)
	DeleteDomain(ctx context.Context, userID, domainID string) error
}

// LinkService defines the business logic operations
type LinkService interface {
	CreateLink(ctx context.Context, userID string, in domain.LinkInput) (*domain.LinkView, error)
	GetLink(ctx context.Context, userID, id string) (*domain.LinkView, error)
	UpdateLink(ctx context.Context, userID, id string, in domain.LinkInput) (*domain.LinkView, error)
	UpdateStatus(ctx context.Context, userID, id string, status domain.LinkStatus) (*domain.LinkView, error)
	DeleteLink(ctx context.Context, userID, id string) error
	ListLinks(ctx context.Context, userID string, page, limit int, filter domain.LinkFilter) ([]domain.LinkView, int64, error)
	ListTags(ctx context.Context, userID string) ([]string, error)
	CheckLink(ctx context.Context, userID, id string) (json.RawMessage, error)
	Resolve(ctx context.Context, host, path string) (*domain.Resolved, error)
}

type AnalyticsService interface {
	Dashboard(ctx context.Context, userID string, r domain.DateRange, filters []domain.Filter) (*domain.Report, error)
	LinkReport(ctx context.Context, userID, linkID string, r domain.DateRange) (*domain.Report, error)
}

type ClickService interface {
	LogClick(ctx context.Context, event domain.ClickEvent) error
	RecordVisit(ctx context.Context, r *domain.Resolved, visit domain.Visit) error
}

type ProfileService interface {
	LoginProfile(ctx context.Context, email, fullName, pictureURL string) (*domain.Profile, error)
	GetProfile(ctx context.Context, id string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.Profile, error)
}
