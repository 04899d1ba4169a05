package domain

import (
	"fmt"
	"time"
)

type LinkStatus string

const (
	StatusActive   LinkStatus = "active"
	StatusDraft    LinkStatus = "draft"
	StatusArchived LinkStatus = "archived"
	// StatusExpired is only ever derived from ExpireAt, never stored.
	StatusExpired LinkStatus = "expired"
)

// Valid reports whether s can be written to storage.
func (s LinkStatus) Valid() bool {
	switch s {
	case StatusActive, StatusDraft, StatusArchived:
		return true
	}
	return false
}

type RedirectType string

const (
	RedirectPermanent RedirectType = "301"
	RedirectTemporary RedirectType = "307"
)

func (r RedirectType) Valid() bool {
	return r == RedirectPermanent || r == RedirectTemporary
}

// Link represents a short link on one of the user's domains
type Link struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	DomainID          string            `json:"domain_id"`
	Slug              string            `json:"slug"`
	DestinationURL    string            `json:"destination_url"`
	Tags              []string          `json:"tags"` // Handled as JSON text in SQL
	RedirectType      RedirectType      `json:"redirect_type"`
	Status            LinkStatus        `json:"status"`
	Note              string            `json:"note,omitempty"`
	EPC               float64           `json:"epc"`
	ExpireAt          *time.Time        `json:"expire_at,omitempty"`
	IsBroken          bool              `json:"is_broken"`
	LastCheckedBroken *time.Time        `json:"last_checked_broken,omitempty"`
	UTMParams         map[string]string `json:"utm_params,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`

	// Joined from domains when listing.
	Domain string `json:"domain,omitempty"`
}

// EffectiveStatus derives "expired" at read time; the stored status is left untouched.
func (l *Link) EffectiveStatus(now time.Time) LinkStatus {
	if l.IsExpired(now) {
		return StatusExpired
	}
	return l.Status
}

func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpireAt != nil && !l.ExpireAt.After(now)
}

// FullURL is the public short URL, e.g. https://go.example.com/promo.
func (l *Link) FullURL() string {
	return "https://" + l.Domain + "/" + l.Slug
}

// LinkView is the API shape of a link.
type LinkView struct {
	Link
	EffectiveStatus LinkStatus `json:"effective_status"`
	FullURL         string     `json:"full_url"`
}

func NewLinkView(l Link, now time.Time) LinkView {
	return LinkView{Link: l, EffectiveStatus: l.EffectiveStatus(now), FullURL: l.FullURL()}
}

// LinkInput carries user-editable link fields for create and update.
type LinkInput struct {
	DomainID       string            `json:"domain_id"`
	Slug           string            `json:"slug"`
	DestinationURL string            `json:"destination_url"`
	Tags           []string          `json:"tags"`
	RedirectType   RedirectType      `json:"redirect_type"`
	Status         LinkStatus        `json:"status"`
	Note           string            `json:"note"`
	EPC            *float64          `json:"epc"`
	ExpireAt       *time.Time        `json:"expire_at"`
	UTMParams      map[string]string `json:"utm_params"`

	// On update, an explicit null (or "" for note) in the request body sets these.
	ClearNote     bool `json:"clear_note,omitempty"`
	ClearExpireAt bool `json:"clear_expire_at,omitempty"`
}

// LinkFilter narrows link listings.
type LinkFilter struct {
	Search   string
	Tag      string
	Status   LinkStatus
	DomainID string
}

// Resolved is what the redirect path needs, small enough to cache.
type Resolved struct {
	LinkID         string       `json:"link_id"`
	DestinationURL string       `json:"destination_url"`
	RedirectType   RedirectType `json:"redirect_type"`
	Status         LinkStatus   `json:"status"`
	ExpireAt       *time.Time   `json:"expire_at,omitempty"`
	IsBroken       bool         `json:"is_broken"`
}

func (r *Resolved) IsExpired(now time.Time) bool {
	return r.ExpireAt != nil && !r.ExpireAt.After(now)
}

// HealthCheck is the result of probing a link's destination.
type HealthCheck struct {
	URL       string    `json:"url"`
	LinkID    string    `json:"linkId"`
	Broken    bool      `json:"broken"`
	Status    int       `json:"status,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// CheckFailedError means the remote health-check function did not answer with 2xx.
type CheckFailedError struct {
	Status  int
	Details string
}

func (e *CheckFailedError) Error() string {
	return fmt.Sprintf("link check failed with status %d: %s", e.Status, e.Details)
}

// CacheKey identifies a short link in the resolution cache.
func CacheKey(domainName, slug string) string {
	return domainName + "/" + slug
}
