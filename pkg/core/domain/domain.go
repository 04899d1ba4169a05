package domain

import (
	"strings"
	"time"
)

// VerificationPrefix starts every token a user publishes to prove domain ownership.
const VerificationPrefix = "loopy-verification="

// WellKnownPath is fetched over https for FILE verification.
const WellKnownPath = "/.well-known/loopy-verification.txt"

type VerificationMethod string

const (
	VerifyTXT  VerificationMethod = "TXT"
	VerifyFile VerificationMethod = "FILE"
	VerifyAuto VerificationMethod = ""
)

// Domain is either a primary (custom) domain or a group nested under one.
// Groups are stored as "primary.example/group".
type Domain struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	Domain             string             `json:"domain"`
	IsPrimary          bool               `json:"is_primary"`
	PrimaryDomainID    *string            `json:"primary_domain_id,omitempty"`
	Verified           bool               `json:"verified"`
	VerifiedAt         *time.Time         `json:"verified_at,omitempty"`
	VerificationMethod VerificationMethod `json:"verification_method,omitempty"`
	TXTRecordValue     string             `json:"txt_record_value"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`

	Groups []Domain `json:"groups,omitempty"`
}

// IsGroup reports whether d hangs under a primary domain.
func (d *Domain) IsGroup() bool {
	return !d.IsPrimary && d.PrimaryDomainID != nil
}

// Host is the DNS name that serves d.
func (d *Domain) Host() string {
	host, _, _ := strings.Cut(d.Domain, "/")
	return host
}

// GroupName is the path segment of a group, empty for primaries.
func (d *Domain) GroupName() string {
	_, group, _ := strings.Cut(d.Domain, "/")
	return group
}

// VerificationResult is returned by every verification attempt. A failed
// attempt is not an error: Reason explains what did not match.
type VerificationResult struct {
	Success bool               `json:"success"`
	Method  VerificationMethod `json:"method,omitempty"`
	Reason  string             `json:"reason,omitempty"`
	Domain  *Domain            `json:"domain,omitempty"`
}

const (
	ReasonDNSLookupFailed = "DNS lookup failed"
	ReasonTXTNotFound     = "TXT value not found"
	ReasonFileNotFound    = "File not found or inaccessible"
	ReasonFileMismatch    = "File content does not match"
	ReasonFileUnreachable = "Failed to access verification file"
)
