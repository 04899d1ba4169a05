package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

var (
	hostLabel = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	tldLabel  = regexp.MustCompile(`^[a-z]{2,63}$`)
	groupName = regexp.MustCompile(`^[a-z0-9-]{1,63}$`)
)

type DomainService struct {
	repo     ports.DomainRepository
	resolver ports.TXTResolver
	fetcher  ports.WellKnownFetcher
	now      func() time.Time
}

func NewDomainService(repo ports.DomainRepository, resolver ports.TXTResolver, fetcher ports.WellKnownFetcher) *DomainService {
	return &DomainService{repo: repo, resolver: resolver, fetcher: fetcher, now: time.Now}
}

// NormalizeDomain lowercases and validates a user supplied hostname.
func NormalizeDomain(input string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(input))
	if strings.Contains(name, "http://") || strings.Contains(name, "https://") || strings.HasPrefix(name, "www.") {
		return "", domain.ErrInvalidDomain
	}
	name = strings.TrimRight(name, "/")

	labels := strings.Split(name, ".")
	if len(labels) < 2 || len(name) > 253 {
		return "", domain.ErrInvalidDomain
	}
	for _, l := range labels[:len(labels)-1] {
		if !hostLabel.MatchString(l) {
			return "", domain.ErrInvalidDomain
		}
	}
	if !tldLabel.MatchString(labels[len(labels)-1]) {
		return "", domain.ErrInvalidDomain
	}
	return name, nil
}

func newVerificationToken() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return domain.VerificationPrefix + hex.EncodeToString(b), nil
}

func (s *DomainService) AddDomain(ctx context.Context, userID, input string) (*domain.Domain, error) {
	name, err := NormalizeDomain(input)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindUserDomain(ctx, userID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDomainExists
	}

	token, err := newVerificationToken()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	d := &domain.Domain{
		ID:             uuid.NewString(),
		UserID:         userID,
		Domain:         name,
		IsPrimary:      true,
		TXTRecordValue: token,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateDomain(ctx, d); err != nil {
		return nil, err
	}
	log.Info().Str("user_id", userID).Str("domain", name).Msg("Domain added")
	return d, nil
}

func (s *DomainService) CreateGroup(ctx context.Context, userID, primaryID, name string) (*domain.Domain, error) {
	primary, err := s.repo.GetDomain(ctx, userID, primaryID)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		return nil, domain.ErrNotFound
	}
	if !primary.IsPrimary {
		return nil, domain.ErrNotPrimary
	}

	name = strings.ToLower(strings.TrimSpace(name))
	if !groupName.MatchString(name) {
		return nil, domain.ErrInvalidGroupName
	}

	full := primary.Domain + "/" + name
	existing, err := s.repo.FindUserDomain(ctx, userID, full)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDomainExists
	}

	now := s.now().UTC()
	g := &domain.Domain{
		ID:              uuid.NewString(),
		UserID:          userID,
		Domain:          full,
		PrimaryDomainID: &primary.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateDomain(ctx, g); err != nil {
		return nil, err
	}
	g.Verified = primary.Verified
	g.VerifiedAt = primary.VerifiedAt
	return g, nil
}

// ListDomains returns primaries, each carrying its groups. Orphaned groups
// are listed at the top level.
func (s *DomainService) ListDomains(ctx context.Context, userID string) ([]domain.Domain, error) {
	all, err := s.repo.ListDomains(ctx, userID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]int)
	var out []domain.Domain
	for _, d := range all {
		if !d.IsGroup() {
			byID[d.ID] = len(out)
			out = append(out, d)
		}
	}
	for _, d := range all {
		if !d.IsGroup() {
			continue
		}
		idx, ok := byID[*d.PrimaryDomainID]
		if !ok {
			out = append(out, d)
			continue
		}
		p := &out[idx]
		d.Verified = p.Verified
		d.VerifiedAt = p.VerifiedAt
		p.Groups = append(p.Groups, d)
	}
	for i := range out {
		sort.Slice(out[i].Groups, func(a, b int) bool {
			return out[i].Groups[a].Domain < out[i].Groups[b].Domain
		})
	}
	return out, nil
}

// VerifyDomain re-checks ownership every time it is called, even for domains
// that are already verified.
func (s *DomainService) VerifyDomain(ctx context.Context, userID, domainID string, method domain.VerificationMethod) (*domain.VerificationResult, error) {
	d, err := s.repo.GetDomain(ctx, userID, domainID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrNotFound
	}
	if d.IsGroup() {
		return nil, domain.ErrGroupVerification
	}

	var result domain.VerificationResult
	switch method {
	case domain.VerifyTXT:
		result = s.checkTXT(ctx, d)
	case domain.VerifyFile:
		result = s.checkFile(ctx, d)
	case domain.VerifyAuto:
		result = s.checkTXT(ctx, d)
		if !result.Success {
			result = s.checkFile(ctx, d)
		}
	default:
		return nil, domain.ErrInvalidVerifyMode
	}

	if !result.Success {
		log.Info().Str("domain", d.Domain).Str("reason", result.Reason).Msg("Domain verification failed")
		result.Domain = d
		return &result, nil
	}

	now := s.now().UTC()
	if err := s.repo.MarkVerified(ctx, d.ID, result.Method, now); err != nil {
		return nil, err
	}
	d.Verified = true
	d.VerifiedAt = &now
	d.VerificationMethod = result.Method
	d.UpdatedAt = now
	result.Domain = d
	log.Info().Str("domain", d.Domain).Str("method", string(result.Method)).Msg("Domain verified")
	return &result, nil
}

func (s *DomainService) checkTXT(ctx context.Context, d *domain.Domain) domain.VerificationResult {
	records, err := s.resolver.LookupTXT(ctx, d.Host())
	if err != nil {
		return domain.VerificationResult{Method: domain.VerifyTXT, Reason: domain.ReasonDNSLookupFailed}
	}
	for _, rec := range records {
		if strings.TrimSpace(rec) == d.TXTRecordValue {
			return domain.VerificationResult{Success: true, Method: domain.VerifyTXT}
		}
	}
	return domain.VerificationResult{Method: domain.VerifyTXT, Reason: domain.ReasonTXTNotFound}
}

func (s *DomainService) checkFile(ctx context.Context, d *domain.Domain) domain.VerificationResult {
	status, body, err := s.fetcher.Fetch(ctx, d.Host())
	switch {
	case err != nil:
		return domain.VerificationResult{Method: domain.VerifyFile, Reason: domain.ReasonFileUnreachable}
	case status < 200 || status > 299:
		return domain.VerificationResult{Method: domain.VerifyFile, Reason: domain.ReasonFileNotFound}
	case strings.TrimSpace(body) != d.TXTRecordValue:
		return domain.VerificationResult{Method: domain.VerifyFile, Reason: domain.ReasonFileMismatch}
	}
	return domain.VerificationResult{Success: true, Method: domain.VerifyFile}
}

func (s *DomainService) DeleteDomain(ctx context.Context, userID, domainID string) error {
	d, err := s.repo.GetDomain(ctx, userID, domainID)
	if err != nil {
		return err
	}
	if d == nil {
		return domain.ErrNotFound
	}

	links, err := s.repo.CountDomainLinks(ctx, d.ID)
	if err != nil {
		return err
	}
	if links > 0 {
		return domain.ErrDomainInUse
	}
	groups, err := s.repo.CountGroups(ctx, d.ID)
	if err != nil {
		return err
	}
	if groups > 0 {
		return domain.ErrDomainHasGroups
	}
	return s.repo.DeleteDomain(ctx, d.ID)
}

var _ ports.DomainService = (*DomainService)(nil)
