package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type LinkService struct {
	repo     ports.LinkRepository
	domains  ports.DomainRepository
	profiles ports.ProfileRepository
	checker  ports.LinkChecker
	cache    ports.LinkCache
	now      func() time.Time
}

func NewLinkService(repo ports.LinkRepository, domains ports.DomainRepository, profiles ports.ProfileRepository,
	checker ports.LinkChecker, cache ports.LinkCache) *LinkService {
	return &LinkService{
		repo:     repo,
		domains:  domains,
		profiles: profiles,
		checker:  checker,
		cache:    cache,
		now:      time.Now,
	}
}

func validDestination(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func cleanTags(tags []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// usableDomain loads a domain the user owns and checks links may live on it.
func (s *LinkService) usableDomain(ctx context.Context, userID, domainID string) (*domain.Domain, error) {
	d, err := s.domains.GetDomain(ctx, userID, domainID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrNotFound
	}
	verified := d.Verified
	if d.IsGroup() {
		primary, err := s.domains.GetDomain(ctx, userID, *d.PrimaryDomainID)
		if err != nil {
			return nil, err
		}
		verified = primary != nil && primary.Verified
	}
	if !verified {
		return nil, domain.ErrDomainNotVerified
	}
	return d, nil
}

func (s *LinkService) slugFree(ctx context.Context, domainID, slug, exceptID string) error {
	existing, err := s.repo.GetBySlug(ctx, domainID, slug)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != exceptID {
		return domain.ErrSlugTaken
	}
	return nil
}

func (s *LinkService) checkLimit(ctx context.Context, userID string) error {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if profile == nil || profile.LinkLimit <= 0 {
		return nil
	}
	count, err := s.repo.Count(ctx, userID, domain.LinkFilter{})
	if err != nil {
		return err
	}
	if count >= int64(profile.LinkLimit) {
		return domain.ErrLinkLimitReached
	}
	return nil
}

func (s *LinkService) CreateLink(ctx context.Context, userID string, in domain.LinkInput) (*domain.LinkView, error) {
	if !validDestination(in.DestinationURL) {
		return nil, domain.ErrInvalidURL
	}
	if in.RedirectType == "" {
		in.RedirectType = domain.RedirectTemporary
	}
	if !in.RedirectType.Valid() {
		return nil, domain.ErrInvalidRedirect
	}
	if in.Status == "" {
		in.Status = domain.StatusActive
	}
	if !in.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if in.EPC != nil && *in.EPC < 0 {
		return nil, domain.ErrInvalidEPC
	}

	d, err := s.usableDomain(ctx, userID, in.DomainID)
	if err != nil {
		return nil, err
	}
	if err := s.checkLimit(ctx, userID); err != nil {
		return nil, err
	}

	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		if slug, err = s.freeSlug(ctx, d.ID); err != nil {
			return nil, err
		}
	} else {
		if !slugPattern.MatchString(slug) {
			return nil, domain.ErrInvalidSlug
		}
		if err := s.slugFree(ctx, d.ID, slug, ""); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	link := &domain.Link{
		ID:             uuid.NewString(),
		UserID:         userID,
		DomainID:       d.ID,
		Slug:           slug,
		DestinationURL: strings.TrimSpace(in.DestinationURL),
		Tags:           cleanTags(in.Tags),
		RedirectType:   in.RedirectType,
		Status:         in.Status,
		Note:           in.Note,
		ExpireAt:       in.ExpireAt,
		UTMParams:      in.UTMParams,
		CreatedAt:      now,
		UpdatedAt:      now,
		Domain:         d.Domain,
	}
	if in.EPC != nil {
		link.EPC = *in.EPC
	}

	if err := s.repo.Create(ctx, link); err != nil {
		return nil, err
	}
	log.Info().Str("link_id", link.ID).Str("url", link.FullURL()).Msg("Link created")
	view := domain.NewLinkView(*link, now)
	return &view, nil
}

func (s *LinkService) owned(ctx context.Context, userID, id string) (*domain.Link, error) {
	link, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, domain.ErrNotFound
	}
	return link, nil
}

func (s *LinkService) GetLink(ctx context.Context, userID, id string) (*domain.LinkView, error) {
	link, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	view := domain.NewLinkView(*link, s.now())
	return &view, nil
}

// UpdateLink applies the non-empty fields of in. Note and expiry are reset
// through ClearNote and ClearExpireAt.
func (s *LinkService) UpdateLink(ctx context.Context, userID, id string, in domain.LinkInput) (*domain.LinkView, error) {
	link, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	oldKey := domain.CacheKey(link.Domain, link.Slug)

	if in.DomainID != "" && in.DomainID != link.DomainID {
		d, err := s.usableDomain(ctx, userID, in.DomainID)
		if err != nil {
			return nil, err
		}
		link.DomainID = d.ID
		link.Domain = d.Domain
	}
	if slug := strings.TrimSpace(in.Slug); slug != "" {
		if !slugPattern.MatchString(slug) {
			return nil, domain.ErrInvalidSlug
		}
		link.Slug = slug
	}
	if err := s.slugFree(ctx, link.DomainID, link.Slug, link.ID); err != nil {
		return nil, err
	}
	if in.DestinationURL != "" {
		if !validDestination(in.DestinationURL) {
			return nil, domain.ErrInvalidURL
		}
		link.DestinationURL = strings.TrimSpace(in.DestinationURL)
	}
	if in.RedirectType != "" {
		if !in.RedirectType.Valid() {
			return nil, domain.ErrInvalidRedirect
		}
		link.RedirectType = in.RedirectType
	}
	if in.Status != "" {
		if !in.Status.Valid() {
			return nil, domain.ErrInvalidStatus
		}
		link.Status = in.Status
	}
	if in.EPC != nil {
		if *in.EPC < 0 {
			return nil, domain.ErrInvalidEPC
		}
		link.EPC = *in.EPC
	}
	if in.Tags != nil {
		link.Tags = cleanTags(in.Tags)
	}
	switch {
	case in.ClearNote:
		link.Note = ""
	case in.Note != "":
		link.Note = in.Note
	}
	switch {
	case in.ClearExpireAt:
		link.ExpireAt = nil
	case in.ExpireAt != nil:
		link.ExpireAt = in.ExpireAt
	}
	if in.UTMParams != nil {
		link.UTMParams = in.UTMParams
	}

	now := s.now().UTC()
	link.UpdatedAt = now
	if err := s.repo.Update(ctx, link); err != nil {
		return nil, err
	}
	s.cache.Delete(ctx, oldKey)

	view := domain.NewLinkView(*link, now)
	return &view, nil
}

func (s *LinkService) UpdateStatus(ctx context.Context, userID, id string, status domain.LinkStatus) (*domain.LinkView, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	link, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	link.Status = status
	link.UpdatedAt = now
	if err := s.repo.Update(ctx, link); err != nil {
		return nil, err
	}
	s.cache.Delete(ctx, domain.CacheKey(link.Domain, link.Slug))

	view := domain.NewLinkView(*link, now)
	return &view, nil
}

func (s *LinkService) DeleteLink(ctx context.Context, userID, id string) error {
	link, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.cache.Delete(ctx, domain.CacheKey(link.Domain, link.Slug))
	return nil
}

func (s *LinkService) ListLinks(ctx context.Context, userID string, page, limit int, filter domain.LinkFilter) ([]domain.LinkView, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	links, err := s.repo.List(ctx, userID, limit, offset, filter)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.repo.Count(ctx, userID, filter)
	if err != nil {
		return nil, 0, err
	}

	now := s.now()
	views := make([]domain.LinkView, 0, len(links))
	for _, l := range links {
		views = append(views, domain.NewLinkView(l, now))
	}
	return views, count, nil
}

func (s *LinkService) ListTags(ctx context.Context, userID string) ([]string, error) {
	return s.repo.ListTags(ctx, userID)
}

// CheckLink asks the health-check function about the link's destination and
// stores the verdict. The function's JSON answer is returned as is.
func (s *LinkService) CheckLink(ctx context.Context, userID, id string) (json.RawMessage, error) {
	link, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	result, raw, err := s.checker.Check(ctx, link.DestinationURL, link.ID)
	if err != nil {
		log.Error().Err(err).Str("link_id", link.ID).Msg("Link check failed")
		return nil, err
	}

	if err := s.repo.SetBroken(ctx, link.ID, result.Broken, s.now().UTC()); err != nil {
		return nil, err
	}
	s.cache.Delete(ctx, domain.CacheKey(link.Domain, link.Slug))
	return raw, nil
}

// Resolve maps a request host and path to a link. The path is "/slug" on a
// primary domain or "/group/slug" on a group; "/r/<domain>/..." names the
// domain explicitly. The status is not checked here.
func (s *LinkService) Resolve(ctx context.Context, host, path string) (*domain.Resolved, error) {
	host = strings.ToLower(host)
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	path = strings.Trim(path, "/")
	if rest, ok := strings.CutPrefix(path, "r/"); ok {
		host, path, _ = strings.Cut(rest, "/")
		host = strings.ToLower(host)
	}

	parts := strings.Split(path, "/")
	var name, slug string
	switch len(parts) {
	case 1:
		name, slug = host, parts[0]
	case 2:
		name, slug = host+"/"+strings.ToLower(parts[0]), parts[1]
	default:
		return nil, domain.ErrNotFound
	}
	if host == "" || !slugPattern.MatchString(slug) {
		return nil, domain.ErrNotFound
	}

	key := domain.CacheKey(name, slug)
	if r, ok := s.cache.Get(ctx, key); ok {
		return r, nil
	}

	d, err := s.domains.GetDomainByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrNotFound
	}
	link, err := s.repo.GetBySlug(ctx, d.ID, slug)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, domain.ErrNotFound
	}

	r := &domain.Resolved{
		LinkID:         link.ID,
		DestinationURL: link.DestinationURL,
		RedirectType:   link.RedirectType,
		Status:         link.Status,
		ExpireAt:       link.ExpireAt,
		IsBroken:       link.IsBroken,
	}
	s.cache.Set(ctx, key, r)
	return r, nil
}

func (s *LinkService) freeSlug(ctx context.Context, domainID string) (string, error) {
	for i := 0; i < 5; i++ {
		code, err := generateShortCode(6)
		if err != nil {
			return "", err
		}
		existing, err := s.repo.GetBySlug(ctx, domainID, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", domain.ErrSlugTaken
}

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateShortCode(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}

var _ ports.LinkService = (*LinkService)(nil)
