package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

type ProfileService struct {
	repo ports.ProfileRepository
	now  func() time.Time
}

func NewProfileService(repo ports.ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo, now: time.Now}
}

// LoginProfile returns the profile of email, creating a free one on first login.
func (s *ProfileService) LoginProfile(ctx context.Context, email, fullName, pictureURL string) (*domain.Profile, error) {
	existing, err := s.repo.GetProfileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	first, last, _ := strings.Cut(strings.TrimSpace(fullName), " ")
	username, _, _ := strings.Cut(email, "@")
	now := s.now().UTC()
	p := &domain.Profile{
		ID:              uuid.NewString(),
		Email:           email,
		FirstName:       first,
		LastName:        strings.TrimSpace(last),
		Username:        username,
		ProfileImageURL: pictureURL,
		Role:            domain.RoleUser,
		Plan:            domain.PlanFree,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	log.Info().Str("email", email).Str("profile_id", p.ID).Msg("Profile created")
	return p, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	p, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.FirstName != nil {
		p.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		p.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.Username != nil {
		p.Username = strings.TrimSpace(*upd.Username)
	}
	if upd.ProfileImageURL != nil {
		p.ProfileImageURL = strings.TrimSpace(*upd.ProfileImageURL)
	}
	p.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

var _ ports.ProfileService = (*ProfileService)(nil)
