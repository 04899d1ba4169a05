package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
)

const profileColumns = `id, email, first_name, last_name, username, profile_image_url, role, link_limit, click_limit,
	retention_limit, plan, stripe_customer_id, stripe_subscription_id, trial_ends_at, billing_status, created_at, updated_at`

func (r *SQLRepository) getProfile(ctx context.Context, where string, arg string) (*domain.Profile, error) {
	var p domain.Profile
	var role, plan string
	var trialEndsAt sql.NullTime

	err := r.queryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE `+where, arg).Scan(
		&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Username, &p.ProfileImageURL, &role, &p.LinkLimit, &p.ClickLimit,
		&p.RetentionLimit, &plan, &p.StripeCustomerID, &p.StripeSubscriptionID, &trialEndsAt, &p.BillingStatus,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.Role = domain.Role(role)
	p.Plan = domain.Plan(plan)
	if trialEndsAt.Valid {
		p.TrialEndsAt = &trialEndsAt.Time
	}
	return &p, nil
}

func (r *SQLRepository) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	return r.getProfile(ctx, `id = ?`, id)
}

func (r *SQLRepository) GetProfileByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.getProfile(ctx, `LOWER(email) = LOWER(?)`, email)
}

func (r *SQLRepository) CreateProfile(ctx context.Context, p *domain.Profile) error {
	query := `INSERT INTO profiles (` + profileColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.exec(ctx, query, p.ID, p.Email, p.FirstName, p.LastName, p.Username, p.ProfileImageURL, string(p.Role),
		p.LinkLimit, p.ClickLimit, p.RetentionLimit, string(p.Plan), p.StripeCustomerID, p.StripeSubscriptionID,
		nullTime(p.TrialEndsAt), p.BillingStatus, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	return err
}

// UpdateProfile writes the user-editable fields only; plan and billing are managed elsewhere.
func (r *SQLRepository) UpdateProfile(ctx context.Context, p *domain.Profile) error {
	query := `UPDATE profiles SET first_name = ?, last_name = ?, username = ?, profile_image_url = ?, updated_at = ?
			  WHERE id = ?`
	res, err := r.exec(ctx, query, p.FirstName, p.LastName, p.Username, p.ProfileImageURL, p.UpdatedAt.UTC(), p.ID)
	if err != nil {
		return err
	}
	return expectRow(res)
}
