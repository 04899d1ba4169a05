package domain

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type Plan string

const (
	PlanFree     Plan = "free"
	PlanPro      Plan = "pro"
	PlanBusiness Plan = "business"
)

// Profile is the account record; its ID is the session subject.
type Profile struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	FirstName            string     `json:"first_name"`
	LastName             string     `json:"last_name"`
	Username             string     `json:"username"`
	ProfileImageURL      string     `json:"profile_image_url"`
	Role                 Role       `json:"role"`
	LinkLimit            int        `json:"link_limit"`
	ClickLimit           int        `json:"click_limit"`
	RetentionLimit       int        `json:"retention_limit"`
	Plan                 Plan       `json:"plan"`
	StripeCustomerID     string     `json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID string     `json:"stripe_subscription_id,omitempty"`
	TrialEndsAt          *time.Time `json:"trial_ends_at,omitempty"`
	BillingStatus        string     `json:"billing_status,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// ProfileUpdate holds the fields a user may change themselves.
type ProfileUpdate struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Username        *string `json:"username"`
	ProfileImageURL *string `json:"profile_image_url"`
}
