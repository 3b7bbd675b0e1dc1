package models

import "time"

// Subscription mirrors the user's Stripe subscription state locally. The
// source of truth is Stripe; rows here are updated from webhook events only.
type Subscription struct {
	ID                   int64      `json:"id,omitempty"`
	UserID               int64      `json:"-"`
	StripeCustomerID     string     `json:"stripe_customer_id"`
	StripeSubscriptionID string     `json:"stripe_subscription_id,omitempty"`
	Status               string     `json:"status"` // Stripe status string, e.g. "active", "past_due", "canceled"
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	CreatedAt            time.Time  `json:"created_at,omitempty"`
	UpdatedAt            time.Time  `json:"updated_at,omitempty"`
}

// IsActive reports whether the subscription currently grants access.
func (s *Subscription) IsActive() bool {
	return s.Status == "active" || s.Status == "trialing"
}
