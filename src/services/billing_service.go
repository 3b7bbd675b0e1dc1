// backend/src/services/billing_service.go
package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	portalsession "github.com/stripe/stripe-go/v76/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/customer"
	"github.com/stripe/stripe-go/v76/webhook"
	"github.com/thucosta0/financepro/backend/src/config"
	"github.com/thucosta0/financepro/backend/src/logger"
	"github.com/thucosta0/financepro/backend/src/models"
)

// billingServiceImpl keeps a local mirror of each user's Stripe subscription.
// Stripe is the source of truth; local rows change only through webhooks.
type billingServiceImpl struct {
	db *sql.DB
}

func NewBillingService(db *sql.DB) BillingService {
	stripe.Key = config.Cfg.StripeSecretKey
	return &billingServiceImpl{db: db}
}

// ensureCustomer returns the user's Stripe customer id, creating the Stripe
// customer and the local subscription row on first use.
func (s *billingServiceImpl) ensureCustomer(userID int64, email string) (string, error) {
	var customerID string
	err := s.db.QueryRow(`SELECT stripe_customer_id FROM subscriptions WHERE user_id = ?`, userID).Scan(&customerID)
	if err == nil {
		return customerID, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("looking up subscription: %w", err)
	}

	cust, err := customer.New(&stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			"financepro_user_id": fmt.Sprintf("%d", userID),
		},
	})
	if err != nil {
		return "", fmt.Errorf("creating stripe customer: %w", err)
	}

	now := time.Now()
	_, err = s.db.Exec(`
		INSERT INTO subscriptions (user_id, stripe_customer_id, status, created_at, updated_at)
		VALUES (?, ?, 'inactive', ?, ?)`, userID, cust.ID, now, now)
	if err != nil {
		return "", fmt.Errorf("inserting subscription row: %w", err)
	}
	logger.L.Info("Stripe customer created", "userID", userID, "customerID", cust.ID)
	return cust.ID, nil
}

func (s *billingServiceImpl) CreateCheckoutSession(userID int64, email string) (string, error) {
	customerID, err := s.ensureCustomer(userID, email)
	if err != nil {
		return "", err
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(config.Cfg.StripePriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(config.Cfg.FrontendBaseURL + "/billing?status=success"),
		CancelURL:  stripe.String(config.Cfg.FrontendBaseURL + "/billing?status=canceled"),
	}
	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("creating checkout session: %w", err)
	}
	return sess.URL, nil
}

func (s *billingServiceImpl) CreatePortalSession(userID int64) (string, error) {
	var customerID string
	err := s.db.QueryRow(`SELECT stripe_customer_id FROM subscriptions WHERE user_id = ?`, userID).Scan(&customerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("looking up subscription: %w", err)
	}

	sess, err := portalsession.New(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(config.Cfg.FrontendBaseURL + "/billing"),
	})
	if err != nil {
		return "", fmt.Errorf("creating portal session: %w", err)
	}
	return sess.URL, nil
}

func (s *billingServiceImpl) GetSubscription(userID int64) (*models.Subscription, error) {
	row := s.db.QueryRow(`
		SELECT id, user_id, stripe_customer_id, COALESCE(stripe_subscription_id, ''), status,
		       current_period_end, created_at, updated_at
		FROM subscriptions WHERE user_id = ?`, userID)

	var sub models.Subscription
	var periodEnd sql.NullTime
	err := row.Scan(&sub.ID, &sub.UserID, &sub.StripeCustomerID, &sub.StripeSubscriptionID,
		&sub.Status, &periodEnd, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if periodEnd.Valid {
		sub.CurrentPeriodEnd = &periodEnd.Time
	}
	return &sub, nil
}

// HandleWebhookEvent verifies the signature and applies subscription lifecycle
// events to the local mirror. Unknown event types are acknowledged and ignored.
func (s *billingServiceImpl) HandleWebhookEvent(payload []byte, signature string) error {
	event, err := webhook.ConstructEvent(payload, signature, config.Cfg.StripeWebhookSecret)
	if err != nil {
		return fmt.Errorf("verifying webhook signature: %w", err)
	}

	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("unmarshaling subscription event: %w", err)
		}
		return s.applySubscriptionState(&sub)
	default:
		logger.L.Debug("Ignoring Stripe event", "type", event.Type)
		return nil
	}
}

func (s *billingServiceImpl) applySubscriptionState(sub *stripe.Subscription) error {
	periodEnd := time.Unix(sub.CurrentPeriodEnd, 0)
	result, err := s.db.Exec(`
		UPDATE subscriptions
		SET stripe_subscription_id = ?, status = ?, current_period_end = ?, updated_at = ?
		WHERE stripe_customer_id = ?`,
		sub.ID, string(sub.Status), periodEnd, time.Now(), sub.Customer.ID)
	if err != nil {
		return fmt.Errorf("updating subscription state: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		logger.L.Warn("Webhook for unknown Stripe customer", "customerID", sub.Customer.ID)
		return nil
	}
	logger.L.Info("Subscription state updated", "customerID", sub.Customer.ID, "status", sub.Status)
	return nil
}
