// backend/src/handlers/billing_handler.go
package handlers

import (
	"database/sql"
	"errors"
	"io"
	"net/http"

	"github.com/thucosta0/financepro/backend/src/logger"
	"github.com/thucosta0/financepro/backend/src/model"
	"github.com/thucosta0/financepro/backend/src/services"
	"github.com/thucosta0/financepro/backend/src/utils"
)

// Stripe caps webhook payloads well below this.
const maxWebhookBodyBytes = 65536

type BillingHandler struct {
	db             *sql.DB
	billingService services.BillingService
}

func NewBillingHandler(db *sql.DB, billingService services.BillingService) *BillingHandler {
	return &BillingHandler{db: db, billingService: billingService}
}

func (h *BillingHandler) HandleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	user, err := model.GetUserByID(h.db, userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to load user for checkout", "error", err)
		sendJSONError(w, "Failed to start checkout", http.StatusInternalServerError)
		return
	}

	url, err := h.billingService.CreateCheckoutSession(userID, user.Email)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to create checkout session", "error", err)
		sendJSONError(w, "Failed to start checkout", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *BillingHandler) HandleCreatePortalSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	url, err := h.billingService.CreatePortalSession(userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			sendJSONError(w, "No billing account found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to create portal session", "error", err)
		sendJSONError(w, "Failed to open billing portal", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (h *BillingHandler) HandleGetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	sub, err := h.billingService.GetSubscription(userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.WriteJSON(w, http.StatusOK, map[string]interface{}{"active": false})
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to load subscription", "error", err)
		sendJSONError(w, "Failed to retrieve subscription", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"active":       sub.IsActive(),
		"subscription": sub,
	})
}

// HandleStripeWebhook is mounted outside auth and CSRF; the Stripe-Signature
// header is the only authentication.
func (h *BillingHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		sendJSONError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	if err := h.billingService.HandleWebhookEvent(payload, r.Header.Get("Stripe-Signature")); err != nil {
		logger.ErrorFromContext(r.Context(), "Stripe webhook rejected", "error", err)
		sendJSONError(w, "Webhook verification failed", http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}
