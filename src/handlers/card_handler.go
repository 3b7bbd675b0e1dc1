// backend/src/handlers/card_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/thucosta0/financepro/backend/src/logger"
	"github.com/thucosta0/financepro/backend/src/models"
	"github.com/thucosta0/financepro/backend/src/security/validation"
	"github.com/thucosta0/financepro/backend/src/services"
	"github.com/thucosta0/financepro/backend/src/utils"
)

type CardHandler struct {
	cardService services.CardService
}

func NewCardHandler(cardService services.CardService) *CardHandler {
	return &CardHandler{cardService: cardService}
}

var lastFourRegex = regexp.MustCompile(`^\d{4}$`)

type cardRequest struct {
	Name           string  `json:"name"`
	Brand          string  `json:"brand"`
	LastFourDigits string  `json:"last_four_digits"`
	CreditLimit    float64 `json:"credit_limit"`
	ClosingDay     int     `json:"closing_day"`
	DueDay         int     `json:"due_day"`
}

func (req *cardRequest) validate() (models.Card, error) {
	req.Name = validation.SanitizeText(req.Name)
	req.Brand = validation.SanitizeText(req.Brand)

	if err := validation.ValidateStringNotEmpty(req.Name, "Name"); err != nil {
		return models.Card{}, err
	}
	if err := validation.ValidateStringMaxLength(req.Name, validation.MaxCardNameLength, "Name"); err != nil {
		return models.Card{}, err
	}
	if req.LastFourDigits != "" && !lastFourRegex.MatchString(req.LastFourDigits) {
		return models.Card{}, errors.New("Last four digits must be exactly four digits")
	}
	if req.CreditLimit < 0 {
		return models.Card{}, errors.New("Credit limit cannot be negative")
	}
	if err := validation.ValidateDayOfMonth(req.ClosingDay, "Closing day"); err != nil {
		return models.Card{}, err
	}
	if err := validation.ValidateDayOfMonth(req.DueDay, "Due day"); err != nil {
		return models.Card{}, err
	}
	return models.Card{
		Name:           req.Name,
		Brand:          req.Brand,
		LastFourDigits: req.LastFourDigits,
		CreditLimit:    req.CreditLimit,
		ClosingDay:     req.ClosingDay,
		DueDay:         req.DueDay,
	}, nil
}

func (h *CardHandler) HandleGetCards(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	cards, err := h.cardService.ListCards(userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list cards", "error", err)
		sendJSONError(w, "Failed to retrieve cards", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, cards)
}

func (h *CardHandler) HandleCreateCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req cardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	card, err := req.validate()
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.cardService.CreateCard(userID, card)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to create card", "error", err)
		sendJSONError(w, "Failed to create card", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, created)
}

func (h *CardHandler) HandleUpdateCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		sendJSONError(w, "Invalid card id", http.StatusBadRequest)
		return
	}

	var req cardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	card, err := req.validate()
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	card.ID = id

	updated, err := h.cardService.UpdateCard(userID, card)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			sendJSONError(w, "Card not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to update card", "error", err)
		sendJSONError(w, "Failed to update card", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, updated)
}

func (h *CardHandler) HandleDeleteCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		sendJSONError(w, "Invalid card id", http.StatusBadRequest)
		return
	}

	if err := h.cardService.DeleteCard(userID, id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			sendJSONError(w, "Card not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to delete card", "error", err)
		sendJSONError(w, "Failed to delete card", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
