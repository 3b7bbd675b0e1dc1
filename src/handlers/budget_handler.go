// backend/src/handlers/budget_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/thucosta0/financepro/backend/src/logger"
	"github.com/thucosta0/financepro/backend/src/models"
	"github.com/thucosta0/financepro/backend/src/security/validation"
	"github.com/thucosta0/financepro/backend/src/services"
	"github.com/thucosta0/financepro/backend/src/utils"
)

type BudgetHandler struct {
	budgetService services.BudgetService
}

func NewBudgetHandler(budgetService services.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

type budgetRequest struct {
	CategoryID int64   `json:"category_id"`
	Amount     float64 `json:"amount"`
	Month      string  `json:"month"`
}

func (req *budgetRequest) validate() (models.Budget, error) {
	if err := validation.ValidatePositiveAmount(req.Amount, "Amount"); err != nil {
		return models.Budget{}, err
	}
	if err := validation.ValidateMonth(req.Month, "Month"); err != nil {
		return models.Budget{}, err
	}
	return models.Budget{
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Month:      req.Month,
	}, nil
}

// monthParam reads ?month=YYYY-MM, defaulting to the current month.
func monthParam(r *http.Request) (string, error) {
	month := r.URL.Query().Get("month")
	if month == "" {
		return time.Now().Format(models.MonthLayout), nil
	}
	if err := validation.ValidateMonth(month, "Month"); err != nil {
		return "", err
	}
	return month, nil
}

func (h *BudgetHandler) HandleGetBudgets(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	month, err := monthParam(r)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	budgets, err := h.budgetService.ListBudgets(userID, month)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list budgets", "error", err)
		sendJSONError(w, "Failed to retrieve budgets", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, budgets)
}

func (h *BudgetHandler) HandleGetBudgetProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	month, err := monthParam(r)
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	progress, err := h.budgetService.GetProgress(userID, month)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to compute budget progress", "error", err)
		sendJSONError(w, "Failed to retrieve budget progress", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, progress)
}

func (h *BudgetHandler) HandleCreateBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	budget, err := req.validate()
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.budgetService.CreateBudget(userID, budget)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			sendJSONError(w, "Category not found", http.StatusNotFound)
		case errors.Is(err, services.ErrCategoryType):
			sendJSONError(w, "Budgets can only be set on expense categories", http.StatusBadRequest)
		default:
			logger.ErrorFromContext(r.Context(), "Failed to create budget", "error", err)
			sendJSONError(w, "Failed to create budget", http.StatusInternalServerError)
		}
		return
	}
	utils.WriteJSON(w, http.StatusCreated, created)
}

func (h *BudgetHandler) HandleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		sendJSONError(w, "Invalid budget id", http.StatusBadRequest)
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePositiveAmount(req.Amount, "Amount"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.budgetService.UpdateBudget(userID, models.Budget{ID: id, Amount: req.Amount})
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			sendJSONError(w, "Budget not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to update budget", "error", err)
		sendJSONError(w, "Failed to update budget", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, updated)
}

func (h *BudgetHandler) HandleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		sendJSONError(w, "Invalid budget id", http.StatusBadRequest)
		return
	}

	if err := h.budgetService.DeleteBudget(userID, id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			sendJSONError(w, "Budget not found", http.StatusNotFound)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to delete budget", "error", err)
		sendJSONError(w, "Failed to delete budget", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
