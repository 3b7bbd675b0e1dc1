// backend/src/handlers/transaction_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/thucosta0/financepro/backend/src/logger"
	"github.com/thucosta0/financepro/backend/src/models"
	"github.com/thucosta0/financepro/backend/src/processors"
	"github.com/thucosta0/financepro/backend/src/security/validation"
	"github.com/thucosta0/financepro/backend/src/services"
	"github.com/thucosta0/financepro/backend/src/utils"
)

type TransactionHandler struct {
	transactionService services.TransactionService
	reportService      services.ReportService
}

func NewTransactionHandler(transactionService services.TransactionService, reportService services.ReportService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		reportService:      reportService,
	}
}

// transactionRequest is the JSON body for creating or updating a single row.
type transactionRequest struct {
	Description     string  `json:"description"`
	Amount          float64 `json:"amount"`
	Type            string  `json:"type"`
	CategoryID      int64   `json:"category_id"`
	CardID          *int64  `json:"card_id"`
	TransactionDate string  `json:"transaction_date"`
	DueDate         *string `json:"due_date"`
	IsCompleted     bool    `json:"is_completed"`
	Notes           string  `json:"notes"`
}

func (req *transactionRequest) validate() (models.Transaction, error) {
	req.Description = validation.SanitizeDescription(req.Description)
	req.Notes = validation.SanitizeNotes(req.Notes)

	if err := validation.ValidateStringNotEmpty(req.Description, "Description"); err != nil {
		return models.Transaction{}, err
	}
	if err := validation.ValidateStringMaxLength(req.Description, validation.MaxDescriptionLength, "Description"); err != nil {
		return models.Transaction{}, err
	}
	if err := validation.ValidateStringMaxLength(req.Notes, validation.MaxNotesLength, "Notes"); err != nil {
		return models.Transaction{}, err
	}
	if err := validation.ValidatePositiveAmount(req.Amount, "Amount"); err != nil {
		return models.Transaction{}, err
	}
	txType := models.TransactionType(req.Type)
	if !txType.Valid() {
		return models.Transaction{}, errors.New("Type must be 'income' or 'expense'")
	}
	if _, err := validation.ValidateDate(req.TransactionDate, "Transaction date"); err != nil {
		return models.Transaction{}, err
	}
	if req.DueDate != nil {
		if _, err := validation.ValidateDate(*req.DueDate, "Due date"); err != nil {
			return models.Transaction{}, err
		}
	}

	return models.Transaction{
		Description:     req.Description,
		Amount:          req.Amount,
		Type:            txType,
		CategoryID:      req.CategoryID,
		CardID:          req.CardID,
		TransactionDate: req.TransactionDate,
		DueDate:         req.DueDate,
		IsCompleted:     req.IsCompleted,
		Notes:           req.Notes,
	}, nil
}

func (h *TransactionHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	txs, err := h.transactionService.ListTransactions(userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list transactions", "error", err)
		sendJSONError(w, "Failed to retrieve transactions", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, txs)
}

func (h *TransactionHandler) HandleGetGroupedTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	grouped, err := h.transactionService.ListGrouped(userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to build grouped transactions", "error", err)
		sendJSONError(w, "Failed to retrieve transactions", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, grouped)
}

func (h *TransactionHandler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := req.validate()
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.transactionService.CreateTransaction(userID, tx)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to create transaction")
		return
	}
	h.reportService.InvalidateUserCache(userID)
	utils.WriteJSON(w, http.StatusCreated, created)
}

// installmentPlanRequest is the JSON body for expanding a parceled purchase.
// Amount is per installment; the plan length comes from the date range.
type installmentPlanRequest struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	CategoryID  int64   `json:"category_id"`
	CardID      *int64  `json:"card_id"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	DueDate     *string `json:"due_date"`
	Notes       string  `json:"notes"`
}

func (h *TransactionHandler) HandleCreateInstallmentPlan(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req installmentPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Description = validation.SanitizeDescription(req.Description)
	req.Notes = validation.SanitizeNotes(req.Notes)

	if err := validation.ValidateStringNotEmpty(req.Description, "Description"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePositiveAmount(req.Amount, "Amount"); err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	txType := models.TransactionType(req.Type)
	if !txType.Valid() {
		sendJSONError(w, "Type must be 'income' or 'expense'", http.StatusBadRequest)
		return
	}

	startDate, err := validation.ValidateDate(req.StartDate, "Start date")
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	endDate, err := validation.ValidateDate(req.EndDate, "End date")
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		d, err := validation.ValidateDate(*req.DueDate, "Due date")
		if err != nil {
			sendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		dueDate = &d
	}

	tpl := processors.InstallmentTemplate{
		Description: req.Description,
		Amount:      req.Amount,
		Type:        txType,
		CategoryID:  req.CategoryID,
		CardID:      req.CardID,
		StartDate:   startDate,
		EndDate:     endDate,
		DueDate:     dueDate,
		Notes:       req.Notes,
	}

	rows, err := h.transactionService.CreateInstallmentPlan(userID, tpl)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to create installment plan")
		return
	}

	h.reportService.InvalidateUserCache(userID)
	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"installments": len(rows),
		"group_id":     rows[0].Installment.GroupID,
		"transactions": rows,
	})
}

func (h *TransactionHandler) HandleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		sendJSONError(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx, err := req.validate()
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	tx.ID = id

	updated, err := h.transactionService.UpdateTransaction(userID, tx)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to update transaction")
		return
	}
	h.reportService.InvalidateUserCache(userID)
	utils.WriteJSON(w, http.StatusOK, updated)
}

func (h *TransactionHandler) HandleSetTransactionStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		sendJSONError(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}

	var req struct {
		IsCompleted bool `json:"is_completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.transactionService.SetTransactionStatus(userID, id, req.IsCompleted); err != nil {
		h.writeServiceError(w, r, err, "Failed to update transaction status")
		return
	}
	h.reportService.InvalidateUserCache(userID)
	utils.WriteJSON(w, http.StatusOK, map[string]bool{"is_completed": req.IsCompleted})
}

func (h *TransactionHandler) HandleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		sendJSONError(w, "Invalid transaction id", http.StatusBadRequest)
		return
	}

	if err := h.transactionService.DeleteTransaction(userID, id); err != nil {
		h.writeServiceError(w, r, err, "Failed to delete transaction")
		return
	}
	h.reportService.InvalidateUserCache(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TransactionHandler) HandleDeleteInstallmentGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	groupID := chi.URLParam(r, "groupID")
	if groupID == "" {
		sendJSONError(w, "Group id is required", http.StatusBadRequest)
		return
	}

	deleted, err := h.transactionService.DeleteInstallmentGroup(userID, groupID)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to delete installment group")
		return
	}
	h.reportService.InvalidateUserCache(userID)
	utils.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// HandleSetGroupStatus bulk-toggles completion for every member of an explicit
// group. Per-member outcomes are always reported; a partial failure yields 207
// so the client can retry just the failed subset.
func (h *TransactionHandler) HandleSetGroupStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	groupID := chi.URLParam(r, "groupID")
	if groupID == "" {
		sendJSONError(w, "Group id is required", http.StatusBadRequest)
		return
	}

	var req struct {
		IsCompleted bool `json:"is_completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.transactionService.SetGroupCompletion(userID, groupID, req.IsCompleted)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to update group status")
		return
	}
	h.reportService.InvalidateUserCache(userID)
	h.writeStatusResult(w, r, result)
}

// HandleBulkSetStatus is the member-id variant used for heuristic groups,
// which have no persisted group id to address.
func (h *TransactionHandler) HandleBulkSetStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req struct {
		TransactionIDs []int64 `json:"transaction_ids"`
		IsCompleted    bool    `json:"is_completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.TransactionIDs) == 0 {
		sendJSONError(w, "transaction_ids is required", http.StatusBadRequest)
		return
	}

	result, err := h.transactionService.SetCompletionByIDs(userID, req.TransactionIDs, req.IsCompleted)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to update transaction statuses")
		return
	}
	h.reportService.InvalidateUserCache(userID)
	h.writeStatusResult(w, r, result)
}

func (h *TransactionHandler) writeStatusResult(w http.ResponseWriter, r *http.Request, result processors.GroupStatusResult) {
	status := http.StatusOK
	if err := result.Err(); err != nil {
		logger.ErrorFromContext(r.Context(), "Partial failure during bulk status update", "error", err)
		status = http.StatusMultiStatus
	}
	utils.WriteJSON(w, status, result)
}

func (h *TransactionHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		sendJSONError(w, "Record not found", http.StatusNotFound)
	case errors.Is(err, services.ErrCategoryType):
		sendJSONError(w, "Category type does not match transaction type", http.StatusBadRequest)
	case errors.Is(err, processors.ErrInvalidDateRange):
		sendJSONError(w, "End date must not precede start date", http.StatusBadRequest)
	case errors.Is(err, processors.ErrInvalidInstallmentCount):
		sendJSONError(w, "Date range produces no installments", http.StatusBadRequest)
	case errors.Is(err, services.ErrBatchInsert):
		logger.ErrorFromContext(r.Context(), "Installment batch insert failed", "error", err)
		sendJSONError(w, "Failed to save installment plan; no rows were created", http.StatusInternalServerError)
	default:
		logger.ErrorFromContext(r.Context(), fallback, "error", err)
		sendJSONError(w, fallback, http.StatusInternalServerError)
	}
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
