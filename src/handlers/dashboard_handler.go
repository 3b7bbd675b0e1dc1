// backend/src/handlers/dashboard_handler.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/thucosta0/financepro/backend/src/logger"
	"github.com/thucosta0/financepro/backend/src/services"
	"github.com/thucosta0/financepro/backend/src/utils"
)

const defaultUpcomingLimit = 5

type DashboardHandler struct {
	reportService services.ReportService
}

func NewDashboardHandler(reportService services.ReportService) *DashboardHandler {
	return &DashboardHandler{reportService: reportService}
}

func (h *DashboardHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
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

	summary, err := h.reportService.GetMonthlySummary(userID, month)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to compute monthly summary", "error", err)
		sendJSONError(w, "Failed to retrieve summary", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}

func (h *DashboardHandler) HandleGetCategoryBreakdown(w http.ResponseWriter, r *http.Request) {
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

	breakdown, err := h.reportService.GetCategoryBreakdown(userID, month)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to compute category breakdown", "error", err)
		sendJSONError(w, "Failed to retrieve category breakdown", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, breakdown)
}

func (h *DashboardHandler) HandleGetUpcomingInstallments(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	limit := defaultUpcomingLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 50 {
			sendJSONError(w, "Limit must be between 1 and 50", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	upcoming, err := h.reportService.GetUpcomingInstallments(userID, limit)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to load upcoming installments", "error", err)
		sendJSONError(w, "Failed to retrieve upcoming installments", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, upcoming)
}
