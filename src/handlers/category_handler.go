// backend/src/handlers/category_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/thucosta0/financepro/backend/src/logger"
	"github.com/thucosta0/financepro/backend/src/models"
	"github.com/thucosta0/financepro/backend/src/security/validation"
	"github.com/thucosta0/financepro/backend/src/services"
	"github.com/thucosta0/financepro/backend/src/utils"
)

type CategoryHandler struct {
	categoryService services.CategoryService
}

func NewCategoryHandler(categoryService services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

type categoryRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

func (req *categoryRequest) validate() (models.Category, error) {
	req.Name = validation.SanitizeText(req.Name)
	req.Color = validation.SanitizeText(req.Color)
	req.Icon = validation.SanitizeText(req.Icon)

	if err := validation.ValidateStringNotEmpty(req.Name, "Name"); err != nil {
		return models.Category{}, err
	}
	if err := validation.ValidateStringMaxLength(req.Name, validation.MaxCategoryNameLength, "Name"); err != nil {
		return models.Category{}, err
	}
	catType := models.TransactionType(req.Type)
	if !catType.Valid() {
		return models.Category{}, errors.New("Type must be 'income' or 'expense'")
	}
	return models.Category{
		Name:  req.Name,
		Type:  catType,
		Color: req.Color,
		Icon:  req.Icon,
	}, nil
}

func (h *CategoryHandler) HandleGetCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	categories, err := h.categoryService.ListCategories(userID)
	if err != nil {
		logger.ErrorFromContext(r.Context(), "Failed to list categories", "error", err)
		sendJSONError(w, "Failed to retrieve categories", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	category, err := req.validate()
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.categoryService.CreateCategory(userID, category)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateName) {
			sendJSONError(w, "A category with this name already exists", http.StatusConflict)
			return
		}
		logger.ErrorFromContext(r.Context(), "Failed to create category", "error", err)
		sendJSONError(w, "Failed to create category", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, created)
}

func (h *CategoryHandler) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		sendJSONError(w, "Invalid category id", http.StatusBadRequest)
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	category, err := req.validate()
	if err != nil {
		sendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	category.ID = id

	updated, err := h.categoryService.UpdateCategory(userID, category)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			sendJSONError(w, "Category not found", http.StatusNotFound)
		case errors.Is(err, services.ErrDuplicateName):
			sendJSONError(w, "A category with this name already exists", http.StatusConflict)
		default:
			logger.ErrorFromContext(r.Context(), "Failed to update category", "error", err)
			sendJSONError(w, "Failed to update category", http.StatusInternalServerError)
		}
		return
	}
	utils.WriteJSON(w, http.StatusOK, updated)
}

func (h *CategoryHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		sendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	id, err := parseIDParam(r, "id")
	if err != nil {
		sendJSONError(w, "Invalid category id", http.StatusBadRequest)
		return
	}

	if err := h.categoryService.DeleteCategory(userID, id); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			sendJSONError(w, "Category not found", http.StatusNotFound)
		case errors.Is(err, services.ErrCategoryInUse):
			sendJSONError(w, "Category has transactions or budgets and cannot be deleted", http.StatusConflict)
		default:
			logger.ErrorFromContext(r.Context(), "Failed to delete category", "error", err)
			sendJSONError(w, "Failed to delete category", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
