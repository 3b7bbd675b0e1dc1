// backend/src/services/interfaces.go
package services

import (
	"errors"

	"github.com/thucosta0/financepro/backend/src/models"
	"github.com/thucosta0/financepro/backend/src/processors"
)

// Define common service errors
var (
	ErrNotFound     = errors.New("record not found")
	ErrBatchInsert  = errors.New("installment batch insert failed")
	ErrCategoryType = errors.New("category type does not match transaction type")
)

// TransactionService owns the ledger rows: single CRUD, installment plan
// expansion with atomic batch insert, group reconstruction for display and
// bulk status changes.
type TransactionService interface {
	CreateTransaction(userID int64, tx models.Transaction) (*models.Transaction, error)
	CreateInstallmentPlan(userID int64, tpl processors.InstallmentTemplate) ([]models.Transaction, error)
	ListTransactions(userID int64) ([]models.Transaction, error)
	ListGrouped(userID int64) (*models.GroupedTransactions, error)
	GetTransaction(userID, id int64) (*models.Transaction, error)
	UpdateTransaction(userID int64, tx models.Transaction) (*models.Transaction, error)
	SetTransactionStatus(userID, id int64, completed bool) error
	DeleteTransaction(userID, id int64) error
	DeleteInstallmentGroup(userID int64, groupID string) (int64, error)
	SetGroupCompletion(userID int64, groupID string, target bool) (processors.GroupStatusResult, error)
	SetCompletionByIDs(userID int64, ids []int64, target bool) (processors.GroupStatusResult, error)
	InvalidateUserCache(userID int64)
}

// CategoryService owns the user's income/expense categories.
type CategoryService interface {
	CreateCategory(userID int64, c models.Category) (*models.Category, error)
	ListCategories(userID int64) ([]models.Category, error)
	UpdateCategory(userID int64, c models.Category) (*models.Category, error)
	DeleteCategory(userID, id int64) error
}

// CardService owns the user's payment cards.
type CardService interface {
	CreateCard(userID int64, c models.Card) (*models.Card, error)
	ListCards(userID int64) ([]models.Card, error)
	UpdateCard(userID int64, c models.Card) (*models.Card, error)
	DeleteCard(userID, id int64) error
}

// BudgetService owns per-category monthly limits and their progress reports.
type BudgetService interface {
	CreateBudget(userID int64, b models.Budget) (*models.Budget, error)
	ListBudgets(userID int64, month string) ([]models.Budget, error)
	UpdateBudget(userID int64, b models.Budget) (*models.Budget, error)
	DeleteBudget(userID, id int64) error
	GetProgress(userID int64, month string) ([]models.BudgetProgress, error)
}

// MonthlySummary is the dashboard headline for one month.
type MonthlySummary struct {
	Month            string  `json:"month"`
	Income           float64 `json:"income"`
	Expense          float64 `json:"expense"`
	Balance          float64 `json:"balance"`
	TransactionCount int     `json:"transaction_count"`
	PendingCount     int     `json:"pending_count"`
}

// CategoryBreakdown is one slice of the dashboard's expense chart.
type CategoryBreakdown struct {
	CategoryID   int64   `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Color        string  `json:"color"`
	Total        float64 `json:"total"`
	Percent      float64 `json:"percent"`
}

// UpcomingInstallment is one pending installment surfaced on the dashboard.
type UpcomingInstallment struct {
	Transaction models.Transaction `json:"transaction"`
	GroupID     string             `json:"group_id"`
	Position    string             `json:"position"` // e.g. "3/12"
}

// ReportService computes the dashboard aggregates.
type ReportService interface {
	GetMonthlySummary(userID int64, month string) (*MonthlySummary, error)
	GetCategoryBreakdown(userID int64, month string) ([]CategoryBreakdown, error)
	GetUpcomingInstallments(userID int64, limit int) ([]UpcomingInstallment, error)
	InvalidateUserCache(userID int64)
}

// EmailService sends transactional mail.
type EmailService interface {
	SendVerificationEmail(toEmail, username, token string) error
}

// BillingService wraps the Stripe integration.
type BillingService interface {
	CreateCheckoutSession(userID int64, email string) (string, error)
	CreatePortalSession(userID int64) (string, error)
	GetSubscription(userID int64) (*models.Subscription, error)
	HandleWebhookEvent(payload []byte, signature string) error
}
