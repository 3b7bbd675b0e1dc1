// backend/src/services/budget_service.go
package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/thucosta0/financepro/backend/src/models"
)

type budgetServiceImpl struct {
	db *sql.DB
}

func NewBudgetService(db *sql.DB) BudgetService {
	return &budgetServiceImpl{db: db}
}

func (s *budgetServiceImpl) CreateBudget(userID int64, b models.Budget) (*models.Budget, error) {
	// Budgets only make sense on expense categories owned by the user.
	var catType string
	err := s.db.QueryRow(`SELECT type FROM categories WHERE id = ? AND user_id = ?`, b.CategoryID, userID).Scan(&catType)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("checking category: %w", err)
	}
	if catType != string(models.TypeExpense) {
		return nil, ErrCategoryType
	}

	now := time.Now()
	b.UserID = userID
	b.CreatedAt = now
	b.UpdatedAt = now

	result, err := s.db.Exec(`
		INSERT INTO budgets (user_id, category_id, amount, month, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.UserID, b.CategoryID, b.Amount, b.Month, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting budget: %w", err)
	}
	if b.ID, err = result.LastInsertId(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *budgetServiceImpl) ListBudgets(userID int64, month string) ([]models.Budget, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, category_id, amount, month, created_at, updated_at
		FROM budgets
		WHERE user_id = ? AND month = ?
		ORDER BY id ASC`, userID, month)
	if err != nil {
		return nil, fmt.Errorf("querying budgets: %w", err)
	}
	defer rows.Close()

	var budgets []models.Budget
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.Amount, &b.Month, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	if budgets == nil {
		budgets = []models.Budget{}
	}
	return budgets, rows.Err()
}

func (s *budgetServiceImpl) UpdateBudget(userID int64, b models.Budget) (*models.Budget, error) {
	result, err := s.db.Exec(`
		UPDATE budgets SET amount = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		b.Amount, time.Now(), b.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("updating budget: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	row := s.db.QueryRow(`
		SELECT id, user_id, category_id, amount, month, created_at, updated_at
		FROM budgets WHERE id = ? AND user_id = ?`, b.ID, userID)
	var out models.Budget
	if err := row.Scan(&out.ID, &out.UserID, &out.CategoryID, &out.Amount, &out.Month, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *budgetServiceImpl) DeleteBudget(userID, id int64) error {
	result, err := s.db.Exec(`DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting budget: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetProgress joins each budget of the month with the expenses recorded
// against its category. Row amounts are floats; the per-category totals are
// summed as decimals so the displayed figures do not accumulate float drift.
func (s *budgetServiceImpl) GetProgress(userID int64, month string) ([]models.BudgetProgress, error) {
	budgets, err := s.ListBudgets(userID, month)
	if err != nil {
		return nil, err
	}

	progress := make([]models.BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		var categoryName string
		if err := s.db.QueryRow(`SELECT name FROM categories WHERE id = ?`, b.CategoryID).Scan(&categoryName); err != nil {
			return nil, fmt.Errorf("resolving category name: %w", err)
		}

		rows, err := s.db.Query(`
			SELECT amount FROM transactions
			WHERE user_id = ? AND category_id = ? AND type = 'expense'
			  AND transaction_date LIKE ? || '-%'`, userID, b.CategoryID, month)
		if err != nil {
			return nil, fmt.Errorf("querying spent amounts: %w", err)
		}

		spent := decimal.Zero
		for rows.Next() {
			var amount float64
			if err := rows.Scan(&amount); err != nil {
				rows.Close()
				return nil, err
			}
			spent = spent.Add(decimal.NewFromFloat(amount))
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()

		limit := decimal.NewFromFloat(b.Amount)
		remaining := limit.Sub(spent)
		percent := decimal.Zero
		if limit.IsPositive() {
			percent = spent.Div(limit).Mul(decimal.NewFromInt(100))
		}

		progress = append(progress, models.BudgetProgress{
			Budget:       b,
			CategoryName: categoryName,
			Spent:        spent.Round(2).InexactFloat64(),
			Remaining:    remaining.Round(2).InexactFloat64(),
			PercentUsed:  percent.Round(1).InexactFloat64(),
			OverBudget:   spent.GreaterThan(limit),
		})
	}
	return progress, nil
}
