// backend/src/services/report_service.go
package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/thucosta0/financepro/backend/src/models"
)

const (
	ckMonthlySummary    = "report_summary_user_%d_month_%s"
	ckCategoryBreakdown = "report_categories_user_%d_month_%s"
	reportCachePrefix   = "report_"
)

type reportServiceImpl struct {
	db          *sql.DB
	reportCache *cache.Cache
}

func NewReportService(db *sql.DB, reportCache *cache.Cache) ReportService {
	return &reportServiceImpl{db: db, reportCache: reportCache}
}

func (s *reportServiceImpl) GetMonthlySummary(userID int64, month string) (*MonthlySummary, error) {
	cacheKey := fmt.Sprintf(ckMonthlySummary, userID, month)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.(*MonthlySummary), nil
	}

	rows, err := s.db.Query(`
		SELECT amount, type, is_completed FROM transactions
		WHERE user_id = ? AND transaction_date LIKE ? || '-%'`, userID, month)
	if err != nil {
		return nil, fmt.Errorf("querying monthly transactions: %w", err)
	}
	defer rows.Close()

	income, expense := decimal.Zero, decimal.Zero
	count, pending := 0, 0
	for rows.Next() {
		var amount float64
		var txType string
		var completed bool
		if err := rows.Scan(&amount, &txType, &completed); err != nil {
			return nil, err
		}
		count++
		if !completed {
			pending++
		}
		if txType == string(models.TypeIncome) {
			income = income.Add(decimal.NewFromFloat(amount))
		} else {
			expense = expense.Add(decimal.NewFromFloat(amount))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summary := &MonthlySummary{
		Month:            month,
		Income:           income.Round(2).InexactFloat64(),
		Expense:          expense.Round(2).InexactFloat64(),
		Balance:          income.Sub(expense).Round(2).InexactFloat64(),
		TransactionCount: count,
		PendingCount:     pending,
	}
	s.reportCache.Set(cacheKey, summary, DefaultCacheExpiration)
	return summary, nil
}

func (s *reportServiceImpl) GetCategoryBreakdown(userID int64, month string) ([]CategoryBreakdown, error) {
	cacheKey := fmt.Sprintf(ckCategoryBreakdown, userID, month)
	if cached, found := s.reportCache.Get(cacheKey); found {
		return cached.([]CategoryBreakdown), nil
	}

	rows, err := s.db.Query(`
		SELECT t.category_id, c.name, c.color, t.amount
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.type = 'expense' AND t.transaction_date LIKE ? || '-%'
		ORDER BY t.category_id ASC`, userID, month)
	if err != nil {
		return nil, fmt.Errorf("querying category breakdown: %w", err)
	}
	defer rows.Close()

	type bucket struct {
		name  string
		color string
		total decimal.Decimal
	}
	buckets := make(map[int64]*bucket)
	var order []int64
	grandTotal := decimal.Zero

	for rows.Next() {
		var categoryID int64
		var name, color string
		var amount float64
		if err := rows.Scan(&categoryID, &name, &color, &amount); err != nil {
			return nil, err
		}
		b, ok := buckets[categoryID]
		if !ok {
			b = &bucket{name: name, color: color, total: decimal.Zero}
			buckets[categoryID] = b
			order = append(order, categoryID)
		}
		b.total = b.total.Add(decimal.NewFromFloat(amount))
		grandTotal = grandTotal.Add(decimal.NewFromFloat(amount))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	breakdown := make([]CategoryBreakdown, 0, len(order))
	for _, categoryID := range order {
		b := buckets[categoryID]
		percent := decimal.Zero
		if grandTotal.IsPositive() {
			percent = b.total.Div(grandTotal).Mul(decimal.NewFromInt(100))
		}
		breakdown = append(breakdown, CategoryBreakdown{
			CategoryID:   categoryID,
			CategoryName: b.name,
			Color:        b.color,
			Total:        b.total.Round(2).InexactFloat64(),
			Percent:      percent.Round(1).InexactFloat64(),
		})
	}

	s.reportCache.Set(cacheKey, breakdown, DefaultCacheExpiration)
	return breakdown, nil
}

// GetUpcomingInstallments lists the next pending installment rows across all
// of the user's plans, soonest first. Not cached: it is cheap and changes on
// every status toggle.
func (s *reportServiceImpl) GetUpcomingInstallments(userID int64, limit int) ([]UpcomingInstallment, error) {
	if limit <= 0 {
		limit = 10
	}
	today := time.Now().Format(models.DateLayout)

	rows, err := s.db.Query(`
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = ? AND installment_group_id IS NOT NULL
		  AND is_completed = 0 AND transaction_date >= ?
		ORDER BY transaction_date ASC, id ASC
		LIMIT ?`, userID, today, limit)
	if err != nil {
		return nil, fmt.Errorf("querying upcoming installments: %w", err)
	}
	defer rows.Close()

	var upcoming []UpcomingInstallment
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		upcoming = append(upcoming, UpcomingInstallment{
			Transaction: tx,
			GroupID:     tx.Installment.GroupID,
			Position:    fmt.Sprintf("%d/%d", tx.Installment.Number, tx.Installment.Total),
		})
	}
	if upcoming == nil {
		upcoming = []UpcomingInstallment{}
	}
	return upcoming, rows.Err()
}

// InvalidateUserCache drops every cached report belonging to the user. go-cache
// has no prefix delete, so the item map is scanned.
func (s *reportServiceImpl) InvalidateUserCache(userID int64) {
	userMarker := fmt.Sprintf("user_%d_", userID)
	for key := range s.reportCache.Items() {
		if strings.HasPrefix(key, reportCachePrefix) && strings.Contains(key, userMarker) {
			s.reportCache.Delete(key)
		}
	}
}
