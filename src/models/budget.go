package models

import "time"

// MonthLayout is the wire format for budget months.
const MonthLayout = "2006-01"

// Budget is a monthly spending limit for one category.
type Budget struct {
	ID         int64     `json:"id,omitempty"`
	UserID     int64     `json:"-"`
	CategoryID int64     `json:"category_id"`
	Amount     float64   `json:"amount"`
	Month      string    `json:"month"` // MonthLayout
	CreatedAt  time.Time `json:"created_at,omitempty"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// BudgetProgress pairs a budget with the amount actually spent in its month.
type BudgetProgress struct {
	Budget       Budget  `json:"budget"`
	CategoryName string  `json:"category_name"`
	Spent        float64 `json:"spent"`
	Remaining    float64 `json:"remaining"`
	PercentUsed  float64 `json:"percent_used"`
	OverBudget   bool    `json:"over_budget"`
}
