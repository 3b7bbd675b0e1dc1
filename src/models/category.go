package models

import "time"

// Category labels transactions and anchors budgets. Categories are per user
// and typed, so an "income" category can never hold an expense budget.
type Category struct {
	ID        int64           `json:"id,omitempty"`
	UserID    int64           `json:"-"`
	Name      string          `json:"name"`
	Type      TransactionType `json:"type"`
	Color     string          `json:"color"`
	Icon      string          `json:"icon"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}

// Card is a payment card transactions can optionally be charged against.
type Card struct {
	ID             int64     `json:"id,omitempty"`
	UserID         int64     `json:"-"`
	Name           string    `json:"name"`
	Brand          string    `json:"brand,omitempty"`
	LastFourDigits string    `json:"last_four_digits,omitempty"`
	CreditLimit    float64   `json:"credit_limit"`
	ClosingDay     int       `json:"closing_day"`
	DueDay         int       `json:"due_day"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}
