package models

import "time"

// DateLayout is the wire and storage format for transaction dates.
const DateLayout = "2006-01-02"

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether the type is one of the two known values.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// InstallmentMeta carries the sequence metadata of a row that belongs to an
// installment plan. It is present as a whole or absent as a whole: a row either
// is an installment member (all three fields set) or an ordinary transaction
// (nil pointer). The Grouper partitions on exactly this distinction.
type InstallmentMeta struct {
	Number  int    `json:"installment_number"`   // 1-based position within the plan
	Total   int    `json:"total_installments"`   // plan size, identical across the group
	GroupID string `json:"installment_group_id"` // shared id minted by the planner
}

// Transaction is a single ledger row as persisted. For installment plans the
// Amount is the per-installment value; the plan total is a derived display
// value (Amount x Installment.Total), never stored.
type Transaction struct {
	ID              int64            `json:"id,omitempty"`
	UserID          int64            `json:"-"`
	Description     string           `json:"description"`
	Amount          float64          `json:"amount"`
	Type            TransactionType  `json:"type"`
	CategoryID      int64            `json:"category_id"`
	CardID          *int64           `json:"card_id,omitempty"`
	TransactionDate string           `json:"transaction_date"` // DateLayout
	DueDate         *string          `json:"due_date,omitempty"`
	IsCompleted     bool             `json:"is_completed"`
	Installment     *InstallmentMeta `json:"installment,omitempty"`
	Notes           string           `json:"notes"`
	CreatedAt       time.Time        `json:"created_at,omitempty"`
	UpdatedAt       time.Time        `json:"updated_at,omitempty"`
}

// Date parses the row's transaction date.
func (t *Transaction) Date() (time.Time, error) {
	return time.Parse(DateLayout, t.TransactionDate)
}

// TransactionGroup is the view model the Grouper synthesizes from flat rows.
// It is ephemeral and never persisted.
type TransactionGroup struct {
	GroupID           string          `json:"group_id"`
	Heuristic         bool            `json:"heuristic"` // true when grouped by similarity, not by a planner id
	Description       string          `json:"description"`
	Amount            float64         `json:"amount"` // per-installment amount
	TotalAmount       float64         `json:"total_amount"`
	Type              TransactionType `json:"type"`
	CategoryID        int64           `json:"category_id"`
	CardID            *int64          `json:"card_id,omitempty"`
	TotalInstallments int             `json:"total_installments"`
	CompletedCount    int             `json:"completed_count"`
	NextDue           *string         `json:"next_due,omitempty"` // DateLayout; absent when all members are completed
	Members           []Transaction   `json:"members"`
}

// GroupedTransactions is the two-part output of the Grouper: reconstructed
// groups plus the transactions that belong to no group.
type GroupedTransactions struct {
	Groups     []TransactionGroup `json:"groups"`
	Individual []Transaction      `json:"individual"`
}
