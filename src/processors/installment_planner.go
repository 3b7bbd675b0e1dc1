// backend/src/processors/installment_planner.go
package processors

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thucosta0/financepro/backend/src/models"
)

var (
	// ErrInvalidDateRange is returned when the template's end date precedes its start date.
	ErrInvalidDateRange = errors.New("end date precedes start date")
	// ErrInvalidInstallmentCount is returned when the computed installment count is not positive.
	ErrInvalidInstallmentCount = errors.New("installment count must be positive")
)

// InstallmentTemplate describes one parceled purchase before expansion.
// Amount is the per-installment value; the plan total is Amount times the
// computed installment count.
type InstallmentTemplate struct {
	Description string
	Amount      float64
	Type        models.TransactionType
	CategoryID  int64
	CardID      *int64
	StartDate   time.Time
	EndDate     time.Time
	DueDate     *time.Time
	Notes       string
}

// InstallmentPlanner expands a template into N discrete transaction rows with
// month-stepped dates and a shared group id. It performs no persistence; the
// transaction service inserts the emitted rows as a single batch.
type InstallmentPlanner struct{}

func NewInstallmentPlanner() *InstallmentPlanner { return &InstallmentPlanner{} }

// CountInstallments computes the number of installments between two dates.
// The count is based on whole calendar-month differences only; the day
// component of the end date does not influence it. A same-month range yields 1.
func (p *InstallmentPlanner) CountInstallments(start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, ErrInvalidDateRange
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	installments := months + 1
	if installments <= 0 {
		return 0, ErrInvalidInstallmentCount
	}
	return installments, nil
}

// Expand emits one row per installment. Every row carries the same freshly
// minted group id, a 1-based sequence number, a " (i/total)" description
// suffix and a generated notes line. On error no rows are emitted.
func (p *InstallmentPlanner) Expand(userID int64, tpl InstallmentTemplate) ([]models.Transaction, error) {
	installments, err := p.CountInstallments(tpl.StartDate, tpl.EndDate)
	if err != nil {
		return nil, err
	}

	groupID := uuid.New().String()
	rows := make([]models.Transaction, 0, installments)

	for i := 1; i <= installments; i++ {
		date := ShiftMonths(tpl.StartDate, i-1)

		var dueDate *string
		if tpl.DueDate != nil {
			// The due date steps through the months in lockstep with the
			// transaction date.
			d := ShiftMonths(*tpl.DueDate, i-1).Format(models.DateLayout)
			dueDate = &d
		}

		notes := tpl.Notes
		if notes != "" {
			notes += "\n"
		}
		notes += fmt.Sprintf("Installment %d of %d", i, installments)

		rows = append(rows, models.Transaction{
			UserID:          userID,
			Description:     fmt.Sprintf("%s (%d/%d)", tpl.Description, i, installments),
			Amount:          tpl.Amount,
			Type:            tpl.Type,
			CategoryID:      tpl.CategoryID,
			CardID:          tpl.CardID,
			TransactionDate: date.Format(models.DateLayout),
			DueDate:         dueDate,
			IsCompleted:     false,
			Installment: &models.InstallmentMeta{
				Number:  i,
				Total:   installments,
				GroupID: groupID,
			},
			Notes: notes,
		})
	}
	return rows, nil
}

// ShiftMonths moves a date forward by whole calendar months. Day numbers that
// do not exist in the target month normalize forward into the following month
// (Jan 31 plus one month lands on Mar 2 or Mar 3), matching time.Date's
// normalization. The rule is deterministic and covered by tests.
func ShiftMonths(t time.Time, months int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(months), t.Day(), 0, 0, 0, 0, t.Location())
}
