// backend/src/processors/installment_planner_test.go
package processors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/thucosta0/financepro/backend/src/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCountInstallments(t *testing.T) {
	planner := NewInstallmentPlanner()

	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		want    int
		wantErr error
	}{
		{
			name:  "same month yields one installment",
			start: date(2025, time.March, 10),
			end:   date(2025, time.March, 28),
			want:  1,
		},
		{
			name:  "same day yields one installment",
			start: date(2025, time.March, 10),
			end:   date(2025, time.March, 10),
			want:  1,
		},
		{
			name:  "january to december is twelve",
			start: date(2025, time.January, 15),
			end:   date(2025, time.December, 15),
			want:  12,
		},
		{
			name:  "range crossing a year boundary",
			start: date(2024, time.November, 5),
			end:   date(2025, time.February, 5),
			want:  4,
		},
		{
			name:  "end day earlier in month does not reduce the count",
			start: date(2025, time.January, 31),
			end:   date(2025, time.February, 1),
			want:  2,
		},
		{
			name:    "end before start is rejected",
			start:   date(2025, time.May, 1),
			end:     date(2025, time.April, 30),
			wantErr: ErrInvalidDateRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := planner.CountInstallments(tt.start, tt.end)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CountInstallments() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CountInstallments() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CountInstallments() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExpandNotebookPlan(t *testing.T) {
	planner := NewInstallmentPlanner()

	due := date(2025, time.January, 20)
	tpl := InstallmentTemplate{
		Description: "Notebook",
		Amount:      500,
		Type:        models.TypeExpense,
		CategoryID:  3,
		StartDate:   date(2025, time.January, 15),
		EndDate:     date(2025, time.April, 15),
		DueDate:     &due,
		Notes:       "Store financing",
	}

	rows, err := planner.Expand(42, tpl)
	if err != nil {
		t.Fatalf("Expand() unexpected error: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expand() produced %d rows, want 4", len(rows))
	}

	groupID := rows[0].Installment.GroupID
	if _, err := uuid.Parse(groupID); err != nil {
		t.Errorf("group id %q is not a valid uuid: %v", groupID, err)
	}

	wantDates := []string{"2025-01-15", "2025-02-15", "2025-03-15", "2025-04-15"}
	wantDue := []string{"2025-01-20", "2025-02-20", "2025-03-20", "2025-04-20"}

	for i, row := range rows {
		wantDesc := fmt.Sprintf("Notebook (%d/4)", i+1)
		if row.Description != wantDesc {
			t.Errorf("row %d description = %q, want %q", i, row.Description, wantDesc)
		}
		if row.Amount != 500 {
			t.Errorf("row %d amount = %v, want 500", i, row.Amount)
		}
		if row.UserID != 42 {
			t.Errorf("row %d user id = %d, want 42", i, row.UserID)
		}
		if row.TransactionDate != wantDates[i] {
			t.Errorf("row %d date = %s, want %s", i, row.TransactionDate, wantDates[i])
		}
		if row.DueDate == nil || *row.DueDate != wantDue[i] {
			t.Errorf("row %d due date = %v, want %s", i, row.DueDate, wantDue[i])
		}
		if row.IsCompleted {
			t.Errorf("row %d should start pending", i)
		}
		if row.Installment == nil {
			t.Fatalf("row %d missing installment metadata", i)
		}
		if row.Installment.Number != i+1 {
			t.Errorf("row %d number = %d, want %d", i, row.Installment.Number, i+1)
		}
		if row.Installment.Total != 4 {
			t.Errorf("row %d total = %d, want 4", i, row.Installment.Total)
		}
		if row.Installment.GroupID != groupID {
			t.Errorf("row %d group id = %q, want %q", i, row.Installment.GroupID, groupID)
		}
		wantNotes := fmt.Sprintf("Store financing\nInstallment %d of 4", i+1)
		if row.Notes != wantNotes {
			t.Errorf("row %d notes = %q, want %q", i, row.Notes, wantNotes)
		}
	}
}

func TestExpandDistinctGroupIDs(t *testing.T) {
	planner := NewInstallmentPlanner()
	tpl := InstallmentTemplate{
		Description: "Gym",
		Amount:      80,
		Type:        models.TypeExpense,
		StartDate:   date(2025, time.June, 1),
		EndDate:     date(2025, time.July, 1),
	}

	first, err := planner.Expand(1, tpl)
	if err != nil {
		t.Fatalf("Expand() unexpected error: %v", err)
	}
	second, err := planner.Expand(1, tpl)
	if err != nil {
		t.Fatalf("Expand() unexpected error: %v", err)
	}
	if first[0].Installment.GroupID == second[0].Installment.GroupID {
		t.Error("two expansions of the same template must mint distinct group ids")
	}
}

func TestExpandWithoutBaseNotes(t *testing.T) {
	planner := NewInstallmentPlanner()
	tpl := InstallmentTemplate{
		Description: "Course",
		Amount:      120,
		Type:        models.TypeExpense,
		StartDate:   date(2025, time.February, 1),
		EndDate:     date(2025, time.March, 1),
	}

	rows, err := planner.Expand(7, tpl)
	if err != nil {
		t.Fatalf("Expand() unexpected error: %v", err)
	}
	if rows[0].Notes != "Installment 1 of 2" {
		t.Errorf("notes = %q, want the bare generated line", rows[0].Notes)
	}
	if strings.HasPrefix(rows[0].Notes, "\n") {
		t.Error("notes must not start with a blank line when the template has none")
	}
}

func TestExpandInvalidRangeEmitsNothing(t *testing.T) {
	planner := NewInstallmentPlanner()
	tpl := InstallmentTemplate{
		Description: "Backwards",
		Amount:      10,
		Type:        models.TypeExpense,
		StartDate:   date(2025, time.May, 1),
		EndDate:     date(2025, time.January, 1),
	}

	rows, err := planner.Expand(1, tpl)
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("Expand() error = %v, want ErrInvalidDateRange", err)
	}
	if rows != nil {
		t.Errorf("Expand() returned %d rows on error, want none", len(rows))
	}
}

func TestShiftMonthsDayOverflow(t *testing.T) {
	tests := []struct {
		name   string
		base   time.Time
		months int
		want   string
	}{
		{"zero shift", date(2025, time.January, 31), 0, "2025-01-31"},
		{"jan 31 into february rolls into march", date(2025, time.January, 31), 1, "2025-03-03"},
		{"jan 31 into february of a leap year", date(2024, time.January, 31), 1, "2024-03-02"},
		{"jan 31 two months ahead is exact", date(2025, time.January, 31), 2, "2025-03-31"},
		{"may 31 into june rolls into july", date(2025, time.May, 31), 1, "2025-07-01"},
		{"mid month never rolls", date(2025, time.January, 15), 1, "2025-02-15"},
		{"crosses year boundary", date(2025, time.November, 10), 3, "2026-02-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShiftMonths(tt.base, tt.months).Format(models.DateLayout)
			if got != tt.want {
				t.Errorf("ShiftMonths(%s, %d) = %s, want %s",
					tt.base.Format(models.DateLayout), tt.months, got, tt.want)
			}
		})
	}
}
