// backend/src/services/transaction_service_test.go
package services

import (
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/thucosta0/financepro/backend/src/logger"
	"github.com/thucosta0/financepro/backend/src/models"
	"github.com/thucosta0/financepro/backend/src/processors"
	_ "modernc.org/sqlite"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

const testSchema = `
CREATE TABLE categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('income', 'expense')),
	color TEXT NOT NULL DEFAULT '',
	icon TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE transactions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	description TEXT NOT NULL,
	amount REAL NOT NULL,
	type TEXT NOT NULL CHECK (type IN ('income', 'expense')),
	category_id INTEGER NOT NULL,
	card_id INTEGER,
	transaction_date TEXT NOT NULL,
	due_date TEXT,
	is_completed BOOLEAN NOT NULL DEFAULT 0,
	installment_number INTEGER,
	total_installments INTEGER,
	installment_group_id TEXT,
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	CHECK (
		(installment_number IS NULL AND total_installments IS NULL AND installment_group_id IS NULL) OR
		(installment_number IS NOT NULL AND total_installments IS NOT NULL AND installment_group_id IS NOT NULL)
	)
);
`

func newTestService(t *testing.T) (TransactionService, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	// user 1: category 1 expense, category 2 income
	if _, err := db.Exec(`
		INSERT INTO categories (user_id, name, type) VALUES
			(1, 'Shopping', 'expense'),
			(1, 'Salary', 'income')`); err != nil {
		t.Fatalf("seeding categories: %v", err)
	}

	svc := NewTransactionService(
		db,
		processors.NewInstallmentPlanner(),
		processors.NewInstallmentGrouper(),
		processors.NewStatusAggregator(),
		cache.New(cache.NoExpiration, 0),
	)
	return svc, db
}

func expenseTemplate(start, end time.Time) processors.InstallmentTemplate {
	return processors.InstallmentTemplate{
		Description: "Notebook",
		Amount:      500,
		Type:        models.TypeExpense,
		CategoryID:  1,
		StartDate:   start,
		EndDate:     end,
	}
}

func TestCreateTransaction(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.CreateTransaction(1, models.Transaction{
		Description:     "Groceries",
		Amount:          85.5,
		Type:            models.TypeExpense,
		CategoryID:      1,
		TransactionDate: "2025-01-12",
		// Client-supplied installment metadata must be discarded.
		Installment: &models.InstallmentMeta{Number: 1, Total: 2, GroupID: "forged"},
	})
	if err != nil {
		t.Fatalf("CreateTransaction() unexpected error: %v", err)
	}
	if created.ID == 0 {
		t.Error("created row has no id")
	}
	if created.Installment != nil {
		t.Error("single creation must produce an ordinary row")
	}

	stored, err := svc.GetTransaction(1, created.ID)
	if err != nil {
		t.Fatalf("GetTransaction() unexpected error: %v", err)
	}
	if stored.Installment != nil {
		t.Error("forged installment metadata reached the store")
	}
}

func TestCreateTransactionCategoryChecks(t *testing.T) {
	svc, _ := newTestService(t)

	// income transaction against an expense category
	_, err := svc.CreateTransaction(1, models.Transaction{
		Description:     "Salary",
		Amount:          3000,
		Type:            models.TypeIncome,
		CategoryID:      1,
		TransactionDate: "2025-01-01",
	})
	if !errors.Is(err, ErrCategoryType) {
		t.Errorf("mismatched category type: error = %v, want ErrCategoryType", err)
	}

	_, err = svc.CreateTransaction(1, models.Transaction{
		Description:     "Ghost",
		Amount:          10,
		Type:            models.TypeExpense,
		CategoryID:      99,
		TransactionDate: "2025-01-01",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown category: error = %v, want ErrNotFound", err)
	}

	// Another user cannot use user 1's category.
	_, err = svc.CreateTransaction(2, models.Transaction{
		Description:     "Cross-user",
		Amount:          10,
		Type:            models.TypeExpense,
		CategoryID:      1,
		TransactionDate: "2025-01-01",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign category: error = %v, want ErrNotFound", err)
	}
}

func TestCreateInstallmentPlan(t *testing.T) {
	svc, db := newTestService(t)

	start := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC)

	rows, err := svc.CreateInstallmentPlan(1, expenseTemplate(start, end))
	if err != nil {
		t.Fatalf("CreateInstallmentPlan() unexpected error: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("plan produced %d rows, want 4", len(rows))
	}

	groupID := rows[0].Installment.GroupID
	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE installment_group_id = ?`, groupID).Scan(&count)
	if err != nil {
		t.Fatalf("counting persisted rows: %v", err)
	}
	if count != 4 {
		t.Errorf("persisted %d rows, want 4", count)
	}

	for i, row := range rows {
		if row.ID == 0 {
			t.Errorf("row %d has no id after insert", i)
		}
		if row.Installment.GroupID != groupID {
			t.Errorf("row %d group id = %q, want %q", i, row.Installment.GroupID, groupID)
		}
	}
}

func TestCreateInstallmentPlanIsAtomic(t *testing.T) {
	svc, db := newTestService(t)

	// Force a mid-batch failure at the third row.
	if _, err := db.Exec(`
		CREATE TRIGGER fail_third_installment
		BEFORE INSERT ON transactions
		WHEN NEW.installment_number = 3
		BEGIN
			SELECT RAISE(ABORT, 'simulated failure');
		END`); err != nil {
		t.Fatalf("creating trigger: %v", err)
	}

	start := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC)

	_, err := svc.CreateInstallmentPlan(1, expenseTemplate(start, end))
	if !errors.Is(err, ErrBatchInsert) {
		t.Fatalf("error = %v, want ErrBatchInsert", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 0 {
		t.Errorf("found %d rows after failed batch, want 0", count)
	}
}

func TestListGrouped(t *testing.T) {
	svc, _ := newTestService(t)

	start := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	if _, err := svc.CreateInstallmentPlan(1, expenseTemplate(start, end)); err != nil {
		t.Fatalf("CreateInstallmentPlan() unexpected error: %v", err)
	}
	if _, err := svc.CreateTransaction(1, models.Transaction{
		Description:     "Groceries",
		Amount:          85.5,
		Type:            models.TypeExpense,
		CategoryID:      1,
		TransactionDate: "2025-01-12",
	}); err != nil {
		t.Fatalf("CreateTransaction() unexpected error: %v", err)
	}

	grouped, err := svc.ListGrouped(1)
	if err != nil {
		t.Fatalf("ListGrouped() unexpected error: %v", err)
	}
	if len(grouped.Groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(grouped.Groups))
	}
	if grouped.Groups[0].TotalInstallments != 3 {
		t.Errorf("total installments = %d, want 3", grouped.Groups[0].TotalInstallments)
	}
	if len(grouped.Individual) != 1 {
		t.Fatalf("got %d individuals, want 1", len(grouped.Individual))
	}

	// Second read comes from the cache and must match.
	again, err := svc.ListGrouped(1)
	if err != nil {
		t.Fatalf("ListGrouped() unexpected error on cached read: %v", err)
	}
	if len(again.Groups) != 1 || len(again.Individual) != 1 {
		t.Error("cached read diverged from the first")
	}

	// A write invalidates the cache; the new row must appear.
	if _, err := svc.CreateTransaction(1, models.Transaction{
		Description:     "Pharmacy",
		Amount:          20,
		Type:            models.TypeExpense,
		CategoryID:      1,
		TransactionDate: "2025-02-02",
	}); err != nil {
		t.Fatalf("CreateTransaction() unexpected error: %v", err)
	}
	refreshed, err := svc.ListGrouped(1)
	if err != nil {
		t.Fatalf("ListGrouped() unexpected error after write: %v", err)
	}
	if len(refreshed.Individual) != 2 {
		t.Errorf("got %d individuals after write, want 2", len(refreshed.Individual))
	}
}

func TestSetGroupCompletion(t *testing.T) {
	svc, db := newTestService(t)

	start := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	rows, err := svc.CreateInstallmentPlan(1, expenseTemplate(start, end))
	if err != nil {
		t.Fatalf("CreateInstallmentPlan() unexpected error: %v", err)
	}
	groupID := rows[0].Installment.GroupID

	result, err := svc.SetGroupCompletion(1, groupID, true)
	if err != nil {
		t.Fatalf("SetGroupCompletion() unexpected error: %v", err)
	}
	if len(result.Applied) != 3 || len(result.Skipped) != 0 || len(result.Failed) != 0 {
		t.Errorf("result = %+v, want 3 applied", result)
	}

	var pending int
	err = db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE installment_group_id = ? AND is_completed = 0`, groupID).Scan(&pending)
	if err != nil {
		t.Fatalf("counting pending rows: %v", err)
	}
	if pending != 0 {
		t.Errorf("%d members still pending, want 0", pending)
	}

	// Re-applying the same target issues no writes.
	result, err = svc.SetGroupCompletion(1, groupID, true)
	if err != nil {
		t.Fatalf("SetGroupCompletion() unexpected error: %v", err)
	}
	if len(result.Applied) != 0 || len(result.Skipped) != 3 {
		t.Errorf("repeat result = %+v, want 3 skipped", result)
	}

	if _, err := svc.SetGroupCompletion(1, "no-such-group", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown group: error = %v, want ErrNotFound", err)
	}
	if _, err := svc.SetGroupCompletion(2, groupID, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign group: error = %v, want ErrNotFound", err)
	}
}

func TestSetCompletionByIDs(t *testing.T) {
	svc, _ := newTestService(t)

	var ids []int64
	for _, desc := range []string{"Gym", "Gym", "Gym"} {
		created, err := svc.CreateTransaction(1, models.Transaction{
			Description:     desc,
			Amount:          90,
			Type:            models.TypeExpense,
			CategoryID:      1,
			TransactionDate: "2025-01-03",
		})
		if err != nil {
			t.Fatalf("CreateTransaction() unexpected error: %v", err)
		}
		ids = append(ids, created.ID)
	}

	result, err := svc.SetCompletionByIDs(1, ids[:2], true)
	if err != nil {
		t.Fatalf("SetCompletionByIDs() unexpected error: %v", err)
	}
	if len(result.Applied) != 2 {
		t.Errorf("applied = %v, want both requested ids", result.Applied)
	}

	third, err := svc.GetTransaction(1, ids[2])
	if err != nil {
		t.Fatalf("GetTransaction() unexpected error: %v", err)
	}
	if third.IsCompleted {
		t.Error("row outside the requested set was modified")
	}

	if _, err := svc.SetCompletionByIDs(1, []int64{9999}, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown ids: error = %v, want ErrNotFound", err)
	}
}

func TestDeleteInstallmentGroup(t *testing.T) {
	svc, db := newTestService(t)

	start := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC)
	rows, err := svc.CreateInstallmentPlan(1, expenseTemplate(start, end))
	if err != nil {
		t.Fatalf("CreateInstallmentPlan() unexpected error: %v", err)
	}
	groupID := rows[0].Installment.GroupID

	if _, err := svc.DeleteInstallmentGroup(2, groupID); !errors.Is(err, ErrNotFound) {
		t.Errorf("foreign delete: error = %v, want ErrNotFound", err)
	}

	deleted, err := svc.DeleteInstallmentGroup(1, groupID)
	if err != nil {
		t.Fatalf("DeleteInstallmentGroup() unexpected error: %v", err)
	}
	if deleted != 4 {
		t.Errorf("deleted = %d, want 4", deleted)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 0 {
		t.Errorf("%d rows remain after group delete, want 0", count)
	}
}

func TestUpdateTransactionPreservesMembership(t *testing.T) {
	svc, _ := newTestService(t)

	start := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC)
	rows, err := svc.CreateInstallmentPlan(1, expenseTemplate(start, end))
	if err != nil {
		t.Fatalf("CreateInstallmentPlan() unexpected error: %v", err)
	}

	edit := rows[0]
	edit.Description = "Notebook (renamed)"
	edit.Amount = 450
	// The update path must ignore any client attempt to clear membership.
	edit.Installment = nil

	updated, err := svc.UpdateTransaction(1, edit)
	if err != nil {
		t.Fatalf("UpdateTransaction() unexpected error: %v", err)
	}
	if updated.Description != "Notebook (renamed)" || updated.Amount != 450 {
		t.Errorf("updated row = %+v, want edited fields applied", updated)
	}
	if updated.Installment == nil {
		t.Fatal("installment membership was lost on update")
	}
	if updated.Installment.GroupID != rows[0].Installment.GroupID {
		t.Errorf("group id changed: %q -> %q", rows[0].Installment.GroupID, updated.Installment.GroupID)
	}
}
