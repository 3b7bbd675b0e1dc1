// backend/src/services/transaction_service.go
package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/thucosta0/financepro/backend/src/logger"
	"github.com/thucosta0/financepro/backend/src/models"
	"github.com/thucosta0/financepro/backend/src/processors"
)

const (
	ckGroupedTransactions  = "grouped_transactions_user_%d"
	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type transactionServiceImpl struct {
	db         *sql.DB
	planner    *processors.InstallmentPlanner
	grouper    *processors.InstallmentGrouper
	aggregator *processors.StatusAggregator
	viewCache  *cache.Cache
}

func NewTransactionService(
	db *sql.DB,
	planner *processors.InstallmentPlanner,
	grouper *processors.InstallmentGrouper,
	aggregator *processors.StatusAggregator,
	viewCache *cache.Cache,
) TransactionService {
	return &transactionServiceImpl{
		db:         db,
		planner:    planner,
		grouper:    grouper,
		aggregator: aggregator,
		viewCache:  viewCache,
	}
}

const transactionColumns = `id, user_id, description, amount, type, category_id, card_id,
	transaction_date, due_date, is_completed, installment_number, total_installments,
	installment_group_id, COALESCE(notes, ''), created_at, updated_at`

func scanTransaction(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Transaction, error) {
	var tx models.Transaction
	var cardID sql.NullInt64
	var dueDate, groupID sql.NullString
	var number, total sql.NullInt64

	err := scanner.Scan(
		&tx.ID, &tx.UserID, &tx.Description, &tx.Amount, &tx.Type, &tx.CategoryID, &cardID,
		&tx.TransactionDate, &dueDate, &tx.IsCompleted, &number, &total,
		&groupID, &tx.Notes, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return models.Transaction{}, err
	}

	if cardID.Valid {
		tx.CardID = &cardID.Int64
	}
	if dueDate.Valid {
		tx.DueDate = &dueDate.String
	}
	if groupID.Valid && number.Valid && total.Valid {
		tx.Installment = &models.InstallmentMeta{
			Number:  int(number.Int64),
			Total:   int(total.Int64),
			GroupID: groupID.String,
		}
	}
	return tx, nil
}

func (s *transactionServiceImpl) CreateTransaction(userID int64, tx models.Transaction) (*models.Transaction, error) {
	if err := s.checkCategoryType(userID, tx.CategoryID, tx.Type); err != nil {
		return nil, err
	}

	now := time.Now()
	tx.UserID = userID
	tx.CreatedAt = now
	tx.UpdatedAt = now
	// A user-created row is always ordinary. Installment rows only ever enter
	// the store through CreateInstallmentPlan.
	tx.Installment = nil

	result, err := s.db.Exec(`
		INSERT INTO transactions (user_id, description, amount, type, category_id, card_id,
			transaction_date, due_date, is_completed, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.Description, tx.Amount, tx.Type, tx.CategoryID, nullableInt(tx.CardID),
		tx.TransactionDate, nullableString(tx.DueDate), tx.IsCompleted, tx.Notes, tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting transaction: %w", err)
	}
	tx.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	s.InvalidateUserCache(userID)
	return &tx, nil
}

// CreateInstallmentPlan expands the template and persists every emitted row in
// one database transaction. Either all rows land or none do; a failed batch is
// surfaced as ErrBatchInsert and never retried here.
func (s *transactionServiceImpl) CreateInstallmentPlan(userID int64, tpl processors.InstallmentTemplate) ([]models.Transaction, error) {
	if err := s.checkCategoryType(userID, tpl.CategoryID, tpl.Type); err != nil {
		return nil, err
	}

	rows, err := s.planner.Expand(userID, tpl)
	if err != nil {
		return nil, err
	}

	dbTx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBatchInsert, err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := dbTx.Rollback(); rbErr != nil {
				logger.L.Error("Rollback failed after installment batch error", "userID", userID, "error", rbErr)
			}
		}
	}()

	stmt, err := dbTx.Prepare(`
		INSERT INTO transactions (user_id, description, amount, type, category_id, card_id,
			transaction_date, due_date, is_completed, installment_number, total_installments,
			installment_group_id, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBatchInsert, err)
	}
	defer stmt.Close()

	now := time.Now()
	for i := range rows {
		rows[i].CreatedAt = now
		rows[i].UpdatedAt = now
		result, err := stmt.Exec(
			rows[i].UserID, rows[i].Description, rows[i].Amount, rows[i].Type,
			rows[i].CategoryID, nullableInt(rows[i].CardID),
			rows[i].TransactionDate, nullableString(rows[i].DueDate), rows[i].IsCompleted,
			rows[i].Installment.Number, rows[i].Installment.Total, rows[i].Installment.GroupID,
			rows[i].Notes, rows[i].CreatedAt, rows[i].UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrBatchInsert, i+1, err)
		}
		if rows[i].ID, err = result.LastInsertId(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBatchInsert, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit: %v", ErrBatchInsert, err)
	}
	committed = true

	logger.L.Info("Installment plan created", "userID", userID,
		"groupID", rows[0].Installment.GroupID, "installments", len(rows))
	s.InvalidateUserCache(userID)
	return rows, nil
}

func (s *transactionServiceImpl) ListTransactions(userID int64) ([]models.Transaction, error) {
	rows, err := s.db.Query(`
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = ?
		ORDER BY transaction_date DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

func (s *transactionServiceImpl) ListGrouped(userID int64) (*models.GroupedTransactions, error) {
	cacheKey := fmt.Sprintf(ckGroupedTransactions, userID)
	if cached, found := s.viewCache.Get(cacheKey); found {
		return cached.(*models.GroupedTransactions), nil
	}

	txs, err := s.ListTransactions(userID)
	if err != nil {
		return nil, err
	}
	grouped := s.grouper.Group(txs)
	if grouped.Groups == nil {
		grouped.Groups = []models.TransactionGroup{}
	}
	if grouped.Individual == nil {
		grouped.Individual = []models.Transaction{}
	}

	s.viewCache.Set(cacheKey, &grouped, DefaultCacheExpiration)
	return &grouped, nil
}

func (s *transactionServiceImpl) GetTransaction(userID, id int64) (*models.Transaction, error) {
	row := s.db.QueryRow(`
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = ? AND user_id = ?`, id, userID)
	tx, err := scanTransaction(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// UpdateTransaction edits the mutable fields of one row. The installment
// columns are deliberately absent from the UPDATE: group membership is
// immutable, rows only enter or leave a group via deletion and recreation.
func (s *transactionServiceImpl) UpdateTransaction(userID int64, tx models.Transaction) (*models.Transaction, error) {
	if err := s.checkCategoryType(userID, tx.CategoryID, tx.Type); err != nil {
		return nil, err
	}

	result, err := s.db.Exec(`
		UPDATE transactions
		SET description = ?, amount = ?, type = ?, category_id = ?, card_id = ?,
		    transaction_date = ?, due_date = ?, is_completed = ?, notes = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		tx.Description, tx.Amount, tx.Type, tx.CategoryID, nullableInt(tx.CardID),
		tx.TransactionDate, nullableString(tx.DueDate), tx.IsCompleted, tx.Notes, time.Now(),
		tx.ID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating transaction: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	s.InvalidateUserCache(userID)
	return s.GetTransaction(userID, tx.ID)
}

func (s *transactionServiceImpl) SetTransactionStatus(userID, id int64, completed bool) error {
	result, err := s.db.Exec(`
		UPDATE transactions SET is_completed = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		completed, time.Now(), id, userID)
	if err != nil {
		return fmt.Errorf("updating transaction status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.InvalidateUserCache(userID)
	return nil
}

func (s *transactionServiceImpl) DeleteTransaction(userID, id int64) error {
	result, err := s.db.Exec(`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.InvalidateUserCache(userID)
	return nil
}

// DeleteInstallmentGroup removes every row sharing the group id in one
// statement and reports how many rows went away.
func (s *transactionServiceImpl) DeleteInstallmentGroup(userID int64, groupID string) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM transactions WHERE installment_group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting installment group: %w", err)
	}
	deleted, _ := result.RowsAffected()
	if deleted == 0 {
		return 0, ErrNotFound
	}
	logger.L.Info("Installment group deleted", "userID", userID, "groupID", groupID, "rows", deleted)
	s.InvalidateUserCache(userID)
	return deleted, nil
}

// sqlStatusWriter issues the aggregator's per-row updates, scoped to the owner.
type sqlStatusWriter struct {
	db     *sql.DB
	userID int64
}

func (w *sqlStatusWriter) SetCompleted(id int64, completed bool) error {
	result, err := w.db.Exec(`
		UPDATE transactions SET is_completed = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		completed, time.Now(), id, w.userID)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *transactionServiceImpl) SetGroupCompletion(userID int64, groupID string, target bool) (processors.GroupStatusResult, error) {
	members, err := s.loadGroupMembers(userID, groupID)
	if err != nil {
		return processors.GroupStatusResult{}, err
	}
	if len(members) == 0 {
		return processors.GroupStatusResult{}, ErrNotFound
	}

	result := s.aggregator.Apply(members, target, &sqlStatusWriter{db: s.db, userID: userID})
	s.InvalidateUserCache(userID)
	return result, nil
}

func (s *transactionServiceImpl) SetCompletionByIDs(userID int64, ids []int64, target bool) (processors.GroupStatusResult, error) {
	if len(ids) == 0 {
		return processors.GroupStatusResult{}, ErrNotFound
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.Query(`
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = ? AND id IN (`+placeholders+`)
		ORDER BY id ASC`, args...)
	if err != nil {
		return processors.GroupStatusResult{}, fmt.Errorf("querying members: %w", err)
	}
	defer rows.Close()

	var members []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return processors.GroupStatusResult{}, err
		}
		members = append(members, tx)
	}
	if err := rows.Err(); err != nil {
		return processors.GroupStatusResult{}, err
	}
	if len(members) == 0 {
		return processors.GroupStatusResult{}, ErrNotFound
	}

	result := s.aggregator.Apply(members, target, &sqlStatusWriter{db: s.db, userID: userID})
	s.InvalidateUserCache(userID)
	return result, nil
}

func (s *transactionServiceImpl) loadGroupMembers(userID int64, groupID string) ([]models.Transaction, error) {
	rows, err := s.db.Query(`
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE installment_group_id = ? AND user_id = ?
		ORDER BY installment_number ASC, id ASC`, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("querying group members: %w", err)
	}
	defer rows.Close()

	var members []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, tx)
	}
	return members, rows.Err()
}

func (s *transactionServiceImpl) InvalidateUserCache(userID int64) {
	s.viewCache.Delete(fmt.Sprintf(ckGroupedTransactions, userID))
}

// checkCategoryType verifies the category exists, belongs to the user and has
// the same income/expense type as the row being written.
func (s *transactionServiceImpl) checkCategoryType(userID, categoryID int64, txType models.TransactionType) error {
	var catType string
	err := s.db.QueryRow(`SELECT type FROM categories WHERE id = ? AND user_id = ?`, categoryID, userID).Scan(&catType)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("checking category: %w", err)
	}
	if catType != string(txType) {
		return ErrCategoryType
	}
	return nil
}

func nullableInt(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
