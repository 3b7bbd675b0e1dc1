// backend/src/services/category_service.go
package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/thucosta0/financepro/backend/src/models"
)

type categoryServiceImpl struct {
	db *sql.DB
}

func NewCategoryService(db *sql.DB) CategoryService {
	return &categoryServiceImpl{db: db}
}

// ErrDuplicateName signals a unique constraint hit on (user_id, name, type).
var ErrDuplicateName = fmt.Errorf("name already in use")

func (s *categoryServiceImpl) CreateCategory(userID int64, c models.Category) (*models.Category, error) {
	c.UserID = userID
	c.CreatedAt = time.Now()

	result, err := s.db.Exec(`
		INSERT INTO categories (user_id, name, type, color, icon, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, string(c.Type), c.Color, c.Icon, c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("inserting category: %w", err)
	}
	if c.ID, err = result.LastInsertId(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *categoryServiceImpl) ListCategories(userID int64) ([]models.Category, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, name, type, color, icon, created_at
		FROM categories
		WHERE user_id = ?
		ORDER BY type ASC, name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		var catType string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &catType, &c.Color, &c.Icon, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Type = models.TransactionType(catType)
		categories = append(categories, c)
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, rows.Err()
}

func (s *categoryServiceImpl) UpdateCategory(userID int64, c models.Category) (*models.Category, error) {
	// Type is immutable after creation so existing transactions keep a
	// consistent income/expense classification.
	result, err := s.db.Exec(`
		UPDATE categories SET name = ?, color = ?, icon = ? WHERE id = ? AND user_id = ?`,
		c.Name, c.Color, c.Icon, c.ID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("updating category: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	var catType string
	err = s.db.QueryRow(`SELECT type, created_at FROM categories WHERE id = ? AND user_id = ?`,
		c.ID, userID).Scan(&catType, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.UserID = userID
	c.Type = models.TransactionType(catType)
	return &c, nil
}

func (s *categoryServiceImpl) DeleteCategory(userID, id int64) error {
	// Refuse to orphan the ledger: categories still referenced by any
	// transaction or budget cannot be removed.
	var refs int
	err := s.db.QueryRow(`
		SELECT (SELECT COUNT(*) FROM transactions WHERE category_id = ? AND user_id = ?)
		     + (SELECT COUNT(*) FROM budgets WHERE category_id = ? AND user_id = ?)`,
		id, userID, id, userID).Scan(&refs)
	if err != nil {
		return fmt.Errorf("checking category references: %w", err)
	}
	if refs > 0 {
		return ErrCategoryInUse
	}

	result, err := s.db.Exec(`DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ErrCategoryInUse blocks deletion of categories still referenced by rows.
var ErrCategoryInUse = fmt.Errorf("category is in use")

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
