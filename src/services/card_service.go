// backend/src/services/card_service.go
package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/thucosta0/financepro/backend/src/models"
)

type cardServiceImpl struct {
	db *sql.DB
}

func NewCardService(db *sql.DB) CardService {
	return &cardServiceImpl{db: db}
}

func (s *cardServiceImpl) CreateCard(userID int64, c models.Card) (*models.Card, error) {
	c.UserID = userID
	c.CreatedAt = time.Now()

	result, err := s.db.Exec(`
		INSERT INTO cards (user_id, name, brand, last_four_digits, credit_limit, closing_day, due_day, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Brand, c.LastFourDigits, c.CreditLimit, c.ClosingDay, c.DueDay, c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting card: %w", err)
	}
	if c.ID, err = result.LastInsertId(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *cardServiceImpl) ListCards(userID int64) ([]models.Card, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, name, brand, last_four_digits, credit_limit, closing_day, due_day, created_at
		FROM cards
		WHERE user_id = ?
		ORDER BY name ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		var c models.Card
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Brand, &c.LastFourDigits,
			&c.CreditLimit, &c.ClosingDay, &c.DueDay, &c.CreatedAt); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	if cards == nil {
		cards = []models.Card{}
	}
	return cards, rows.Err()
}

func (s *cardServiceImpl) UpdateCard(userID int64, c models.Card) (*models.Card, error) {
	result, err := s.db.Exec(`
		UPDATE cards SET name = ?, brand = ?, last_four_digits = ?, credit_limit = ?, closing_day = ?, due_day = ?
		WHERE id = ? AND user_id = ?`,
		c.Name, c.Brand, c.LastFourDigits, c.CreditLimit, c.ClosingDay, c.DueDay, c.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("updating card: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	c.UserID = userID
	return &c, nil
}

func (s *cardServiceImpl) DeleteCard(userID, id int64) error {
	// Transactions keep their card reference as history; deleting a card
	// detaches them instead of deleting them.
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	if _, err := tx.Exec(`UPDATE transactions SET card_id = NULL WHERE card_id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("detaching transactions: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM cards WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting card: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
