package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/finagent/internal/models"
	"github.com/mmynk/finagent/internal/storage"
)

const transactionColumns = `id, user_id, merchant, amount, date, category, notes, currency,
	is_split, split_with, split_amounts, my_share, gst, split_confidence, created_at`

// CreateTransaction persists a new transaction.
func (s *SQLiteStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	// Generate ID if not set
	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.CreatedAt == 0 {
		tx.CreatedAt = time.Now().Unix()
	}
	category := tx.Category
	if category == "" {
		category = models.DefaultCategory
	}

	splitWith, err := nullJSON(tx.SplitWith, len(tx.SplitWith) == 0)
	if err != nil {
		return fmt.Errorf("failed to encode split_with: %w", err)
	}
	splitAmounts, err := nullJSON(tx.SplitAmounts, len(tx.SplitAmounts) == 0)
	if err != nil {
		return fmt.Errorf("failed to encode split_amounts: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Merchant, tx.Amount, tx.Date, category, tx.Notes, tx.Currency,
		tx.IsSplit, splitWith, splitAmounts, tx.MyShare, tx.GST, string(tx.SplitConfidence), tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// ListTransactions returns transactions matching filter, oldest first.
func (s *SQLiteStore) ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]*models.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.ExcludeUserID != "" {
		where = append(where, "user_id != ?")
		args = append(args, filter.ExcludeUserID)
	}
	if filter.Since != "" {
		where = append(where, "date >= ?")
		args = append(args, filter.Since)
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, created_at, rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return txs, nil
}

// UpdateTransactionSplit writes back the split fields of a reviewed transaction.
func (s *SQLiteStore) UpdateTransactionSplit(ctx context.Context, tx *models.Transaction) error {
	splitWith, err := nullJSON(tx.SplitWith, len(tx.SplitWith) == 0)
	if err != nil {
		return fmt.Errorf("failed to encode split_with: %w", err)
	}
	splitAmounts, err := nullJSON(tx.SplitAmounts, len(tx.SplitAmounts) == 0)
	if err != nil {
		return fmt.Errorf("failed to encode split_amounts: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET is_split = ?, split_with = ?, split_amounts = ?, gst = ?
		 WHERE id = ? AND user_id = ?`,
		tx.IsSplit, splitWith, splitAmounts, tx.GST, tx.ID, tx.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", tx.ID, storage.ErrNotFound)
	}

	return nil
}

func scanTransaction(rows *sql.Rows) (*models.Transaction, error) {
	var (
		tx           models.Transaction
		splitWith    sql.NullString
		splitAmounts sql.NullString
		myShare      sql.NullFloat64
		gst          sql.NullFloat64
		confidence   string
	)
	err := rows.Scan(&tx.ID, &tx.UserID, &tx.Merchant, &tx.Amount, &tx.Date, &tx.Category, &tx.Notes,
		&tx.Currency, &tx.IsSplit, &splitWith, &splitAmounts, &myShare, &gst, &confidence, &tx.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if splitWith.Valid {
		if err := json.Unmarshal([]byte(splitWith.String), &tx.SplitWith); err != nil {
			return nil, fmt.Errorf("failed to decode split_with for %s: %w", tx.ID, err)
		}
	}
	if splitAmounts.Valid {
		if err := json.Unmarshal([]byte(splitAmounts.String), &tx.SplitAmounts); err != nil {
			return nil, fmt.Errorf("failed to decode split_amounts for %s: %w", tx.ID, err)
		}
	}
	if myShare.Valid {
		tx.MyShare = &myShare.Float64
	}
	if gst.Valid {
		tx.GST = &gst.Float64
	}
	tx.SplitConfidence = models.SplitConfidence(confidence)

	return &tx, nil
}

// nullJSON encodes v as JSON, or returns nil (SQL NULL) when empty is true.
func nullJSON(v any, empty bool) (any, error) {
	if empty {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
