package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/finagent/internal/models"
	"github.com/mmynk/finagent/internal/storage"
)

// CreateFriend persists a new friend.
func (s *SQLiteStore) CreateFriend(ctx context.Context, friend *models.Friend) error {
	if friend.ID == "" {
		friend.ID = uuid.New().String()
	}
	if friend.CreatedAt == 0 {
		friend.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO friends (id, user_id, name, created_at) VALUES (?, ?, ?, ?)",
		friend.ID, friend.UserID, friend.Name, friend.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert friend: %w", err)
	}

	return nil
}

// ListFriends returns all friends owned by userID, ordered by name.
func (s *SQLiteStore) ListFriends(ctx context.Context, userID string) ([]*models.Friend, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, name, created_at FROM friends WHERE user_id = ? ORDER BY name COLLATE NOCASE",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	defer rows.Close()

	var friends []*models.Friend
	for rows.Next() {
		f := &models.Friend{}
		if err := rows.Scan(&f.ID, &f.UserID, &f.Name, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate friends: %w", err)
	}

	return friends, nil
}

// CreateDebt persists a new unpaid debt.
func (s *SQLiteStore) CreateDebt(ctx context.Context, debt *models.Debt) error {
	if debt.ID == "" {
		debt.ID = uuid.New().String()
	}
	if debt.CreatedAt == 0 {
		debt.CreatedAt = time.Now().Unix()
	}

	var txID any
	if debt.TransactionID != "" {
		txID = debt.TransactionID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO debts (id, user_id, friend_id, transaction_id, amount, description, paid, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		debt.ID, debt.UserID, debt.FriendID, txID, debt.Amount, debt.Description, debt.Paid, debt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert debt: %w", err)
	}

	return nil
}

// ListDebts returns userID's debts with friend names, oldest first.
func (s *SQLiteStore) ListDebts(ctx context.Context, userID string, filter storage.DebtFilter) ([]*models.Debt, error) {
	query := `SELECT d.id, d.user_id, d.friend_id, f.name, COALESCE(d.transaction_id, ''),
		d.amount, d.description, d.paid, d.created_at
		FROM debts d JOIN friends f ON f.id = d.friend_id
		WHERE d.user_id = ?`
	args := []any{userID}
	if filter.Paid != nil {
		query += " AND d.paid = ?"
		args = append(args, *filter.Paid)
	}
	query += " ORDER BY d.created_at, d.rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var debts []*models.Debt
	for rows.Next() {
		d := &models.Debt{}
		if err := rows.Scan(&d.ID, &d.UserID, &d.FriendID, &d.FriendName, &d.TransactionID,
			&d.Amount, &d.Description, &d.Paid, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debts: %w", err)
	}

	return debts, nil
}

// SetDebtPaid updates the paid flag of one of userID's debts.
func (s *SQLiteStore) SetDebtPaid(ctx context.Context, userID, debtID string, paid bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE debts SET paid = ? WHERE id = ? AND user_id = ?",
		paid, debtID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update debt: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("debt %s: %w", debtID, storage.ErrNotFound)
	}

	return nil
}
