// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/finagent/internal/models"
)

// ErrNotFound is returned when a scoped lookup matches nothing.
var ErrNotFound = errors.New("not found")

// TransactionFilter selects transactions. Zero fields do not filter.
type TransactionFilter struct {
	// UserID restricts results to one user.
	UserID string

	// ExcludeUserID drops one user's transactions (population queries).
	ExcludeUserID string

	// Since keeps transactions dated on or after this YYYY-MM-DD date.
	Since string
}

// DebtFilter selects a user's debts.
type DebtFilter struct {
	// Paid restricts by paid flag when non-nil.
	Paid *bool
}

// TransactionStore persists transactions.
type TransactionStore interface {
	// CreateTransaction persists a transaction. ID and CreatedAt are populated by the store.
	CreateTransaction(ctx context.Context, tx *models.Transaction) error

	// ListTransactions returns transactions matching filter, oldest first.
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*models.Transaction, error)

	// UpdateTransactionSplit overwrites the split fields (is_split, split_with,
	// split_amounts, gst) of one of tx.UserID's transactions.
	// Returns ErrNotFound if the transaction does not exist for that user.
	UpdateTransactionSplit(ctx context.Context, tx *models.Transaction) error
}

// LedgerStore persists friends and debts.
type LedgerStore interface {
	ListFriends(ctx context.Context, userID string) ([]*models.Friend, error)
	CreateFriend(ctx context.Context, friend *models.Friend) error

	CreateDebt(ctx context.Context, debt *models.Debt) error
	ListDebts(ctx context.Context, userID string, filter DebtFilter) ([]*models.Debt, error)

	// SetDebtPaid updates the paid flag of one of userID's debts.
	// Returns ErrNotFound if the debt does not exist for that user.
	SetDebtPaid(ctx context.Context, userID, debtID string, paid bool) error
}

// Store defines the full storage surface.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	TransactionStore
	LedgerStore

	// Close releases any resources held by the store.
	Close() error
}
