package models

// Friend represents a named counterparty owned by a user.
// Friends are created on first reference during split persistence.
type Friend struct {
	// ID is the unique identifier for the friend (UUID format).
	ID string `json:"id"`

	// UserID is the user who owns this friend record.
	UserID string `json:"user_id"`

	// Name is the display name as first seen in a split.
	Name string `json:"name"`

	// CreatedAt is the Unix timestamp when the friend was created.
	CreatedAt int64 `json:"created_at"`
}

// Debt represents an amount a friend owes the user.
// Debts are only mutated by toggling Paid; they are never deleted.
type Debt struct {
	// ID is the unique identifier for the debt (UUID format).
	ID string `json:"id"`

	// UserID is the creditor (the account owner).
	UserID string `json:"user_id"`

	// FriendID is the debtor.
	FriendID string `json:"friend_id"`

	// FriendName is filled in on reads for display.
	FriendName string `json:"friend_name,omitempty"`

	// TransactionID links back to the split transaction, if stored.
	TransactionID string `json:"transaction_id,omitempty"`

	// Amount is what the friend owes. Always > 0.
	Amount float64 `json:"amount"`

	// Description is derived from the transaction's merchant.
	Description string `json:"description"`

	Paid bool `json:"paid"`

	// CreatedAt is the Unix timestamp when the debt was recorded.
	CreatedAt int64 `json:"created_at"`
}
