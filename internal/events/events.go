// Package events publishes ledger changes to interested consumers.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// DebtsCreated is emitted after a split's debts are written.
type DebtsCreated struct {
	UserID        string       `json:"user_id"`
	TransactionID string       `json:"transaction_id,omitempty"`
	Merchant      string       `json:"merchant"`
	Currency      string       `json:"currency"`
	Debts         []DebtRecord `json:"debts"`
	Timestamp     time.Time    `json:"timestamp"`
}

// DebtRecord is one debt in a DebtsCreated event.
type DebtRecord struct {
	DebtID     string  `json:"debt_id"`
	FriendID   string  `json:"friend_id"`
	FriendName string  `json:"friend_name"`
	Amount     float64 `json:"amount"`
}

// ToJSON converts the event to JSON bytes.
func (e DebtsCreated) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// DebtsCreatedFromJSON decodes an event.
func DebtsCreatedFromJSON(data []byte) (DebtsCreated, error) {
	var e DebtsCreated
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher sends ledger events.
type Publisher interface {
	PublishDebtsCreated(ctx context.Context, event DebtsCreated) error
}

// Noop discards events. Used when no broker is configured.
type Noop struct{}

func (Noop) PublishDebtsCreated(context.Context, DebtsCreated) error { return nil }
