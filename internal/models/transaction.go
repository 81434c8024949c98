package models

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// DateLayout is the storage and wire format of Transaction.Date.
const DateLayout = "2006-01-02"

// DefaultCategory is used when a transaction has no category.
const DefaultCategory = "Other"

var (
	ErrInvalidAmount   = errors.New("amount must be greater than zero")
	ErrEmptyMerchant   = errors.New("merchant is required")
	ErrInvalidDate     = errors.New("date must be YYYY-MM-DD")
	ErrInvalidCurrency = errors.New("currency must be a 3-letter code")
	ErrNoSplitPartners = errors.New("split transaction needs at least one person to split with")
)

// SplitConfidence describes where a transaction's split participants came from.
type SplitConfidence string

const (
	// SplitConfidenceExplicit means the extractor returned split_with or split_amounts.
	SplitConfidenceExplicit SplitConfidence = "explicit"

	// SplitConfidenceLow means participants were guessed from free text.
	SplitConfidenceLow SplitConfidence = "low"
)

// Transaction represents one purchase event.
type Transaction struct {
	// ID is the unique identifier (UUID format). Assigned by the store.
	ID string `json:"id,omitempty"`

	// UserID is the owner of the transaction.
	UserID string `json:"user_id,omitempty"`

	Merchant string `json:"merchant"`

	// Amount is the total bill, not the owner's share.
	Amount float64 `json:"amount"`

	// Date is a civil date in DateLayout. Relative terms are resolved at ingestion.
	Date string `json:"date"`

	Category string `json:"category,omitempty"`
	Notes    string `json:"notes,omitempty"`

	// Currency is an ISO-like 3-letter code.
	Currency string `json:"currency,omitempty"`

	IsSplit   bool     `json:"is_split"`
	SplitWith []string `json:"split_with,omitempty"`

	// SplitAmounts maps a person to their explicit share.
	// nil or empty means "compute equally".
	SplitAmounts map[string]float64 `json:"split_amounts,omitempty"`

	// MyShare is the owner's share as stated by the extractor. nil means derive it.
	MyShare *float64 `json:"my_share,omitempty"`

	// GST is tax apportioned equally across every participant including the owner.
	GST *float64 `json:"gst,omitempty"`

	// SplitConfidence is empty for non-split transactions.
	SplitConfidence SplitConfidence `json:"split_confidence,omitempty"`

	// CreatedAt is the Unix timestamp when the transaction was stored.
	CreatedAt int64 `json:"created_at,omitempty"`
}

// Participants returns the people the owner splits with: SplitWith in order,
// followed by any SplitAmounts keys not already listed, sorted by name.
func (t *Transaction) Participants() []string {
	seen := make(map[string]bool, len(t.SplitWith))
	out := make([]string, 0, len(t.SplitWith)+len(t.SplitAmounts))
	for _, name := range t.SplitWith {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	extra := make([]string, 0)
	for name := range t.SplitAmounts {
		if name != "" && !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// ParsedDate returns Date as a time in UTC.
func (t *Transaction) ParsedDate() (time.Time, error) {
	d, err := time.Parse(DateLayout, t.Date)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// Validate checks the fields a stored transaction must have.
func (t *Transaction) Validate() error {
	if strings.TrimSpace(t.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if _, err := t.ParsedDate(); err != nil {
		return err
	}
	if len(t.Currency) != 3 {
		return ErrInvalidCurrency
	}
	if t.IsSplit && len(t.Participants()) == 0 {
		return ErrNoSplitPartners
	}
	return nil
}
