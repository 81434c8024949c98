// Package analytics compares a user's spending per category against an
// outlier-trimmed population baseline.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/finagent/internal/models"
	"github.com/mmynk/finagent/internal/storage"
)

// MinPopulationUsers is the number of distinct users a category needs before
// a population average is reported for it.
const MinPopulationUsers = 5

var ErrInvalidWindow = errors.New("lookback window must not be negative")

// TransactionLister is the read side of the transaction store.
type TransactionLister interface {
	ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]*models.Transaction, error)
}

// Converter converts an amount between currencies.
type Converter interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

// Aggregate maps category to total spend over a lookback window in one currency.
type Aggregate struct {
	Currency     string
	LookbackDays int
	Totals       map[string]float64

	// Unconverted counts transactions included at their original amount
	// because no exchange rate was available.
	Unconverted int

	// Insufficient lists population categories omitted for having fewer than
	// MinPopulationUsers contributors, with their contributor count.
	Insufficient map[string]int
}

func newAggregate(currency string, lookbackDays int) *Aggregate {
	return &Aggregate{
		Currency:     strings.ToUpper(currency),
		LookbackDays: lookbackDays,
		Totals:       make(map[string]float64),
		Insufficient: make(map[string]int),
	}
}

// Aggregator builds category aggregates from stored transactions.
type Aggregator struct {
	txs  TransactionLister
	conv Converter
	now  func() time.Time
}

// NewAggregator creates an Aggregator reading from txs and converting with conv.
func NewAggregator(txs TransactionLister, conv Converter) *Aggregator {
	return &Aggregator{txs: txs, conv: conv, now: time.Now}
}

// AggregateUser sums one user's spending per category over the last lookbackDays.
func (a *Aggregator) AggregateUser(ctx context.Context, userID string, lookbackDays int, currency string) (*Aggregate, error) {
	if lookbackDays < 0 {
		return nil, ErrInvalidWindow
	}

	txs, err := a.txs.ListTransactions(ctx, storage.TransactionFilter{
		UserID: userID,
		Since:  a.cutoff(lookbackDays),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list user transactions: %w", err)
	}

	agg := newAggregate(currency, lookbackDays)
	for _, tx := range txs {
		amount, converted := a.normalize(ctx, tx, agg.Currency)
		if !converted {
			agg.Unconverted++
		}
		agg.Totals[categoryOf(tx)] += amount
	}

	return agg, nil
}

// AggregatePopulation averages per-user category totals across all users
// (except excludeUserID, when set). Categories with fewer than
// MinPopulationUsers contributors are omitted; the rest are IQR-trimmed
// before averaging and rounded to cents.
func (a *Aggregator) AggregatePopulation(ctx context.Context, lookbackDays int, currency, excludeUserID string) (*Aggregate, error) {
	if lookbackDays < 0 {
		return nil, ErrInvalidWindow
	}

	txs, err := a.txs.ListTransactions(ctx, storage.TransactionFilter{
		ExcludeUserID: excludeUserID,
		Since:         a.cutoff(lookbackDays),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list population transactions: %w", err)
	}

	agg := newAggregate(currency, lookbackDays)

	// perUser[user][category] = total
	perUser := make(map[string]map[string]float64)
	for _, tx := range txs {
		if excludeUserID != "" && tx.UserID == excludeUserID {
			continue
		}
		amount, converted := a.normalize(ctx, tx, agg.Currency)
		if !converted {
			agg.Unconverted++
		}
		if _, ok := perUser[tx.UserID]; !ok {
			perUser[tx.UserID] = make(map[string]float64)
		}
		perUser[tx.UserID][categoryOf(tx)] += amount
	}

	users := make([]string, 0, len(perUser))
	for user := range perUser {
		users = append(users, user)
	}
	sort.Strings(users)

	byCategory := make(map[string][]float64)
	for _, user := range users {
		for category, total := range perUser[user] {
			byCategory[category] = append(byCategory[category], total)
		}
	}

	for category, totals := range byCategory {
		if len(totals) < MinPopulationUsers {
			agg.Insufficient[category] = len(totals)
			continue
		}
		cleaned := RemoveOutliers(totals)
		if len(cleaned) == 0 {
			continue
		}
		agg.Totals[category] = roundTo(mean(cleaned), 2)
	}

	return agg, nil
}

// normalize converts tx into currency. On failure it returns the original
// amount and false.
func (a *Aggregator) normalize(ctx context.Context, tx *models.Transaction, currency string) (float64, bool) {
	if tx.Currency == "" || strings.EqualFold(tx.Currency, currency) {
		return tx.Amount, true
	}
	converted, err := a.conv.Convert(ctx, tx.Amount, tx.Currency, currency)
	if err != nil {
		slog.Warn("Conversion unavailable, using original amount",
			"transaction_id", tx.ID,
			"from", tx.Currency,
			"to", currency,
			"amount", tx.Amount,
			"error", err,
		)
		return tx.Amount, false
	}
	return converted, true
}

// cutoff returns the first date inside the window as YYYY-MM-DD.
func (a *Aggregator) cutoff(lookbackDays int) string {
	return a.now().AddDate(0, 0, -lookbackDays).Format(models.DateLayout)
}

func categoryOf(tx *models.Transaction) string {
	if strings.TrimSpace(tx.Category) == "" {
		return models.DefaultCategory
	}
	return tx.Category
}

func mean(values []float64) float64 {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.Div(decimal.NewFromInt(int64(len(values)))).InexactFloat64()
}

func roundTo(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
