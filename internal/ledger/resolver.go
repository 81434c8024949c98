package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/mmynk/finagent/internal/calculator"
	"github.com/mmynk/finagent/internal/metrics"
	"github.com/mmynk/finagent/internal/models"
)

// DefaultMatchThreshold is the minimum name similarity for reusing a friend.
const DefaultMatchThreshold = 0.8

// Resolver maps participant names to friends and writes debts.
type Resolver struct {
	w         Writer
	threshold float64
}

// NewResolver creates a Resolver writing through w.
func NewResolver(w Writer) *Resolver {
	return &Resolver{w: w, threshold: DefaultMatchThreshold}
}

// Similarity returns 1 - levenshtein/maxlen over case-folded, trimmed names.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// Match finds the friend for name: a case-insensitive exact match first,
// else the most similar friend at or above the threshold.
func (r *Resolver) Match(friends []*models.Friend, name string) (*models.Friend, bool) {
	for _, f := range friends {
		if strings.EqualFold(strings.TrimSpace(f.Name), strings.TrimSpace(name)) {
			return f, true
		}
	}

	var (
		best      *models.Friend
		bestScore float64
	)
	for _, f := range friends {
		score := Similarity(f.Name, name)
		if score >= r.threshold && score > bestScore {
			best, bestScore = f, score
		}
	}
	return best, best != nil
}

// Result lists what Persist wrote.
type Result struct {
	Debts          []*models.Debt   `json:"debts"`
	CreatedFriends []*models.Friend `json:"created_friends"`
}

// Persist writes one unpaid debt per participant with a positive share,
// creating friends on first reference. Writes are independent: a failure
// for one participant is recorded and the rest continue, and the returned
// error is a *PartialWriteError. Invalid allocations are refused.
func (r *Resolver) Persist(ctx context.Context, userID string, tx *models.Transaction, alloc calculator.Allocation) (*Result, error) {
	if !alloc.Valid {
		return nil, fmt.Errorf("refusing to persist: %w", calculator.ErrReconciliation)
	}

	friends, err := r.w.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}

	result := &Result{}
	var failures []ItemFailure

	for _, share := range alloc.Shares {
		if share.Amount <= 0 {
			slog.Debug("Skipping zero share", "name", share.Name, "transaction_id", tx.ID)
			continue
		}

		friend, ok := r.Match(friends, share.Name)
		if ok {
			slog.Debug("Matched friend", "name", share.Name, "friend", friend.Name)
		} else {
			friend = &models.Friend{UserID: userID, Name: strings.TrimSpace(share.Name)}
			if err := r.w.CreateFriend(ctx, friend); err != nil {
				slog.Error("Failed to create friend", "name", share.Name, "error", err)
				metrics.LedgerWriteFailures.WithLabelValues(KindFriend).Inc()
				failures = append(failures, ItemFailure{Name: share.Name, Kind: KindFriend, Err: err})
				continue
			}
			friends = append(friends, friend)
			result.CreatedFriends = append(result.CreatedFriends, friend)
		}

		debt := &models.Debt{
			UserID:        userID,
			FriendID:      friend.ID,
			FriendName:    friend.Name,
			TransactionID: tx.ID,
			Amount:        share.Amount,
			Description:   tx.Merchant,
		}
		if err := r.w.CreateDebt(ctx, debt); err != nil {
			slog.Error("Failed to create debt", "name", share.Name, "amount", share.Amount, "error", err)
			metrics.LedgerWriteFailures.WithLabelValues(KindDebt).Inc()
			failures = append(failures, ItemFailure{Name: share.Name, Kind: KindDebt, Err: err})
			continue
		}
		result.Debts = append(result.Debts, debt)
	}

	if len(failures) > 0 {
		return result, &PartialWriteError{Failures: failures, Written: len(result.Debts)}
	}
	return result, nil
}
