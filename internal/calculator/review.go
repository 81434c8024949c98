package calculator

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/mmynk/finagent/internal/models"
)

// ReviewState is a step in a split transaction's lifecycle.
type ReviewState string

const (
	ReviewParsed      ReviewState = "parsed"
	ReviewUnderReview ReviewState = "under_review"
	ReviewReconciled  ReviewState = "reconciled"
	ReviewPersisted   ReviewState = "persisted"
	ReviewRejected    ReviewState = "rejected"
)

var (
	ErrReviewClosed  = errors.New("review is already persisted or rejected")
	ErrNotReconciled = errors.New("review has not reconciled")
	ErrReviewNotOpen = errors.New("review has not started")
	ErrNegativeShare = errors.New("share must not be negative")
	ErrEmptyName     = errors.New("participant name is required")
)

// Review tracks a split transaction from parsing until it is persisted or
// rejected. Every edit re-runs ResolveSplit. Review is not safe for
// concurrent use.
type Review struct {
	Transaction models.Transaction
	State       ReviewState
	Allocation  Allocation

	// Problem holds the last resolution error, nil once reconciled.
	Problem error
}

// NewReview starts a review in the Parsed state. tx is copied.
func NewReview(tx models.Transaction) *Review {
	tx.SplitWith = slices.Clone(tx.SplitWith)
	tx.SplitAmounts = maps.Clone(tx.SplitAmounts)
	if tx.GST != nil {
		gst := *tx.GST
		tx.GST = &gst
	}
	return &Review{Transaction: tx, State: ReviewParsed}
}

// Clone returns an independent copy of r.
func (r *Review) Clone() *Review {
	c := NewReview(r.Transaction)
	c.State = r.State
	c.Allocation = r.Allocation
	c.Allocation.Shares = slices.Clone(r.Allocation.Shares)
	c.Problem = r.Problem
	return c
}

// Terminal reports whether the review can no longer change.
func (r *Review) Terminal() bool {
	return r.State == ReviewPersisted || r.State == ReviewRejected
}

// Begin moves Parsed to UnderReview and resolves the split. The returned
// error is the resolution problem, if any; the review stays open either way.
func (r *Review) Begin() error {
	if r.Terminal() {
		return ErrReviewClosed
	}
	if r.State != ReviewParsed {
		return fmt.Errorf("cannot begin review in state %s", r.State)
	}
	r.State = ReviewUnderReview
	return r.resolve()
}

// EditShare sets name's explicit share, adding name as a participant if
// needed, and re-resolves. Names match existing participants case-insensitively.
func (r *Review) EditShare(name string, amount float64) error {
	if err := r.editable(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if amount < 0 {
		return ErrNegativeShare
	}

	if existing, ok := r.participant(name); ok {
		name = existing
	}
	if r.Transaction.SplitAmounts == nil {
		r.Transaction.SplitAmounts = make(map[string]float64)
	}
	r.Transaction.SplitAmounts[name] = amount
	if !slices.Contains(r.Transaction.SplitWith, name) {
		r.Transaction.SplitWith = append(r.Transaction.SplitWith, name)
	}
	r.Transaction.IsSplit = true
	return r.resolve()
}

// RemoveParticipant drops name (case-insensitive) from the split and re-resolves.
func (r *Review) RemoveParticipant(name string) error {
	if err := r.editable(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	r.Transaction.SplitWith = slices.DeleteFunc(r.Transaction.SplitWith, func(n string) bool { return strings.EqualFold(n, name) })
	maps.DeleteFunc(r.Transaction.SplitAmounts, func(n string, _ float64) bool { return strings.EqualFold(n, name) })
	return r.resolve()
}

// participant returns the spelling under which name is already a participant.
func (r *Review) participant(name string) (string, bool) {
	for _, n := range r.Transaction.Participants() {
		if strings.EqualFold(n, name) {
			return n, true
		}
	}
	return "", false
}

// SetGST replaces the tax amount (nil clears it) and re-resolves.
func (r *Review) SetGST(gst *float64) error {
	if err := r.editable(); err != nil {
		return err
	}
	if gst != nil && *gst < 0 {
		return ErrNegativeShare
	}
	r.Transaction.GST = gst
	return r.resolve()
}

// MarkPersisted closes a reconciled review after its debts are written.
func (r *Review) MarkPersisted() error {
	if r.Terminal() {
		return ErrReviewClosed
	}
	if r.State != ReviewReconciled {
		return ErrNotReconciled
	}
	r.State = ReviewPersisted
	return nil
}

// Reject cancels the review.
func (r *Review) Reject() error {
	if r.Terminal() {
		return ErrReviewClosed
	}
	r.State = ReviewRejected
	return nil
}

func (r *Review) editable() error {
	if r.Terminal() {
		return ErrReviewClosed
	}
	if r.State == ReviewParsed {
		return ErrReviewNotOpen
	}
	return nil
}

func (r *Review) resolve() error {
	alloc, err := ResolveSplit(InputFromTransaction(&r.Transaction))
	r.Allocation = alloc
	r.Problem = err
	if err != nil {
		r.State = ReviewUnderReview
		return err
	}
	r.State = ReviewReconciled
	return nil
}
