package calculator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/finagent/internal/metrics"
	"github.com/mmynk/finagent/internal/models"
)

// Method records how an allocation was produced.
type Method string

const (
	// MethodEqual splits the amount equally because no explicit amounts were given.
	MethodEqual Method = "equal"

	// MethodExplicit uses the per-person amounts plus any apportioned GST.
	MethodExplicit Method = "explicit"

	// MethodEqualFallback discards explicit amounts that overshoot the bill.
	MethodEqualFallback Method = "equal_fallback"
)

var (
	// overshootFactor is how far participant allocations may exceed the
	// amount before explicit amounts are discarded.
	overshootFactor = decimal.RequireFromString("1.05")

	// validationTolerance is the largest accepted gap between the sum of
	// all shares and the amount (exclusive).
	validationTolerance = decimal.RequireFromString("0.01")

	// minOwnerShare floors the owner's derived share.
	minOwnerShare = decimal.RequireFromString("0.01")
)

var (
	ErrNoParticipants = errors.New("must have at least one participant")
	ErrInvalidAmount  = errors.New("amount must be greater than zero")
	ErrReconciliation = errors.New("split does not reconcile with amount")
)

// ReconciliationError reports an allocation whose shares do not add up to
// the amount. It matches ErrReconciliation with errors.Is.
type ReconciliationError struct {
	Amount float64
	Total  float64
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("split does not reconcile: shares total %.2f, amount %.2f", e.Total, e.Amount)
}

func (e *ReconciliationError) Is(target error) bool {
	return target == ErrReconciliation
}

// SplitInput is the data needed to allocate one bill.
type SplitInput struct {
	// Amount is the full bill including tax.
	Amount float64

	// Participants are the people splitting with the owner, owner excluded.
	Participants []string

	// Amounts are explicit per-person shares. Empty means split equally.
	// Participants missing from a non-empty map start at zero.
	Amounts map[string]float64

	// GST is tax to spread over every participant and the owner.
	GST *float64
}

// InputFromTransaction builds a SplitInput from a transaction candidate.
// MyShare is not consulted; the owner's share is always derived.
func InputFromTransaction(tx *models.Transaction) SplitInput {
	return SplitInput{
		Amount:       tx.Amount,
		Participants: tx.Participants(),
		Amounts:      tx.SplitAmounts,
		GST:          tx.GST,
	}
}

// Share is one participant's allocated amount.
type Share struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Allocation is the resolved split of a bill. Amounts are rounded to cents.
type Allocation struct {
	Method     Method  `json:"method"`
	Shares     []Share `json:"shares"`
	OwnerShare float64 `json:"owner_share"`
	Total      float64 `json:"total"`
	Amount     float64 `json:"amount"`

	// Valid is false when the shares failed reconciliation and must not be persisted.
	Valid bool `json:"valid"`
}

// ShareOf returns the allocated amount for name.
func (a Allocation) ShareOf(name string) (float64, bool) {
	for _, s := range a.Shares {
		if s.Name == name {
			return s.Amount, true
		}
	}
	return 0, false
}

// ResolveSplit computes each participant's share and the owner's share.
//
// Algorithm:
//   - explicit amounts: start from Amounts, add GST / (participants + 1) to
//     each participant, owner gets amount - sum, floored at 0.01
//   - if participant allocations exceed amount * 1.05, fall back to equal split
//   - no explicit amounts: amount / (participants + 1) for everybody
//   - |sum of all shares - amount| >= 0.01 fails validation
//
// On validation failure the allocation is still returned, with Valid=false,
// alongside a *ReconciliationError.
func ResolveSplit(in SplitInput) (Allocation, error) {
	if in.Amount <= 0 {
		return Allocation{}, ErrInvalidAmount
	}
	if len(in.Participants) == 0 {
		return Allocation{}, ErrNoParticipants
	}

	amount := decimal.NewFromFloat(in.Amount)

	var (
		method Method
		shares []decimal.Decimal
		owner  decimal.Decimal
	)
	if len(in.Amounts) == 0 {
		method = MethodEqual
		shares, owner = equalSplit(amount, len(in.Participants))
	} else {
		method = MethodExplicit
		shares, owner = explicitSplit(amount, in)

		sum := decimal.Sum(decimal.Zero, shares...)
		if sum.GreaterThan(amount.Mul(overshootFactor)) {
			method = MethodEqualFallback
			shares, owner = equalSplit(amount, len(in.Participants))
		}
	}

	total := decimal.Sum(owner, shares...)

	alloc := Allocation{
		Method:     method,
		Shares:     make([]Share, len(in.Participants)),
		OwnerShare: cents(owner),
		Total:      cents(total),
		Amount:     in.Amount,
		Valid:      total.Sub(amount).Abs().LessThan(validationTolerance),
	}
	for i, name := range in.Participants {
		alloc.Shares[i] = Share{Name: name, Amount: cents(shares[i])}
	}

	metrics.SplitResolutions.WithLabelValues(string(method)).Inc()
	if !alloc.Valid {
		metrics.ReconciliationFailures.Inc()
		return alloc, &ReconciliationError{Amount: in.Amount, Total: alloc.Total}
	}
	return alloc, nil
}

func equalSplit(amount decimal.Decimal, participants int) ([]decimal.Decimal, decimal.Decimal) {
	each := amount.Div(decimal.NewFromInt(int64(participants + 1)))
	shares := make([]decimal.Decimal, participants)
	for i := range shares {
		shares[i] = each
	}
	return shares, each
}

func explicitSplit(amount decimal.Decimal, in SplitInput) ([]decimal.Decimal, decimal.Decimal) {
	gstShare := decimal.Zero
	if in.GST != nil && *in.GST > 0 {
		gstShare = decimal.NewFromFloat(*in.GST).Div(decimal.NewFromInt(int64(len(in.Participants) + 1)))
	}

	shares := make([]decimal.Decimal, len(in.Participants))
	for i, name := range in.Participants {
		shares[i] = decimal.NewFromFloat(in.Amounts[name]).Add(gstShare)
	}

	owner := amount.Sub(decimal.Sum(decimal.Zero, shares...))
	if owner.LessThan(minOwnerShare) {
		owner = minOwnerShare
	}
	return shares, owner
}

func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
