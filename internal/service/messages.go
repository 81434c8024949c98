package service

import (
	"github.com/mmynk/finagent/internal/calculator"
	"github.com/mmynk/finagent/internal/ledger"
	"github.com/mmynk/finagent/internal/models"
)

// AnalyticsService messages.

type GetSpendingInsightsRequest struct {
	// LookbackDays defaults to 30.
	LookbackDays int `json:"lookback_days"`

	// Currency defaults to the domestic currency.
	Currency string `json:"currency"`

	// Limit caps each ranked list. Defaults to 3.
	Limit int `json:"limit"`
}

type CategoryAmount struct {
	Category  string  `json:"category"`
	Amount    float64 `json:"amount"`
	Formatted string  `json:"formatted"`
}

type Insight struct {
	Category      string  `json:"category"`
	PctDiff       float64 `json:"pct_diff"`
	DollarDiff    float64 `json:"dollar_diff"`
	FormattedDiff string  `json:"formatted_diff"`
}

type GetSpendingInsightsResponse struct {
	Currency     string `json:"currency"`
	LookbackDays int    `json:"lookback_days"`

	UserTotals       []CategoryAmount `json:"user_totals"`
	PopulationTotals []CategoryAmount `json:"population_totals"`

	Overspending  []Insight `json:"overspending"`
	Underspending []Insight `json:"underspending"`

	// InsufficientCategories had too few users for a population baseline.
	InsufficientCategories []string `json:"insufficient_categories,omitempty"`

	// Unconverted counts the user's transactions kept in their original currency.
	Unconverted int `json:"unconverted"`

	Cached bool `json:"cached"`
}

// LedgerService messages.

type RecordTransactionRequest struct {
	Transaction models.Transaction `json:"transaction"`
}

type RecordTransactionResponse struct {
	Transaction models.Transaction `json:"transaction"`

	// Review is set for split transactions; confirm it to write debts.
	Review *Review `json:"review,omitempty"`
}

type ParseTextRequest struct {
	Text string `json:"text"`
}

type ParseTextResponse struct {
	Transactions []models.Transaction `json:"transactions"`
}

type ParseReceiptRequest struct {
	Image []byte `json:"image"`
	Hint  string `json:"hint,omitempty"`
}

type ParseReceiptResponse struct {
	Transaction models.Transaction `json:"transaction"`
}

// Review is the client view of a split under review.
type Review struct {
	ReviewID    string                 `json:"review_id"`
	State       calculator.ReviewState `json:"state"`
	Transaction models.Transaction     `json:"transaction"`
	Allocation  calculator.Allocation  `json:"allocation"`

	// Problem explains why the allocation did not reconcile.
	Problem string `json:"problem,omitempty"`
}

type ReviewRequest struct {
	ReviewID string `json:"review_id"`
}

type ReviewResponse struct {
	Review Review `json:"review"`
}

type EditSplitReviewRequest struct {
	ReviewID string `json:"review_id"`

	// Shares sets explicit amounts, adding unknown names as participants.
	Shares map[string]float64 `json:"shares,omitempty"`

	// Remove drops participants.
	Remove []string `json:"remove,omitempty"`

	// GST replaces the tax amount when set; ClearGST removes it.
	GST      *float64 `json:"gst,omitempty"`
	ClearGST bool     `json:"clear_gst,omitempty"`
}

type WriteFailure struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

type ConfirmSplitReviewResponse struct {
	Review         Review           `json:"review"`
	Debts          []*models.Debt   `json:"debts"`
	CreatedFriends []*models.Friend `json:"created_friends,omitempty"`

	// Failures lists participants whose records were not written.
	Failures []WriteFailure `json:"failures,omitempty"`
}

type ListDebtsRequest struct {
	Paid *bool `json:"paid,omitempty"`
}

type ListDebtsResponse struct {
	Debts []*models.Debt `json:"debts"`
}

type SetDebtPaidRequest struct {
	DebtID string `json:"debt_id"`
	Paid   bool   `json:"paid"`
}

type SetDebtPaidResponse struct{}

type ListBalancesRequest struct{}

type ListBalancesResponse struct {
	Balances []calculator.FriendBalance `json:"balances"`
	Total    float64                    `json:"total"`
}

func writeFailures(failures []ledger.ItemFailure) []WriteFailure {
	out := make([]WriteFailure, len(failures))
	for i, f := range failures {
		out[i] = WriteFailure{Name: f.Name, Kind: f.Kind, Error: f.Err.Error()}
	}
	return out
}
