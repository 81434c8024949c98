package calculator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/finagent/internal/models"
)

// FriendBalance is what one friend still owes the owner.
type FriendBalance struct {
	FriendID   string  `json:"friend_id"`
	FriendName string  `json:"friend_name"`
	Amount     float64 `json:"amount"`
	Debts      int     `json:"debts"` // number of unpaid debts
}

// FriendBalances sums unpaid debts per friend. Paid debts are ignored.
// Results are sorted by amount descending, then by name.
func FriendBalances(debts []*models.Debt) []FriendBalance {
	totals := make(map[string]decimal.Decimal)
	balances := make(map[string]*FriendBalance)

	for _, d := range debts {
		if d.Paid {
			continue
		}
		b, ok := balances[d.FriendID]
		if !ok {
			b = &FriendBalance{FriendID: d.FriendID, FriendName: d.FriendName}
			balances[d.FriendID] = b
		}
		totals[d.FriendID] = totals[d.FriendID].Add(decimal.NewFromFloat(d.Amount))
		b.Debts++
	}

	out := make([]FriendBalance, 0, len(balances))
	for id, b := range balances {
		b.Amount = totals[id].Round(2).InexactFloat64()
		out = append(out, *b)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].FriendName < out[j].FriendName
	})
	return out
}
