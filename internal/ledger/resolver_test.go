package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/finagent/internal/calculator"
	"github.com/mmynk/finagent/internal/models"
)

type fakeWriter struct {
	friends    []*models.Friend
	debts      []*models.Debt
	listErr    error
	failFriend map[string]error
	failDebt   map[string]error
	nextID     int
}

func (f *fakeWriter) ListFriends(_ context.Context, userID string) ([]*models.Friend, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Friend
	for _, fr := range f.friends {
		if fr.UserID == userID {
			out = append(out, fr)
		}
	}
	return out, nil
}

func (f *fakeWriter) CreateFriend(_ context.Context, friend *models.Friend) error {
	if err := f.failFriend[friend.Name]; err != nil {
		return err
	}
	f.nextID++
	friend.ID = fmt.Sprintf("friend-%d", f.nextID)
	f.friends = append(f.friends, friend)
	return nil
}

func (f *fakeWriter) CreateDebt(_ context.Context, debt *models.Debt) error {
	if err := f.failDebt[debt.FriendName]; err != nil {
		return err
	}
	f.nextID++
	debt.ID = fmt.Sprintf("debt-%d", f.nextID)
	f.debts = append(f.debts, debt)
	return nil
}

func resolve(t *testing.T, tx *models.Transaction) calculator.Allocation {
	t.Helper()
	alloc, err := calculator.ResolveSplit(calculator.InputFromTransaction(tx))
	require.NoError(t, err)
	return alloc
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"Alice", "alice", 1},
		{"Jonathan", "Jonathon", 0.875},
		{"Bob", "Rob", 2.0 / 3.0},
		{"", "", 1},
		{"Al", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestResolver_Match(t *testing.T) {
	r := NewResolver(&fakeWriter{})
	friends := []*models.Friend{
		{ID: "1", Name: "Jonathan"},
		{ID: "2", Name: "Priya"},
		{ID: "3", Name: "priya "},
	}

	f, ok := r.Match(friends, "PRIYA")
	require.True(t, ok)
	assert.Equal(t, "2", f.ID)

	f, ok = r.Match(friends, "Jonathon")
	require.True(t, ok)
	assert.Equal(t, "1", f.ID)

	_, ok = r.Match(friends, "Bob")
	assert.False(t, ok)
}

func TestResolver_Persist(t *testing.T) {
	w := &fakeWriter{friends: []*models.Friend{
		{ID: "existing", UserID: "u1", Name: "alice"},
		{ID: "other", UserID: "u2", Name: "Bob"},
	}}
	r := NewResolver(w)

	tx := &models.Transaction{
		ID:        "tx-1",
		Merchant:  "Hawker Centre",
		Amount:    90,
		IsSplit:   true,
		SplitWith: []string{"Alice", "Bob"},
	}

	res, err := r.Persist(context.Background(), "u1", tx, resolve(t, tx))
	require.NoError(t, err)

	require.Len(t, res.Debts, 2)
	assert.Equal(t, "existing", res.Debts[0].FriendID)
	assert.Equal(t, 30.0, res.Debts[0].Amount)
	assert.Equal(t, "Hawker Centre", res.Debts[0].Description)
	assert.Equal(t, "tx-1", res.Debts[0].TransactionID)
	assert.False(t, res.Debts[0].Paid)

	// Bob belongs to another user, so a new friend is created for u1.
	require.Len(t, res.CreatedFriends, 1)
	assert.Equal(t, "Bob", res.CreatedFriends[0].Name)
	assert.Equal(t, "u1", res.CreatedFriends[0].UserID)
	assert.Equal(t, res.CreatedFriends[0].ID, res.Debts[1].FriendID)
}

func TestResolver_PersistReusesBatchFriend(t *testing.T) {
	w := &fakeWriter{}
	r := NewResolver(w)

	tx := &models.Transaction{
		Merchant:  "Cab",
		Amount:    30,
		SplitWith: []string{"Sam", "sam"},
		IsSplit:   true,
	}
	alloc := calculator.Allocation{
		Valid:  true,
		Shares: []calculator.Share{{Name: "Sam", Amount: 10}, {Name: "sam", Amount: 10}},
	}

	res, err := r.Persist(context.Background(), "u1", tx, alloc)
	require.NoError(t, err)
	assert.Len(t, res.CreatedFriends, 1)
	assert.Len(t, res.Debts, 2)
	assert.Equal(t, res.Debts[0].FriendID, res.Debts[1].FriendID)
}

func TestResolver_PersistPartialFailure(t *testing.T) {
	errBoom := errors.New("boom")
	w := &fakeWriter{
		failFriend: map[string]error{"Bob": errBoom},
		failDebt:   map[string]error{"Carol": errBoom},
	}
	r := NewResolver(w)

	tx := &models.Transaction{
		Merchant:  "Groceries",
		Amount:    100,
		IsSplit:   true,
		SplitWith: []string{"Alice", "Bob", "Carol"},
	}

	res, err := r.Persist(context.Background(), "u1", tx, resolve(t, tx))
	require.Error(t, err)

	pw, ok := AsPartialWrite(err)
	require.True(t, ok)
	assert.Equal(t, 1, pw.Written)
	require.Len(t, pw.Failures, 2)
	assert.Equal(t, ItemFailure{Name: "Bob", Kind: KindFriend, Err: errBoom}, pw.Failures[0])
	assert.Equal(t, KindDebt, pw.Failures[1].Kind)
	assert.ErrorIs(t, err, errBoom)

	// Alice's debt stands.
	require.Len(t, res.Debts, 1)
	assert.Equal(t, "Alice", res.Debts[0].FriendName)
	assert.Len(t, w.debts, 1)
}

func TestResolver_PersistRefusesInvalid(t *testing.T) {
	w := &fakeWriter{}
	r := NewResolver(w)

	tx := &models.Transaction{Merchant: "x", Amount: 100, IsSplit: true, SplitWith: []string{"Alice"}, SplitAmounts: map[string]float64{"Alice": 104}}
	alloc, err := calculator.ResolveSplit(calculator.InputFromTransaction(tx))
	require.Error(t, err)

	_, err = r.Persist(context.Background(), "u1", tx, alloc)
	assert.ErrorIs(t, err, calculator.ErrReconciliation)
	assert.Empty(t, w.friends)
	assert.Empty(t, w.debts)

	w.listErr = errors.New("db down")
	_, err = r.Persist(context.Background(), "u1", tx, calculator.Allocation{Valid: true})
	assert.ErrorContains(t, err, "db down")
}
