package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/finagent/internal/models"
)

func splitTx() models.Transaction {
	return models.Transaction{
		Merchant:  "Dinner",
		Amount:    90,
		Date:      "2026-10-16",
		Currency:  "SGD",
		IsSplit:   true,
		SplitWith: []string{"Alice", "Bob"},
	}
}

func TestReview_Lifecycle(t *testing.T) {
	r := NewReview(splitTx())
	assert.Equal(t, ReviewParsed, r.State)

	assert.ErrorIs(t, r.EditShare("Alice", 10), ErrReviewNotOpen)

	require.NoError(t, r.Begin())
	assert.Equal(t, ReviewReconciled, r.State)
	assert.Equal(t, MethodEqual, r.Allocation.Method)

	// 94 is within 90*1.05, so explicit amounts are kept. Bob starts at 0
	// and the owner is floored at 0.01, which misses the total.
	err := r.EditShare("Alice", 94)
	assert.ErrorIs(t, err, ErrReconciliation)
	assert.Equal(t, ReviewUnderReview, r.State)
	assert.False(t, r.Allocation.Valid)
	assert.Error(t, r.Problem)

	assert.ErrorIs(t, r.MarkPersisted(), ErrNotReconciled)

	require.NoError(t, r.EditShare("Alice", 40))
	assert.Equal(t, ReviewReconciled, r.State)
	assert.Nil(t, r.Problem)
	owner := r.Allocation.OwnerShare
	assert.Equal(t, 50.0, owner)

	require.NoError(t, r.MarkPersisted())
	assert.True(t, r.Terminal())
	assert.ErrorIs(t, r.EditShare("Alice", 1), ErrReviewClosed)
	assert.ErrorIs(t, r.Reject(), ErrReviewClosed)
}

func TestReview_EditAddsParticipantAndGST(t *testing.T) {
	r := NewReview(splitTx())
	require.NoError(t, r.Begin())

	require.NoError(t, r.EditShare("Carol", 10))
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, r.Transaction.SplitWith)

	require.NoError(t, r.SetGST(ptr(8)))
	carol, ok := r.Allocation.ShareOf("Carol")
	require.True(t, ok)
	assert.Equal(t, 12.0, carol)

	assert.ErrorIs(t, r.SetGST(ptr(-1)), ErrNegativeShare)
	assert.ErrorIs(t, r.EditShare("Carol", -5), ErrNegativeShare)
	assert.ErrorIs(t, r.EditShare("", 5), ErrEmptyName)

	require.NoError(t, r.RemoveParticipant("Carol"))
	_, ok = r.Allocation.ShareOf("Carol")
	assert.False(t, ok)
}

func TestReview_RejectAndCopy(t *testing.T) {
	tx := splitTx()
	r := NewReview(tx)
	require.NoError(t, r.Begin())
	require.NoError(t, r.EditShare("Alice", 5))

	// The review works on its own copy.
	assert.Nil(t, tx.SplitAmounts)

	require.NoError(t, r.Reject())
	assert.Equal(t, ReviewRejected, r.State)
	assert.ErrorIs(t, r.Begin(), ErrReviewClosed)
	assert.ErrorIs(t, r.MarkPersisted(), ErrReviewClosed)
}

func TestReview_EditMatchesExistingNameIgnoringCase(t *testing.T) {
	r := NewReview(splitTx())
	require.NoError(t, r.Begin())

	require.NoError(t, r.EditShare(" alice ", 20))
	assert.Equal(t, []string{"Alice", "Bob"}, r.Transaction.SplitWith)
	assert.Equal(t, map[string]float64{"Alice": 20}, r.Transaction.SplitAmounts)

	alice, ok := r.Allocation.ShareOf("Alice")
	require.True(t, ok)
	assert.Equal(t, 20.0, alice)
	assert.Equal(t, 70.0, r.Allocation.OwnerShare)
	assert.Len(t, r.Allocation.Shares, 2)

	require.NoError(t, r.RemoveParticipant("ALICE"))
	assert.Equal(t, []string{"Bob"}, r.Transaction.SplitWith)
	assert.Empty(t, r.Transaction.SplitAmounts)
}

func TestReview_CloneIsIndependent(t *testing.T) {
	r := NewReview(splitTx())
	require.NoError(t, r.Begin())

	c := r.Clone()
	require.NoError(t, c.RemoveParticipant("Alice"))
	require.NoError(t, c.EditShare("Bob", 30))

	assert.Equal(t, []string{"Alice", "Bob"}, r.Transaction.SplitWith)
	assert.Nil(t, r.Transaction.SplitAmounts)
	assert.Len(t, r.Allocation.Shares, 2)
	assert.Equal(t, ReviewReconciled, r.State)

	assert.Equal(t, []string{"Bob"}, c.Transaction.SplitWith)
	assert.Equal(t, 60.0, c.Allocation.OwnerShare)
}
