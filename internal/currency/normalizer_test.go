package currency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource returns canned tables and counts fetches per base.
type fakeSource struct {
	tables map[string]*RateTable
	err    error
	calls  map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		tables: map[string]*RateTable{
			"USD": {Base: "USD", Date: "2026-10-15", Rates: map[string]float64{"SGD": 1.3, "EUR": 0.9}},
		},
		calls: make(map[string]int),
	}
}

func (f *fakeSource) FetchRates(_ context.Context, base string) (*RateTable, error) {
	f.calls[base]++
	if f.err != nil {
		return nil, f.err
	}
	table, ok := f.tables[base]
	if !ok {
		return nil, errors.New("unknown base")
	}
	return table, nil
}

func TestConvert_SameCurrencySkipsSource(t *testing.T) {
	src := newFakeSource()
	n := NewNormalizer(src, time.Hour)

	for _, amount := range []float64{0, 12.345, 1e9, -3} {
		got, err := n.Convert(context.Background(), amount, "sgd", "SGD")
		require.NoError(t, err)
		assert.Equal(t, amount, got)
	}
	assert.Empty(t, src.calls, "same-currency conversion must not fetch rates")
}

func TestConvert_UsesRateAndCache(t *testing.T) {
	src := newFakeSource()
	n := NewNormalizer(src, time.Hour)
	ctx := context.Background()

	got, err := n.Convert(ctx, 100, "USD", "SGD")
	require.NoError(t, err)
	assert.InDelta(t, 130.0, got, 1e-9)

	got, err = n.Convert(ctx, 10, "usd", "eur")
	require.NoError(t, err)
	assert.InDelta(t, 9.0, got, 1e-9)

	assert.Equal(t, 1, src.calls["USD"], "second conversion should hit the cache")
}

func TestConvert_RefreshesAfterTTL(t *testing.T) {
	src := newFakeSource()
	n := NewNormalizer(src, 24*time.Hour)
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := n.Convert(ctx, 1, "USD", "SGD")
	require.NoError(t, err)

	now = now.Add(25 * time.Hour)
	_, err = n.Convert(ctx, 1, "USD", "SGD")
	require.NoError(t, err)

	assert.Equal(t, 2, src.calls["USD"])
}

func TestConvert_FallsBackToStaleTable(t *testing.T) {
	src := newFakeSource()
	n := NewNormalizer(src, time.Hour)
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := n.Convert(ctx, 1, "USD", "SGD")
	require.NoError(t, err)

	now = now.Add(48 * time.Hour)
	src.err = errors.New("network down")

	got, err := n.Convert(ctx, 10, "USD", "SGD")
	require.NoError(t, err)
	assert.InDelta(t, 13.0, got, 1e-9)
}

func TestConvert_Unavailable(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		err  error
	}{
		{name: "fetch fails with empty cache", from: "USD", to: "SGD", err: errors.New("timeout")},
		{name: "unknown base", from: "XYZ", to: "SGD"},
		{name: "missing target rate", from: "USD", to: "INR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource()
			src.err = tt.err
			n := NewNormalizer(src, time.Hour)

			_, err := n.Convert(context.Background(), 5, tt.from, tt.to)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConversionUnavailable)
		})
	}
}
