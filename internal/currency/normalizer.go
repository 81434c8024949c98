// Package currency converts and formats amounts across currencies using a
// cached exchange-rate table per base currency.
package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mmynk/finagent/internal/metrics"
)

// DefaultCacheTTL is how long a fetched rate table is considered fresh.
const DefaultCacheTTL = 24 * time.Hour

var (
	// ErrConversionUnavailable is returned when no usable rate exists.
	ErrConversionUnavailable = errors.New("conversion unavailable")

	ErrMalformedRates = errors.New("malformed rate table")
)

// RateTable maps currency code to the rate relative to Base.
type RateTable struct {
	Base  string
	Date  string
	Rates map[string]float64
}

// RateSource fetches the latest rate table for a base currency.
type RateSource interface {
	FetchRates(ctx context.Context, base string) (*RateTable, error)
}

type cachedTable struct {
	table     *RateTable
	fetchedAt time.Time
}

// Normalizer converts amounts between currencies.
// Rate tables are cached per base currency for ttl; an expired table is still
// used when a refresh fails.
type Normalizer struct {
	source RateSource
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cachedTable
	group singleflight.Group
}

// NewNormalizer creates a Normalizer backed by source.
// A non-positive ttl selects DefaultCacheTTL.
func NewNormalizer(source RateSource, ttl time.Duration) *Normalizer {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Normalizer{
		source: source,
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]cachedTable),
	}
}

// Convert converts amount from one currency to another.
// Identical codes (case-insensitive) return amount without touching the cache.
func (n *Normalizer) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	from = normalizeCode(from)
	to = normalizeCode(to)
	if from == to {
		return amount, nil
	}

	table, err := n.rates(ctx, from)
	if err != nil {
		metrics.ConversionsUnavailable.Inc()
		return 0, fmt.Errorf("%w: %s to %s: %v", ErrConversionUnavailable, from, to, err)
	}

	rate, ok := table.Rates[to]
	if !ok || rate <= 0 {
		metrics.ConversionsUnavailable.Inc()
		return 0, fmt.Errorf("%w: no %s rate in %s table", ErrConversionUnavailable, to, from)
	}

	return amount * rate, nil
}

// rates returns the table for base, refreshing it when stale.
func (n *Normalizer) rates(ctx context.Context, base string) (*RateTable, error) {
	n.mu.Lock()
	entry, cached := n.cache[base]
	n.mu.Unlock()

	if cached && n.now().Sub(entry.fetchedAt) < n.ttl {
		metrics.RateCacheHits.Inc()
		return entry.table, nil
	}

	v, err, _ := n.group.Do(base, func() (any, error) {
		return n.source.FetchRates(ctx, base)
	})
	if err == nil {
		table, ok := v.(*RateTable)
		if !ok || table == nil || table.Rates == nil {
			err = ErrMalformedRates
		} else {
			metrics.RateFetches.WithLabelValues("ok").Inc()
			n.mu.Lock()
			n.cache[base] = cachedTable{table: table, fetchedAt: n.now()}
			n.mu.Unlock()
			return table, nil
		}
	}

	if cached {
		metrics.RateFetches.WithLabelValues("stale").Inc()
		slog.Warn("Rate fetch failed, using stale table",
			"base", base,
			"fetched_at", entry.fetchedAt,
			"error", err,
		)
		return entry.table, nil
	}

	metrics.RateFetches.WithLabelValues("error").Inc()
	return nil, fmt.Errorf("failed to fetch %s rates: %w", base, err)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
