package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/sync/singleflight"

	"github.com/mmynk/finagent/internal/analytics"
	"github.com/mmynk/finagent/internal/cache"
	"github.com/mmynk/finagent/internal/currency"
	"github.com/mmynk/finagent/internal/metrics"
)

const (
	defaultLookbackDays = 30
	maxLookbackDays     = 3650
	defaultInsightLimit = 3
	insightsCacheSize   = 1024
)

// insights is the cached result for one (user, window, currency).
type insights struct {
	user       *analytics.Aggregate
	population *analytics.Aggregate
	comparison analytics.Comparison
}

// AnalyticsService implements the Connect AnalyticsService.
type AnalyticsService struct {
	aggregator      *analytics.Aggregator
	defaultCurrency string
	cache           *cache.LRU[string, *insights]
	group           singleflight.Group
}

// NewAnalyticsService creates an AnalyticsService reading transactions from txs.
// Results are cached per user, window and currency for cacheTTL.
func NewAnalyticsService(txs analytics.TransactionLister, conv analytics.Converter, defaultCurrency string, cacheTTL time.Duration) *AnalyticsService {
	return &AnalyticsService{
		aggregator:      analytics.NewAggregator(txs, conv),
		defaultCurrency: strings.ToUpper(defaultCurrency),
		cache:           cache.NewLRU[string, *insights](insightsCacheSize, cacheTTL),
	}
}

// GetSpendingInsights compares the caller's category spend with the population.
func (s *AnalyticsService) GetSpendingInsights(ctx context.Context, req *connect.Request[GetSpendingInsightsRequest]) (*connect.Response[GetSpendingInsightsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}

	lookback := req.Msg.LookbackDays
	if lookback == 0 {
		lookback = defaultLookbackDays
	}
	if lookback < 0 || lookback > maxLookbackDays {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("lookback_days must be between 1 and %d", maxLookbackDays))
	}

	cur := strings.ToUpper(strings.TrimSpace(req.Msg.Currency))
	if cur == "" {
		cur = s.defaultCurrency
	}
	if len(cur) != 3 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("currency must be a 3-letter code"))
	}

	limit := req.Msg.Limit
	if limit == 0 {
		limit = defaultInsightLimit
	}
	if limit < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("limit must not be negative"))
	}

	key := fmt.Sprintf("%s|%d|%s", userID, lookback, cur)
	result, cached := s.cache.Get(key)
	if cached {
		metrics.InsightsCache.WithLabelValues("hit").Inc()
	} else {
		metrics.InsightsCache.WithLabelValues("miss").Inc()
		v, err, _ := s.group.Do(key, func() (any, error) {
			return s.compute(ctx, userID, lookback, cur)
		})
		if err != nil {
			slog.Error("GetSpendingInsights failed", "user_id", userID, "error", err)
			return nil, toConnectError(err)
		}
		result = v.(*insights)
		s.cache.Set(key, result)
	}

	resp := &GetSpendingInsightsResponse{
		Currency:         cur,
		LookbackDays:     lookback,
		UserTotals:       categoryAmounts(result.user.Totals, cur),
		PopulationTotals: categoryAmounts(result.population.Totals, cur),
		Overspending:     toInsights(analytics.TopOverspending(result.comparison, limit), cur),
		Underspending:    toInsights(analytics.TopUnderspending(result.comparison, limit), cur),
		Unconverted:      result.user.Unconverted,
		Cached:           cached,
	}
	for category := range result.population.Insufficient {
		resp.InsufficientCategories = append(resp.InsufficientCategories, category)
	}
	sort.Strings(resp.InsufficientCategories)

	return connect.NewResponse(resp), nil
}

func (s *AnalyticsService) compute(ctx context.Context, userID string, lookback int, cur string) (*insights, error) {
	user, err := s.aggregator.AggregateUser(ctx, userID, lookback, cur)
	if err != nil {
		return nil, err
	}
	population, err := s.aggregator.AggregatePopulation(ctx, lookback, cur, userID)
	if err != nil {
		return nil, err
	}
	comparison, err := analytics.Compare(user, population)
	if err != nil {
		return nil, err
	}

	slog.Debug("Computed spending insights",
		"user_id", userID,
		"lookback_days", lookback,
		"currency", cur,
		"user_categories", len(user.Totals),
		"population_categories", len(population.Totals),
		"unconverted", user.Unconverted,
	)
	return &insights{user: user, population: population, comparison: comparison}, nil
}

func categoryAmounts(totals map[string]float64, cur string) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(totals))
	for category, amount := range totals {
		out = append(out, CategoryAmount{
			Category:  category,
			Amount:    amount,
			Formatted: currency.Format(amount, cur),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func toInsights(entries []analytics.ComparisonEntry, cur string) []Insight {
	out := make([]Insight, len(entries))
	for i, e := range entries {
		out[i] = Insight{
			Category:      e.Category,
			PctDiff:       e.PctDiff,
			DollarDiff:    e.DollarDiff,
			FormattedDiff: currency.Format(e.DollarDiff, cur),
		}
	}
	return out
}
