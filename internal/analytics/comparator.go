package analytics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrIncompatibleAggregates = errors.New("aggregates differ in currency or lookback window")

// ComparisonEntry is the user-vs-population difference for one category.
// Positive values mean the user spends more than the population.
type ComparisonEntry struct {
	Category   string  `json:"category"`
	PctDiff    float64 `json:"pct_diff"`
	DollarDiff float64 `json:"dollar_diff"`
}

// Comparison maps category to its entry.
type Comparison map[string]ComparisonEntry

// Compare diffs a user aggregate against a population aggregate.
// Both must share currency and lookback window.
func Compare(user, population *Aggregate) (Comparison, error) {
	if user == nil || population == nil {
		return nil, fmt.Errorf("%w: missing aggregate", ErrIncompatibleAggregates)
	}
	if !strings.EqualFold(user.Currency, population.Currency) || user.LookbackDays != population.LookbackDays {
		return nil, fmt.Errorf("%w: user %s/%dd, population %s/%dd", ErrIncompatibleAggregates,
			user.Currency, user.LookbackDays, population.Currency, population.LookbackDays)
	}
	return CompareTotals(user.Totals, population.Totals), nil
}

// CompareTotals diffs raw category totals. Categories without a population
// baseline are skipped rather than compared against zero.
func CompareTotals(user, population map[string]float64) Comparison {
	comparison := make(Comparison)

	categories := make(map[string]struct{}, len(user)+len(population))
	for c := range user {
		categories[c] = struct{}{}
	}
	for c := range population {
		categories[c] = struct{}{}
	}

	for category := range categories {
		pop, ok := population[category]
		if !ok || pop == 0 {
			continue
		}
		dollar := roundTo(user[category]-pop, 2)
		comparison[category] = ComparisonEntry{
			Category:   category,
			PctDiff:    roundTo(dollar/pop*100, 1),
			DollarDiff: dollar,
		}
	}

	return comparison
}

// TopOverspending returns up to limit entries with PctDiff > 0, largest first.
func TopOverspending(c Comparison, limit int) []ComparisonEntry {
	return top(c, limit, func(e ComparisonEntry) bool { return e.PctDiff > 0 }, func(a, b float64) bool { return a > b })
}

// TopUnderspending returns up to limit entries with PctDiff < 0, most negative first.
func TopUnderspending(c Comparison, limit int) []ComparisonEntry {
	return top(c, limit, func(e ComparisonEntry) bool { return e.PctDiff < 0 }, func(a, b float64) bool { return a < b })
}

func top(c Comparison, limit int, keep func(ComparisonEntry) bool, before func(a, b float64) bool) []ComparisonEntry {
	if limit <= 0 {
		return []ComparisonEntry{}
	}

	entries := make([]ComparisonEntry, 0, len(c))
	for _, e := range c {
		if keep(e) {
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PctDiff != entries[j].PctDiff {
			return before(entries[i].PctDiff, entries[j].PctDiff)
		}
		return entries[i].Category < entries[j].Category
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
