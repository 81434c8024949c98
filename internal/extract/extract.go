// Package extract defines the transaction extraction boundary and cleans up
// the candidates an extractor returns before they reach the split resolver.
package extract

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmynk/finagent/internal/models"
)

var ErrExtractionFailed = errors.New("could not extract a transaction")

// Parser turns free text or receipt images into transaction candidates.
// Optional fields the extractor did not find must be left nil, never zero.
type Parser interface {
	// ParseText returns one candidate per purchase found in text.
	ParseText(ctx context.Context, text string) ([]models.Transaction, error)

	// ParseReceipt extracts a single purchase from an image. hint is optional
	// free text from the user such as "split with Sam".
	ParseReceipt(ctx context.Context, image []byte, hint string) (models.Transaction, error)
}

// dateLayouts are the loose formats accepted besides relative words.
var dateLayouts = []string{
	models.DateLayout,
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
}

// NormalizeDate resolves "today", "yesterday" and common layouts to
// YYYY-MM-DD. Anything unparsable becomes today.
func NormalizeDate(raw string, now time.Time) string {
	s := strings.TrimSpace(raw)
	switch strings.ToLower(s) {
	case "", "today", "now":
		return now.Format(models.DateLayout)
	case "yesterday":
		return now.AddDate(0, 0, -1).Format(models.DateLayout)
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(models.DateLayout)
		}
	}
	return now.Format(models.DateLayout)
}

// Normalize cleans a candidate: dates and currency are canonicalized,
// missing categories default, participant names are trimmed and deduplicated.
// A split with no named participants gets them inferred from Notes, flagged
// as low confidence.
func Normalize(tx models.Transaction, now time.Time, defaultCurrency string) models.Transaction {
	tx.Merchant = strings.TrimSpace(tx.Merchant)
	tx.Date = NormalizeDate(tx.Date, now)

	tx.Currency = strings.ToUpper(strings.TrimSpace(tx.Currency))
	if tx.Currency == "" {
		tx.Currency = strings.ToUpper(defaultCurrency)
	}

	tx.Category = strings.TrimSpace(tx.Category)
	if tx.Category == "" {
		tx.Category = models.DefaultCategory
	}

	tx.SplitWith = cleanNames(tx.SplitWith)
	if len(tx.SplitAmounts) > 0 {
		amounts := make(map[string]float64, len(tx.SplitAmounts))
		for name, amount := range tx.SplitAmounts {
			if name = strings.TrimSpace(name); name != "" {
				amounts[name] += amount
			}
		}
		tx.SplitAmounts = amounts
	}
	if len(tx.SplitAmounts) == 0 {
		tx.SplitAmounts = nil
	}

	if len(tx.SplitWith) > 0 || len(tx.SplitAmounts) > 0 {
		tx.IsSplit = true
		if tx.SplitConfidence == "" {
			tx.SplitConfidence = models.SplitConfidenceExplicit
		}
	} else if tx.IsSplit {
		if names := InferParticipants(tx.Notes); len(names) > 0 {
			tx.SplitWith = names
			tx.SplitConfidence = models.SplitConfidenceLow
		}
	}

	if !tx.IsSplit {
		tx.SplitConfidence = ""
	}
	return tx
}

// cleanNames trims names, drops empties and removes case-insensitive
// duplicates, keeping the first spelling.
func cleanNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		key := strings.ToLower(n)
		if n == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
