package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultRatesBaseURL serves European Central Bank reference rates.
	DefaultRatesBaseURL = "https://api.frankfurter.app"

	// DefaultRatesTimeout bounds a single rate fetch.
	DefaultRatesTimeout = 5 * time.Second

	latestPath = "/latest"
)

// FrankfurterSource fetches rate tables from a frankfurter-compatible API.
type FrankfurterSource struct {
	httpClient *http.Client
	baseURL    string
}

// Ensure FrankfurterSource implements RateSource
var _ RateSource = (*FrankfurterSource)(nil)

// NewFrankfurterSource creates a rate source for baseURL with a fixed client timeout.
func NewFrankfurterSource(baseURL string, timeout time.Duration) *FrankfurterSource {
	if baseURL == "" {
		baseURL = DefaultRatesBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultRatesTimeout
	}
	return &FrankfurterSource{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// latestResponse is the payload of GET /latest?from=BASE.
type latestResponse struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Rates  map[string]float64 `json:"rates"`
}

// FetchRates returns the latest rates relative to base.
func (s *FrankfurterSource) FetchRates(ctx context.Context, base string) (*RateTable, error) {
	endpoint := s.baseURL + latestPath + "?from=" + url.QueryEscape(base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rate source returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode rates: %w", err)
	}
	if payload.Rates == nil || !strings.EqualFold(payload.Base, base) {
		return nil, fmt.Errorf("%w: base %q, want %q", ErrMalformedRates, payload.Base, base)
	}

	return &RateTable{
		Base:  strings.ToUpper(payload.Base),
		Date:  payload.Date,
		Rates: payload.Rates,
	}, nil
}
