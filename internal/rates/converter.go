// Package rates maintains a small in-memory exchange-rate table keyed
// by USD and converts cent amounts between currencies.
//
// Rates are refreshed from an external HTTP service on an interval and
// on demand. A failed fetch keeps the previous table; conversion never
// fails, it degrades to stale or default rates.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"
)

// DefaultURL is the public rate feed used when none is configured.
const DefaultURL = "https://api.exchangerate-api.com/v4/latest/USD"

// defaultRates is the static fallback, relative to USD.
var defaultRates = map[string]float64{
	"USD": 1.0,
	"MXN": 17.5,
	"EUR": 0.85,
	"COP": 4200.0,
	"GBP": 0.75,
	"CAD": 1.35,
	"JPY": 150.0,
}

// Converter converts amounts between currency codes through a USD base.
type Converter struct {
	url    string
	client *http.Client

	mu          sync.RWMutex
	rates       map[string]float64
	lastRefresh time.Time
}

// NewConverter returns a converter seeded with the static default table.
// An empty url selects DefaultURL.
func NewConverter(url string) *Converter {
	if url == "" {
		url = DefaultURL
	}
	seeded := make(map[string]float64, len(defaultRates))
	for code, rate := range defaultRates {
		seeded[code] = rate
	}
	return &Converter{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		rates:  seeded,
	}
}

// Convert converts cents from one currency to another, normalizing
// through USD and rounding half-up to the cent. Unknown codes fall back
// to rate 1.0 so conversion always yields a usable amount.
func (c *Converter) Convert(cents int64, from, to string) int64 {
	if from == to {
		return cents
	}

	c.mu.RLock()
	fromRate, ok := c.rates[from]
	if !ok || fromRate == 0 {
		fromRate = 1.0
	}
	toRate, ok := c.rates[to]
	if !ok || toRate == 0 {
		toRate = 1.0
	}
	c.mu.RUnlock()

	usd := float64(cents) / fromRate
	return int64(math.Round(usd * toRate))
}

// Rate returns the USD-relative rate for a currency code, or 1.0 when
// the code is unknown.
func (c *Converter) Rate(code string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.rates[code]; ok && r != 0 {
		return r
	}
	return 1.0
}

// LastRefresh returns when the table was last replaced by a successful
// fetch. Zero means the static defaults are still in effect.
func (c *Converter) LastRefresh() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefresh
}

// rateResponse mirrors the feed payload: {"base": "USD", "rates": {...}}.
type rateResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

// Refresh fetches the rate table once. On any failure the previous
// table is retained and the error is returned for logging only.
func (c *Converter) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build rate request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch rates: unexpected status %d", resp.StatusCode)
	}

	var payload rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode rates: %w", err)
	}
	if len(payload.Rates) == 0 {
		return fmt.Errorf("decode rates: empty table")
	}
	// The feed is USD-based; make sure the base itself is present.
	payload.Rates["USD"] = 1.0

	c.mu.Lock()
	c.rates = payload.Rates
	c.lastRefresh = time.Now()
	c.mu.Unlock()

	slog.InfoContext(ctx, "Exchange rates refreshed",
		"currencies", len(payload.Rates),
		"source", c.url)
	return nil
}

// Run refreshes the table immediately and then on every tick until the
// context is cancelled. Fetch failures are logged and swallowed.
func (c *Converter) Run(ctx context.Context, interval time.Duration) {
	if err := c.Refresh(ctx); err != nil {
		slog.WarnContext(ctx, "Initial rate refresh failed, using fallback table", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				slog.WarnContext(ctx, "Rate refresh failed, keeping previous table", "error", err)
			}
		}
	}
}

// SetRates replaces the table directly. Intended for tests.
func (c *Converter) SetRates(rates map[string]float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates = rates
}
