// Package universe manages the investment universe: the securities table, daily
// price history, and the immutable sector/market-cap snapshot used by requests.
package universe

import "time"

// Security represents one row of the securities table.
type Security struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Sector    string    `json:"sector"`
	MarketCap float64   `json:"market_cap"` // 0 = unknown
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DailyPrice represents a daily closing price point.
type DailyPrice struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Close float64 `json:"close"`
}

// SelectionStrategy filters the universe before optimization.
type SelectionStrategy string

const (
	// StrategyLargestMarketCap keeps the top-N largest names
	StrategyLargestMarketCap SelectionStrategy = "largest_market_cap"
	// StrategySmallestMarketCap keeps the top-N smallest names
	StrategySmallestMarketCap SelectionStrategy = "smallest_market_cap"
)

// ValidStrategy reports whether s names a known selection strategy.
func ValidStrategy(s string) bool {
	switch SelectionStrategy(s) {
	case StrategyLargestMarketCap, StrategySmallestMarketCap:
		return true
	}
	return false
}
