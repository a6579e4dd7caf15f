// Package domain provides core domain models and types.
package domain

import "time"

// MinDisplayWeight is the smallest portfolio weight surfaced to callers.
// Solved weights below this threshold are filtered from results.
const MinDisplayWeight = 1e-4

// OptimizationStatus represents the terminal status of a solve.
type OptimizationStatus string

const (
	// StatusOptimal means the solver converged within tolerance
	StatusOptimal OptimizationStatus = "optimal"
	// StatusOptimalInaccurate means the iteration budget ran out on a feasible iterate
	StatusOptimalInaccurate OptimizationStatus = "optimal_inaccurate"
	// StatusInfeasible means the constraints cannot be satisfied
	StatusInfeasible OptimizationStatus = "infeasible"
	// StatusUnbounded means the objective is unbounded below (kept for API
	// compatibility; a PSD objective over the capped simplex never produces it)
	StatusUnbounded OptimizationStatus = "unbounded"
	// StatusSolverError means the solve failed numerically
	StatusSolverError OptimizationStatus = "solver_error"
	// StatusTimeout means the solver deadline expired before convergence
	StatusTimeout OptimizationStatus = "timeout"
)

// IsOptimal reports whether the status is a usable terminal status.
func (s OptimizationStatus) IsOptimal() bool {
	return s == StatusOptimal || s == StatusOptimalInaccurate
}

// TickerData holds per-security metadata from the universe store.
// Price history lives in the history store, not on the struct.
type TickerData struct {
	Symbol    string  `json:"symbol"`
	Sector    string  `json:"sector"`
	MarketCap float64 `json:"market_cap"` // 0 = unknown, tolerated everywhere
}

// ReturnsPanel is an aligned panel of simple returns: one observation per date,
// one series per symbol. Symbols preserves input order; every series has
// len(Dates) observations.
type ReturnsPanel struct {
	Dates   []string             `json:"dates"`
	Symbols []string             `json:"symbols"`
	Returns map[string][]float64 `json:"returns"`
}

// NumObservations returns the number of time observations in the panel.
func (p *ReturnsPanel) NumObservations() int {
	return len(p.Dates)
}

// NumAssets returns the number of asset series in the panel.
func (p *ReturnsPanel) NumAssets() int {
	return len(p.Symbols)
}

// OptimizationResult is the output of a tracking-error solve.
type OptimizationResult struct {
	Weights       map[string]float64 `json:"weights"`
	TrackingError float64            `json:"tracking_error"`
	Status        OptimizationStatus `json:"status"`
}

// AttributionRow holds per-sector Brinson-Fachler effects as fractional returns.
type AttributionRow struct {
	Sector      string  `json:"sector"`
	Allocation  float64 `json:"allocation"`
	Selection   float64 `json:"selection"`
	Interaction float64 `json:"interaction"`
	TotalEffect float64 `json:"total_effect"`
}

// RankedHolding is one entry in the contributor/detractor rankings. It carries
// enough metadata for narrative generation without re-deriving facts.
type RankedHolding struct {
	Symbol       string  `json:"symbol"`
	Sector       string  `json:"sector"`
	Held         bool    `json:"held"`
	Excluded     bool    `json:"excluded"`
	ActiveWeight float64 `json:"active_weight"`
	Contribution float64 `json:"contribution"`
}

// AttributionReport is the full Brinson-Fachler decomposition of active return.
// All effect fields are fractional returns; consumers apply percentage scaling.
type AttributionReport struct {
	AllocationEffect  float64          `json:"allocation_effect"`
	SelectionEffect   float64          `json:"selection_effect"`
	InteractionEffect float64          `json:"interaction_effect"`
	TotalActiveReturn float64          `json:"total_active_return"`
	Rows              []AttributionRow `json:"rows"`
	TopContributors   []RankedHolding  `json:"top_contributors"`
	TopDetractors     []RankedHolding  `json:"top_detractors"`
	Narrative         string           `json:"narrative,omitempty"`
}

// TaxLot is a specific purchase lot of a stock. CurrentPrice may be refreshed
// in place from market prices before analysis; nothing else mutates.
type TaxLot struct {
	Symbol            string    `json:"symbol"`
	PurchaseDate      time.Time `json:"purchase_date"`
	Quantity          int       `json:"quantity"`
	CostBasisPerShare float64   `json:"cost_basis_per_share"`
	CurrentPrice      float64   `json:"current_price"`
}

// UnrealizedPL returns the unrealized profit or loss for the lot.
func (l *TaxLot) UnrealizedPL() float64 {
	return (l.CurrentPrice - l.CostBasisPerShare) * float64(l.Quantity)
}

// LossFraction returns the fractional gain/loss versus cost basis.
// A zero cost basis yields 0 so the lot can never qualify for harvesting.
func (l *TaxLot) LossFraction() float64 {
	if l.CostBasisPerShare == 0 {
		return 0
	}
	return (l.CurrentPrice - l.CostBasisPerShare) / l.CostBasisPerShare
}

// HarvestOpportunity is a suggestion to harvest a tax loss.
type HarvestOpportunity struct {
	SellTicker     string  `json:"sell_ticker"`
	BuyProxyTicker string  `json:"buy_proxy_ticker"`
	Quantity       int     `json:"quantity"`
	EstimatedLoss  float64 `json:"estimated_loss_harvested"`
	Reason         string  `json:"reason"`
}

// Transaction is one record of trading history, used by the wash-sale check.
type Transaction struct {
	Symbol string    `json:"symbol"`
	Type   string    `json:"type"` // "buy" or "sell"
	Date   time.Time `json:"date"`
}

// ConstructRequest is a client request to construct and explain a portfolio.
type ConstructRequest struct {
	ClientID          string   `json:"client_id"`
	InitialInvestment float64  `json:"initial_investment"`
	ExcludedSectors   []string `json:"excluded_sectors"`
	ExcludedTickers   []string `json:"excluded_tickers"`
	MaxWeight         *float64 `json:"max_weight,omitempty"`
	Strategy          string   `json:"strategy,omitempty"` // "smallest_market_cap" or "largest_market_cap"
	TopN              int      `json:"top_n,omitempty"`
	Benchmark         string   `json:"benchmark,omitempty"`
}

// ConstructResult is the output of the construct-and-explain pipeline.
// Weights below MinDisplayWeight are filtered out.
type ConstructResult struct {
	RequestID     string             `json:"request_id"`
	ClientID      string             `json:"client_id"`
	Weights       map[string]float64 `json:"weights"`
	TrackingError float64            `json:"tracking_error"`
	Status        OptimizationStatus `json:"status"`
	Attribution   *AttributionReport `json:"attribution"`
}
