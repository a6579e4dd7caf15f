// Package optimization solves the constrained tracking-error minimization
// that turns a covariance estimate and a benchmark into portfolio weights.
package optimization

import (
	"strings"

	"github.com/aristath/quantscale/internal/domain"
)

// DefaultMaxWeight is the per-asset cap used when the request does not
// supply one and the dynamic floor does not lift it.
const DefaultMaxWeight = 0.20

// dynamicCapNumerator sizes the cap floor so that n_active·cap ≥ 1.5,
// keeping the problem feasible with slack as exclusions shrink the universe.
const dynamicCapNumerator = 1.5

// Constraints is the long-only feasible set for one solve: per-asset upper
// bounds aligned with Symbols, with excluded assets capped at zero.
type Constraints struct {
	Symbols      []string
	Caps         []float64
	Excluded     map[string]bool
	EffectiveCap float64
	NumActive    int
}

// canonicalSector normalizes a sector label for comparison. "Technology" is
// an alias for "Information Technology" because data vendors disagree on the
// GICS name.
func canonicalSector(sector string) string {
	s := strings.ToLower(strings.TrimSpace(sector))
	if s == "technology" {
		return "information technology"
	}
	return s
}

// BuildConstraints derives the feasible set from the universe and the
// request's exclusions. Fails with an infeasibility error when the exclusions
// consume the whole universe or the caps cannot sum to a full allocation.
func BuildConstraints(
	symbols []string,
	sectorMap map[string]string,
	excludedSectors []string,
	excludedTickers []string,
	maxWeight *float64,
	defaultCap float64,
) (*Constraints, error) {
	if len(symbols) == 0 {
		return nil, domain.DataError("optimization.constraints", "empty universe")
	}
	if defaultCap <= 0 {
		defaultCap = DefaultMaxWeight
	}

	sectorSet := make(map[string]bool, len(excludedSectors))
	for _, s := range excludedSectors {
		sectorSet[canonicalSector(s)] = true
	}
	tickerSet := make(map[string]bool, len(excludedTickers))
	for _, t := range excludedTickers {
		tickerSet[strings.ToUpper(strings.TrimSpace(t))] = true
	}

	excluded := make(map[string]bool, len(symbols))
	numActive := 0
	for _, symbol := range symbols {
		if tickerSet[strings.ToUpper(symbol)] || sectorSet[canonicalSector(sectorMap[symbol])] {
			excluded[symbol] = true
			continue
		}
		numActive++
	}

	if numActive == 0 {
		return nil, domain.InfeasibleError("optimization.constraints",
			"exclusions remove all %d assets from the universe", len(symbols))
	}

	cap := effectiveCap(maxWeight, defaultCap, numActive)

	caps := make([]float64, len(symbols))
	total := 0.0
	for i, symbol := range symbols {
		if excluded[symbol] {
			continue
		}
		caps[i] = cap
		total += cap
	}

	// With the dynamic cap this cannot trigger; an explicit max_weight can.
	if total < 1.0-1e-12 {
		return nil, domain.InfeasibleError("optimization.constraints",
			"max weight %.4f over %d active assets caps total allocation at %.4f < 1", cap, numActive, total)
	}

	return &Constraints{
		Symbols:      symbols,
		Caps:         caps,
		Excluded:     excluded,
		EffectiveCap: cap,
		NumActive:    numActive,
	}, nil
}

// effectiveCap resolves the per-asset bound: an explicit request cap wins,
// otherwise the default lifted to 1.5/n_active so feasibility survives small
// active universes.
func effectiveCap(maxWeight *float64, defaultCap float64, numActive int) float64 {
	if maxWeight != nil {
		return *maxWeight
	}
	if numActive < 1 {
		numActive = 1
	}
	dynamic := dynamicCapNumerator / float64(numActive)
	if dynamic > defaultCap {
		return dynamic
	}
	return defaultCap
}
