// Package benchmark derives benchmark weights for the tracking-error
// objective from universe market caps.
package benchmark

import (
	"github.com/aristath/quantscale/internal/domain"
)

// Weights builds cap-weighted benchmark weights over the universe. Symbols
// with a known market cap split their universe share proportionally to cap;
// symbols with an unknown (zero) cap split the residual share equally, so a
// patchy cap lookup degrades toward equal weighting instead of crashing or
// concentrating the benchmark.
//
// The result sums to 1. Fails with a data error on an empty universe.
func Weights(symbols []string, marketCaps map[string]float64) (map[string]float64, error) {
	n := len(symbols)
	if n == 0 {
		return nil, domain.DataError("benchmark.weights", "empty universe")
	}

	totalCap := 0.0
	known := 0
	for _, symbol := range symbols {
		if cap := marketCaps[symbol]; cap > 0 {
			totalCap += cap
			known++
		}
	}

	weights := make(map[string]float64, n)

	// All caps unknown: equal weights.
	if known == 0 {
		equal := 1.0 / float64(n)
		for _, symbol := range symbols {
			weights[symbol] = equal
		}
		return weights, nil
	}

	knownShare := float64(known) / float64(n)
	var residualEach float64
	if unknown := n - known; unknown > 0 {
		residualEach = (1.0 - knownShare) / float64(unknown)
	}

	sum := 0.0
	for _, symbol := range symbols {
		cap := marketCaps[symbol]
		var w float64
		if cap > 0 {
			w = knownShare * cap / totalCap
		} else {
			w = residualEach
		}
		weights[symbol] = w
		sum += w
	}

	// Normalize away accumulated round-off.
	for symbol := range weights {
		weights[symbol] /= sum
	}

	return weights, nil
}
