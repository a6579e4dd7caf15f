package benchmark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantscale/internal/domain"
)

func assertSumsToOne(t *testing.T, weights map[string]float64) {
	t.Helper()
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestWeightsCapProportional(t *testing.T) {
	weights, err := Weights([]string{"AAPL", "MSFT", "JPM"}, map[string]float64{
		"AAPL": 3000, "MSFT": 2000, "JPM": 1000,
	})
	require.NoError(t, err)

	assertSumsToOne(t, weights)
	assert.InDelta(t, 0.5, weights["AAPL"], 1e-12)
	assert.InDelta(t, 2.0/6.0, weights["MSFT"], 1e-12)
	assert.InDelta(t, 1.0/6.0, weights["JPM"], 1e-12)
}

func TestWeightsUnknownCapsShareResidualEqually(t *testing.T) {
	// Two known caps split half the mass 2:1; two unknowns split the rest.
	weights, err := Weights([]string{"AAPL", "MSFT", "XXX", "YYY"}, map[string]float64{
		"AAPL": 2000, "MSFT": 1000,
	})
	require.NoError(t, err)

	assertSumsToOne(t, weights)
	assert.InDelta(t, 0.5*2.0/3.0, weights["AAPL"], 1e-12)
	assert.InDelta(t, 0.5*1.0/3.0, weights["MSFT"], 1e-12)
	assert.InDelta(t, 0.25, weights["XXX"], 1e-12)
	assert.InDelta(t, 0.25, weights["YYY"], 1e-12)
	assert.Equal(t, weights["XXX"], weights["YYY"])
}

func TestWeightsAllUnknownFallsBackToEqual(t *testing.T) {
	weights, err := Weights([]string{"A", "B", "C", "D"}, nil)
	require.NoError(t, err)

	assertSumsToOne(t, weights)
	for _, w := range weights {
		assert.InDelta(t, 0.25, w, 1e-12)
	}
}

func TestWeightsEmptyUniverse(t *testing.T) {
	_, err := Weights(nil, nil)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindData))
}
