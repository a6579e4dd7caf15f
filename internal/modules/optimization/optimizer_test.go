package optimization

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantscale/internal/domain"
	"github.com/aristath/quantscale/internal/modules/risk"
)

func identityCovariance(t *testing.T, symbols []string) *risk.CovarianceMatrix {
	t.Helper()
	n := len(symbols)
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		rows[i][i] = 1.0
	}
	cov, err := risk.NewCovarianceMatrixFromRows(symbols, rows)
	require.NoError(t, err)
	return cov
}

func testOptimizer() *Optimizer {
	return NewOptimizer(DefaultMaxWeight, DefaultSolverTimeout, zerolog.Nop())
}

func assertFeasible(t *testing.T, weights map[string]float64, cap float64) {
	t.Helper()
	sum := 0.0
	for symbol, w := range weights {
		sum += w
		assert.GreaterOrEqual(t, w, 0.0, "weight of %s", symbol)
		assert.LessOrEqual(t, w, cap+1e-9, "weight of %s", symbol)
	}
	assert.InDelta(t, 1.0, sum, 1e-6)
}

func TestOptimizeRecoversFeasibleBenchmark(t *testing.T) {
	symbols := []string{"AAPL", "JPM", "JNJ", "XOM", "MSFT"}
	req := Request{
		Covariance: identityCovariance(t, symbols),
		BenchmarkWeights: map[string]float64{
			"AAPL": 0.25, "JPM": 0.20, "JNJ": 0.20, "XOM": 0.15, "MSFT": 0.20,
		},
		SectorMap: testSectorMap,
	}

	result, err := testOptimizer().Optimize(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, domain.StatusOptimal, result.Status)
	assert.True(t, result.Status.IsOptimal())

	// The benchmark satisfies every constraint, so the optimum is the
	// benchmark itself with zero tracking error.
	assertFeasible(t, result.Weights, 0.30)
	for symbol, want := range req.BenchmarkWeights {
		assert.InDelta(t, want, result.Weights[symbol], 1e-6, symbol)
	}
	assert.InDelta(t, 0.0, result.TrackingError, 1e-6)
}

func TestOptimizeRespectsCap(t *testing.T) {
	symbols := []string{"AAPL", "JPM", "XOM"}
	req := Request{
		Covariance: identityCovariance(t, symbols),
		BenchmarkWeights: map[string]float64{
			"AAPL": 0.8, "JPM": 0.1, "XOM": 0.1,
		},
		SectorMap: testSectorMap,
	}

	result, err := testOptimizer().Optimize(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Status.IsOptimal())

	// Three active assets lift the cap to 0.5. With an identity covariance
	// the optimum is the projection of the benchmark onto the feasible set.
	assertFeasible(t, result.Weights, 0.5)
	assert.InDelta(t, 0.50, result.Weights["AAPL"], 1e-6)
	assert.InDelta(t, 0.25, result.Weights["JPM"], 1e-6)
	assert.InDelta(t, 0.25, result.Weights["XOM"], 1e-6)
	assert.Greater(t, result.TrackingError, 0.0)
}

func TestOptimizeZerosExcludedTickers(t *testing.T) {
	symbols := []string{"AAPL", "JPM", "JNJ", "XOM"}
	req := Request{
		Covariance: identityCovariance(t, symbols),
		BenchmarkWeights: map[string]float64{
			"AAPL": 0.25, "JPM": 0.25, "JNJ": 0.25, "XOM": 0.25,
		},
		SectorMap:       testSectorMap,
		ExcludedTickers: []string{"AAPL"},
	}

	result, err := testOptimizer().Optimize(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Status.IsOptimal())

	assert.Zero(t, result.Weights["AAPL"])
	assertFeasible(t, result.Weights, 0.5)
}

func TestOptimizeZerosExcludedSectorViaAlias(t *testing.T) {
	symbols := []string{"AAPL", "MSFT", "JPM", "XOM"}
	req := Request{
		Covariance: identityCovariance(t, symbols),
		BenchmarkWeights: map[string]float64{
			"AAPL": 0.3, "MSFT": 0.3, "JPM": 0.2, "XOM": 0.2,
		},
		SectorMap:       testSectorMap,
		ExcludedSectors: []string{"Technology"},
	}

	result, err := testOptimizer().Optimize(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Status.IsOptimal())

	assert.Zero(t, result.Weights["AAPL"])
	assert.Zero(t, result.Weights["MSFT"])
	assertFeasible(t, result.Weights, 0.75)
}

func TestOptimizeInfeasibleWhenUniverseFullyExcluded(t *testing.T) {
	symbols := []string{"AAPL", "MSFT"}
	req := Request{
		Covariance:       identityCovariance(t, symbols),
		BenchmarkWeights: map[string]float64{"AAPL": 0.5, "MSFT": 0.5},
		SectorMap:        testSectorMap,
		ExcludedSectors:  []string{"Information Technology"},
	}

	result, err := testOptimizer().Optimize(context.Background(), req)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindInfeasible))
	require.NotNil(t, result)
	assert.Equal(t, domain.StatusInfeasible, result.Status)
	assert.Nil(t, result.Weights)
}

func TestOptimizeTimeout(t *testing.T) {
	symbols := []string{"AAPL", "JPM", "XOM"}
	req := Request{
		Covariance:       identityCovariance(t, symbols),
		BenchmarkWeights: map[string]float64{"AAPL": 0.8, "JPM": 0.1, "XOM": 0.1},
		SectorMap:        testSectorMap,
	}

	opt := NewOptimizer(DefaultMaxWeight, time.Nanosecond, zerolog.Nop())
	result, err := opt.Optimize(context.Background(), req)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindSolver))
	require.NotNil(t, result)
	assert.Equal(t, domain.StatusTimeout, result.Status)
	assert.Nil(t, result.Weights)
}

func TestOptimizeRejectsNonFiniteCovariance(t *testing.T) {
	cov, err := risk.NewCovarianceMatrixFromRows([]string{"AAPL", "JPM"}, [][]float64{
		{1, math.NaN()},
		{math.NaN(), 1},
	})
	require.NoError(t, err)

	result, optErr := testOptimizer().Optimize(context.Background(), Request{
		Covariance:       cov,
		BenchmarkWeights: map[string]float64{"AAPL": 0.5, "JPM": 0.5},
		SectorMap:        testSectorMap,
	})
	require.Error(t, optErr)
	assert.True(t, domain.IsKind(optErr, domain.KindSolver))
	require.NotNil(t, result)
	assert.Equal(t, domain.StatusSolverError, result.Status)
}
