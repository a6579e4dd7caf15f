package optimization

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/aristath/quantscale/internal/domain"
	"github.com/aristath/quantscale/internal/modules/risk"
)

const (
	// DefaultSolverTimeout bounds a single solve.
	DefaultSolverTimeout = 30 * time.Second

	// maxIterations caps the projected-gradient loop. Hitting it without
	// meeting the tolerance yields an inaccurate (but usable) status.
	maxIterations = 5000

	// convergenceTol is the stationarity tolerance on the projected step,
	// measured in weight units.
	convergenceTol = 1e-10

	// powerIterations bounds the dominant-eigenvalue estimate used for the
	// step size.
	powerIterations = 100
)

// Request carries one solve's inputs. BenchmarkWeights keys missing from the
// covariance universe are ignored; universe symbols missing from
// BenchmarkWeights get benchmark weight zero.
type Request struct {
	Covariance       *risk.CovarianceMatrix
	BenchmarkWeights map[string]float64
	SectorMap        map[string]string
	ExcludedSectors  []string
	ExcludedTickers  []string
	MaxWeight        *float64
}

// Optimizer minimizes tracking error against a benchmark subject to
// long-only, budget and per-asset cap constraints. Solves are pure functions
// of the request; the struct only carries configuration.
type Optimizer struct {
	defaultCap float64
	timeout    time.Duration
	log        zerolog.Logger
}

// NewOptimizer creates an optimizer. Zero values fall back to
// DefaultMaxWeight and DefaultSolverTimeout.
func NewOptimizer(defaultCap float64, timeout time.Duration, log zerolog.Logger) *Optimizer {
	if defaultCap <= 0 {
		defaultCap = DefaultMaxWeight
	}
	if timeout <= 0 {
		timeout = DefaultSolverTimeout
	}
	return &Optimizer{
		defaultCap: defaultCap,
		timeout:    timeout,
		log:        log.With().Str("component", "optimizer").Logger(),
	}
}

// Optimize minimizes (w − w_b)ᵀ Σ (w − w_b) over the feasible set by
// projected gradient descent with an exact projection onto the capped
// simplex. The projection keeps every iterate feasible, so excluded assets
// hold exact zeros and Σw = 1 at every step.
//
// Weights are returned only with a determinate optimal or inaccurate status;
// infeasible, solver-error and timeout outcomes carry the status plus a typed
// error and no weights.
func (o *Optimizer) Optimize(ctx context.Context, req Request) (*domain.OptimizationResult, error) {
	if req.Covariance == nil || req.Covariance.Dim() == 0 {
		return nil, domain.DataError("optimization.solve", "missing covariance matrix")
	}

	symbols := req.Covariance.Symbols()
	cons, err := BuildConstraints(symbols, req.SectorMap, req.ExcludedSectors, req.ExcludedTickers, req.MaxWeight, o.defaultCap)
	if err != nil {
		if domain.IsKind(err, domain.KindInfeasible) {
			return &domain.OptimizationResult{Status: domain.StatusInfeasible}, err
		}
		return nil, err
	}

	n := len(symbols)
	sigma := req.Covariance.Sym()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if v := sigma.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return &domain.OptimizationResult{Status: domain.StatusSolverError},
					domain.SolverError("optimization.solve", "covariance entry (%s, %s) is not finite", symbols[i], symbols[j])
			}
		}
	}

	b := make([]float64, n)
	for i, symbol := range symbols {
		b[i] = req.BenchmarkWeights[symbol]
	}

	deadline := time.Now().Add(o.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	start := time.Now()
	weights, status := o.solve(sigma, b, cons.Caps, deadline)
	elapsed := time.Since(start)

	switch status {
	case domain.StatusTimeout:
		o.log.Warn().
			Int("num_assets", n).
			Dur("elapsed", elapsed).
			Msg("Solver timed out")
		return &domain.OptimizationResult{Status: domain.StatusTimeout},
			domain.SolverError("optimization.solve", "solver exceeded %s timeout", o.timeout)
	case domain.StatusSolverError:
		return &domain.OptimizationResult{Status: domain.StatusSolverError},
			domain.SolverError("optimization.solve", "iterates diverged to non-finite values")
	}

	objective := trackingVariance(sigma, weights, b)
	trackingError := math.Sqrt(math.Max(objective, 0))

	// Zero tiny weights for display only. Deliberately no renormalization:
	// the discarded mass is below 1e-4 per asset and renormalizing would
	// perturb every remaining weight.
	result := make(map[string]float64, n)
	for i, symbol := range symbols {
		w := weights[i]
		if w < domain.MinDisplayWeight {
			w = 0
		}
		result[symbol] = w
	}

	o.log.Info().
		Int("num_assets", n).
		Int("num_active", cons.NumActive).
		Float64("effective_cap", cons.EffectiveCap).
		Float64("tracking_error", trackingError).
		Str("status", string(status)).
		Dur("elapsed", elapsed).
		Msg("Optimization complete")

	return &domain.OptimizationResult{
		Weights:       result,
		TrackingError: trackingError,
		Status:        status,
	}, nil
}

// solve runs projected gradient descent from the projected benchmark with
// step 1/L, L = 2·λ_max(Σ).
func (o *Optimizer) solve(sigma *mat.SymDense, b, caps []float64, deadline time.Time) ([]float64, domain.OptimizationStatus) {
	n := len(b)

	lambdaMax := dominantEigenvalue(sigma)
	if lambdaMax <= 0 {
		// Degenerate covariance: every feasible point has zero objective.
		return projectToCappedSimplex(b, caps), domain.StatusOptimal
	}
	step := 1.0 / (2.0 * lambdaMax)

	w := projectToCappedSimplex(b, caps)
	grad := make([]float64, n)
	next := make([]float64, n)
	diff := make([]float64, n)

	for iter := 0; iter < maxIterations; iter++ {
		if time.Now().After(deadline) {
			return nil, domain.StatusTimeout
		}

		// grad = 2·Σ·(w − b)
		for i := 0; i < n; i++ {
			diff[i] = w[i] - b[i]
		}
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < n; j++ {
				sum += sigma.At(i, j) * diff[j]
			}
			grad[i] = 2 * sum
		}

		for i := 0; i < n; i++ {
			next[i] = w[i] - step*grad[i]
			if math.IsNaN(next[i]) || math.IsInf(next[i], 0) {
				return nil, domain.StatusSolverError
			}
		}
		projected := projectToCappedSimplex(next, caps)

		maxDelta := 0.0
		for i := 0; i < n; i++ {
			if d := math.Abs(projected[i] - w[i]); d > maxDelta {
				maxDelta = d
			}
		}
		copy(w, projected)

		if maxDelta < convergenceTol {
			return w, domain.StatusOptimal
		}
	}

	return w, domain.StatusOptimalInaccurate
}

// dominantEigenvalue estimates λ_max(Σ) by power iteration. Σ is PSD so the
// Rayleigh quotient converges from any non-orthogonal start.
func dominantEigenvalue(sigma *mat.SymDense) float64 {
	n := sigma.SymmetricDim()
	v := make([]float64, n)
	for i := range v {
		v[i] = 1.0 / math.Sqrt(float64(n))
	}

	lambda := 0.0
	next := make([]float64, n)
	for iter := 0; iter < powerIterations; iter++ {
		norm := 0.0
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j < n; j++ {
				sum += sigma.At(i, j) * v[j]
			}
			next[i] = sum
			norm += sum * sum
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			return 0
		}

		rayleigh := 0.0
		for i := 0; i < n; i++ {
			rayleigh += v[i] * next[i]
			v[i] = next[i] / norm
		}

		if iter > 0 && math.Abs(rayleigh-lambda) < 1e-12*math.Max(1, math.Abs(rayleigh)) {
			return rayleigh
		}
		lambda = rayleigh
	}

	return lambda
}

// trackingVariance computes (w − b)ᵀ Σ (w − b).
func trackingVariance(sigma *mat.SymDense, w, b []float64) float64 {
	n := len(w)
	total := 0.0
	for i := 0; i < n; i++ {
		di := w[i] - b[i]
		for j := 0; j < n; j++ {
			total += di * sigma.At(i, j) * (w[j] - b[j])
		}
	}
	return total
}
