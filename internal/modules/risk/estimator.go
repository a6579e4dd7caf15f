package risk

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/quantscale/internal/domain"
)

// eigenFloor is the minimum eigenvalue kept after the post-estimation repair.
// Values below it are floating-point noise on a matrix that should be PSD.
const eigenFloor = 1e-10

// ComputeCovariance estimates a well-conditioned covariance matrix from a
// returns panel using Ledoit-Wolf shrinkage toward a scaled identity target.
// The shrinkage intensity is data driven and clamped to [0, 1], which keeps
// the estimate invertible even when the asset count approaches or exceeds the
// observation count.
//
// Fails with a data error when the panel is empty or has fewer observations
// than assets+1.
//
// Reference: Ledoit, O., & Wolf, M. (2004). "A well-conditioned estimator for
// large-dimensional covariance matrices"
func ComputeCovariance(panel *domain.ReturnsPanel) (*CovarianceMatrix, error) {
	if panel == nil || panel.NumAssets() == 0 || panel.NumObservations() == 0 {
		return nil, domain.DataError("risk.covariance", "empty returns panel")
	}

	n := panel.NumAssets()
	t := panel.NumObservations()
	if t < n+1 {
		return nil, domain.DataError("risk.covariance",
			"insufficient observations: %d observations for %d assets (need at least %d)", t, n, n+1)
	}

	// Build the T×N observation matrix in panel symbol order and center it.
	obs := make([][]float64, t)
	means := make([]float64, n)
	for j, symbol := range panel.Symbols {
		series, ok := panel.Returns[symbol]
		if !ok || len(series) != t {
			return nil, domain.DataError("risk.covariance", "inconsistent return series for %s", symbol)
		}
		sum := 0.0
		for _, r := range series {
			sum += r
		}
		means[j] = sum / float64(t)
	}
	for k := 0; k < t; k++ {
		row := make([]float64, n)
		for j, symbol := range panel.Symbols {
			row[j] = panel.Returns[symbol][k] - means[j]
		}
		obs[k] = row
	}

	sample := sampleCovariance(obs)
	delta, mu := shrinkageIntensity(obs, sample)

	// Σ = δ·μI + (1−δ)·S
	shrunk := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := (1 - delta) * sample.At(i, j)
			if i == j {
				v += delta * mu
			}
			shrunk.SetSym(i, j, v)
		}
	}

	repaired, err := repairToPSD(shrunk)
	if err != nil {
		return nil, err
	}

	return newCovarianceMatrix(panel.Symbols, repaired), nil
}

// sampleCovariance computes S = (1/T) Σ_t x_t x_tᵀ over centered observations.
// The 1/T normalization matches the Ledoit-Wolf intensity formulas.
func sampleCovariance(obs [][]float64) *mat.SymDense {
	t := len(obs)
	n := len(obs[0])

	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sum := 0.0
			for k := 0; k < t; k++ {
				sum += obs[k][i] * obs[k][j]
			}
			s.SetSym(i, j, sum/float64(t))
		}
	}

	return s
}

// shrinkageIntensity returns the Ledoit-Wolf optimal intensity δ ∈ [0, 1] and
// the scaled-identity target level μ = tr(S)/N.
//
//	μ  = <S, I>/N
//	d² = ||S − μI||²_F / N               (dispersion of S around the target)
//	b² = min(d², (1/T²)·Σ_t ||x_t x_tᵀ − S||²_F / N)   (estimation noise)
//	δ  = b² / d²
func shrinkageIntensity(obs [][]float64, sample *mat.SymDense) (delta, mu float64) {
	t := len(obs)
	n := sample.SymmetricDim()

	trace := 0.0
	for i := 0; i < n; i++ {
		trace += sample.At(i, i)
	}
	mu = trace / float64(n)

	d2 := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			diff := sample.At(i, j)
			if i == j {
				diff -= mu
			}
			d2 += diff * diff
		}
	}
	d2 /= float64(n)

	if d2 <= 0 {
		// Sample already equals the target; nothing to shrink.
		return 0, mu
	}

	b2bar := 0.0
	for k := 0; k < t; k++ {
		x := obs[k]
		normSq := 0.0
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				diff := x[i]*x[j] - sample.At(i, j)
				normSq += diff * diff
			}
		}
		b2bar += normSq / float64(n)
	}
	b2bar /= float64(t * t)

	b2 := math.Min(b2bar, d2)
	delta = b2 / d2

	// Guard against numerical drift outside [0, 1].
	delta = math.Max(0, math.Min(1, delta))
	return delta, mu
}

// repairToPSD verifies the eigenvalues of a nominally PSD matrix and floors
// minor floating-point violations rather than trusting the estimator blindly.
func repairToPSD(s *mat.SymDense) (*mat.SymDense, error) {
	n := s.SymmetricDim()

	var eig mat.EigenSym
	if !eig.Factorize(s, true) {
		return nil, domain.DataError("risk.covariance", "eigendecomposition failed")
	}

	values := eig.Values(nil)
	needsRepair := false
	for _, v := range values {
		if v < eigenFloor {
			needsRepair = true
			break
		}
	}
	if !needsRepair {
		return s, nil
	}

	for i, v := range values {
		if v < eigenFloor {
			values[i] = eigenFloor
		}
	}

	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Reconstruct Q·Λ·Qᵀ with floored eigenvalues.
	scaled := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			scaled.Set(i, j, vectors.At(i, j)*values[j])
		}
	}
	var product mat.Dense
	product.Mul(scaled, vectors.T())

	// Symmetrize explicitly to absorb reconstruction round-off.
	repaired := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			repaired.SetSym(i, j, 0.5*(product.At(i, j)+product.At(j, i)))
		}
	}

	return repaired, nil
}
