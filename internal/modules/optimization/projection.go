package optimization

// projectionIterations bounds the bisection on the simplex threshold. Each
// iteration halves the bracket, so 200 iterations put the threshold far below
// floating-point resolution.
const projectionIterations = 200

// projectToCappedSimplex computes the Euclidean projection of v onto
// {w : Σw = 1, 0 ≤ w_i ≤ caps_i}. The projection is clamp(v_i − τ, 0, caps_i)
// for the unique threshold τ that makes the weights sum to one; τ is found by
// bisection since the sum is monotone decreasing in τ.
//
// Callers must ensure Σcaps ≥ 1, otherwise the set is empty.
func projectToCappedSimplex(v, caps []float64) []float64 {
	n := len(v)

	lo, hi := v[0]-caps[0], v[0]
	for i := 1; i < n; i++ {
		if v[i]-caps[i] < lo {
			lo = v[i] - caps[i]
		}
		if v[i] > hi {
			hi = v[i]
		}
	}
	// At τ=lo the sum is Σcaps ≥ 1; at τ=hi it is 0.
	for iter := 0; iter < projectionIterations; iter++ {
		mid := 0.5 * (lo + hi)
		if cappedSum(v, caps, mid) >= 1 {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < 1e-15 {
			break
		}
	}
	tau := 0.5 * (lo + hi)

	w := make([]float64, n)
	sum := 0.0
	for i := 0; i < n; i++ {
		w[i] = clamp(v[i]-tau, 0, caps[i])
		sum += w[i]
	}

	// Absorb residual bisection error into interior coordinates so the
	// budget constraint holds to machine precision.
	if residual := 1 - sum; residual != 0 {
		interior := 0
		for i := 0; i < n; i++ {
			if w[i] > 0 && w[i] < caps[i] {
				interior++
			}
		}
		if interior > 0 {
			share := residual / float64(interior)
			for i := 0; i < n; i++ {
				if w[i] > 0 && w[i] < caps[i] {
					w[i] = clamp(w[i]+share, 0, caps[i])
				}
			}
		}
	}

	return w
}

func cappedSum(v, caps []float64, tau float64) float64 {
	sum := 0.0
	for i := range v {
		sum += clamp(v[i]-tau, 0, caps[i])
	}
	return sum
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
