// Package risk builds returns panels and well-conditioned covariance matrices
// from historical prices.
package risk

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/quantscale/internal/domain"
)

// CovarianceMatrix is a symmetric covariance matrix indexed by ticker symbol.
// Immutable after construction.
type CovarianceMatrix struct {
	symbols []string
	index   map[string]int
	data    *mat.SymDense
}

func newCovarianceMatrix(symbols []string, data *mat.SymDense) *CovarianceMatrix {
	index := make(map[string]int, len(symbols))
	for i, s := range symbols {
		index[s] = i
	}
	ordered := make([]string, len(symbols))
	copy(ordered, symbols)
	return &CovarianceMatrix{symbols: ordered, index: index, data: data}
}

// Symbols returns the ordered ticker index. Callers must not mutate.
func (c *CovarianceMatrix) Symbols() []string {
	return c.symbols
}

// Dim returns the number of assets.
func (c *CovarianceMatrix) Dim() int {
	return len(c.symbols)
}

// At returns the covariance between assets i and j by position.
func (c *CovarianceMatrix) At(i, j int) float64 {
	return c.data.At(i, j)
}

// Cov returns the covariance between two symbols; second return is false when
// either symbol is not in the matrix.
func (c *CovarianceMatrix) Cov(a, b string) (float64, bool) {
	i, ok := c.index[a]
	if !ok {
		return 0, false
	}
	j, ok := c.index[b]
	if !ok {
		return 0, false
	}
	return c.data.At(i, j), true
}

// Sym returns the underlying symmetric matrix. Callers must not mutate.
func (c *CovarianceMatrix) Sym() *mat.SymDense {
	return c.data
}

// Rows returns the matrix as nested slices, ordered by Symbols.
func (c *CovarianceMatrix) Rows() [][]float64 {
	n := len(c.symbols)
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		rows[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			rows[i][j] = c.data.At(i, j)
		}
	}
	return rows
}

// CorrelationMatrix is a symmetric correlation matrix indexed by ticker symbol.
type CorrelationMatrix struct {
	symbols []string
	index   map[string]int
	data    *mat.SymDense
}

// CorrelationPair records a pair of assets whose correlation exceeds a
// diagnostic threshold.
type CorrelationPair struct {
	Symbol1     string  `json:"symbol1"`
	Symbol2     string  `json:"symbol2"`
	Correlation float64 `json:"correlation"`
}

// Symbols returns the ordered ticker index. Callers must not mutate.
func (c *CorrelationMatrix) Symbols() []string {
	return c.symbols
}

// Contains reports whether the symbol is present in the matrix.
func (c *CorrelationMatrix) Contains(symbol string) bool {
	_, ok := c.index[symbol]
	return ok
}

// Corr returns the correlation between two symbols; second return is false
// when either symbol is not in the matrix.
func (c *CorrelationMatrix) Corr(a, b string) (float64, bool) {
	i, ok := c.index[a]
	if !ok {
		return 0, false
	}
	j, ok := c.index[b]
	if !ok {
		return 0, false
	}
	return c.data.At(i, j), true
}

// HighCorrelations extracts pairs whose absolute correlation meets threshold.
func (c *CorrelationMatrix) HighCorrelations(threshold float64) []CorrelationPair {
	pairs := make([]CorrelationPair, 0)
	n := len(c.symbols)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			corr := c.data.At(i, j)
			if math.Abs(corr) >= threshold {
				pairs = append(pairs, CorrelationPair{
					Symbol1:     c.symbols[i],
					Symbol2:     c.symbols[j],
					Correlation: corr,
				})
			}
		}
	}
	return pairs
}

// ComputeCorrelation derives the correlation matrix from a covariance matrix.
// Assets with zero variance get zero correlation against everything.
func ComputeCorrelation(cov *CovarianceMatrix) *CorrelationMatrix {
	n := cov.Dim()
	data := mat.NewSymDense(n, nil)

	for i := 0; i < n; i++ {
		data.SetSym(i, i, 1.0)
		for j := i + 1; j < n; j++ {
			vi := cov.At(i, i)
			vj := cov.At(j, j)
			if vi > 0 && vj > 0 {
				data.SetSym(i, j, cov.At(i, j)/math.Sqrt(vi*vj))
			}
		}
	}

	index := make(map[string]int, n)
	symbols := make([]string, n)
	copy(symbols, cov.symbols)
	for i, s := range symbols {
		index[s] = i
	}

	return &CorrelationMatrix{symbols: symbols, index: index, data: data}
}

// NewCovarianceMatrixFromRows rebuilds a covariance matrix from nested slices,
// as produced by Rows. Used when decoding cached matrices.
func NewCovarianceMatrixFromRows(symbols []string, rows [][]float64) (*CovarianceMatrix, error) {
	n := len(symbols)
	if len(rows) != n {
		return nil, domain.DataError("risk.matrix", "row count %d does not match %d symbols", len(rows), n)
	}
	data := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		if len(rows[i]) != n {
			return nil, domain.DataError("risk.matrix", "row %d has %d columns, want %d", i, len(rows[i]), n)
		}
		for j := i; j < n; j++ {
			data.SetSym(i, j, rows[i][j])
		}
	}

	ordered := make([]string, n)
	copy(ordered, symbols)
	return newCovarianceMatrix(ordered, data), nil
}

// NewCorrelationMatrixFromRows builds a correlation matrix from nested slices.
// Used by callers that supply externally computed correlations (and by tests).
func NewCorrelationMatrixFromRows(symbols []string, rows [][]float64) *CorrelationMatrix {
	n := len(symbols)
	data := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			data.SetSym(i, j, rows[i][j])
		}
	}

	index := make(map[string]int, n)
	ordered := make([]string, n)
	copy(ordered, symbols)
	for i, s := range ordered {
		index[s] = i
	}

	return &CorrelationMatrix{symbols: ordered, index: index, data: data}
}
