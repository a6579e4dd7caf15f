package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantscale/internal/domain"
)

func pricePoints(dates []string, closes []float64) []PricePoint {
	points := make([]PricePoint, len(dates))
	for i := range dates {
		points[i] = PricePoint{Date: dates[i], Close: closes[i]}
	}
	return points
}

func TestBuildPanelFromPrices(t *testing.T) {
	dates := []string{"2025-01-02", "2025-01-03", "2025-01-06", "2025-01-07"}
	panel, err := BuildPanelFromPrices(map[string][]PricePoint{
		"MSFT": pricePoints(dates, []float64{200, 202, 198, 200}),
		"AAPL": pricePoints(dates, []float64{100, 101, 99, 100}),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, panel.Symbols)
	assert.Equal(t, dates[1:], panel.Dates)
	require.Equal(t, 3, panel.NumObservations())

	assert.InDelta(t, 0.01, panel.Returns["AAPL"][0], 1e-12)
	assert.InDelta(t, (99.0-101.0)/101.0, panel.Returns["AAPL"][1], 1e-12)
	assert.InDelta(t, (200.0-198.0)/198.0, panel.Returns["MSFT"][2], 1e-12)
}

func TestBuildPanelFillsToleratedGaps(t *testing.T) {
	dates := []string{"2025-01-02", "2025-01-03", "2025-01-06", "2025-01-07",
		"2025-01-08", "2025-01-09", "2025-01-10", "2025-01-13",
		"2025-01-14", "2025-01-15"}

	full := pricePoints(dates, []float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109})

	// One missing date out of ten is within tolerance; the gap forward-fills
	// so the return on the missing day is zero and the next day absorbs it.
	gappy := make([]PricePoint, 0, len(dates)-1)
	for i, p := range pricePoints(dates, []float64{50, 51, 52, 53, 54, 55, 56, 57, 58, 59}) {
		if i == 4 {
			continue
		}
		gappy = append(gappy, p)
	}

	panel, err := BuildPanelFromPrices(map[string][]PricePoint{
		"FULL": full,
		"GAP":  gappy,
	})
	require.NoError(t, err)

	require.Contains(t, panel.Returns, "GAP")
	assert.InDelta(t, 0.0, panel.Returns["GAP"][3], 1e-12)
	assert.InDelta(t, (55.0-53.0)/53.0, panel.Returns["GAP"][4], 1e-12)
}

func TestBuildPanelDropsSparseSymbols(t *testing.T) {
	dates := []string{"2025-01-02", "2025-01-03", "2025-01-06", "2025-01-07",
		"2025-01-08", "2025-01-09", "2025-01-10", "2025-01-13",
		"2025-01-14", "2025-01-15"}

	full := pricePoints(dates, []float64{100, 101, 102, 103, 104, 105, 106, 107, 108, 109})
	// Only 7 of 10 dates present: 30% missing, over the 10% tolerance.
	sparse := pricePoints(dates[:7], []float64{50, 51, 52, 53, 54, 55, 56})

	panel, err := BuildPanelFromPrices(map[string][]PricePoint{
		"FULL":   full,
		"SPARSE": sparse,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"FULL"}, panel.Symbols)
	assert.NotContains(t, panel.Returns, "SPARSE")
}

func TestBuildPanelErrors(t *testing.T) {
	tests := []struct {
		name   string
		prices map[string][]PricePoint
	}{
		{name: "no series", prices: map[string][]PricePoint{}},
		{
			name: "single date",
			prices: map[string][]PricePoint{
				"AAPL": {{Date: "2025-01-02", Close: 100}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPanelFromPrices(tt.prices)
			require.Error(t, err)
			assert.True(t, domain.IsKind(err, domain.KindData))
		})
	}
}
