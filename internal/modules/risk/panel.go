package risk

import (
	"math"
	"sort"

	"github.com/aristath/quantscale/internal/domain"
)

// MaxMissingFraction is the missing-data tolerance: symbols with more than
// this fraction of missing observations over the window are dropped from the
// panel rather than filled.
const MaxMissingFraction = 0.10

// TimeSeriesData holds aligned price series keyed by symbol. Missing
// observations are NaN.
type TimeSeriesData struct {
	Dates []string
	Data  map[string][]float64
}

// BuildPanelFromPrices aligns per-symbol price series on the union of their
// dates, drops symbols beyond the missing-data tolerance, fills the remaining
// gaps (forward then backward), and converts to simple returns. Symbol order
// in the panel is alphabetical.
func BuildPanelFromPrices(prices map[string][]PricePoint) (*domain.ReturnsPanel, error) {
	if len(prices) == 0 {
		return nil, domain.DataError("risk.panel", "no price series provided")
	}

	series := alignPrices(prices)
	if len(series.Dates) < 2 {
		return nil, domain.DataError("risk.panel", "insufficient price history: %d dates", len(series.Dates))
	}

	series = dropSparseSeries(series)
	if len(series.Data) == 0 {
		return nil, domain.DataError("risk.panel", "all symbols exceeded the %.0f%% missing-data tolerance", MaxMissingFraction*100)
	}

	series = fillMissing(series)
	return toReturnsPanel(series), nil
}

// PricePoint is one dated closing price.
type PricePoint struct {
	Date  string
	Close float64
}

func alignPrices(prices map[string][]PricePoint) TimeSeriesData {
	dateSet := make(map[string]bool)
	for _, points := range prices {
		for _, p := range points {
			dateSet[p.Date] = true
		}
	}

	dates := make([]string, 0, len(dateSet))
	for d := range dateSet {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	data := make(map[string][]float64, len(prices))
	for symbol, points := range prices {
		byDate := make(map[string]float64, len(points))
		for _, p := range points {
			byDate[p.Date] = p.Close
		}

		row := make([]float64, len(dates))
		for i, d := range dates {
			if close, ok := byDate[d]; ok {
				row[i] = close
			} else {
				row[i] = math.NaN()
			}
		}
		data[symbol] = row
	}

	return TimeSeriesData{Dates: dates, Data: data}
}

// dropSparseSeries removes symbols whose missing fraction exceeds tolerance.
func dropSparseSeries(series TimeSeriesData) TimeSeriesData {
	kept := TimeSeriesData{
		Dates: series.Dates,
		Data:  make(map[string][]float64, len(series.Data)),
	}

	total := float64(len(series.Dates))
	for symbol, prices := range series.Data {
		missing := 0
		for _, p := range prices {
			if math.IsNaN(p) {
				missing++
			}
		}
		if float64(missing)/total > MaxMissingFraction {
			continue
		}
		kept.Data[symbol] = prices
	}

	return kept
}

// fillMissing fills gaps using forward-fill then back-fill, matching the
// upstream data-cleaning policy for tolerated gaps.
func fillMissing(series TimeSeriesData) TimeSeriesData {
	filled := TimeSeriesData{
		Dates: series.Dates,
		Data:  make(map[string][]float64, len(series.Data)),
	}

	for symbol, prices := range series.Data {
		row := make([]float64, len(prices))
		copy(row, prices)

		// Forward-fill
		var lastValid float64
		hasLastValid := false
		for i := 0; i < len(row); i++ {
			if math.IsNaN(row[i]) {
				if hasLastValid {
					row[i] = lastValid
				}
			} else {
				lastValid = row[i]
				hasLastValid = true
			}
		}

		// Back-fill leading NaNs
		var nextValid float64
		hasNextValid := false
		for i := len(row) - 1; i >= 0; i-- {
			if math.IsNaN(row[i]) {
				if hasNextValid {
					row[i] = nextValid
				}
			} else {
				nextValid = row[i]
				hasNextValid = true
			}
		}

		filled.Data[symbol] = row
	}

	return filled
}

func toReturnsPanel(series TimeSeriesData) *domain.ReturnsPanel {
	symbols := make([]string, 0, len(series.Data))
	for symbol := range series.Data {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	numObs := len(series.Dates) - 1
	returns := make(map[string][]float64, len(symbols))
	for _, symbol := range symbols {
		prices := series.Data[symbol]
		row := make([]float64, numObs)
		for i := 1; i < len(prices); i++ {
			if prices[i-1] > 0 && !math.IsNaN(prices[i]) && !math.IsNaN(prices[i-1]) {
				row[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
			}
		}
		returns[symbol] = row
	}

	return &domain.ReturnsPanel{
		Dates:   series.Dates[1:],
		Symbols: symbols,
		Returns: returns,
	}
}
