package narrative

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantscale/internal/domain"
)

func testReport() *domain.AttributionReport {
	return &domain.AttributionReport{
		AllocationEffect:  -0.004,
		SelectionEffect:   0.009,
		TotalActiveReturn: 0.005,
		TopContributors: []domain.RankedHolding{
			{Symbol: "AAPL", Sector: "Information Technology", Held: true, ActiveWeight: 0.01, Contribution: 0.001},
		},
		TopDetractors: []domain.RankedHolding{
			{Symbol: "MSFT", Sector: "Information Technology", Held: false, Excluded: true, ActiveWeight: -0.06, Contribution: -0.006},
		},
	}
}

func TestGenerateFallsBackToTemplateWithoutAPIKey(t *testing.T) {
	reporter := NewReporter(context.Background(), "", zerolog.Nop())

	text := reporter.Generate(context.Background(), Input{
		Report:        testReport(),
		Exclusions:    []string{"Energy", "TSLA"},
		Benchmark:     "SPY",
		Status:        domain.StatusOptimal,
		TrackingError: 0.0342,
	})

	require.NotEmpty(t, text)
	assert.Contains(t, text, "Market Commentary")
	assert.Contains(t, text, "SPY")
	assert.Contains(t, text, "Energy, TSLA")
	assert.Contains(t, text, "3.42%")
	assert.Contains(t, text, "AAPL")
	assert.Contains(t, text, "MSFT")
	// The top detractor is unheld; the template must not call it a holding.
	assert.Contains(t, text, "unheld")
}

func TestGenerateTemplateWithoutExclusions(t *testing.T) {
	reporter := NewReporter(context.Background(), "", zerolog.Nop())

	text := reporter.Generate(context.Background(), Input{
		Report: testReport(),
		Status: domain.StatusOptimalInaccurate,
	})

	assert.Contains(t, text, "None")
	assert.Contains(t, text, string(domain.StatusOptimalInaccurate))
}

func TestGenerateNilReport(t *testing.T) {
	reporter := NewReporter(context.Background(), "", zerolog.Nop())
	assert.Empty(t, reporter.Generate(context.Background(), Input{}))
}

func TestBuildPromptCarriesOnlyReportData(t *testing.T) {
	reporter := NewReporter(context.Background(), "", zerolog.Nop())

	prompt, err := reporter.buildPrompt(Input{
		Report:        testReport(),
		Exclusions:    []string{"Energy"},
		Benchmark:     "SPY",
		Status:        domain.StatusOptimal,
		TrackingError: 0.02,
	})
	require.NoError(t, err)

	assert.Contains(t, prompt, `"symbol": "MSFT"`)
	assert.Contains(t, prompt, `"excluded": true`)
	assert.Contains(t, prompt, "Exclusions: Energy")
	assert.Contains(t, prompt, "0.50%") // total active return
}
