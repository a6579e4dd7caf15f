package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantscale/internal/domain"
	"github.com/aristath/quantscale/internal/modules/attribution"
	"github.com/aristath/quantscale/internal/modules/narrative"
	"github.com/aristath/quantscale/internal/modules/optimization"
	"github.com/aristath/quantscale/internal/modules/risk"
	"github.com/aristath/quantscale/internal/modules/universe"
	"github.com/aristath/quantscale/internal/services"
)

type stubSnapshots struct {
	snap *universe.Snapshot
}

func (s *stubSnapshots) Current() (*universe.Snapshot, error) {
	return s.snap, nil
}

// stubHistory serves deterministic synthetic prices for any symbol.
type stubHistory struct {
	days int
}

func (s *stubHistory) GetDailyPrices(symbol string, fromDate string) ([]universe.DailyPrice, error) {
	seed := 0.0
	for _, r := range symbol {
		seed += float64(r)
	}

	base := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	prices := make([]universe.DailyPrice, s.days)
	for t := 0; t < s.days; t++ {
		drift := 100 + 0.2*float64(t)
		wiggle := 3*math.Sin(0.37*float64(t)+seed) + 2*math.Cos(0.52*float64(t)+2*seed)
		prices[t] = universe.DailyPrice{
			Date:  base.AddDate(0, 0, t).Format("2006-01-02"),
			Close: drift + wiggle,
		}
	}
	return prices, nil
}

func (s *stubHistory) LatestPrices(symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		prices, _ := s.GetDailyPrices(sym, "")
		out[sym] = prices[len(prices)-1].Close
	}
	return out, nil
}

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	log := zerolog.Nop()
	snap := universe.NewSnapshotFromTickers([]domain.TickerData{
		{Symbol: "AAPL", Sector: "Information Technology", MarketCap: 3000},
		{Symbol: "JNJ", Sector: "Health Care", MarketCap: 400},
		{Symbol: "JPM", Sector: "Financials", MarketCap: 500},
		{Symbol: "MSFT", Sector: "Information Technology", MarketCap: 2800},
		{Symbol: "XOM", Sector: "Energy", MarketCap: 450},
	})
	history := &stubHistory{days: 60}

	svc := services.NewPortfolioService(
		&stubSnapshots{snap: snap},
		risk.NewModelBuilder(history, log),
		optimization.NewOptimizer(optimization.DefaultMaxWeight, optimization.DefaultSolverTimeout, log),
		attribution.NewEngine(log),
		narrative.NewReporter(context.Background(), "", log),
		0, 0, "",
		log,
	)

	h := NewHandler(svc, log)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, r chi.Router, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleConstruct(t *testing.T) {
	r := newTestRouter(t)

	rec := postJSON(t, r, "/portfolio/construct", domain.ConstructRequest{
		ClientID:          "client-1",
		InitialInvestment: 100000,
		ExcludedTickers:   []string{"XOM"},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.ConstructResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, "client-1", result.ClientID)
	assert.NotEmpty(t, result.Weights)

	_, holdsExcluded := result.Weights["XOM"]
	assert.False(t, holdsExcluded)
}

func TestHandleConstructValidation(t *testing.T) {
	r := newTestRouter(t)

	rec := postJSON(t, r, "/portfolio/construct", domain.ConstructRequest{
		ClientID:          "client-1",
		InitialInvestment: -5,
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "config", resp["error"]["kind"])
}

func TestHandleConstructInfeasible(t *testing.T) {
	r := newTestRouter(t)

	rec := postJSON(t, r, "/portfolio/construct", domain.ConstructRequest{
		ClientID:          "client-1",
		InitialInvestment: 100000,
		ExcludedSectors:   []string{"Information Technology", "Health Care", "Financials", "Energy"},
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "infeasible", resp["error"]["kind"])
}

func TestHandleConstructRejectsInvalidBody(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/portfolio/construct", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
