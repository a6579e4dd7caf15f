package universe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/quantscale/internal/domain"
)

func selectionSnapshot() *Snapshot {
	return NewSnapshotFromTickers([]domain.TickerData{
		{Symbol: "AAPL", Sector: "Information Technology", MarketCap: 3000},
		{Symbol: "JNJ", Sector: "Health Care", MarketCap: 400},
		{Symbol: "JPM", Sector: "Financials", MarketCap: 500},
		{Symbol: "MSFT", Sector: "Information Technology", MarketCap: 2800},
		{Symbol: "PLTR", Sector: "Information Technology", MarketCap: 0}, // unknown cap
	})
}

func TestSelectUniverse(t *testing.T) {
	snap := selectionSnapshot()

	tests := []struct {
		name     string
		strategy string
		topN     int
		want     []string
	}{
		{
			name: "empty strategy returns everything",
			want: []string{"AAPL", "JNJ", "JPM", "MSFT", "PLTR"},
		},
		{
			name:     "largest market cap",
			strategy: "largest_market_cap",
			topN:     3,
			want:     []string{"AAPL", "JPM", "MSFT"},
		},
		{
			name:     "smallest market cap ranks unknown caps first",
			strategy: "smallest_market_cap",
			topN:     2,
			want:     []string{"JNJ", "PLTR"},
		},
		{
			name:     "top_n larger than universe keeps everything",
			strategy: "largest_market_cap",
			topN:     50,
			want:     []string{"AAPL", "JNJ", "JPM", "MSFT", "PLTR"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectUniverse(snap, tt.strategy, tt.topN)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectUniverseErrors(t *testing.T) {
	snap := selectionSnapshot()

	_, err := SelectUniverse(snap, "alphabetical", 3)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConfig))

	_, err = SelectUniverse(snap, "largest_market_cap", 0)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindConfig))
}

func TestSelectUniverseDoesNotMutateSnapshot(t *testing.T) {
	snap := selectionSnapshot()

	_, err := SelectUniverse(snap, "smallest_market_cap", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "JNJ", "JPM", "MSFT", "PLTR"}, snap.Symbols())
}
