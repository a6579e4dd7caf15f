package universe

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/quantscale/internal/domain"
)

// Snapshot is an immutable view of the active universe: ordered symbols plus
// sector and market-cap lookups. Requests capture a snapshot pointer once and
// never observe a partial refresh.
type Snapshot struct {
	symbols  []string
	sectors  map[string]string
	caps     map[string]float64
	loadedAt time.Time
}

// Symbols returns the ordered universe. Callers must not mutate the slice.
func (s *Snapshot) Symbols() []string {
	return s.symbols
}

// SectorOf returns the sector label for a symbol, "Unknown" when absent.
func (s *Snapshot) SectorOf(symbol string) string {
	if sector, ok := s.sectors[symbol]; ok && sector != "" {
		return sector
	}
	return "Unknown"
}

// MarketCapOf returns the market cap for a symbol; 0 means unknown and is
// always tolerated, never an error.
func (s *Snapshot) MarketCapOf(symbol string) float64 {
	return s.caps[symbol]
}

// SectorMap returns a copy of the symbol -> sector mapping.
func (s *Snapshot) SectorMap() map[string]string {
	m := make(map[string]string, len(s.symbols))
	for _, symbol := range s.symbols {
		m[symbol] = s.SectorOf(symbol)
	}
	return m
}

// CapMap returns a copy of the symbol -> market cap mapping.
func (s *Snapshot) CapMap() map[string]float64 {
	m := make(map[string]float64, len(s.symbols))
	for _, symbol := range s.symbols {
		m[symbol] = s.caps[symbol]
	}
	return m
}

// Tickers returns the universe as TickerData records in symbol order.
func (s *Snapshot) Tickers() []domain.TickerData {
	tickers := make([]domain.TickerData, 0, len(s.symbols))
	for _, symbol := range s.symbols {
		tickers = append(tickers, domain.TickerData{
			Symbol:    symbol,
			Sector:    s.SectorOf(symbol),
			MarketCap: s.caps[symbol],
		})
	}
	return tickers
}

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// SnapshotService holds the current universe snapshot behind an atomic pointer.
// Refresh is an explicit administrative operation; in-flight requests keep the
// snapshot they captured.
type SnapshotService struct {
	repo    *SecurityRepository
	current atomic.Pointer[Snapshot]
	log     zerolog.Logger
}

// NewSnapshotService creates a snapshot service over the security repository.
func NewSnapshotService(repo *SecurityRepository, log zerolog.Logger) *SnapshotService {
	return &SnapshotService{
		repo: repo,
		log:  log.With().Str("component", "universe_snapshot").Logger(),
	}
}

// Refresh rebuilds the snapshot from the securities table and swaps it in
// atomically. Returns the new snapshot.
func (s *SnapshotService) Refresh() (*Snapshot, error) {
	securities, err := s.repo.ListActive()
	if err != nil {
		return nil, domain.WrapError(domain.KindData, "universe.refresh", "failed to load securities", err)
	}

	snap := buildSnapshot(securities)
	s.current.Store(snap)

	s.log.Info().
		Int("num_symbols", len(snap.symbols)).
		Msg("Universe snapshot refreshed")

	return snap, nil
}

// Current returns the latest snapshot, loading it on first use.
func (s *SnapshotService) Current() (*Snapshot, error) {
	if snap := s.current.Load(); snap != nil {
		return snap, nil
	}
	return s.Refresh()
}

func buildSnapshot(securities []Security) *Snapshot {
	snap := &Snapshot{
		symbols:  make([]string, 0, len(securities)),
		sectors:  make(map[string]string, len(securities)),
		caps:     make(map[string]float64, len(securities)),
		loadedAt: time.Now().UTC(),
	}

	for _, sec := range securities {
		snap.symbols = append(snap.symbols, sec.Symbol)
		snap.sectors[sec.Symbol] = sec.Sector
		snap.caps[sec.Symbol] = sec.MarketCap
	}

	sort.Strings(snap.symbols)
	return snap
}

// NewSnapshotFromTickers builds a snapshot directly from ticker records.
// Used by tests and callers that already hold universe metadata.
func NewSnapshotFromTickers(tickers []domain.TickerData) *Snapshot {
	securities := make([]Security, 0, len(tickers))
	for _, t := range tickers {
		securities = append(securities, Security{
			Symbol:    t.Symbol,
			Sector:    t.Sector,
			MarketCap: t.MarketCap,
			Active:    true,
		})
	}
	return buildSnapshot(securities)
}
