package universe

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// HistoryDB provides access to historical price data.
type HistoryDB struct {
	db  *sql.DB
	log zerolog.Logger
}

// HistoryDBInterface allows the risk module to consume prices without a
// concrete dependency on this package's storage.
type HistoryDBInterface interface {
	GetDailyPrices(symbol string, fromDate string) ([]DailyPrice, error)
	LatestPrices(symbols []string) (map[string]float64, error)
}

// NewHistoryDB creates a new history database accessor
func NewHistoryDB(db *sql.DB, log zerolog.Logger) *HistoryDB {
	return &HistoryDB{
		db:  db,
		log: log.With().Str("component", "history_db").Logger(),
	}
}

// InitSchema creates the daily_prices table if it does not exist.
func (h *HistoryDB) InitSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS daily_prices (
			symbol TEXT NOT NULL,
			date TEXT NOT NULL,
			close REAL NOT NULL,
			PRIMARY KEY (symbol, date)
		)
	`
	if _, err := h.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create daily_prices table: %w", err)
	}
	return nil
}

// GetDailyPrices fetches daily closes for a symbol from fromDate (inclusive),
// ordered by date ascending. An empty fromDate returns the full history.
func (h *HistoryDB) GetDailyPrices(symbol string, fromDate string) ([]DailyPrice, error) {
	query := `
		SELECT date, close
		FROM daily_prices
		WHERE symbol = ? AND date >= ?
		ORDER BY date ASC
	`

	rows, err := h.db.Query(query, symbol, fromDate)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []DailyPrice
	for rows.Next() {
		var p DailyPrice
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return prices, nil
}

// UpsertPrices writes a batch of daily closes for a symbol.
func (h *HistoryDB) UpsertPrices(symbol string, prices []DailyPrice) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin price upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO daily_prices (symbol, date, close)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET close = excluded.close
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare price upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range prices {
		if _, err := stmt.Exec(symbol, p.Date, p.Close); err != nil {
			return fmt.Errorf("failed to upsert price %s/%s: %w", symbol, p.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price upsert: %w", err)
	}

	return nil
}

// LatestPrices returns the most recent close per symbol.
func (h *HistoryDB) LatestPrices(symbols []string) (map[string]float64, error) {
	latest := make(map[string]float64, len(symbols))

	query := `
		SELECT close FROM daily_prices
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT 1
	`

	for _, symbol := range symbols {
		var closePrice float64
		err := h.db.QueryRow(query, symbol).Scan(&closePrice)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query latest price for %s: %w", symbol, err)
		}
		latest[symbol] = closePrice
	}

	return latest, nil
}
