package universe

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// securitiesColumns is the list of columns for the securities table.
// Used to avoid SELECT * which can break when schema changes.
const securitiesColumns = `symbol, name, sector, market_cap, active, updated_at`

// SecurityRepository handles security database operations.
type SecurityRepository struct {
	universeDB *sql.DB
	log        zerolog.Logger
}

// NewSecurityRepository creates a new security repository.
func NewSecurityRepository(universeDB *sql.DB, log zerolog.Logger) *SecurityRepository {
	return &SecurityRepository{
		universeDB: universeDB,
		log:        log.With().Str("repo", "security").Logger(),
	}
}

// InitSchema creates the securities table if it does not exist.
func (r *SecurityRepository) InitSchema() error {
	query := `
		CREATE TABLE IF NOT EXISTS securities (
			symbol TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			sector TEXT NOT NULL DEFAULT 'Unknown',
			market_cap REAL NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			updated_at INTEGER NOT NULL
		)
	`
	if _, err := r.universeDB.Exec(query); err != nil {
		return fmt.Errorf("failed to create securities table: %w", err)
	}
	return nil
}

// GetBySymbol returns a security by symbol, or nil when not found.
func (r *SecurityRepository) GetBySymbol(symbol string) (*Security, error) {
	query := "SELECT " + securitiesColumns + " FROM securities WHERE symbol = ?"

	row := r.universeDB.QueryRow(query, strings.ToUpper(strings.TrimSpace(symbol)))
	sec, err := scanSecurity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query security by symbol: %w", err)
	}
	return sec, nil
}

// ListActive returns all active securities ordered by symbol.
func (r *SecurityRepository) ListActive() ([]Security, error) {
	query := "SELECT " + securitiesColumns + " FROM securities WHERE active = 1 ORDER BY symbol"

	rows, err := r.universeDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active securities: %w", err)
	}
	defer rows.Close()

	var securities []Security
	for rows.Next() {
		sec, err := scanSecurity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		securities = append(securities, *sec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating securities: %w", err)
	}

	return securities, nil
}

// Upsert inserts or updates a security.
func (r *SecurityRepository) Upsert(sec Security) error {
	query := `
		INSERT INTO securities (symbol, name, sector, market_cap, active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name = excluded.name,
			sector = excluded.sector,
			market_cap = excluded.market_cap,
			active = excluded.active,
			updated_at = excluded.updated_at
	`

	active := 0
	if sec.Active {
		active = 1
	}

	_, err := r.universeDB.Exec(query,
		strings.ToUpper(strings.TrimSpace(sec.Symbol)),
		sec.Name,
		sec.Sector,
		sec.MarketCap,
		active,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert security %s: %w", sec.Symbol, err)
	}

	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanSecurity.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSecurity(s scanner) (*Security, error) {
	var sec Security
	var active int
	var updatedUnix int64

	if err := s.Scan(&sec.Symbol, &sec.Name, &sec.Sector, &sec.MarketCap, &active, &updatedUnix); err != nil {
		return nil, err
	}

	sec.Active = active == 1
	sec.UpdatedAt = time.Unix(updatedUnix, 0).UTC()
	return &sec, nil
}
