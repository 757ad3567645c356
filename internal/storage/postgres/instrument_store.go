package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// InstrumentStore implements storage.InstrumentStore using PostgreSQL.
type InstrumentStore struct {
	pool *Pool
}

// NewInstrumentStore creates a new InstrumentStore.
func NewInstrumentStore(pool *Pool) *InstrumentStore {
	return &InstrumentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.InstrumentStore = (*InstrumentStore)(nil)

// Upsert inserts or refreshes an instrument keyed by instrument_id.
// COALESCE keeps a stored delisting date when the incoming row carries none:
// the master feed stops listing a symbol after it delists, so a nil here is
// absence of information, not a relisting.
func (s *InstrumentStore) Upsert(ctx context.Context, inst *domain.Instrument) error {
	query := `
		INSERT INTO instruments (
			instrument_id, external_code, market_code, name, name_abbr, name_eng,
			listing_date, delisting_date, listed_shares, security_group,
			sector_name, stock_type, par_value, source_name, collected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (instrument_id) DO UPDATE SET
			name           = EXCLUDED.name,
			name_abbr      = EXCLUDED.name_abbr,
			name_eng       = EXCLUDED.name_eng,
			listing_date   = EXCLUDED.listing_date,
			delisting_date = COALESCE(EXCLUDED.delisting_date, instruments.delisting_date),
			listed_shares  = EXCLUDED.listed_shares,
			security_group = EXCLUDED.security_group,
			sector_name    = EXCLUDED.sector_name,
			stock_type     = EXCLUDED.stock_type,
			par_value      = EXCLUDED.par_value,
			source_name    = EXCLUDED.source_name,
			collected_at   = EXCLUDED.collected_at,
			updated_at     = now()
	`

	_, err := s.pool.Exec(ctx, query,
		inst.InstrumentID,
		inst.ExternalCode,
		inst.MarketCode,
		inst.Name,
		inst.NameAbbr,
		inst.NameEng,
		inst.ListingDate,
		inst.DelistingDate,
		inst.ListedShares,
		inst.SecurityGroup,
		inst.SectorName,
		inst.StockType,
		inst.ParValue,
		inst.SourceName,
		inst.CollectedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("upsert instrument: %w", err)
	}
	return nil
}

// GetByID retrieves an instrument. Returns ErrNotFound if not exists.
func (s *InstrumentStore) GetByID(ctx context.Context, instrumentID uuid.UUID) (*domain.Instrument, error) {
	query := selectInstrument + ` WHERE instrument_id = $1`

	row := s.pool.QueryRow(ctx, query, instrumentID)
	inst, err := scanInstrument(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get instrument by id: %w", err)
	}
	return inst, nil
}

// GetByMarketCode retrieves all instruments of a market, ordered by external_code ASC.
func (s *InstrumentStore) GetByMarketCode(ctx context.Context, marketCode string) ([]*domain.Instrument, error) {
	query := selectInstrument + ` WHERE market_code = $1 ORDER BY external_code ASC`

	rows, err := s.pool.Query(ctx, query, marketCode)
	if err != nil {
		return nil, fmt.Errorf("query instruments by market: %w", err)
	}
	defer rows.Close()

	var instruments []*domain.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		instruments = append(instruments, inst)
	}
	return instruments, rows.Err()
}

// Exists reports whether an instrument row is present.
func (s *InstrumentStore) Exists(ctx context.Context, instrumentID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM instruments WHERE instrument_id = $1)`,
		instrumentID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check instrument exists: %w", err)
	}
	return exists, nil
}

// UpdateDelisting sets the delisting date of an existing instrument.
// Returns ErrNotFound if the instrument does not exist.
func (s *InstrumentStore) UpdateDelisting(ctx context.Context, instrumentID uuid.UUID, delistingDate time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE instruments SET delisting_date = $2, updated_at = now() WHERE instrument_id = $1`,
		instrumentID, delistingDate,
	)
	if err != nil {
		return fmt.Errorf("update delisting date: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const selectInstrument = `
	SELECT instrument_id, external_code, market_code, name, name_abbr, name_eng,
	       listing_date, delisting_date, listed_shares, security_group,
	       sector_name, stock_type, par_value, source_name, collected_at, updated_at
	FROM instruments
`

// scanInstrument scans a single row into Instrument.
func scanInstrument(row pgx.Row) (*domain.Instrument, error) {
	var inst domain.Instrument

	err := row.Scan(
		&inst.InstrumentID,
		&inst.ExternalCode,
		&inst.MarketCode,
		&inst.Name,
		&inst.NameAbbr,
		&inst.NameEng,
		&inst.ListingDate,
		&inst.DelistingDate,
		&inst.ListedShares,
		&inst.SecurityGroup,
		&inst.SectorName,
		&inst.StockType,
		&inst.ParValue,
		&inst.SourceName,
		&inst.CollectedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}
