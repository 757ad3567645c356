package postgres

import (
	"context"
	"fmt"

	"krx-market-lab/internal/domain"
	"krx-market-lab/internal/storage"
)

// DelistingStore implements storage.DelistingStore using PostgreSQL.
type DelistingStore struct {
	pool *Pool
}

// NewDelistingStore creates a new DelistingStore.
func NewDelistingStore(pool *Pool) *DelistingStore {
	return &DelistingStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DelistingStore = (*DelistingStore)(nil)

// Upsert inserts or refreshes a row keyed by (market_code, external_code).
func (s *DelistingStore) Upsert(ctx context.Context, row *domain.DelistingSnapshotRow) error {
	query := `
		INSERT INTO delisting_snapshot (
			market_code, external_code, delisting_date, reason, note,
			source_name, collected_at, run_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (market_code, external_code) DO UPDATE SET
			delisting_date = EXCLUDED.delisting_date,
			reason         = EXCLUDED.reason,
			note           = EXCLUDED.note,
			source_name    = EXCLUDED.source_name,
			collected_at   = EXCLUDED.collected_at,
			run_id         = EXCLUDED.run_id,
			updated_at     = now()
	`

	_, err := s.pool.Exec(ctx, query,
		row.MarketCode,
		row.ExternalCode,
		row.DelistingDate,
		row.Reason,
		row.Note,
		row.SourceName,
		row.CollectedAt,
		row.RunID,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("upsert delisting snapshot: %w", err)
	}
	return nil
}

// GetByMarket retrieves all snapshot rows of a market, ordered by external_code ASC.
func (s *DelistingStore) GetByMarket(ctx context.Context, marketCode string) ([]*domain.DelistingSnapshotRow, error) {
	query := `
		SELECT market_code, external_code, delisting_date, reason, note,
		       source_name, collected_at, updated_at, run_id
		FROM delisting_snapshot
		WHERE market_code = $1
		ORDER BY external_code ASC
	`

	rows, err := s.pool.Query(ctx, query, marketCode)
	if err != nil {
		return nil, fmt.Errorf("query delisting snapshot by market: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.DelistingSnapshotRow
	for rows.Next() {
		var snap domain.DelistingSnapshotRow
		err := rows.Scan(
			&snap.MarketCode,
			&snap.ExternalCode,
			&snap.DelistingDate,
			&snap.Reason,
			&snap.Note,
			&snap.SourceName,
			&snap.CollectedAt,
			&snap.UpdatedAt,
			&snap.RunID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan delisting snapshot: %w", err)
		}
		snapshots = append(snapshots, &snap)
	}
	return snapshots, rows.Err()
}
