package snapshot

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/de-tools/spend-atlas/pkg/adapters"
	"github.com/de-tools/spend-atlas/pkg/models/domain"
	models "github.com/de-tools/spend-atlas/pkg/models/store"
	"github.com/de-tools/spend-atlas/pkg/store"
	"github.com/de-tools/spend-atlas/pkg/store/duckdb"
)

const DefaultRunLimit = 20

type runStore struct {
	db *sql.DB
}

func NewRunStore(db *sql.DB) (store.RunStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &runStore{db: db}, nil
}

func (r *runStore) Record(ctx context.Context, run domain.RunRecord) error {
	row := adapters.MapDomainRunToStore(run)
	_, err := duckdb.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, state, total, currency, failed_providers)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.StartedAt, row.FinishedAt, row.State, row.Total, row.Currency, row.FailedProviders,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// List returns the most recent runs first.
func (r *runStore) List(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}

	rows, err := duckdb.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, started_at, finished_at, state, total, currency, failed_providers
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []domain.RunRecord{}
	for rows.Next() {
		var row models.RunRow
		if err := rows.Scan(&row.ID, &row.StartedAt, &row.FinishedAt, &row.State, &row.Total, &row.Currency, &row.FailedProviders); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run, err := adapters.MapStoreRunToDomain(row)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
