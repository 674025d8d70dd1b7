package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/spend-atlas/pkg/adapters"
	"github.com/de-tools/spend-atlas/pkg/models/domain"
	models "github.com/de-tools/spend-atlas/pkg/models/store"
	"github.com/de-tools/spend-atlas/pkg/store"
	"github.com/de-tools/spend-atlas/pkg/store/duckdb"
	"github.com/goccy/go-json"
)

const latestSlot = "latest"

type snapshotStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) (store.SnapshotStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &snapshotStore{db: db, now: time.Now}, nil
}

// Save replaces the latest snapshot inside a single transaction.
func (s *snapshotStore) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot is nil")
	}

	payload, err := json.Marshal(adapters.MapDomainSnapshotToStore(snapshot))
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return duckdb.RunInTx(ctx, s.db, func(ctx context.Context) error {
		conn := duckdb.Conn(ctx, s.db)
		if _, err := conn.ExecContext(ctx, `DELETE FROM snapshots WHERE slot = ?`, latestSlot); err != nil {
			return fmt.Errorf("delete previous snapshot: %w", err)
		}
		_, err := conn.ExecContext(ctx,
			`INSERT INTO snapshots (slot, payload, created_at) VALUES (?, ?, ?)`,
			latestSlot, string(payload), s.now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		return nil
	})
}

func (s *snapshotStore) Latest(ctx context.Context) (*domain.Snapshot, error) {
	var payload string
	err := duckdb.Conn(ctx, s.db).
		QueryRowContext(ctx, `SELECT CAST(payload AS VARCHAR) FROM snapshots WHERE slot = ?`, latestSlot).
		Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	var doc models.SnapshotDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return adapters.MapStoreSnapshotToDomain(doc)
}
