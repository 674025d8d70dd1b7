package store

import (
	"context"
	"errors"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
)

// ErrNotFound is returned by Latest before the first run has been persisted.
var ErrNotFound = errors.New("no snapshot has been persisted yet")

// SnapshotStore holds the latest snapshot under a single key. Save replaces
// the previous value atomically.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot *domain.Snapshot) error
	Latest(ctx context.Context) (*domain.Snapshot, error)
}

type RunStore interface {
	Record(ctx context.Context, run domain.RunRecord) error
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)
}
