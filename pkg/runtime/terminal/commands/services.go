package commands

import (
	"context"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/services/credentials"
)

type Runner interface {
	Run(ctx context.Context) (*domain.Snapshot, error)
}

type SnapshotReader interface {
	Latest(ctx context.Context) (*domain.Snapshot, error)
}

type RunLister interface {
	List(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

type CredentialStatus interface {
	Status(ctx context.Context) (map[domain.ProviderID]domain.CredentialState, error)
}

// Services is what the commands need from a wired application.
type Services struct {
	Runner          Runner
	Snapshots       SnapshotReader
	Runs            RunLister
	Credentials     CredentialStatus
	CredentialStore credentials.Store
	Close           func() error
}

// Provider builds Services lazily so flags are parsed before anything is opened.
type Provider func(ctx context.Context) (*Services, error)

func withServices(ctx context.Context, provide Provider, fn func(*Services) error) error {
	svc, err := provide(ctx)
	if err != nil {
		return err
	}
	if svc.Close != nil {
		defer func() { _ = svc.Close() }()
	}
	return fn(svc)
}
