package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/services/aggregator"
	"github.com/de-tools/spend-atlas/pkg/services/anomaly"
	"github.com/de-tools/spend-atlas/pkg/services/config"
	"github.com/de-tools/spend-atlas/pkg/services/cost"
	"github.com/de-tools/spend-atlas/pkg/services/cost/aws"
	"github.com/de-tools/spend-atlas/pkg/services/cost/azure"
	"github.com/de-tools/spend-atlas/pkg/services/cost/gcp"
	"github.com/de-tools/spend-atlas/pkg/services/credentials"
	"github.com/de-tools/spend-atlas/pkg/services/currency"
	"github.com/de-tools/spend-atlas/pkg/services/metrics"
	"github.com/de-tools/spend-atlas/pkg/services/notify"
	"github.com/de-tools/spend-atlas/pkg/services/scheduler"
	"github.com/de-tools/spend-atlas/pkg/store"
	"github.com/de-tools/spend-atlas/pkg/store/duckdb"
	duckdbsnapshot "github.com/de-tools/spend-atlas/pkg/store/duckdb/snapshot"
	s3store "github.com/de-tools/spend-atlas/pkg/store/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// PassphraseEnv overrides credentials.passphrase.
const PassphraseEnv = "SPEND_ATLAS_PASSPHRASE"

// App holds every wired component of one process.
type App struct {
	Config          *config.Config
	Aggregator      *aggregator.Aggregator
	Scheduler       *scheduler.Scheduler
	Snapshots       store.SnapshotStore
	Runs            store.RunStore
	CredentialStore credentials.Store
	Credentials     *credentials.Resolver
	Metrics         *metrics.Recorder

	db *sql.DB
}

func DefaultRegistry() cost.Registry {
	return cost.NewRegistry(map[domain.ProviderID]cost.AdapterFactory{
		domain.ProviderAWS:   aws.AdapterFactory,
		domain.ProviderAzure: azure.AdapterFactory,
		domain.ProviderGCP:   gcp.AdapterFactory,
	})
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := zerolog.Ctx(ctx)

	budget, err := cfg.BudgetLimit()
	if err != nil {
		return nil, err
	}
	multiplier, err := cfg.AnomalyMultiplier()
	if err != nil {
		return nil, err
	}
	floor, err := cfg.AnomalyFloor()
	if err != nil {
		return nil, err
	}

	if converter := currency.NewConverter(); !converter.Supported(cfg.Currency) {
		logger.Warn().
			Str("currency", cfg.Currency).
			Strs("supported", converter.Codes()).
			Msg("unknown currency, totals will be reported at rate 1.0")
	}

	adapters, err := DefaultRegistry().Adapters()
	if err != nil {
		return nil, fmt.Errorf("failed to create provider adapters: %w", err)
	}

	if dir := filepath.Dir(cfg.Store.DuckDB.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: cfg.Store.DuckDB.Path})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB instance: %w", err)
	}

	app := &App{Config: cfg, db: db}
	if err := app.wireStores(ctx, cfg); err != nil {
		_ = db.Close()
		return nil, err
	}

	passphrase := cfg.Credentials.Passphrase
	if env := os.Getenv(PassphraseEnv); env != "" {
		passphrase = env
	}
	var cipher credentials.Cipher
	if passphrase != "" {
		cipher = credentials.NewPassphraseCipher(passphrase)
	}
	app.CredentialStore = credentials.NewFileStore(cfg.Credentials.Path)
	app.Credentials = credentials.NewResolver(app.CredentialStore, cipher)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = metrics.NewRecorder(registry)

	notifiers := notify.Multi{notify.NewLogNotifier()}
	if cfg.Notify.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.Notify.WebhookURL))
	}

	app.Aggregator = aggregator.New(adapters, app.Credentials, app.Snapshots,
		aggregator.Config{
			Currency:     cfg.Currency,
			BudgetLimit:  budget,
			FetchTimeout: cfg.Fetch.Timeout,
		},
		aggregator.WithRunRecorder(app.Runs),
		aggregator.WithNotifier(notifiers),
		aggregator.WithMetrics(app.Metrics),
		aggregator.WithDetector(anomaly.Detector{Multiplier: multiplier, Floor: floor}),
	)
	app.Scheduler = scheduler.New(app.Aggregator, cfg.Schedule.Interval)

	logger.Debug().
		Str("store", cfg.Store.Backend).
		Str("currency", cfg.Currency).
		Int("adapters", len(adapters)).
		Msg("application wired")
	return app, nil
}

func (a *App) wireStores(ctx context.Context, cfg *config.Config) error {
	runs, err := duckdbsnapshot.NewRunStore(a.db)
	if err != nil {
		return fmt.Errorf("failed to create run store: %w", err)
	}
	a.Runs = runs

	switch cfg.Store.Backend {
	case config.BackendS3:
		settings := s3store.Settings{Bucket: cfg.Store.S3.Bucket, Key: cfg.Store.S3.Key, Region: cfg.Store.S3.Region}
		client, err := s3store.NewClient(ctx, settings)
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		a.Snapshots, err = s3store.NewStore(client, settings)
		if err != nil {
			return fmt.Errorf("failed to create S3 snapshot store: %w", err)
		}
	default:
		a.Snapshots, err = duckdbsnapshot.NewStore(a.db)
		if err != nil {
			return fmt.Errorf("failed to create snapshot store: %w", err)
		}
	}
	return nil
}

func (a *App) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// NewLogger builds the root logger at the configured level.
func NewLogger(level zerolog.Level, out io.Writer) zerolog.Logger {
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
