package aggregator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/services/anomaly"
	"github.com/de-tools/spend-atlas/pkg/services/cost"
	"github.com/de-tools/spend-atlas/pkg/services/credentials"
	"github.com/de-tools/spend-atlas/pkg/services/currency"
	"github.com/de-tools/spend-atlas/pkg/services/metrics"
	"github.com/de-tools/spend-atlas/pkg/services/notify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrRunInProgress is returned when a trigger arrives while another run holds the guard.
var ErrRunInProgress = errors.New("aggregation run already in progress")

const (
	DefaultFetchTimeout = 60 * time.Second
)

var DefaultBudgetLimit = decimal.NewFromInt(1000)

type CredentialResolver interface {
	Resolve(ctx context.Context) (domain.Credentials, error)
}

type SnapshotWriter interface {
	Save(ctx context.Context, snapshot *domain.Snapshot) error
}

type RunRecorder interface {
	Record(ctx context.Context, run domain.RunRecord) error
}

type Config struct {
	Currency string
	// BudgetLimit is expressed in the base currency.
	BudgetLimit  decimal.Decimal
	FetchTimeout time.Duration
}

type Aggregator struct {
	adapters  map[domain.ProviderID]cost.Adapter
	resolver  CredentialResolver
	snapshots SnapshotWriter
	runs      RunRecorder
	notifier  notify.Notifier
	converter *currency.Converter
	detector  anomaly.Detector
	metrics   *metrics.Recorder
	config    Config
	now       func() time.Time

	running atomic.Bool
}

type Option func(*Aggregator)

func WithRunRecorder(runs RunRecorder) Option {
	return func(a *Aggregator) { a.runs = runs }
}

func WithNotifier(n notify.Notifier) Option {
	return func(a *Aggregator) { a.notifier = n }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(a *Aggregator) { a.metrics = m }
}

func WithDetector(d anomaly.Detector) Option {
	return func(a *Aggregator) { a.detector = d }
}

func WithConverter(c *currency.Converter) Option {
	return func(a *Aggregator) { a.converter = c }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func New(
	adapters map[domain.ProviderID]cost.Adapter,
	resolver CredentialResolver,
	snapshots SnapshotWriter,
	config Config,
	opts ...Option,
) *Aggregator {
	if strings.TrimSpace(config.Currency) == "" {
		config.Currency = domain.BaseCurrency
	}
	config.Currency = strings.ToUpper(strings.TrimSpace(config.Currency))
	if config.BudgetLimit.IsZero() {
		config.BudgetLimit = DefaultBudgetLimit
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}

	a := &Aggregator{
		adapters:  adapters,
		resolver:  resolver,
		snapshots: snapshots,
		notifier:  notify.NewLogNotifier(),
		converter: currency.NewConverter(),
		detector:  anomaly.NewDetector(),
		config:    config,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Running reports whether a run currently holds the guard.
func (a *Aggregator) Running() bool {
	return a.running.Load()
}

// Run executes one aggregation pipeline. It always produces a snapshot; the
// error is non-nil only when the guard is held elsewhere or persisting fails.
func (a *Aggregator) Run(ctx context.Context) (*domain.Snapshot, error) {
	if !a.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer a.running.Store(false)

	run := &runState{id: uuid.New(), startedAt: a.now(), current: stateIdle}
	logger := zerolog.Ctx(ctx).With().Str("run_id", run.id.String()).Logger()
	ctx = logger.WithContext(ctx)

	snapshot := a.execute(ctx, run)

	run.transition(ctx, statePersisting)
	if err := a.snapshots.Save(ctx, snapshot); err != nil {
		logger.Error().Err(err).Msg("failed to persist snapshot")
		return snapshot, fmt.Errorf("persist snapshot: %w", err)
	}

	a.record(ctx, run, snapshot)
	a.dispatch(ctx, snapshot.Alerts)
	run.transition(ctx, stateDone)

	logger.Info().
		Str("state", string(snapshot.State())).
		Str("total", snapshot.TotalConverted.StringFixed(2)).
		Str("currency", snapshot.Currency).
		Int("failed_providers", len(snapshot.FailedProviders())).
		Msg("aggregation run finished")

	return snapshot, nil
}

func (a *Aggregator) execute(ctx context.Context, run *runState) *domain.Snapshot {
	code := a.config.Currency
	snapshot := &domain.Snapshot{
		ID:             run.id,
		Currency:       code,
		Rate:           a.converter.Rate(code),
		TotalConverted: decimal.Zero,
		PerProvider:    make(map[domain.ProviderID]domain.ProviderResult, len(domain.Providers)),
		Alerts:         []domain.Alert{},
	}

	run.transition(ctx, stateResolvingCredentials)
	creds, err := a.resolver.Resolve(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to resolve credentials")
		run.transition(ctx, stateShortCircuit)
		snapshot.DecryptionError = true
		snapshot.ErrorMessage = decryptionMessage(err)
		fillFailed(snapshot, domain.NewProviderError(domain.ErrorKindDecryption, "%s", snapshot.ErrorMessage))
		snapshot.Timestamp = a.now().UTC()
		return snapshot
	}

	if !creds.AnyConfigured() {
		run.transition(ctx, stateShortCircuit)
		snapshot.NotConfigured = true
		snapshot.ErrorMessage = "no cloud provider credentials are configured"
		fillFailed(snapshot, domain.NewProviderError(domain.ErrorKindNotConfigured, "%s", snapshot.ErrorMessage))
		snapshot.Timestamp = a.now().UTC()
		return snapshot
	}

	run.transition(ctx, stateFetching)
	snapshot.PerProvider = a.fetchAll(ctx, creds)

	run.transition(ctx, stateAggregating)
	native := decimal.Zero
	for _, res := range snapshot.PerProvider {
		native = native.Add(res.TotalCost)
	}
	snapshot.TotalConverted = a.converter.Convert(native, code)

	run.transition(ctx, stateEvaluatingAlerts)
	snapshot.Alerts = a.evaluateAlerts(snapshot)
	snapshot.Timestamp = a.now().UTC()
	return snapshot
}

func (a *Aggregator) record(ctx context.Context, run *runState, snapshot *domain.Snapshot) {
	finished := a.now()
	a.metrics.ObserveRun(snapshot, finished.Sub(run.startedAt))

	if a.runs == nil {
		return
	}
	err := a.runs.Record(ctx, domain.RunRecord{
		ID:              run.id,
		StartedAt:       run.startedAt.UTC(),
		FinishedAt:      finished.UTC(),
		State:           snapshot.State(),
		Total:           snapshot.TotalConverted,
		Currency:        snapshot.Currency,
		FailedProviders: snapshot.FailedProviders(),
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to record run")
	}
}

func (a *Aggregator) dispatch(ctx context.Context, alerts []domain.Alert) {
	if a.notifier == nil {
		return
	}
	for _, alert := range alerts {
		if err := a.notifier.Notify(ctx, alert.Title, alert.Message); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("alert", string(alert.Kind)).Msg("failed to deliver notification")
		}
	}
}

func fillFailed(snapshot *domain.Snapshot, err *domain.ProviderError) {
	for _, p := range domain.Providers {
		snapshot.PerProvider[p] = domain.FailedResult(p, err)
	}
}

func decryptionMessage(err error) string {
	if errors.Is(err, credentials.ErrDecryption) {
		return "stored credentials could not be decrypted, re-enter them"
	}
	return fmt.Sprintf("credentials could not be loaded: %v", err)
}
