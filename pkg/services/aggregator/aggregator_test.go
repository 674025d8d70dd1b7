package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/services/cost"
	"github.com/de-tools/spend-atlas/pkg/services/credentials"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func allCreds() domain.Credentials {
	return domain.Credentials{
		AWS:   domain.AWSCredentials{AccessKeyID: "AKIA", SecretAccessKey: "secret"},
		Azure: domain.AzureCredentials{TenantID: "t", ClientID: "c", ClientSecret: "s", SubscriptionID: "sub"},
		GCP:   domain.GCPCredentials{ServiceAccountJSON: []byte(`{"type":"service_account"}`)},
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func success(p domain.ProviderID, total string) domain.ProviderResult {
	return domain.ProviderResult{
		Provider:    p,
		TotalCost:   dec(total),
		Currency:    domain.BaseCurrency,
		TopServices: []domain.ServiceCost{{Name: "compute", Amount: dec(total)}},
	}
}

type fixture struct {
	adapters  map[domain.ProviderID]*mockAdapter
	resolver  *mockResolver
	snapshots *memorySnapshots
	notifier  *mockNotifier
}

func newFixture(creds domain.Credentials, resolveErr error) *fixture {
	f := &fixture{
		adapters: map[domain.ProviderID]*mockAdapter{
			domain.ProviderAWS:   newMockAdapter(domain.ProviderAWS),
			domain.ProviderAzure: newMockAdapter(domain.ProviderAzure),
			domain.ProviderGCP:   newMockAdapter(domain.ProviderGCP),
		},
		resolver:  new(mockResolver),
		snapshots: &memorySnapshots{},
		notifier:  new(mockNotifier),
	}
	f.resolver.On("Resolve", mock.Anything).Return(creds, resolveErr)
	return f
}

func (f *fixture) aggregator(cfg Config, opts ...Option) *Aggregator {
	adapters := make(map[domain.ProviderID]cost.Adapter, len(f.adapters))
	for p, a := range f.adapters {
		adapters[p] = a
	}
	opts = append([]Option{WithNotifier(f.notifier), WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(adapters, f.resolver, f.snapshots, cfg, opts...)
}

func TestRun_AllProvidersFail(t *testing.T) {
	f := newFixture(allCreds(), nil)
	for p, a := range f.adapters {
		a.On("Fetch", mock.Anything, mock.Anything).Return(domain.ProviderResult{}, fmt.Errorf("%s: access denied", p))
	}

	snapshot, err := f.aggregator(Config{}).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, snapshot.TotalConverted.IsZero())
	assert.False(t, snapshot.DecryptionError)
	assert.False(t, snapshot.NotConfigured)
	assert.Equal(t, domain.RunStateCompleted, snapshot.State())
	for _, p := range domain.Providers {
		res := snapshot.PerProvider[p]
		require.NotNil(t, res.Error, p)
		assert.Equal(t, domain.ErrorKindCriticalFetch, res.Error.Kind)
		assert.Contains(t, res.Error.Message, "access denied")
		assert.True(t, res.TotalCost.IsZero())
	}
	assert.Equal(t, 1, f.snapshots.count())
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_PartialFailure(t *testing.T) {
	f := newFixture(allCreds(), nil)
	f.adapters[domain.ProviderAWS].On("Fetch", mock.Anything, mock.Anything).Return(success(domain.ProviderAWS, "100"), nil)
	f.adapters[domain.ProviderAzure].On("Fetch", mock.Anything, mock.Anything).Return(success(domain.ProviderAzure, "50"), nil)
	f.adapters[domain.ProviderGCP].On("Fetch", mock.Anything, mock.Anything).Return(domain.ProviderResult{}, errors.New("billing export missing"))

	snapshot, err := f.aggregator(Config{Currency: "eur"}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "EUR", snapshot.Currency)
	assert.Equal(t, "0.93", snapshot.Rate.String())
	assert.Equal(t, "139.5", snapshot.TotalConverted.String())
	assert.Equal(t, domain.RunStateCompleted, snapshot.State())
	assert.Equal(t, []domain.ProviderID{domain.ProviderGCP}, snapshot.FailedProviders())
	assert.True(t, snapshot.PerProvider[domain.ProviderGCP].TotalCost.IsZero())
	assert.Nil(t, snapshot.PerProvider[domain.ProviderAWS].Error)
	assert.Equal(t, fixedNow, snapshot.Timestamp)
}

func TestRun_BudgetBoundary(t *testing.T) {
	tests := []struct {
		name  string
		total string
		fired bool
	}{
		{name: "just above", total: "1000.01", fired: true},
		{name: "exactly at limit", total: "1000"},
		{name: "just below", total: "999.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := domain.Credentials{AWS: allCreds().AWS}
			f := newFixture(creds, nil)
			f.adapters[domain.ProviderAWS].On("Fetch", mock.Anything, mock.Anything).Return(success(domain.ProviderAWS, tt.total), nil)
			f.notifier.On("Notify", mock.Anything, "Global budget exceeded", mock.Anything).Return(nil)

			snapshot, err := f.aggregator(Config{BudgetLimit: dec("1000")}).Run(context.Background())
			require.NoError(t, err)

			if tt.fired {
				require.Len(t, snapshot.Alerts, 1)
				assert.Equal(t, domain.AlertBudgetExceeded, snapshot.Alerts[0].Kind)
				assert.Contains(t, snapshot.Alerts[0].Message, "USD "+tt.total)
				f.notifier.AssertNumberOfCalls(t, "Notify", 1)
			} else {
				assert.Empty(t, snapshot.Alerts)
				f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestRun_BudgetLimitScalesWithRate(t *testing.T) {
	f := newFixture(domain.Credentials{AWS: allCreds().AWS}, nil)
	// 1050 USD converts to 829.50 GBP, above the 790 GBP limit.
	f.adapters[domain.ProviderAWS].On("Fetch", mock.Anything, mock.Anything).Return(success(domain.ProviderAWS, "1050"), nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	snapshot, err := f.aggregator(Config{Currency: "GBP"}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, snapshot.Alerts, 1)
	assert.Equal(t, "829.5", snapshot.TotalConverted.String())
	assert.Contains(t, snapshot.Alerts[0].Message, "GBP 790.00 limit")
}

func TestRun_NotConfigured(t *testing.T) {
	f := newFixture(domain.Credentials{AWS: domain.AWSCredentials{AccessKeyID: "  "}}, nil)

	snapshot, err := f.aggregator(Config{}).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, snapshot.NotConfigured)
	assert.False(t, snapshot.DecryptionError)
	assert.Equal(t, domain.RunStateNotConfigured, snapshot.State())
	for _, p := range domain.Providers {
		require.NotNil(t, snapshot.PerProvider[p].Error)
		assert.Equal(t, domain.ErrorKindNotConfigured, snapshot.PerProvider[p].Error.Kind)
	}
	for _, a := range f.adapters {
		a.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	}
	assert.Equal(t, 1, f.snapshots.count())
}

func TestRun_DecryptionFailure(t *testing.T) {
	f := newFixture(domain.Credentials{}, fmt.Errorf("%w: wrong passphrase", credentials.ErrDecryption))

	var snapshot *domain.Snapshot
	var err error
	require.NotPanics(t, func() {
		snapshot, err = f.aggregator(Config{Currency: "INR"}).Run(context.Background())
	})
	require.NoError(t, err)

	assert.True(t, snapshot.DecryptionError)
	assert.Equal(t, domain.RunStateDecryption, snapshot.State())
	assert.Equal(t, "INR", snapshot.Currency)
	assert.NotEmpty(t, snapshot.ErrorMessage)
	assert.True(t, snapshot.TotalConverted.IsZero())
	for _, p := range domain.Providers {
		require.NotNil(t, snapshot.PerProvider[p].Error)
		assert.Equal(t, domain.ErrorKindDecryption, snapshot.PerProvider[p].Error.Kind)
	}
	for _, a := range f.adapters {
		a.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	}
	assert.Equal(t, 1, f.snapshots.count())
}

func TestRun_UnconfiguredProviderIsNotFetched(t *testing.T) {
	creds := allCreds()
	creds.Azure = domain.AzureCredentials{}
	f := newFixture(creds, nil)
	f.adapters[domain.ProviderAWS].On("Fetch", mock.Anything, mock.Anything).Return(success(domain.ProviderAWS, "10"), nil)
	f.adapters[domain.ProviderGCP].On("Fetch", mock.Anything, mock.Anything).Return(success(domain.ProviderGCP, "5"), nil)

	snapshot, err := f.aggregator(Config{}).Run(context.Background())
	require.NoError(t, err)

	f.adapters[domain.ProviderAzure].AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	assert.Equal(t, domain.ErrorKindNotConfigured, snapshot.PerProvider[domain.ProviderAzure].Error.Kind)
	assert.Equal(t, "15", snapshot.TotalConverted.String())
	assert.False(t, snapshot.NotConfigured)
}

func TestRun_SlowProviderDoesNotCorruptFastOnes(t *testing.T) {
	const delay = 150 * time.Millisecond

	f := newFixture(allCreds(), nil)
	f.adapters[domain.ProviderAWS].On("Fetch", mock.Anything, mock.Anything).Return(success(domain.ProviderAWS, "20"), nil)
	f.adapters[domain.ProviderAzure].On("Fetch", mock.Anything, mock.Anything).
		After(delay).
		Return(domain.ProviderResult{}, errors.New("throttled"))
	f.adapters[domain.ProviderGCP].On("Fetch", mock.Anything, mock.Anything).Return(success(domain.ProviderGCP, "30"), nil)

	start := time.Now()
	snapshot, err := f.aggregator(Config{FetchTimeout: 5 * time.Second}).Run(context.Background())
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, elapsed, delay)
	require.NotNil(t, snapshot.PerProvider[domain.ProviderAzure].Error)
	assert.Equal(t, "throttled", snapshot.PerProvider[domain.ProviderAzure].Error.Message)
	assert.Equal(t, "20", snapshot.PerProvider[domain.ProviderAWS].TotalCost.String())
	assert.Equal(t, "30", snapshot.PerProvider[domain.ProviderGCP].TotalCost.String())
	assert.Equal(t, "50", snapshot.TotalConverted.String())
}

func TestRun_ProvidersFetchConcurrently(t *testing.T) {
	const delay = 100 * time.Millisecond

	f := newFixture(allCreds(), nil)
	for p, a := range f.adapters {
		a.On("Fetch", mock.Anything, mock.Anything).After(delay).Return(success(p, "1"), nil)
	}

	start := time.Now()
	_, err := f.aggregator(Config{}).Run(context.Background())
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 3*delay)
}

func TestRun_TimeoutBecomesProviderError(t *testing.T) {
	f := newFixture(allCreds(), nil)
	f.adapters[domain.ProviderAWS].On("Fetch", mock.Anything, mock.Anything).Return(success(domain.ProviderAWS, "7"), nil)
	f.adapters[domain.ProviderAzure].On("Fetch", mock.Anything, mock.Anything).Return(success(domain.ProviderAzure, "3"), nil)
	f.adapters[domain.ProviderGCP].On("Fetch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(domain.ProviderResult{}, context.DeadlineExceeded)

	snapshot, err := f.aggregator(Config{FetchTimeout: 30 * time.Millisecond}).Run(context.Background())
	require.NoError(t, err)

	require.NotNil(t, snapshot.PerProvider[domain.ProviderGCP].Error)
	assert.Equal(t, domain.ErrorKindTimeout, snapshot.PerProvider[domain.ProviderGCP].Error.Kind)
	assert.Equal(t, "10", snapshot.TotalConverted.String())
}

func TestRun_PanicBecomesInternalError(t *testing.T) {
	f := newFixture(allCreds(), nil)
	f.adapters[domain.ProviderAWS].On("Fetch", mock.Anything, mock.Anything).Panic("nil map")
	f.adapters[domain.ProviderAzure].On("Fetch", mock.Anything, mock.Anything).Return(success(domain.ProviderAzure, "4"), nil)
	f.adapters[domain.ProviderGCP].On("Fetch", mock.Anything, mock.Anything).Return(success(domain.ProviderGCP, "6"), nil)

	snapshot, err := f.aggregator(Config{}).Run(context.Background())
	require.NoError(t, err)

	perr := snapshot.PerProvider[domain.ProviderAWS].Error
	require.NotNil(t, perr)
	assert.Equal(t, domain.ErrorKindInternal, perr.Kind)
	assert.Contains(t, perr.Message, "nil map")
	assert.Equal(t, "10", snapshot.TotalConverted.String())
}

func TestRun_AnomalyAlertUsesUserCurrency(t *testing.T) {
	day := func(d int, cost string) domain.DailyCost {
		return domain.DailyCost{Date: time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC), Cost: dec(cost)}
	}

	aws := success(domain.ProviderAWS, "14")
	// deliberately out of order
	aws.History = []domain.DailyCost{day(14, "10"), day(10, "1"), day(12, "1"), day(11, "1"), day(13, "1")}

	f := newFixture(domain.Credentials{AWS: allCreds().AWS}, nil)
	f.adapters[domain.ProviderAWS].On("Fetch", mock.Anything, mock.Anything).Return(aws, nil)
	f.notifier.On("Notify", mock.Anything, "AWS cost spike detected", mock.Anything).Return(nil)

	snapshot, err := f.aggregator(Config{Currency: "EUR"}).Run(context.Background())
	require.NoError(t, err)

	res := snapshot.PerProvider[domain.ProviderAWS]
	require.NotNil(t, res.Anomaly)
	assert.Equal(t, 14, res.History[len(res.History)-1].Date.Day())
	require.Len(t, snapshot.Alerts, 1)
	assert.Equal(t, domain.AlertCostSpike, snapshot.Alerts[0].Kind)
	assert.Equal(t, domain.ProviderAWS, snapshot.Alerts[0].Provider)
	assert.Contains(t, snapshot.Alerts[0].Message, "EUR 9.30")
	f.notifier.AssertExpectations(t)
}

func TestRun_NotifierFailureIsSwallowed(t *testing.T) {
	f := newFixture(domain.Credentials{AWS: allCreds().AWS}, nil)
	f.adapters[domain.ProviderAWS].On("Fetch", mock.Anything, mock.Anything).Return(success(domain.ProviderAWS, "5000"), nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	snapshot, err := f.aggregator(Config{}).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot.Alerts, 1)
	assert.Equal(t, 1, f.snapshots.count())
}

func TestRun_PersistFailureIsReturned(t *testing.T) {
	f := newFixture(domain.Credentials{}, nil)
	f.snapshots.err = errors.New("disk full")

	snapshot, err := f.aggregator(Config{}).Run(context.Background())
	require.Error(t, err)
	assert.NotNil(t, snapshot)
	assert.True(t, snapshot.NotConfigured)
}

func TestRun_RecordsRun(t *testing.T) {
	f := newFixture(allCreds(), nil)
	f.adapters[domain.ProviderAWS].On("Fetch", mock.Anything, mock.Anything).Return(success(domain.ProviderAWS, "1"), nil)
	f.adapters[domain.ProviderAzure].On("Fetch", mock.Anything, mock.Anything).Return(success(domain.ProviderAzure, "2"), nil)
	f.adapters[domain.ProviderGCP].On("Fetch", mock.Anything, mock.Anything).Return(domain.ProviderResult{}, errors.New("nope"))

	runs := new(mockRuns)
	runs.On("Record", mock.Anything, mock.MatchedBy(func(r domain.RunRecord) bool {
		return r.State == domain.RunStateCompleted &&
			r.Total.Equal(dec("3")) &&
			r.Currency == "USD" &&
			len(r.FailedProviders) == 1 && r.FailedProviders[0] == domain.ProviderGCP
	})).Return(errors.New("ignored"))

	snapshot, err := f.aggregator(Config{}, WithRunRecorder(runs)).Run(context.Background())
	require.NoError(t, err)
	runs.AssertExpectations(t)
	assert.NotEqual(t, uuid.Nil, snapshot.ID)
}

func TestRun_GuardAbsorbsConcurrentTrigger(t *testing.T) {
	release := make(chan time.Time)

	f := newFixture(domain.Credentials{AWS: allCreds().AWS}, nil)
	f.adapters[domain.ProviderAWS].On("Fetch", mock.Anything, mock.Anything).
		WaitUntil(release).
		Return(success(domain.ProviderAWS, "1"), nil)

	agg := f.aggregator(Config{})

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = agg.Run(context.Background())
	}()

	require.Eventually(t, agg.Running, time.Second, 5*time.Millisecond)

	snapshot, err := agg.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Nil(t, snapshot)
	assert.Equal(t, 0, f.snapshots.count())

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.False(t, agg.Running())

	_, err = agg.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.snapshots.count())
}
