package azure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Query(
	ctx context.Context,
	scope string,
	def armcostmanagement.QueryDefinition,
) (armcostmanagement.QueryResult, error) {
	args := m.Called(ctx, scope, def)
	return args.Get(0).(armcostmanagement.QueryResult), args.Error(1)
}

func (m *mockClient) Forecast(
	ctx context.Context,
	scope string,
	def armcostmanagement.ForecastDefinition,
) (armcostmanagement.QueryResult, error) {
	args := m.Called(ctx, scope, def)
	return args.Get(0).(armcostmanagement.QueryResult), args.Error(1)
}

const scope = "/subscriptions/sub-1"

var (
	fixedNow  = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	testCreds = domain.Credentials{Azure: domain.AzureCredentials{
		TenantID:       "tenant",
		ClientID:       "client",
		ClientSecret:   "secret",
		SubscriptionID: "sub-1",
	}}
)

func result(columns []string, rows ...[]any) armcostmanagement.QueryResult {
	cols := make([]*armcostmanagement.QueryColumn, 0, len(columns))
	for _, c := range columns {
		cols = append(cols, &armcostmanagement.QueryColumn{Name: to.Ptr(c)})
	}
	return armcostmanagement.QueryResult{
		Properties: &armcostmanagement.QueryProperties{Columns: cols, Rows: rows},
	}
}

func grouped(def armcostmanagement.QueryDefinition) bool {
	return def.Dataset != nil && len(def.Dataset.Grouping) == 1
}

func daily(def armcostmanagement.QueryDefinition) bool {
	return def.Dataset != nil && def.Dataset.Granularity != nil
}

func newTestAdapter(client Client) *adapter {
	return NewAdapter(func(domain.AzureCredentials) (Client, error) {
		return client, nil
	}, func() time.Time { return fixedNow }).(*adapter)
}

func TestAdapter_Fetch(t *testing.T) {
	client := new(mockClient)
	client.On("Query", mock.Anything, scope, mock.MatchedBy(func(def armcostmanagement.QueryDefinition) bool {
		return grouped(def) &&
			def.TimePeriod.From.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)) &&
			def.TimePeriod.To.Equal(time.Date(2026, 10, 15, 23, 59, 59, 0, time.UTC))
	})).Return(result(
		[]string{"PreTaxCost", "ServiceName", "Currency"},
		[]any{55.5, "Virtual Machines", "USD"},
		[]any{4.5, "Storage", "USD"},
		[]any{0.0, "Bandwidth", "USD"},
	), nil)
	client.On("Forecast", mock.Anything, scope, mock.Anything).Return(result(
		[]string{"PreTaxCost", "UsageDate", "CostStatus", "Currency"},
		[]any{3.0, 20261016.0, "Forecast", "USD"},
		[]any{4.0, 20261017.0, "Forecast", "USD"},
		[]any{100.0, 20261015.0, "Actual", "USD"},
	), nil)
	client.On("Query", mock.Anything, scope, mock.MatchedBy(daily)).Return(result(
		[]string{"PreTaxCost", "UsageDate", "Currency"},
		[]any{2.0, 20261003.0, "USD"},
		[]any{1.0, 20261001.0, "USD"},
		[]any{1.5, 20261002.0, "USD"},
	), nil)

	res, err := newTestAdapter(client).Fetch(context.Background(), testCreds)
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderAzure, res.Provider)
	assert.Equal(t, "60", res.TotalCost.String())
	require.Len(t, res.TopServices, 2)
	assert.Equal(t, "Virtual Machines", res.TopServices[0].Name)
	assert.True(t, res.Forecast.Available)
	assert.Equal(t, "7", res.Forecast.Amount.String())
	require.Len(t, res.History, 3)
	assert.Equal(t, "2026-10-01", res.History[0].Date.Format("2006-01-02"))
	assert.Equal(t, "2", res.History[2].Cost.String())
	client.AssertExpectations(t)
}

func TestAdapter_Fetch_CriticalFailure(t *testing.T) {
	client := new(mockClient)
	client.On("Query", mock.Anything, scope, mock.MatchedBy(grouped)).
		Return(armcostmanagement.QueryResult{}, errors.New("AuthorizationFailed"))

	_, err := newTestAdapter(client).Fetch(context.Background(), testCreds)

	assert.ErrorContains(t, err, "AuthorizationFailed")
	client.AssertNotCalled(t, "Forecast", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdapter_Fetch_OptionalFailuresDegrade(t *testing.T) {
	client := new(mockClient)
	client.On("Query", mock.Anything, scope, mock.MatchedBy(grouped)).Return(result(
		[]string{"PreTaxCost", "ServiceName"},
		[]any{10.0, "Storage"},
	), nil)
	client.On("Forecast", mock.Anything, scope, mock.Anything).
		Return(armcostmanagement.QueryResult{}, errors.New("BillingAccountNotFound"))
	client.On("Query", mock.Anything, scope, mock.MatchedBy(daily)).
		Return(armcostmanagement.QueryResult{}, errors.New("429 Too Many Requests"))

	res, err := newTestAdapter(client).Fetch(context.Background(), testCreds)
	require.NoError(t, err)

	assert.Equal(t, "10", res.TotalCost.String())
	assert.False(t, res.Forecast.Available)
	assert.Empty(t, res.History)
}

func TestAdapter_Fetch_MissingSubscription(t *testing.T) {
	creds := testCreds
	creds.Azure.SubscriptionID = " "

	_, err := newTestAdapter(new(mockClient)).Fetch(context.Background(), creds)
	assert.ErrorContains(t, err, "subscription")
}

func TestNewCredential_Validation(t *testing.T) {
	_, err := NewCredential(domain.AzureCredentials{ClientID: "c"})
	assert.Error(t, err)

	_, err = NewCredential(domain.AzureCredentials{ClientID: "c", ClientSecret: "s"})
	assert.ErrorContains(t, err, "tenant")
}

func TestToDate(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{20261015.0, "2026-10-15"},
		{"20261016", "2026-10-16"},
		{"2026-10-17T00:00:00", "2026-10-17"},
		{"2026-10-18T00:00:00Z", "2026-10-18"},
	}
	for _, tt := range tests {
		got, err := toDate(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.Format("2006-01-02"))
	}

	_, err := toDate(true)
	assert.Error(t, err)
}
