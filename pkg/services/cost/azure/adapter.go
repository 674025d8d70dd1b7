package azure

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	azto "github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/services/cost"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	aggregationName = "totalCost"
	costMetric      = "PreTaxCost"
	serviceColumn   = "ServiceName"
	dateColumn      = "UsageDate"
	statusColumn    = "CostStatus"
)

type adapter struct {
	newClient ClientFactory
	now       func() time.Time
}

func AdapterFactory() (cost.Adapter, error) {
	return NewAdapter(DefaultClientFactory, time.Now), nil
}

func NewAdapter(newClient ClientFactory, now func() time.Time) cost.Adapter {
	return &adapter{newClient: newClient, now: now}
}

func (a *adapter) Provider() domain.ProviderID {
	return domain.ProviderAzure
}

func (a *adapter) Fetch(ctx context.Context, creds domain.Credentials) (domain.ProviderResult, error) {
	logger := zerolog.Ctx(ctx).With().Str("provider", string(domain.ProviderAzure)).Logger()

	scope, err := subscriptionScope(creds.Azure)
	if err != nil {
		return domain.ProviderResult{}, err
	}

	client, err := a.newClient(creds.Azure)
	if err != nil {
		return domain.ProviderResult{}, err
	}

	period := cost.NewPeriod(a.now())

	services, err := a.currentServices(ctx, client, scope, period)
	if err != nil {
		return domain.ProviderResult{}, err
	}

	forecast, err := a.forecast(ctx, client, scope, period)
	if err != nil {
		logger.Warn().Err(err).Msg("forecast skipped (normal for new subscriptions)")
	}

	history, err := a.history(ctx, client, scope, period)
	if err != nil {
		logger.Warn().Err(err).Msg("history skipped")
		history = []domain.DailyCost{}
	}

	return domain.ProviderResult{
		Provider:    domain.ProviderAzure,
		TotalCost:   cost.SumServices(services),
		Currency:    domain.BaseCurrency,
		TopServices: cost.TopServices(services),
		Forecast:    forecast,
		History:     history,
	}, nil
}

func queryDefinition(from, to time.Time, granularity *armcostmanagement.GranularityType, groupBy string) armcostmanagement.QueryDefinition {
	exportType := armcostmanagement.ExportTypeActualCost
	timeframe := armcostmanagement.TimeframeTypeCustom

	dataset := &armcostmanagement.QueryDataset{
		Granularity: granularity,
		Aggregation: map[string]*armcostmanagement.QueryAggregation{
			aggregationName: {
				Name:     azto.Ptr(costMetric),
				Function: azto.Ptr(armcostmanagement.FunctionTypeSum),
			},
		},
	}
	if groupBy != "" {
		dataset.Grouping = []*armcostmanagement.QueryGrouping{{
			Name: azto.Ptr(groupBy),
			Type: azto.Ptr(armcostmanagement.QueryColumnTypeDimension),
		}}
	}

	return armcostmanagement.QueryDefinition{
		Type:      &exportType,
		Timeframe: &timeframe,
		TimePeriod: &armcostmanagement.QueryTimePeriod{
			From: &from,
			To:   &to,
		},
		Dataset: dataset,
	}
}

// inclusiveEnd turns an exclusive day boundary into the last second of the previous day.
func inclusiveEnd(t time.Time) time.Time {
	return t.Add(-time.Second)
}

func (a *adapter) currentServices(
	ctx context.Context,
	client Client,
	scope string,
	period cost.Period,
) ([]domain.ServiceCost, error) {
	def := queryDefinition(period.MonthStart, inclusiveEnd(period.Tomorrow), nil, serviceColumn)

	result, err := client.Query(ctx, scope, def)
	if err != nil {
		return nil, fmt.Errorf("failed to query costs: %w", err)
	}

	t := newTable(result)
	costIdx, err := t.costIndex()
	if err != nil {
		if len(t.rows) == 0 {
			return []domain.ServiceCost{}, nil
		}
		return nil, err
	}
	serviceIdx, hasService := t.index(serviceColumn)

	services := make([]domain.ServiceCost, 0, len(t.rows))
	for _, row := range t.rows {
		amount, err := toDecimal(cell(row, costIdx))
		if err != nil {
			return nil, fmt.Errorf("failed to parse service cost: %w", err)
		}
		name := "Unknown"
		if hasService {
			if n := strings.TrimSpace(toString(cell(row, serviceIdx))); n != "" {
				name = n
			}
		}
		services = append(services, domain.ServiceCost{Name: name, Amount: amount})
	}

	return cost.MergeServices(services), nil
}

func (a *adapter) forecast(
	ctx context.Context,
	client Client,
	scope string,
	period cost.Period,
) (domain.Forecast, error) {
	if !period.ForecastOpen() {
		return domain.Forecast{Amount: decimal.Zero}, nil
	}

	from := period.Tomorrow
	until := inclusiveEnd(period.NextMonthStart)
	def := armcostmanagement.ForecastDefinition{
		Type:      azto.Ptr(armcostmanagement.ForecastTypeActualCost),
		Timeframe: azto.Ptr(armcostmanagement.ForecastTimeframeTypeCustom),
		TimePeriod: &armcostmanagement.QueryTimePeriod{
			From: &from,
			To:   &until,
		},
		Dataset: &armcostmanagement.ForecastDataset{
			Granularity: azto.Ptr(armcostmanagement.GranularityTypeDaily),
			Aggregation: map[string]*armcostmanagement.QueryAggregation{
				aggregationName: {
					Name:     azto.Ptr(costMetric),
					Function: azto.Ptr(armcostmanagement.FunctionTypeSum),
				},
			},
		},
		IncludeActualCost:       azto.Ptr(false),
		IncludeFreshPartialCost: azto.Ptr(false),
	}

	result, err := client.Forecast(ctx, scope, def)
	if err != nil {
		return domain.Forecast{Amount: decimal.Zero}, fmt.Errorf("failed to query forecast: %w", err)
	}

	t := newTable(result)
	if len(t.rows) == 0 {
		return domain.Forecast{Amount: decimal.Zero}, nil
	}
	costIdx, err := t.costIndex()
	if err != nil {
		return domain.Forecast{Amount: decimal.Zero}, err
	}
	statusIdx, hasStatus := t.index(statusColumn)

	total := decimal.Zero
	for _, row := range t.rows {
		if hasStatus && !strings.EqualFold(toString(cell(row, statusIdx)), "Forecast") {
			continue
		}
		amount, err := toDecimal(cell(row, costIdx))
		if err != nil {
			return domain.Forecast{Amount: decimal.Zero}, fmt.Errorf("failed to parse forecast: %w", err)
		}
		total = total.Add(amount)
	}
	return domain.Forecast{Amount: total, Available: true}, nil
}

func (a *adapter) history(
	ctx context.Context,
	client Client,
	scope string,
	period cost.Period,
) ([]domain.DailyCost, error) {
	def := queryDefinition(
		period.HistoryStart,
		inclusiveEnd(period.Today),
		azto.Ptr(armcostmanagement.GranularityTypeDaily),
		"",
	)

	result, err := client.Query(ctx, scope, def)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily costs: %w", err)
	}

	t := newTable(result)
	if len(t.rows) == 0 {
		return []domain.DailyCost{}, nil
	}
	costIdx, err := t.costIndex()
	if err != nil {
		return nil, err
	}
	dateIdx, ok := t.index(dateColumn)
	if !ok {
		return nil, fmt.Errorf("no %s column in daily query result", dateColumn)
	}

	byDay := make(map[time.Time]decimal.Decimal)
	for _, row := range t.rows {
		date, err := toDate(cell(row, dateIdx))
		if err != nil {
			return nil, fmt.Errorf("failed to parse usage date: %w", err)
		}
		amount, err := toDecimal(cell(row, costIdx))
		if err != nil {
			return nil, fmt.Errorf("failed to parse daily cost: %w", err)
		}
		byDay[date] = byDay[date].Add(amount)
	}

	history := make([]domain.DailyCost, 0, len(byDay))
	for date, amount := range byDay {
		history = append(history, domain.DailyCost{Date: date, Cost: amount})
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].Date.Before(history[j].Date)
	})
	return history, nil
}
