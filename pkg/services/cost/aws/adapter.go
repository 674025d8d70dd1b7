package aws

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/services/cost"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const unblendedCost = "UnblendedCost"

// Client is the subset of the Cost Explorer API used by the adapter.
type Client interface {
	GetCostAndUsage(
		ctx context.Context,
		params *costexplorer.GetCostAndUsageInput,
		optFns ...func(*costexplorer.Options),
	) (*costexplorer.GetCostAndUsageOutput, error)
	GetCostForecast(
		ctx context.Context,
		params *costexplorer.GetCostForecastInput,
		optFns ...func(*costexplorer.Options),
	) (*costexplorer.GetCostForecastOutput, error)
}

// ClientFactory builds a Cost Explorer client for one set of credentials.
type ClientFactory func(ctx context.Context, creds domain.AWSCredentials) (Client, error)

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

func DefaultClientFactory(ctx context.Context, creds domain.AWSCredentials) (Client, error) {
	cfg, err := LoadConfig(ctx, creds)
	if err != nil {
		return nil, err
	}
	return costexplorer.NewFromConfig(*cfg), nil
}

func (a *adapter) Provider() domain.ProviderID {
	return domain.ProviderAWS
}

func (a *adapter) Fetch(ctx context.Context, creds domain.Credentials) (domain.ProviderResult, error) {
	logger := zerolog.Ctx(ctx).With().Str("provider", string(domain.ProviderAWS)).Logger()

	client, err := a.newClient(ctx, creds.AWS)
	if err != nil {
		return domain.ProviderResult{}, err
	}

	period := cost.NewPeriod(a.now())

	services, err := a.currentServices(ctx, client, period)
	if err != nil {
		return domain.ProviderResult{}, err
	}

	forecast, err := a.forecast(ctx, client, period)
	if err != nil {
		logger.Warn().Err(err).Msg("forecast skipped (normal for new accounts)")
	}

	history, err := a.history(ctx, client, period)
	if err != nil {
		logger.Warn().Err(err).Msg("history skipped")
		history = []domain.DailyCost{}
	}

	return domain.ProviderResult{
		Provider:    domain.ProviderAWS,
		TotalCost:   cost.SumServices(services),
		Currency:    domain.BaseCurrency,
		TopServices: cost.TopServices(services),
		Forecast:    forecast,
		History:     history,
	}, nil
}

func (a *adapter) currentServices(
	ctx context.Context,
	client Client,
	period cost.Period,
) ([]domain.ServiceCost, error) {
	result, err := client.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &types.DateInterval{
			Start: awssdk.String(period.MonthStart.Format(cost.DateLayout)),
			End:   awssdk.String(period.Tomorrow.Format(cost.DateLayout)),
		},
		Granularity: types.GranularityMonthly,
		Metrics:     []string{unblendedCost},
		GroupBy: []types.GroupDefinition{
			{
				Type: types.GroupDefinitionTypeDimension,
				Key:  awssdk.String(string(types.DimensionService)),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get cost and usage: %w", err)
	}

	var services []domain.ServiceCost
	for _, byTime := range result.ResultsByTime {
		for _, group := range byTime.Groups {
			if len(group.Keys) == 0 {
				continue
			}
			amount, err := metricAmount(group.Metrics)
			if err != nil {
				return nil, fmt.Errorf("failed to parse cost for %s: %w", group.Keys[0], err)
			}
			services = append(services, domain.ServiceCost{Name: group.Keys[0], Amount: amount})
		}
	}

	return cost.MergeServices(services), nil
}

func (a *adapter) forecast(ctx context.Context, client Client, period cost.Period) (domain.Forecast, error) {
	if !period.ForecastOpen() {
		return domain.Forecast{Amount: decimal.Zero}, nil
	}

	result, err := client.GetCostForecast(ctx, &costexplorer.GetCostForecastInput{
		TimePeriod: &types.DateInterval{
			Start: awssdk.String(period.Tomorrow.Format(cost.DateLayout)),
			End:   awssdk.String(period.NextMonthStart.Format(cost.DateLayout)),
		},
		Metric:      types.MetricUnblendedCost,
		Granularity: types.GranularityMonthly,
	})
	if err != nil {
		return domain.Forecast{Amount: decimal.Zero}, fmt.Errorf("failed to get cost forecast: %w", err)
	}

	if result.Total == nil || result.Total.Amount == nil {
		return domain.Forecast{Amount: decimal.Zero}, nil
	}

	amount, err := decimal.NewFromString(*result.Total.Amount)
	if err != nil {
		return domain.Forecast{Amount: decimal.Zero}, fmt.Errorf("failed to parse forecast: %w", err)
	}
	return domain.Forecast{Amount: amount, Available: true}, nil
}

func (a *adapter) history(ctx context.Context, client Client, period cost.Period) ([]domain.DailyCost, error) {
	result, err := client.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &types.DateInterval{
			Start: awssdk.String(period.HistoryStart.Format(cost.DateLayout)),
			End:   awssdk.String(period.Today.Format(cost.DateLayout)),
		},
		Granularity: types.GranularityDaily,
		Metrics:     []string{unblendedCost},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get daily cost: %w", err)
	}

	history := make([]domain.DailyCost, 0, len(result.ResultsByTime))
	for _, byTime := range result.ResultsByTime {
		if byTime.TimePeriod == nil || byTime.TimePeriod.Start == nil {
			continue
		}
		date, err := time.Parse(cost.DateLayout, *byTime.TimePeriod.Start)
		if err != nil {
			return nil, fmt.Errorf("failed to parse start time: %w", err)
		}
		amount, err := metricAmount(byTime.Total)
		if err != nil {
			return nil, fmt.Errorf("failed to parse daily cost for %s: %w", *byTime.TimePeriod.Start, err)
		}
		history = append(history, domain.DailyCost{Date: date, Cost: amount})
	}
	return history, nil
}

func metricAmount(metrics map[string]types.MetricValue) (decimal.Decimal, error) {
	metric, ok := metrics[unblendedCost]
	if !ok || metric.Amount == nil {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(*metric.Amount)
}
