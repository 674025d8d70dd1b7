package gcp

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/services/cost"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Costs include credits (negative amounts), matching the invoice view.
const servicesQuery = `
SELECT
  service.description AS service,
  SUM(cost) + SUM(IFNULL((SELECT SUM(c.amount) FROM UNNEST(credits) c), 0)) AS total
FROM ` + "`%s`" + `
WHERE DATE(usage_start_time) >= @start AND DATE(usage_start_time) < @end
GROUP BY service
ORDER BY total DESC`

const historyQuery = `
SELECT
  FORMAT_DATE('%%F', DATE(usage_start_time)) AS day,
  SUM(cost) + SUM(IFNULL((SELECT SUM(c.amount) FROM UNNEST(credits) c), 0)) AS total
FROM ` + "`%s`" + `
WHERE DATE(usage_start_time) >= @start AND DATE(usage_start_time) < @end
GROUP BY day
ORDER BY day`

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
	return domain.ProviderGCP
}

func (a *adapter) Fetch(ctx context.Context, creds domain.Credentials) (domain.ProviderResult, error) {
	logger := zerolog.Ctx(ctx).With().Str("provider", string(domain.ProviderGCP)).Logger()

	client, table, err := a.newClient(ctx, creds.GCP)
	if err != nil {
		return domain.ProviderResult{}, err
	}

	period := cost.NewPeriod(a.now())

	services, err := a.currentServices(ctx, client, table, period)
	if err != nil {
		return domain.ProviderResult{}, err
	}
	total := cost.SumServices(services)

	history, err := a.history(ctx, client, table, period)
	if err != nil {
		logger.Warn().Err(err).Msg("history skipped")
		history = []domain.DailyCost{}
	}

	return domain.ProviderResult{
		Provider:    domain.ProviderGCP,
		TotalCost:   total,
		Currency:    domain.BaseCurrency,
		TopServices: cost.TopServices(services),
		Forecast:    runRateForecast(total, period),
		History:     history,
	}, nil
}

func dateParams(start, end time.Time) []Param {
	return []Param{
		{Name: "start", Type: "DATE", Value: start.Format(cost.DateLayout)},
		{Name: "end", Type: "DATE", Value: end.Format(cost.DateLayout)},
	}
}

func (a *adapter) currentServices(
	ctx context.Context,
	client Client,
	table string,
	period cost.Period,
) ([]domain.ServiceCost, error) {
	rows, err := client.Query(ctx, fmt.Sprintf(servicesQuery, table), dateParams(period.MonthStart, period.Tomorrow)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query billing export: %w", err)
	}

	services := make([]domain.ServiceCost, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		amount, err := parseAmount(row[1])
		if err != nil {
			return nil, fmt.Errorf("failed to parse cost for %s: %w", row[0], err)
		}
		services = append(services, domain.ServiceCost{Name: row[0], Amount: amount})
	}
	return cost.MergeServices(services), nil
}

func (a *adapter) history(
	ctx context.Context,
	client Client,
	table string,
	period cost.Period,
) ([]domain.DailyCost, error) {
	rows, err := client.Query(ctx, fmt.Sprintf(historyQuery, table), dateParams(period.HistoryStart, period.Today)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily costs: %w", err)
	}

	history := make([]domain.DailyCost, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		date, err := time.Parse(cost.DateLayout, row[0])
		if err != nil {
			return nil, fmt.Errorf("failed to parse usage day: %w", err)
		}
		amount, err := parseAmount(row[1])
		if err != nil {
			return nil, fmt.Errorf("failed to parse daily cost: %w", err)
		}
		history = append(history, domain.DailyCost{Date: date, Cost: amount})
	}
	sort.Slice(history, func(i, j int) bool {
		return history[i].Date.Before(history[j].Date)
	})
	return history, nil
}

// runRateForecast projects month-to-date spend over the remaining days.
// The billing export has no forecast, so this stands in for one.
func runRateForecast(total decimal.Decimal, period cost.Period) domain.Forecast {
	elapsed := period.ElapsedDays()
	remaining := period.RemainingDays()
	if remaining <= 0 || elapsed <= 1 {
		return domain.Forecast{Amount: decimal.Zero}
	}

	daily := total.Div(decimal.NewFromInt(int64(elapsed)))
	return domain.Forecast{
		Amount:    daily.Mul(decimal.NewFromInt(int64(remaining))).Round(2),
		Available: true,
	}
}

func parseAmount(v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(v)
}
