package aggregator

import (
	"fmt"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
)

func (a *Aggregator) evaluateAlerts(snapshot *domain.Snapshot) []domain.Alert {
	alerts := []domain.Alert{}

	limit := a.config.BudgetLimit.Mul(snapshot.Rate)
	if snapshot.TotalConverted.GreaterThan(limit) {
		alerts = append(alerts, domain.Alert{
			Kind:  domain.AlertBudgetExceeded,
			Title: "Global budget exceeded",
			Message: fmt.Sprintf("Total spend is %s %s, above the %s %s limit",
				snapshot.Currency, snapshot.TotalConverted.StringFixed(2),
				snapshot.Currency, limit.StringFixed(2)),
		})
	}

	for _, p := range domain.Providers {
		res, ok := snapshot.PerProvider[p]
		if !ok || res.Anomaly == nil || !res.Anomaly.IsAnomaly {
			continue
		}
		today := a.converter.Convert(res.Anomaly.Today, snapshot.Currency)
		average := a.converter.Convert(res.Anomaly.Average, snapshot.Currency)
		alerts = append(alerts, domain.Alert{
			Kind:     domain.AlertCostSpike,
			Provider: p,
			Title:    fmt.Sprintf("%s cost spike detected", p.DisplayName()),
			Message: fmt.Sprintf("Spend on %s (%s %s) is more than %sx the trailing average of %s %s",
				res.Anomaly.Date.Format("2006-01-02"),
				snapshot.Currency, today.StringFixed(2),
				a.detector.Multiplier.String(),
				snapshot.Currency, average.StringFixed(2)),
		})
	}
	return alerts
}
