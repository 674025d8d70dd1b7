package adapters

import (
	"fmt"
	"time"

	"github.com/de-tools/spend-atlas/pkg/models/api"
	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/models/store"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

func MapDomainSnapshotToStore(s *domain.Snapshot) store.SnapshotDocument {
	doc := store.SnapshotDocument{
		ID:              s.ID.String(),
		Timestamp:       s.Timestamp.UTC(),
		Currency:        s.Currency,
		Rate:            s.Rate.String(),
		TotalConverted:  s.TotalConverted.String(),
		NotConfigured:   s.NotConfigured,
		DecryptionError: s.DecryptionError,
		ErrorMessage:    s.ErrorMessage,
		Providers:       make(map[string]store.ProviderRecord, len(s.PerProvider)),
		Alerts: lo.Map(s.Alerts, func(a domain.Alert, _ int) store.AlertRecord {
			return store.AlertRecord{Kind: string(a.Kind), Provider: string(a.Provider), Title: a.Title, Message: a.Message}
		}),
	}

	for p, res := range s.PerProvider {
		rec := store.ProviderRecord{
			TotalCost:         res.TotalCost.String(),
			Currency:          res.Currency,
			Forecast:          res.Forecast.Amount.String(),
			ForecastAvailable: res.Forecast.Available,
			TopServices: lo.Map(res.TopServices, func(sc domain.ServiceCost, _ int) store.ServiceRecord {
				return store.ServiceRecord{Name: sc.Name, Amount: sc.Amount.String()}
			}),
			History: lo.Map(res.History, func(d domain.DailyCost, _ int) store.DailyRecord {
				return store.DailyRecord{Date: d.Date.Format(time.DateOnly), Cost: d.Cost.String()}
			}),
		}
		if res.Anomaly != nil {
			rec.Anomaly = &store.AnomalyRecord{
				Date:    res.Anomaly.Date.Format(time.DateOnly),
				Today:   res.Anomaly.Today.String(),
				Average: res.Anomaly.Average.String(),
			}
		}
		if res.Error != nil {
			rec.ErrorKind = string(res.Error.Kind)
			rec.ErrorMessage = res.Error.Message
		}
		doc.Providers[string(p)] = rec
	}
	return doc
}

func MapStoreSnapshotToDomain(doc store.SnapshotDocument) (*domain.Snapshot, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("snapshot id: %w", err)
	}

	p := &parser{}
	s := &domain.Snapshot{
		ID:              id,
		Timestamp:       doc.Timestamp.UTC(),
		Currency:        doc.Currency,
		Rate:            p.decimal("rate", doc.Rate),
		TotalConverted:  p.decimal("total_converted", doc.TotalConverted),
		NotConfigured:   doc.NotConfigured,
		DecryptionError: doc.DecryptionError,
		ErrorMessage:    doc.ErrorMessage,
		PerProvider:     make(map[domain.ProviderID]domain.ProviderResult, len(doc.Providers)),
		Alerts: lo.Map(doc.Alerts, func(a store.AlertRecord, _ int) domain.Alert {
			return domain.Alert{Kind: domain.AlertKind(a.Kind), Provider: domain.ProviderID(a.Provider), Title: a.Title, Message: a.Message}
		}),
	}

	for key, rec := range doc.Providers {
		provider := domain.ProviderID(key)
		res := domain.ProviderResult{
			Provider:  provider,
			TotalCost: p.decimal(key+".total_cost", rec.TotalCost),
			Currency:  rec.Currency,
			Forecast: domain.Forecast{
				Amount:    p.decimal(key+".forecast", rec.Forecast),
				Available: rec.ForecastAvailable,
			},
			TopServices: lo.Map(rec.TopServices, func(sc store.ServiceRecord, _ int) domain.ServiceCost {
				return domain.ServiceCost{Name: sc.Name, Amount: p.decimal(key+".top_services", sc.Amount)}
			}),
			History: lo.Map(rec.History, func(d store.DailyRecord, _ int) domain.DailyCost {
				return domain.DailyCost{Date: p.date(key+".history", d.Date), Cost: p.decimal(key+".history", d.Cost)}
			}),
		}
		if rec.Anomaly != nil {
			res.Anomaly = &domain.AnomalyFlag{
				IsAnomaly: true,
				Date:      p.date(key+".anomaly", rec.Anomaly.Date),
				Today:     p.decimal(key+".anomaly", rec.Anomaly.Today),
				Average:   p.decimal(key+".anomaly", rec.Anomaly.Average),
			}
		}
		if rec.ErrorKind != "" {
			res.Error = &domain.ProviderError{Kind: domain.ErrorKind(rec.ErrorKind), Message: rec.ErrorMessage}
		}
		s.PerProvider[provider] = res
	}

	if p.err != nil {
		return nil, p.err
	}
	return s, nil
}

func MapDomainSnapshotToApi(s *domain.Snapshot) api.Snapshot {
	out := api.Snapshot{
		ID:              s.ID.String(),
		Timestamp:       s.Timestamp,
		Currency:        s.Currency,
		Rate:            s.Rate.String(),
		TotalConverted:  s.TotalConverted.StringFixed(2),
		State:           string(s.State()),
		NotConfigured:   s.NotConfigured,
		DecryptionError: s.DecryptionError,
		ErrorMessage:    s.ErrorMessage,
		Providers:       make(map[string]api.ProviderResult, len(s.PerProvider)),
		Alerts: lo.Map(s.Alerts, func(a domain.Alert, _ int) api.Alert {
			return api.Alert{Kind: string(a.Kind), Provider: string(a.Provider), Title: a.Title, Message: a.Message}
		}),
	}

	for p, res := range s.PerProvider {
		out.Providers[string(p)] = MapProviderResultDomainToApi(res, s.Rate)
	}
	return out
}

// MapProviderResultDomainToApi keeps native amounts and adds the total in the snapshot currency.
func MapProviderResultDomainToApi(res domain.ProviderResult, rate decimal.Decimal) api.ProviderResult {
	out := api.ProviderResult{
		Provider:    string(res.Provider),
		DisplayName: res.Provider.DisplayName(),
		TotalCost:   res.TotalCost.StringFixed(2),
		Converted:   res.TotalCost.Mul(rate).StringFixed(2),
		Currency:    res.Currency,
		TopServices: lo.Map(res.TopServices, func(sc domain.ServiceCost, _ int) api.ServiceCost {
			return api.ServiceCost{Name: sc.Name, Amount: sc.Amount.StringFixed(2)}
		}),
		History: lo.Map(res.History, func(d domain.DailyCost, _ int) api.DailyCost {
			return api.DailyCost{Date: d.Date.Format(time.DateOnly), Cost: d.Cost.StringFixed(2)}
		}),
	}
	if res.Forecast.Available {
		out.Forecast = lo.ToPtr(res.Forecast.Amount.StringFixed(2))
	}
	if res.Anomaly != nil {
		out.Anomaly = &api.Anomaly{
			Date:    res.Anomaly.Date.Format(time.DateOnly),
			Today:   res.Anomaly.Today.StringFixed(2),
			Average: res.Anomaly.Average.StringFixed(2),
		}
	}
	if res.Error != nil {
		out.Error = &api.Error{Kind: string(res.Error.Kind), Message: res.Error.Message}
	}
	return out
}

// parser collects the first conversion error so the mapping code stays linear.
type parser struct {
	err error
}

func (p *parser) decimal(field, raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", field, err)
	}
	return d
}

func (p *parser) date(field, raw string) time.Time {
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", field, err)
	}
	return t
}
