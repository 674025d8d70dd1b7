package aggregator

import (
	"context"
	"errors"
	"sort"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/services/anomaly"
	"github.com/de-tools/spend-atlas/pkg/services/cost"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

type outcome struct {
	result domain.ProviderResult
	err    error
}

// fetchAll settles every configured adapter. Unconfigured providers are
// marked failed without being called.
func (a *Aggregator) fetchAll(ctx context.Context, creds domain.Credentials) map[domain.ProviderID]domain.ProviderResult {
	results := make(map[domain.ProviderID]domain.ProviderResult, len(domain.Providers))

	p := pool.NewWithResults[domain.ProviderResult]()
	for _, provider := range domain.Providers {
		adapter, ok := a.adapters[provider]
		switch {
		case !creds.Configured(provider):
			results[provider] = domain.FailedResult(provider,
				domain.NewProviderError(domain.ErrorKindNotConfigured, "%s not configured", provider.DisplayName()))
		case !ok:
			results[provider] = domain.FailedResult(provider,
				domain.NewProviderError(domain.ErrorKindNotConfigured, "no adapter registered for %s", provider.DisplayName()))
		default:
			p.Go(func() domain.ProviderResult {
				return a.fetch(ctx, provider, adapter, creds)
			})
		}
	}

	for _, res := range p.Wait() {
		results[res.Provider] = res
	}
	return results
}

func (a *Aggregator) fetch(ctx context.Context, provider domain.ProviderID, adapter cost.Adapter, creds domain.Credentials) domain.ProviderResult {
	logger := zerolog.Ctx(ctx).With().Str("provider", string(provider)).Logger()
	ctx, cancel := context.WithTimeout(logger.WithContext(ctx), a.config.FetchTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: domain.NewProviderError(domain.ErrorKindInternal, "adapter panicked: %v", r)}
			}
		}()
		res, err := adapter.Fetch(ctx, creds)
		done <- outcome{result: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: ctx.Err()}
	}

	if out.err != nil {
		perr := classify(out.err, a.config.FetchTimeout.String())
		logger.Warn().Err(out.err).Str("kind", string(perr.Kind)).Msg("provider fetch failed")
		return domain.FailedResult(provider, perr)
	}

	logger.Debug().Str("total", out.result.TotalCost.String()).Msg("provider fetch succeeded")
	return a.normalize(provider, out.result)
}

func classify(err error, timeout string) *domain.ProviderError {
	var perr *domain.ProviderError
	switch {
	case errors.As(err, &perr):
		return perr
	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewProviderError(domain.ErrorKindTimeout, "no response within %s", timeout)
	case errors.Is(err, context.Canceled):
		return domain.NewProviderError(domain.ErrorKindInternal, "fetch cancelled")
	default:
		return domain.AsProviderError(err, domain.ErrorKindCriticalFetch)
	}
}

// normalize fills defaults, orders history and evaluates the spike heuristic.
func (a *Aggregator) normalize(provider domain.ProviderID, res domain.ProviderResult) domain.ProviderResult {
	res.Provider = provider
	res.Error = nil
	if res.Currency == "" {
		res.Currency = domain.BaseCurrency
	}
	if res.TotalCost.IsNegative() {
		res.TotalCost = decimal.Zero
	}
	if res.TopServices == nil {
		res.TopServices = []domain.ServiceCost{}
	}
	sort.SliceStable(res.TopServices, func(i, j int) bool {
		return res.TopServices[i].Amount.GreaterThan(res.TopServices[j].Amount)
	})
	if res.History == nil {
		res.History = []domain.DailyCost{}
	}
	anomaly.SortHistory(res.History)
	res.Anomaly = a.detector.Detect(res.History)
	return res
}
