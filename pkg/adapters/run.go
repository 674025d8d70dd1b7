package adapters

import (
	"fmt"
	"strings"

	"github.com/de-tools/spend-atlas/pkg/models/api"
	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/models/store"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

func MapDomainRunToStore(run domain.RunRecord) store.RunRow {
	return store.RunRow{
		ID:         run.ID.String(),
		StartedAt:  run.StartedAt.UTC(),
		FinishedAt: run.FinishedAt.UTC(),
		State:      string(run.State),
		Total:      run.Total.String(),
		Currency:   run.Currency,
		FailedProviders: strings.Join(lo.Map(run.FailedProviders, func(p domain.ProviderID, _ int) string {
			return string(p)
		}), ","),
	}
}

func MapStoreRunToDomain(row store.RunRow) (domain.RunRecord, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("run id: %w", err)
	}
	total, err := decimal.NewFromString(row.Total)
	if err != nil {
		return domain.RunRecord{}, fmt.Errorf("run total: %w", err)
	}

	failed := []domain.ProviderID{}
	for _, p := range strings.Split(row.FailedProviders, ",") {
		if p = strings.TrimSpace(p); p != "" {
			failed = append(failed, domain.ProviderID(p))
		}
	}

	return domain.RunRecord{
		ID:              id,
		StartedAt:       row.StartedAt.UTC(),
		FinishedAt:      row.FinishedAt.UTC(),
		State:           domain.RunState(row.State),
		Total:           total,
		Currency:        row.Currency,
		FailedProviders: failed,
	}, nil
}

func MapDomainRunToApi(run domain.RunRecord) api.RunRecord {
	return api.RunRecord{
		ID:         run.ID.String(),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		DurationMs: run.FinishedAt.Sub(run.StartedAt).Milliseconds(),
		State:      string(run.State),
		Total:      run.Total.StringFixed(2),
		Currency:   run.Currency,
		FailedProviders: lo.Map(run.FailedProviders, func(p domain.ProviderID, _ int) string {
			return string(p)
		}),
	}
}

func MapCredentialStatusToApi(status map[domain.ProviderID]domain.CredentialState) api.CredentialStatus {
	return api.CredentialStatus{
		Providers: lo.MapEntries(status, func(p domain.ProviderID, s domain.CredentialState) (string, string) {
			return string(p), string(s)
		}),
	}
}
