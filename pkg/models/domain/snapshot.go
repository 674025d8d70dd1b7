package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AlertKind string

const (
	AlertBudgetExceeded AlertKind = "budget_exceeded"
	AlertCostSpike      AlertKind = "cost_spike"
)

type Alert struct {
	Kind     AlertKind
	Provider ProviderID // empty for global alerts
	Title    string
	Message  string
}

// Snapshot is the complete result of one aggregation run.
type Snapshot struct {
	ID              uuid.UUID
	PerProvider     map[ProviderID]ProviderResult
	TotalConverted  decimal.Decimal
	Currency        string
	Rate            decimal.Decimal
	Timestamp       time.Time
	NotConfigured   bool
	DecryptionError bool
	ErrorMessage    string
	Alerts          []Alert
}

// FailedProviders returns the providers whose result carries an error, in display order.
func (s *Snapshot) FailedProviders() []ProviderID {
	var failed []ProviderID
	for _, p := range Providers {
		if r, ok := s.PerProvider[p]; ok && r.Failed() {
			failed = append(failed, p)
		}
	}
	return failed
}

type RunState string

const (
	RunStateCompleted     RunState = "completed"
	RunStateNotConfigured RunState = "not_configured"
	RunStateDecryption    RunState = "decryption_error"
)

// RunRecord is the audit trail entry written after every aggregation run.
type RunRecord struct {
	ID              uuid.UUID
	StartedAt       time.Time
	FinishedAt      time.Time
	State           RunState
	Total           decimal.Decimal
	Currency        string
	FailedProviders []ProviderID
}

func (s *Snapshot) State() RunState {
	switch {
	case s.DecryptionError:
		return RunStateDecryption
	case s.NotConfigured:
		return RunStateNotConfigured
	default:
		return RunStateCompleted
	}
}
