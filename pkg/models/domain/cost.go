package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProviderID identifies a cloud billing source.
type ProviderID string

const (
	ProviderAWS   ProviderID = "aws"
	ProviderAzure ProviderID = "azure"
	ProviderGCP   ProviderID = "gcp"
)

// Providers lists every supported billing source in display order.
var Providers = []ProviderID{ProviderAWS, ProviderAzure, ProviderGCP}

func (p ProviderID) DisplayName() string {
	switch p {
	case ProviderAWS:
		return "AWS"
	case ProviderAzure:
		return "Azure"
	case ProviderGCP:
		return "GCP"
	default:
		return string(p)
	}
}

type ServiceCost struct {
	Name   string          // AmazonEC2
	Amount decimal.Decimal // 12.34
}

type DailyCost struct {
	Date time.Time
	Cost decimal.Decimal
}

// Forecast is the predicted spend for the rest of the billing period.
// Available is false when the forecast sub-fetch was skipped or failed.
type Forecast struct {
	Amount    decimal.Decimal
	Available bool
}

type AnomalyFlag struct {
	IsAnomaly bool
	Date      time.Time
	Today     decimal.Decimal
	Average   decimal.Decimal
}

// ProviderResult is the outcome of one adapter invocation. A failed
// invocation still yields a zero-cost result with Error set.
type ProviderResult struct {
	Provider    ProviderID
	TotalCost   decimal.Decimal
	Currency    string
	TopServices []ServiceCost
	Forecast    Forecast
	History     []DailyCost
	Anomaly     *AnomalyFlag
	Error       *ProviderError
}

func (r ProviderResult) Failed() bool {
	return r.Error != nil
}

// FailedResult builds the zero-cost placeholder for a provider that could not be fetched.
func FailedResult(provider ProviderID, err *ProviderError) ProviderResult {
	return ProviderResult{
		Provider:    provider,
		TotalCost:   decimal.Zero,
		Currency:    BaseCurrency,
		TopServices: []ServiceCost{},
		History:     []DailyCost{},
		Error:       err,
	}
}

const BaseCurrency = "USD"
