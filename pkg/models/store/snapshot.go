package store

import "time"

// SnapshotDocument is the persisted JSON form of a snapshot. Amounts are
// decimal strings so no precision is lost between runs.
type SnapshotDocument struct {
	ID              string                    `json:"id"`
	Timestamp       time.Time                 `json:"timestamp"`
	Currency        string                    `json:"currency"`
	Rate            string                    `json:"rate"`
	TotalConverted  string                    `json:"total_converted"`
	NotConfigured   bool                      `json:"not_configured"`
	DecryptionError bool                      `json:"decryption_error"`
	ErrorMessage    string                    `json:"error_message,omitempty"`
	Providers       map[string]ProviderRecord `json:"providers"`
	Alerts          []AlertRecord             `json:"alerts"`
}

type ProviderRecord struct {
	TotalCost         string          `json:"total_cost"`
	Currency          string          `json:"currency"`
	TopServices       []ServiceRecord `json:"top_services"`
	Forecast          string          `json:"forecast"`
	ForecastAvailable bool            `json:"forecast_available"`
	History           []DailyRecord   `json:"history"`
	Anomaly           *AnomalyRecord  `json:"anomaly,omitempty"`
	ErrorKind         string          `json:"error_kind,omitempty"`
	ErrorMessage      string          `json:"error_message,omitempty"`
}

type ServiceRecord struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type DailyRecord struct {
	Date string `json:"date"`
	Cost string `json:"cost"`
}

type AnomalyRecord struct {
	Date    string `json:"date"`
	Today   string `json:"today"`
	Average string `json:"average"`
}

type AlertRecord struct {
	Kind     string `json:"kind"`
	Provider string `json:"provider,omitempty"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// RunRow mirrors a row of the runs table.
type RunRow struct {
	ID              string
	StartedAt       time.Time
	FinishedAt      time.Time
	State           string
	Total           string
	Currency        string
	FailedProviders string // comma separated
}
