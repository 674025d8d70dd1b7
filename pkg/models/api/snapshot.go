package api

import "time"

type Snapshot struct {
	ID              string                    `json:"id"`
	Timestamp       time.Time                 `json:"timestamp"`
	Currency        string                    `json:"currency"`
	Rate            string                    `json:"rate"`
	TotalConverted  string                    `json:"total_converted"`
	State           string                    `json:"state"`
	NotConfigured   bool                      `json:"not_configured"`
	DecryptionError bool                      `json:"decryption_error"`
	ErrorMessage    string                    `json:"error_message,omitempty"`
	Providers       map[string]ProviderResult `json:"providers"`
	Alerts          []Alert                   `json:"alerts"`
}

type ProviderResult struct {
	Provider    string        `json:"provider"`
	DisplayName string        `json:"display_name"`
	TotalCost   string        `json:"total_cost"`
	Converted   string        `json:"converted"`
	Currency    string        `json:"currency"`
	TopServices []ServiceCost `json:"top_services"`
	Forecast    *string       `json:"forecast"`
	History     []DailyCost   `json:"history"`
	Anomaly     *Anomaly      `json:"anomaly,omitempty"`
	Error       *Error        `json:"error,omitempty"`
}

type ServiceCost struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type DailyCost struct {
	Date string `json:"date"`
	Cost string `json:"cost"`
}

type Anomaly struct {
	Date    string `json:"date"`
	Today   string `json:"today"`
	Average string `json:"average"`
}

type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type Alert struct {
	Kind     string `json:"kind"`
	Provider string `json:"provider,omitempty"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

type RunRecord struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationMs      int64     `json:"duration_ms"`
	State           string    `json:"state"`
	Total           string    `json:"total"`
	Currency        string    `json:"currency"`
	FailedProviders []string  `json:"failed_providers"`
}

type RefreshResponse struct {
	Status string `json:"status"`
}

type CredentialStatus struct {
	Providers map[string]string `json:"providers"`
}
