package domain

import "strings"

type AWSCredentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
}

func (c AWSCredentials) Configured() bool {
	return notBlank(c.AccessKeyID) && notBlank(c.SecretAccessKey)
}

type AzureCredentials struct {
	TenantID       string
	ClientID       string
	ClientSecret   string
	SubscriptionID string
}

func (c AzureCredentials) Configured() bool {
	return notBlank(c.ClientID) && notBlank(c.ClientSecret)
}

type GCPCredentials struct {
	ServiceAccountJSON []byte
	BillingAccountID   string
	// BillingTable is the fully qualified billing export table (dataset.table or project.dataset.table).
	BillingTable string
}

func (c GCPCredentials) Configured() bool {
	return len(strings.TrimSpace(string(c.ServiceAccountJSON))) > 0
}

// Credentials is the per-run bundle handed to the provider adapters.
type Credentials struct {
	AWS   AWSCredentials
	Azure AzureCredentials
	GCP   GCPCredentials
}

func (c Credentials) Configured(p ProviderID) bool {
	switch p {
	case ProviderAWS:
		return c.AWS.Configured()
	case ProviderAzure:
		return c.Azure.Configured()
	case ProviderGCP:
		return c.GCP.Configured()
	default:
		return false
	}
}

func (c Credentials) AnyConfigured() bool {
	for _, p := range Providers {
		if c.Configured(p) {
			return true
		}
	}
	return false
}

type CredentialState string

const (
	CredentialConnected    CredentialState = "connected"
	CredentialEncrypted    CredentialState = "encrypted"
	CredentialNotConnected CredentialState = "not_connected"
)

func notBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}
