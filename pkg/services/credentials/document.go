package credentials

import (
	"bytes"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/goccy/go-json"
)

// document is the JSON shape sealed inside the encrypted payload.
type document struct {
	AWS struct {
		Key          string `json:"key"`
		Secret       string `json:"secret"`
		SessionToken string `json:"session_token,omitempty"`
		Region       string `json:"region,omitempty"`
	} `json:"aws"`
	Azure struct {
		Tenant string `json:"tenant"`
		Client string `json:"client"`
		Secret string `json:"secret"`
		Sub    string `json:"sub"`
	} `json:"azure"`
	GCP struct {
		JSON         string `json:"json"`
		BillingID    string `json:"billingId"`
		BillingTable string `json:"billingTable,omitempty"`
	} `json:"gcp"`
}

func toDocument(c domain.Credentials) document {
	var d document
	d.AWS.Key = c.AWS.AccessKeyID
	d.AWS.Secret = c.AWS.SecretAccessKey
	d.AWS.SessionToken = c.AWS.SessionToken
	d.AWS.Region = c.AWS.Region
	d.Azure.Tenant = c.Azure.TenantID
	d.Azure.Client = c.Azure.ClientID
	d.Azure.Secret = c.Azure.ClientSecret
	d.Azure.Sub = c.Azure.SubscriptionID
	d.GCP.JSON = string(c.GCP.ServiceAccountJSON)
	d.GCP.BillingID = c.GCP.BillingAccountID
	d.GCP.BillingTable = c.GCP.BillingTable
	return d
}

func (d document) credentials() domain.Credentials {
	return domain.Credentials{
		AWS: domain.AWSCredentials{
			AccessKeyID:     d.AWS.Key,
			SecretAccessKey: d.AWS.Secret,
			SessionToken:    d.AWS.SessionToken,
			Region:          d.AWS.Region,
		},
		Azure: domain.AzureCredentials{
			TenantID:       d.Azure.Tenant,
			ClientID:       d.Azure.Client,
			ClientSecret:   d.Azure.Secret,
			SubscriptionID: d.Azure.Sub,
		},
		GCP: domain.GCPCredentials{
			ServiceAccountJSON: []byte(d.GCP.JSON),
			BillingAccountID:   d.GCP.BillingID,
			BillingTable:       d.GCP.BillingTable,
		},
	}
}

func compactJSON(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
