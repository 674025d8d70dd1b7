package gcp

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"golang.org/x/oauth2/google"
	bigquery "google.golang.org/api/bigquery/v2"
)

const DefaultExportDataset = "billing_export"

var tablePattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+(\.[A-Za-z0-9_\-]+){1,2}$`)

// Config is the resolved connection info for one billing export.
type Config struct {
	ProjectID   string
	Table       string
	Credentials *google.Credentials
}

func LoadConfig(ctx context.Context, creds domain.GCPCredentials) (*Config, error) {
	if !creds.Configured() {
		return nil, fmt.Errorf("GCP service account JSON is empty")
	}

	googleCreds, err := google.CredentialsFromJSON(ctx, creds.ServiceAccountJSON, bigquery.BigqueryScope)
	if err != nil {
		return nil, fmt.Errorf("invalid GCP service account JSON: %w", err)
	}
	if googleCreds.ProjectID == "" {
		return nil, fmt.Errorf("GCP service account JSON has no project_id")
	}

	table, err := ExportTable(creds)
	if err != nil {
		return nil, err
	}

	return &Config{
		ProjectID:   googleCreds.ProjectID,
		Table:       table,
		Credentials: googleCreds,
	}, nil
}

// ExportTable returns the billing export table, deriving the standard
// export name from the billing account id when none is configured.
func ExportTable(creds domain.GCPCredentials) (string, error) {
	table := strings.TrimSpace(creds.BillingTable)
	if table == "" {
		account := strings.TrimSpace(creds.BillingAccountID)
		if account == "" {
			return "", fmt.Errorf("GCP billing table or billing account id is required")
		}
		table = fmt.Sprintf("%s.gcp_billing_export_v1_%s", DefaultExportDataset, strings.ReplaceAll(account, "-", "_"))
	}

	if !tablePattern.MatchString(table) {
		return "", fmt.Errorf("invalid GCP billing table name %q", table)
	}
	return table, nil
}
