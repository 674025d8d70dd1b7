package gcp

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	bigquery "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/option"
)

const queryTimeout = 60 * time.Second

// Param is a named BigQuery query parameter.
type Param struct {
	Name  string
	Type  string // DATE, STRING
	Value string
}

// Row is one result row with every cell rendered as a string.
type Row []string

// Client runs standard SQL against the billing export project.
type Client interface {
	Query(ctx context.Context, sql string, params ...Param) ([]Row, error)
}

type ClientFactory func(ctx context.Context, creds domain.GCPCredentials) (Client, string, error)

type bigQueryClient struct {
	service   *bigquery.Service
	projectID string
}

// DefaultClientFactory returns a BigQuery client and the export table it should query.
func DefaultClientFactory(ctx context.Context, creds domain.GCPCredentials) (Client, string, error) {
	cfg, err := LoadConfig(ctx, creds)
	if err != nil {
		return nil, "", err
	}

	service, err := bigquery.NewService(ctx, option.WithTokenSource(cfg.Credentials.TokenSource))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create BigQuery service: %w", err)
	}

	return &bigQueryClient{service: service, projectID: cfg.ProjectID}, cfg.Table, nil
}

func (c *bigQueryClient) Query(ctx context.Context, sql string, params ...Param) ([]Row, error) {
	useLegacy := false
	req := &bigquery.QueryRequest{
		Query:           sql,
		UseLegacySql:    &useLegacy,
		ParameterMode:   "NAMED",
		TimeoutMs:       queryTimeout.Milliseconds(),
		QueryParameters: make([]*bigquery.QueryParameter, 0, len(params)),
	}
	for _, p := range params {
		req.QueryParameters = append(req.QueryParameters, &bigquery.QueryParameter{
			Name:           p.Name,
			ParameterType:  &bigquery.QueryParameterType{Type: p.Type},
			ParameterValue: &bigquery.QueryParameterValue{Value: p.Value},
		})
	}

	resp, err := c.service.Jobs.Query(c.projectID, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("bigquery query failed: %w", err)
	}
	if !resp.JobComplete {
		return nil, fmt.Errorf("bigquery query did not complete within %s", queryTimeout)
	}

	rows := make([]Row, 0, len(resp.Rows))
	for _, r := range resp.Rows {
		row := make(Row, 0, len(r.F))
		for _, cell := range r.F {
			if cell == nil || cell.V == nil {
				row = append(row, "")
				continue
			}
			row = append(row, fmt.Sprintf("%v", cell.V))
		}
		rows = append(rows, row)
	}
	return rows, nil
}
