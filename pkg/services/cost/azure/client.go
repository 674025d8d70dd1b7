package azure

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/de-tools/spend-atlas/pkg/models/domain"
)

// Client is the subset of the Cost Management API used by the adapter.
type Client interface {
	Query(ctx context.Context, scope string, def armcostmanagement.QueryDefinition) (armcostmanagement.QueryResult, error)
	Forecast(ctx context.Context, scope string, def armcostmanagement.ForecastDefinition) (armcostmanagement.QueryResult, error)
}

type ClientFactory func(creds domain.AzureCredentials) (Client, error)

type sdkClient struct {
	query    *armcostmanagement.QueryClient
	forecast *armcostmanagement.ForecastClient
}

func DefaultClientFactory(creds domain.AzureCredentials) (Client, error) {
	cred, err := NewCredential(creds)
	if err != nil {
		return nil, err
	}

	clientFactory, err := armcostmanagement.NewClientFactory(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cost management client factory: %w", err)
	}

	return &sdkClient{
		query:    clientFactory.NewQueryClient(),
		forecast: clientFactory.NewForecastClient(),
	}, nil
}

func (c *sdkClient) Query(
	ctx context.Context,
	scope string,
	def armcostmanagement.QueryDefinition,
) (armcostmanagement.QueryResult, error) {
	resp, err := c.query.Usage(ctx, scope, def, nil)
	if err != nil {
		return armcostmanagement.QueryResult{}, err
	}
	return resp.QueryResult, nil
}

func (c *sdkClient) Forecast(
	ctx context.Context,
	scope string,
	def armcostmanagement.ForecastDefinition,
) (armcostmanagement.QueryResult, error) {
	resp, err := c.forecast.Usage(ctx, scope, def, nil)
	if err != nil {
		return armcostmanagement.QueryResult{}, err
	}
	return resp.QueryResult, nil
}
