package azure

import (
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/de-tools/spend-atlas/pkg/models/domain"
)

// NewCredential creates a service principal credential from the stored secret bundle.
func NewCredential(creds domain.AzureCredentials) (*azidentity.ClientSecretCredential, error) {
	tenant := strings.TrimSpace(creds.TenantID)
	client := strings.TrimSpace(creds.ClientID)
	secret := strings.TrimSpace(creds.ClientSecret)

	if client == "" || secret == "" {
		return nil, fmt.Errorf("Azure credentials missing (client id or secret is empty)")
	}
	if tenant == "" {
		return nil, fmt.Errorf("Azure tenant id is empty")
	}

	cred, err := azidentity.NewClientSecretCredential(tenant, client, secret, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client secret credential: %w", err)
	}
	return cred, nil
}

func subscriptionScope(creds domain.AzureCredentials) (string, error) {
	sub := strings.TrimSpace(creds.SubscriptionID)
	if sub == "" {
		return "", fmt.Errorf("Azure subscription id is empty")
	}
	return fmt.Sprintf("/subscriptions/%s", sub), nil
}
