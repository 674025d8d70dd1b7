package cost

import (
	"context"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
)

// Adapter retrieves billing data from a single cloud provider.
//
// Fetch returns an error only when the current-period total cannot be
// retrieved. Forecast and history failures degrade to empty defaults.
type Adapter interface {
	Provider() domain.ProviderID
	Fetch(ctx context.Context, creds domain.Credentials) (domain.ProviderResult, error)
}
