package credentials

import (
	"context"
	"fmt"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/goccy/go-json"
)

// Resolver loads the credential bundle for one aggregation run.
type Resolver struct {
	store  Store
	cipher Cipher
}

func NewResolver(store Store, cipher Cipher) *Resolver {
	return &Resolver{store: store, cipher: cipher}
}

// Resolve returns plain credentials, unwrapping the encrypted payload when needed.
// Unwrap failures wrap ErrDecryption.
func (r *Resolver) Resolve(ctx context.Context) (domain.Credentials, error) {
	stored, err := r.store.Get(ctx)
	if err != nil {
		return domain.Credentials{}, err
	}

	if !stored.IsEncrypted() {
		if stored.Credentials == nil {
			return domain.Credentials{}, nil
		}
		return *stored.Credentials, nil
	}

	return r.decrypt(stored.Encrypted)
}

func (r *Resolver) decrypt(payload string) (domain.Credentials, error) {
	if r.cipher == nil {
		return domain.Credentials{}, fmt.Errorf("%w: credentials are encrypted but no cipher is configured", ErrDecryption)
	}

	plaintext, err := r.cipher.Decrypt(payload)
	if err != nil {
		return domain.Credentials{}, err
	}

	var doc document
	if err := json.Unmarshal(plaintext, &doc); err != nil {
		return domain.Credentials{}, fmt.Errorf("%w: decrypted payload is not a credential document: %v", ErrDecryption, err)
	}
	return doc.credentials(), nil
}

// Status reports the connection badge of every provider.
func (r *Resolver) Status(ctx context.Context) (map[domain.ProviderID]domain.CredentialState, error) {
	stored, err := r.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	status := make(map[domain.ProviderID]domain.CredentialState, len(domain.Providers))
	for _, p := range domain.Providers {
		switch {
		case stored.IsEncrypted():
			status[p] = domain.CredentialEncrypted
		case stored.Credentials != nil && stored.Credentials.Configured(p):
			status[p] = domain.CredentialConnected
		default:
			status[p] = domain.CredentialNotConnected
		}
	}
	return status, nil
}
