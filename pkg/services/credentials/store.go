package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/goccy/go-json"
	"gopkg.in/ini.v1"
)

const (
	sectionAWS       = "aws"
	sectionAzure     = "azure"
	sectionGCP       = "gcp"
	sectionEncrypted = "encrypted"
)

// Stored is what the credential file holds: plain credentials or an encrypted blob.
type Stored struct {
	Credentials *domain.Credentials
	Encrypted   string
}

func (s *Stored) IsEncrypted() bool {
	return s != nil && s.Credentials == nil && s.Encrypted != ""
}

type Store interface {
	Get(ctx context.Context) (*Stored, error)
	Save(ctx context.Context, creds domain.Credentials, cipher Cipher) error
}

type fileStore struct {
	path string
}

// NewFileStore returns an ini-backed store. A missing file means nothing is configured.
func NewFileStore(path string) Store {
	return &fileStore{path: path}
}

func (s *fileStore) Get(_ context.Context) (*Stored, error) {
	cfg, err := ini.Load(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Stored{Credentials: &domain.Credentials{}}, nil
		}
		return nil, fmt.Errorf("unable to load credentials file: %w", err)
	}

	if section, err := cfg.GetSection(sectionEncrypted); err == nil {
		if payload := strings.TrimSpace(section.Key("payload").String()); payload != "" {
			return &Stored{Encrypted: payload}, nil
		}
	}

	creds, err := s.parse(cfg)
	if err != nil {
		return nil, err
	}
	return &Stored{Credentials: creds}, nil
}

func (s *fileStore) parse(cfg *ini.File) (*domain.Credentials, error) {
	aws := cfg.Section(sectionAWS)
	azure := cfg.Section(sectionAzure)
	gcp := cfg.Section(sectionGCP)

	creds := &domain.Credentials{
		AWS: domain.AWSCredentials{
			AccessKeyID:     aws.Key("access_key_id").String(),
			SecretAccessKey: aws.Key("secret_access_key").String(),
			SessionToken:    aws.Key("session_token").String(),
			Region:          aws.Key("region").String(),
		},
		Azure: domain.AzureCredentials{
			TenantID:       azure.Key("tenant_id").String(),
			ClientID:       azure.Key("client_id").String(),
			ClientSecret:   azure.Key("client_secret").String(),
			SubscriptionID: azure.Key("subscription_id").String(),
		},
		GCP: domain.GCPCredentials{
			ServiceAccountJSON: []byte(gcp.Key("service_account_json").String()),
			BillingAccountID:   gcp.Key("billing_account_id").String(),
			BillingTable:       gcp.Key("billing_table").String(),
		},
	}

	if file := strings.TrimSpace(gcp.Key("service_account_file").String()); file != "" && !creds.GCP.Configured() {
		if !filepath.IsAbs(file) {
			file = filepath.Join(filepath.Dir(s.path), file)
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("unable to read GCP service account file: %w", err)
		}
		creds.GCP.ServiceAccountJSON = data
	}

	return creds, nil
}

// Save writes credentials, sealed with cipher when it is non-nil.
func (s *fileStore) Save(_ context.Context, creds domain.Credentials, cipher Cipher) error {
	if !creds.AnyConfigured() {
		return fmt.Errorf("at least one provider's credentials must be filled in")
	}

	cfg := ini.Empty()
	if cipher != nil {
		plaintext, err := json.Marshal(toDocument(creds))
		if err != nil {
			return fmt.Errorf("marshal credentials: %w", err)
		}
		payload, err := cipher.Encrypt(plaintext)
		if err != nil {
			return fmt.Errorf("encrypt credentials: %w", err)
		}
		if _, err := cfg.Section(sectionEncrypted).NewKey("payload", payload); err != nil {
			return err
		}
	} else if err := writePlain(cfg, creds); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := cfg.SaveTo(tmp); err != nil {
		return fmt.Errorf("write credentials file: %w", err)
	}
	if err := os.Chmod(tmp, 0o600); err != nil {
		return fmt.Errorf("restrict credentials file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}

func writePlain(cfg *ini.File, creds domain.Credentials) error {
	serviceAccount := creds.GCP.ServiceAccountJSON
	if len(serviceAccount) > 0 {
		compact, err := compactJSON(serviceAccount)
		if err != nil {
			return fmt.Errorf("GCP service account is not valid JSON: %w", err)
		}
		serviceAccount = compact
	}

	sections := []struct {
		name string
		keys [][2]string
	}{
		{sectionAWS, [][2]string{
			{"access_key_id", creds.AWS.AccessKeyID},
			{"secret_access_key", creds.AWS.SecretAccessKey},
			{"session_token", creds.AWS.SessionToken},
			{"region", creds.AWS.Region},
		}},
		{sectionAzure, [][2]string{
			{"tenant_id", creds.Azure.TenantID},
			{"client_id", creds.Azure.ClientID},
			{"client_secret", creds.Azure.ClientSecret},
			{"subscription_id", creds.Azure.SubscriptionID},
		}},
		{sectionGCP, [][2]string{
			{"service_account_json", string(serviceAccount)},
			{"billing_account_id", creds.GCP.BillingAccountID},
			{"billing_table", creds.GCP.BillingTable},
		}},
	}

	for _, section := range sections {
		sec := cfg.Section(section.name)
		for _, kv := range section.keys {
			if strings.TrimSpace(kv[1]) == "" {
				continue
			}
			if _, err := sec.NewKey(kv[0], strings.TrimSpace(kv[1])); err != nil {
				return fmt.Errorf("write %s.%s: %w", section.name, kv[0], err)
			}
		}
	}
	return nil
}
