package commands

import (
	"fmt"
	"os"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/services/credentials"
	"github.com/spf13/cobra"
)

type StatusReporter interface {
	CredentialStatus(status map[domain.ProviderID]domain.CredentialState) error
}

type CredsCmd struct {
	provide       Provider
	reporter      StatusReporter
	passphraseEnv string
}

func NewCredsCmd(provide Provider, reporter StatusReporter, passphraseEnv string) *cobra.Command {
	cc := &CredsCmd{provide: provide, reporter: reporter, passphraseEnv: passphraseEnv}
	cmd := &cobra.Command{
		Use:   "creds",
		Short: "Inspect and protect provider credentials",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which providers have credentials",
		RunE:  cc.status,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "encrypt",
		Short: fmt.Sprintf("Re-save plain credentials encrypted with the passphrase from $%s", passphraseEnv),
		RunE:  cc.encrypt,
	})
	return cmd
}

func (cc *CredsCmd) status(cmd *cobra.Command, _ []string) error {
	return withServices(cmd.Context(), cc.provide, func(svc *Services) error {
		status, err := svc.Credentials.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read credentials: %w", err)
		}
		return cc.reporter.CredentialStatus(status)
	})
}

func (cc *CredsCmd) encrypt(cmd *cobra.Command, _ []string) error {
	passphrase := os.Getenv(cc.passphraseEnv)
	if passphrase == "" {
		return fmt.Errorf("$%s must be set to encrypt credentials", cc.passphraseEnv)
	}

	return withServices(cmd.Context(), cc.provide, func(svc *Services) error {
		stored, err := svc.CredentialStore.Get(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read credentials: %w", err)
		}
		if stored.IsEncrypted() {
			return fmt.Errorf("credentials are already encrypted")
		}
		if stored.Credentials == nil || !stored.Credentials.AnyConfigured() {
			return fmt.Errorf("no credentials to encrypt")
		}

		if err := svc.CredentialStore.Save(cmd.Context(), *stored.Credentials, credentials.NewPassphraseCipher(passphrase)); err != nil {
			return fmt.Errorf("failed to save encrypted credentials: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), "credentials encrypted")
		return err
	})
}
