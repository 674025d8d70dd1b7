package main

import (
	"context"
	"fmt"
	"os"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/runtime/bootstrap"
	"github.com/de-tools/spend-atlas/pkg/runtime/terminal"
	"github.com/de-tools/spend-atlas/pkg/runtime/terminal/commands"
	"github.com/de-tools/spend-atlas/pkg/services/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	cli := terminal.NewCLI(terminal.Options{
		Services:      services,
		Output:        os.Stdout,
		PassphraseEnv: bootstrap.PassphraseEnv,
	})

	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func services(ctx context.Context, configPath string) (*commands.Services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := bootstrap.NewLogger(cfg.LogLevel(), zerolog.ConsoleWriter{Out: os.Stderr})
	app, err := bootstrap.New(logger.WithContext(ctx), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start spend-atlas: %w", err)
	}

	return &commands.Services{
		Runner:          runner{app: app, ctx: logger.WithContext},
		Snapshots:       app.Snapshots,
		Runs:            app.Runs,
		Credentials:     app.Credentials,
		CredentialStore: app.CredentialStore,
		Close:           app.Close,
	}, nil
}

// runner attaches the configured logger to the command context.
type runner struct {
	app *bootstrap.App
	ctx func(context.Context) context.Context
}

func (r runner) Run(ctx context.Context) (*domain.Snapshot, error) {
	return r.app.Aggregator.Run(r.ctx(ctx))
}
