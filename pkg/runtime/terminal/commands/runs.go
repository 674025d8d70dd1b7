package commands

import (
	"context"
	"fmt"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/spf13/cobra"
)

type RunsReporter interface {
	Runs(runs []domain.RunRecord) error
}

type RunsCmd struct {
	provide  Provider
	reporter RunsReporter
	limit    int
}

func NewRunsCmd(provide Provider, reporter RunsReporter) *cobra.Command {
	rc := &RunsCmd{provide: provide, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent aggregation runs",
		RunE:  rc.run,
	}
	cmd.Flags().IntVar(&rc.limit, "limit", 20, "Number of runs to show")
	return cmd
}

func (rc *RunsCmd) run(cmd *cobra.Command, _ []string) error {
	if rc.limit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}
	return withServices(cmd.Context(), rc.provide, func(svc *Services) error {
		return rc.list(cmd.Context(), svc)
	})
}

func (rc *RunsCmd) list(ctx context.Context, svc *Services) error {
	runs, err := svc.Runs.List(ctx, rc.limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	return rc.reporter.Runs(runs)
}
