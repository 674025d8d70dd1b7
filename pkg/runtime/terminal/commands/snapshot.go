package commands

import (
	"fmt"

	"github.com/de-tools/spend-atlas/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

type RefreshCmd struct {
	provide  Provider
	reporter *export.Reporter
	json     bool
}

func NewRefreshCmd(provide Provider, reporter *export.Reporter) *cobra.Command {
	rc := &RefreshCmd{provide: provide, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one aggregation across all configured providers",
		RunE:  rc.run,
	}
	cmd.Flags().BoolVar(&rc.json, "json", false, "Print the snapshot as JSON")
	return cmd
}

func (rc *RefreshCmd) run(cmd *cobra.Command, _ []string) error {
	return withServices(cmd.Context(), rc.provide, func(svc *Services) error {
		snapshot, err := svc.Runner.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("aggregation failed: %w", err)
		}
		return rc.reporter.JSON(rc.json).Handle(snapshot)
	})
}

type ShowCmd struct {
	provide  Provider
	reporter *export.Reporter
	json     bool
}

func NewShowCmd(provide Provider, reporter *export.Reporter) *cobra.Command {
	sc := &ShowCmd{provide: provide, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the latest persisted snapshot",
		RunE:  sc.run,
	}
	cmd.Flags().BoolVar(&sc.json, "json", false, "Print the snapshot as JSON")
	return cmd
}

func (sc *ShowCmd) run(cmd *cobra.Command, _ []string) error {
	return withServices(cmd.Context(), sc.provide, func(svc *Services) error {
		snapshot, err := svc.Snapshots.Latest(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load snapshot: %w", err)
		}
		return sc.reporter.JSON(sc.json).Handle(snapshot)
	})
}
