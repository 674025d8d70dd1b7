package terminal

import (
	"context"
	"io"
	"os"

	"github.com/de-tools/spend-atlas/pkg/runtime/terminal/commands"
	"github.com/de-tools/spend-atlas/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	provide       commands.Provider
	reporter      *export.Reporter
	text          *Reporter
	output        io.Writer
	passphraseEnv string
	configPath    *string
	rootCmd       *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	// Services receives the value of the --config flag.
	Services      func(ctx context.Context, configPath string) (*commands.Services, error)
	Output        io.Writer
	PassphraseEnv string
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{
		reporter:      export.NewReporter(opts.Output),
		text:          NewReporter(opts.Output),
		output:        opts.Output,
		passphraseEnv: opts.PassphraseEnv,
		configPath:    new(string),
	}
	cli.provide = func(ctx context.Context) (*commands.Services, error) {
		return opts.Services(ctx, *cli.configPath)
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "spend-atlas",
		Short:         "Multi-cloud spend aggregator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(cli.output)
	cmd.PersistentFlags().StringVarP(cli.configPath, "config", "c", "", "Path to the spend-atlas config file")

	cmd.AddCommand(commands.NewRefreshCmd(cli.provide, cli.reporter))
	cmd.AddCommand(commands.NewShowCmd(cli.provide, cli.reporter))
	cmd.AddCommand(commands.NewRunsCmd(cli.provide, cli.text))
	cmd.AddCommand(commands.NewCredsCmd(cli.provide, cli.text, cli.passphraseEnv))

	return cmd
}
