package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
)

var version = "dev"

// app is the state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	cfg    *config.Config
	logger *applog.Logger
}

// backend opens storage and services. The caller owns the cleanup.
func (a *app) backend(ctx context.Context) *backend.BackendResult {
	return cli.InitBackend(ctx, a.logger, a.cfg, false)
}

func rootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finctl",
		Short: "Operate a fintrack installation",
		Long: `finctl runs maintenance and reporting tasks against the fintrack
database: schema migrations, financial summaries, budget alerts and
dashboard report exports.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			a.cfg, a.logger = cli.Bootstrap(false)
		},
	}

	cmd.AddCommand(migrateCmd(a))
	cmd.AddCommand(summaryCmd(a))
	cmd.AddCommand(alertsCmd(a))
	cmd.AddCommand(exportCmd(a))
	cmd.AddCommand(versionCmd())
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// No configuration is needed to print the version.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "finctl %s\n", version)
		},
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	a := &app{logger: applog.Default()}
	ctx, stop := cli.SignalContext(a.logger)
	defer stop()

	if err := rootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
