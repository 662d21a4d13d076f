// Package cmd defines the CLI commands for the wrestlebot executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	dryRun  bool
)

// appKeyType is the key for storing the App in the command context.
type appKeyType string

const appKey appKeyType = "app"

// appFactory builds the application container. A variable so tests can
// swap in a stub.
var appFactory = newApp

// newRootCmd creates and configures the root command. The application
// container is built after flag parsing and injected through the context,
// then torn down when the command finishes.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wrestlebot",
		Short: "Scrapes wrestling data sources and imports them into the catalog.",
		Long: `wrestlebot is the ingestion tool for the open wrestling database.
It pulls wrestlers, promotions, events, games, books, podcasts, and
specials from public sources, staying inside each source's rate limits
and robots.txt rules, and deduplicates records before they land.`,

		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFactory(cmd.Context(), cfgFile, dryRun)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default uses built-in source settings)")
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "import into a throwaway in-memory store")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newErrorsCmd())

	return cmd
}

// withTeardown wraps a RunE so the App is closed whether or not the run
// succeeds. cobra skips the PersistentPostRun hooks when RunE errors, which
// would leave the badger state store open.
func withTeardown(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		defer func() {
			if a, ok := cmd.Context().Value(appKey).(App); ok && a != nil {
				a.Close()
			}
		}()
		return run(cmd, args)
	}
}

func resolveApp(ctx context.Context) (App, error) {
	a, ok := ctx.Value(appKey).(App)
	if !ok || a == nil {
		return nil, errors.New("application services not initialized")
	}
	return a, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
