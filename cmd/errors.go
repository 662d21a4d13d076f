package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newErrorsCmd() *cobra.Command {
	var (
		source string
		clear  bool
	)

	cmd := &cobra.Command{
		Use:   "errors",
		Short: "Shows or clears the recent fetch error feed",
		Long: `Prints the rolling feed of recent fetch errors, newest last,
optionally filtered to one source. With --clear it drops the matching
entries instead.`,

		RunE: withTeardown(func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if clear {
				if err := a.Reporter().Clear(source); err != nil {
					return fmt.Errorf("clear error feed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "error feed cleared")
				return nil
			}

			errs, err := a.Reporter().Errors(source)
			if err != nil {
				return fmt.Errorf("read error feed: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(errs) == 0 {
				fmt.Fprintln(out, "no recent errors")
				return nil
			}
			for _, e := range errs {
				fmt.Fprintf(out, "%s  %-12s %-16s %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.Source, e.Kind, e.Message)
				if e.StatusCode != 0 {
					fmt.Fprintf(out, " (status %d)", e.StatusCode)
				}
				fmt.Fprintf(out, "\n    %s\n", e.Endpoint)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&source, "source", "", "only errors from this source")
	cmd.Flags().BoolVar(&clear, "clear", false, "drop the matching errors")

	return cmd
}
