package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/bountycatch/internal/core"
)

func newAddCmd(a *app) *cobra.Command {
	var req core.AddRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add domains from a file or stdin",
		Long: `Add domains from a file, or from stdin when --file is omitted.

Lines that are not valid domain names are skipped unless --no-validate is set.
Domains already in the database are counted as duplicates.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.service(cmd)
			if err != nil {
				return err
			}
			defer done()

			stats, err := svc.Add(cmd.Context(), req)
			if err != nil {
				return err
			}
			printAddSummary(a, stats)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Input, "file", "f", "", "File containing domains (default: stdin)")
	cmd.Flags().BoolVar(&req.NoValidate, "no-validate", false, "Skip domain validation")
	return cmd
}

func printAddSummary(a *app, stats core.RunStats) {
	w := a.status()
	pct := 0.0
	if valid := stats.Valid(); valid > 0 {
		pct = float64(stats.Duplicates) / float64(valid) * 100
	}
	fmt.Fprintf(w, "Processed %d domains: %d new, %d duplicates (%.2f%%) in %.1fs\n",
		stats.Total, stats.Inserted, stats.Duplicates, pct, stats.Duration.Seconds())
	if stats.Invalid > 0 {
		fmt.Fprintf(w, "Skipped %d invalid domains\n", stats.Invalid)
	}
}
