package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/bountycatch/internal/core"
)

func newRemoveCmd(a *app) *cobra.Command {
	var (
		ff  filterFlags
		req core.RemoveRequest
	)

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove domains from the database",
		Long: `Remove domains from the database.

Exactly one mode runs, checked in this order:
  --domain         remove a single domain
  --match/--regex  remove every stored domain the filter accepts
  --file           remove every domain listed in the file (default: stdin)`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("domain") && strings.TrimSpace(req.Domain) == "" {
				return &UsageError{errors.New("--domain must not be empty")}
			}
			f, err := ff.filter()
			if err != nil {
				return err
			}
			req.Filter = f

			svc, done, err := a.service(cmd)
			if err != nil {
				return err
			}
			defer done()

			stats, err := svc.Remove(cmd.Context(), req)
			if err != nil {
				return err
			}

			switch {
			case req.Domain != "":
				if stats.Removed > 0 {
					fmt.Fprintf(a.stdout, "Domain '%s' removed from database\n", req.Domain)
				} else {
					fmt.Fprintf(a.status(), "Domain '%s' not found in database\n", req.Domain)
				}
			case !req.Filter.IsZero():
				fmt.Fprintf(a.status(), "Removed %d domains using filter\n", stats.Removed)
			default:
				fmt.Fprintf(a.status(), "Processed %d domains: %d removed, %d not found in %.1fs\n",
					stats.Total, stats.Removed, stats.NotFound, stats.Duration.Seconds())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Input, "file", "f", "", "File containing domains to remove (default: stdin)")
	cmd.Flags().StringVarP(&req.Domain, "domain", "d", "", "Single domain to remove")
	addFilterFlags(cmd, &ff, "Remove")
	return cmd
}
