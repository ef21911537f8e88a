package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRepairCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Deduplicate the table and rebuild its primary key and index",
		Long: `Repair restores a table left without its primary key by an interrupted
or failed bulk add. Duplicate rows are removed, then the primary key and the
pattern index are rebuilt. Running it on a healthy table changes nothing.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.service(cmd)
			if err != nil {
				return err
			}
			defer done()

			removed, err := svc.Repair(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Repair complete: %d duplicate rows removed\n", removed)
			return nil
		},
	}
}
