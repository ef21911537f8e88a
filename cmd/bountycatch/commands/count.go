package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCountCmd(a *app) *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count domains in the database",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.filter()
			if err != nil {
				return err
			}

			svc, done, err := a.service(cmd)
			if err != nil {
				return err
			}
			defer done()

			n, err := svc.Count(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, n)
			return nil
		},
	}

	addFilterFlags(cmd, &ff, "Count")
	return cmd
}
