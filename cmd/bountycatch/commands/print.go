package commands

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/bountycatch/internal/core"
)

func newPrintCmd(a *app) *cobra.Command {
	var (
		ff   filterFlags
		sort bool
	)

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print domains, optionally filtered",
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

			opts := core.QueryOptions{Filter: f, Sort: sort}
			out := bufio.NewWriter(a.stdout)
			n, err := svc.Print(cmd.Context(), out, opts)
			if ferr := out.Flush(); err == nil {
				err = ferr
			}
			if err != nil {
				return err
			}
			// A plain dump of an empty table prints nothing.
			if n == 0 && (!f.IsZero() || sort) {
				fmt.Fprintln(a.status(), "No domains found in database")
			}
			return nil
		},
	}

	addFilterFlags(cmd, &ff, "Print")
	cmd.Flags().BoolVar(&sort, "sort", false, "Sort domains before printing")
	return cmd
}
