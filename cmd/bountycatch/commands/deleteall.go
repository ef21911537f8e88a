package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/bountycatch/internal/core"
)

func newDeleteAllCmd(a *app) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete all domains",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, done, err := a.service(cmd)
			if err != nil {
				return err
			}
			defer done()

			deleted, err := svc.DeleteAll(cmd.Context(), confirmed, a.stdin, a.stdout)
			if errors.Is(err, core.ErrCancelled) {
				fmt.Fprintln(a.status(), "Delete operation cancelled")
				return nil
			}
			if err != nil {
				return err
			}

			if !deleted {
				fmt.Fprintln(a.status(), "No domains existed in database")
				return nil
			}
			fmt.Fprintln(a.stdout, "All domains deleted successfully")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "confirm", false, "Skip confirmation prompt")
	return cmd
}
