package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/bountycatch/internal/core"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		ff     filterFlags
		file   string
		format string
		sort   bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export domains to a file",
		Long: `Export domains to a file as plain text (one per line) or JSON.

The JSON document has the fields domain_count, exported_at and domains.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return &UsageError{errors.New(`required flag "file" not set`)}
			}
			if err := core.ValidateFormat(format); err != nil {
				return &UsageError{err}
			}
			f, err := ff.filter()
			if err != nil {
				return err
			}

			svc, done, err := a.service(cmd)
			if err != nil {
				return err
			}
			defer done()

			n, err := svc.Export(cmd.Context(), file, format, core.QueryOptions{Filter: f, Sort: sort})
			if err != nil {
				return err
			}
			fmt.Fprintf(a.status(), "Exported %d domains to %s (%s format)\n", n, file, format)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Output file (required)")
	cmd.Flags().StringVar(&format, "format", core.FormatText, "Export format: text or json")
	addFilterFlags(cmd, &ff, "Export")
	cmd.Flags().BoolVar(&sort, "sort", false, "Sort domains before exporting")
	return cmd
}
