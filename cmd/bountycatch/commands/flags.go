package commands

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/bountycatch/internal/core"
)

// filterFlags holds the --match and --regex flags shared by the read and
// remove commands.
type filterFlags struct {
	Match string
	Regex string
}

func addFilterFlags(cmd *cobra.Command, flags *filterFlags, verb string) {
	cmd.Flags().StringVar(&flags.Match, "match", "", verb+" domains containing this substring")
	cmd.Flags().StringVar(&flags.Regex, "regex", "", verb+" domains matching this regular expression")
}

// filter compiles the flags. A bad pattern is a usage error.
func (f filterFlags) filter() (core.Filter, error) {
	flt, err := core.NewFilter(f.Match, f.Regex)
	if err != nil {
		return core.Filter{}, &UsageError{err}
	}
	return flt, nil
}
