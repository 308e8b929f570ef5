package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
)

func newVersionCmd(a *app) *cobra.Command {
	var short, asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case short:
				fmt.Fprintln(a.stdout, a.info.Version)
				return nil
			case asJSON:
				return a.printJSON(a.info)
			}
			fmt.Fprintf(a.stdout, "mathsheets version %s (commit: %s, built: %s, plugin api: %s)\n",
				a.info.Version, a.info.Commit, a.info.Date, plugin.APIVersion)
			return nil
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "print version number only")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print version info as JSON")
	return cmd
}
