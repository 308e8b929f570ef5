package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDiscoverCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "discover [group...]",
		Short: "Scan generator folders and report what would be scheduled",
		Long: `Discover runs the same scan as generate without starting any worker. Files
that fail to load or match no registered generator are listed as warnings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := a.cfg.SelectGroups(args)
			if err != nil {
				return err
			}
			scans := a.scanGroups(groups)
			if asJSON {
				return a.printJSON(scans)
			}

			w := tabwriter.NewWriter(a.stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "GROUP\tUNIT\tNAME\tGENERATOR\tCLASS\tMODULE")
			found := 0
			for _, gs := range scans {
				if gs.Result == nil {
					continue
				}
				for _, g := range gs.Result.Generators {
					found++
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						gs.Group.Key, g.GroupLabel, g.DisplayName, g.Descriptor.Name, g.ClassName, g.ModuleKey)
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}

			warnings := 0
			for _, gs := range scans {
				if gs.Err != "" {
					warnings++
					fmt.Fprintf(a.stdout, "warning: %s: %s\n", gs.Group.Key, gs.Err)
					continue
				}
				for _, wn := range gs.Result.Warnings {
					warnings++
					fmt.Fprintf(a.stdout, "warning: %s\n", wn)
				}
			}
			fmt.Fprintf(a.stdout, "%d generators, %d warnings\n", found, warnings)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}
