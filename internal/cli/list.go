package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// listEntry represents a registered generator for display.
type listEntry struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Signature   string `json:"signature"`
	ClassName   string `json:"class_name"`
	ConfigKey   string `json:"config_key"`
	Description string `json:"description,omitempty"`
}

func newListCmd(a *app) *cobra.Command {
	var (
		category   string
		categories bool
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the registered generators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if categories {
				return a.printJSONOrLines(asJSON, a.factory.ListCategories())
			}
			var entries []listEntry
			for _, name := range a.factory.ListNames(category) {
				d, ok := a.factory.Metadata(name)
				if !ok {
					continue
				}
				entries = append(entries, listEntry{
					Name:        d.Name,
					Category:    d.Category,
					Signature:   string(d.Signature()),
					ClassName:   d.ClassName,
					ConfigKey:   d.ConfigKey,
					Description: d.Description,
				})
			}
			if asJSON {
				if entries == nil {
					entries = []listEntry{}
				}
				return a.printJSON(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintf(a.stdout, "No generators in category %q.\n", category)
				return nil
			}
			w := tabwriter.NewWriter(a.stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "NAME\tCATEGORY\tSIGNATURE\tCLASS\tDESCRIPTION")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Name, e.Category, e.Signature, e.ClassName, e.Description)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list generators in this category")
	cmd.Flags().BoolVar(&categories, "categories", false, "list categories instead of generators")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, string(data))
	return err
}

func (a *app) printJSONOrLines(asJSON bool, lines []string) error {
	if asJSON {
		return a.printJSON(lines)
	}
	for _, l := range lines {
		fmt.Fprintln(a.stdout, l)
	}
	return nil
}
