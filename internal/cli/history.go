package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/model"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/store"
)

var errHistoryDisabled = errors.New("history is not enabled (set history_db or --history-db)")

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history [batch-id]",
		Short: "Show recorded batches, or the items of one batch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.HistoryDB == "" {
				return errHistoryDisabled
			}
			st, err := store.NewSQLiteStore(a.cfg.HistoryDB)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer st.Close()

			if len(args) == 1 {
				return a.showBatch(cmd, st, args[0], asJSON)
			}

			batches, total, err := st.ListBatches(cmd.Context(), limit, 0)
			if err != nil {
				return err
			}
			if asJSON {
				return a.printJSON(batches)
			}
			if total == 0 {
				fmt.Fprintln(a.stdout, "No batches recorded yet.")
				return nil
			}
			w := tabwriter.NewWriter(a.stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "ID\tTARGET\tSTARTED\tSUCCEEDED\tATTEMPTED\tELAPSED")
			for _, b := range batches {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\n",
					b.ID, b.Target, b.StartedAt.Local().Format(time.DateTime), b.Succeeded, b.Attempted, elapsedMS(b.ElapsedMS))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if total > len(batches) {
				fmt.Fprintf(a.stdout, "(%d of %d batches)\n", len(batches), total)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of batches to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output in JSON format")
	return cmd
}

func (a *app) showBatch(cmd *cobra.Command, st store.Store, id string, asJSON bool) error {
	b, err := st.GetBatch(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("batch %s: %w", id, err)
	}
	items, err := st.ListItems(cmd.Context(), id)
	if err != nil {
		return err
	}
	if asJSON {
		return a.printJSON(struct {
			*model.Batch
			Items []model.ItemRecord `json:"items"`
		}{b, items})
	}

	fmt.Fprintf(a.stdout, "Batch %s (%s): %d/%d succeeded in %s\n",
		b.ID, b.Target, b.Succeeded, b.Attempted, elapsedMS(b.ElapsedMS))
	w := tabwriter.NewWriter(a.stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "#\tGROUP\tLABEL\tSTATUS\tDURATION\tMESSAGE")
	for _, it := range items {
		status := it.Status
		if it.Skipped {
			status += " (skipped)"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			it.Seq+1, it.Group, it.Label, status, elapsedMS(&it.DurationMS), it.Message)
	}
	return w.Flush()
}

func elapsedMS(ms *int) string {
	if ms == nil {
		return "-"
	}
	return formatElapsed(time.Duration(*ms) * time.Millisecond)
}
