package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/notify"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [batch-id]",
		Short: "Print progress events published by running batches",
		Long: `Watch subscribes to the progress events of one batch, returning after its
summary, or of every batch until interrupted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.NATSURL == "" {
				return errors.New("progress events are not enabled (set nats_url or --nats-url)")
			}
			var batchID string
			if len(args) == 1 {
				batchID = args[0]
			}

			nc, err := nats.Connect(a.cfg.NATSURL, nats.Name("mathsheets-watch"))
			if err != nil {
				return fmt.Errorf("nats connect: %w", err)
			}
			defer nc.Close()

			err = notify.Watch(cmd.Context(), nc, batchID, func(ev notify.Event) {
				fmt.Fprintln(a.stdout, formatEvent(ev))
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func formatEvent(ev notify.Event) string {
	switch {
	case ev.Item != nil:
		it := ev.Item
		line := fmt.Sprintf("%s [%d] %s / %s: %s", ev.BatchID, it.Index+1, it.Group, it.Label, it.Status)
		if it.Skipped {
			line += " (skipped)"
		}
		if it.Reason != "" {
			line += ": " + it.Reason
		}
		return line
	case ev.Done != nil:
		d := ev.Done
		return fmt.Sprintf("%s done: %d/%d succeeded, %d failed in %dms",
			ev.BatchID, d.Succeeded, d.Attempted, d.Failed, d.ElapsedMS)
	}
	return ev.BatchID + " " + ev.Kind
}
