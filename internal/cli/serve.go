package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/api"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/store"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generator catalog and batch history over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.logger.Info("mathsheets: starting",
				"listen_addr", a.cfg.ListenAddr,
				"history_db", a.cfg.HistoryDB,
			)

			// A nil interface, not a nil *SQLiteStore, disables history routes.
			var st store.Store
			if a.cfg.HistoryDB != "" {
				db, err := store.NewSQLiteStore(a.cfg.HistoryDB)
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
				defer db.Close()
				st = db
			}

			return api.NewServer(a.cfg.ListenAddr, st, a.factory, a.logger).Run(cmd.Context())
		},
	}
	cmd.Flags().String("listen", "", "listen address (default :8080)")
	return cmd
}
