package cli

import (
	"github.com/spf13/cobra"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/config"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/render"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/worker"
)

// newWorkerCmd is the child side of generate. It reads no config file and no
// flags: the parent has already resolved both, and passes only the logging
// settings through the environment.
func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:    "worker",
		Short:  "Run one work item from stdin (started by generate)",
		Hidden: true,
		Args:   cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			a.logger = config.LoggerFromEnv(a.stderr)
			return a.registerGenerators()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return worker.ServeProcess(cmd.Context(), a.reg, render.NewLaTeX(), a.logger)
		},
	}
}
