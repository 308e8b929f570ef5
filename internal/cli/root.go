// Package cli implements the mathsheets command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/catalog"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/config"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/factory"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/registry"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitFailures = 2
)

// ErrBatchFailures reports a batch that completed with at least one failed
// item.
var ErrBatchFailures = errors.New("batch completed with failures")

// BuildInfo is injected via ldflags at build time.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// flagKeys binds command-line flags to configuration keys. A flag only
// overrides the configuration when it is set explicitly.
var flagKeys = map[string]string{
	"log-level":      config.KeyLogLevel,
	"log-format":     config.KeyLogFormat,
	"generators-dir": config.KeyGeneratorsDir,
	"history-db":     config.KeyHistoryDB,
	"nats-url":       config.KeyNATSURL,
	"output":         config.KeyOutputDir,
	"problems":       config.KeyProblems,
	"timeout":        config.KeyTimeout,
	"workers":        config.KeyWorkers,
	"answer-key":     config.KeyAnswerKey,
	"skip-existing":  config.KeySkipExisting,
	"listen":         config.KeyListenAddr,
}

// app holds the state shared by every command of one invocation.
type app struct {
	info   BuildInfo
	stdout io.Writer
	stderr io.Writer

	configFile string
	envFile    string

	cfg     config.Config
	logger  *slog.Logger
	reg     *registry.Registry
	factory *factory.Factory
}

// Execute runs the command line against the process arguments and returns
// the exit code.
func Execute(ctx context.Context, info BuildInfo) int {
	return Run(ctx, os.Args[1:], os.Stdout, os.Stderr, info)
}

// Run executes args and maps the outcome to an exit code: ExitFailures when
// a batch finished with failed items, ExitError for any other error.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer, info BuildInfo) int {
	a := &app{info: info, stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrBatchFailures):
		return ExitFailures
	default:
		fmt.Fprintln(stderr, "Error:", err)
		return ExitError
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "mathsheets",
		Short: "Generate math worksheets from discovered generator plugins",
		Long: `mathsheets discovers generator manifests in unit folders, plans one work
item per generator and runs each item in an isolated worker process with a
time budget, then reports per-group and overall results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default ./mathsheets.yaml when present)")
	pf.StringVar(&a.envFile, "env-file", "", "dotenv file to load (default ./.env when present)")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("log-format", "", "log format: json or text")
	pf.String("generators-dir", "", "root directory holding one folder per group")
	pf.String("history-db", "", "SQLite file recording batch history")
	pf.String("nats-url", "", "NATS server receiving progress events")

	root.AddCommand(
		newGenerateCmd(a),
		newListCmd(a),
		newDiscoverCmd(a),
		newHistoryCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newWorkerCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup loads configuration, builds the logger and registers the built-in
// generators.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	v, err := config.New(a.configFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind --%s: %w", name, err)
			}
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = config.NewLogger(a.stderr, cfg.LogLevel, cfg.LogFormat)
	return a.registerGenerators()
}

func (a *app) registerGenerators() error {
	a.reg = registry.New()
	if err := catalog.RegisterAll(a.reg); err != nil {
		return err
	}
	a.factory = factory.New(a.reg, a.logger)
	return nil
}
