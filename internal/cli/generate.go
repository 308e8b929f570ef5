package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/config"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/discovery"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/notify"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/scheduler"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/store"
)

type generateOptions struct {
	grades     []string
	difficulty string
	json       bool
}

func newGenerateCmd(a *app) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Discover generators and render one worksheet per generator",
		Long: `Generate scans <generators-dir>/<group>/Unit*/ for generator manifests,
plans one worksheet per generator and renders each in its own worker process.
The exit code is 2 when any worksheet failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runGenerate(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&opts.grades, "grade", "g", nil, `groups to generate, or "all" (default all)`)
	f.StringVar(&opts.difficulty, "difficulty", "", "difficulty for leveled generators, overriding group defaults")
	f.BoolVar(&opts.json, "json", false, "print the batch report as JSON")
	f.StringP("output", "o", "", "output directory (default worksheets)")
	f.IntP("problems", "p", 0, "problems per worksheet (default 8)")
	f.Duration("timeout", 0, "time budget per worksheet (default 6s)")
	f.IntP("workers", "j", 0, "worksheets rendered concurrently (default 1)")
	f.Bool("answer-key", true, "append an answer key page")
	f.Bool("skip-existing", false, "skip worksheets whose output file already exists")
	return cmd
}

// groupScan is the discovery result of one configured group.
type groupScan struct {
	Group  config.Group      `json:"group"`
	Dir    string            `json:"dir"`
	Result *discovery.Result `json:"result,omitempty"`
	Err    string            `json:"error,omitempty"`
}

// scanGroups discovers the generators of each group. A group whose
// directory cannot be read is reported and contributes nothing.
func (a *app) scanGroups(groups []config.Group) []groupScan {
	d := discovery.New(a.reg, discovery.WithLogger(a.logger))
	scans := make([]groupScan, 0, len(groups))
	for _, g := range groups {
		dir := filepath.Join(a.cfg.GeneratorsDir, g.Path)
		gs := groupScan{Group: g, Dir: dir}
		res, err := d.Scan(dir)
		if err != nil {
			a.logger.Warn("group directory unreadable", "group", g.Key, "dir", dir, "error", err)
			gs.Err = err.Error()
		} else {
			gs.Result = res
		}
		scans = append(scans, gs)
	}
	return scans
}

func (a *app) runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	override, err := plugin.ParseDifficulty(opts.difficulty)
	if err != nil {
		return err
	}
	groups, err := a.cfg.SelectGroups(opts.grades)
	if err != nil {
		return err
	}

	scans := a.scanGroups(groups)
	planGroups := make([]scheduler.Group, 0, len(scans))
	for _, gs := range scans {
		if gs.Err != "" {
			fmt.Fprintf(a.stderr, "warning: %s: %s\n", gs.Group.Key, gs.Err)
			continue
		}
		for _, w := range gs.Result.Warnings {
			fmt.Fprintf(a.stderr, "warning: %s\n", w)
		}
		// Validated by config.Load.
		diff, _ := plugin.ParseDifficulty(gs.Group.Difficulty)
		planGroups = append(planGroups, scheduler.Group{
			Key:        gs.Group.Key,
			Title:      gs.Group.Title,
			Difficulty: diff,
			Generators: gs.Result.Generators,
		})
	}

	items := scheduler.Plan(planGroups, scheduler.PlanOptions{
		OutputDir:        a.cfg.OutputDir,
		ProblemCount:     a.cfg.Problems,
		IncludeAnswerKey: a.cfg.AnswerKey,
		Difficulty:       override,
		Logger:           a.logger,
	})
	if len(items) == 0 {
		fmt.Fprintln(a.stdout, "No generators found.")
		return nil
	}

	runner, err := scheduler.NewProcessRunner(nil,
		scheduler.WithEnv(a.cfg.LogEnv()...),
		scheduler.WithProcessLogger(a.logger),
	)
	if err != nil {
		return err
	}

	var hooks []scheduler.Hooks
	if !opts.json {
		hooks = append(hooks, newProgress(a.stdout, len(items)).Hooks())
	}
	target := strings.Join(keysOf(groups), ",")
	if a.cfg.HistoryDB != "" {
		st, err := store.NewSQLiteStore(a.cfg.HistoryDB)
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer st.Close()
		hooks = append(hooks, store.NewRecorder(st, target, a.logger).Hooks())
	}
	if a.cfg.NATSURL != "" {
		n, err := notify.Connect(a.cfg.NATSURL, a.logger)
		if err != nil {
			// Progress events are optional; the batch still runs.
			a.logger.Warn("progress events disabled", "error", err)
		} else {
			defer n.Close()
			hooks = append(hooks, n.Hooks())
		}
	}

	sched := scheduler.New(scheduler.Config{
		Runner:       runner,
		Budget:       a.cfg.Timeout,
		Workers:      a.cfg.Workers,
		SkipExisting: a.cfg.SkipExisting,
		Logger:       a.logger,
		Hooks:        scheduler.ChainHooks(hooks...),
	})

	report, runErr := sched.Run(cmd.Context(), items)
	if report != nil {
		if opts.json {
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
		} else {
			titles := make(map[string]string, len(groups))
			for _, g := range groups {
				titles[g.Key] = g.Title
			}
			if err := printReport(a.stdout, report, titles); err != nil {
				return err
			}
		}
	}
	if runErr != nil {
		return runErr
	}
	if report.HasFailures() {
		return ErrBatchFailures
	}
	return nil
}

func keysOf(groups []config.Group) []string {
	keys := make([]string, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
	}
	return keys
}
