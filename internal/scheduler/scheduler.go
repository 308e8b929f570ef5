package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/model"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/render"
)

// DefaultBudget is the per-item time budget when none is configured.
const DefaultBudget = 6 * time.Second

// ErrSpawn marks a failure to start a worker process at all. It aborts the
// batch, unlike per-item failures.
var ErrSpawn = errors.New("spawn worker")

// Runner executes one work item to a terminal Outcome within budget. A
// non-nil error means the item could not be run at all (ErrSpawn) or the
// batch context ended; per-item failures are reported through the Outcome.
type Runner interface {
	Run(ctx context.Context, item WorkItem, budget time.Duration) (Outcome, error)
}

// Hooks observe batch progress. Every hook is optional. In pool mode item
// hooks may be called concurrently.
type Hooks struct {
	OnBatchStart func(batchID string, items []WorkItem)
	OnItemStart  func(item WorkItem)
	OnItemDone   func(res ItemResult)
	OnBatchDone  func(report *BatchReport)
}

// ChainHooks combines several Hooks; each hook point calls the non-nil
// functions in argument order.
func ChainHooks(hooks ...Hooks) Hooks {
	var out Hooks
	for _, h := range hooks {
		if f := h.OnBatchStart; f != nil {
			prev := out.OnBatchStart
			out.OnBatchStart = func(id string, items []WorkItem) {
				if prev != nil {
					prev(id, items)
				}
				f(id, items)
			}
		}
		if f := h.OnItemStart; f != nil {
			prev := out.OnItemStart
			out.OnItemStart = func(item WorkItem) {
				if prev != nil {
					prev(item)
				}
				f(item)
			}
		}
		if f := h.OnItemDone; f != nil {
			prev := out.OnItemDone
			out.OnItemDone = func(res ItemResult) {
				if prev != nil {
					prev(res)
				}
				f(res)
			}
		}
		if f := h.OnBatchDone; f != nil {
			prev := out.OnBatchDone
			out.OnBatchDone = func(report *BatchReport) {
				if prev != nil {
					prev(report)
				}
				f(report)
			}
		}
	}
	return out
}

// Config configures a Scheduler.
type Config struct {
	Runner       Runner
	Budget       time.Duration
	Workers      int
	SkipExisting bool
	Logger       *slog.Logger
	Hooks        Hooks
}

// Scheduler runs batches of work items.
type Scheduler struct {
	runner       Runner
	budget       time.Duration
	workers      int
	skipExisting bool
	logger       *slog.Logger
	hooks        Hooks
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	s := &Scheduler{
		runner:       cfg.Runner,
		budget:       cfg.Budget,
		workers:      cfg.Workers,
		skipExisting: cfg.SkipExisting,
		logger:       cfg.Logger,
		hooks:        cfg.Hooks,
	}
	if s.budget <= 0 {
		s.budget = DefaultBudget
	}
	if s.workers < 1 {
		s.workers = 1
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Run executes every item and returns the aggregated report. Individual
// item failures never produce an error. A spawn failure or a cancelled
// context stops the batch; the report then covers only the items that
// reached a terminal outcome and the error wraps the cause.
func (s *Scheduler) Run(ctx context.Context, items []WorkItem) (*BatchReport, error) {
	batchID := model.NewID()
	start := time.Now()
	logger := s.logger.With("batch_id", batchID)
	logger.Info("batch started", "items", len(items), "workers", s.workers, "budget_ms", s.budget.Milliseconds())
	if s.hooks.OnBatchStart != nil {
		s.hooks.OnBatchStart(batchID, items)
	}

	results := make([]ItemResult, len(items))
	done := make([]bool, len(items))

	var runErr error
	if s.workers == 1 {
		for i, item := range items {
			res, err := s.runItem(ctx, logger, item)
			if err != nil {
				runErr = err
				break
			}
			results[i], done[i] = res, true
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.workers)
		for i, item := range items {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				res, err := s.runItem(gctx, logger, item)
				if err != nil {
					return err
				}
				// Each goroutine owns a distinct index.
				results[i], done[i] = res, true
				return nil
			})
		}
		runErr = g.Wait()
	}

	finished := make([]ItemResult, 0, len(items))
	for i := range results {
		if done[i] {
			finished = append(finished, results[i])
		}
	}
	report := buildReport(batchID, start, time.Since(start), finished)

	batchDuration.Observe(report.Elapsed.Seconds())
	switch {
	case runErr != nil:
		batchesTotal.WithLabelValues(batchAborted).Inc()
	case report.HasFailures():
		batchesTotal.WithLabelValues(batchFailures).Inc()
	default:
		batchesTotal.WithLabelValues(batchClean).Inc()
	}

	logger.Info("batch finished",
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"failed", len(report.Failures),
		"elapsed_ms", report.Elapsed.Milliseconds(),
	)
	if s.hooks.OnBatchDone != nil {
		s.hooks.OnBatchDone(report)
	}

	if runErr != nil {
		logger.Error("batch aborted", "completed", len(finished), "total", len(items), "error", runErr)
		return report, fmt.Errorf("batch %s aborted after %d of %d items: %w", batchID, len(finished), len(items), runErr)
	}
	return report, nil
}

// runItem drives one item through pending → running → terminal.
func (s *Scheduler) runItem(ctx context.Context, logger *slog.Logger, item WorkItem) (ItemResult, error) {
	logger = logger.With("item_id", item.ID, "generator", item.Generator, "label", item.Label)
	status := model.StatusPending

	if s.skipExisting {
		if _, err := os.Stat(item.OutputPath); err == nil {
			res := ItemResult{Item: item, Outcome: Succeeded(), Skipped: true, StartedAt: time.Now()}
			s.advance(logger, &status, model.StatusSucceeded)
			logger.Info("item skipped, output exists", "path", item.OutputPath)
			itemsSkipped.Inc()
			if s.hooks.OnItemDone != nil {
				s.hooks.OnItemDone(res)
			}
			return res, nil
		}
	}

	if err := ctx.Err(); err != nil {
		return ItemResult{}, err
	}

	s.advance(logger, &status, model.StatusRunning)
	if s.hooks.OnItemStart != nil {
		s.hooks.OnItemStart(item)
	}

	start := time.Now()
	activeWorkers.Inc()
	out, err := s.runner.Run(ctx, item, s.budget)
	activeWorkers.Dec()
	if err != nil {
		return ItemResult{}, err
	}
	elapsed := time.Since(start)

	if !s.advance(logger, &status, out.Status) {
		out = Failed(fmt.Sprintf("runner returned invalid status %q", out.Status))
	}

	res := ItemResult{Item: item, Outcome: out, StartedAt: start, Duration: elapsed}
	itemsTotal.WithLabelValues(out.Status).Inc()
	itemDuration.WithLabelValues(out.Status).Observe(elapsed.Seconds())

	attrs := []any{"status", out.Status, "duration_ms", elapsed.Milliseconds()}
	if out.OK() {
		logger.Info("item finished", append(attrs, "path", item.OutputPath)...)
	} else {
		if out.ExitCode != nil {
			attrs = append(attrs, "exit_code", *out.ExitCode)
		}
		if out.Signal != "" {
			attrs = append(attrs, "signal", out.Signal)
		}
		logger.Warn("item failed", append(attrs, "reason", out.Reason())...)
		removeStaged(logger, item.OutputPath)
	}

	if s.hooks.OnItemDone != nil {
		s.hooks.OnItemDone(res)
	}
	return res, nil
}

// removeStaged deletes the partial worksheet of a worker that stopped
// mid-render.
func removeStaged(logger *slog.Logger, outputPath string) {
	tmp := render.TempPath(outputPath)
	if err := os.Remove(tmp); err == nil {
		logger.Info("removed partial worksheet", "path", tmp)
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("remove partial worksheet", "path", tmp, "error", err)
	}
}

// advance moves status to next if the transition is valid.
func (s *Scheduler) advance(logger *slog.Logger, status *string, next string) bool {
	if !model.ValidTransition(*status, next) {
		logger.Error("invalid item transition", "from", *status, "to", next)
		return false
	}
	*status = next
	return true
}
