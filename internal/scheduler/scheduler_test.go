package scheduler_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/model"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/render"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/scheduler"
)

// fakeRunner returns scripted outcomes keyed by generator name.
type fakeRunner struct {
	mu       sync.Mutex
	outcomes map[string]scheduler.Outcome
	delays   map[string]time.Duration
	errs     map[string]error
	calls    []string
	budgets  []time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeRunner) Run(ctx context.Context, item scheduler.WorkItem, budget time.Duration) (scheduler.Outcome, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, item.Generator)
	f.budgets = append(f.budgets, budget)
	delay := f.delays[item.Generator]
	err := f.errs[item.Generator]
	out, ok := f.outcomes[item.Generator]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return scheduler.Outcome{}, ctx.Err()
		}
	}
	if err != nil {
		return scheduler.Outcome{}, err
	}
	if !ok {
		out = scheduler.Succeeded()
	}
	return out, nil
}

func planOf(t *testing.T, names ...string) []scheduler.WorkItem {
	t.Helper()
	dir := t.TempDir()
	items := make([]scheduler.WorkItem, len(names))
	for i, n := range names {
		items[i] = scheduler.WorkItem{
			ID:         model.NewID(),
			Index:      i,
			Group:      "demo",
			Label:      n,
			Generator:  n,
			OutputPath: filepath.Join(dir, n+".tex"),
		}
	}
	return items
}

func TestRunSequentialContinuesPastFailures(t *testing.T) {
	runner := &fakeRunner{outcomes: map[string]scheduler.Outcome{
		"g2": scheduler.TimedOut(),
		"g3": scheduler.Failed("bad seed"),
	}}
	s := scheduler.New(scheduler.Config{Runner: runner, Logger: quietLogger()})

	report, err := s.Run(context.Background(), planOf(t, "g1", "g2", "g3", "g4"))
	require.NoError(t, err)

	assert.Equal(t, []string{"g1", "g2", "g3", "g4"}, runner.calls)
	assert.Equal(t, int32(1), runner.maxInFlight.Load(), "sequential mode must run one item at a time")
	for _, b := range runner.budgets {
		assert.Equal(t, scheduler.DefaultBudget, b)
	}

	assert.Equal(t, 4, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, "g2", report.Failures[0].Label)
	assert.Equal(t, model.StatusTimeout, report.Failures[0].Outcome.Status)
	assert.Equal(t, "g3", report.Failures[1].Label)
	assert.Equal(t, "bad seed", report.Failures[1].Reason())
	assert.NotEmpty(t, report.ID)
}

func TestRunPoolReportsInPlanOrder(t *testing.T) {
	runner := &fakeRunner{delays: map[string]time.Duration{
		"slow":   150 * time.Millisecond,
		"medium": 75 * time.Millisecond,
	}}
	s := scheduler.New(scheduler.Config{Runner: runner, Workers: 3, Logger: quietLogger()})

	report, err := s.Run(context.Background(), planOf(t, "slow", "medium", "fast"))
	require.NoError(t, err)

	require.Len(t, report.Items, 3)
	for i, want := range []string{"slow", "medium", "fast"} {
		assert.Equal(t, want, report.Items[i].Item.Generator)
		assert.Equal(t, i, report.Items[i].Item.Index)
	}
	assert.Greater(t, runner.maxInFlight.Load(), int32(1), "pool mode should overlap items")
	assert.LessOrEqual(t, runner.maxInFlight.Load(), int32(3))
}

func TestRunPoolRespectsLimit(t *testing.T) {
	delays := make(map[string]time.Duration)
	var names []string
	for i := range 8 {
		n := fmt.Sprintf("g%d", i)
		names = append(names, n)
		delays[n] = 30 * time.Millisecond
	}
	runner := &fakeRunner{delays: delays}
	s := scheduler.New(scheduler.Config{Runner: runner, Workers: 2, Logger: quietLogger()})

	report, err := s.Run(context.Background(), planOf(t, names...))
	require.NoError(t, err)
	assert.Equal(t, 8, report.Attempted)
	assert.LessOrEqual(t, runner.maxInFlight.Load(), int32(2))
}

func TestRunSpawnFailureAborts(t *testing.T) {
	spawnErr := fmt.Errorf("%w: fork: resource temporarily unavailable", scheduler.ErrSpawn)
	runner := &fakeRunner{errs: map[string]error{"g2": spawnErr}}
	s := scheduler.New(scheduler.Config{Runner: runner, Logger: quietLogger()})

	report, err := s.Run(context.Background(), planOf(t, "g1", "g2", "g3"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, scheduler.ErrSpawn))

	assert.Equal(t, []string{"g1", "g2"}, runner.calls, "no item may start after a spawn failure")
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Succeeded)
}

func TestRunSkipExisting(t *testing.T) {
	items := planOf(t, "g1", "g2")
	require.NoError(t, os.WriteFile(items[0].OutputPath, []byte("done"), 0o644))

	runner := &fakeRunner{}
	s := scheduler.New(scheduler.Config{Runner: runner, SkipExisting: true, Logger: quietLogger()})

	report, err := s.Run(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, []string{"g2"}, runner.calls)
	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	assert.True(t, report.Items[0].Skipped)
}

// stagingRunner leaves a partial worksheet behind, as a worker killed
// mid-render does, then reports the scripted outcome.
type stagingRunner struct {
	outcomes map[string]scheduler.Outcome
}

func (r stagingRunner) Run(_ context.Context, item scheduler.WorkItem, _ time.Duration) (scheduler.Outcome, error) {
	if err := os.WriteFile(render.TempPath(item.OutputPath), []byte("partial"), 0o644); err != nil {
		return scheduler.Outcome{}, err
	}
	return r.outcomes[item.Generator], nil
}

func TestRunRemovesPartialWorksheets(t *testing.T) {
	items := planOf(t, "slow", "broken", "fine")
	code := 9
	runner := stagingRunner{outcomes: map[string]scheduler.Outcome{
		"slow":   scheduler.TimedOut(),
		"broken": scheduler.NoSignal(&code, ""),
		"fine":   scheduler.Succeeded(),
	}}
	s := scheduler.New(scheduler.Config{Runner: runner, Logger: quietLogger()})

	report, err := s.Run(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, report.Failures, 2)

	assert.NoFileExists(t, render.TempPath(items[0].OutputPath))
	assert.NoFileExists(t, render.TempPath(items[1].OutputPath))
	assert.FileExists(t, render.TempPath(items[2].OutputPath), "successful items are left alone")
}

func TestRunHooks(t *testing.T) {
	runner := &fakeRunner{outcomes: map[string]scheduler.Outcome{"g2": scheduler.Failed("nope")}}

	var started, finished []string
	var batch *scheduler.BatchReport
	var batchID string
	var planned int
	s := scheduler.New(scheduler.Config{
		Runner: runner,
		Logger: quietLogger(),
		Hooks: scheduler.Hooks{
			OnBatchStart: func(id string, items []scheduler.WorkItem) { batchID, planned = id, len(items) },
			OnItemStart:  func(it scheduler.WorkItem) { started = append(started, it.Generator) },
			OnItemDone: func(res scheduler.ItemResult) {
				finished = append(finished, res.Item.Generator+":"+res.Outcome.Status)
			},
			OnBatchDone: func(r *scheduler.BatchReport) { batch = r },
		},
	})

	report, err := s.Run(context.Background(), planOf(t, "g1", "g2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, started)
	assert.Equal(t, []string{"g1:succeeded", "g2:error"}, finished)
	assert.Same(t, report, batch)
	assert.Equal(t, report.ID, batchID)
	assert.Equal(t, 2, planned)
}

func TestChainHooks(t *testing.T) {
	var calls []string
	a := scheduler.Hooks{
		OnItemDone:  func(scheduler.ItemResult) { calls = append(calls, "a:item") },
		OnBatchDone: func(*scheduler.BatchReport) { calls = append(calls, "a:done") },
	}
	b := scheduler.Hooks{
		OnBatchStart: func(string, []scheduler.WorkItem) { calls = append(calls, "b:start") },
		OnItemDone:   func(scheduler.ItemResult) { calls = append(calls, "b:item") },
	}
	s := scheduler.New(scheduler.Config{
		Runner: &fakeRunner{},
		Logger: quietLogger(),
		Hooks:  scheduler.ChainHooks(a, scheduler.Hooks{}, b),
	})

	_, err := s.Run(context.Background(), planOf(t, "g1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b:start", "a:item", "b:item", "a:done"}, calls)
}

func TestRunInvalidRunnerStatus(t *testing.T) {
	runner := &fakeRunner{outcomes: map[string]scheduler.Outcome{"g1": {Status: "exploded"}}}
	s := scheduler.New(scheduler.Config{Runner: runner, Logger: quietLogger()})

	report, err := s.Run(context.Background(), planOf(t, "g1"))
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, model.StatusError, report.Failures[0].Outcome.Status)
}

func TestRunCustomBudget(t *testing.T) {
	runner := &fakeRunner{}
	s := scheduler.New(scheduler.Config{Runner: runner, Budget: 250 * time.Millisecond, Logger: quietLogger()})

	_, err := s.Run(context.Background(), planOf(t, "g1"))
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{250 * time.Millisecond}, runner.budgets)
}

func TestRunContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &fakeRunner{}
	s := scheduler.New(scheduler.Config{Runner: runner, Logger: quietLogger()})
	report, err := s.Run(ctx, planOf(t, "g1", "g2"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, runner.calls)
	assert.Equal(t, 0, report.Attempted)
}
