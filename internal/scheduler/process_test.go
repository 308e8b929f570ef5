package scheduler_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/model"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/scheduler"
)

func item(t *testing.T, generator string) scheduler.WorkItem {
	t.Helper()
	return scheduler.WorkItem{
		ID:               model.NewID(),
		Group:            "demo",
		Label:            generator,
		Generator:        generator,
		Signature:        plugin.SignatureCounted,
		ProblemCount:     3,
		OutputPath:       filepath.Join(t.TempDir(), "demo", generator+".tex"),
		Title:            "Demo - " + generator,
		IncludeAnswerKey: true,
	}
}

func TestProcessRunnerSuccess(t *testing.T) {
	it := item(t, "quick")
	out, err := testRunner(t).Run(context.Background(), it, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSucceeded, out.Status, "outcome: %+v", out)

	_, statErr := os.Stat(it.OutputPath)
	assert.NoError(t, statErr, "output file should exist")
}

func TestProcessRunnerError(t *testing.T) {
	it := item(t, "bad_seed")
	out, err := testRunner(t).Run(context.Background(), it, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, out.Status)
	assert.Equal(t, "bad seed", out.Message)

	_, statErr := os.Stat(it.OutputPath)
	assert.True(t, os.IsNotExist(statErr), "no file may be written for a failed item")
}

func TestLongWorkerErrorTruncatedInReport(t *testing.T) {
	it := item(t, "verbose_failure")
	sched := scheduler.New(scheduler.Config{
		Runner: testRunner(t),
		Budget: 5 * time.Second,
		Logger: quietLogger(),
	})

	report, err := sched.Run(context.Background(), []scheduler.WorkItem{it})
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)

	full := report.Items[0].Outcome.Message
	assert.Equal(t, strings.Repeat("é", 80), full, "the item result keeps the worker's full message")

	reason := report.Failures[0].Reason()
	assert.Equal(t, scheduler.MaxReasonLen, utf8.RuneCountInString(reason))
	assert.True(t, utf8.ValidString(reason), "truncation must not split a rune")
	assert.Equal(t, strings.Repeat("é", scheduler.MaxReasonLen), reason)
}

func TestProcessRunnerTimeout(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "pid")
	it := item(t, "sleepy")

	start := time.Now()
	out, err := testRunner(t, pidFileEnv+"="+pidFile).Run(context.Background(), it, time.Second)
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.Equal(t, model.StatusTimeout, out.Status)
	assert.Less(t, elapsed, 5*time.Second, "runner must not wait for the sleeping worker")

	_, statErr := os.Stat(it.OutputPath)
	assert.True(t, os.IsNotExist(statErr))

	assertProcessGone(t, pidFile)
}

func TestProcessRunnerExitWithoutResult(t *testing.T) {
	out, err := testRunner(t).Run(context.Background(), item(t, "exits"), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, model.StatusNoSignal, out.Status)
	require.NotNil(t, out.ExitCode)
	assert.Equal(t, 7, *out.ExitCode)
	assert.Contains(t, out.Reason(), "exit 7")
}

func TestProcessRunnerSpawnFailure(t *testing.T) {
	r, err := scheduler.NewProcessRunner([]string{filepath.Join(t.TempDir(), "no-such-binary")})
	require.NoError(t, err)

	_, err = r.Run(context.Background(), item(t, "quick"), time.Second)
	assert.True(t, errors.Is(err, scheduler.ErrSpawn), "error = %v, want ErrSpawn", err)
}

func TestProcessRunnerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	start := time.Now()
	_, err := testRunner(t).Run(ctx, item(t, "sleepy"), 10*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}
