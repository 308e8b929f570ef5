package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/protocol"
)

const (
	// defaultStderrTail is how many trailing bytes of child stderr are kept.
	defaultStderrTail = 4096

	// waitDelay bounds how long Wait blocks on I/O held open by grandchildren
	// after the worker itself has exited.
	waitDelay = time.Second

	// drainTimeout bounds the wait for the result reader after exit.
	drainTimeout = time.Second
)

// ProcessRunner runs each item in a fresh child process. The request is
// written to the child's stdin and the child reports through a dedicated
// pipe on file descriptor 3.
type ProcessRunner struct {
	command    []string
	env        []string
	logger     *slog.Logger
	stderrTail int
}

// ProcessOption configures a ProcessRunner.
type ProcessOption func(*ProcessRunner)

// WithEnv appends environment variables for the child.
func WithEnv(env ...string) ProcessOption {
	return func(p *ProcessRunner) { p.env = append(p.env, env...) }
}

// WithProcessLogger sets the logger used for worker diagnostics.
func WithProcessLogger(l *slog.Logger) ProcessOption {
	return func(p *ProcessRunner) { p.logger = l }
}

// NewProcessRunner creates a runner that starts command for each item. An
// empty command runs "<current executable> worker".
func NewProcessRunner(command []string, opts ...ProcessOption) (*ProcessRunner, error) {
	if len(command) == 0 {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
		command = []string{exe, "worker"}
	}
	p := &ProcessRunner{
		command:    command,
		logger:     slog.Default(),
		stderrTail: defaultStderrTail,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

type readResult struct {
	res protocol.WorkResult
	err error
}

// Run starts the worker, waits up to budget for it to exit, and classifies
// the result. On budget expiry the whole process group is killed and the
// child is reaped before Run returns.
func (p *ProcessRunner) Run(ctx context.Context, item WorkItem, budget time.Duration) (Outcome, error) {
	logger := p.logger.With("item_id", item.ID, "generator", item.Generator)

	var req bytes.Buffer
	if err := protocol.WriteMessage(&req, item.Request()); err != nil {
		return Outcome{}, fmt.Errorf("%w: encode request: %v", ErrSpawn, err)
	}

	resR, resW, err := os.Pipe()
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: result pipe: %v", ErrSpawn, err)
	}
	defer resR.Close()

	stderr := newTailBuffer(p.stderrTail)
	cmd := exec.Command(p.command[0], p.command[1:]...)
	cmd.Env = append(os.Environ(), p.env...)
	cmd.Stdin = &req
	cmd.Stderr = stderr
	cmd.ExtraFiles = []*os.File{resW}
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		resW.Close()
		return Outcome{}, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	// The child holds its own copy; closing ours lets the reader see EOF.
	resW.Close()
	logger.Debug("worker started", "pid", cmd.Process.Pid)

	resCh := make(chan readResult, 1)
	go func() {
		res, err := protocol.ReadResult(resR, func(line string) {
			logger.Debug("worker log", "line", line)
		})
		resCh <- readResult{res: res, err: err}
	}()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case <-waitCh:
		// Reap any stragglers still holding the result pipe.
		_ = killProcessGroup(cmd)
		return p.classify(logger, cmd.ProcessState, drain(resCh, resR), stderr), nil

	case <-timer.C:
		if err := killProcessGroup(cmd); err != nil {
			logger.Error("kill worker", "error", err)
		}
		<-waitCh
		logger.Warn("worker exceeded budget", "budget_ms", budget.Milliseconds())
		return TimedOut(), nil

	case <-ctx.Done():
		_ = killProcessGroup(cmd)
		<-waitCh
		return Outcome{}, ctx.Err()
	}
}

// drain waits briefly for the reader, then forces it to stop.
func drain(resCh <-chan readResult, r *os.File) readResult {
	select {
	case rr := <-resCh:
		return rr
	case <-time.After(drainTimeout):
		r.Close()
		return <-resCh
	}
}

func (p *ProcessRunner) classify(logger *slog.Logger, ps *os.ProcessState, rr readResult, stderr *tailBuffer) Outcome {
	if rr.err == nil {
		if rr.res.Status == protocol.StatusSuccess {
			return Succeeded()
		}
		return Failed(rr.res.Detail)
	}

	var code *int
	signal := ""
	if ps != nil {
		signal = exitSignal(ps)
		if c := ps.ExitCode(); c >= 0 {
			code = &c
		}
	}
	if !errors.Is(rr.err, protocol.ErrNoResult) {
		logger.Warn("malformed worker output", "error", rr.err)
	}
	logger.Warn("worker exited without a result", "stderr", stderr.String())
	return NoSignal(code, signal)
}

// tailBuffer keeps the last n bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	n   int
	buf []byte
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{n: n}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.n; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
