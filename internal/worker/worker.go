// Package worker implements the child side of a scheduled work item: it
// reads one request, runs the named generator, renders its problems and
// reports exactly one result.
package worker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/protocol"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/registry"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/render"
)

// ResultFD is the file descriptor a worker child writes its frames to.
const ResultFD = 3

// Agent executes work requests against a registry.
type Agent struct {
	reg      *registry.Registry
	renderer render.Renderer
	logger   *slog.Logger
}

// New creates an Agent.
func New(reg *registry.Registry, renderer render.Renderer, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{reg: reg, renderer: renderer, logger: logger}
}

// Serve reads a single WorkRequest from in, executes it and writes log
// frames followed by one result frame to result. Generator errors and panics
// become error results; the returned error is reserved for I/O failures on
// the channels themselves.
func (a *Agent) Serve(ctx context.Context, in io.Reader, result io.Writer) error {
	var req protocol.WorkRequest
	if err := protocol.ReadMessage(in, &req); err != nil {
		res := protocol.WorkResult{Status: protocol.StatusError, Detail: fmt.Sprintf("read request: %v", err)}
		if werr := protocol.WriteResult(result, res); werr != nil {
			return fmt.Errorf("write result: %w", werr)
		}
		return fmt.Errorf("read request: %w", err)
	}

	logger := a.logger.With("item_id", req.ItemID, "generator", req.Generator)
	res := a.execute(ctx, logger, result, req)
	if res.Status == protocol.StatusError {
		logger.Warn("work item failed", "detail", res.Detail)
	}
	if err := protocol.WriteResult(result, res); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}

// execute runs the request, converting panics into an error result.
func (a *Agent) execute(ctx context.Context, logger *slog.Logger, out io.Writer, req protocol.WorkRequest) (res protocol.WorkResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("generator panicked", "panic", r, "stack", string(debug.Stack()))
			res = protocol.WorkResult{Status: protocol.StatusError, Detail: fmt.Sprintf("panic: %v", r)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return errorResult(err)
	}
	if req.OutputPath == "" {
		return errorResult(fmt.Errorf("output path is required"))
	}

	desc, err := a.reg.Lookup(req.Generator)
	if err != nil {
		return errorResult(err)
	}
	if req.Signature != "" && plugin.Signature(req.Signature) != desc.Signature() {
		return errorResult(fmt.Errorf("signature mismatch: request %q, registered %q", req.Signature, desc.Signature()))
	}
	difficulty, err := plugin.ParseDifficulty(req.Difficulty)
	if err != nil {
		return errorResult(err)
	}

	inst, err := desc.Constructor.New()
	if err != nil {
		return errorResult(err)
	}

	a.sendLog(logger, out, fmt.Sprintf("generating %d problems", req.ProblemCount))
	problems, err := inst.Generate(difficulty, req.ProblemCount)
	if err != nil {
		return errorResult(err)
	}

	if err := a.renderer.Render(req.OutputPath, req.Title, problems, req.IncludeAnswerKey); err != nil {
		return errorResult(fmt.Errorf("render: %w", err))
	}
	a.sendLog(logger, out, "wrote "+req.OutputPath)

	return protocol.WorkResult{Status: protocol.StatusSuccess, Detail: req.OutputPath}
}

func (a *Agent) sendLog(logger *slog.Logger, out io.Writer, line string) {
	if err := protocol.WriteLog(out, line); err != nil {
		logger.Warn("write log line", "error", err)
	}
}

func errorResult(err error) protocol.WorkResult {
	return protocol.WorkResult{Status: protocol.StatusError, Detail: err.Error()}
}

// ServeProcess runs an Agent against the current process's stdin and result
// descriptor. It is the body of the worker subcommand.
func ServeProcess(ctx context.Context, reg *registry.Registry, renderer render.Renderer, logger *slog.Logger) error {
	result := os.NewFile(ResultFD, "result")
	if result == nil {
		return fmt.Errorf("result descriptor %d is not open", ResultFD)
	}
	defer result.Close()

	return New(reg, renderer, logger).Serve(ctx, os.Stdin, result)
}
