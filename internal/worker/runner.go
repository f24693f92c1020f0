// Package worker executes build and pull jobs against a container
// runtime, streaming output lines and completion results over a single
// events channel consumed by the UI loop.
package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/tuanbt/podmgr/internal/podman"
	"github.com/tuanbt/podmgr/internal/queue"
)

// Event is delivered on the runner's event channel. Exactly one of the
// fields beyond JobID is meaningful per event.
type Event struct {
	JobID int
	// Line is a single output line from the runtime subprocess.
	// Line events precede the Done event for the same job and arrive
	// in the order the subprocess emitted them.
	Line string
	// Done marks job completion. A job produces exactly one Done event,
	// including after cancellation.
	Done   bool
	Status queue.Status
	Err    error
}

// Runner starts job subprocesses and reports their progress. It never
// blocks the caller: Start returns immediately and events arrive on
// Events().
type Runner struct {
	runtime podman.Runtime
	logger  *slog.Logger
	events  chan Event

	mu     sync.Mutex
	cancel map[int]context.CancelFunc
}

func NewRunner(runtime podman.Runtime, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		runtime: runtime,
		logger:  logger,
		events:  make(chan Event, 256),
		cancel:  make(map[int]context.CancelFunc),
	}
}

// Events returns the channel carrying output lines and completions.
func (r *Runner) Events() <-chan Event { return r.events }

// Start launches the job in the background. The job id must be unique
// among jobs that have not yet completed.
func (r *Runner) Start(ctx context.Context, id int, spec queue.Spec) {
	jobCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.cancel[id] = cancel
	r.mu.Unlock()

	go r.run(jobCtx, id, spec)
}

// Cancel requests cancellation of a running job. The job still emits
// its single Done event, with StatusCancelled, once the subprocess
// has been torn down. Unknown ids are ignored.
func (r *Runner) Cancel(id int) {
	r.mu.Lock()
	cancel, ok := r.cancel[id]
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

func (r *Runner) run(ctx context.Context, id int, spec queue.Spec) {
	defer func() {
		r.mu.Lock()
		if cancel, ok := r.cancel[id]; ok {
			cancel()
			delete(r.cancel, id)
		}
		r.mu.Unlock()
	}()

	r.logger.Info("job started",
		"job_id", id,
		"action", spec.Action.String(),
		"image", spec.Image)

	onLine := func(line string) {
		r.events <- Event{JobID: id, Line: line}
	}

	var err error
	switch spec.Action {
	case queue.ActionPull:
		err = r.runtime.Pull(ctx, spec.Image, onLine)
	default:
		err = r.runtime.Build(ctx, podman.BuildOptions{
			Image:      spec.Image,
			ContextDir: spec.ContextDir,
			Dockerfile: spec.Dockerfile,
			BuildArgs:  spec.BuildArgs,
			NoCache:    spec.NoCache,
		}, onLine)
	}

	status, failure := classify(ctx, err)
	r.logger.Info("job finished", "job_id", id, "status", status.String())
	r.events <- Event{JobID: id, Done: true, Status: status, Err: failure}
}

// classify maps a runtime error to a terminal job status. Cancellation
// wins over whatever error the torn-down subprocess reported.
func classify(ctx context.Context, err error) (queue.Status, error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return queue.StatusCancelled, nil
	}
	if err != nil {
		return queue.StatusFailed, err
	}
	return queue.StatusSucceeded, nil
}
