package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tuanbt/podmgr/internal/podman"
	"github.com/tuanbt/podmgr/internal/queue"
)

// collect drains events for the given job until its Done event arrives.
func collect(t *testing.T, r *Runner, id int) ([]string, Event) {
	t.Helper()
	var lines []string
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-r.Events():
			if ev.JobID != id {
				continue
			}
			if ev.Done {
				return lines, ev
			}
			lines = append(lines, ev.Line)
		case <-timeout:
			t.Fatalf("no completion for job %d", id)
		}
	}
}

func TestRunnerEmitsLinesThenCompletion(t *testing.T) {
	fake := podman.NewFake()
	fake.BuildLines = []string{"step 1", "step 2", "step 3", "step 4", "step 5"}

	r := NewRunner(fake, nil)
	r.Start(context.Background(), 1, queue.Spec{Image: "app:latest", Action: queue.ActionBuild})

	lines, done := collect(t, r, 1)
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	for i, want := range fake.BuildLines {
		if lines[i] != want {
			t.Errorf("line %d: expected %q, got %q", i, want, lines[i])
		}
	}
	if done.Status != queue.StatusSucceeded {
		t.Errorf("expected succeeded, got %s", done.Status)
	}
}

func TestRunnerReportsFailure(t *testing.T) {
	fake := podman.NewFake()
	fake.FailWith = &podman.ExitError{Code: 125}

	r := NewRunner(fake, nil)
	r.Start(context.Background(), 7, queue.Spec{Image: "app:latest"})

	_, done := collect(t, r, 7)
	if done.Status != queue.StatusFailed {
		t.Fatalf("expected failed, got %s", done.Status)
	}
	var exitErr *podman.ExitError
	if !errors.As(done.Err, &exitErr) || exitErr.Code != 125 {
		t.Errorf("expected exit error 125, got %v", done.Err)
	}
}

func TestRunnerCancelYieldsSingleCancelledCompletion(t *testing.T) {
	fake := podman.NewFake()
	fake.Hang = true

	r := NewRunner(fake, nil)
	r.Start(context.Background(), 3, queue.Spec{Image: "app:latest"})

	// Let the subprocess get going before interrupting it.
	time.Sleep(20 * time.Millisecond)
	r.Cancel(3)

	_, done := collect(t, r, 3)
	if done.Status != queue.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", done.Status)
	}
	if done.Err != nil {
		t.Errorf("cancellation should not surface an error, got %v", done.Err)
	}

	// No second completion for the same job.
	select {
	case ev := <-r.Events():
		if ev.JobID == 3 && ev.Done {
			t.Error("received a second completion event")
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRunnerPullAction(t *testing.T) {
	fake := podman.NewFake()
	fake.PullLines = []string{"Trying to pull app:latest..."}

	r := NewRunner(fake, nil)
	r.Start(context.Background(), 2, queue.Spec{Image: "app:latest", Action: queue.ActionPull})

	lines, done := collect(t, r, 2)
	if done.Status != queue.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", done.Status)
	}
	if len(lines) != 1 || lines[0] != "Trying to pull app:latest..." {
		t.Errorf("unexpected lines: %v", lines)
	}

	calls := fake.Calls()
	if len(calls) != 1 || calls[0].Op != "pull" {
		t.Errorf("expected one pull call, got %v", calls)
	}
}

func TestRunnerConcurrentJobsKeepIDs(t *testing.T) {
	fake := podman.NewFake()
	fake.BuildLines = []string{"line"}

	r := NewRunner(fake, nil)
	ctx := context.Background()
	r.Start(ctx, 10, queue.Spec{Image: "a:1"})
	r.Start(ctx, 11, queue.Spec{Image: "b:1"})

	seen := map[int]bool{}
	timeout := time.After(5 * time.Second)
	for len(seen) < 2 {
		select {
		case ev := <-r.Events():
			if ev.Done {
				if seen[ev.JobID] {
					t.Fatalf("duplicate completion for job %d", ev.JobID)
				}
				seen[ev.JobID] = true
			}
		case <-timeout:
			t.Fatal("completions missing")
		}
	}
}
