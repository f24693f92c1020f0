package queue

import (
	"errors"
	"fmt"
	"testing"
)

func spec(image string) Spec {
	return Spec{Image: image, DedupKey: image}
}

func TestEnqueueFIFO(t *testing.T) {
	q := New()
	for _, img := range []string{"a:1", "b:1", "c:1"} {
		if err := q.Enqueue(spec(img)); err != nil {
			t.Fatalf("enqueue %s: %v", img, err)
		}
	}

	if q.Len() != 3 {
		t.Fatalf("expected 3 pending, got %d", q.Len())
	}

	for _, want := range []string{"a:1", "b:1", "c:1"} {
		s, ok := q.Next()
		if !ok {
			t.Fatalf("queue exhausted before %s", want)
		}
		if s.Image != want {
			t.Errorf("expected %s, got %s", want, s.Image)
		}
	}
	if _, ok := q.Next(); ok {
		t.Error("expected empty queue")
	}
}

func TestEnqueueRejectsDuplicateKey(t *testing.T) {
	q := New()

	// Same image from two different source directories: one job.
	first := spec("app:latest")
	first.ContextDir = "/srv/a"
	second := spec("app:latest")
	second.ContextDir = "/srv/b"

	if err := q.Enqueue(first); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := q.Enqueue(second); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if q.Len() != 1 {
		t.Errorf("expected queue length 1, got %d", q.Len())
	}
}

func TestKeyStaysReservedWhileActive(t *testing.T) {
	q := New()
	if err := q.Enqueue(spec("app:latest")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	active, ok := q.Next()
	if !ok {
		t.Fatal("expected a spec")
	}

	// Job popped but not finished: enqueueing the same key must still fail.
	if err := q.Enqueue(spec("app:latest")); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate while active, got %v", err)
	}

	q.Release(active.DedupKey)
	if err := q.Enqueue(spec("app:latest")); err != nil {
		t.Errorf("enqueue after release should succeed: %v", err)
	}
}

func TestInvariantHoldsAcrossManyOperations(t *testing.T) {
	q := New()
	var activeKeys []string

	// Interleave enqueue, pop and release; the reserved set must always
	// equal pending keys plus active keys with no duplicates.
	for i := 0; i < 50; i++ {
		img := fmt.Sprintf("img-%d:latest", i%7)
		err := q.Enqueue(spec(img))
		if err != nil && !errors.Is(err, ErrDuplicate) {
			t.Fatalf("unexpected enqueue error: %v", err)
		}

		if i%3 == 0 {
			if s, ok := q.Next(); ok {
				activeKeys = append(activeKeys, s.DedupKey)
			}
		}
		if i%5 == 0 && len(activeKeys) > 0 {
			q.Release(activeKeys[0])
			activeKeys = activeKeys[1:]
		}

		seen := make(map[string]bool)
		for _, s := range q.Pending() {
			if seen[s.DedupKey] {
				t.Fatalf("duplicate key %s in pending set", s.DedupKey)
			}
			seen[s.DedupKey] = true
		}
		for _, k := range activeKeys {
			if seen[k] {
				t.Fatalf("key %s both pending and active", k)
			}
			seen[k] = true
		}
	}
}

func TestEnqueueDefaultsKeyToImage(t *testing.T) {
	q := New()
	if err := q.Enqueue(Spec{Image: "app:latest"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if !q.Has("app:latest") {
		t.Error("expected image used as fallback dedup key")
	}
}

func TestJobOutputLimit(t *testing.T) {
	j := NewJob(1, spec("app:latest"), 3)
	for i := 0; i < 5; i++ {
		j.AppendOutput(fmt.Sprintf("line %d", i))
	}

	out := j.Output()
	if len(out) != 3 {
		t.Fatalf("expected 3 retained lines, got %d", len(out))
	}
	if out[0] != "line 2" || out[2] != "line 4" {
		t.Errorf("expected oldest lines dropped, got %v", out)
	}
}

func TestStatusTransitions(t *testing.T) {
	j := NewJob(1, spec("app:latest"), 10)
	if j.Status != StatusRunning {
		t.Errorf("new job should be running, got %s", j.Status)
	}

	j.MarkFailed("exit 1")
	if !j.Status.IsTerminal() {
		t.Error("failed should be terminal")
	}
	if j.FailReason != "exit 1" {
		t.Errorf("unexpected fail reason: %s", j.FailReason)
	}

	if StatusPending.IsTerminal() || StatusRunning.IsTerminal() {
		t.Error("pending and running must not be terminal")
	}
	if !StatusCancelled.IsTerminal() || !StatusSucceeded.IsTerminal() {
		t.Error("cancelled and succeeded must be terminal")
	}
}
