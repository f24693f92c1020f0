package podman

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FakeCall records one operation issued against a Fake runtime.
type FakeCall struct {
	Op    string
	Image string
}

// Fake is an in-memory Runtime for tests and --dry-run. It emits scripted
// lines instead of invoking podman.
type Fake struct {
	mu    sync.Mutex
	calls []FakeCall

	// BuildLines and PullLines are emitted on each respective operation.
	// When nil, a single descriptive line is emitted instead.
	BuildLines []string
	PullLines  []string

	// FailWith, when set, is returned from Build and Pull after the lines
	// have been emitted.
	FailWith error

	// Hang makes Build and Pull block until the context is cancelled.
	// Used to exercise cancellation paths.
	Hang bool

	// Images backs ListImages and ImageCreated.
	Images []ImageSummary
}

// NewFake returns an empty fake runtime.
func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) record(op, image string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, FakeCall{Op: op, Image: image})
}

// Calls returns a copy of all recorded operations.
func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeCall{}, f.calls...)
}

func (f *Fake) Build(ctx context.Context, opts BuildOptions, onLine func(string)) error {
	f.record("build", opts.Image)
	if f.Hang {
		<-ctx.Done()
		return ctx.Err()
	}
	lines := f.BuildLines
	if lines == nil {
		lines = []string{fmt.Sprintf("would build %s from %s", opts.Image, opts.ContextDir)}
	}
	for _, l := range lines {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		onLine(l)
	}
	return f.FailWith
}

func (f *Fake) Pull(ctx context.Context, image string, onLine func(string)) error {
	f.record("pull", image)
	if f.Hang {
		<-ctx.Done()
		return ctx.Err()
	}
	lines := f.PullLines
	if lines == nil {
		lines = []string{fmt.Sprintf("would pull %s", image)}
	}
	for _, l := range lines {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		onLine(l)
	}
	return f.FailWith
}

func (f *Fake) ListImages(ctx context.Context) ([]ImageSummary, error) {
	f.record("list", "")
	return append([]ImageSummary{}, f.Images...), nil
}

func (f *Fake) ImageCreated(ctx context.Context, image string) (time.Time, error) {
	f.record("inspect", image)
	for _, img := range f.Images {
		if img.Repository+":"+img.Tag == image || img.Repository == image {
			return img.Created, nil
		}
	}
	return time.Time{}, &ExitError{Code: 125}
}
