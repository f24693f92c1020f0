// Package podman wraps the container runtime binary behind a small
// capability interface with a CLI-exec implementation and a fake.
package podman

import (
	"context"
	"fmt"
	"time"
)

// BuildOptions describes one image build.
type BuildOptions struct {
	// Image is the tag applied to the built image.
	Image string

	// ContextDir is the build context directory.
	ContextDir string

	// Dockerfile overrides the default Dockerfile inside the context.
	Dockerfile string

	// BuildArgs are KEY=VALUE pairs passed as --build-arg.
	BuildArgs []string

	// NoCache disables the layer cache.
	NoCache bool
}

// ImageSummary is one locally stored image.
type ImageSummary struct {
	Repository string
	Tag        string
	ID         string
	Created    time.Time
}

// Runtime is the container runtime capability. Implementations stream
// output through onLine in emission order and return only after the
// underlying operation has fully terminated.
type Runtime interface {
	Build(ctx context.Context, opts BuildOptions, onLine func(string)) error
	Pull(ctx context.Context, image string, onLine func(string)) error
	ListImages(ctx context.Context) ([]ImageSummary, error)
	ImageCreated(ctx context.Context, image string) (time.Time, error)
}

// SpawnError reports that the runtime binary could not be started.
type SpawnError struct {
	Bin string
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Bin, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ExitError reports a runtime process that exited non-zero.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process exited with code %d", e.Code)
}
