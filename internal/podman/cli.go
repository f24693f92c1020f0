package podman

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// CLI shells out to the podman binary.
type CLI struct {
	bin    string
	logger *slog.Logger
}

// NewCLI creates a runtime backed by the given binary.
func NewCLI(bin string, logger *slog.Logger) *CLI {
	if bin == "" {
		bin = "podman"
	}
	return &CLI{bin: bin, logger: logger}
}

// Build runs `podman build` and streams every output line through onLine.
func (c *CLI) Build(ctx context.Context, opts BuildOptions, onLine func(string)) error {
	args := []string{"build", "-t", opts.Image}
	if opts.Dockerfile != "" {
		args = append(args, "-f", opts.Dockerfile)
	}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	for _, a := range opts.BuildArgs {
		args = append(args, "--build-arg", a)
	}
	contextDir := opts.ContextDir
	if contextDir == "" {
		contextDir = "."
	}
	args = append(args, contextDir)

	return c.stream(ctx, onLine, args...)
}

// Pull runs `podman pull` and streams every output line through onLine.
func (c *CLI) Pull(ctx context.Context, image string, onLine func(string)) error {
	return c.stream(ctx, onLine, "pull", image)
}

// stream runs the binary and forwards stdout and stderr line by line.
// Lines within a stream keep their order; the two streams are serialized
// through one mutex so onLine is never called concurrently.
func (c *CLI) stream(ctx context.Context, onLine func(string), args ...string) error {
	cmd := exec.CommandContext(ctx, c.bin, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &SpawnError{Bin: c.bin, Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		return &SpawnError{Bin: c.bin, Err: err}
	}

	if c.logger != nil {
		c.logger.Debug("running runtime command", "bin", c.bin, "args", args)
	}

	if err := cmd.Start(); err != nil {
		return &SpawnError{Bin: c.bin, Err: err}
	}

	var mu sync.Mutex
	emit := func(line string) {
		mu.Lock()
		defer mu.Unlock()
		onLine(line)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go c.readLines(stdout, emit, &wg)
	go c.readLines(stderr, emit, &wg)
	wg.Wait()

	err = cmd.Wait()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("runtime command failed: %w", err)
	}
	return nil
}

func (c *CLI) readLines(r io.Reader, emit func(string), wg *sync.WaitGroup) {
	defer wg.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		emit(scanner.Text())
	}
	if err := scanner.Err(); err != nil && c.logger != nil {
		c.logger.Debug("read error on runtime output", "error", err)
	}
}

// ListImages runs `podman image ls --format json`.
func (c *CLI) ListImages(ctx context.Context) ([]ImageSummary, error) {
	out, err := exec.CommandContext(ctx, c.bin, "image", "ls", "--format", "json").Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{Code: exitErr.ExitCode()}
		}
		return nil, &SpawnError{Bin: c.bin, Err: err}
	}
	return parseImageList(out)
}

// ImageCreated returns the creation time recorded in the image metadata.
func (c *CLI) ImageCreated(ctx context.Context, image string) (time.Time, error) {
	out, err := exec.CommandContext(ctx, c.bin, "image", "inspect", "--format", "{{.Created}}", image).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return time.Time{}, &ExitError{Code: exitErr.ExitCode()}
		}
		return time.Time{}, &SpawnError{Bin: c.bin, Err: err}
	}
	raw := strings.TrimSpace(string(out))
	created, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// Older podman prints a Go-style timestamp instead of RFC 3339.
		created, err = time.Parse("2006-01-02 15:04:05.999999999 -0700 MST", raw)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable image creation time %q: %w", raw, err)
	}
	return created, nil
}

type imageListEntry struct {
	ID      string   `json:"Id"`
	Names   []string `json:"Names"`
	Created int64    `json:"Created"`
}

// parseImageList handles both a JSON array and the NDJSON stream some
// podman versions emit.
func parseImageList(data []byte) ([]ImageSummary, error) {
	var entries []imageListEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		dec := json.NewDecoder(strings.NewReader(string(data)))
		for {
			var entry imageListEntry
			if decErr := dec.Decode(&entry); decErr != nil {
				if decErr == io.EOF {
					break
				}
				if len(entries) == 0 {
					return nil, fmt.Errorf("failed to parse image list: %w", err)
				}
				break
			}
			entries = append(entries, entry)
		}
	}

	var images []ImageSummary
	for _, e := range entries {
		created := time.Unix(e.Created, 0)
		if len(e.Names) == 0 {
			images = append(images, ImageSummary{ID: e.ID, Created: created, Repository: "<none>", Tag: "<none>"})
			continue
		}
		for _, name := range e.Names {
			repo, tag := splitRef(name)
			images = append(images, ImageSummary{
				Repository: repo,
				Tag:        tag,
				ID:         e.ID,
				Created:    created,
			})
		}
	}
	return images, nil
}

// splitRef separates a name:tag reference, leaving registry ports intact.
func splitRef(name string) (string, string) {
	idx := strings.LastIndex(name, ":")
	if idx < 0 || strings.Contains(name[idx:], "/") {
		return name, "latest"
	}
	return name[:idx], name[idx+1:]
}
