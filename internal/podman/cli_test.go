package podman

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseImageListArray(t *testing.T) {
	data := []byte(`[
  {"Id": "sha256:abc", "Names": ["docker.io/library/redis:7"], "Created": 1700000000},
  {"Id": "sha256:def", "Names": ["localhost/widget:latest", "localhost/widget:dev"], "Created": 1700000100}
]`)

	images, err := parseImageList(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("expected 3 summaries (one per name), got %d", len(images))
	}
	if images[0].Repository != "docker.io/library/redis" || images[0].Tag != "7" {
		t.Errorf("unexpected first entry: %+v", images[0])
	}
	if !images[0].Created.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("unexpected created time: %v", images[0].Created)
	}
	if images[2].Tag != "dev" {
		t.Errorf("expected second name parsed separately, got %+v", images[2])
	}
}

func TestParseImageListNDJSON(t *testing.T) {
	data := []byte(`{"Id": "sha256:abc", "Names": ["redis:7"], "Created": 1700000000}
{"Id": "sha256:def", "Names": ["nginx:1.27"], "Created": 1700000100}
`)

	images, err := parseImageList(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(images))
	}
	if images[1].Repository != "nginx" || images[1].Tag != "1.27" {
		t.Errorf("unexpected second entry: %+v", images[1])
	}
}

func TestParseImageListUntagged(t *testing.T) {
	data := []byte(`[{"Id": "sha256:abc", "Names": [], "Created": 1700000000}]`)

	images, err := parseImageList(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(images) != 1 || images[0].Repository != "<none>" {
		t.Errorf("dangling image should surface as <none>: %+v", images)
	}
}

func TestSplitRef(t *testing.T) {
	cases := []struct {
		in, repo, tag string
	}{
		{"redis:7", "redis", "7"},
		{"redis", "redis", "latest"},
		{"registry:5000/acme/web", "registry:5000/acme/web", "latest"},
		{"registry:5000/acme/web:1.4", "registry:5000/acme/web", "1.4"},
	}
	for _, c := range cases {
		repo, tag := splitRef(c.in)
		if repo != c.repo || tag != c.tag {
			t.Errorf("splitRef(%q) = (%q, %q), want (%q, %q)", c.in, repo, tag, c.repo, c.tag)
		}
	}
}

func TestCLIStreamEmitsLinesInOrder(t *testing.T) {
	cli := NewCLI("sh", nil)

	var lines []string
	err := cli.stream(context.Background(), func(line string) {
		lines = append(lines, line)
	}, "-c", "echo one; echo two; echo three")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	want := []string{"one", "two", "three"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestCLIStreamNonZeroExit(t *testing.T) {
	cli := NewCLI("sh", nil)

	err := cli.stream(context.Background(), func(string) {}, "-c", "exit 3")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.Code != 3 {
		t.Errorf("expected exit code 3, got %d", exitErr.Code)
	}
}

func TestCLIStreamSpawnFailure(t *testing.T) {
	cli := NewCLI("/definitely/not/a/binary", nil)

	err := cli.stream(context.Background(), func(string) {}, "build")
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("expected SpawnError, got %v", err)
	}
}

func TestCLIStreamCancellation(t *testing.T) {
	cli := NewCLI("sh", nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- cli.stream(ctx, func(string) {}, "-c", "sleep 30")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled stream did not return")
	}
}

func TestFakeRecordsCalls(t *testing.T) {
	fake := NewFake()
	fake.BuildLines = []string{"step 1", "step 2"}

	var lines []string
	if err := fake.Build(context.Background(), BuildOptions{Image: "foo/bar"}, func(l string) {
		lines = append(lines, l)
	}); err != nil {
		t.Fatalf("fake build: %v", err)
	}

	if len(lines) != 2 {
		t.Errorf("expected 2 lines, got %v", lines)
	}
	calls := fake.Calls()
	if len(calls) != 1 || calls[0].Op != "build" || calls[0].Image != "foo/bar" {
		t.Errorf("unexpected calls: %+v", calls)
	}
}
