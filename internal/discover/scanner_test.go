package discover

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

const webCompose = `
services:
  web:
    image: example.com/acme/web:1.4
    container_name: acme-web
    build: .
  cache:
    image: redis:7
`

const dbQuadlet = `
[Unit]
Description=Database

[Container]
Image=docker.io/library/postgres:16
ContainerName=acme-db

[Install]
WantedBy=default.target
`

func TestScanCollectsComposeAndQuadlet(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "web", "docker-compose.yml"), webCompose)
	writeFile(t, filepath.Join(root, "db", "acme-db.container"), dbQuadlet)

	s, err := NewScanner(root, nil, nil, nil)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(result.Images) != 3 {
		t.Fatalf("expected 3 images, got %d: %+v", len(result.Images), result.Images)
	}

	// Sorted by image, then container
	if result.Images[0].Image != "docker.io/library/postgres:16" {
		t.Errorf("unexpected first image: %s", result.Images[0].Image)
	}
	if result.Images[0].Container != "acme-db" {
		t.Errorf("expected quadlet container name, got %s", result.Images[0].Container)
	}
	if result.Images[1].Image != "example.com/acme/web:1.4" {
		t.Errorf("unexpected second image: %s", result.Images[1].Image)
	}
	if !result.Images[1].HasBuildfile {
		t.Error("compose service with build section should be flagged buildable")
	}
	if result.Images[2].Image != "redis:7" || result.Images[2].Container != "cache" {
		t.Errorf("expected redis:7/cache fallback to service name, got %+v", result.Images[2])
	}
}

func TestScanSkipsMalformedFileWithWarning(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bad", "docker-compose.yml"), "services: [not: {valid")
	writeFile(t, filepath.Join(root, "ok", "docker-compose.yml"), webCompose)

	s, err := NewScanner(root, nil, nil, nil)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan should not fail on malformed files: %v", err)
	}

	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(result.Warnings))
	}
	if result.Warnings[0].Kind != WarnMalformed {
		t.Errorf("expected malformed warning, got %s", result.Warnings[0].Kind)
	}
	if len(result.Images) != 2 {
		t.Errorf("good directory should still be scanned, got %d images", len(result.Images))
	}
}

func TestScanExcludePatternsWinOverInclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "live", "docker-compose.yml"), webCompose)
	writeFile(t, filepath.Join(root, "archive", "docker-compose.yml"), webCompose)

	s, err := NewScanner(root, []string{"compose"}, []string{"/archive/"}, nil)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	for _, img := range result.Images {
		if filepath.Base(img.SourceDir) == "archive" {
			t.Errorf("excluded path leaked into results: %+v", img)
		}
	}
	if len(result.Images) != 2 {
		t.Errorf("expected 2 images from live dir, got %d", len(result.Images))
	}
}

func TestScanDedupsRepeatedEntries(t *testing.T) {
	root := t.TempDir()
	// Same image+container in one file twice is impossible in YAML, but the
	// same triple can appear via .yml and .yaml side by side.
	writeFile(t, filepath.Join(root, "docker-compose.yml"), webCompose)
	writeFile(t, filepath.Join(root, "docker-compose.yaml"), webCompose)

	s, err := NewScanner(root, nil, nil, nil)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(result.Images) != 2 {
		t.Errorf("expected duplicates collapsed to 2 images, got %d", len(result.Images))
	}
}

func TestScanCancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docker-compose.yml"), webCompose)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, err := NewScanner(root, nil, nil, nil)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	if _, err := s.Scan(ctx); err == nil {
		t.Error("expected error from cancelled scan")
	}
}

func TestDockerfileInferenceFromSingleCompose(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "svc")
	writeFile(t, filepath.Join(dir, "Dockerfile"), "FROM alpine\n")
	writeFile(t, filepath.Join(dir, "docker-compose.yml"), `
services:
  app:
    image: foo/bar
`)

	s, err := NewScanner(root, nil, nil, nil)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(result.Dockerfiles) != 1 {
		t.Fatalf("expected 1 dockerfile, got %d", len(result.Dockerfiles))
	}
	df := result.Dockerfiles[0]
	if df.Image != "foo/bar" {
		t.Errorf("expected inferred image foo/bar, got %s", df.Image)
	}
	if df.Source != SourceCompose {
		t.Errorf("expected compose inference, got %s", df.Source)
	}
	// The neighboring Dockerfile also marks the compose image buildable.
	if len(result.Images) != 1 || !result.Images[0].HasBuildfile {
		t.Errorf("expected buildable image row, got %+v", result.Images)
	}
}

func TestDockerfileInferencePrefersQuadlet(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "svc")
	writeFile(t, filepath.Join(dir, "Dockerfile"), "FROM alpine\n")
	writeFile(t, filepath.Join(dir, "svc.container"), dbQuadlet)
	writeFile(t, filepath.Join(dir, "docker-compose.yml"), `
services:
  app:
    image: foo/bar
`)

	s, err := NewScanner(root, nil, nil, nil)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(result.Dockerfiles) != 1 {
		t.Fatalf("expected 1 dockerfile, got %d", len(result.Dockerfiles))
	}
	df := result.Dockerfiles[0]
	if df.Source != SourceQuadlet {
		t.Errorf("expected quadlet inference, got %s", df.Source)
	}
	if df.Image != "docker.io/library/postgres:16" {
		t.Errorf("unexpected inferred image: %s", df.Image)
	}
	if df.QuadletBasename != "svc" {
		t.Errorf("expected quadlet basename svc, got %s", df.QuadletBasename)
	}
}

func TestDockerfileInferenceLocalhostFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Widget", "Dockerfile"), "FROM alpine\n")

	s, err := NewScanner(root, nil, nil, nil)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	result, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(result.Dockerfiles) != 1 {
		t.Fatalf("expected 1 dockerfile, got %d", len(result.Dockerfiles))
	}
	df := result.Dockerfiles[0]
	if df.Image != "localhost/widget" {
		t.Errorf("expected localhost/widget, got %s", df.Image)
	}
	if df.Source != SourceLocalhost {
		t.Errorf("expected localhost inference, got %s", df.Source)
	}
}

func TestNormalizeRef(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"redis:7", "docker.io/library/redis:7"},
		{"redis", "docker.io/library/redis:latest"},
		{"example.com/acme/web:1.4", "example.com/acme/web:1.4"},
		{"localhost/widget", "localhost/widget:latest"},
		{"not a ref!!", "not a ref!!"},
	}
	for _, c := range cases {
		if got := NormalizeRef(c.in); got != c.want {
			t.Errorf("NormalizeRef(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	// Two spellings of the same image must share one dedup key.
	if NormalizeRef("redis") != NormalizeRef("docker.io/library/redis:latest") {
		t.Error("equivalent references should normalize identically")
	}
}
