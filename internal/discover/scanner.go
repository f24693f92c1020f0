package discover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Scanner walks a directory tree collecting image references from compose
// files, quadlet units, and Dockerfiles. One Scanner can run many scans.
type Scanner struct {
	root    string
	include []*regexp.Regexp
	exclude []*regexp.Regexp
	logger  *slog.Logger
}

// NewScanner compiles the path patterns and returns a ready scanner.
func NewScanner(root string, include, exclude []string, logger *slog.Logger) (*Scanner, error) {
	inc, err := compilePatterns(include)
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	exc, err := compilePatterns(exclude)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}
	return &Scanner{
		root:    root,
		include: inc,
		exclude: exc,
		logger:  logger,
	}, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// keepPath applies exclude patterns first, then include patterns, matching
// the original filter semantics: any exclude match drops the path, and when
// include patterns exist at least one must match.
func (s *Scanner) keepPath(path string) bool {
	for _, re := range s.exclude {
		if re.MatchString(path) {
			return false
		}
	}
	if len(s.include) == 0 {
		return true
	}
	for _, re := range s.include {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

type dedupKey struct {
	image     string
	container string
	sourceDir string
}

// Scan walks the tree once and returns everything found. Unreadable or
// malformed files become warnings; only a cancelled context or an
// unreadable root aborts the scan.
func (s *Scanner) Scan(ctx context.Context) (Result, error) {
	var result Result

	seen := make(map[dedupKey]struct{})
	dirHasDockerfile := make(map[string]bool)
	dirQuadlets := make(map[string][]DockerfileInference) // image-bearing units per dir
	dirComposeImages := make(map[string][]string)
	var dockerfiles []struct{ path, dir, base string }

	walkErr := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if path == s.root {
				return err
			}
			result.Warnings = append(result.Warnings, Warning{Path: path, Kind: WarnUnreadable, Err: err})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !s.keepPath(path) {
			return nil
		}

		base := d.Name()
		dir := filepath.Dir(path)

		switch {
		case base == "docker-compose.yml" || base == "docker-compose.yaml":
			entries, err := parseComposeFile(path)
			if err != nil {
				result.Warnings = append(result.Warnings, Warning{Path: path, Kind: classify(err), Err: err})
				return nil
			}
			for _, e := range entries {
				key := dedupKey{image: e.Image, container: e.Container, sourceDir: dir}
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				result.Images = append(result.Images, DiscoveredImage{
					Image:        e.Image,
					Container:    e.Container,
					SourceDir:    dir,
					EntryPath:    path,
					HasBuildfile: e.HasBuild,
				})
				dirComposeImages[dir] = append(dirComposeImages[dir], e.Image)
			}

		case strings.HasSuffix(base, ".container"):
			entry, err := parseQuadletFile(path)
			if err != nil {
				result.Warnings = append(result.Warnings, Warning{Path: path, Kind: classify(err), Err: err})
				return nil
			}
			if entry.Image == "" {
				return nil
			}
			key := dedupKey{image: entry.Image, container: entry.Container, sourceDir: dir}
			if _, dup := seen[key]; dup {
				return nil
			}
			seen[key] = struct{}{}
			result.Images = append(result.Images, DiscoveredImage{
				Image:     entry.Image,
				Container: entry.Container,
				SourceDir: dir,
				EntryPath: path,
			})
			dirQuadlets[dir] = append(dirQuadlets[dir], DockerfileInference{
				QuadletBasename: strings.TrimSuffix(base, ".container"),
				Image:           entry.Image,
			})

		case strings.HasPrefix(base, "Dockerfile"):
			dirHasDockerfile[dir] = true
			dockerfiles = append(dockerfiles, struct{ path, dir, base string }{path, dir, base})
		}
		return nil
	})
	if walkErr != nil {
		return Result{}, fmt.Errorf("scan of %s failed: %w", s.root, walkErr)
	}

	// A Dockerfile next to an entry means the image is locally buildable.
	for i := range result.Images {
		if dirHasDockerfile[result.Images[i].SourceDir] {
			result.Images[i].HasBuildfile = true
		}
	}

	for _, df := range dockerfiles {
		result.Dockerfiles = append(result.Dockerfiles, s.inferDockerfile(df.path, df.dir, df.base, dirQuadlets, dirComposeImages))
	}

	sort.Slice(result.Images, func(i, j int) bool {
		a, b := result.Images[i], result.Images[j]
		if a.Image != b.Image {
			return a.Image < b.Image
		}
		return a.Container < b.Container
	})
	sort.Slice(result.Dockerfiles, func(i, j int) bool {
		return result.Dockerfiles[i].DockerfilePath < result.Dockerfiles[j].DockerfilePath
	})

	if s.logger != nil {
		s.logger.Debug("scan complete",
			"images", len(result.Images),
			"dockerfiles", len(result.Dockerfiles),
			"warnings", len(result.Warnings),
		)
	}
	return result, nil
}

// inferDockerfile picks an image reference for a Dockerfile: a single
// image-bearing quadlet neighbor wins, then a single distinct compose
// image, then a localhost reference named after the directory.
func (s *Scanner) inferDockerfile(path, dir, base string, quadlets map[string][]DockerfileInference, composeImages map[string][]string) DockerfileInference {
	inf := DockerfileInference{
		DockerfilePath: path,
		SourceDir:      dir,
		Basename:       base,
		Source:         SourceUnknown,
	}

	if units := quadlets[dir]; len(units) == 1 {
		inf.Image = units[0].Image
		inf.QuadletBasename = units[0].QuadletBasename
		inf.Source = SourceQuadlet
		return inf
	}

	if distinct := distinctStrings(composeImages[dir]); len(distinct) == 1 {
		inf.Image = distinct[0]
		inf.Source = SourceCompose
		return inf
	}

	inf.Image = "localhost/" + strings.ToLower(filepath.Base(dir))
	inf.Source = SourceLocalhost
	return inf
}

func distinctStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// classify maps a parse-or-read error onto a warning kind.
func classify(err error) WarningKind {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return WarnUnreadable
	}
	return WarnMalformed
}
