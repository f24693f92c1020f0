// Package discover locates buildable container images in a directory tree.
package discover

import (
	"github.com/distribution/reference"
)

// DiscoveredImage is one image reference collected from a compose or
// quadlet entry. Immutable once produced by a scan.
type DiscoveredImage struct {
	// Image is the reference as written in the source file.
	Image string

	// Container is the container name, when the source file declares one.
	Container string

	// SourceDir is the directory holding the entry file.
	SourceDir string

	// EntryPath is the compose or quadlet file the image came from.
	EntryPath string

	// HasBuildfile reports whether a Dockerfile sits next to the entry,
	// i.e. the image can be built locally rather than pulled.
	HasBuildfile bool
}

// InferenceSource says where a Dockerfile's image reference was taken from.
type InferenceSource int

const (
	// SourceUnknown means no neighbor supplied an image reference.
	SourceUnknown InferenceSource = iota

	// SourceQuadlet means a neighboring .container unit named the image.
	SourceQuadlet

	// SourceCompose means a single neighboring compose file named the image.
	SourceCompose

	// SourceLocalhost means the reference was synthesized from the
	// directory name under the localhost registry.
	SourceLocalhost
)

func (s InferenceSource) String() string {
	switch s {
	case SourceQuadlet:
		return "quadlet"
	case SourceCompose:
		return "compose"
	case SourceLocalhost:
		return "localhost"
	default:
		return "unknown"
	}
}

// DockerfileInference is a Dockerfile found during the scan together with
// the image reference inferred for it from its neighbors.
type DockerfileInference struct {
	DockerfilePath string
	SourceDir      string
	Basename       string

	// QuadletBasename is set when the inference came from a quadlet unit.
	QuadletBasename string

	// Image is the inferred reference; empty when nothing could be inferred.
	Image string

	Source InferenceSource
}

// WarningKind classifies per-item discovery failures.
type WarningKind int

const (
	// WarnUnreadable marks a file that could not be opened or read.
	WarnUnreadable WarningKind = iota

	// WarnMalformed marks a file whose content could not be parsed.
	WarnMalformed
)

func (k WarningKind) String() string {
	switch k {
	case WarnUnreadable:
		return "unreadable"
	case WarnMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Warning records a skipped entry. Discovery is best-effort: warnings never
// abort a scan.
type Warning struct {
	Path string
	Kind WarningKind
	Err  error
}

// Result is a complete scan outcome.
type Result struct {
	Images      []DiscoveredImage
	Dockerfiles []DockerfileInference
	Warnings    []Warning
}

// NormalizeRef canonicalizes an image reference so that equal images
// compare equal regardless of how they were written (implicit registry,
// missing tag). Used as the job dedup key. Unparseable references are
// returned as-is so they still dedup on the literal string.
func NormalizeRef(image string) string {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return image
	}
	return reference.TagNameOnly(named).String()
}
