package tui

import (
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"

	"github.com/tuanbt/podmgr/internal/config"
	"github.com/tuanbt/podmgr/internal/discover"
	"github.com/tuanbt/podmgr/internal/podman"
	"github.com/tuanbt/podmgr/internal/queue"
	"github.com/tuanbt/podmgr/internal/worker"
)

// ViewMode selects how discovered items are grouped and listed.
type ViewMode int

const (
	ViewByImage ViewMode = iota
	ViewByContainer
	ViewByFolder
	ViewByDockerfile
)

func (v ViewMode) String() string {
	switch v {
	case ViewByContainer:
		return "containers"
	case ViewByFolder:
		return "folders"
	case ViewByDockerfile:
		return "dockerfiles"
	default:
		return "images"
	}
}

// AppState is the coarse lifecycle phase of the session.
type AppState int

const (
	StateScanning AppState = iota
	StateReady
)

// RowKind says what a list row represents in the current view mode.
type RowKind int

const (
	RowImage RowKind = iota
	RowFolder
	RowDockerfile
)

// Row is one renderable line of the item list, projected from the
// discovery results for the current view mode.
type Row struct {
	Kind RowKind

	// Key identifies the row across projections: the normalized image
	// reference for image rows, the directory for folder rows, the
	// Dockerfile path for Dockerfile rows.
	Key   string
	Label string

	Image      *discover.DiscoveredImage
	Dockerfile *discover.DockerfileInference
}

// ImageDetails is the asynchronously fetched expansion payload for an
// image row.
type ImageDetails struct {
	Created       time.Time
	HasDockerfile bool
	HasMakefile   bool
	Err           error
}

// Model is the complete UI state. It changes only inside Update.
type Model struct {
	// Collaborators, fixed at construction.
	Config  *config.Config
	Scanner *discover.Scanner
	Runtime podman.Runtime
	Runner  *worker.Runner
	Logger  *slog.Logger

	State AppState
	Mode  ViewMode

	// Discovery results, replaced wholesale on each scan.
	Items       []discover.DiscoveredImage
	Dockerfiles []discover.DockerfileInference
	WarningNote string

	// Rows is the projection of Items/Dockerfiles for Mode; Folder is
	// the drill-down directory in folder view ("" at top level).
	Rows   []Row
	Folder string

	Cursor   int
	Scroll   int
	Selected map[string]bool
	Expanded map[string]bool
	Details  map[string]ImageDetails

	Width  int
	Height int

	// Job state. Queue reserves dedup keys until a terminal status.
	Queue     *queue.Queue
	Active    *queue.Job
	History   []*queue.Job
	NextJobID int
	ShowQueue bool

	// Output search over the active (or last finished) job's log.
	SearchInput   bool
	SearchBox     textinput.Model
	SearchPattern string
	SearchReverse bool
	Matches       []int
	MatchIdx      int

	Spinner  int
	Status   string
	Quitting bool

	// autoQueued guards the one-shot rebuild-all trigger.
	autoQueued bool
}

// NewModel seeds the initial state from validated configuration.
func NewModel(cfg *config.Config, scanner *discover.Scanner, runtime podman.Runtime, runner *worker.Runner, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	search := textinput.New()
	search.Prompt = "/"
	search.CharLimit = 128
	return Model{
		Config:    cfg,
		Scanner:   scanner,
		Runtime:   runtime,
		Runner:    runner,
		Logger:    logger,
		State:     StateScanning,
		Mode:      ViewByImage,
		Selected:  map[string]bool{},
		Expanded:  map[string]bool{},
		Details:   map[string]ImageDetails{},
		Queue:     queue.New(),
		NextJobID: 1,
		SearchBox: search,
		Status:    "scanning...",
	}
}

// CurrentRow returns the row under the cursor, if any.
func (m Model) CurrentRow() (Row, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Rows) {
		return Row{}, false
	}
	return m.Rows[m.Cursor], true
}

// searchTarget is the job whose output search and the output panel show:
// the active job, else the most recently finished one.
func (m Model) searchTarget() *queue.Job {
	if m.Active != nil {
		return m.Active
	}
	if n := len(m.History); n > 0 {
		return m.History[n-1]
	}
	return nil
}
