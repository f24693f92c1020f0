// Package tui provides the interactive terminal interface for podmgr.
package tui

import (
	"time"

	"github.com/tuanbt/podmgr/internal/discover"
	"github.com/tuanbt/podmgr/internal/worker"
)

// ScanDoneMsg delivers a completed discovery scan. Err is set only for
// fatal scan failures; per-item problems travel as Result.Warnings.
type ScanDoneMsg struct {
	Result discover.Result
	Err    error
}

// RunnerEventMsg wraps one worker event (an output line or a completion)
// into the bubbletea message stream.
type RunnerEventMsg worker.Event

// TickMsg drives the spinner while a job is running.
type TickMsg time.Time

// RescanNeededMsg signals that a watched file under the scan root changed
// and the discovery results are stale.
type RescanNeededMsg struct{}

// WatcherErrorMsg signals that the filesystem watcher stopped. The UI
// keeps working without automatic rescans.
type WatcherErrorMsg struct {
	Err error
}

// DetailsMsg delivers the expansion payload fetched for an image row.
type DetailsMsg struct {
	Key     string
	Details ImageDetails
}

// InterruptMsg is the OS interrupt routed through the message stream,
// so Update never reads signal state directly.
type InterruptMsg struct{}
