package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tuanbt/podmgr/internal/discover"
	"github.com/tuanbt/podmgr/internal/queue"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		scanCmd(m.Scanner),
		listenRunner(m.Runner),
		watchScanRoot(m.Config.ScanRoot),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		// Layout only. Selection and job state are untouched.
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case ScanDoneMsg:
		return m.handleScanDone(msg)

	case RunnerEventMsg:
		return m.handleRunnerEvent(msg)

	case TickMsg:
		if m.Active == nil {
			// Nothing timer-driven is due: the model is unchanged and
			// the timer is not re-armed.
			return m, nil
		}
		m.Spinner++
		return m, tickCmd()

	case RescanNeededMsg:
		m.Status = "change detected, rescanning..."
		return m, tea.Batch(scanCmd(m.Scanner), watchScanRoot(m.Config.ScanRoot))

	case WatcherErrorMsg:
		if msg.Err != nil {
			m.Logger.Warn("file watcher stopped", "error", msg.Err)
		}
		return m, nil

	case DetailsMsg:
		m.Details[msg.Key] = msg.Details
		return m, nil

	case InterruptMsg:
		return m.handleInterrupt()
	}

	return m, nil
}

func (m Model) handleScanDone(msg ScanDoneMsg) (tea.Model, tea.Cmd) {
	m.State = StateReady
	if msg.Err != nil {
		m.Status = fmt.Sprintf("scan failed: %v", msg.Err)
		return m, nil
	}

	m.Items = msg.Result.Images
	m.Dockerfiles = msg.Result.Dockerfiles
	if n := len(msg.Result.Warnings); n > 0 {
		m.WarningNote = fmt.Sprintf("%d entries skipped", n)
	} else {
		m.WarningNote = ""
	}
	m.Rows = projectRows(m)
	m = clampCursor(m)
	m.Status = fmt.Sprintf("%d images discovered", len(m.Items))

	if m.Config.RebuildAll && !m.autoQueued {
		m.autoQueued = true
		return m.enqueueAll()
	}
	return m, nil
}

func (m Model) handleRunnerEvent(msg RunnerEventMsg) (tea.Model, tea.Cmd) {
	// Always re-arm the listener so the event channel keeps draining.
	cmds := []tea.Cmd{listenRunner(m.Runner)}

	if m.Active == nil || msg.JobID != m.Active.ID {
		// Stale event from an already finalized job.
		return m, tea.Batch(cmds...)
	}

	if !msg.Done {
		// Output lines apply only while the job is still running, so a
		// just-cancelled job cannot grow its log.
		if m.Active.Status == queue.StatusRunning {
			m.Active.AppendOutput(msg.Line)
			m = refreshSearch(m)
		}
		return m, tea.Batch(cmds...)
	}

	// Exactly one completion per job id finalizes the record. A job the
	// user already marked cancelled keeps that status.
	if !m.Active.Status.IsTerminal() {
		switch msg.Status {
		case queue.StatusSucceeded:
			m.Active.MarkSucceeded()
		case queue.StatusCancelled:
			m.Active.MarkCancelled()
		default:
			reason := "unknown failure"
			if msg.Err != nil {
				reason = msg.Err.Error()
			}
			m.Active.MarkFailed(reason)
		}
	}

	m.Queue.Release(m.Active.Spec.DedupKey)
	m.History = append(m.History, m.Active)
	m.Status = fmt.Sprintf("job %d %s: %s", m.Active.ID, m.Active.Status, m.Active.Spec.Image)
	m.Active = nil
	m = refreshSearch(m)

	if m.Quitting {
		return m, tea.Quit
	}

	next, cmd := m.startNext()
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	return next, tea.Batch(cmds...)
}

func (m Model) handleInterrupt() (tea.Model, tea.Cmd) {
	if m.Active != nil && m.Active.Status == queue.StatusRunning {
		// Cancel the running job; the worker still reports its single
		// terminal completion, which releases the dedup key.
		m.Active.MarkCancelled()
		m.Status = fmt.Sprintf("cancelling job %d...", m.Active.ID)
		return m, cancelJobCmd(m.Runner, m.Active.ID)
	}
	m.Quitting = true
	return m, tea.Quit
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.SearchInput {
		return m.handleSearchKey(msg)
	}

	key := msg.String()

	if m.ShowQueue {
		switch key {
		case "w", "esc", "q", "enter":
			m.ShowQueue = false
		}
		return m, nil
	}

	switch key {
	case "ctrl+c":
		return m.handleInterrupt()

	case "q":
		if m.Active != nil && m.Active.Status == queue.StatusRunning {
			m.Quitting = true
			m.Active.MarkCancelled()
			m.Status = "cancelling and quitting..."
			return m, cancelJobCmd(m.Runner, m.Active.ID)
		}
		m.Quitting = true
		return m, tea.Quit

	case "j", "down":
		if m.Cursor < len(m.Rows)-1 {
			m.Cursor++
		}
		return m.scrollToCursor(), nil

	case "k", "up":
		if m.Cursor > 0 {
			m.Cursor--
		}
		return m.scrollToCursor(), nil

	case "g", "home":
		m.Cursor = 0
		return m.scrollToCursor(), nil

	case "G", "end":
		m.Cursor = len(m.Rows) - 1
		if m.Cursor < 0 {
			m.Cursor = 0
		}
		return m.scrollToCursor(), nil

	case " ":
		if row, ok := m.CurrentRow(); ok && row.Kind != RowFolder {
			m.Selected[row.Key] = !m.Selected[row.Key]
		}
		return m, nil

	case "a":
		return m.toggleSelectAll(), nil

	case "enter", "l":
		return m.handleEnter()

	case "h", "backspace":
		if m.Mode == ViewByFolder && m.Folder != "" {
			m.Folder = ""
			m.Rows = projectRows(m)
			return clampCursor(m), nil
		}
		return m, nil

	case "v", "tab":
		m.Mode = (m.Mode + 1) % 4
		m.Folder = ""
		m.Rows = projectRows(m)
		return clampCursor(m), nil

	case "r":
		return m.enqueueSelected(queue.ActionBuild)

	case "p":
		return m.enqueueSelected(queue.ActionPull)

	case "w":
		m.ShowQueue = true
		return m, nil

	case "s":
		m.Status = "rescanning..."
		return m, scanCmd(m.Scanner)

	case "/":
		return m.beginSearch(false)

	case "?":
		return m.beginSearch(true)

	case "n":
		m.MatchIdx = nextMatchIdx(m.MatchIdx, len(m.Matches), m.SearchReverse)
		return m, nil

	case "N":
		m.MatchIdx = nextMatchIdx(m.MatchIdx, len(m.Matches), !m.SearchReverse)
		return m, nil

	case "esc":
		m.SearchPattern = ""
		m.Matches = nil
		m.MatchIdx = 0
		return m, nil
	}

	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.SearchInput = false
		m.SearchPattern = m.SearchBox.Value()
		m.SearchBox.Blur()
		m.MatchIdx = 0
		return refreshSearch(m), nil
	case "esc":
		m.SearchInput = false
		m.SearchBox.Blur()
		return m, nil
	default:
		var cmd tea.Cmd
		m.SearchBox, cmd = m.SearchBox.Update(msg)
		return m, cmd
	}
}

func (m Model) beginSearch(reverse bool) (tea.Model, tea.Cmd) {
	m.SearchInput = true
	m.SearchReverse = reverse
	m.SearchBox.SetValue("")
	if reverse {
		m.SearchBox.Prompt = "?"
	} else {
		m.SearchBox.Prompt = "/"
	}
	m.SearchBox.Focus()
	return m, textinput.Blink
}

func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	row, ok := m.CurrentRow()
	if !ok {
		return m, nil
	}

	if row.Kind == RowFolder {
		m.Folder = row.Key
		m.Rows = projectRows(m)
		m.Cursor = 0
		m.Scroll = 0
		return m, nil
	}

	m.Expanded[row.Key] = !m.Expanded[row.Key]
	if m.Expanded[row.Key] && row.Image != nil {
		if _, have := m.Details[row.Key]; !have {
			return m, fetchDetailsCmd(m.Runtime, row.Key, *row.Image)
		}
	}
	return m, nil
}

func (m Model) toggleSelectAll() Model {
	all := true
	for _, row := range m.Rows {
		if row.Kind == RowFolder {
			continue
		}
		if !m.Selected[row.Key] {
			all = false
			break
		}
	}
	for _, row := range m.Rows {
		if row.Kind == RowFolder {
			continue
		}
		m.Selected[row.Key] = !all
	}
	return m
}

// enqueueSelected turns the checked rows (or the cursor row when nothing
// is checked) into job specs and folds them into the queue.
func (m Model) enqueueSelected(action queue.Action) (tea.Model, tea.Cmd) {
	var specs []queue.Spec
	picked := false
	for _, row := range m.Rows {
		if row.Kind == RowFolder || !m.Selected[row.Key] {
			continue
		}
		picked = true
		specs = append(specs, specForRow(row, m.Config.BuildArgs, m.Config.NoCache, action))
	}
	if !picked {
		if row, ok := m.CurrentRow(); ok && row.Kind != RowFolder {
			specs = append(specs, specForRow(row, m.Config.BuildArgs, m.Config.NoCache, action))
		}
	}
	if len(specs) == 0 {
		m.Status = "nothing selected"
		return m, nil
	}
	return m.enqueueSpecs(specs)
}

func (m Model) enqueueAll() (tea.Model, tea.Cmd) {
	specs := make([]queue.Spec, 0, len(m.Items))
	for i := range m.Items {
		img := &m.Items[i]
		action := queue.ActionPull
		if img.HasBuildfile {
			action = queue.ActionBuild
		}
		specs = append(specs, queue.Spec{
			Image:      img.Image,
			DedupKey:   discover.NormalizeRef(img.Image),
			Container:  img.Container,
			ContextDir: img.SourceDir,
			EntryPath:  img.EntryPath,
			BuildArgs:  m.Config.BuildArgs,
			NoCache:    m.Config.NoCache,
			Action:     action,
		})
	}
	return m.enqueueSpecs(specs)
}

// enqueueSpecs folds specs into the queue one at a time. Duplicate keys
// are refused, counted and surfaced in the status line; the queue stays
// valid throughout.
func (m Model) enqueueSpecs(specs []queue.Spec) (tea.Model, tea.Cmd) {
	added, rejected := 0, 0
	for _, spec := range specs {
		if err := m.Queue.Enqueue(spec); err != nil {
			if errors.Is(err, queue.ErrDuplicate) {
				rejected++
				continue
			}
			m.Status = fmt.Sprintf("enqueue failed: %v", err)
			return m, nil
		}
		added++
	}

	m.Status = fmt.Sprintf("%d queued", added)
	if rejected > 0 {
		m.Status = fmt.Sprintf("%d queued, %d already queued or running", added, rejected)
	}

	if m.Active == nil {
		next, cmd := m.startNext()
		return next, cmd
	}
	return m, nil
}

// startNext pops the queue head into a fresh job. The dedup key remains
// reserved until the job's completion releases it.
func (m Model) startNext() (Model, tea.Cmd) {
	spec, ok := m.Queue.Next()
	if !ok {
		return m, nil
	}

	job := queue.NewJob(m.NextJobID, spec, m.Config.OutputLineLimit)
	m.NextJobID++
	m.Active = job
	m.Status = fmt.Sprintf("job %d %s: %s", job.ID, spec.Action, spec.Image)
	m.Logger.Info("job dispatched", "job_id", job.ID, "image", spec.Image, "action", spec.Action.String())

	return m, tea.Batch(startJobCmd(m.Runner, job.ID, spec), tickCmd())
}

func (m Model) scrollToCursor() Model {
	visible := m.listHeight()
	if visible < 1 {
		visible = 1
	}
	if m.Cursor < m.Scroll {
		m.Scroll = m.Cursor
	}
	if m.Cursor >= m.Scroll+visible {
		m.Scroll = m.Cursor - visible + 1
	}
	return m
}

func specForRow(row Row, buildArgs []string, noCache bool, action queue.Action) queue.Spec {
	if row.Kind == RowDockerfile && row.Dockerfile != nil {
		df := row.Dockerfile
		return queue.Spec{
			Image:      df.Image,
			DedupKey:   discover.NormalizeRef(df.Image),
			ContextDir: df.SourceDir,
			Dockerfile: df.DockerfilePath,
			BuildArgs:  buildArgs,
			NoCache:    noCache,
			Action:     queue.ActionBuild,
		}
	}

	img := row.Image
	spec := queue.Spec{
		Image:      img.Image,
		DedupKey:   row.Key,
		Container:  img.Container,
		ContextDir: img.SourceDir,
		EntryPath:  img.EntryPath,
		BuildArgs:  buildArgs,
		NoCache:    noCache,
		Action:     action,
	}
	if action == queue.ActionBuild && !img.HasBuildfile {
		spec.Action = queue.ActionPull
	}
	return spec
}
