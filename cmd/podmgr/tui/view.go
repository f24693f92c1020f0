package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/tuanbt/podmgr/internal/queue"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

const (
	headerHeight = 1
	outputHeight = 10
	footerHeight = 2
)

// listHeight is how many item rows fit between header and output panel.
func (m Model) listHeight() int {
	h := m.Height - headerHeight - outputHeight - footerHeight
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	if m.Width == 0 {
		return "starting..."
	}
	if m.State == StateScanning {
		return StyleHeader.Width(m.Width).Render(" podmgr ") + "\n\n scanning " + m.Config.ScanRoot + " ..."
	}

	sections := []string{
		m.viewHeader(),
		m.viewList(),
		m.viewOutput(),
		m.viewFooter(),
	}
	frame := lipgloss.JoinVertical(lipgloss.Left, sections...)

	if m.ShowQueue {
		return m.overlayQueue(frame)
	}
	return frame
}

func (m Model) viewHeader() string {
	var modes []string
	for mode := ViewByImage; mode <= ViewByDockerfile; mode++ {
		label := mode.String()
		if mode == m.Mode {
			modes = append(modes, StyleModeActive.Render(label))
		} else {
			modes = append(modes, StyleModeInactive.Render(label))
		}
	}

	left := fmt.Sprintf(" podmgr | %d images | queue: %d ", len(m.Items), m.Queue.Len())
	if m.WarningNote != "" {
		left += "| " + m.WarningNote + " "
	}
	return StyleHeader.Width(m.Width).Render(left + "| " + strings.Join(modes, " "))
}

func (m Model) viewList() string {
	height := m.listHeight()
	if len(m.Rows) == 0 {
		return StyleStatusLine.Render("  no items discovered") + strings.Repeat("\n", height-1)
	}
	var b strings.Builder

	end := m.Scroll + height
	if end > len(m.Rows) {
		end = len(m.Rows)
	}

	lines := 0
	for i := m.Scroll; i < end; i++ {
		row := m.Rows[i]
		line := m.renderRow(row, i == m.Cursor)
		b.WriteString(line + "\n")
		lines++

		if row.Kind != RowFolder && m.Expanded[row.Key] && lines < height {
			for _, d := range m.renderDetails(row) {
				if lines >= height {
					break
				}
				b.WriteString(d + "\n")
				lines++
			}
		}
	}
	for ; lines < height; lines++ {
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderRow(row Row, cursor bool) string {
	mark := "[ ]"
	if row.Kind == RowFolder {
		mark = " > "
	} else if m.Selected[row.Key] {
		mark = "[x]"
	}

	flag := ""
	if row.Image != nil && row.Image.HasBuildfile {
		flag = " *"
	}

	text := fmt.Sprintf("%s %s%s", mark, row.Label, flag)
	text = runewidth.Truncate(text, max(m.Width-4, 10), "…")

	if cursor {
		return StyleCursorRow.Render(text)
	}
	return StyleRow.Render(text)
}

func (m Model) renderDetails(row Row) []string {
	var out []string
	if row.Image != nil {
		out = append(out, StyleDetail.Render("from "+row.Image.EntryPath))
		if d, ok := m.Details[row.Key]; ok {
			switch {
			case d.Err != nil:
				out = append(out, StyleDetail.Render("not present locally"))
			case !d.Created.IsZero():
				out = append(out, StyleDetail.Render("created "+d.Created.Format("2006-01-02 15:04")))
			}
			extras := []string{}
			if d.HasDockerfile {
				extras = append(extras, "Dockerfile")
			}
			if d.HasMakefile {
				extras = append(extras, "Makefile")
			}
			if len(extras) > 0 {
				out = append(out, StyleDetail.Render("has "+strings.Join(extras, ", ")))
			}
		} else {
			out = append(out, StyleDetail.Render("loading details..."))
		}
	}
	if row.Dockerfile != nil {
		out = append(out, StyleDetail.Render(row.Dockerfile.DockerfilePath))
		out = append(out, StyleDetail.Render("inferred from "+row.Dockerfile.Source.String()))
	}
	return out
}

func (m Model) viewOutput() string {
	job := m.searchTarget()
	inner := max(m.Width-2, 20)

	if job == nil {
		body := StyleStatusLine.Render(" no job output")
		return StylePanel.Width(inner).Height(outputHeight - 2).Render(body)
	}

	title := fmt.Sprintf(" job %d %s %s %s", job.ID, job.Spec.Action, job.Spec.Image, m.renderStatus(job))
	lines := job.Output()

	// Show the tail, or center on the active search match.
	visible := outputHeight - 3
	start := len(lines) - visible
	if len(m.Matches) > 0 && m.MatchIdx < len(m.Matches) {
		start = m.Matches[m.MatchIdx] - visible/2
	}
	if start > len(lines)-visible {
		start = len(lines) - visible
	}
	if start < 0 {
		start = 0
	}
	end := min(start+visible, len(lines))

	var b strings.Builder
	b.WriteString(title + "\n")
	for i := start; i < end; i++ {
		line := runewidth.Truncate(lines[i], inner-1, "…")
		if m.SearchPattern != "" && len(m.Matches) > 0 && i == m.Matches[m.MatchIdx] {
			line = StyleMatch.Render(line)
		}
		b.WriteString(" " + line + "\n")
	}
	if job.Status == queue.StatusFailed && job.FailReason != "" {
		b.WriteString(StyleStatusFailed.Render(" " + job.FailReason))
	}

	return StylePanel.Width(inner).Height(outputHeight - 2).Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) renderStatus(job *queue.Job) string {
	switch job.Status {
	case queue.StatusRunning:
		return StyleStatusRunning.Render(spinnerFrames[m.Spinner%len(spinnerFrames)] + " running")
	case queue.StatusSucceeded:
		return StyleStatusSucceeded.Render("succeeded")
	case queue.StatusFailed:
		return StyleStatusFailed.Render("failed")
	case queue.StatusCancelled:
		return StyleStatusCancelled.Render("cancelled")
	default:
		return job.Status.String()
	}
}

func (m Model) viewFooter() string {
	if m.SearchInput {
		return m.SearchBox.View()
	}

	status := m.Status
	if m.SearchPattern != "" {
		status = fmt.Sprintf("%s | match %d/%d for %q", status, min(m.MatchIdx+1, len(m.Matches)), len(m.Matches), m.SearchPattern)
	}
	help := "space select | a all | enter expand | v view | r rebuild | p pull | w queue | / search | q quit"
	return StyleStatusLine.Render(" "+status) + "\n" + StyleStatusLine.Render(" "+runewidth.Truncate(help, max(m.Width-2, 20), "…"))
}

// overlayQueue draws the pending-work modal centered over the frame.
func (m Model) overlayQueue(frame string) string {
	pending := m.Queue.Pending()
	var b strings.Builder
	b.WriteString("work queue\n\n")
	if m.Active != nil {
		b.WriteString(fmt.Sprintf("  active: job %d %s %s\n", m.Active.ID, m.Active.Spec.Action, m.Active.Spec.Image))
	}
	if len(pending) == 0 {
		b.WriteString("  nothing pending")
	}
	for i, spec := range pending {
		b.WriteString(fmt.Sprintf("  %2d. %s %s\n", i+1, spec.Action, spec.Image))
	}

	modal := StyleModal.Render(b.String())
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, modal)
}
