package tui

import (
	"context"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tuanbt/podmgr/internal/discover"
	"github.com/tuanbt/podmgr/internal/podman"
	"github.com/tuanbt/podmgr/internal/queue"
	"github.com/tuanbt/podmgr/internal/worker"
)

// scanCmd runs one discovery scan and delivers the result as a message.
func scanCmd(scanner *discover.Scanner) tea.Cmd {
	return func() tea.Msg {
		result, err := scanner.Scan(context.Background())
		return ScanDoneMsg{Result: result, Err: err}
	}
}

// listenRunner delivers the next worker event. Update re-arms it after
// every RunnerEventMsg so the channel keeps draining; each worker's
// events arrive in emission order.
func listenRunner(r *worker.Runner) tea.Cmd {
	return func() tea.Msg {
		return RunnerEventMsg(<-r.Events())
	}
}

// startJobCmd hands a popped spec to the runner under a fresh job id.
func startJobCmd(r *worker.Runner, id int, spec queue.Spec) tea.Cmd {
	return func() tea.Msg {
		r.Start(context.Background(), id, spec)
		return nil
	}
}

// cancelJobCmd asks the runner to stop a job. The job's single
// completion event still arrives through the event channel.
func cancelJobCmd(r *worker.Runner, id int) tea.Cmd {
	return func() tea.Msg {
		r.Cancel(id)
		return nil
	}
}

// fetchDetailsCmd gathers the expansion payload for an image row.
func fetchDetailsCmd(rt podman.Runtime, key string, img discover.DiscoveredImage) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var d ImageDetails
		created, err := rt.ImageCreated(ctx, img.Image)
		if err != nil {
			d.Err = err
		} else {
			d.Created = created
		}
		if _, err := os.Stat(filepath.Join(img.SourceDir, "Dockerfile")); err == nil {
			d.HasDockerfile = true
		}
		if _, err := os.Stat(filepath.Join(img.SourceDir, "Makefile")); err == nil {
			d.HasMakefile = true
		}
		return DetailsMsg{Key: key, Details: d}
	}
}

// tickCmd re-arms the spinner timer while a job is running.
func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
