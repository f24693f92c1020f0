package tui

import (
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

// watchScanRoot returns a command that watches the scan root for changed
// compose files, quadlet units and Dockerfiles. It resolves to a single
// RescanNeededMsg; Update re-arms it after triggering the rescan.
func watchScanRoot(root string) tea.Cmd {
	return func() tea.Msg {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return WatcherErrorMsg{Err: err}
		}
		defer watcher.Close()

		if err := watcher.Add(root); err != nil {
			return WatcherErrorMsg{Err: err}
		}
		// Watch one level of subdirectories; deeper nesting is picked up
		// on the next manual rescan.
		if dirs, err := filepath.Glob(filepath.Join(root, "*")); err == nil {
			for _, d := range dirs {
				watcher.Add(d)
			}
		}

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return WatcherErrorMsg{}
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Remove) {
					continue
				}
				if !interestingPath(event.Name) {
					continue
				}
				// Debounce editor write bursts.
				time.Sleep(50 * time.Millisecond)
				return RescanNeededMsg{}
			case err, ok := <-watcher.Errors:
				if !ok {
					return WatcherErrorMsg{}
				}
				return WatcherErrorMsg{Err: err}
			}
		}
	}
}

func interestingPath(path string) bool {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "Dockerfile"):
		return true
	case strings.HasSuffix(base, ".container"):
		return true
	case base == "docker-compose.yml", base == "docker-compose.yaml",
		base == "compose.yml", base == "compose.yaml":
		return true
	}
	return false
}
