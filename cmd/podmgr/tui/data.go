package tui

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/tuanbt/podmgr/internal/discover"
)

// projectRows rebuilds the row list for the current view mode. Pure:
// reads Items/Dockerfiles/Mode/Folder, touches nothing else.
func projectRows(m Model) []Row {
	switch m.Mode {
	case ViewByContainer:
		return containerRows(m.Items)
	case ViewByFolder:
		return folderRows(m.Items, m.Folder)
	case ViewByDockerfile:
		return dockerfileRows(m.Dockerfiles)
	default:
		return imageRows(m.Items)
	}
}

func imageRows(items []discover.DiscoveredImage) []Row {
	rows := make([]Row, 0, len(items))
	for i := range items {
		img := &items[i]
		rows = append(rows, Row{
			Kind:  RowImage,
			Key:   discover.NormalizeRef(img.Image),
			Label: img.Image,
			Image: img,
		})
	}
	return rows
}

func containerRows(items []discover.DiscoveredImage) []Row {
	var rows []Row
	for i := range items {
		img := &items[i]
		if img.Container == "" {
			continue
		}
		rows = append(rows, Row{
			Kind:  RowImage,
			Key:   discover.NormalizeRef(img.Image),
			Label: fmt.Sprintf("%s (%s)", img.Container, img.Image),
			Image: img,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Label < rows[j].Label })
	return rows
}

// folderRows lists distinct source directories at the top level, or the
// images of one directory when drilled in.
func folderRows(items []discover.DiscoveredImage, folder string) []Row {
	if folder != "" {
		var rows []Row
		for i := range items {
			img := &items[i]
			if img.SourceDir != folder {
				continue
			}
			rows = append(rows, Row{
				Kind:  RowImage,
				Key:   discover.NormalizeRef(img.Image),
				Label: img.Image,
				Image: img,
			})
		}
		return rows
	}

	counts := map[string]int{}
	for _, img := range items {
		counts[img.SourceDir]++
	}
	dirs := make([]string, 0, len(counts))
	for dir := range counts {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	rows := make([]Row, 0, len(dirs))
	for _, dir := range dirs {
		rows = append(rows, Row{
			Kind:  RowFolder,
			Key:   dir,
			Label: fmt.Sprintf("%s/ (%d)", filepath.Base(dir), counts[dir]),
		})
	}
	return rows
}

func dockerfileRows(dockerfiles []discover.DockerfileInference) []Row {
	rows := make([]Row, 0, len(dockerfiles))
	for i := range dockerfiles {
		df := &dockerfiles[i]
		label := fmt.Sprintf("%s -> %s [%s]", df.Basename, df.Image, df.Source)
		rows = append(rows, Row{
			Kind:       RowDockerfile,
			Key:        df.DockerfilePath,
			Label:      label,
			Dockerfile: df,
		})
	}
	return rows
}

// clampCursor keeps cursor and scroll inside the row list after a
// projection change.
func clampCursor(m Model) Model {
	if m.Cursor >= len(m.Rows) {
		m.Cursor = len(m.Rows) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	if m.Scroll > m.Cursor {
		m.Scroll = m.Cursor
	}
	if m.Scroll < 0 {
		m.Scroll = 0
	}
	return m
}
