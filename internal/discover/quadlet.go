package discover

import (
	"bufio"
	"os"
	"strings"
)

// quadletEntry holds the fields read from a .container unit.
type quadletEntry struct {
	Image     string
	Container string
}

// parseQuadletFile reads the [Container] section of a podman quadlet unit.
// Quadlet units are systemd-style ini files, so parsing is line-oriented.
func parseQuadletFile(path string) (quadletEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return quadletEntry{}, err
	}
	defer file.Close()

	var entry quadletEntry
	inContainer := false

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			inContainer = strings.EqualFold(line, "[Container]")
			continue
		}
		if !inContainer {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Image":
			entry.Image = value
		case "ContainerName":
			entry.Container = value
		}
	}
	if err := scanner.Err(); err != nil {
		return quadletEntry{}, err
	}

	return entry, nil
}
