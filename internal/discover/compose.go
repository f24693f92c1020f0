package discover

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Image         string        `yaml:"image"`
	ContainerName string        `yaml:"container_name"`
	Build         *composeBuild `yaml:"build"`
}

// composeBuild accepts both the short form (`build: ./dir`) and the long
// form (`build: {context: ./dir, dockerfile: Dockerfile.web}`).
type composeBuild struct {
	Context    string
	Dockerfile string
}

func (b *composeBuild) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		b.Context = node.Value
		return nil
	case yaml.MappingNode:
		var long struct {
			Context    string `yaml:"context"`
			Dockerfile string `yaml:"dockerfile"`
		}
		if err := node.Decode(&long); err != nil {
			return err
		}
		b.Context = long.Context
		b.Dockerfile = long.Dockerfile
		return nil
	default:
		return fmt.Errorf("unexpected yaml node kind %d for build", node.Kind)
	}
}

// composeEntry is one service's worth of discovery data.
type composeEntry struct {
	Image     string
	Container string
	HasBuild  bool
}

// parseComposeFile extracts image references from a docker-compose file.
// Services without an image reference are skipped.
func parseComposeFile(path string) ([]composeEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cf composeFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse compose file: %w", err)
	}

	var entries []composeEntry
	for name, svc := range cf.Services {
		if svc.Image == "" {
			continue
		}
		container := svc.ContainerName
		if container == "" {
			container = name
		}
		entries = append(entries, composeEntry{
			Image:     svc.Image,
			Container: container,
			HasBuild:  svc.Build != nil,
		})
	}
	return entries, nil
}
