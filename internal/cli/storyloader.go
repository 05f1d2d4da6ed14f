package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/cadence/pkg/adapters/file"
	"github.com/aretw0/cadence/pkg/adapters/loam"
	"github.com/aretw0/cadence/pkg/ports"
)

// newStoryLoader picks the loader a path implies: a directory is a loam
// story repository (story.yaml plus markdown beats), a .yaml/.yml/.json
// file is a single-document story.
func newStoryLoader(path string) (ports.StoryLoader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("story path: %w", err)
	}

	if info.IsDir() {
		loader, err := loam.NewFromPath(path)
		if err != nil {
			return nil, fmt.Errorf("opening story repository: %w", err)
		}
		return loader, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return file.New(path), nil
	}
	return nil, fmt.Errorf("unsupported story path %q: want a directory or a .yaml/.json file", path)
}
