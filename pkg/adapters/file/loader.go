package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/cadence/internal/dto"
	"github.com/aretw0/cadence/pkg/domain"
)

// storyFile is the on-disk shape of a single-file story (YAML or JSON).
type storyFile struct {
	Name     string          `yaml:"name" json:"name"`
	Title    string          `yaml:"title" json:"title"`
	Settings dto.SettingsDoc `yaml:"settings" json:"settings"`
	Beats    []beatDoc       `yaml:"beats" json:"beats"`
}

type beatDoc struct {
	ID      string         `yaml:"id" json:"id"`
	Title   string         `yaml:"title" json:"title"`
	Content string         `yaml:"content" json:"content"`
	Skip    bool           `yaml:"skip" json:"skip"`
	State   map[string]any `yaml:"state" json:"state"`
}

// Loader implements ports.StoryLoader for a story kept in one YAML or JSON
// file.
type Loader struct {
	path string
}

// New creates a Loader for the given file path.
func New(path string) *Loader {
	return &Loader{path: path}
}

// Load reads and parses the story file.
func (l *Loader) Load(ctx context.Context) (*domain.StoryDocument, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read story file: %w", err)
	}

	var sf storyFile
	if strings.ToLower(filepath.Ext(l.path)) == ".json" {
		if err := json.Unmarshal(data, &sf); err != nil {
			return nil, fmt.Errorf("failed to parse story json: %w", err)
		}
	} else {
		// Default to YAML
		if err := yaml.Unmarshal(data, &sf); err != nil {
			return nil, fmt.Errorf("failed to parse story yaml: %w", err)
		}
	}

	settings, err := sf.Settings.Apply(domain.DefaultSettings())
	if err != nil {
		return nil, err
	}

	beats := make([]domain.Beat, 0, len(sf.Beats))
	for i, b := range sf.Beats {
		if b.ID == "" {
			return nil, fmt.Errorf("beat %d is missing an id", i)
		}
		beats = append(beats, domain.Beat{ID: domain.BeatID(b.ID), State: b.toState()})
	}

	name := sf.Name
	if name == "" {
		base := filepath.Base(l.path)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return &domain.StoryDocument{
		Name:     name,
		Title:    sf.Title,
		Beats:    beats,
		Settings: settings,
	}, nil
}

// toState merges the free-form state map with the recognized convention
// fields. Explicit fields win over state entries of the same name.
func (b beatDoc) toState() domain.BeatState {
	state := make(domain.BeatState, len(b.State)+3)
	for k, v := range b.State {
		state[k] = v
	}
	if b.Title != "" {
		state[domain.KeyTitle] = b.Title
	}
	if b.Content != "" {
		state[domain.KeyContent] = strings.TrimSpace(b.Content)
	}
	if b.Skip {
		state[domain.KeySkip] = true
	}
	return state
}
