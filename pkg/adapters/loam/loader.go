package loam

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/cadence/internal/dto"
	"github.com/aretw0/cadence/pkg/domain"
)

// manifestID is the reserved document id of the optional story manifest; a
// beat cannot use it.
const manifestID = "story"

// manifest is the optional story.yaml at the repository root: naming,
// settings, and an explicit beat order.
type manifest struct {
	Name     string          `yaml:"name"`
	Title    string          `yaml:"title"`
	Settings dto.SettingsDoc `yaml:"settings"`
	Beats    []string        `yaml:"beats"`
}

// Loader adapts a Loam repository of beat documents to the StoryLoader port.
// Beats are markdown files with frontmatter; navigation order comes from the
// manifest's beats list, from explicit position fields, or from the document
// id as a last resort.
type Loader struct {
	Repo *loam.TypedRepository[BeatMetadata]
	root string
}

// New creates a Loam adapter over an initialized typed repository. Without a
// root path no manifest is read; use NewFromPath for the full convention.
func New(repo *loam.TypedRepository[BeatMetadata]) *Loader {
	return &Loader{Repo: repo}
}

// NewFromPath initializes a Loam repository at path and wraps it.
func NewFromPath(path string) (*Loader, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode keeps numeric types consistent across the JSON and
	// Markdown/YAML adapters; read-only avoids Loam's sandbox behavior in
	// dev mode. The loader never modifies the story structure.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}

	return &Loader{
		Repo: loam.NewTypedRepository[BeatMetadata](repo),
		root: absPath,
	}, nil
}

type beatEntry struct {
	id       string
	docID    string
	meta     BeatMetadata
	content  string
	position *int
}

// Load assembles the story document from the repository and its manifest.
func (l *Loader) Load(ctx context.Context) (*domain.StoryDocument, error) {
	man, err := l.readManifest()
	if err != nil {
		return nil, err
	}

	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	entries := make([]beatEntry, 0, len(docs))
	byID := make(map[string]int)
	seen := make(map[string]string)

	for _, doc := range docs {
		// Use the id from metadata if available, otherwise the filename id.
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)
		if id == manifestID {
			continue
		}

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: beat %q is defined in both %q and %q", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID

		byID[id] = len(entries)
		entries = append(entries, beatEntry{
			id:       id,
			docID:    doc.ID,
			meta:     doc.Data,
			content:  doc.Content,
			position: doc.Data.Position,
		})
	}

	ordered, err := orderEntries(entries, byID, man.Beats)
	if err != nil {
		return nil, err
	}

	beats := make([]domain.Beat, 0, len(ordered))
	for _, e := range ordered {
		beats = append(beats, domain.Beat{ID: domain.BeatID(e.id), State: e.beatState()})
	}

	settings, err := man.Settings.Apply(domain.DefaultSettings())
	if err != nil {
		return nil, err
	}

	name := man.Name
	if name == "" && l.root != "" {
		name = filepath.Base(l.root)
	}

	return &domain.StoryDocument{
		Name:     name,
		Title:    man.Title,
		Beats:    beats,
		Settings: settings,
	}, nil
}

// Watch signals whenever any story file changes, so hosts can rebuild.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	// Watch all relevant files (recursive) using the doublestar pattern
	// supported by Loam; this avoids a manual filtering loop.
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				// Coalesce: one pending signal is enough for a reload.
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}

// readManifest loads story.yaml from the repository root if present.
func (l *Loader) readManifest() (manifest, error) {
	var man manifest
	if l.root == "" {
		return man, nil
	}
	data, err := os.ReadFile(filepath.Join(l.root, "story.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return man, nil
		}
		return man, fmt.Errorf("failed to read story manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &man); err != nil {
		return man, fmt.Errorf("failed to parse story manifest: %w", err)
	}
	return man, nil
}

// orderEntries resolves navigation order: the manifest list when present,
// explicit positions when every beat has one, document id otherwise.
func orderEntries(entries []beatEntry, byID map[string]int, manifestOrder []string) ([]beatEntry, error) {
	if len(manifestOrder) > 0 {
		ordered := make([]beatEntry, 0, len(manifestOrder))
		used := make(map[string]bool, len(manifestOrder))
		for _, id := range manifestOrder {
			id = trimExtension(id)
			if used[id] {
				return nil, fmt.Errorf("manifest lists beat %q twice", id)
			}
			used[id] = true
			idx, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("manifest lists beat %q but no document defines it", id)
			}
			ordered = append(ordered, entries[idx])
		}
		for _, e := range entries {
			if !used[e.id] {
				return nil, fmt.Errorf("beat %q exists on disk but the manifest does not list it", e.id)
			}
		}
		return ordered, nil
	}

	positioned := 0
	for _, e := range entries {
		if e.position != nil {
			positioned++
		}
	}
	switch positioned {
	case 0:
		sort.Slice(entries, func(i, j int) bool { return entries[i].docID < entries[j].docID })
		return entries, nil
	case len(entries):
		taken := make(map[int]string, len(entries))
		for _, e := range entries {
			if other, dup := taken[*e.position]; dup {
				return nil, fmt.Errorf("beats %q and %q share position %d", other, e.id, *e.position)
			}
			taken[*e.position] = e.id
		}
		sort.Slice(entries, func(i, j int) bool { return *entries[i].position < *entries[j].position })
		return entries, nil
	default:
		return nil, fmt.Errorf("either every beat declares a position or none does (%d of %d have one)", positioned, len(entries))
	}
}

// beatState merges the frontmatter state map with the recognized convention
// fields. Explicit frontmatter fields win over state entries.
func (e beatEntry) beatState() domain.BeatState {
	state := make(domain.BeatState, len(e.meta.State)+3)
	for k, v := range e.meta.State {
		state[k] = v
	}
	if e.meta.Title != "" {
		state[domain.KeyTitle] = e.meta.Title
	}
	if content := strings.TrimSpace(e.content); content != "" {
		state[domain.KeyContent] = content
	}
	if e.meta.Skip {
		state[domain.KeySkip] = true
	}
	return state
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
