package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cadence/pkg/adapters/file"
	"github.com/aretw0/cadence/pkg/adapters/loam"
)

const validStoryYAML = `
name: smoke
title: Smoke Test
beats:
  - id: intro
    title: Intro
    content: Hello.
  - id: outro
    content: Bye.
settings:
  auto_advance: false
`

func writeStoryFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewStoryLoaderPicksByPath(t *testing.T) {
	yamlPath := writeStoryFile(t, "story.yaml", validStoryYAML)
	loader, err := newStoryLoader(yamlPath)
	require.NoError(t, err)
	assert.IsType(t, &file.Loader{}, loader)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01-intro.md"), []byte("---\nid: intro\n---\nHello."), 0o644))
	loader, err = newStoryLoader(dir)
	require.NoError(t, err)
	assert.IsType(t, &loam.Loader{}, loader)
}

func TestNewStoryLoaderRejectsUnknown(t *testing.T) {
	txtPath := writeStoryFile(t, "story.txt", "not a story")
	_, err := newStoryLoader(txtPath)
	assert.ErrorContains(t, err, "unsupported story path")

	_, err = newStoryLoader(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	path := writeStoryFile(t, "story.yaml", validStoryYAML)
	assert.NoError(t, Validate(ValidateOptions{Path: path}))

	assert.NoError(t, Validate(ValidateOptions{Path: path, Mermaid: true}))

	dup := writeStoryFile(t, "dup.yaml", `
beats:
  - id: twice
  - id: twice
`)
	err := Validate(ValidateOptions{Path: dup})
	assert.ErrorContains(t, err, "error(s)")
}

func TestPlayHeadlessWalksStory(t *testing.T) {
	path := writeStoryFile(t, "story.yaml", validStoryYAML)
	assert.NoError(t, Play(PlayOptions{Path: path, Headless: true}))
}
