package dto_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cadence/internal/dto"
	"github.com/aretw0/cadence/pkg/domain"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func TestSettingsDocApplyOverlaysOnlyMentionedFields(t *testing.T) {
	base := domain.DefaultSettings()

	doc := dto.SettingsDoc{
		Start:         "intro",
		AutoAdvance:   boolPtr(false),
		BeatDuration:  "2s",
		EndOnLastBeat: boolPtr(true),
	}

	got, err := doc.Apply(base)
	require.NoError(t, err)

	id, ok := got.Start.ID()
	require.True(t, ok)
	assert.Equal(t, domain.BeatID("intro"), id)
	assert.False(t, got.AutoAdvance)
	assert.Equal(t, 2*time.Second, got.BeatDuration)
	assert.True(t, got.EndOnLastBeat)

	// Untouched fields keep the base values.
	assert.Equal(t, base.ForceManualAfter, got.ForceManualAfter)
	assert.Equal(t, base.PauseHoldThreshold, got.PauseHoldThreshold)
	assert.Equal(t, base.TickInterval, got.TickInterval)
}

func TestSettingsDocApplyNumericRefs(t *testing.T) {
	doc := dto.SettingsDoc{
		Start:            2,
		RestartTarget:    float64(1), // JSON numbers decode as float64
		ForceManualAfter: intPtr(3),
	}

	got, err := doc.Apply(domain.DefaultSettings())
	require.NoError(t, err)

	idx, ok := got.Start.Index()
	require.True(t, ok)
	assert.Equal(t, 2, idx)

	idx, ok = got.RestartTarget.Index()
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	assert.Equal(t, 3, got.ForceManualAfter)
}

func TestSettingsDocApplyRejectsBadValues(t *testing.T) {
	_, err := dto.SettingsDoc{BeatDuration: "soon"}.Apply(domain.DefaultSettings())
	assert.ErrorContains(t, err, "beat_duration")

	_, err = dto.SettingsDoc{Start: map[string]any{"no": "sense"}}.Apply(domain.DefaultSettings())
	assert.ErrorContains(t, err, "settings.start")

	_, err = dto.SettingsDoc{PauseHold: "-"}.Apply(domain.DefaultSettings())
	assert.ErrorContains(t, err, "pause_hold_threshold")
}

func TestSettingsDocApplyEmptyKeepsBase(t *testing.T) {
	base := domain.DefaultSettings()
	got, err := dto.SettingsDoc{}.Apply(base)
	require.NoError(t, err)
	assert.Equal(t, base, got)
}
