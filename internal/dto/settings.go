package dto

import (
	"fmt"
	"time"

	"github.com/aretw0/cadence/pkg/domain"
)

// SettingsDoc is the serialized settings surface shared by story loaders.
// Pointer fields distinguish "absent" from zero, so documents only override
// what they actually mention. Durations are Go duration strings ("5s",
// "250ms"); beat references are a string id or an integer index.
type SettingsDoc struct {
	Start            any    `yaml:"start,omitempty" json:"start,omitempty" mapstructure:"start"`
	AutoAdvance      *bool  `yaml:"auto_advance,omitempty" json:"auto_advance,omitempty" mapstructure:"auto_advance"`
	BeatDuration     string `yaml:"beat_duration,omitempty" json:"beat_duration,omitempty" mapstructure:"beat_duration"`
	ForceManualAfter *int   `yaml:"force_manual_after,omitempty" json:"force_manual_after,omitempty" mapstructure:"force_manual_after"`
	EndOnLastBeat    *bool  `yaml:"end_on_last_beat,omitempty" json:"end_on_last_beat,omitempty" mapstructure:"end_on_last_beat"`
	RestartTarget    any    `yaml:"restart_target,omitempty" json:"restart_target,omitempty" mapstructure:"restart_target"`
	PauseHold        string `yaml:"pause_hold_threshold,omitempty" json:"pause_hold_threshold,omitempty" mapstructure:"pause_hold_threshold"`
	TickInterval     string `yaml:"tick_interval,omitempty" json:"tick_interval,omitempty" mapstructure:"tick_interval"`
}

// Apply overlays the document fields onto base and normalizes the result.
func (d SettingsDoc) Apply(base domain.Settings) (domain.Settings, error) {
	out := base

	if d.Start != nil {
		ref, err := domain.ParseRef(d.Start)
		if err != nil {
			return out, fmt.Errorf("settings.start: %w", err)
		}
		out.Start = ref
	}
	if d.AutoAdvance != nil {
		out.AutoAdvance = *d.AutoAdvance
	}
	if d.BeatDuration != "" {
		dur, err := time.ParseDuration(d.BeatDuration)
		if err != nil {
			return out, fmt.Errorf("settings.beat_duration: %w", err)
		}
		out.BeatDuration = dur
	}
	if d.ForceManualAfter != nil {
		out.ForceManualAfter = *d.ForceManualAfter
	}
	if d.EndOnLastBeat != nil {
		out.EndOnLastBeat = *d.EndOnLastBeat
	}
	if d.RestartTarget != nil {
		ref, err := domain.ParseRef(d.RestartTarget)
		if err != nil {
			return out, fmt.Errorf("settings.restart_target: %w", err)
		}
		out.RestartTarget = ref
	}
	if d.PauseHold != "" {
		dur, err := time.ParseDuration(d.PauseHold)
		if err != nil {
			return out, fmt.Errorf("settings.pause_hold_threshold: %w", err)
		}
		out.PauseHoldThreshold = dur
	}
	if d.TickInterval != "" {
		dur, err := time.ParseDuration(d.TickInterval)
		if err != nil {
			return out, fmt.Errorf("settings.tick_interval: %w", err)
		}
		out.TickInterval = dur
	}

	return out.Normalize(), nil
}
