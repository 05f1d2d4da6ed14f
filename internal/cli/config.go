package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config carries user-level CLI defaults, read from
// $XDG_CONFIG_HOME/cadence/config.toml when present. Flags always win over
// config values, which win over the built-in defaults.
type Config struct {
	Player PlayerConfig `toml:"player"`
	Serve  ServeConfig  `toml:"serve"`
	Log    LogConfig    `toml:"log"`
}

// PlayerConfig tunes the interactive terminal player.
type PlayerConfig struct {
	// BeatDuration overrides the story's timing when set.
	BeatDuration Duration `toml:"beat_duration"`
	// NoAuto disables auto advance regardless of story settings.
	NoAuto bool `toml:"no_auto"`
}

// ServeConfig tunes the development server.
type ServeConfig struct {
	Port int `toml:"port"`
}

// LogConfig tunes diagnostics for every command.
type LogConfig struct {
	Debug bool   `toml:"debug"`
	File  string `toml:"file"`
}

// Duration wraps time.Duration with TOML-friendly string parsing
// ("5s", "1500ms", "2m").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("negative duration %q not allowed", s)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML serialization.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads configuration from the standard config path.
// Search order:
//  1. $XDG_CONFIG_HOME/cadence/config.toml
//  2. ~/.config/cadence/config.toml
//
// If no file exists, the defaults are returned.
func LoadConfig() (*Config, error) {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadConfigFromFile(p)
		}
	}
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadConfigFromFile reads configuration from a specific file path.
func LoadConfigFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}
	defer f.Close()
	return loadConfigFromReader(f)
}

func loadConfigFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Serve: ServeConfig{Port: 8080},
	}
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CADENCE_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("CADENCE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Serve.Port = port
		}
	}
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	var paths []string

	xdg := xdgConfigHome(home)
	paths = append(paths, filepath.Join(xdg, "cadence", "config.toml"))

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		paths = append(paths, filepath.Join(defaultXDG, "cadence", "config.toml"))
	}

	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}
