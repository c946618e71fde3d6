package config

import (
	"time"
)

// Config represents the main configuration
type Config struct {
	Version  string    `yaml:"version"`
	Settings *Settings `yaml:"settings"`
}

// LoggerConfig represents logger configuration
type LoggerConfig struct {
	Level     string `yaml:"level" json:"level"`             // debug, info, warn, error
	FilePath  string `yaml:"file_path" json:"file_path"`     // Log file path (empty = default state dir)
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"` // Max log file size before rotation
}

// DefaultLoggerConfig returns default logger configuration
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:     "info",
		FilePath:  "", // Will default to ~/.local/state/panetree/panetree.log
		MaxSizeMB: 10,
	}
}

// Settings represents global application settings
type Settings struct {
	// Pane layout
	SplitPercent  int `yaml:"split_percent" json:"split_percent"`     // Width of the tree pane, percent of the window
	SettleDelayMS int `yaml:"settle_delay_ms" json:"settle_delay_ms"` // Pause between C-c and relaunch

	// Tree limits
	MaxDepth   int `yaml:"max_depth" json:"max_depth"`
	MaxEntries int `yaml:"max_entries" json:"max_entries"`

	// Refresh timing
	DebounceMS     int `yaml:"debounce_ms" json:"debounce_ms"`
	PollIntervalMS int `yaml:"poll_interval_ms" json:"poll_interval_ms"`
	FocusPollMS    int `yaml:"focus_poll_ms" json:"focus_poll_ms"`

	// External programs (empty = $EDITOR / $PAGER)
	Editor string `yaml:"editor,omitempty" json:"editor,omitempty"`
	Pager  string `yaml:"pager,omitempty" json:"pager,omitempty"`

	// Directories (empty = defaults under the user state / runtime dir)
	StateDir  string `yaml:"state_dir,omitempty" json:"state_dir,omitempty"`
	SocketDir string `yaml:"socket_dir,omitempty" json:"socket_dir,omitempty"`

	// Logger configuration
	Logger *LoggerConfig `yaml:"logger,omitempty" json:"logger,omitempty"`
}

// GetLoggerConfig returns the logger config, applying defaults
func (s *Settings) GetLoggerConfig() *LoggerConfig {
	if s.Logger != nil {
		return s.Logger
	}
	return DefaultLoggerConfig()
}

// Debounce returns the quiet period before a rebuild
func (s *Settings) Debounce() time.Duration {
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// PollInterval returns the polling fallback interval
func (s *Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMS) * time.Millisecond
}

// FocusPoll returns the pane focus polling interval
func (s *Settings) FocusPoll() time.Duration {
	return time.Duration(s.FocusPollMS) * time.Millisecond
}

// SettleDelay returns the delay between interrupting and relaunching a pane
func (s *Settings) SettleDelay() time.Duration {
	return time.Duration(s.SettleDelayMS) * time.Millisecond
}

// DefaultSettings returns default configuration settings
func DefaultSettings() *Settings {
	return &Settings{
		SplitPercent:   25,
		SettleDelayMS:  150,
		MaxDepth:       4,
		MaxEntries:     200,
		DebounceMS:     300,
		PollIntervalMS: 2000,
		FocusPollMS:    200,
		Logger:         DefaultLoggerConfig(),
	}
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  "1.0",
		Settings: DefaultSettings(),
	}
}

// Validate resets out-of-range settings to their defaults and reports what it changed
func (c *Config) Validate() []string {
	var fixed []string

	if c.Settings == nil {
		c.Settings = DefaultSettings()
		return []string{"settings missing, using defaults"}
	}

	s := c.Settings
	d := DefaultSettings()

	if s.SplitPercent < 5 || s.SplitPercent > 90 {
		fixed = append(fixed, "split_percent must be between 5 and 90")
		s.SplitPercent = d.SplitPercent
	}
	if s.SettleDelayMS < 0 {
		fixed = append(fixed, "settle_delay_ms must not be negative")
		s.SettleDelayMS = d.SettleDelayMS
	}
	if s.MaxDepth < 1 {
		fixed = append(fixed, "max_depth must be at least 1")
		s.MaxDepth = d.MaxDepth
	}
	if s.MaxEntries < 1 {
		fixed = append(fixed, "max_entries must be at least 1")
		s.MaxEntries = d.MaxEntries
	}
	if s.DebounceMS < 10 {
		fixed = append(fixed, "debounce_ms must be at least 10")
		s.DebounceMS = d.DebounceMS
	}
	if s.PollIntervalMS < 100 {
		fixed = append(fixed, "poll_interval_ms must be at least 100")
		s.PollIntervalMS = d.PollIntervalMS
	}
	if s.FocusPollMS < 50 {
		fixed = append(fixed, "focus_poll_ms must be at least 50")
		s.FocusPollMS = d.FocusPollMS
	}
	if s.Logger == nil {
		s.Logger = DefaultLoggerConfig()
	}

	return fixed
}
