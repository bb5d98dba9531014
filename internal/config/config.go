// Package config provides application configuration management.
package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oszuidwest/zwfm-mixroute/internal/audio"
	"github.com/oszuidwest/zwfm-mixroute/internal/eventlog"
	"github.com/oszuidwest/zwfm-mixroute/internal/types"
	"github.com/oszuidwest/zwfm-mixroute/internal/util"
)

// Configuration defaults are used when values are not specified.
const (
	DefaultWebPort  = 8080
	DefaultLogLevel = "info"
	DefaultSettleMs = int(types.DefaultSettleDelay / time.Millisecond)
	MaxSettleMs     = 5000
)

// SystemConfig holds system-level settings that require restart.
type SystemConfig struct {
	FFmpegPath string `json:"ffmpeg_path"` // Path to FFmpeg binary (empty = use PATH)
	PactlPath  string `json:"pactl_path"`  // Path to pactl binary (empty = use PATH)
	Port       int    `json:"port"`        // HTTP server port
	LogLevel   string `json:"log_level"`   // debug, info, warn or error; applied on reload
	EventLog   string `json:"event_log"`   // Event journal path (empty = platform default)
}

// AudioConfig holds device discovery and routing settings.
type AudioConfig struct {
	Platform string `json:"platform"`  // Capture backend (empty = detect from host OS)
	Tag      string `json:"tag"`       // Name marking mix-route modules
	SettleMs int    `json:"settle_ms"` // Pause after each module change; applied on reload
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	System SystemConfig `json:"system"`
	Audio  AudioConfig  `json:"audio"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		System: SystemConfig{
			Port:     DefaultWebPort,
			LogLevel: DefaultLogLevel,
		},
		Audio: AudioConfig{
			Tag:      types.DefaultRouteTag,
			SettleMs: DefaultSettleMs,
		},
		filePath: filePath,
	}
}

// Path returns the configuration file path.
func (c *Config) Path() string {
	return c.filePath
}

// Load reads config from file, creating a default if none exists.
// On error the current values are kept.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	next := New(c.filePath)
	if err := json.Unmarshal(data, next); err != nil {
		return util.WrapError("parse config", err)
	}

	next.applyDefaults()

	if err := next.validate(); err != nil {
		return err
	}

	c.System = next.System
	c.Audio = next.Audio
	return nil
}

// validate checks all configuration fields for correctness.
func (c *Config) validate() error {
	verr := types.NewValidationError()

	if c.System.Port < 1 || c.System.Port > 65535 {
		verr.Add("system.port", "must be between 1 and 65535", c.System.Port)
	}
	if _, ok := parseLevel(c.System.LogLevel); !ok {
		verr.Add("system.log_level", "must be debug, info, warn or error", c.System.LogLevel)
	}
	if c.Audio.Platform != "" && !types.Platform(c.Audio.Platform).IsValid() {
		verr.Add("audio.platform", "must be avfoundation, dshow or pulse", c.Audio.Platform)
	}
	if strings.ContainsAny(c.Audio.Tag, " \t\r\n=") {
		verr.Add("audio.tag", "must not contain whitespace or '='", c.Audio.Tag)
	}
	if c.Audio.SettleMs < 0 || c.Audio.SettleMs > MaxSettleMs {
		verr.Add("audio.settle_ms", fmt.Sprintf("must be between 0 and %d", MaxSettleMs), c.Audio.SettleMs)
	}

	if verr.HasErrors() {
		return fmt.Errorf("invalid config: %w", verr)
	}
	return nil
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	// System defaults
	if c.System.Port == 0 {
		c.System.Port = DefaultWebPort
	}
	c.System.LogLevel = strings.ToLower(cmp.Or(c.System.LogLevel, DefaultLogLevel))
	// Audio defaults
	if c.Audio.Tag == "" {
		c.Audio.Tag = types.DefaultRouteTag
	}
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}

	return nil
}

// --- Snapshot for atomic reads ---

// Snapshot is a point-in-time copy of configuration values.
type Snapshot struct {
	// System
	FFmpegPath   string
	PactlPath    string
	WebPort      int
	LogLevel     slog.Level
	EventLogPath string

	// Audio
	Platform    types.Platform
	RouteTag    string
	SettleDelay time.Duration
}

// RestartRequired lists the config keys that differ between running and
// next but only take effect at startup. Log level and settle delay are
// applied live and never listed.
func RestartRequired(running, next Snapshot) []string {
	var keys []string
	add := func(changed bool, key string) {
		if changed {
			keys = append(keys, key)
		}
	}
	add(running.FFmpegPath != next.FFmpegPath, "system.ffmpeg_path")
	add(running.PactlPath != next.PactlPath, "system.pactl_path")
	add(running.WebPort != next.WebPort, "system.port")
	add(running.EventLogPath != next.EventLogPath, "system.event_log")
	add(running.Platform != next.Platform, "audio.platform")
	add(running.RouteTag != next.RouteTag, "audio.tag")
	return keys
}

// Snapshot returns a point-in-time copy of all configuration values.
// An empty platform resolves to the host platform.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	level, _ := parseLevel(c.System.LogLevel)

	return Snapshot{
		// System
		FFmpegPath:   c.System.FFmpegPath,
		PactlPath:    c.System.PactlPath,
		WebPort:      cmp.Or(c.System.Port, DefaultWebPort),
		LogLevel:     level,
		EventLogPath: cmp.Or(c.System.EventLog, eventlog.DefaultLogPath(cmp.Or(c.System.Port, DefaultWebPort))),

		// Audio
		Platform:    cmp.Or(types.Platform(c.Audio.Platform), audio.HostPlatform()),
		RouteTag:    cmp.Or(c.Audio.Tag, types.DefaultRouteTag),
		SettleDelay: time.Duration(c.Audio.SettleMs) * time.Millisecond,
	}
}

// parseLevel maps a configured level name to a slog level.
func parseLevel(name string) (slog.Level, bool) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cmp.Or(name, DefaultLogLevel))); err != nil {
		return slog.LevelInfo, false
	}
	return level, true
}
