// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/multibox/lib/bot"
	"github.com/bureau-foundation/multibox/lib/journal"
	"github.com/bureau-foundation/multibox/lib/orchestrator"
	"github.com/bureau-foundation/multibox/lib/vision"
)

// EnvironmentVariable names the variable [Load] reads.
const EnvironmentVariable = "MULTIBOX_CONFIG"

// Config is the complete multibox configuration.
type Config struct {
	Window   WindowConfig          `yaml:"window" json:"window"`
	Layout   LayoutConfig          `yaml:"layout" json:"layout"`
	Loop     LoopConfig            `yaml:"loop" json:"loop"`
	Bots     []BotConfig           `yaml:"bots" json:"bots"`
	Timings  TimingsConfig         `yaml:"timings" json:"timings"`
	Detector vision.DetectorConfig `yaml:"detector" json:"detector"`
	Probe    vision.ProbeConfig    `yaml:"probe" json:"probe"`
	Debug    DebugConfig           `yaml:"debug" json:"debug"`
	Journal  JournalConfig         `yaml:"journal" json:"journal"`
	Status   StatusConfig          `yaml:"status" json:"status"`
	Log      LogConfig             `yaml:"log" json:"log"`
}

// WindowConfig selects the game windows and controls discovery.
type WindowConfig struct {
	// TitleContains is matched case-insensitively against window
	// titles.
	TitleContains string `yaml:"title_contains" json:"title_contains"`

	// StableFor is how long the set of matching windows must stay
	// unchanged before bots are bound to it.
	StableFor Duration `yaml:"stable_for" json:"stable_for"`

	DiscoveryTimeout Duration `yaml:"discovery_timeout" json:"discovery_timeout"`
	PollInterval     Duration `yaml:"poll_interval" json:"poll_interval"`
}

// LayoutConfig is the window grid. Leave cell_width and cell_height
// unset to divide screen_width and screen_height evenly.
type LayoutConfig struct {
	Columns      int `yaml:"columns" json:"columns"`
	Rows         int `yaml:"rows" json:"rows"`
	CellWidth    int `yaml:"cell_width" json:"cell_width"`
	CellHeight   int `yaml:"cell_height" json:"cell_height"`
	Padding      int `yaml:"padding" json:"padding"`
	ScreenWidth  int `yaml:"screen_width" json:"screen_width"`
	ScreenHeight int `yaml:"screen_height" json:"screen_height"`
}

// LoopConfig controls the scheduler.
type LoopConfig struct {
	// TickRate is ticks per second across all bots.
	TickRate float64 `yaml:"tick_rate" json:"tick_rate"`
}

// BotConfig identifies one bot. The i-th bot gets the i-th matching
// window in registry order.
type BotConfig struct {
	Name      string `yaml:"name" json:"name"`
	GridIndex int    `yaml:"grid_index" json:"grid_index"`
}

// TimingsConfig mirrors [bot.Timings].
type TimingsConfig struct {
	ActionCooldown    Duration `yaml:"action_cooldown" json:"action_cooldown"`
	ClickSettle       Duration `yaml:"click_settle" json:"click_settle"`
	ReadySettle       Duration `yaml:"ready_settle" json:"ready_settle"`
	InSessionGrace    Duration `yaml:"in_session_grace" json:"in_session_grace"`
	MainMenuTimeout   Duration `yaml:"main_menu_timeout" json:"main_menu_timeout"`
	LobbyTimeout      Duration `yaml:"lobby_timeout" json:"lobby_timeout"`
	MatchFoundTimeout Duration `yaml:"match_found_timeout" json:"match_found_timeout"`
	LoadingBudget     Duration `yaml:"loading_budget" json:"loading_budget"`
	RecoveryTimeout   Duration `yaml:"recovery_timeout" json:"recovery_timeout"`
}

// DebugConfig controls the diagnostic image dumps.
type DebugConfig struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Directory string   `yaml:"directory" json:"directory"`
	Interval  Duration `yaml:"interval" json:"interval"`
}

// JournalConfig controls the run journal. An empty path disables it.
type JournalConfig struct {
	Path        string `yaml:"path" json:"path"`
	Compression string `yaml:"compression" json:"compression"`
}

// StatusConfig controls the status snapshot file. An empty path
// disables it.
type StatusConfig struct {
	Path     string   `yaml:"path" json:"path"`
	Interval Duration `yaml:"interval" json:"interval"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" json:"level"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText writes the duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText parses a duration string such as "350ms".
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the configuration every file is layered over. It has
// no bots, so it does not validate on its own.
func Default() *Config {
	timings := bot.DefaultTimings()
	return &Config{
		Window: WindowConfig{
			TitleContains:    "Dota 2",
			StableFor:        Duration(3 * time.Second),
			DiscoveryTimeout: Duration(40 * time.Second),
			PollInterval:     Duration(500 * time.Millisecond),
		},
		// Six 640x540 cells exactly tile a 1920x1080 screen.
		Layout: LayoutConfig{
			Columns:      3,
			Rows:         2,
			CellWidth:    640,
			CellHeight:   540,
			ScreenWidth:  1920,
			ScreenHeight: 1080,
		},
		Loop: LoopConfig{TickRate: 4},
		Timings: TimingsConfig{
			ActionCooldown:    Duration(timings.ActionCooldown),
			ClickSettle:       Duration(timings.ClickSettle),
			ReadySettle:       Duration(timings.ReadySettle),
			InSessionGrace:    Duration(timings.InSessionGrace),
			MainMenuTimeout:   Duration(timings.MainMenuTimeout),
			LobbyTimeout:      Duration(timings.LobbyTimeout),
			MatchFoundTimeout: Duration(timings.MatchFoundTimeout),
			LoadingBudget:     Duration(timings.LoadingBudget),
			RecoveryTimeout:   Duration(timings.RecoveryTimeout),
		},
		Detector: vision.DefaultDetectorConfig(),
		Probe:    vision.DefaultProbeConfig(),
		Debug: DebugConfig{
			Directory: "debug_dumps",
			Interval:  Duration(5 * time.Second),
		},
		Journal: JournalConfig{Compression: "zstd"},
		Status:  StatusConfig{Interval: Duration(time.Second)},
		Log:     LogConfig{Level: "info"},
	}
}

// Load loads the file named by MULTIBOX_CONFIG. It fails if the
// variable is unset.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your multibox config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile layers the file at path over [Default]. It does not
// validate; call [Config.Validate].
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse layers data over [Default]. extension selects the format:
// ".json" and ".jsonc" are JSON with comments, anything else is YAML.
func Parse(data []byte, extension string) (*Config, error) {
	cfg := Default()
	switch strings.ToLower(extension) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	c.Debug.Directory = expandVars(c.Debug.Directory)
	c.Journal.Path = expandVars(c.Journal.Path)
	c.Status.Path = expandVars(c.Status.Path)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} from the environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Window.TitleContains) == "" {
		errs = append(errs, errors.New("window.title_contains is required"))
	}
	if c.Window.PollInterval <= 0 {
		errs = append(errs, errors.New("window.poll_interval must be positive"))
	}
	if c.Window.StableFor < 0 || c.Window.DiscoveryTimeout < 0 {
		errs = append(errs, errors.New("window.stable_for and window.discovery_timeout must not be negative"))
	}

	grid := c.Grid()
	if err := grid.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("layout: %w", err))
	}

	if c.Loop.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("loop.tick_rate must be positive, got %v", c.Loop.TickRate))
	}

	if len(c.Bots) == 0 {
		errs = append(errs, errors.New("bots: at least one bot is required"))
	}
	names := make(map[string]int)
	indices := make(map[int]string)
	for i, botConfig := range c.Bots {
		if botConfig.Name == "" {
			errs = append(errs, fmt.Errorf("bots[%d]: name is required", i))
		} else if previous, ok := names[botConfig.Name]; ok {
			errs = append(errs, fmt.Errorf("bots[%d]: name %q already used by bots[%d]", i, botConfig.Name, previous))
		} else {
			names[botConfig.Name] = i
		}
		if botConfig.GridIndex < 0 || botConfig.GridIndex >= grid.Len() {
			errs = append(errs, fmt.Errorf("bots[%d]: grid_index %d outside the %dx%d grid",
				i, botConfig.GridIndex, grid.Columns, grid.Rows))
		} else if other, ok := indices[botConfig.GridIndex]; ok {
			errs = append(errs, fmt.Errorf("bots[%d]: grid_index %d already used by %s", i, botConfig.GridIndex, other))
		} else {
			indices[botConfig.GridIndex] = botConfig.Name
		}
	}

	if err := c.BotTimings().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("timings: %w", err))
	}
	if err := c.Detector.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Probe.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Debug.Enabled {
		if c.Debug.Directory == "" {
			errs = append(errs, errors.New("debug.directory is required when debug is enabled"))
		}
		if c.Debug.Interval <= 0 {
			errs = append(errs, errors.New("debug.interval must be positive"))
		}
	}
	if _, err := journal.ParseCompression(c.Journal.Compression); err != nil {
		errs = append(errs, fmt.Errorf("journal.compression: %w", err))
	}
	if c.Status.Path != "" && c.Status.Interval <= 0 {
		errs = append(errs, errors.New("status.interval must be positive"))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Discovery returns the window discovery parameters for len(Bots)
// windows.
func (c *Config) Discovery() orchestrator.Discovery {
	return orchestrator.Discovery{
		TitleContains: c.Window.TitleContains,
		Count:         len(c.Bots),
		StableFor:     c.Window.StableFor.Std(),
		Timeout:       c.Window.DiscoveryTimeout.Std(),
		PollInterval:  c.Window.PollInterval.Std(),
	}
}

// Grid returns the window layout.
func (c *Config) Grid() orchestrator.Grid {
	return orchestrator.Grid{
		Columns:      c.Layout.Columns,
		Rows:         c.Layout.Rows,
		CellWidth:    c.Layout.CellWidth,
		CellHeight:   c.Layout.CellHeight,
		Padding:      c.Layout.Padding,
		ScreenWidth:  c.Layout.ScreenWidth,
		ScreenHeight: c.Layout.ScreenHeight,
	}
}

// Assignments returns the bots in configuration order.
func (c *Config) Assignments() []orchestrator.Assignment {
	assignments := make([]orchestrator.Assignment, len(c.Bots))
	for i, botConfig := range c.Bots {
		assignments[i] = orchestrator.Assignment{Name: botConfig.Name, GridIndex: botConfig.GridIndex}
	}
	return assignments
}

// BotTimings returns the state machine timings.
func (c *Config) BotTimings() bot.Timings {
	return bot.Timings{
		ActionCooldown:    c.Timings.ActionCooldown.Std(),
		ClickSettle:       c.Timings.ClickSettle.Std(),
		ReadySettle:       c.Timings.ReadySettle.Std(),
		InSessionGrace:    c.Timings.InSessionGrace.Std(),
		MainMenuTimeout:   c.Timings.MainMenuTimeout.Std(),
		LobbyTimeout:      c.Timings.LobbyTimeout.Std(),
		MatchFoundTimeout: c.Timings.MatchFoundTimeout.Std(),
		LoadingBudget:     c.Timings.LoadingBudget.Std(),
		RecoveryTimeout:   c.Timings.RecoveryTimeout.Std(),
	}
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
