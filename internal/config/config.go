// Package config loads the service configuration from a TOML file with one
// section per environment.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ayusman/wavecoach/internal/hook"
	"github.com/ayusman/wavecoach/internal/pose"
	"github.com/ayusman/wavecoach/internal/wave"
)

// ErrInvalid is returned when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid config")

// Defaults for values left out of the file.
const (
	DefaultHost          = "localhost"
	DefaultPort          = 8420
	DefaultDBPath        = "wavecoach.db"
	DefaultHooksDir      = "hooks"
	DefaultHookTimeoutMs = 5000
	DefaultLogLevel      = "info"
)

type Config struct {
	Environment string `toml:"-"`

	Host   string
	Port   int
	DBPath string `toml:"db_path"`
	// StaticDir is served at / when set.
	StaticDir string `toml:"static_dir"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`

	// hooks
	HooksDir      string      `toml:"hooks_dir"`
	HookTimeoutMs int         `toml:"hook_timeout_ms"`
	Hooks         []hook.Hook `toml:"hooks"`

	Analyzer Analyzer `toml:"analyzer"`
}

// Analyzer holds the defaults for new sessions.
type Analyzer struct {
	WaveAngleThresh float64 `toml:"wave_angle_thresh"`
	MinAngle        float64 `toml:"min_angle"`
	MaxAngle        float64 `toml:"max_angle"`
	Side            string  `toml:"side"`
	Smoothing       bool    `toml:"smoothing"`
}

// WaveConfig returns the analyzer thresholds.
func (a Analyzer) WaveConfig() wave.Config {
	return wave.Config{
		WaveAngleThresh: a.WaveAngleThresh,
		MinAngle:        a.MinAngle,
		MaxAngle:        a.MaxAngle,
	}
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	switch strings.ToLower(env) {
	case "dev", "development":
		return t.Development, nil
	case "prod", "production":
		return t.Production, nil
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
}

// sectionName maps an env alias to its TOML table name.
func sectionName(env string) string {
	switch strings.ToLower(env) {
	case "prod", "production":
		return "production"
	default:
		return "development"
	}
}

// Load reads the file at path and returns the validated section for env.
func Load(env, path string) (*Config, error) {
	var t Toml
	md, err := toml.DecodeFile(path, &t)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return fromToml(env, &t, md)
}

// Parse is Load for in-memory TOML.
func Parse(env, data string) (*Config, error) {
	var t Toml
	md, err := toml.Decode(data, &t)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return fromToml(env, &t, md)
}

func fromToml(env string, t *Toml, md toml.MetaData) (*Config, error) {
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: no [%s] section", ErrInvalid, sectionName(env))
	}

	cfg.Environment = sectionName(env)
	cfg.applyDefaults(md)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in keys the file does not define. Keys are checked
// through the decode metadata so that an explicit zero is kept.
func (c *Config) applyDefaults(md toml.MetaData) {
	section := c.Environment
	defined := func(keys ...string) bool {
		return md.IsDefined(append([]string{section}, keys...)...)
	}

	if c.Host == "" {
		c.Host = DefaultHost
	}
	if !defined("port") {
		c.Port = DefaultPort
	}
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if !defined("hooks_dir") {
		c.HooksDir = DefaultHooksDir
	}
	if !defined("hook_timeout_ms") {
		c.HookTimeoutMs = DefaultHookTimeoutMs
	}

	defaults := wave.DefaultConfig()
	if !defined("analyzer", "wave_angle_thresh") {
		c.Analyzer.WaveAngleThresh = defaults.WaveAngleThresh
	}
	if !defined("analyzer", "min_angle") {
		c.Analyzer.MinAngle = defaults.MinAngle
	}
	if !defined("analyzer", "max_angle") {
		c.Analyzer.MaxAngle = defaults.MaxAngle
	}
	if c.Analyzer.Side == "" {
		c.Analyzer.Side = string(pose.SideRight)
	}
}

// Validate checks every section of the configuration.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	}
	if c.HookTimeoutMs <= 0 {
		return fmt.Errorf("%w: hook_timeout_ms must be positive", ErrInvalid)
	}
	if err := c.Analyzer.WaveConfig().Validate(); err != nil {
		return fmt.Errorf("%w: analyzer: %w", ErrInvalid, err)
	}
	if _, err := pose.ParseSide(c.Analyzer.Side); err != nil {
		return fmt.Errorf("%w: analyzer: %w", ErrInvalid, err)
	}

	seen := make(map[string]bool, len(c.Hooks))
	for i, h := range c.Hooks {
		if h.Name == "" || h.Command == "" {
			return fmt.Errorf("%w: hook %d needs a name and a command", ErrInvalid, i)
		}
		if seen[h.Name] {
			return fmt.Errorf("%w: duplicate hook %q", ErrInvalid, h.Name)
		}
		seen[h.Name] = true
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
