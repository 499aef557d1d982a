package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/tasksync/internal/engine"
	"github.com/roach88/tasksync/internal/registry"
)

// EnvPrefix prefixes environment overrides: TASKSYNC_REGISTRY_BACKEND,
// TASKSYNC_LINK_POLICY and so on.
const EnvPrefix = "TASKSYNC"

// LoadOptions locates the configuration layers. Empty fields fall back
// to the real home and working directories.
type LoadOptions struct {
	// ConfigFile is an explicit file (--config). It must exist.
	ConfigFile string
	HomeDir    string
	WorkDir    string

	// Overrides are applied last, above the environment (command-line
	// flags). Keys are dotted: "registry.backend".
	Overrides map[string]any
}

// Load merges, lowest precedence first: defaults, the global file
// (~/.config/tasksync/config.yaml), the project file (./.tasksync.yaml),
// the explicit ConfigFile, TASKSYNC_* environment variables, then
// Overrides.
func Load(opts LoadOptions) (*Config, error) {
	if opts.HomeDir == "" {
		opts.HomeDir, _ = os.UserHomeDir()
	}
	if opts.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		opts.WorkDir = wd
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, DefaultConfig())

	var layers []string
	if opts.HomeDir != "" {
		layers = append(layers, GlobalConfigPath(opts.HomeDir))
	}
	layers = append(layers, ProjectConfigPath(opts.WorkDir))
	for _, path := range layers {
		if err := mergeFile(v, path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	if opts.ConfigFile != "" {
		if err := mergeFile(v, opts.ConfigFile); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range opts.Overrides {
		v.Set(k, val)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Registry.Path != "" && !filepath.IsAbs(cfg.Registry.Path) {
		cfg.Registry.Path = filepath.Join(opts.WorkDir, cfg.Registry.Path)
	}
	if cfg.Registry.Path == "" {
		backend, err := cfg.Backend()
		if err != nil {
			return nil, err
		}
		cfg.Registry.Path = registry.DefaultPath(filepath.Join(opts.WorkDir, DefaultDir), backend)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// setDefaults registers every key so environment overrides apply even
// when no file mentions them.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("registry.backend", d.Registry.Backend)
	v.SetDefault("registry.path", d.Registry.Path)
	v.SetDefault("registry.validate", d.Registry.Validate)
	v.SetDefault("match.strategy", d.Match.Strategy)
	v.SetDefault("link.policy", d.Link.Policy)
	v.SetDefault("log.level", d.Log.Level)
}

// GlobalConfigPath returns the per-user config file under home.
func GlobalConfigPath(home string) string {
	return filepath.Join(home, ".config", "tasksync", "config.yaml")
}

// ProjectConfigPath returns the project config file under dir.
func ProjectConfigPath(dir string) string {
	return filepath.Join(dir, ".tasksync.yaml")
}

// Validate checks every enumerated setting.
func (c *Config) Validate() error {
	if _, err := c.Backend(); err != nil {
		return err
	}
	if _, err := c.Matcher(); err != nil {
		return err
	}
	if _, err := c.LinkPolicy(); err != nil {
		return err
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// Backend returns the configured registry backend.
func (c *Config) Backend() (registry.Backend, error) {
	return registry.ParseBackend(c.Registry.Backend)
}

// Matcher returns the configured item matcher.
func (c *Config) Matcher() (engine.Matcher, error) {
	switch strings.ToLower(c.Match.Strategy) {
	case "", "key":
		return engine.KeyMatcher{}, nil
	case "title":
		return engine.TitleMatcher{}, nil
	default:
		return nil, fmt.Errorf("unknown match strategy %q (want key or title)", c.Match.Strategy)
	}
}

// LinkPolicy returns the configured link policy.
func (c *Config) LinkPolicy() (engine.LinkPolicy, error) {
	return engine.ParseLinkPolicy(c.Link.Policy)
}

// LogLevel returns the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}

// OpenStore opens the configured registry store.
func (c *Config) OpenStore() (registry.Store, error) {
	backend, err := c.Backend()
	if err != nil {
		return nil, err
	}
	return registry.Open(backend, c.Registry.Path, registry.WithValidation(c.Registry.Validate))
}

// EngineOptions returns the engine options implied by the configuration.
func (c *Config) EngineOptions() ([]engine.Option, error) {
	m, err := c.Matcher()
	if err != nil {
		return nil, err
	}
	p, err := c.LinkPolicy()
	if err != nil {
		return nil, err
	}
	return []engine.Option{engine.WithMatcher(m), engine.WithLinkPolicy(p)}, nil
}
