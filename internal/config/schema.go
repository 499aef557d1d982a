package config

// Config is the full tasksync configuration.
type Config struct {
	// Registry selects and locates the persistence backend.
	Registry RegistryConfig `yaml:"registry" mapstructure:"registry"`

	// Match configures item matching during merges.
	Match MatchConfig `yaml:"match" mapstructure:"match"`

	// Link configures link conflict handling.
	Link LinkConfig `yaml:"link" mapstructure:"link"`

	// Log configures diagnostics on stderr.
	Log LogConfig `yaml:"log" mapstructure:"log"`
}

// RegistryConfig configures registry persistence
type RegistryConfig struct {
	// Backend is json, sqlite or memory.
	Backend string `yaml:"backend" mapstructure:"backend"`

	// Path is the registry file; empty means .tasksync/registry.json (or
	// registry.db) under the working directory.
	Path string `yaml:"path" mapstructure:"path"`

	// Validate checks the JSON document against the CUE schema on every
	// load and save.
	Validate bool `yaml:"validate" mapstructure:"validate"`
}

// MatchConfig configures the merge matcher
type MatchConfig struct {
	// Strategy is "key" (id, then title) or "title".
	Strategy string `yaml:"strategy" mapstructure:"strategy"`
}

// LinkConfig configures linking
type LinkConfig struct {
	// Policy is "steal" or "reject".
	Policy string `yaml:"policy" mapstructure:"policy"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}
