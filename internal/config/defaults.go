package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDir is the per-project state directory.
const DefaultDir = ".tasksync"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			Backend: "json",
		},
		Match: MatchConfig{
			Strategy: "key",
		},
		Link: LinkConfig{
			Policy: "steal",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

const defaultContent = `# tasksync configuration

registry:
  backend: json     # "json", "sqlite" or "memory"
  path: ""          # default: .tasksync/registry.json (or registry.db)
  validate: false   # check the registry against its CUE schema on load/save

match:
  strategy: key     # "key" (native id, then title) or "title"

link:
  policy: steal     # "steal" moves a linked artifact; "reject" refuses

log:
  level: info
`

// WriteDefault writes a commented default configuration to path. It
// refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(defaultContent), 0o644)
}
