package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/haven-ai/toolhostd/internal/perms"
)

// Config is the on-disk project configuration.
// Load via DefaultLoader; mutations save back to the originating file.
type Config struct {
	Servers []ServerEntry `toml:"servers"`

	configFilePath string
}

// DefaultLoader is the standard file-backed Loader implementation.
type DefaultLoader struct{}

// Init creates the base skeleton configuration file for the toolhostd project.
func (d *DefaultLoader) Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	content := `servers = []`

	if err := os.WriteFile(path, []byte(content), perms.RegularFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// Load reads, parses and validates the configuration file at path.
func (d *DefaultLoader) Load(path string) (Modifier, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: path cannot be empty", ErrConfigLoadFailed)
	}

	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: config file cannot be found, run: 'toolhostd init'", ErrConfigLoadFailed)
		}
		return nil, fmt.Errorf("%w: failed to stat config file (%s): %w", ErrConfigLoadFailed, path, err)
	}

	var cfg *Config
	_, err = toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode config from file (%s): %w", ErrConfigLoadFailed, path, err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: config file is empty (%s)", ErrConfigLoadFailed, path)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: failed to validate existing config (%s): %w", ErrConfigLoadFailed, path, err)
	}

	// Update the path that loaded this file to track it.
	cfg.configFilePath = path

	return cfg, nil
}

// AddServer attempts to persist a new tool server to the configuration file.
func (c *Config) AddServer(entry ServerEntry) error {
	c.Servers = append(c.Servers, entry)

	if err := c.validate(); err != nil {
		return err
	}

	if err := c.saveConfig(); err != nil {
		return fmt.Errorf("failed to save updated config: %w", err)
	}

	return nil
}

// RemoveServer removes a server entry by name from the configuration file.
func (c *Config) RemoveServer(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("server name cannot be empty")
	}

	filtered := make([]ServerEntry, 0, len(c.Servers))
	for _, s := range c.Servers {
		if s.Name != name {
			filtered = append(filtered, s)
		}
	}

	if len(filtered) == len(c.Servers) {
		return fmt.Errorf("server '%s' not found in config", name)
	}

	c.Servers = filtered

	if err := c.validate(); err != nil {
		return err
	}

	if err := c.saveConfig(); err != nil {
		return fmt.Errorf("failed to save updated config: %w", err)
	}

	return nil
}

// ListServers returns a copy of the currently configured server entries.
// This provides read-only access to the internal configuration without exposing direct mutation of the underlying slice.
func (c *Config) ListServers() []ServerEntry {
	out := make([]ServerEntry, 0, len(c.Servers))
	for _, s := range c.Servers {
		out = append(out, s.Clone())
	}
	return out
}

// SaveConfig saves the current configuration to the config file.
func (c *Config) SaveConfig() error {
	return c.saveConfig()
}

func (c *Config) saveConfig() error {
	if c.configFilePath == "" {
		return fmt.Errorf("config file path not present")
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.configFilePath, data, perms.RegularFile)
}

// validate checks the server config section to ensure there are no errors.
func (c *Config) validate() error {
	seen := map[string]struct{}{}

	for _, entry := range c.Servers {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return fmt.Errorf("%w: server entry has empty name", ErrConfigInvalid)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: duplicate server name '%s'", ErrConfigInvalid, name)
		}
		seen[name] = struct{}{}

		if strings.TrimSpace(entry.Command) == "" {
			return fmt.Errorf("%w: server '%s' has empty command", ErrConfigInvalid, name)
		}
		if slices.Contains(entry.Args, "") {
			return fmt.Errorf("%w: server '%s' has an empty argument", ErrConfigInvalid, name)
		}
	}

	return nil
}
