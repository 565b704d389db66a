// Package config owns loading, validating and persisting the TOML project
// configuration (.toolhostd.toml) that declares which tool servers the daemon
// supervises and how each process is launched.
package config

import "slices"

// ServerEntry declares one supervised tool server: the command used to spawn
// its process and the environment overlay applied on top of the host's.
// Immutable for the lifetime of one running instance; a restart may pick up
// an updated entry.
type ServerEntry struct {
	// Name is the stable, unique identifier for this server.
	Name string `toml:"name" json:"name"`

	// Command is the executable to spawn.
	Command string `toml:"command" json:"command"`

	// Args are passed to the command verbatim.
	Args []string `toml:"args,omitempty" json:"args,omitempty"`

	// Env is merged over the host's environment for the spawned process.
	Env map[string]string `toml:"env,omitempty" json:"env,omitempty"`

	// Shell wraps the command in the platform shell when set.
	Shell bool `toml:"shell,omitempty" json:"shell,omitempty"`

	// WindowsHide suppresses the console window on Windows hosts.
	WindowsHide bool `toml:"windows_hide,omitempty" json:"windowsHide,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate stored entries.
func (e ServerEntry) Clone() ServerEntry {
	out := e
	out.Args = slices.Clone(e.Args)
	if e.Env != nil {
		out.Env = make(map[string]string, len(e.Env))
		for k, v := range e.Env {
			out.Env[k] = v
		}
	}
	return out
}

// Loader can be implemented to provide configuration loading for the application.
type Loader interface {
	// Init creates the base skeleton configuration file.
	Init(path string) error

	// Load reads and validates the configuration file at path.
	Load(path string) (Modifier, error)
}

// Modifier provides read and mutate access to a loaded configuration.
type Modifier interface {
	// ListServers returns a copy of the currently configured server entries.
	ListServers() []ServerEntry

	// AddServer persists a new server entry to the configuration file.
	AddServer(entry ServerEntry) error

	// RemoveServer removes a server entry by name from the configuration file.
	RemoveServer(name string) error

	// SaveConfig saves the current configuration to the config file.
	SaveConfig() error
}
