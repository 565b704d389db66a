// Package options carries injectable collaborators for CLI commands.
package options

import (
	"github.com/haven-ai/toolhostd/internal/config"
)

// CmdOption defines a functional option for configuring CmdOptions.
type CmdOption func(*CmdOptions) error

// CmdOptions contains the pluggable collaborators commands depend on.
type CmdOptions struct {
	ConfigLoader config.Loader
}

func defaultOptions() CmdOptions {
	return CmdOptions{
		ConfigLoader: &config.DefaultLoader{},
	}
}

// NewOptions creates CmdOptions with optional configurations applied.
func NewOptions(opt ...CmdOption) (CmdOptions, error) {
	opts := defaultOptions()

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return CmdOptions{}, err
		}
	}
	return opts, nil
}

// WithConfigLoader overrides the configuration loader, primarily for tests.
func WithConfigLoader(l config.Loader) CmdOption {
	return func(o *CmdOptions) error {
		o.ConfigLoader = l
		return nil
	}
}
