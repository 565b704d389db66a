package daemon

import (
	"fmt"
	"time"

	"github.com/haven-ai/toolhostd/internal/supervisor"
)

// Options contains optional configuration for the daemon.
// NewOptions should be used to create instances of Options.
type Options struct {
	// APIOptions contains functional options for the API server.
	APIOptions []APIOption

	// SupervisorOptions contains functional options for the server registry
	// and health monitor.
	SupervisorOptions []supervisor.Option

	// StartTimeout bounds the initial start of each configured server,
	// including its capability negotiation.
	StartTimeout time.Duration
}

// Option defines a functional option for configuring Options.
// Options are applied in order, with later options overriding earlier ones.
type Option func(*Options) error

// NewOptions creates Options with optional configurations applied.
// Starts with default values, then applies options in order with later options overriding earlier ones.
func NewOptions(opts ...Option) (Options, error) {
	options := defaultOptions()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&options); err != nil {
			return Options{}, err
		}
	}

	return options, nil
}

// WithAPIOptions configures API server options.
// Replaces all previous API configuration including CORS settings.
func WithAPIOptions(apiOpts ...APIOption) Option {
	return func(o *Options) error {
		o.APIOptions = apiOpts
		return nil
	}
}

// WithSupervisorOptions configures the server registry and health monitor.
// Replaces all previously supplied supervisor options.
func WithSupervisorOptions(supOpts ...supervisor.Option) Option {
	return func(o *Options) error {
		o.SupervisorOptions = supOpts
		return nil
	}
}

// WithStartTimeout configures how long to wait for each configured server to
// start during daemon boot.
func WithStartTimeout(timeout time.Duration) Option {
	return func(o *Options) error {
		if timeout <= 0 {
			return fmt.Errorf("start timeout must be positive, got %v", timeout)
		}
		o.StartTimeout = timeout
		return nil
	}
}

// DefaultStartTimeout is the default time to wait for each server to start.
func DefaultStartTimeout() time.Duration {
	return 45 * time.Second
}

// defaultOptions returns Options with default values.
func defaultOptions() Options {
	return Options{
		StartTimeout: DefaultStartTimeout(),
	}
}
