package supervisor

import (
	"fmt"
	"time"
)

const (
	// DefaultSettleDelay is how long a freshly spawned process gets to settle
	// before the capability request is written.
	DefaultSettleDelay = 150 * time.Millisecond

	// DefaultNegotiationTimeout bounds how long negotiation waits for a
	// capability response before degrading to an empty manifest.
	DefaultNegotiationTimeout = 30 * time.Second

	// DefaultLivenessInterval is the cadence of the monitor's liveness probes.
	DefaultLivenessInterval = 5 * time.Second

	// DefaultHeartbeatStaleAfter is how long after the last heartbeat a server
	// that has ever sent one is considered unhealthy.
	DefaultHeartbeatStaleAfter = 10 * time.Second

	// DefaultStaleSweepInterval is the cadence of the stale-server sweep.
	DefaultStaleSweepInterval = 10 * time.Minute

	// DefaultStaleResponseThreshold is how long a connected server may stay
	// silent before the sweep restarts it.
	DefaultStaleResponseThreshold = 5 * time.Minute

	// DefaultRestartBackoffBase seeds the exponential delay between restart attempts.
	DefaultRestartBackoffBase = 1 * time.Second

	// DefaultRestartMaxAttempts bounds sweep-triggered restart attempts.
	DefaultRestartMaxAttempts = 3
)

// Options tunes supervision behavior. Zero values are replaced by defaults
// in NewOptions; construct via NewOptions rather than a literal.
type Options struct {
	// SettleDelay is the pause between spawn and the capability request.
	SettleDelay time.Duration

	// NegotiationTimeout bounds the wait for a capability response.
	NegotiationTimeout time.Duration

	// RequestTimeout is the per-call deadline applied when the caller gives none.
	RequestTimeout time.Duration

	// LivenessInterval is the monitor's probe cadence.
	LivenessInterval time.Duration

	// HeartbeatStaleAfter marks heartbeat-emitting servers unhealthy after silence.
	HeartbeatStaleAfter time.Duration

	// StaleSweepInterval is the cadence of the silent-server sweep.
	StaleSweepInterval time.Duration

	// StaleResponseThreshold is the silence span that triggers a sweep restart.
	StaleResponseThreshold time.Duration

	// RestartBackoff drives sweep-triggered restarts.
	RestartBackoff Backoff

	// ClientName identifies this host in capability requests.
	ClientName string

	// ClientVersion identifies this host's version in capability requests.
	ClientVersion string
}

// Option configures Options.
type Option func(*Options) error

// NewOptions applies defaults and then the given options.
func NewOptions(opt ...Option) (Options, error) {
	opts := Options{
		SettleDelay:            DefaultSettleDelay,
		NegotiationTimeout:     DefaultNegotiationTimeout,
		RequestTimeout:         DefaultRequestTimeout,
		LivenessInterval:       DefaultLivenessInterval,
		HeartbeatStaleAfter:    DefaultHeartbeatStaleAfter,
		StaleSweepInterval:     DefaultStaleSweepInterval,
		StaleResponseThreshold: DefaultStaleResponseThreshold,
		RestartBackoff: Backoff{
			Base:        DefaultRestartBackoffBase,
			MaxAttempts: DefaultRestartMaxAttempts,
		},
		ClientName:    "toolhostd",
		ClientVersion: "dev",
	}

	for _, o := range opt {
		if o == nil {
			continue
		}
		if err := o(&opts); err != nil {
			return Options{}, err
		}
	}

	return opts, nil
}

// WithSettleDelay sets the pause between spawn and the capability request.
func WithSettleDelay(d time.Duration) Option {
	return func(o *Options) error {
		if d < 0 {
			return fmt.Errorf("settle delay cannot be negative: %s", d)
		}
		o.SettleDelay = d
		return nil
	}
}

// WithNegotiationTimeout sets the capability negotiation deadline.
func WithNegotiationTimeout(d time.Duration) Option {
	return func(o *Options) error {
		if d <= 0 {
			return fmt.Errorf("negotiation timeout must be positive: %s", d)
		}
		o.NegotiationTimeout = d
		return nil
	}
}

// WithRequestTimeout sets the default per-call deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *Options) error {
		if d <= 0 {
			return fmt.Errorf("request timeout must be positive: %s", d)
		}
		o.RequestTimeout = d
		return nil
	}
}

// WithLivenessInterval sets the monitor's probe cadence.
func WithLivenessInterval(d time.Duration) Option {
	return func(o *Options) error {
		if d <= 0 {
			return fmt.Errorf("liveness interval must be positive: %s", d)
		}
		o.LivenessInterval = d
		return nil
	}
}

// WithHeartbeatStaleAfter sets the heartbeat freshness window.
func WithHeartbeatStaleAfter(d time.Duration) Option {
	return func(o *Options) error {
		if d <= 0 {
			return fmt.Errorf("heartbeat staleness window must be positive: %s", d)
		}
		o.HeartbeatStaleAfter = d
		return nil
	}
}

// WithStaleSweep sets the sweep cadence and the silence threshold that
// triggers a restart.
func WithStaleSweep(interval, threshold time.Duration) Option {
	return func(o *Options) error {
		if interval <= 0 || threshold <= 0 {
			return fmt.Errorf("stale sweep interval and threshold must be positive: %s, %s", interval, threshold)
		}
		o.StaleSweepInterval = interval
		o.StaleResponseThreshold = threshold
		return nil
	}
}

// WithRestartBackoff sets the restart retry policy used by the sweep.
func WithRestartBackoff(b Backoff) Option {
	return func(o *Options) error {
		if b.Base <= 0 || b.MaxAttempts < 1 {
			return fmt.Errorf("restart backoff requires a positive base delay and at least one attempt")
		}
		o.RestartBackoff = b
		return nil
	}
}

// WithClientInfo identifies this host in capability requests.
func WithClientInfo(name, version string) Option {
	return func(o *Options) error {
		if name == "" {
			return fmt.Errorf("client name cannot be empty")
		}
		o.ClientName = name
		o.ClientVersion = version
		return nil
	}
}
