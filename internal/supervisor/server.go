package supervisor

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/xeipuuv/gojsonschema"

	"github.com/haven-ai/toolhostd/internal/config"
	"github.com/haven-ai/toolhostd/internal/domain"
	"github.com/haven-ai/toolhostd/internal/errors"
	"github.com/haven-ai/toolhostd/internal/protocol"
	"github.com/haven-ai/toolhostd/internal/transport"
)

// ManagedServer is the lifecycle record for one configured tool server. It owns
// at most one live transport at a time and is the only writer of its own status.
// The record survives stop/start cycles so last-known capabilities and errors
// stay inspectable while disconnected.
type ManagedServer struct {
	id     string
	logger hclog.Logger
	opts   Options
	notify func(domain.StatusEvent)

	// startMu serializes start attempts; a start in progress blocks a second
	// start until the first settles.
	startMu sync.Mutex

	mu             sync.Mutex
	cfg            config.ServerEntry
	status         domain.Status
	generation     int
	transport      *transport.Transport
	correlator     *Correlator
	negotiation    *negotiation
	manifest       *domain.CapabilityManifest
	cachedManifest *domain.CapabilityManifest
	lastError      string
	startedAt      time.Time
	lastHeartbeat  time.Time
	lastResponse   time.Time
}

func newManagedServer(
	logger hclog.Logger,
	cfg config.ServerEntry,
	opts Options,
	notify func(domain.StatusEvent),
) *ManagedServer {
	return &ManagedServer{
		id:     cfg.Name,
		logger: logger.Named("server").With("server", cfg.Name),
		opts:   opts,
		notify: notify,
		cfg:    cfg,
		status: domain.StatusDisconnected,
	}
}

// ID returns the stable server identifier.
func (s *ManagedServer) ID() string {
	return s.id
}

// Start spawns the server's process and runs capability negotiation. Starting a
// server that is already connecting, connected or still stopping is a no-op
// with a warning. A restart may apply an updated configuration set via
// UpdateConfig.
func (s *ManagedServer) Start(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	switch s.status {
	case domain.StatusConnecting, domain.StatusConnected, domain.StatusStopping:
		status := s.status
		s.mu.Unlock()
		s.logger.Warn("start requested but server already has a live process", "status", status)
		return nil
	}

	cfg := s.cfg.Clone()
	neg := newNegotiation(false)
	corr := NewCorrelator(s.logger)

	s.generation++
	gen := s.generation
	s.negotiation = neg
	s.correlator = corr
	s.setStatusLocked(domain.StatusConnecting, "")

	// Hold the lock across the spawn so the transport is registered before
	// any handler for this generation can run; an instant exit must find the
	// transport in place to drive the Connecting -> Error transition.
	tr, err := transport.Start(s.logger, transport.Config{
		Command:     cfg.Command,
		Args:        cfg.Args,
		Env:         cfg.Env,
		Shell:       cfg.Shell,
		WindowsHide: cfg.WindowsHide,
	}, transport.Handlers{
		OnMessage:    func(m protocol.Message) { s.handleMessage(gen, m) },
		OnParseError: func(line string, err error) { s.logger.Warn("dropped malformed line", "error", err, "line", line) },
		OnDiagnostic: func(line string) { s.logger.Debug("server diagnostics", "line", line) },
		OnExit:       func(st transport.ExitStatus) { s.handleExit(gen, st) },
	})
	if err != nil {
		s.mu.Unlock()
		s.teardown(gen, domain.StatusError, err.Error())
		return err
	}

	s.transport = tr
	s.startedAt = time.Now().UTC()
	s.lastHeartbeat = time.Time{}
	s.lastResponse = time.Time{}
	s.mu.Unlock()

	manifest, err := s.awaitManifest(ctx, tr, neg, true)
	if err != nil {
		switch {
		case stderrors.Is(err, errNegotiationAborted):
			// The exit handler (or an explicit stop) owns the transition.
			return fmt.Errorf("server '%s': %w", s.id, err)
		case ctx.Err() != nil:
			s.teardown(gen, domain.StatusDisconnected, "start canceled")
			return err
		default:
			s.teardown(gen, domain.StatusError, fmt.Sprintf("capability negotiation failed: %v", err))
			return err
		}
	}

	return s.finalizeConnect(gen, manifest)
}

// Stop disposes the live transport and waits for process exit, holding the
// record in Stopping until the bounded grace period enforced by the transport
// has run out. Stopping a server with no live process is a no-op.
func (s *ManagedServer) Stop() error {
	s.mu.Lock()
	if s.transport == nil || s.status == domain.StatusStopping {
		s.mu.Unlock()
		s.logger.Debug("stop requested with no live process")
		return nil
	}

	gen := s.generation
	tr := s.transport
	corr := s.correlator
	s.negotiation = nil
	s.setStatusLocked(domain.StatusStopping, "")
	s.mu.Unlock()

	if corr != nil {
		corr.RejectAll(fmt.Errorf("%w: disposing connection to '%s'", errors.ErrDisposed, s.id))
	}

	// Dispose blocks until the process is gone: termination signal, bounded
	// grace, then a forceful kill.
	tr.Dispose()

	s.mu.Lock()
	if s.generation == gen && s.status == domain.StatusStopping {
		s.transport = nil
		s.correlator = nil
		s.setStatusLocked(domain.StatusDisconnected, "")
	}
	s.mu.Unlock()

	return nil
}

// Restart stops the server if running, then starts it again.
func (s *ManagedServer) Restart(ctx context.Context) error {
	if err := s.Stop(); err != nil {
		return err
	}
	return s.Start(ctx)
}

// Call routes one method call to the connected server. It fails fast when the
// server is not connected, validates arguments against the capability's input
// schema when one was negotiated, and otherwise delegates to the correlator.
func (s *ManagedServer) Call(
	ctx context.Context,
	method string,
	args map[string]any,
) (json.RawMessage, error) {
	s.mu.Lock()
	if s.status != domain.StatusConnected || s.transport == nil {
		status := s.status
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: server '%s' is %s", errors.ErrServerNotConnected, s.id, status)
	}
	tr := s.transport
	corr := s.correlator
	manifest := s.manifest
	s.mu.Unlock()

	if capability, ok := manifest.Capability(method); ok {
		if err := validateArguments(s.logger, capability, args); err != nil {
			return nil, err
		}
	}

	var params any
	if args != nil {
		params = args
	}

	result, err := corr.Call(ctx, tr, method, params, s.opts.RequestTimeout)
	if err != nil && stderrors.Is(err, errors.ErrWrite) {
		s.failWrite(err)
	}
	return result, err
}

// RefreshCapabilities re-runs negotiation on the live connection without
// restarting the process. The refreshed manifest replaces the current one.
func (s *ManagedServer) RefreshCapabilities(ctx context.Context) (*domain.CapabilityManifest, error) {
	s.mu.Lock()
	if s.status != domain.StatusConnected || s.transport == nil {
		status := s.status
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: server '%s' is %s", errors.ErrServerNotConnected, s.id, status)
	}
	gen := s.generation
	tr := s.transport
	neg := newNegotiation(true)
	s.negotiation = neg
	s.mu.Unlock()

	manifest, err := s.awaitManifest(ctx, tr, neg, false)

	s.mu.Lock()
	if s.negotiation == neg {
		s.negotiation = nil
	}
	if err != nil || s.generation != gen || s.status != domain.StatusConnected {
		s.mu.Unlock()
		if err == nil {
			err = fmt.Errorf("%w: server '%s' disconnected during refresh", errors.ErrServerNotConnected, s.id)
		}
		return nil, err
	}
	s.manifest = manifest
	s.cachedManifest = manifest.Clone()
	s.setStatusLocked(domain.StatusConnected, "")
	s.mu.Unlock()

	return manifest.Clone(), nil
}

// Status returns an inspectable snapshot. The manifest may be a cached copy
// from the last connection when the server is not currently connected.
func (s *ManagedServer) Status() domain.ServerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.ServerStatus{
		ID:        s.id,
		Status:    s.status,
		LastError: s.lastError,
		Manifest:  s.manifest.Clone(),
	}
	if st.Manifest == nil {
		st.Manifest = s.cachedManifest.Clone()
	}
	if s.transport != nil {
		st.PID = s.transport.PID()
	}
	if !s.startedAt.IsZero() && (s.status == domain.StatusConnecting || s.status == domain.StatusConnected) {
		started := s.startedAt
		st.StartedAt = &started
	}
	return st
}

// UpdateConfig stores a new configuration; it takes effect on the next start.
func (s *ManagedServer) UpdateConfig(cfg config.ServerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg.Clone()
}

// finalizeConnect publishes the Connected state exactly once per connection
// attempt; a connection torn down mid-negotiation stays torn down.
func (s *ManagedServer) finalizeConnect(gen int, manifest *domain.CapabilityManifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen || s.status != domain.StatusConnecting {
		return fmt.Errorf("server '%s' was torn down during negotiation", s.id)
	}

	s.negotiation = nil
	s.manifest = manifest
	s.cachedManifest = manifest.Clone()
	s.setStatusLocked(domain.StatusConnected, "")
	s.logger.Info("server connected",
		"capabilities", len(manifest.Capabilities), "models", len(manifest.Models))
	return nil
}

// teardown disposes connection state for the given generation and lands on the
// target status, rejecting anything still pending.
func (s *ManagedServer) teardown(gen int, target domain.Status, reason string) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	tr := s.transport
	corr := s.correlator
	s.transport = nil
	s.correlator = nil
	s.negotiation = nil
	s.setStatusLocked(target, reason)
	s.mu.Unlock()

	if corr != nil {
		corr.RejectAll(fmt.Errorf("%w: %s", errors.ErrDisposed, reason))
	}
	if tr != nil {
		tr.Dispose()
	}
}

// failWrite demotes a connected server after its input stream broke.
func (s *ManagedServer) failWrite(err error) {
	s.mu.Lock()
	if s.status != domain.StatusConnected {
		s.mu.Unlock()
		return
	}
	gen := s.generation
	s.mu.Unlock()

	s.logger.Error("write to server process failed", "error", err)
	s.teardown(gen, domain.StatusError, fmt.Sprintf("write failure: %v", err))
}

// markUnhealthy is the monitor's entry point: it demotes a connected server to
// Disconnected with a descriptive reason and disposes the transport. Recovery
// is the caller's policy decision.
func (s *ManagedServer) markUnhealthy(reason string) {
	s.mu.Lock()
	if s.status != domain.StatusConnected {
		s.mu.Unlock()
		return
	}
	gen := s.generation
	s.mu.Unlock()

	s.logger.Warn("liveness check failed, disconnecting", "reason", reason)
	s.teardown(gen, domain.StatusDisconnected, reason)
}

// handleMessage dispatches one decoded message from the live transport.
// Events for this server run to completion under its lock.
func (s *ManagedServer) handleMessage(gen int, msg protocol.Message) {
	s.mu.Lock()

	if s.generation != gen || s.transport == nil {
		s.mu.Unlock()
		return
	}

	now := time.Now().UTC()
	neg := s.negotiation

	switch msg.Kind {
	case protocol.KindHeartbeat:
		s.lastHeartbeat = now
		if len(msg.Heartbeat.Models) > 0 && s.manifest != nil {
			s.manifest.Models = append([]string{}, msg.Heartbeat.Models...)
			s.cachedManifest = s.manifest.Clone()
		}
		s.mu.Unlock()

		// A server that sends heartbeats instead of answering the initial
		// handshake does not negotiate; settle for the empty manifest.
		if neg != nil && !neg.strict {
			neg.deliver(nil)
		}

	case protocol.KindCapabilityResponse:
		s.mu.Unlock()
		if neg != nil {
			neg.deliver(msg.CapabilityResponse)
		} else {
			s.logger.Debug("ignoring capability response with no negotiation in flight")
		}

	case protocol.KindResponse:
		s.lastResponse = now
		corr := s.correlator
		s.mu.Unlock()

		resp := *msg.Response
		if neg != nil && resp.ID == neg.id {
			s.deliverNegotiationReply(neg, resp)
			return
		}
		if corr != nil && corr.Resolve(resp) {
			return
		}
		if neg != nil && !neg.strict {
			neg.deliver(nil)
			return
		}
		s.logger.Debug("unsolicited response", "id", resp.ID)

	default:
		s.mu.Unlock()
		if neg != nil && !neg.strict {
			neg.deliver(nil)
			return
		}
		s.logger.Debug("unrecognized message", "raw", string(msg.Raw))
	}
}

// deliverNegotiationReply parses the reply to the capability request. A
// malformed or error reply degrades to the empty manifest.
func (s *ManagedServer) deliverNegotiationReply(neg *negotiation, resp protocol.Response) {
	if resp.Error != nil {
		s.logger.Warn("capability request rejected by server",
			"code", resp.Error.Code, "message", resp.Error.Message)
		neg.deliver(nil)
		return
	}

	res, err := protocol.ParseCapabilityResult(resp.Result)
	if err != nil {
		s.logger.Warn("malformed capability response", "error", err)
		neg.deliver(nil)
		return
	}
	neg.deliver(res)
}

// handleExit reacts to the process ending. An exit during Stopping is expected
// and owned by Stop; any other exit of the current generation is a failure.
func (s *ManagedServer) handleExit(gen int, st transport.ExitStatus) {
	s.mu.Lock()
	if s.generation != gen || s.transport == nil || s.status == domain.StatusStopping {
		s.mu.Unlock()
		return
	}

	corr := s.correlator
	s.transport = nil
	s.correlator = nil
	s.negotiation = nil
	reason := exitReason(st)
	s.setStatusLocked(domain.StatusError, reason)
	s.mu.Unlock()

	s.logger.Error("server process exited unexpectedly", "code", st.Code, "signal", st.Signal)

	if corr != nil {
		corr.RejectAll(fmt.Errorf("%w: %s", errors.ErrDisposed, reason))
	}
}

// setStatusLocked records the transition and publishes the status event.
// Callers must hold s.mu; events are therefore emitted in transition order.
func (s *ManagedServer) setStatusLocked(status domain.Status, errMsg string) {
	s.status = status
	if status == domain.StatusError {
		s.lastError = errMsg
	} else {
		s.lastError = ""
	}
	if status != domain.StatusConnected {
		s.manifest = nil
	}

	ev := domain.StatusEvent{
		ServerID: s.id,
		Status:   status,
		Error:    errMsg,
		Manifest: s.manifest.Clone(),
	}
	if s.transport != nil {
		ev.PID = s.transport.PID()
	}
	s.notify(ev)
}

// checkLiveness reports whether a connected server still looks healthy: the
// process answers a zero-signal probe, and heartbeats (when the server sends
// any) are fresh. Non-connected servers are always fine.
func (s *ManagedServer) checkLiveness(now time.Time) (ok bool, reason string) {
	s.mu.Lock()
	if s.status != domain.StatusConnected || s.transport == nil {
		s.mu.Unlock()
		return true, ""
	}
	tr := s.transport
	lastHeartbeat := s.lastHeartbeat
	s.mu.Unlock()

	if !tr.Alive() {
		return false, "process no longer responds to liveness probe"
	}

	if !lastHeartbeat.IsZero() && now.Sub(lastHeartbeat) > s.opts.HeartbeatStaleAfter {
		return false, fmt.Sprintf("no heartbeat received for %s", now.Sub(lastHeartbeat).Round(time.Second))
	}

	return true, ""
}

// connectedSince reports the most recent sign of life from a connected server:
// a reply, a heartbeat, or the start itself. The zero time means not connected.
func (s *ManagedServer) connectedSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.StatusConnected {
		return time.Time{}
	}

	latest := s.startedAt
	if s.lastResponse.After(latest) {
		latest = s.lastResponse
	}
	if s.lastHeartbeat.After(latest) {
		latest = s.lastHeartbeat
	}
	return latest
}

func exitReason(st transport.ExitStatus) string {
	if st.Signal != "" {
		return fmt.Sprintf("process exited unexpectedly (signal %s)", st.Signal)
	}
	return fmt.Sprintf("process exited unexpectedly (exit code %d)", st.Code)
}

// validateArguments checks args against the capability's declared input schema.
// A schema the server itself published malformed is logged and skipped rather
// than blocking the call.
func validateArguments(logger hclog.Logger, capability domain.Capability, args map[string]any) error {
	if len(capability.InputSchema) == 0 {
		return nil
	}

	payload := args
	if payload == nil {
		payload = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(capability.InputSchema),
		gojsonschema.NewGoLoader(payload),
	)
	if err != nil {
		logger.Warn("skipping argument validation, capability schema unusable",
			"capability", capability.Name, "error", err)
		return nil
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		details = append(details, e.String())
	}
	return fmt.Errorf("%w for '%s': %s", errors.ErrInvalidArguments, capability.Name, strings.Join(details, "; "))
}
