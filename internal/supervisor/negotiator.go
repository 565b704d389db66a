package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haven-ai/toolhostd/internal/domain"
	"github.com/haven-ai/toolhostd/internal/protocol"
	"github.com/haven-ai/toolhostd/internal/transport"
)

// errNegotiationAborted is returned when the process dies mid-negotiation.
var errNegotiationAborted = fmt.Errorf("process exited during capability negotiation")

// negotiation tracks one in-flight capability handshake. Exactly one exists
// per connection attempt; refreshes on a live connection create another.
type negotiation struct {
	// id is the correlation id of the capability request.
	id string

	// strict negotiations only finalize on a matching reply; the initial
	// handshake is lenient and treats any unrelated traffic as "this server
	// does not speak the handshake", degrading to an empty manifest.
	strict bool

	// outcome carries the first finalizing event; later deliveries are ignored.
	outcome chan *protocol.CapabilityResult
}

func newNegotiation(strict bool) *negotiation {
	return &negotiation{
		id:      uuid.NewString(),
		strict:  strict,
		outcome: make(chan *protocol.CapabilityResult, 1),
	}
}

// deliver finalizes the negotiation with res (nil means "degrade to empty").
// Only the first delivery counts.
func (n *negotiation) deliver(res *protocol.CapabilityResult) {
	select {
	case n.outcome <- res:
	default:
	}
}

// awaitManifest writes the capability request and blocks until the handshake
// finalizes. A timeout or a nil delivery degrades to an empty manifest; the
// server is still usable for direct method calls afterwards. A write failure
// or process death is fatal to the connection attempt.
func (s *ManagedServer) awaitManifest(
	ctx context.Context,
	tr *transport.Transport,
	neg *negotiation,
	settle bool,
) (*domain.CapabilityManifest, error) {
	if settle && s.opts.SettleDelay > 0 {
		select {
		case <-time.After(s.opts.SettleDelay):
		case <-tr.Done():
			return nil, errNegotiationAborted
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	req := protocol.NewCapabilityRequest(neg.id, s.opts.ClientName, s.opts.ClientVersion)
	if err := tr.Write(req); err != nil {
		return nil, err
	}

	timer := time.NewTimer(s.opts.NegotiationTimeout)
	defer timer.Stop()

	select {
	case res := <-neg.outcome:
		if res == nil {
			s.logger.Debug("capability negotiation degraded to empty manifest")
			return domain.EmptyManifest(time.Now().UTC()), nil
		}
		return manifestFromResult(res), nil
	case <-timer.C:
		s.logger.Warn("capability negotiation timed out, assuming no declared capabilities",
			"timeout", s.opts.NegotiationTimeout)
		return domain.EmptyManifest(time.Now().UTC()), nil
	case <-tr.Done():
		return nil, errNegotiationAborted
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// manifestFromResult converts a wire capability result into a manifest,
// normalizing absent slices and defaulting the context types.
func manifestFromResult(res *protocol.CapabilityResult) *domain.CapabilityManifest {
	m := &domain.CapabilityManifest{
		Models:       append([]string{}, res.Models...),
		Capabilities: make([]domain.Capability, 0, len(res.Capabilities)),
		ContextTypes: append([]string{}, res.ContextTypes...),
		DiscoveredAt: time.Now().UTC(),
	}

	for _, c := range res.Capabilities {
		m.Capabilities = append(m.Capabilities, domain.Capability{
			Name:        c.Name,
			Description: c.Description,
			InputSchema: c.InputSchema,
		})
	}

	if len(m.ContextTypes) == 0 {
		m.ContextTypes = []string{domain.DefaultContextType}
	}

	return m
}
