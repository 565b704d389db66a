package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/haven-ai/toolhostd/internal/errors"
	"github.com/haven-ai/toolhostd/internal/protocol"
)

// DefaultRequestTimeout bounds a method call when the caller does not supply a timeout.
const DefaultRequestTimeout = 30 * time.Second

// requestWriter is the part of the transport the correlator needs.
type requestWriter interface {
	Write(payload any) error
}

type callResult struct {
	result json.RawMessage
	err    error
}

// Correlator assigns a unique id to each outbound request and matches inbound
// replies to pending calls by id, not by arrival order. One Correlator exists
// per live transport; disposal rejects every pending call.
type Correlator struct {
	logger hclog.Logger

	mu      sync.Mutex
	pending map[string]chan callResult
}

// NewCorrelator creates an empty correlator.
func NewCorrelator(logger hclog.Logger) *Correlator {
	return &Correlator{
		logger:  logger.Named("correlator"),
		pending: make(map[string]chan callResult),
	}
}

// Call writes a framed request and blocks until a matching reply arrives, the
// timeout fires, the context is canceled, or the correlator is rejected in bulk.
// A timeout rejects only this call; other pending calls are unaffected.
func (c *Correlator) Call(
	ctx context.Context,
	w requestWriter,
	method string,
	params any,
	timeout time.Duration,
) (json.RawMessage, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	id := uuid.NewString()
	ch := make(chan callResult, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := w.Write(protocol.Request{ID: id, Method: method, Params: params}); err != nil {
		c.remove(id)
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.result, res.err
	case <-timer.C:
		c.remove(id)
		return nil, fmt.Errorf("%w: no reply to '%s' within %s", errors.ErrRequestTimeout, method, timeout)
	case <-ctx.Done():
		c.remove(id)
		return nil, ctx.Err()
	}
}

// Resolve matches an inbound reply to a pending call. It returns false when no
// pending entry carries the reply's id, in which case the message is unsolicited
// and must be handled by the server's generic message stream.
func (c *Correlator) Resolve(resp protocol.Response) bool {
	c.mu.Lock()
	ch, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}

	if resp.Error != nil {
		ch <- callResult{err: fmt.Errorf("%w: %w", errors.ErrMethodCallFailed, resp.Error)}
		return true
	}

	ch <- callResult{result: resp.Result}
	return true
}

// RejectAll rejects every pending call with err and empties the pending map.
// It returns the number of calls rejected; no call is ever silently dropped.
func (c *Correlator) RejectAll(err error) int {
	c.mu.Lock()
	chans := make([]chan callResult, 0, len(c.pending))
	for _, ch := range c.pending {
		chans = append(chans, ch)
	}
	c.pending = make(map[string]chan callResult)
	c.mu.Unlock()

	for _, ch := range chans {
		ch <- callResult{err: err}
	}

	if len(chans) > 0 {
		c.logger.Debug("rejected pending calls", "count", len(chans), "reason", err)
	}

	return len(chans)
}

// PendingCount returns the number of in-flight calls.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Correlator) remove(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}
