package xtransport

import (
	"context"
	"sync"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

var _ Backend = (*Core)(nil)

// Core implements the shared lifecycle, instrumentation and envelope
// handling every backend needs. Concrete backends embed *Core and shadow
// Connect/Disconnect/Publish/Request with real connectivity, calling the
// embedded methods as part of their own paths.
type Core struct {
	clock    xclock.Clock
	logger   *xlog.Logger
	codec    Codec
	resolver TopicResolver

	resetInterval time.Duration
	timings       *timingTable

	mu        sync.Mutex
	connected bool
	listening bool
	stopReset chan struct{}

	observersMu sync.RWMutex
	observers   []Observer
}

// Handler is the wrapped-handler signature a backend must invoke for every
// inbound delivery. The payload is the decoded message body; correlation id
// and initiator come from the envelope.
type Handler func(ctx context.Context, payload any, correlationID, initiator string) (any, error)

// TopicResolver canonicalizes a routing key into the topic used as the
// timing-table key. The default is the identity transform.
type TopicResolver func(routingKey string) (string, error)

// Connect transitions the transport to connected. The base performs no I/O;
// backends shadow this to establish real connectivity and should surface
// exhausted reconnection through a fatal signal, not an error return.
func (c *Core) Connect(ctx context.Context) error {
	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return nil
}

// Disconnect stops listening and cancels the periodic stats reset. Safe to
// call on a fresh or already-disconnected transport. Backends shadowing
// Disconnect must call this as part of their own teardown.
func (c *Core) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.connected = false
	c.listening = false
	if c.stopReset != nil {
		close(c.stopReset)
		c.stopReset = nil
	}
	c.mu.Unlock()
	return nil
}

// Listen marks the transport as accepting inbound messages, clears the
// timing table immediately and arms the periodic reset. Calling Listen while
// already listening is a no-op.
func (c *Core) Listen(ctx context.Context) error {
	c.mu.Lock()
	if c.listening {
		c.mu.Unlock()
		return nil
	}
	c.listening = true
	stop := make(chan struct{})
	c.stopReset = stop
	interval := c.resetInterval
	c.mu.Unlock()

	c.timings.reset()
	if interval > 0 {
		go c.resetLoop(stop, interval)
	}
	return nil
}

// resetLoop clears the timing table every interval for as long as the
// transport is listening. The timer is re-armed after each firing, so the
// schedule self-terminates and drifts under load rather than firing at a
// fixed rate.
func (c *Core) resetLoop(stop <-chan struct{}, interval time.Duration) {
	t := time.NewTimer(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if !c.Listening() {
				return
			}
			c.timings.reset()
			t.Reset(interval)
		}
	}
}

// Listening reports whether the transport currently accepts inbound
// messages.
func (c *Core) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listening
}

// Connected reports whether Connect has succeeded without a later
// Disconnect.
func (c *Core) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ResolveTopic maps a routing key to the topic keying the timing table.
// Identity unless a TopicResolver was configured.
func (c *Core) ResolveTopic(routingKey string) (string, error) {
	if routingKey == "" {
		return "", NewInvalidArgument("routing key must not be empty")
	}
	if c.resolver != nil {
		return c.resolver(routingKey)
	}
	return routingKey, nil
}

// AddMessageListener validates the inputs and returns the instrumented
// handler. Binding the handler to a real message source is the backend's
// concern; the base only prepares the wrapper.
func (c *Core) AddMessageListener(routingKey string, cb Handler) (Handler, error) {
	return c.wrapMessageHandler(routingKey, cb)
}

// RemoveMessageListener drops the topic's timing record. Backends shadowing
// this additionally detach the real subscription.
func (c *Core) RemoveMessageListener(routingKey string) error {
	topic, err := c.ResolveTopic(routingKey)
	if err != nil {
		return err
	}
	c.timings.forget(topic)
	return nil
}

// Publish validates and stamps the outbound envelope and resolves to its
// correlation id. The base performs no delivery.
func (c *Core) Publish(ctx context.Context, routingKey string, message any, opts *MessageOptions) (string, error) {
	env, err := NewEnvelope(routingKey, message, opts)
	if err != nil {
		return "", err
	}
	return env.CorrelationID, nil
}

// Request validates and stamps the outbound envelope and resolves to its
// correlation id with no response. Backends shadow this to deliver the
// message and wait for a reply under the same validation contract.
func (c *Core) Request(ctx context.Context, routingKey string, message any, opts *MessageOptions) (string, any, error) {
	env, err := NewEnvelope(routingKey, message, opts)
	if err != nil {
		return "", nil, err
	}
	return env.CorrelationID, nil, nil
}

// Timings returns a snapshot of the per-topic timing records.
func (c *Core) Timings() map[string]TimingRecord {
	return c.timings.snapshot()
}

// ResetTimings clears all timing records, same as the periodic reset.
func (c *Core) ResetTimings() {
	c.timings.reset()
}

// Clock returns the injected clock, for backends that need consistent time.
func (c *Core) Clock() xclock.Clock { return c.clock }

// Logger returns the configured logger, possibly nil.
func (c *Core) Logger() *xlog.Logger { return c.logger }

// Codec returns the configured payload codec.
func (c *Core) Codec() Codec { return c.codec }
