package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trickstertwo/xtransport"
)

// Adapter: in-process loopback backend (dev/testing).

const BackendName = "memory"

func init() {
	if err := xtransport.RegisterBackend(BackendName, func(cfg map[string]any) (xtransport.Backend, error) {
		return NewTransport(ConfigFromMap(cfg))
	}); err != nil {
		panic(fmt.Errorf("xtransport/memory: failed to register backend: %w", err))
	}
}

// Config controls the memory backend.
type Config struct {
	// TimingsResetInterval overrides the core default when positive.
	TimingsResetInterval time.Duration
}

// ConfigFromMap safely converts cfg into Config with defaults.
func ConfigFromMap(cfg map[string]any) Config {
	getDur := func(k string, d time.Duration) time.Duration {
		switch v := cfg[k].(type) {
		case time.Duration:
			return v
		case string:
			if p, err := time.ParseDuration(v); err == nil {
				return p
			}
		case float64:
			return time.Duration(v)
		}
		return d
	}

	return Config{
		TimingsResetInterval: getDur("timings_reset_interval", 0),
	}
}

// Transport loops published messages back to locally bound handlers. Every
// delivery goes through the core's instrumented wrapper, so timing and
// error logging behave exactly as with a real broker.
type Transport struct {
	*xtransport.Core

	mu       sync.RWMutex
	handlers map[string]xtransport.Handler
}

var _ xtransport.Backend = (*Transport)(nil)

// NewTransport creates an in-memory backend.
func NewTransport(cfg Config, opts ...xtransport.Option) (*Transport, error) {
	if cfg.TimingsResetInterval > 0 {
		opts = append([]xtransport.Option{
			xtransport.WithTimingsResetInterval(cfg.TimingsResetInterval),
		}, opts...)
	}
	core, err := xtransport.New(opts...)
	if err != nil {
		return nil, err
	}
	return &Transport{
		Core:     core,
		handlers: make(map[string]xtransport.Handler),
	}, nil
}

// AddMessageListener binds the instrumented handler to the resolved topic.
func (t *Transport) AddMessageListener(routingKey string, cb xtransport.Handler) (xtransport.Handler, error) {
	h, err := t.Core.AddMessageListener(routingKey, cb)
	if err != nil {
		return nil, err
	}
	topic, err := t.ResolveTopic(routingKey)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.handlers[topic] = h
	t.mu.Unlock()
	return h, nil
}

// RemoveMessageListener detaches the handler and drops its timing record.
func (t *Transport) RemoveMessageListener(routingKey string) error {
	if err := t.Core.RemoveMessageListener(routingKey); err != nil {
		return err
	}
	topic, err := t.ResolveTopic(routingKey)
	if err != nil {
		return err
	}
	t.mu.Lock()
	delete(t.handlers, topic)
	t.mu.Unlock()
	return nil
}

// Publish delivers fire-and-forget to the bound handler, if any. Messages
// published while not listening are dropped, as with a real broker whose
// consumer is detached.
func (t *Transport) Publish(ctx context.Context, routingKey string, message any, opts *xtransport.MessageOptions) (string, error) {
	env, err := xtransport.NewEnvelope(routingKey, message, opts)
	if err != nil {
		return "", err
	}
	topic, err := t.ResolveTopic(routingKey)
	if err != nil {
		return "", err
	}

	if h := t.handler(topic); h != nil && t.Listening() {
		go func() {
			_, _ = h(ctx, env.Message, env.CorrelationID, env.Initiator)
		}()
	}
	return env.CorrelationID, nil
}

// Request delivers synchronously to the bound handler and returns its
// result.
func (t *Transport) Request(ctx context.Context, routingKey string, message any, opts *xtransport.MessageOptions) (string, any, error) {
	env, err := xtransport.NewEnvelope(routingKey, message, opts)
	if err != nil {
		return "", nil, err
	}
	topic, err := t.ResolveTopic(routingKey)
	if err != nil {
		return "", nil, err
	}

	h := t.handler(topic)
	if h == nil {
		return env.CorrelationID, nil, xtransport.NewResponseError(
			xtransport.KindNotFound,
			fmt.Sprintf("no handler bound for topic %q", topic),
			nil,
		)
	}
	result, err := h(ctx, env.Message, env.CorrelationID, env.Initiator)
	return env.CorrelationID, result, err
}

func (t *Transport) handler(topic string) xtransport.Handler {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.handlers[topic]
}
