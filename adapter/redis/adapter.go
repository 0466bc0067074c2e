package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trickstertwo/xtransport"
)

// Adapter: Redis pub/sub transport (Strategy + Adapter patterns)

const BackendName = "redis"

func init() {
	if err := xtransport.RegisterBackend(BackendName, func(cfg map[string]any) (xtransport.Backend, error) {
		return NewTransport(ConfigFromMap(cfg))
	}); err != nil {
		panic(fmt.Errorf("xtransport/redis: failed to register backend: %w", err))
	}
}

// wireEnvelope is the on-the-wire form of an outbound envelope.
type wireEnvelope struct {
	RoutingKey    string `json:"routingKey"`
	CorrelationID string `json:"correlationId"`
	Initiator     string `json:"initiator,omitempty"`
	ReplyTo       string `json:"replyTo,omitempty"`
	Message       any    `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Transport is a Redis pub/sub backed transport.
type Transport struct {
	*xtransport.Core

	cfg    Config
	client *redis.Client

	mu        sync.Mutex
	subs      map[string]*subscription
	stopWatch chan struct{}
}

type subscription struct {
	ps   *redis.PubSub
	done chan struct{}
}

var _ xtransport.Backend = (*Transport)(nil)

// NewTransport creates a Redis transport. The client is dialed on Connect,
// not here.
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
		Core: core,
		cfg:  cfg,
		subs: make(map[string]*subscription),
	}, nil
}

// Connect dials Redis, verifies it with a ping and starts the connection
// watcher.
func (t *Transport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.client != nil {
		t.mu.Unlock()
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     t.cfg.Addr,
		Username: t.cfg.Username,
		Password: t.cfg.Password,
		DB:       t.cfg.DB,
	})
	t.client = client
	stop := make(chan struct{})
	t.stopWatch = stop
	t.mu.Unlock()

	if err := client.Ping(ctx).Err(); err != nil {
		t.mu.Lock()
		t.client = nil
		t.stopWatch = nil
		t.mu.Unlock()
		_ = client.Close()
		return xtransport.NewTransportDisconnected("redis ping failed: %v", err)
	}

	if err := t.Core.Connect(ctx); err != nil {
		return err
	}
	if t.cfg.HeartbeatInterval > 0 {
		go t.watch(stop)
	}
	return nil
}

// watch pings the server periodically, raising disconnected/reconnected
// signals and a fatal signal once reconnection attempts are exhausted.
func (t *Transport) watch(stop <-chan struct{}) {
	ticker := time.NewTicker(t.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.mu.Lock()
			client := t.client
			t.mu.Unlock()
			if client == nil {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), t.cfg.HeartbeatInterval)
			err := client.Ping(ctx).Err()
			cancel()
			if err == nil {
				continue
			}

			t.Emit(xtransport.Signal{Type: xtransport.SignalDisconnected, Err: err})
			if t.reconnect(stop, client) {
				t.Emit(xtransport.Signal{Type: xtransport.SignalReconnected})
				continue
			}
			t.EmitFatal(xtransport.NewTransportDisconnected(
				"redis unreachable after %d reconnect attempts", t.cfg.MaxReconnects))
			_ = t.Disconnect(context.Background())
			return
		}
	}
}

// reconnect retries pings with backoff. The owner is notified through
// signals; no error is returned because no caller waits synchronously.
func (t *Transport) reconnect(stop <-chan struct{}, client *redis.Client) bool {
	backoff := t.cfg.ReconnectBackoff
	for attempt := 0; attempt < t.cfg.MaxReconnects; attempt++ {
		select {
		case <-stop:
			return false
		case <-time.After(backoff):
		}
		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.HeartbeatInterval)
		err := client.Ping(ctx).Err()
		cancel()
		if err == nil {
			return true
		}
		backoff *= 2
	}
	return false
}

// Disconnect tears down subscriptions, the watcher and the client, then
// runs the core teardown (stops the periodic stats reset).
func (t *Transport) Disconnect(ctx context.Context) error {
	t.mu.Lock()
	if t.stopWatch != nil {
		close(t.stopWatch)
		t.stopWatch = nil
	}
	subs := t.subs
	t.subs = make(map[string]*subscription)
	client := t.client
	t.client = nil
	t.mu.Unlock()

	for _, s := range subs {
		_ = s.ps.Close()
		<-s.done
	}
	if client != nil {
		_ = client.Close()
	}
	return t.Core.Disconnect(ctx)
}

// AddMessageListener subscribes the resolved topic and pumps deliveries
// through the instrumented handler. Deliveries arriving while the transport
// is not listening are dropped.
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
	client := t.client
	if client == nil {
		t.mu.Unlock()
		return nil, xtransport.NewTransportDisconnected("not connected")
	}
	if _, ok := t.subs[topic]; ok {
		t.mu.Unlock()
		return nil, xtransport.NewInvalidArgument("topic %q already has a listener", topic)
	}
	ps := client.Subscribe(context.Background(), topic)
	sub := &subscription{ps: ps, done: make(chan struct{})}
	t.subs[topic] = sub
	t.mu.Unlock()

	go t.pump(sub, h)
	return h, nil
}

// pump drives one subscription's deliveries through the wrapped handler and
// publishes replies for request/reply traffic.
func (t *Transport) pump(sub *subscription, h xtransport.Handler) {
	defer close(sub.done)
	for msg := range sub.ps.Channel() {
		if !t.Listening() {
			continue
		}
		var env wireEnvelope
		if err := t.Codec().Unmarshal([]byte(msg.Payload), &env); err != nil {
			if lg := t.Logger(); lg != nil {
				lg.Warn().Err(err).Msg("dropping undecodable delivery")
			}
			continue
		}

		ctx := context.Background()
		result, err := h(ctx, env.Message, env.CorrelationID, env.Initiator)
		if env.ReplyTo == "" {
			continue
		}
		reply := wireEnvelope{
			RoutingKey:    env.ReplyTo,
			CorrelationID: env.CorrelationID,
			Message:       result,
		}
		if err != nil {
			reply.Error = err.Error()
		}
		if perr := t.publishWire(ctx, env.ReplyTo, reply); perr != nil {
			if lg := t.Logger(); lg != nil {
				lg.Warn().Err(perr).Msg("reply publish failed")
			}
		}
	}
}

// RemoveMessageListener closes the topic subscription and forgets its
// timing record.
func (t *Transport) RemoveMessageListener(routingKey string) error {
	if err := t.Core.RemoveMessageListener(routingKey); err != nil {
		return err
	}
	topic, err := t.ResolveTopic(routingKey)
	if err != nil {
		return err
	}

	t.mu.Lock()
	sub, ok := t.subs[topic]
	delete(t.subs, topic)
	t.mu.Unlock()
	if ok {
		_ = sub.ps.Close()
		<-sub.done
	}
	return nil
}

// Publish sends the encoded envelope fire-and-forget.
func (t *Transport) Publish(ctx context.Context, routingKey string, message any, opts *xtransport.MessageOptions) (string, error) {
	env, err := xtransport.NewEnvelope(routingKey, message, opts)
	if err != nil {
		return "", err
	}
	topic, err := t.ResolveTopic(routingKey)
	if err != nil {
		return "", err
	}
	wire := wireEnvelope{
		RoutingKey:    env.RoutingKey,
		CorrelationID: env.CorrelationID,
		Initiator:     env.Initiator,
		Message:       env.Message,
	}
	if err := t.publishWire(ctx, topic, wire); err != nil {
		return "", err
	}
	return env.CorrelationID, nil
}

// Request publishes the envelope and waits for a reply on a channel keyed
// by the correlation id.
func (t *Transport) Request(ctx context.Context, routingKey string, message any, opts *xtransport.MessageOptions) (string, any, error) {
	env, err := xtransport.NewEnvelope(routingKey, message, opts)
	if err != nil {
		return "", nil, err
	}
	topic, err := t.ResolveTopic(routingKey)
	if err != nil {
		return "", nil, err
	}

	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil {
		return "", nil, xtransport.NewTransportDisconnected("not connected")
	}

	replyTo := fmt.Sprintf("%s:reply:%s", topic, env.CorrelationID)
	ps := client.Subscribe(ctx, replyTo)
	defer ps.Close()
	// Wait for the subscription to be established before publishing, or the
	// reply can race past us.
	if _, err := ps.Receive(ctx); err != nil {
		return "", nil, xtransport.NewRequestError("reply subscribe failed: %v", err)
	}

	wire := wireEnvelope{
		RoutingKey:    env.RoutingKey,
		CorrelationID: env.CorrelationID,
		Initiator:     env.Initiator,
		ReplyTo:       replyTo,
		Message:       env.Message,
	}
	if err := t.publishWire(ctx, topic, wire); err != nil {
		return "", nil, err
	}

	timeout := t.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = Defaults().RequestTimeout
	}
	select {
	case <-ctx.Done():
		return env.CorrelationID, nil, xtransport.NewRequestError("request canceled: %v", ctx.Err())
	case <-time.After(timeout):
		return env.CorrelationID, nil, xtransport.NewRequestError("no reply within %s", timeout)
	case msg, ok := <-ps.Channel():
		if !ok {
			return env.CorrelationID, nil, xtransport.NewRequestError("reply channel closed")
		}
		var reply wireEnvelope
		if err := t.Codec().Unmarshal([]byte(msg.Payload), &reply); err != nil {
			return env.CorrelationID, nil, xtransport.NewResponseError(
				xtransport.KindResponse, "undecodable reply", msg.Payload)
		}
		if reply.Error != "" {
			return env.CorrelationID, nil, xtransport.NewResponseError(
				xtransport.KindResponseProcessing, reply.Error, reply.Message)
		}
		return env.CorrelationID, reply.Message, nil
	}
}

func (t *Transport) publishWire(ctx context.Context, channel string, wire wireEnvelope) error {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	if client == nil {
		return xtransport.NewTransportDisconnected("not connected")
	}
	data, err := t.Codec().Marshal(wire)
	if err != nil {
		return xtransport.NewRequestError("envelope encode failed: %v", err)
	}
	if err := client.Publish(ctx, channel, data).Err(); err != nil {
		return xtransport.NewRequestError("publish to %q failed: %v", channel, err)
	}
	return nil
}
