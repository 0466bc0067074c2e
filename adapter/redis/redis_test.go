package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickstertwo/xtransport"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := Defaults()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	cfg.Password = os.Getenv("REDIS_PASSWORD")
	cfg.RequestTimeout = 3 * time.Second

	client := goredis.NewClient(&goredis.Options{Addr: cfg.Addr, Password: cfg.Password})
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return cfg
}

func connectedTransport(t *testing.T, cfg Config) *Transport {
	t.Helper()
	tr, err := NewTransport(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, tr.Connect(ctx))
	require.NoError(t, tr.Listen(ctx))
	t.Cleanup(func() { _ = tr.Disconnect(context.Background()) })
	return tr
}

func TestPublish_Roundtrip(t *testing.T) {
	cfg := testConfig(t)
	tr := connectedTransport(t, cfg)

	got := make(chan any, 1)
	_, err := tr.AddMessageListener("xtransport-test-orders", func(ctx context.Context, payload any, correlationID, initiator string) (any, error) {
		got <- payload
		return nil, nil
	})
	require.NoError(t, err)

	id, err := tr.Publish(context.Background(), "xtransport-test-orders",
		map[string]any{"n": float64(1)},
		&xtransport.MessageOptions{Initiator: "tester"},
	)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case payload := <-got:
		assert.Equal(t, map[string]any{"n": float64(1)}, payload)
	case <-time.After(5 * time.Second):
		t.Fatal("no delivery")
	}

	assert.Eventually(t, func() bool {
		rec, ok := tr.Timings()["xtransport-test-orders"]
		return ok && rec.MessageCount == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRequest_ReplyRoundtrip(t *testing.T) {
	cfg := testConfig(t)
	responder := connectedTransport(t, cfg)
	requester := connectedTransport(t, cfg)

	_, err := responder.AddMessageListener("xtransport-test-echo", func(ctx context.Context, payload any, correlationID, initiator string) (any, error) {
		return payload, nil
	})
	require.NoError(t, err)

	id, res, err := requester.Request(context.Background(), "xtransport-test-echo",
		"ping", &xtransport.MessageOptions{CorrelationID: "corr-req-1"})
	require.NoError(t, err)
	assert.Equal(t, "corr-req-1", id)
	assert.Equal(t, "ping", res)
}

func TestRequest_HandlerErrorBecomesResponseError(t *testing.T) {
	cfg := testConfig(t)
	responder := connectedTransport(t, cfg)
	requester := connectedTransport(t, cfg)

	boom := xtransport.NewResponseError(xtransport.KindResponseProcessing, "boom", nil).WithSkipLog()
	_, err := responder.AddMessageListener("xtransport-test-fail", func(ctx context.Context, payload any, correlationID, initiator string) (any, error) {
		return nil, boom
	})
	require.NoError(t, err)

	_, _, err = requester.Request(context.Background(), "xtransport-test-fail", nil, nil)
	assert.Equal(t, xtransport.KindResponseProcessing, xtransport.KindOf(err))
}

func TestRequest_TimesOutWithoutResponder(t *testing.T) {
	cfg := testConfig(t)
	cfg.RequestTimeout = 300 * time.Millisecond
	tr := connectedTransport(t, cfg)

	_, _, err := tr.Request(context.Background(), "xtransport-test-void", nil, nil)
	assert.Equal(t, xtransport.KindRequest, xtransport.KindOf(err))
}

func TestDisconnected_Operations(t *testing.T) {
	tr, err := NewTransport(Defaults())
	require.NoError(t, err)

	_, err = tr.Publish(context.Background(), "t", nil, nil)
	assert.Equal(t, xtransport.KindTransportDisconnected, xtransport.KindOf(err))

	_, err = tr.AddMessageListener("t", func(ctx context.Context, payload any, correlationID, initiator string) (any, error) {
		return nil, nil
	})
	assert.Equal(t, xtransport.KindTransportDisconnected, xtransport.KindOf(err))
}

func TestConfigFromMap_Defaults(t *testing.T) {
	cfg := ConfigFromMap(map[string]any{
		"addr":            "example:6379",
		"request_timeout": "2s",
		"max_reconnects":  3,
	})
	assert.Equal(t, "example:6379", cfg.Addr)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.MaxReconnects)
	assert.Equal(t, Defaults().HeartbeatInterval, cfg.HeartbeatInterval)
}
