package redis

import (
	"context"
	"fmt"

	"github.com/trickstertwo/xtransport"
)

// Use builds and connects a Redis transport, failing fast by panicking if
// construction or the initial dial fails (production-friendly when the
// broker must be available at startup).
func Use(ctx context.Context, cfg Config, opts ...xtransport.Option) *Transport {
	t, err := NewTransport(cfg, opts...)
	if err != nil {
		panic(fmt.Errorf("redis.Use: %w", err))
	}
	if err := t.Connect(ctx); err != nil {
		panic(fmt.Errorf("redis.Use: %w", err))
	}
	return t
}
