package memory

import (
	"fmt"

	"github.com/trickstertwo/xtransport"
)

// Use builds an in-memory backend, failing fast by panicking if
// construction fails. Mirrors the redis adapter's Use for explicit startup
// initialization.
//
// Example:
//
//	tr := memory.Use(memory.Config{},
//	    xtransport.WithLogger(logger),
//	)
func Use(cfg Config, opts ...xtransport.Option) *Transport {
	t, err := NewTransport(cfg, opts...)
	if err != nil {
		panic(fmt.Errorf("memory.Use: %w", err))
	}
	return t
}
