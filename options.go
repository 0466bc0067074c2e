package xtransport

import (
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// DefaultTimingsResetInterval is how often the timing table is cleared while
// listening, unless overridden at construction.
const DefaultTimingsResetInterval = 5 * time.Minute

// Option configures a Core at construction.
type Option func(*Core)

// WithTimingsResetInterval overrides the periodic stats-reset interval.
// Zero disables the periodic reset; negative values fail construction.
func WithTimingsResetInterval(d time.Duration) Option {
	return func(c *Core) { c.resetInterval = d }
}

// WithLogger injects the logger used for handler-failure auto-logging.
// Without one, logging is skipped entirely.
func WithLogger(l *xlog.Logger) Option {
	return func(c *Core) { c.logger = l }
}

// WithClock injects a custom clock for all timing observations.
func WithClock(clk xclock.Clock) Option {
	return func(c *Core) { c.clock = clk }
}

// WithCodec selects the payload codec backends encode envelopes with.
func WithCodec(codec Codec) Option {
	return func(c *Core) {
		if codec != nil {
			c.codec = codec
		}
	}
}

// WithTopicResolver replaces the identity routing-key-to-topic transform,
// e.g. to lower-case keys or expand wildcards.
func WithTopicResolver(r TopicResolver) Option {
	return func(c *Core) { c.resolver = r }
}

// New constructs the shared transport core. Backends embed the result and
// layer real connectivity on top of it.
func New(opts ...Option) (*Core, error) {
	c := &Core{
		resetInterval: DefaultTimingsResetInterval,
		codec:         JSONCodec{},
	}
	for _, o := range opts {
		if o != nil {
			o(c)
		}
	}
	if c.resetInterval < 0 {
		return nil, NewInvalidArgument("timings reset interval must not be negative")
	}
	if c.clock == nil {
		c.clock = xclock.Default()
	}
	c.timings = newTimingTable(c.clock)
	return c, nil
}
