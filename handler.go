package xtransport

import (
	"context"
	"errors"
	"fmt"

	"github.com/trickstertwo/xlog"
)

// wrapMessageHandler is the single place telemetry and logging are injected.
// Backends must route every inbound delivery through a handler obtained
// here, never call raw user callbacks directly.
//
// Each invocation of the returned handler is timed into the topic's record
// whether the callback succeeds or fails. Callback errors are classified by
// their log-level hint, conditionally logged, and returned unchanged.
func (c *Core) wrapMessageHandler(routingKey string, cb Handler) (Handler, error) {
	if routingKey == "" {
		return nil, NewInvalidArgument("routing key must not be empty")
	}
	if cb == nil {
		return nil, NewInvalidArgument("message callback must not be nil")
	}
	topic, err := c.ResolveTopic(routingKey)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, payload any, correlationID, initiator string) (any, error) {
		start := c.clock.Now()
		result, err := cb(ctx, payload, correlationID, initiator)
		// Timing is recorded regardless of outcome. The topic was validated
		// at wrap time, so record cannot fail here.
		_ = c.timings.record(topic, start)
		if err != nil {
			c.logHandlerError(topic, payload, correlationID, err)
		}
		return result, err
	}, nil
}

// logHandlerError emits a callback failure at the level hinted by the error.
// Skipped when no logger is configured, the error requests suppression, or
// the hint names a level the logger does not support.
func (c *Core) logHandlerError(topic string, payload any, correlationID string, err error) {
	if c.logger == nil {
		return
	}

	level := LevelError
	var te *Error
	if errors.As(err, &te) {
		if te.SkipLog {
			return
		}
		if te.Level != "" {
			level = te.Level
		}
	}

	lg := c.logger.With(
		xlog.Str("topic", topic),
		xlog.Str("correlation_id", correlationID),
		xlog.Str("payload", fmt.Sprint(payload)),
	)
	const msg = "message handler failed"
	switch level {
	case LevelDebug:
		lg.Debug().Err(err).Msg(msg)
	case LevelInfo:
		lg.Info().Err(err).Msg(msg)
	case LevelWarn:
		lg.Warn().Err(err).Msg(msg)
	case LevelError:
		lg.Error().Err(err).Msg(msg)
	}
}
