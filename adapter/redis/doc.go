// Package redis provides a Redis pub/sub backed transport.
//
// It layers real connectivity on the shared xtransport core: listeners are
// Redis channel subscriptions pumped through the core's instrumented
// handlers, Publish is a fire-and-forget PUBLISH of the encoded envelope,
// and Request publishes and waits on a per-correlation-id reply channel.
// A background heartbeat watches the connection and raises the
// disconnected/reconnected/fatal lifecycle signals.
package redis
