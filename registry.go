package xtransport

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Backend is the public surface every transport implementation exposes.
// Core provides the shared behavior; concrete backends supply connectivity,
// subscription and delivery on top of it.
type Backend interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Listen(ctx context.Context) error

	AddMessageListener(routingKey string, cb Handler) (Handler, error)
	RemoveMessageListener(routingKey string) error

	Publish(ctx context.Context, routingKey string, message any, opts *MessageOptions) (string, error)
	Request(ctx context.Context, routingKey string, message any, opts *MessageOptions) (string, any, error)

	ResolveTopic(routingKey string) (string, error)
	Timings() map[string]TimingRecord
	Listening() bool

	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
}

// ErrUnknownBackend is returned when no factory is registered for a name.
type ErrUnknownBackend struct{ name string }

func (e ErrUnknownBackend) Error() string { return fmt.Sprintf("unknown backend: %s", e.name) }

// Factory constructs backends from a config blob.
type Factory func(cfg map[string]any) (Backend, error)

var (
	backendRegistryMu sync.RWMutex
	backendRegistry   = map[string]Factory{}
)

// RegisterBackend registers a backend adapter.
func RegisterBackend(name string, factory Factory) error {
	if name == "" {
		return errors.New("backend name must not be empty")
	}
	if factory == nil {
		return errors.New("backend factory must not be nil")
	}
	backendRegistryMu.Lock()
	backendRegistry[name] = factory
	backendRegistryMu.Unlock()
	return nil
}

// NewBackend constructs a backend by name with config.
func NewBackend(name string, cfg map[string]any) (Backend, error) {
	backendRegistryMu.RLock()
	f, ok := backendRegistry[name]
	backendRegistryMu.RUnlock()
	if !ok {
		return nil, ErrUnknownBackend{name: name}
	}
	return f(cfg)
}
