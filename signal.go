package xtransport

import (
	"github.com/trickstertwo/xlog"
)

// SignalType enumerates asynchronous lifecycle notifications a backend
// raises toward its owner.
type SignalType string

const (
	// SignalDisconnected reports a lost connection the backend is trying to
	// recover from.
	SignalDisconnected SignalType = "disconnected"
	// SignalReconnected reports a recovered connection.
	SignalReconnected SignalType = "reconnected"
	// SignalError reports exhausted recovery. The owning process must treat
	// it as fatal.
	SignalError SignalType = "error"
)

// Signal carries one lifecycle notification.
type Signal struct {
	Type SignalType
	Err  error
}

// Observer receives lifecycle signals. Observers are notified synchronously
// on the emitting goroutine and should not block.
type Observer interface {
	OnSignal(s Signal)
}

// ObserverFunc is an Adapter that lets a plain function satisfy Observer.
type ObserverFunc func(s Signal)

func (f ObserverFunc) OnSignal(s Signal) { f(s) }

// AddObserver registers an observer for lifecycle signals.
func (c *Core) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	c.observersMu.Lock()
	c.observers = append(c.observers, obs)
	c.observersMu.Unlock()
}

// RemoveObserver removes a previously registered observer.
func (c *Core) RemoveObserver(obs Observer) {
	if obs == nil {
		return
	}
	c.observersMu.Lock()
	defer c.observersMu.Unlock()

	for i, o := range c.observers {
		if o == obs {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			break
		}
	}
}

// Emit notifies all observers of a signal, in registration order.
func (c *Core) Emit(s Signal) {
	c.observersMu.RLock()
	obs := make([]Observer, len(c.observers))
	copy(obs, c.observers)
	c.observersMu.RUnlock()
	for _, o := range obs {
		o.OnSignal(s)
	}
}

// EmitFatal raises the unrecoverable-connectivity signal.
func (c *Core) EmitFatal(err error) {
	c.Emit(Signal{Type: SignalError, Err: err})
}

// LoggingObserver is an Adapter that emits lifecycle signals via xlog.
type LoggingObserver struct {
	Logger *xlog.Logger
}

func (o LoggingObserver) OnSignal(s Signal) {
	if o.Logger == nil {
		return
	}
	lg := o.Logger.With(xlog.Str("signal", string(s.Type)))
	switch s.Type {
	case SignalError:
		lg.Error().Err(s.Err).Msg("transport signal")
	case SignalDisconnected:
		lg.Warn().Err(s.Err).Msg("transport signal")
	default:
		lg.Debug().Msg("transport signal")
	}
}
