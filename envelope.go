package xtransport

import (
	"github.com/google/uuid"
)

// MessageOptions carries the optional metadata of an outbound message.
type MessageOptions struct {
	// CorrelationID traces a request across services. Generated when empty.
	CorrelationID string
	// Initiator identifies the originating caller of a request chain.
	Initiator string
}

// Envelope is the validated bundle handed to a backend for delivery.
// Constructed fresh per publish/request call and not retained by the core.
type Envelope struct {
	RoutingKey    string
	Message       any
	CorrelationID string
	Initiator     string
}

// NewEnvelope validates the routing key and stamps correlation metadata.
// The message payload is opaque at this layer; transforming it is the
// concern of a concrete backend.
func NewEnvelope(routingKey string, message any, opts *MessageOptions) (*Envelope, error) {
	if routingKey == "" {
		return nil, NewInvalidArgument("routing key must not be empty")
	}
	env := &Envelope{
		RoutingKey: routingKey,
		Message:    message,
	}
	if opts != nil {
		env.CorrelationID = opts.CorrelationID
		env.Initiator = opts.Initiator
	}
	if env.CorrelationID == "" {
		env.CorrelationID = uuid.NewString()
	}
	return env, nil
}
