// Package events maps inbound Slack event types to the handlers that
// turn them into outbound messages, and dispatches events to them.
package events

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
)

// Envelope is a single inbound event notification.
type Envelope struct {
	ID      string
	Type    string
	Payload map[string]any
}

// SendFunc posts a text message to a Slack channel.
type SendFunc func(ctx context.Context, text, channelID string) error

// HandlerFunc processes a single event. It should return a [MalformedEventError]
// if the event's payload is missing expected fields. Handlers must not store send.
type HandlerFunc func(ctx context.Context, e Envelope, send SendFunc) error

// Result is the outcome of [Registry.Dispatch].
type Result int

const (
	Handled Result = iota
	Ignored
	Malformed
	Failed
)

func (r Result) String() string {
	switch r {
	case Handled:
		return "handled"
	case Ignored:
		return "ignored"
	case Malformed:
		return "malformed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

var ErrMalformedEvent = errors.New("malformed event")

// MalformedEventError reports an event payload without an expected field.
type MalformedEventError struct {
	EventType string
	Field     string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed %q event: missing or invalid %q", e.EventType, e.Field)
}

func (e *MalformedEventError) Unwrap() error {
	return ErrMalformedEvent
}

// Registry is an explicit mapping of event types to handlers. It is populated
// once during startup, and then used concurrently but without modifications,
// so it doesn't require any synchronization.
type Registry struct {
	handlers map[string]HandlerFunc
	send     SendFunc
}

func NewRegistry(send SendFunc) *Registry {
	return &Registry{handlers: map[string]HandlerFunc{}, send: send}
}

// Register maps an event type to a handler. If the event type is already
// registered, the new handler replaces the previous one (last write wins).
// This must not be called after the first call to [Registry.Dispatch].
func (r *Registry) Register(eventType string, h HandlerFunc) {
	r.handlers[eventType] = h
}

// EventTypes returns the sorted list of registered event types.
func (r *Registry) EventTypes() []string {
	ts := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		ts = append(ts, t)
	}
	slices.Sort(ts)
	return ts
}

// Dispatch calls the handler of the event's type, synchronously. Unknown event
// types are not an error. Handler errors and panics are logged but not
// propagated, so that one bad event never affects the transport layer.
func (r *Registry) Dispatch(ctx context.Context, e Envelope) (res Result) {
	l := zerolog.Ctx(ctx).With().Str("event_id", e.ID).Str("event_type", e.Type).Logger()

	h, ok := r.handlers[e.Type]
	if !ok {
		l.Debug().Msg("ignoring unregistered event type")
		return Ignored
	}

	defer func() {
		if p := recover(); p != nil {
			l.Error().Any("panic", p).Msg("event handler panicked")
			res = Failed
		}
	}()

	err := h(l.WithContext(ctx), e, r.send)
	switch {
	case err == nil:
		l.Debug().Msg("handled event")
		return Handled
	case errors.Is(err, ErrMalformedEvent):
		l.Warn().Err(err).Msg("dropping malformed event")
		return Malformed
	default:
		l.Err(err).Msg("failed to handle event")
		return Failed
	}
}
