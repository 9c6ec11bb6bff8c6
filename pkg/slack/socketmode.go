package slack

import (
	"context"

	"github.com/rs/zerolog"
	slackgo "github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/tzrikka/herald/pkg/events"
)

type acker interface {
	Ack(req socketmode.Request, payload ...any)
}

// RunSocketMode receives events from Slack over a Socket Mode WebSocket
// connection, which requires a Web API client with an app-level token. This
// is blocking, until the context is canceled or the connection fails for good.
// See https://docs.slack.dev/apis/events-api/using-socket-mode.
func RunSocketMode(ctx context.Context, api *slackgo.Client, r *events.Registry) error {
	client := socketmode.New(api)

	errc := make(chan error, 1)
	go func() {
		errc <- client.RunContext(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if ctx.Err() != nil {
				return nil
			}
			zerolog.Ctx(ctx).Err(err).Msg("Socket Mode connection terminated")
			return err
		case evt, ok := <-client.Events:
			if !ok {
				return nil
			}
			handleSocketEvent(ctx, client, r, evt)
		}
	}
}

// handleSocketEvent logs connection lifecycle events, and acknowledges
// and dispatches Events API notifications. Each notification is handled
// synchronously, before receiving the next one.
func handleSocketEvent(ctx context.Context, a acker, r *events.Registry, evt socketmode.Event) {
	l := zerolog.Ctx(ctx).With().Str("socket_event_type", string(evt.Type)).Logger()

	switch evt.Type {
	case socketmode.EventTypeConnecting:
		l.Info().Msg("connecting to Slack with Socket Mode")
	case socketmode.EventTypeConnectionError:
		l.Warn().Any("data", evt.Data).Msg("Socket Mode connection error")
	case socketmode.EventTypeConnected:
		l.Info().Msg("connected to Slack with Socket Mode")

	case socketmode.EventTypeEventsAPI:
		if evt.Request == nil {
			l.Warn().Msg("Events API message without request")
			return
		}
		// Acknowledge first, to prevent redeliveries, even if we drop the event.
		a.Ack(*evt.Request)

		body, err := DecodeBody(evt.Request.Payload)
		if err != nil {
			l.Warn().Err(err).Msg("bad Socket Mode message")
			return
		}
		e, err := EnvelopeFromBody(body)
		if err != nil {
			l.Warn().Err(err).Msg("bad Socket Mode message")
			return
		}
		r.Dispatch(l.WithContext(ctx), e)

	default:
		l.Trace().Msg("ignoring Socket Mode event")
	}
}
