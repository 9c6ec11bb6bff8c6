// Package handlers implements Herald's notifications about [Slack events].
//
// [Slack events]: https://docs.slack.dev/reference/events
package handlers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tzrikka/herald/pkg/events"
)

const (
	ChannelCreatedEvent = "channel_created"
	TeamJoinEvent       = "team_join"
)

// Register adds all of Herald's event handlers to the given registry.
// Their notifications are posted to the given Slack channel.
func Register(r *events.Registry, channelID string) {
	r.Register(ChannelCreatedEvent, ChannelCreated(channelID))
	r.Register(TeamJoinEvent, TeamJoin(channelID))
}

// ChannelCreated notifies a Slack channel when a new channel is created.
// See https://docs.slack.dev/reference/events/channel_created.
func ChannelCreated(channelID string) events.HandlerFunc {
	return func(ctx context.Context, e events.Envelope, send events.SendFunc) error {
		id, err := nestedString(e, "channel", "id")
		if err != nil {
			return err
		}
		creator, err := nestedString(e, "channel", "creator")
		if err != nil {
			return err
		}

		text := fmt.Sprintf("New channel <#%s> created by <@%s>. Join if you dare!", id, creator)
		return notify(ctx, send, text, channelID)
	}
}

// TeamJoin notifies a Slack channel when a new user joins the workspace.
// See https://docs.slack.dev/reference/events/team_join.
func TeamJoin(channelID string) events.HandlerFunc {
	return func(ctx context.Context, e events.Envelope, send events.SendFunc) error {
		id, err := nestedString(e, "user", "id")
		if err != nil {
			return err
		}

		text := fmt.Sprintf("<@%s> has joined the workspace. Please give them a warm welcome!", id)
		return notify(ctx, send, text, channelID)
	}
}

func notify(ctx context.Context, send events.SendFunc, text, channelID string) error {
	zerolog.Ctx(ctx).Info().Str("channel_id", channelID).Str("text", text).Msg("sending notification")
	if err := send(ctx, text, channelID); err != nil {
		return fmt.Errorf("failed to post Slack message: %w", err)
	}
	return nil
}

// nestedString extracts a non-empty string value from a JSON object in the event's payload.
func nestedString(e events.Envelope, object, key string) (string, error) {
	m, ok := e.Payload[object].(map[string]any)
	if !ok {
		return "", &events.MalformedEventError{EventType: e.Type, Field: object}
	}

	s, ok := m[key].(string)
	if !ok || s == "" {
		return "", &events.MalformedEventError{EventType: e.Type, Field: object + "." + key}
	}

	return s, nil
}
