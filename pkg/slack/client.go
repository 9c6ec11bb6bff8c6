package slack

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	slackgo "github.com/slack-go/slack"

	"github.com/tzrikka/herald/pkg/credentials"
	"github.com/tzrikka/herald/pkg/events"
)

// Slack expects a response to each event within 3 seconds,
// and in HTTP mode messages are posted before responding.
const (
	timeout = 2 * time.Second
)

// NewClient initializes a Slack Web API client with the bot token.
// In Socket Mode it's also initialized with the app-level token.
func NewClient(c credentials.Credentials, opts ...slackgo.Option) *slackgo.Client {
	if c.AppToken != "" {
		opts = append(opts, slackgo.OptionAppLevelToken(c.AppToken))
	}
	return slackgo.New(c.BotToken, opts...)
}

// Sender returns a function that posts text messages with the Web API.
// See https://docs.slack.dev/reference/methods/chat.postMessage.
func Sender(api *slackgo.Client) events.SendFunc {
	return func(ctx context.Context, text, channelID string) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		_, ts, err := api.PostMessageContext(ctx, channelID, slackgo.MsgOptionText(text, false))
		if err != nil {
			return err
		}

		zerolog.Ctx(ctx).Debug().Str("channel_id", channelID).Str("ts", ts).Msg("posted Slack message")
		return nil
	}
}
