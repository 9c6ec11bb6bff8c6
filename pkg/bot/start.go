// Package bot wires Herald's components together: logging, configuration,
// credentials, the event registry and its handlers, and the transport which
// receives events from Slack.
package bot

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	slackgo "github.com/slack-go/slack"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/herald/pkg/config"
	"github.com/tzrikka/herald/pkg/credentials"
	"github.com/tzrikka/herald/pkg/events"
	"github.com/tzrikka/herald/pkg/handlers"
	"github.com/tzrikka/herald/pkg/http"
	"github.com/tzrikka/herald/pkg/slack"
)

// Start initializes Herald's logging, credentials, and event handlers,
// and then receives events from Slack until the process is interrupted.
func Start(ctx context.Context, cmd *cli.Command) error {
	initLog(cmd.Bool("dev"))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(log.Logger.WithContext(ctx), config.FromCommand(cmd))
}

func run(ctx context.Context, cfg config.Config) error {
	l := zerolog.Ctx(ctx)

	creds, err := credentials.Resolve(ctx, cfg)
	if err != nil {
		l.Error().Err(err).Msg("failed to resolve Slack credentials")
		return err
	}

	api := slack.NewClient(creds)
	r := newRegistry(api, creds.ChannelID)
	l.Info().Strs("event_types", r.EventTypes()).Str("channel_id", creds.ChannelID).Msg("registered event handlers")

	if creds.Mode == config.ModeSocket {
		return slack.RunSocketMode(ctx, api, r)
	}
	return http.Run(ctx, cfg.HTTP, creds.SigningSecret, r)
}

func newRegistry(api *slackgo.Client, channelID string) *events.Registry {
	r := events.NewRegistry(slack.Sender(api))
	handlers.Register(r, channelID)
	return r
}

// initLog initializes the global logger,
// based on whether it's running in development mode or not.
func initLog(devMode bool) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	if !devMode {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Caller().Logger()
		return
	}

	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05.000",
	}).With().Caller().Logger()

	log.Warn().Msg("********** DEV MODE - UNSAFE IN PRODUCTION! **********")
}
