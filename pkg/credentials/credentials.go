// Package credentials resolves the Slack credentials that Herald needs in order
// to operate. They are read either directly from the process configuration,
// or from HashiCorp Vault, depending only on whether a Vault address is set.
package credentials

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tzrikka/herald/pkg/config"
)

// Credentials is created once at startup, and never modified afterwards.
// In [config.ModeHTTP] SigningSecret is set and AppToken is empty,
// and in [config.ModeSocket] it's the other way around.
type Credentials struct {
	Mode          config.TransportMode
	ChannelID     string
	BotToken      string
	SigningSecret string
	AppToken      string
}

// Validate checks that all the fields which are required
// by the transport mode are set, and reports the first one that isn't.
func (c Credentials) Validate() error {
	if c.ChannelID == "" {
		return &ConfigError{Setting: "channel ID"}
	}
	if c.BotToken == "" {
		return &ConfigError{Setting: "bot token"}
	}

	switch c.Mode {
	case config.ModeHTTP:
		if c.SigningSecret == "" {
			return &ConfigError{Setting: "signing secret"}
		}
	case config.ModeSocket:
		if c.AppToken == "" {
			return &ConfigError{Setting: "app token"}
		}
	default:
		return &ConfigError{Setting: "transport mode " + string(c.Mode)}
	}

	return nil
}

// Source resolves a complete set of [Credentials] from a single origin.
type Source interface {
	Name() string
	Fetch(ctx context.Context, cfg config.Config) (Credentials, error)
}

// SelectSource returns [VaultSource] if a Vault address is configured, and
// [EnvironmentSource] otherwise. There is no fallback from one to the other.
func SelectSource(cfg config.Config) Source {
	if cfg.Vault.Enabled() {
		return VaultSource{}
	}
	return EnvironmentSource{}
}

// Resolve returns validated [Credentials], or an error that must stop the process.
func Resolve(ctx context.Context, cfg config.Config) (Credentials, error) {
	src := SelectSource(cfg)

	l := zerolog.Ctx(ctx).With().Str("credentials_source", src.Name()).Str("mode", string(cfg.Mode)).Logger()
	l.Info().Msg("resolving Slack credentials")

	c, err := src.Fetch(l.WithContext(ctx), cfg)
	if err != nil {
		return Credentials{}, err
	}

	if err := c.Validate(); err != nil {
		return Credentials{}, err
	}

	l.Info().Str("channel_id", c.ChannelID).Msg("resolved Slack credentials")
	return c, nil
}
