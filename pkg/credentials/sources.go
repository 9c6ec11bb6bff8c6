package credentials

import (
	"context"
	"fmt"

	"github.com/tzrikka/herald/pkg/config"
	"github.com/tzrikka/herald/pkg/vault"
)

type setting struct {
	envVar string
	value  string
	dest   *string
}

// EnvironmentSource reads Slack credentials that were provided directly,
// with CLI flags, environment variables, or the configuration file.
type EnvironmentSource struct{}

func (EnvironmentSource) Name() string {
	return "environment"
}

// Fetch stops at the first missing setting, and reports its environment variable.
func (EnvironmentSource) Fetch(_ context.Context, cfg config.Config) (Credentials, error) {
	c := Credentials{Mode: cfg.Mode}

	settings := []setting{
		{"SLACK_CHANNEL_ID", cfg.Slack.ChannelID, &c.ChannelID},
		{"SLACK_BOT_TOKEN", cfg.Slack.BotToken, &c.BotToken},
	}
	if cfg.Mode == config.ModeSocket {
		settings = append(settings, setting{"SLACK_APP_TOKEN", cfg.Slack.AppToken, &c.AppToken})
	} else {
		settings = append(settings, setting{"SLACK_SIGNING_SECRET", cfg.Slack.SigningSecret, &c.SigningSecret})
	}

	for _, s := range settings {
		if s.value == "" {
			return Credentials{}, &ConfigError{Setting: s.envVar}
		}
		*s.dest = s.value
	}

	return c, nil
}

// Fields of the Slack credentials secret in Vault.
const (
	FieldChannelID     = "slack_channel_id"
	FieldBotToken      = "slack_bot_token"
	FieldAppToken      = "slack_app_token"
	FieldSigningSecret = "slack_signing_secret"
)

// VaultSource reads Slack credentials from a HashiCorp Vault KV v2 secret.
type VaultSource struct{}

func (VaultSource) Name() string {
	return "vault"
}

// Fetch authenticates to Vault, reads the secret, and maps its fields. Every
// failure along the way is returned as an error, and none of them is partial.
func (VaultSource) Fetch(ctx context.Context, cfg config.Config) (Credentials, error) {
	vc := cfg.Vault
	if err := vault.CheckAddress(vc.Address); err != nil {
		return Credentials{}, &ConfigError{Setting: "VAULT_ADDR", Err: err}
	}
	if vc.AuthMethod == "" {
		return Credentials{}, &ConfigError{Setting: "VAULT_AUTH_METHOD"}
	}
	if !vault.SupportedAuthMethod(vc.AuthMethod) {
		return Credentials{}, &ConfigError{
			Setting: "VAULT_AUTH_METHOD",
			Err:     fmt.Errorf("%w: %q", vault.ErrUnsupportedAuthMethod, vc.AuthMethod),
		}
	}
	if vc.SecretPath == "" {
		return Credentials{}, &ConfigError{Setting: "VAULT_SECRET_PATH"}
	}

	loc := vault.Location{MountPoint: vc.KV2MountPoint, Path: vc.SecretPath}
	if loc.MountPoint == "" {
		loc.MountPoint = config.DefaultVaultKV2MountPoint
	}

	if vc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, vc.Timeout)
		defer cancel()
	}

	session, err := vault.Authenticate(ctx, vc)
	if err != nil {
		return Credentials{}, err
	}

	fields, err := session.ReadSecret(ctx, loc)
	if err != nil {
		return Credentials{}, err
	}

	return credentialsFromSecret(cfg.Mode, fields, loc)
}

type secretField struct {
	name string
	dest *string
}

func credentialsFromSecret(mode config.TransportMode, fields map[string]string, loc vault.Location) (Credentials, error) {
	c := Credentials{Mode: mode}

	required := []secretField{
		{FieldChannelID, &c.ChannelID},
		{FieldBotToken, &c.BotToken},
	}
	if mode == config.ModeSocket {
		required = append(required, secretField{FieldAppToken, &c.AppToken})
	} else {
		required = append(required, secretField{FieldSigningSecret, &c.SigningSecret})
	}

	for _, r := range required {
		v := fields[r.name]
		if v == "" {
			return Credentials{}, &FieldMissingError{Field: r.name, Location: loc}
		}
		*r.dest = v
	}

	return c, nil
}
