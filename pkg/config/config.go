// Package config holds Herald's process configuration. It is constructed once
// at startup from CLI flags, environment variables, and the configuration file,
// and then passed explicitly to every component that needs it.
package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

// TransportMode determines how Herald receives events from Slack.
type TransportMode string

const (
	// ModeHTTP receives signed Events API requests over HTTP webhooks.
	ModeHTTP TransportMode = "http"
	// ModeSocket receives events over a Socket Mode WebSocket session.
	ModeSocket TransportMode = "socket"
)

type Config struct {
	Mode  TransportMode
	Slack SlackConfig
	Vault VaultConfig
	HTTP  HTTPConfig
}

// SlackConfig contains Slack credentials that were provided directly,
// rather than through a secret store. Any of them may be empty.
type SlackConfig struct {
	ChannelID     string
	BotToken      string
	SigningSecret string
	AppToken      string
}

type VaultConfig struct {
	Address             string
	AuthMethod          string
	AuthMount           string
	KubernetesRole      string
	KubernetesTokenPath string
	Token               string
	KV2MountPoint       string
	SecretPath          string
	Timeout             time.Duration
}

type HTTPConfig struct {
	ListenAddr         string
	ListenPort         int
	RequestHandlerPath string
}

// FromCommand reads all the flags defined by [Flags]. This is the only
// place in Herald that reads configuration values and environment variables.
func FromCommand(cmd *cli.Command) Config {
	mode := ModeHTTP
	if cmd.Bool("socket-mode") {
		mode = ModeSocket
	}

	return Config{
		Mode: mode,
		Slack: SlackConfig{
			ChannelID:     cmd.String("slack-channel-id"),
			BotToken:      cmd.String("slack-bot-token"),
			SigningSecret: cmd.String("slack-signing-secret"),
			AppToken:      cmd.String("slack-app-token"),
		},
		Vault: VaultConfig{
			Address:             cmd.String("vault-addr"),
			AuthMethod:          cmd.String("vault-auth-method"),
			AuthMount:           cmd.String("vault-auth-mount"),
			KubernetesRole:      cmd.String("vault-kubernetes-role"),
			KubernetesTokenPath: cmd.String("vault-kubernetes-token-path"),
			Token:               cmd.String("vault-token"),
			KV2MountPoint:       cmd.String("vault-kv2-mount-point"),
			SecretPath:          cmd.String("vault-secret-path"),
			Timeout:             cmd.Duration("vault-timeout"),
		},
		HTTP: HTTPConfig{
			ListenAddr:         cmd.String("listen-addr"),
			ListenPort:         cmd.Int("listen-port"),
			RequestHandlerPath: cmd.String("request-handler-path"),
		},
	}
}

// Enabled reports whether a Vault address was configured. This alone
// determines whether Slack credentials are read from Vault, regardless
// of any Slack credentials that were also provided directly.
func (c VaultConfig) Enabled() bool {
	return c.Address != ""
}
