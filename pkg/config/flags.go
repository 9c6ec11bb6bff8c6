package config

import (
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

const (
	DefaultListenAddr         = "0.0.0.0"
	DefaultListenPort         = 5000
	DefaultRequestHandlerPath = "/slack/events"

	DefaultVaultAuthMount      = "kubernetes"
	DefaultVaultKubernetesRole = "default"
	DefaultVaultKV2MountPoint  = "secret"
	DefaultVaultTimeout        = 15 * time.Second

	DefaultKubernetesTokenPath = "/var/run/secrets/kubernetes.io/serviceaccount/token"
)

// Flags defines CLI flags to configure Herald's transport, Slack credentials,
// and HashiCorp Vault access. These flags can also be set using environment
// variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "socket-mode",
			Usage: "receive Slack events over a Socket Mode WebSocket instead of HTTP webhooks",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SOCKET_MODE"),
				toml.TOML("slack.socket_mode", configFilePath),
			),
		},
	}

	flags = append(flags, slackFlags(configFilePath)...)
	flags = append(flags, vaultFlags(configFilePath)...)
	return append(flags, httpFlags(configFilePath)...)
}

func slackFlags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "slack-channel-id",
			Usage: "Slack channel ID to post notifications to",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_CHANNEL_ID"),
				toml.TOML("slack.channel_id", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-bot-token",
			Usage: "Slack bot user OAuth token (xoxb-...)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_BOT_TOKEN"),
				toml.TOML("slack.bot_token", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-signing-secret",
			Usage: "Slack app signing secret (HTTP mode)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_SIGNING_SECRET"),
				toml.TOML("slack.signing_secret", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-app-token",
			Usage: "Slack app-level token (xapp-..., Socket Mode)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_APP_TOKEN"),
				toml.TOML("slack.app_token", configFilePath),
			),
		},
	}
}

func vaultFlags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "vault-addr",
			Usage: "HashiCorp Vault server address (if set, Slack credentials are read from Vault)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("VAULT_ADDR"),
				toml.TOML("vault.address", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "vault-auth-method",
			Usage: `Vault authentication method ("kubernetes" or "token")`,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("VAULT_AUTH_METHOD"),
				toml.TOML("vault.auth_method", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "vault-auth-mount",
			Usage: "mount path of the Vault Kubernetes auth method",
			Value: DefaultVaultAuthMount,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("VAULT_AUTH_MOUNT"),
				toml.TOML("vault.auth_mount", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "vault-kubernetes-role",
			Usage: "Vault role to log in with, using the Kubernetes auth method",
			Value: DefaultVaultKubernetesRole,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("VAULT_KUBERNETES_ROLE"),
				toml.TOML("vault.kubernetes_role", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "vault-kubernetes-token-path",
			Usage: "path to the Kubernetes service account token",
			Value: DefaultKubernetesTokenPath,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("VAULT_KUBERNETES_TOKEN_PATH"),
				toml.TOML("vault.kubernetes_token_path", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:    "vault-token",
			Usage:   "Vault token, using the token auth method",
			Sources: cli.EnvVars("VAULT_TOKEN"),
		},
		&cli.StringFlag{
			Name:  "vault-kv2-mount-point",
			Usage: "mount path of the Vault KV v2 secrets engine",
			Value: DefaultVaultKV2MountPoint,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("VAULT_KV2_MOUNT_POINT"),
				toml.TOML("vault.kv2_mount_point", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "vault-secret-path",
			Usage: "path of the Slack credentials secret in the Vault KV v2 mount",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("VAULT_SECRET_PATH"),
				toml.TOML("vault.secret_path", configFilePath),
			),
		},
		&cli.DurationFlag{
			Name:  "vault-timeout",
			Usage: "upper bound for Vault authentication and secret retrieval at startup",
			Value: DefaultVaultTimeout,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("VAULT_TIMEOUT"),
				toml.TOML("vault.timeout", configFilePath),
			),
		},
	}
}

func httpFlags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "listen-addr",
			Usage: "local address to bind the HTTP server to",
			Value: DefaultListenAddr,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LISTEN_ADDR"),
				toml.TOML("http.listen_addr", configFilePath),
			),
		},
		&cli.IntFlag{
			Name:  "listen-port",
			Usage: "local port number for the HTTP server",
			Value: DefaultListenPort,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LISTEN_PORT"),
				toml.TOML("http.listen_port", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "request-handler-path",
			Usage: "URL path for Slack Events API requests",
			Value: DefaultRequestHandlerPath,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("REQUEST_HANDLER_PATH"),
				toml.TOML("http.request_handler_path", configFilePath),
			),
		},
	}
}
