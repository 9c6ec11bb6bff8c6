package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli/v3"
)

func TestFromCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		toml string
		want Config
	}{
		{
			name: "defaults",
			want: Config{
				Mode: ModeHTTP,
				Vault: VaultConfig{
					AuthMount:           DefaultVaultAuthMount,
					KubernetesRole:      DefaultVaultKubernetesRole,
					KubernetesTokenPath: DefaultKubernetesTokenPath,
					KV2MountPoint:       DefaultVaultKV2MountPoint,
					Timeout:             DefaultVaultTimeout,
				},
				HTTP: HTTPConfig{
					ListenAddr:         DefaultListenAddr,
					ListenPort:         DefaultListenPort,
					RequestHandlerPath: DefaultRequestHandlerPath,
				},
			},
		},
		{
			name: "socket_mode_flags",
			args: []string{
				"--socket-mode", "--slack-channel-id", "C1", "--slack-bot-token", "xoxb-1",
				"--slack-app-token", "xapp-1", "--listen-port", "8080", "--vault-timeout", "5s",
			},
			want: Config{
				Mode: ModeSocket,
				Slack: SlackConfig{
					ChannelID: "C1",
					BotToken:  "xoxb-1",
					AppToken:  "xapp-1",
				},
				Vault: VaultConfig{
					AuthMount:           DefaultVaultAuthMount,
					KubernetesRole:      DefaultVaultKubernetesRole,
					KubernetesTokenPath: DefaultKubernetesTokenPath,
					KV2MountPoint:       DefaultVaultKV2MountPoint,
					Timeout:             5 * time.Second,
				},
				HTTP: HTTPConfig{
					ListenAddr:         DefaultListenAddr,
					ListenPort:         8080,
					RequestHandlerPath: DefaultRequestHandlerPath,
				},
			},
		},
		{
			name: "config_file",
			toml: "[vault]\naddress = \"http://vault:8200\"\nauth_method = \"kubernetes\"\nsecret_path = \"bots/herald\"\n",
			want: Config{
				Mode: ModeHTTP,
				Vault: VaultConfig{
					Address:             "http://vault:8200",
					AuthMethod:          "kubernetes",
					AuthMount:           DefaultVaultAuthMount,
					KubernetesRole:      DefaultVaultKubernetesRole,
					KubernetesTokenPath: DefaultKubernetesTokenPath,
					KV2MountPoint:       DefaultVaultKV2MountPoint,
					SecretPath:          "bots/herald",
					Timeout:             DefaultVaultTimeout,
				},
				HTTP: HTTPConfig{
					ListenAddr:         DefaultListenAddr,
					ListenPort:         DefaultListenPort,
					RequestHandlerPath: DefaultRequestHandlerPath,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.toml), 0o600); err != nil {
				t.Fatal(err)
			}

			var got Config
			cmd := &cli.Command{
				Name:  "herald",
				Flags: Flags(altsrc.StringSourcer(path)),
				Action: func(_ context.Context, cmd *cli.Command) error {
					got = FromCommand(cmd)
					return nil
				},
			}

			if err := cmd.Run(t.Context(), append([]string{"herald"}, tt.args...)); err != nil {
				t.Fatalf("Command.Run() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FromCommand() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVaultConfigEnabled(t *testing.T) {
	if (VaultConfig{}).Enabled() {
		t.Error("VaultConfig{}.Enabled() = true, want false")
	}
	if !(VaultConfig{Address: "http://127.0.0.1:8200"}).Enabled() {
		t.Error("VaultConfig{Address}.Enabled() = false, want true")
	}
}
