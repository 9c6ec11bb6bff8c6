package credentials

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tzrikka/herald/pkg/config"
	"github.com/tzrikka/herald/pkg/vault"
)

func TestResolveFromEnvironment(t *testing.T) {
	tests := []struct {
		name        string
		cfg         config.Config
		want        Credentials
		wantSetting string
	}{
		{
			name: "http_mode",
			cfg: config.Config{
				Mode:  config.ModeHTTP,
				Slack: config.SlackConfig{ChannelID: "C1", BotToken: "xoxb-1", SigningSecret: "shh", AppToken: "xapp-1"},
			},
			want: Credentials{Mode: config.ModeHTTP, ChannelID: "C1", BotToken: "xoxb-1", SigningSecret: "shh"},
		},
		{
			name: "socket_mode",
			cfg: config.Config{
				Mode:  config.ModeSocket,
				Slack: config.SlackConfig{ChannelID: "C1", BotToken: "xoxb-1", SigningSecret: "shh", AppToken: "xapp-1"},
			},
			want: Credentials{Mode: config.ModeSocket, ChannelID: "C1", BotToken: "xoxb-1", AppToken: "xapp-1"},
		},
		{
			name: "missing_channel_id",
			cfg: config.Config{
				Mode:  config.ModeHTTP,
				Slack: config.SlackConfig{SigningSecret: "shh"},
			},
			wantSetting: "SLACK_CHANNEL_ID",
		},
		{
			name: "missing_bot_token",
			cfg: config.Config{
				Mode:  config.ModeHTTP,
				Slack: config.SlackConfig{ChannelID: "C1", SigningSecret: "shh"},
			},
			wantSetting: "SLACK_BOT_TOKEN",
		},
		{
			name: "missing_signing_secret",
			cfg: config.Config{
				Mode:  config.ModeHTTP,
				Slack: config.SlackConfig{ChannelID: "C1", BotToken: "xoxb-1", AppToken: "xapp-1"},
			},
			wantSetting: "SLACK_SIGNING_SECRET",
		},
		{
			name: "missing_app_token",
			cfg: config.Config{
				Mode:  config.ModeSocket,
				Slack: config.SlackConfig{ChannelID: "C1", BotToken: "xoxb-1", SigningSecret: "shh"},
			},
			wantSetting: "SLACK_APP_TOKEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(t.Context(), tt.cfg)
			if tt.wantSetting != "" {
				ce := new(ConfigError)
				if !errors.As(err, &ce) || !errors.Is(err, ErrConfiguration) {
					t.Fatalf("Resolve() error = %v, want ConfigError", err)
				}
				if ce.Setting != tt.wantSetting {
					t.Errorf("Resolve() ConfigError.Setting = %q, want %q", ce.Setting, tt.wantSetting)
				}
				if got != (Credentials{}) {
					t.Errorf("Resolve() = %+v, want zero value on error", got)
				}
				return
			}

			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// fakeVault serves Kubernetes logins and a single KV v2 secret at "secret/slack".
type fakeVault struct {
	secret   map[string]string
	notFound bool
	requests atomic.Int32
}

func (f *fakeVault) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/v1/auth/kubernetes/login":
		_ = json.NewEncoder(w).Encode(map[string]any{"auth": map[string]any{"client_token": "hvs.test"}})
	case "/v1/secret/data/slack":
		if f.notFound {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"errors":[]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"data":     f.secret,
			"metadata": map[string]any{"version": 1, "created_time": "2025-01-01T00:00:00Z"},
		}})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func vaultConfig(t *testing.T, addr string) config.VaultConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("jwt"), 0o600); err != nil {
		t.Fatal(err)
	}

	return config.VaultConfig{
		Address:             addr,
		AuthMethod:          "kubernetes",
		AuthMount:           "kubernetes",
		KubernetesRole:      "default",
		KubernetesTokenPath: path,
		KV2MountPoint:       "secret",
		SecretPath:          "slack",
		Timeout:             5 * time.Second,
	}
}

func TestResolveFromVault(t *testing.T) {
	env := config.SlackConfig{ChannelID: "C-env", BotToken: "xoxb-env", SigningSecret: "env-secret", AppToken: "xapp-env"}
	full := map[string]string{
		FieldChannelID:     "C-vault",
		FieldBotToken:      "xoxb-vault",
		FieldSigningSecret: "vault-secret",
		FieldAppToken:      "xapp-vault",
	}

	tests := []struct {
		name      string
		mode      config.TransportMode
		secret    map[string]string
		notFound  bool
		want      Credentials
		wantErr   error
		wantField string
	}{
		{
			name:   "http_mode",
			mode:   config.ModeHTTP,
			secret: full,
			want:   Credentials{Mode: config.ModeHTTP, ChannelID: "C-vault", BotToken: "xoxb-vault", SigningSecret: "vault-secret"},
		},
		{
			name:   "socket_mode",
			mode:   config.ModeSocket,
			secret: full,
			want:   Credentials{Mode: config.ModeSocket, ChannelID: "C-vault", BotToken: "xoxb-vault", AppToken: "xapp-vault"},
		},
		{
			name: "missing_signing_secret",
			mode: config.ModeHTTP,
			secret: map[string]string{
				FieldChannelID: "C-vault",
				FieldBotToken:  "xoxb-vault",
				FieldAppToken:  "xapp-vault",
			},
			wantErr:   ErrSecretFieldMissing,
			wantField: FieldSigningSecret,
		},
		{
			name: "empty_bot_token",
			mode: config.ModeSocket,
			secret: map[string]string{
				FieldChannelID: "C-vault",
				FieldBotToken:  "",
				FieldAppToken:  "xapp-vault",
			},
			wantErr:   ErrSecretFieldMissing,
			wantField: FieldBotToken,
		},
		{
			name:     "secret_not_found",
			mode:     config.ModeHTTP,
			notFound: true,
			wantErr:  ErrSecretNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := httptest.NewServer(&fakeVault{secret: tt.secret, notFound: tt.notFound})
			defer s.Close()

			cfg := config.Config{Mode: tt.mode, Slack: env, Vault: vaultConfig(t, s.URL)}
			got, err := Resolve(t.Context(), cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
			}

			if tt.wantField != "" {
				fme := new(FieldMissingError)
				if !errors.As(err, &fme) {
					t.Fatalf("Resolve() error = %v, want FieldMissingError", err)
				}
				if fme.Field != tt.wantField {
					t.Errorf("FieldMissingError.Field = %q, want %q", fme.Field, tt.wantField)
				}
				if fme.Location.String() != "secret/slack" {
					t.Errorf("FieldMissingError.Location = %q, want %q", fme.Location, "secret/slack")
				}
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveVaultConfigErrors(t *testing.T) {
	tests := []struct {
		name        string
		addr        string
		method      string
		path        string
		wantSetting string
		wantErr     error
	}{
		{
			name:        "invalid_address",
			addr:        "vault:8200",
			method:      "kubernetes",
			path:        "slack",
			wantSetting: "VAULT_ADDR",
			wantErr:     vault.ErrInvalidAddress,
		},
		{
			name:        "missing_auth_method",
			path:        "slack",
			wantSetting: "VAULT_AUTH_METHOD",
		},
		{
			name:        "unsupported_auth_method",
			method:      "ldap",
			path:        "slack",
			wantSetting: "VAULT_AUTH_METHOD",
			wantErr:     vault.ErrUnsupportedAuthMethod,
		},
		{
			name:        "missing_secret_path",
			method:      "kubernetes",
			wantSetting: "VAULT_SECRET_PATH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeVault{}
			s := httptest.NewServer(f)
			defer s.Close()

			vc := vaultConfig(t, s.URL)
			if tt.addr != "" {
				vc.Address = tt.addr
			}
			vc.AuthMethod = tt.method
			vc.SecretPath = tt.path

			_, err := Resolve(t.Context(), config.Config{Mode: config.ModeHTTP, Vault: vc})
			ce := new(ConfigError)
			if !errors.As(err, &ce) || !errors.Is(err, ErrConfiguration) {
				t.Fatalf("Resolve() error = %v, want ConfigError", err)
			}
			if ce.Setting != tt.wantSetting {
				t.Errorf("ConfigError.Setting = %q, want %q", ce.Setting, tt.wantSetting)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
			}
			if n := f.requests.Load(); n != 0 {
				t.Errorf("Resolve() sent %d requests to Vault, want 0", n)
			}
		})
	}
}

func TestResolveVaultUnreachableDoesNotFallBack(t *testing.T) {
	s := httptest.NewServer(http.NotFoundHandler())
	addr := s.URL
	s.Close()

	cfg := config.Config{
		Mode:  config.ModeHTTP,
		Slack: config.SlackConfig{ChannelID: "C1", BotToken: "xoxb-1", SigningSecret: "shh"},
		Vault: vaultConfig(t, addr),
	}

	got, err := Resolve(t.Context(), cfg)
	if !errors.Is(err, ErrSecretRetrieval) {
		t.Fatalf("Resolve() error = %v, want %v", err, ErrSecretRetrieval)
	}
	if got != (Credentials{}) {
		t.Errorf("Resolve() = %+v, want zero value", got)
	}
}

func TestResolveVaultTimeout(t *testing.T) {
	tests := []struct {
		name string
		path string // Request URL path that never gets a response.
	}{
		{
			name: "authenticate",
			path: "/v1/auth/kubernetes/login",
		},
		{
			name: "read_secret",
			path: "/v1/secret/data/slack",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeVault{secret: map[string]string{FieldChannelID: "C1"}}
			release := make(chan struct{})
			s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == tt.path {
					select {
					case <-r.Context().Done():
					case <-release:
					}
					return
				}
				f.ServeHTTP(w, r)
			}))
			defer s.Close()
			defer close(release)

			vc := vaultConfig(t, s.URL)
			vc.Timeout = 500 * time.Millisecond

			start := time.Now()
			got, err := Resolve(t.Context(), config.Config{Mode: config.ModeHTTP, Vault: vc})
			elapsed := time.Since(start)

			if !errors.Is(err, ErrSecretRetrieval) {
				t.Fatalf("Resolve() error = %v, want %v", err, ErrSecretRetrieval)
			}
			if got != (Credentials{}) {
				t.Errorf("Resolve() = %+v, want zero value", got)
			}
			if elapsed > 2*time.Second {
				t.Errorf("Resolve() took %v, want about %v", elapsed, vc.Timeout)
			}
		})
	}
}

func TestSelectSource(t *testing.T) {
	if got := SelectSource(config.Config{}).Name(); got != "environment" {
		t.Errorf("SelectSource() = %q, want %q", got, "environment")
	}
	if got := SelectSource(config.Config{Vault: config.VaultConfig{Address: "http://vault"}}).Name(); got != "vault" {
		t.Errorf("SelectSource() = %q, want %q", got, "vault")
	}
}

func TestCredentialsValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       Credentials
		wantErr bool
	}{
		{
			name: "http_valid",
			c:    Credentials{Mode: config.ModeHTTP, ChannelID: "C1", BotToken: "xoxb-1", SigningSecret: "shh"},
		},
		{
			name: "socket_valid",
			c:    Credentials{Mode: config.ModeSocket, ChannelID: "C1", BotToken: "xoxb-1", AppToken: "xapp-1"},
		},
		{
			name:    "socket_without_app_token",
			c:       Credentials{Mode: config.ModeSocket, ChannelID: "C1", BotToken: "xoxb-1", SigningSecret: "shh"},
			wantErr: true,
		},
		{
			name:    "unknown_mode",
			c:       Credentials{Mode: "pubsub", ChannelID: "C1", BotToken: "xoxb-1", SigningSecret: "shh"},
			wantErr: true,
		},
		{
			name:    "empty",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Credentials.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
