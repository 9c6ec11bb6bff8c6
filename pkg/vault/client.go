// Package vault authenticates to [HashiCorp Vault] and reads secrets
// from its [KV v2 secrets engine]. It is used only during startup.
//
// [HashiCorp Vault]: https://developer.hashicorp.com/vault/docs
// [KV v2 secrets engine]: https://developer.hashicorp.com/vault/docs/secrets/kv/kv-v2
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/rs/zerolog"

	"github.com/tzrikka/herald/pkg/config"
)

const (
	timeout = 3 * time.Second
)

var (
	ErrInvalidAddress        = errors.New("invalid Vault address")
	ErrUnsupportedAuthMethod = errors.New("unsupported Vault auth method")
	ErrAuthentication        = errors.New("Vault authentication failed")
	ErrSecretNotFound        = errors.New("secret not found in Vault")
	ErrSecretRetrieval       = errors.New("failed to retrieve secret from Vault")
)

// Location identifies a secret in a Vault KV v2 secrets engine.
type Location struct {
	MountPoint string
	Path       string
}

func (l Location) String() string {
	return l.MountPoint + "/" + l.Path
}

// Session is an authenticated Vault client.
type Session struct {
	client *api.Client
}

// Authenticate logs in to Vault using the configured auth method. Transient
// errors are retried a few times, but a rejected login is reported immediately.
func Authenticate(ctx context.Context, cfg config.VaultConfig) (*Session, error) {
	login, ok := authMethods[cfg.AuthMethod]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAuthMethod, cfg.AuthMethod)
	}

	if err := CheckAddress(cfg.Address); err != nil {
		return nil, err
	}

	c, err := newClient(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSecretRetrieval, err)
	}

	l := zerolog.Ctx(ctx)
	l.Info().Str("vault_addr", cfg.Address).Str("auth_method", cfg.AuthMethod).
		Msg("authenticating to HashiCorp Vault")

	err = retry(ctx, "authenticate", func(ctx context.Context) error {
		return login(ctx, c, cfg)
	})
	if err != nil {
		return nil, err
	}

	l.Info().Msg("successfully authenticated to HashiCorp Vault")
	return &Session{client: c}, nil
}

// CheckAddress reports an [ErrInvalidAddress] if the given Vault address
// can never be reached, so it isn't mistaken for a transient network failure.
func CheckAddress(addr string) error {
	u, err := url.Parse(addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return fmt.Errorf("%w: missing host in %q", ErrInvalidAddress, addr)
		}
	case "unix":
		if u.Path == "" {
			return fmt.Errorf("%w: missing socket path in %q", ErrInvalidAddress, addr)
		}
	default:
		return fmt.Errorf("%w: unsupported scheme in %q", ErrInvalidAddress, addr)
	}

	return nil
}

func newClient(addr string) (*api.Client, error) {
	cfg := api.DefaultConfig()
	if cfg.Error != nil {
		return nil, cfg.Error
	}

	cfg.Address = addr
	cfg.Timeout = timeout
	cfg.MaxRetries = 0 // Retries are managed by [retry].

	return api.NewClient(cfg)
}

// ReadSecret returns the fields of the latest version of a KV v2 secret.
// Numbers and booleans are formatted as strings, and other non-string
// values (i.e. objects and arrays) are ignored. This function never returns a nil map
// without an error: a missing or deleted secret is [ErrSecretNotFound].
func (s *Session) ReadSecret(ctx context.Context, loc Location) (map[string]string, error) {
	var kv *api.KVSecret
	err := retry(ctx, "read secret", func(ctx context.Context) error {
		var err error
		kv, err = s.client.KVv2(loc.MountPoint).Get(ctx, loc.Path)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, api.ErrSecretNotFound):
			return fmt.Errorf("%w: %s", ErrSecretNotFound, loc)
		default:
			return fmt.Errorf("%w: %s: %w", ErrSecretRetrieval, loc, err)
		}
	})
	if err != nil {
		return nil, err
	}

	if kv == nil || kv.Data == nil {
		return nil, fmt.Errorf("%w: %s (latest version deleted)", ErrSecretNotFound, loc)
	}

	l := zerolog.Ctx(ctx)
	fields := make(map[string]string, len(kv.Data))
	for k, v := range kv.Data {
		switch v := v.(type) {
		case string:
			fields[k] = v
		case json.Number, float64, bool:
			fields[k] = fmt.Sprint(v)
		default:
			l.Warn().Str("location", loc.String()).Str("field", k).Msg("ignoring non-scalar secret field")
		}
	}

	if kv.VersionMetadata != nil {
		l.Debug().Str("location", loc.String()).Int("version", kv.VersionMetadata.Version).
			Msg("read secret from Vault")
	}

	return fields, nil
}
