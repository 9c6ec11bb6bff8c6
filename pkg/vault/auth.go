package vault

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/hashicorp/vault/api"
	"github.com/hashicorp/vault/api/auth/kubernetes"
	"github.com/rs/zerolog"

	"github.com/tzrikka/herald/pkg/config"
)

type loginFunc func(ctx context.Context, c *api.Client, cfg config.VaultConfig) error

// authMethods is a map of all the Vault auth methods that Herald supports.
var authMethods = map[string]loginFunc{
	"kubernetes": kubernetesLogin,
	"token":      tokenLogin,
}

// SupportedAuthMethod reports whether [Authenticate] can use the given auth method.
func SupportedAuthMethod(name string) bool {
	_, ok := authMethods[name]
	return ok
}

// kubernetesLogin exchanges the pod's service account token for a Vault token.
// See https://developer.hashicorp.com/vault/docs/auth/kubernetes.
func kubernetesLogin(ctx context.Context, c *api.Client, cfg config.VaultConfig) error {
	zerolog.Ctx(ctx).Info().Str("auth_mount", cfg.AuthMount).Str("role", cfg.KubernetesRole).
		Msg("logging in to Vault with Kubernetes service account")

	k8s, err := kubernetes.NewKubernetesAuth(cfg.KubernetesRole,
		kubernetes.WithMountPath(cfg.AuthMount),
		kubernetes.WithServiceAccountTokenPath(cfg.KubernetesTokenPath),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	secret, err := c.Auth().Login(ctx, k8s)
	if err != nil {
		return loginError(err)
	}
	if secret == nil || secret.Auth == nil || c.Token() == "" {
		return fmt.Errorf("%w: no client token in login response", ErrAuthentication)
	}

	return nil
}

// tokenLogin uses a preexisting Vault token, and checks that it's valid.
func tokenLogin(ctx context.Context, c *api.Client, cfg config.VaultConfig) error {
	if cfg.Token == "" {
		return fmt.Errorf("%w: missing Vault token", ErrAuthentication)
	}

	c.SetToken(cfg.Token)
	if _, err := c.Auth().Token().LookupSelfWithContext(ctx); err != nil {
		return loginError(err)
	}

	return nil
}

// loginError distinguishes between failures to reach Vault, which are
// retried only if they're transient, and login rejections, which aren't.
func loginError(err error) error {
	var ue *url.Error
	if isTransient(err) || errors.As(err, &ue) {
		return fmt.Errorf("%w: %w", ErrSecretRetrieval, err)
	}
	return fmt.Errorf("%w: %w", ErrAuthentication, err)
}
