package vault

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/hashicorp/vault/api"
	"github.com/rs/zerolog"
)

const (
	maxAttempts = 3
	maxInterval = 2 * time.Second
)

// Overridden in unit tests.
var initialInterval = 250 * time.Millisecond

// retry calls f up to [maxAttempts] times, with exponential backoff, as long as
// it fails with a transient [ErrSecretRetrieval]. All other errors are final.
func retry(ctx context.Context, op string, f func(context.Context) error) error {
	l := zerolog.Ctx(ctx)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialInterval
	b.MaxInterval = maxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := f(ctx)
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxAttempts),
		backoff.WithNotify(func(err error, d time.Duration) {
			l.Warn().Err(err).Str("operation", op).Dur("backoff", d).Msg("retrying Vault request")
		}),
	)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAuthentication), errors.Is(err, ErrSecretNotFound), errors.Is(err, ErrSecretRetrieval):
		return err
	default: // Context canceled or deadline exceeded between attempts.
		return fmt.Errorf("%w: %s: %w", ErrSecretRetrieval, op, err)
	}
}

func retryable(err error) bool {
	return errors.Is(err, ErrSecretRetrieval) && isTransient(err)
}

// isTransient reports whether an error returned by the Vault client is due to
// a connection failure, a timeout, or a server-side error, as opposed to a rejected
// request or a client-side problem (e.g. a bad address or an untrusted certificate).
func isTransient(err error) bool {
	var re *api.ResponseError
	if errors.As(err, &re) {
		return re.StatusCode >= http.StatusInternalServerError || re.StatusCode == http.StatusTooManyRequests
	}

	var cve *tls.CertificateVerificationError
	if errors.As(err, &cve) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var oe *net.OpError
	if errors.As(err, &oe) {
		return oe.Op != "remote error" // TLS alert from the server.
	}

	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
