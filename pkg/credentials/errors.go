package credentials

import (
	"errors"
	"fmt"

	"github.com/tzrikka/herald/pkg/vault"
)

var (
	ErrConfiguration      = errors.New("configuration error")
	ErrSecretFieldMissing = errors.New("secret field missing")

	ErrAuthentication  = vault.ErrAuthentication
	ErrSecretNotFound  = vault.ErrSecretNotFound
	ErrSecretRetrieval = vault.ErrSecretRetrieval
)

// ConfigError reports a missing or invalid configuration setting.
// It matches [ErrConfiguration], and its underlying cause if there is one.
type ConfigError struct {
	Setting string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Setting, e.Err)
	}
	return e.Setting + " not set"
}

func (e *ConfigError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrConfiguration, e.Err}
	}
	return []error{ErrConfiguration}
}

// FieldMissingError reports a required field which is
// missing in a secret. It matches [ErrSecretFieldMissing].
type FieldMissingError struct {
	Field    string
	Location vault.Location
}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("%q key not found at %s", e.Field, e.Location)
}

func (e *FieldMissingError) Unwrap() error {
	return ErrSecretFieldMissing
}
