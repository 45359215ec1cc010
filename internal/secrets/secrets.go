package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrNotFound is returned when no value exists under the requested key.
var ErrNotFound = errors.New("secret not found")

// Store is a read-only key→value lookup for shared secrets (verification
// token, OAuth client id/secret). The core never learns which backend serves
// it; it only holds key names from configuration.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
}

// Compile-time check to ensure EnvStore implements Store
var _ Store = (*EnvStore)(nil)

// EnvStore resolves secrets from process environment variables, keyed by the
// configured parameter names. It is the deployment-agnostic stand-in for a
// managed parameter store: the indirection through key names is preserved so
// swapping the backend never touches the gateway or installer.
type EnvStore struct{}

func NewEnvStore() *EnvStore {
	return &EnvStore{}
}

// Get returns the value of the environment variable named by key.
// Unset or empty values are reported as ErrNotFound; secrets are never
// defaulted to empty strings.
func (s *EnvStore) Get(_ context.Context, key string) (string, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return value, nil
}
