// Package credentials abstracts secret lookup for synthesis providers.
// The system keyring is the production store; environment variables serve
// as a fallback and static maps serve tests.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// ErrNotFound indicates the store holds no secret for the given key.
var ErrNotFound = errors.New("credentials: secret not found")

// Store returns a secret for a named service or signals absence with
// ErrNotFound. Any other error means the store itself is unusable.
type Store interface {
	GetSecret(service, key string) (string, error)
}

// Keyring reads secrets from the operating system keyring.
type Keyring struct{}

var _ Store = Keyring{}

func (Keyring) GetSecret(service, key string) (string, error) {
	secret, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keyring access: %w", err)
	}
	if secret == "" {
		return "", ErrNotFound
	}
	return secret, nil
}

// Env reads secrets from environment variables named SERVICE_KEY, with
// non-alphanumeric runes mapped to underscores.
type Env struct{}

var _ Store = Env{}

func (Env) GetSecret(service, key string) (string, error) {
	name := envName(service) + "_" + envName(key)
	if v := os.Getenv(name); v != "" {
		return v, nil
	}
	return "", ErrNotFound
}

func envName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Static is an in-memory store keyed by "service/key". Used by tests.
type Static map[string]string

var _ Store = Static{}

func (s Static) GetSecret(service, key string) (string, error) {
	if v, ok := s[service+"/"+key]; ok && v != "" {
		return v, nil
	}
	return "", ErrNotFound
}

// Chain tries stores in order, returning the first secret found. A store
// error other than ErrNotFound stops the chain.
type Chain []Store

var _ Store = Chain{}

func (c Chain) GetSecret(service, key string) (string, error) {
	for _, s := range c {
		secret, err := s.GetSecret(service, key)
		if err == nil {
			return secret, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return "", err
		}
	}
	return "", ErrNotFound
}

// Default returns the production lookup chain: keyring first, then
// environment.
func Default() Store {
	return Chain{Keyring{}, Env{}}
}
