// internal/credentials/store.go
package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/xkilldash9x/pypi-token-client/internal/pypi"
)

// Store keeps passwords between runs, keyed by service name and username.
type Store interface {
	// Lookup reports false when no password is stored for username.
	Lookup(service, username string) (pypi.Credentials, bool, error)
	Save(service string, creds pypi.Credentials) error
}

// KeyringStore stores passwords in the operating system's secret service
// (Keychain, Windows Credential Manager, or a Secret Service provider).
type KeyringStore struct{}

var _ Store = KeyringStore{}

func (KeyringStore) Lookup(service, username string) (pypi.Credentials, bool, error) {
	password, err := keyring.Get(service, username)
	if errors.Is(err, keyring.ErrNotFound) {
		return pypi.Credentials{}, false, nil
	}
	if err != nil {
		return pypi.Credentials{}, false, fmt.Errorf("reading keyring entry %q for %s: %w", service, username, err)
	}
	return pypi.Credentials{Username: username, Password: password}, true, nil
}

func (KeyringStore) Save(service string, creds pypi.Credentials) error {
	if err := keyring.Set(service, creds.Username, creds.Password); err != nil {
		return fmt.Errorf("writing keyring entry %q for %s: %w", service, creds.Username, err)
	}
	return nil
}
