// internal/credentials/resolve.go
package credentials

import (
	"errors"
	"fmt"

	"github.com/xkilldash9x/pypi-token-client/internal/pypi"
)

// Request describes what is already known about the credentials to use.
type Request struct {
	// Service is the keyring service name, see pypi.Endpoints.KeyringService.
	Service  string
	Username string
	Password string
	// UseStore enables the keyring lookup for a missing password.
	UseStore bool
}

// Resolve fills in whatever Request leaves open. The username is prompted
// for when missing. A missing password is looked up in store and prompted
// for when the store has none. isNew reports whether the password did not
// come from the store and should be saved once a login succeeded with it.
func Resolve(req Request, store Store, prompter Prompter) (creds pypi.Credentials, isNew bool, err error) {
	creds = pypi.Credentials{Username: req.Username, Password: req.Password}
	if creds.Complete() {
		return creds, false, nil
	}

	if creds.Username == "" {
		if prompter == nil {
			return pypi.Credentials{}, false, fmt.Errorf("no username given: %w", ErrNoInput)
		}
		if creds.Username, err = prompter.Username(); err != nil {
			return pypi.Credentials{}, false, err
		}
	}
	if creds.Password != "" {
		return creds, true, nil
	}

	if req.UseStore && store != nil {
		stored, found, err := store.Lookup(req.Service, creds.Username)
		if err != nil {
			return pypi.Credentials{}, false, err
		}
		if found {
			return stored, false, nil
		}
	}

	if prompter == nil {
		return pypi.Credentials{}, false, fmt.Errorf("no password for %s: %w", creds.Username, ErrNoInput)
	}
	if creds.Password, err = prompter.Password(creds.Username); err != nil {
		return pypi.Credentials{}, false, err
	}
	return creds, true, nil
}

// Reprompt returns a RetryPolicy.Refresh function asking prompter for new
// credentials. The username is asked for again only after the site rejected
// it, and never with keepUsername.
func Reprompt(prompter Prompter, keepUsername bool) func(previous pypi.Credentials, cause error) (pypi.Credentials, error) {
	return func(previous pypi.Credentials, cause error) (pypi.Credentials, error) {
		if prompter == nil {
			return pypi.Credentials{}, ErrNoInput
		}
		next := pypi.Credentials{Username: previous.Username}
		var usernameErr *pypi.UsernameError
		if !keepUsername && errors.As(cause, &usernameErr) {
			name, err := prompter.Username()
			if err != nil {
				return pypi.Credentials{}, err
			}
			next.Username = name
		}
		password, err := prompter.Password(next.Username)
		if err != nil {
			return pypi.Credentials{}, err
		}
		next.Password = password
		return next, nil
	}
}
