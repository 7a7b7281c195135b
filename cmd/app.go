// File: cmd/app.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pypi-token-client/internal/client"
	"github.com/xkilldash9x/pypi-token-client/internal/config"
	"github.com/xkilldash9x/pypi-token-client/internal/credentials"
	"github.com/xkilldash9x/pypi-token-client/internal/observability"
	"github.com/xkilldash9x/pypi-token-client/internal/pypi"
)

// tokenSession is the part of client.Client the commands use.
type tokenSession interface {
	Credentials() pypi.Credentials
	Login(ctx context.Context) (bool, error)
	CreateToken(ctx context.Context, name string, scope pypi.TokenScope) (string, error)
	TokenList(ctx context.Context) ([]pypi.TokenListEntry, error)
	DeleteToken(ctx context.Context, name string) error
	Close() error
}

// sessionProvider opens a browser session. Tests replace it to run the
// commands without a browser.
type sessionProvider interface {
	Open(ctx context.Context, opts client.Options, creds pypi.Credentials) (tokenSession, error)
}

type clientProvider struct{}

func (clientProvider) Open(ctx context.Context, opts client.Options, creds pypi.Credentials) (tokenSession, error) {
	c, err := client.Open(ctx, opts, creds)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// deps are the outside world the commands talk to.
type deps struct {
	sessions sessionProvider
	store    credentials.Store
	prompter credentials.Prompter
}

func defaultDeps() deps {
	return deps{
		sessions: clientProvider{},
		store:    credentials.KeyringStore{},
		// Prompts go to stderr so stdout only carries results.
		prompter: credentials.NewTerminalPrompter(os.Stdin, os.Stderr),
	}
}

// withSession resolves credentials, logs in (asking for new credentials
// after a rejected login), remembers credentials that worked and runs op on
// the logged-in session.
func withSession(ctx context.Context, cfg config.Interface, d deps, op func(ctx context.Context, s tokenSession) error) (err error) {
	logger := observability.GetLogger()

	endpoints, err := pypi.NewEndpoints(cfg.PyPI().BaseURL)
	if err != nil {
		return err
	}
	service := endpoints.KeyringService()
	useStore := cfg.Login().UseKeyring && d.store != nil

	creds, isNew, err := credentials.Resolve(credentials.Request{
		Service:  service,
		Username: cfg.PyPI().Username,
		Password: cfg.PyPI().Password,
		UseStore: useStore,
	}, d.store, d.prompter)
	if err != nil {
		return fmt.Errorf("failed to obtain credentials: %w", err)
	}

	opts := client.Options{
		Browser: cfg.Browser(),
		BaseURL: endpoints.Base,
		Logger:  logger,
	}

	var session tokenSession
	policy := credentials.RetryPolicy{
		MaxAttempts: cfg.Login().MaxAttempts,
		Limiter:     credentials.NewLimiter(cfg.Login().MinInterval),
		Refresh:     credentials.Reprompt(d.prompter, cfg.PyPI().Username != ""),
		Logger:      logger,
	}
	// Every attempt gets a fresh browser: a failed attempt may have paused
	// until its window was closed.
	used, err := policy.Do(ctx, creds, func(ctx context.Context, c pypi.Credentials) error {
		s, err := d.sessions.Open(ctx, opts, c)
		if err != nil {
			return err
		}
		if _, err := s.Login(ctx); err != nil {
			if cerr := s.Close(); cerr != nil {
				logger.Warn("Failed to close browser.", zap.Error(cerr))
			}
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close browser: %w", cerr))
		}
	}()

	if useStore && (isNew || used != creds) {
		if serr := d.store.Save(service, used); serr != nil {
			logger.Warn("Could not save credentials to the keyring.", zap.Error(serr))
		} else {
			logger.Info("Saved credentials to the keyring.", zap.String("service", service), zap.String("username", used.Username))
		}
	}

	if op == nil {
		return nil
	}
	return op(ctx, session)
}
