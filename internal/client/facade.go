// internal/client/facade.go
package client

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pypi-token-client/internal/browser"
	"github.com/xkilldash9x/pypi-token-client/internal/config"
	"github.com/xkilldash9x/pypi-token-client/internal/observability"
	"github.com/xkilldash9x/pypi-token-client/internal/pypi"
)

// Options describe how to reach PyPI and how to run the browser.
type Options struct {
	Browser config.BrowserConfig
	// BaseURL selects the index instance; empty means pypi.DefaultBaseURL.
	BaseURL string
	Logger  *zap.Logger
	// Opener defaults to browser.LaunchInstance.
	Opener browser.Opener
}

// Client is a Session together with the browser it runs in.
type Client struct {
	*Session
	instance browser.Instance
}

// Open launches a browser and binds a new session to it. The caller must
// Close the client.
func Open(ctx context.Context, opts Options, creds pypi.Credentials) (*Client, error) {
	endpoints, err := pypi.NewEndpoints(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.GetLogger()
	}
	opener := opts.Opener
	if opener == nil {
		opener = browser.LaunchInstance
	}

	instance, err := opener(ctx, opts.Browser, logger)
	if err != nil {
		return nil, err
	}
	session := NewSession(instance.Page(), creds, SessionConfig{
		Endpoints:    endpoints,
		Headless:     opts.Browser.Headless,
		PauseOnError: opts.Browser.PauseOnError,
	}, logger)
	return &Client{Session: session, instance: instance}, nil
}

// Close shuts the browser down.
func (c *Client) Close() error {
	return c.instance.Close()
}

// WithSession opens a client, runs fn and closes the browser whatever fn
// returns. A close failure is reported only if fn succeeded.
func WithSession(ctx context.Context, opts Options, creds pypi.Credentials, fn func(ctx context.Context, s *Session) error) (err error) {
	c, err := Open(ctx, opts, creds)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			if err == nil {
				err = fmt.Errorf("failed to close browser: %w", cerr)
			} else {
				err = errors.Join(err, fmt.Errorf("failed to close browser: %w", cerr))
			}
		}
	}()
	return fn(ctx, c.Session)
}

// The functions below each launch a browser, perform one operation and shut
// the browser down again. They cannot share a login between calls unless
// opts.Browser.PersistDir keeps the profile; use Open or WithSession to run
// several operations in one session.

// Login validates creds. See Session.Login.
func Login(ctx context.Context, opts Options, creds pypi.Credentials) (bool, error) {
	var performed bool
	err := WithSession(ctx, opts, creds, func(ctx context.Context, s *Session) error {
		var err error
		performed, err = s.Login(ctx)
		return err
	})
	return performed, err
}

// CreateToken creates one token. See Session.CreateToken.
func CreateToken(ctx context.Context, opts Options, creds pypi.Credentials, name string, scope pypi.TokenScope) (string, error) {
	var token string
	err := WithSession(ctx, opts, creds, func(ctx context.Context, s *Session) error {
		var err error
		token, err = s.CreateToken(ctx, name, scope)
		return err
	})
	return token, err
}

// ListTokens lists the account's tokens. See Session.TokenList.
func ListTokens(ctx context.Context, opts Options, creds pypi.Credentials) ([]pypi.TokenListEntry, error) {
	var entries []pypi.TokenListEntry
	err := WithSession(ctx, opts, creds, func(ctx context.Context, s *Session) error {
		var err error
		entries, err = s.TokenList(ctx)
		return err
	})
	return entries, err
}

// DeleteToken deletes one token. See Session.DeleteToken.
func DeleteToken(ctx context.Context, opts Options, creds pypi.Credentials, name string) error {
	return WithSession(ctx, opts, creds, func(ctx context.Context, s *Session) error {
		return s.DeleteToken(ctx, name)
	})
}
