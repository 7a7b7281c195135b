// internal/client/session.go
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/pypi-token-client/internal/browser"
	"github.com/xkilldash9x/pypi-token-client/internal/pypi"
)

// SessionConfig carries the per-session settings that do not change while
// the session is alive.
type SessionConfig struct {
	Endpoints pypi.Endpoints
	Headless  bool
	// PauseOnError blocks a failed operation in headed mode until the user
	// closes the browser window.
	PauseOnError bool
}

// Session drives one browser page on behalf of one PyPI account. Operations
// are serialized: the page is never used by two of them at once.
type Session struct {
	id     string
	page   browser.Page
	cfg    SessionConfig
	logger *zap.Logger
	sem    *semaphore.Weighted

	credMu sync.RWMutex
	creds  pypi.Credentials
}

// NewSession binds page to creds.
func NewSession(page browser.Page, creds pypi.Credentials, cfg SessionConfig, logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:     id,
		page:   page,
		cfg:    cfg,
		logger: logger.Named("session").With(zap.String("session_id", id)),
		sem:    semaphore.NewWeighted(1),
		creds:  creds,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Credentials returns the credentials currently in use.
func (s *Session) Credentials() pypi.Credentials {
	s.credMu.RLock()
	defer s.credMu.RUnlock()
	return s.creds
}

// SetCredentials replaces the credentials used by subsequent operations,
// typically after a rejected login.
func (s *Session) SetCredentials(creds pypi.Credentials) {
	s.credMu.Lock()
	s.creds = creds
	s.credMu.Unlock()
}

// --- Locking and diagnostics ---

// exclusive runs fn while holding the session lock and routes failures
// through diagnose. A missing token is returned undiagnosed.
func (s *Session) exclusive(ctx context.Context, op string, fn func(ctx context.Context, logger *zap.Logger) error) error {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for session to become available: %w", err)
	}
	defer s.sem.Release(1)

	logger := s.logger.With(zap.String("operation", op))
	logger.Debug("Operation started.")
	if err := fn(ctx, logger); err != nil {
		if errors.Is(err, pypi.ErrTokenNotFound) {
			logger.Debug("Operation finished without a matching token.", zap.Error(err))
			return err
		}
		return s.diagnose(ctx, logger, err)
	}
	logger.Debug("Operation finished.")
	return nil
}

// diagnose reports err with enough context to investigate it. In headed mode
// it can hold the browser open so the failing page stays inspectable. err is
// always returned unchanged.
func (s *Session) diagnose(ctx context.Context, logger *zap.Logger, err error) error {
	if errors.Is(err, context.Canceled) {
		// The user asked to stop; there is nothing to investigate.
		return err
	}
	logger.Error("Operation failed.", zap.Error(err))

	if s.cfg.Headless {
		logger.Info("If you want to see what exactly went wrong in the browser window, rerun with --headful.")
		return err
	}
	if !s.cfg.PauseOnError {
		// Headed, but the caller does not want to block.
		return err
	}
	logger.Warn("Check the browser window for what exactly went wrong and close it once done.")
	if werr := s.page.WaitClosed(ctx); werr != nil {
		logger.Debug("Stopped waiting for the browser window.", zap.Error(werr))
	}
	return err
}

// --- Login and password confirmation ---

// prepare opens url and gets past any login or password challenge standing
// in front of it.
func (s *Session) prepare(ctx context.Context, logger *zap.Logger, url string) error {
	if err := s.page.Navigate(ctx, url); err != nil {
		return err
	}
	if _, err := s.handleLogin(ctx, logger); err != nil {
		return err
	}
	return s.confirmPassword(ctx, logger)
}

func (s *Session) classify(ctx context.Context) (*pypi.Classification, error) {
	snap, err := s.page.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	cls, err := pypi.Classify(snap, s.Credentials().Username, s.cfg.Endpoints)
	if err != nil {
		return nil, err
	}
	return &cls, nil
}

// handleLogin logs in if the current page asks for it. It reports whether
// credentials were actually submitted.
func (s *Session) handleLogin(ctx context.Context, logger *zap.Logger) (bool, error) {
	cls, err := s.classify(ctx)
	if err != nil {
		return false, err
	}
	creds := s.Credentials()

	switch cls.State.LoginAction() {
	case pypi.LoginFail:
		return false, &pypi.WrongUserError{LoggedIn: cls.LoggedInUser, Expected: creds.Username}
	case pypi.LoginNone:
		// Either already logged in as the right user or not on a login page.
		logger.Info("No login required.", zap.Stringer("state", cls.State))
		return false, nil
	}

	// Both fields must be present before either is touched.
	if err := s.requireElement(ctx, pypi.SelUsername, "username field not found on login page"); err != nil {
		return false, err
	}
	if err := s.requireElement(ctx, pypi.SelPassword, "password field not found on login page"); err != nil {
		return false, err
	}
	if err := s.page.Fill(ctx, pypi.SelUsername, creds.Username); err != nil {
		return false, err
	}
	if err := s.page.Fill(ctx, pypi.SelPassword, creds.Password); err != nil {
		return false, err
	}
	logger.Info("Logging in...", zap.String("username", creds.Username))
	if err := s.page.Submit(ctx, pypi.SelPassword); err != nil {
		return true, err
	}

	after, err := s.page.Snapshot(ctx)
	if err != nil {
		return true, err
	}
	// PyPI answers a bad login by rendering the form again with errors.
	if err := pypi.LoginFailure(after, s.cfg.Endpoints); err != nil {
		return true, err
	}
	logger.Info("Logged in.", zap.String("username", creds.Username))
	return true, nil
}

// confirmPassword answers PyPI's re-authentication prompt if it is shown.
func (s *Session) confirmPassword(ctx context.Context, logger *zap.Logger) error {
	cls, err := s.classify(ctx)
	if err != nil {
		return err
	}
	if cls.State.ConfirmAction() == pypi.ConfirmNone {
		logger.Debug("No password confirmation required.")
		return nil
	}
	if err := s.fillRequired(ctx, pypi.SelPassword, s.Credentials().Password, "no password field found on confirmation page"); err != nil {
		return err
	}
	logger.Info("Confirming password...")
	return s.page.Submit(ctx, pypi.SelPassword)
}

// --- Form helpers ---

// fillRequired fills selector, failing with an UnexpectedContentError when the
// element is absent from the current page.
func (s *Session) fillRequired(ctx context.Context, selector, value, missing string) error {
	if err := s.requireElement(ctx, selector, missing); err != nil {
		return err
	}
	return s.page.Fill(ctx, selector, value)
}

func (s *Session) requireElement(ctx context.Context, selector, missing string) error {
	snap, err := s.page.Snapshot(ctx)
	if err != nil {
		return err
	}
	ok, err := snap.Has(selector)
	if err != nil {
		return err
	}
	if !ok {
		return &pypi.UnexpectedContentError{What: missing}
	}
	return nil
}
