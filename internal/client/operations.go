// internal/client/operations.go
package client

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pypi-token-client/internal/pypi"
)

// Login makes sure the session is logged in. It reports whether credentials
// had to be submitted, which is false when the browser profile already holds
// a valid login for the same user. Use it to validate credentials before
// storing them.
func (s *Session) Login(ctx context.Context) (bool, error) {
	var performed bool
	err := s.exclusive(ctx, "login", func(ctx context.Context, logger *zap.Logger) error {
		if err := s.page.Navigate(ctx, s.cfg.Endpoints.Login); err != nil {
			return err
		}
		var err error
		performed, err = s.handleLogin(ctx, logger)
		return err
	})
	return performed, err
}

// CreateToken creates an API token called name with the given scope and
// returns its secret. PyPI shows the secret only once; it cannot be
// retrieved again later.
func (s *Session) CreateToken(ctx context.Context, name string, scope pypi.TokenScope) (string, error) {
	if scope == nil {
		scope = pypi.AllProjects{}
	}
	var token string
	err := s.exclusive(ctx, "create_token", func(ctx context.Context, logger *zap.Logger) error {
		if err := s.prepare(ctx, logger, s.cfg.Endpoints.Token); err != nil {
			return err
		}

		snap, err := s.page.Snapshot(ctx)
		if err != nil {
			return err
		}
		if ok, err := snap.Has(pypi.SelTokenName); err != nil {
			return err
		} else if !ok {
			return &pypi.UnexpectedContentError{What: "no token name field found on page"}
		}
		option := pypi.ScopeOptionValue(scope)
		ok, err := pypi.HasScopeOption(snap, option)
		if err != nil {
			return err
		}
		if !ok {
			return &pypi.UnexpectedContentError{
				What: fmt.Sprintf("scope selector has no option for %s; is it a project of this account?", scope),
			}
		}

		if err := s.page.Fill(ctx, pypi.SelTokenName, name); err != nil {
			return err
		}
		if err := s.page.SelectOption(ctx, pypi.SelTokenScope, option); err != nil {
			return err
		}
		logger.Info("Creating token...", zap.String("token", name), zap.Stringer("scope", scope))
		if err := s.page.Submit(ctx, pypi.SelTokenName); err != nil {
			return err
		}

		result, err := s.page.Snapshot(ctx)
		if err != nil {
			return err
		}
		token, err = pypi.TokenCreationResult(result)
		return err
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// CreateProjectToken creates a token restricted to one project.
func (s *Session) CreateProjectToken(ctx context.Context, project, name string) (string, error) {
	return s.CreateToken(ctx, name, pypi.SingleProject{Name: project})
}

// TokenList returns the account's API tokens in the order PyPI lists them.
func (s *Session) TokenList(ctx context.Context) ([]pypi.TokenListEntry, error) {
	var entries []pypi.TokenListEntry
	err := s.exclusive(ctx, "list_tokens", func(ctx context.Context, logger *zap.Logger) error {
		if err := s.prepare(ctx, logger, s.cfg.Endpoints.Account); err != nil {
			return err
		}
		snap, err := s.page.Snapshot(ctx)
		if err != nil {
			return err
		}
		entries, err = pypi.ParseTokenTable(snap)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// DeleteToken removes the token called name. A missing token yields a
// *pypi.TokenNotFoundError.
func (s *Session) DeleteToken(ctx context.Context, name string) error {
	return s.exclusive(ctx, "delete_token", func(ctx context.Context, logger *zap.Logger) error {
		if err := s.prepare(ctx, logger, s.cfg.Endpoints.Account); err != nil {
			return err
		}
		snap, err := s.page.Snapshot(ctx)
		if err != nil {
			return err
		}
		controls, err := pypi.RemoveDialog(snap, name)
		if err != nil {
			return err
		}

		logger.Info("Deleting token...", zap.String("token", name))
		if err := s.page.Click(ctx, controls.Link); err != nil {
			return err
		}
		if err := s.page.Fill(ctx, controls.PasswordField, s.Credentials().Password); err != nil {
			return err
		}
		if err := s.page.Submit(ctx, controls.PasswordField); err != nil {
			return err
		}

		// The landing page after the POST varies; check the account page itself.
		if err := s.page.Navigate(ctx, s.cfg.Endpoints.Account); err != nil {
			return err
		}
		after, err := s.page.Snapshot(ctx)
		if err != nil {
			return err
		}
		remaining, err := pypi.ParseTokenTable(after)
		if err != nil {
			return err
		}
		for _, e := range remaining {
			if e.Name == name {
				return &pypi.UnexpectedContentError{What: fmt.Sprintf("token %q is still listed after deletion", name)}
			}
		}
		return nil
	})
}
