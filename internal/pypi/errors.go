// internal/pypi/errors.go
package pypi

import (
	"errors"
	"fmt"
)

// Error categories. The concrete error types below match these via errors.Is.
var (
	// ErrUnexpectedPage means a navigation ended somewhere the flow did not expect.
	ErrUnexpectedPage = errors.New("unexpected page")
	// ErrUnexpectedContent means an element the flow relies on is missing,
	// usually because the site's markup changed.
	ErrUnexpectedContent = errors.New("unexpected page content")
	// ErrLogin is the category of every rejected login.
	ErrLogin = errors.New("login failed")
	// ErrTooManyAttempts is the rate-limited flavour of ErrLogin. Retrying
	// right away is pointless.
	ErrTooManyAttempts = errors.New("too many unsuccessful login attempts")
	// ErrWrongUser means the browser is logged in as a different account.
	ErrWrongUser = errors.New("logged in as a different user")
	// ErrTokenName means the site rejected the requested token name.
	ErrTokenName = errors.New("token name rejected")
	// ErrTokenNotFound means no token with the requested name is listed.
	ErrTokenNotFound = errors.New("token not found")
)

// UnexpectedPageError reports the page the browser ended up on.
type UnexpectedPageError struct {
	Actual   string
	Expected string
	Reason   string
}

func (e *UnexpectedPageError) Error() string {
	msg := fmt.Sprintf("ended up on unexpected page %s", e.Actual)
	if e.Expected != "" {
		msg += fmt.Sprintf(" (expected %s)", e.Expected)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *UnexpectedPageError) Is(target error) bool { return target == ErrUnexpectedPage }

// UnexpectedContentError names the element that could not be found.
type UnexpectedContentError struct {
	What string
}

func (e *UnexpectedContentError) Error() string { return e.What }

func (e *UnexpectedContentError) Is(target error) bool { return target == ErrUnexpectedContent }

func unexpectedContent(format string, args ...any) error {
	return &UnexpectedContentError{What: fmt.Sprintf(format, args...)}
}

// UsernameError carries the site's message for a rejected username.
type UsernameError struct {
	Message string
}

func (e *UsernameError) Error() string { return "username error: " + e.Message }

func (e *UsernameError) Is(target error) bool { return target == ErrLogin }

// PasswordError carries the site's message for a rejected password.
type PasswordError struct {
	Message string
}

func (e *PasswordError) Error() string { return "password error: " + e.Message }

func (e *PasswordError) Is(target error) bool { return target == ErrLogin }

// TooManyAttemptsError is returned instead of PasswordError once the site
// starts rate limiting logins.
type TooManyAttemptsError struct {
	Message string
}

func (e *TooManyAttemptsError) Error() string { return "login rate limited: " + e.Message }

func (e *TooManyAttemptsError) Is(target error) bool {
	return target == ErrLogin || target == ErrTooManyAttempts
}

// WrongUserError is fatal. Logging out to switch accounts is not supported.
type WrongUserError struct {
	LoggedIn string
	Expected string
}

func (e *WrongUserError) Error() string {
	return fmt.Sprintf("logged in as %q but credentials are for %q, which can't be handled", e.LoggedIn, e.Expected)
}

func (e *WrongUserError) Is(target error) bool { return target == ErrWrongUser }

// TokenNameError carries the site's message for a rejected token name, e.g. a
// duplicate.
type TokenNameError struct {
	Message string
}

func (e *TokenNameError) Error() string { return "token name error: " + e.Message }

func (e *TokenNameError) Is(target error) bool { return target == ErrTokenName }

// TokenNotFoundError is returned when deleting a token that is not listed.
type TokenNotFoundError struct {
	Name string
}

func (e *TokenNotFoundError) Error() string { return fmt.Sprintf("no token named %q", e.Name) }

func (e *TokenNotFoundError) Is(target error) bool { return target == ErrTokenNotFound }

// IsRetryableLogin reports whether err is a login rejection that asking the
// user for new credentials could fix.
func IsRetryableLogin(err error) bool {
	return errors.Is(err, ErrLogin) && !errors.Is(err, ErrTooManyAttempts)
}
