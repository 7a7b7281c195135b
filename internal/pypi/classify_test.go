// internal/pypi/classify_test.go
package pypi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	ep := endpoints(t)

	tests := []struct {
		name     string
		url      string
		html     string
		wantSt   State
		wantUser string
		login    LoginAction
		confirm  ConfirmAction
	}{
		{
			name:   "anonymous on login page",
			url:    ep.Login + "?next=%2Fmanage%2Faccount%2F",
			html:   anonymousLoginPage,
			wantSt: AnonymousOnLoginPage,
			login:  LoginSubmitCredentials,
		},
		{
			name:     "logged in as expected user",
			url:      ep.Account,
			html:     accountPage("alice", ""),
			wantSt:   LoggedInAsExpectedUser,
			wantUser: "alice",
		},
		{
			name:     "logged in as someone else",
			url:      ep.Account,
			html:     accountPage("mallory", ""),
			wantSt:   LoggedInAsOtherUser,
			wantUser: "mallory",
			login:    LoginFail,
		},
		{
			name:     "password confirmation",
			url:      ep.Token,
			html:     confirmPasswordPage,
			wantSt:   PasswordConfirmationRequired,
			wantUser: "alice",
			confirm:  ConfirmSubmitPassword,
		},
		{
			name:   "anonymous elsewhere",
			url:    ep.Base + "/project/demo/",
			html:   `<html><body><h1>demo</h1></body></html>`,
			wantSt: Ready,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(snapshot(t, tt.url, tt.html), "alice", ep)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSt, got.State, "state was %s", got.State)
			assert.Equal(t, tt.wantUser, got.LoggedInUser)
			assert.Equal(t, tt.login, got.State.LoginAction())
			assert.Equal(t, tt.confirm, got.State.ConfirmAction())
		})
	}
}

func TestClassify_ForeignUserBeatsConfirmation(t *testing.T) {
	ep := endpoints(t)
	html := `<html><body><div id="user-indicator"><nav><button>bob</button></nav></div>
<h1>Confirm password to continue</h1></body></html>`
	got, err := Classify(snapshot(t, ep.Token, html), "alice", ep)
	require.NoError(t, err)
	assert.Equal(t, LoggedInAsOtherUser, got.State)
}

func TestClassify_AmbiguousIndicatorIsFatal(t *testing.T) {
	ep := endpoints(t)
	html := `<html><body>
<div id="user-indicator"><nav><button>alice</button><button>alice</button></nav></div></body></html>`
	_, err := Classify(snapshot(t, ep.Account, html), "alice", ep)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user indicator")
}

func TestLoginFailure(t *testing.T) {
	ep := endpoints(t)

	t.Run("navigated away means success", func(t *testing.T) {
		assert.NoError(t, LoginFailure(snapshot(t, ep.Account, accountPage("alice", "")), ep))
	})

	t.Run("username error", func(t *testing.T) {
		err := LoginFailure(snapshot(t, ep.Login, loginPageWithUsernameError), ep)
		var target *UsernameError
		require.True(t, errors.As(err, &target))
		assert.Equal(t, "No user found with that username", target.Message)
		assert.ErrorIs(t, err, ErrLogin)
		assert.True(t, IsRetryableLogin(err))
	})

	t.Run("password error", func(t *testing.T) {
		err := LoginFailure(snapshot(t, ep.Login, loginPageWithPasswordError), ep)
		var target *PasswordError
		require.True(t, errors.As(err, &target))
		assert.Contains(t, err.Error(), "The password is invalid")
		assert.NotErrorIs(t, err, ErrTooManyAttempts)
	})

	t.Run("rate limited", func(t *testing.T) {
		err := LoginFailure(snapshot(t, ep.Login, loginPageRateLimited), ep)
		var target *TooManyAttemptsError
		require.True(t, errors.As(err, &target))
		assert.ErrorIs(t, err, ErrLogin)
		assert.ErrorIs(t, err, ErrTooManyAttempts)
		assert.False(t, IsRetryableLogin(err))
	})

	t.Run("no error shown", func(t *testing.T) {
		err := LoginFailure(snapshot(t, ep.Login, anonymousLoginPage), ep)
		assert.ErrorIs(t, err, ErrUnexpectedPage)
	})

	t.Run("two factor", func(t *testing.T) {
		err := LoginFailure(snapshot(t, ep.TwoFactor+"?next=/manage/", "<html></html>"), ep)
		require.ErrorIs(t, err, ErrUnexpectedPage)
		assert.Contains(t, err.Error(), "two-factor")
	})
}

func TestTokenCreationResult(t *testing.T) {
	ep := endpoints(t)

	token, err := TokenCreationResult(snapshot(t, ep.Token, tokenCreatedPage))
	require.NoError(t, err)
	assert.Equal(t, "pypi-AgEIcHlwaS5vcmcCJGFiYw", token)

	_, err = TokenCreationResult(snapshot(t, ep.Token, tokenNameTakenPage))
	var nameErr *TokenNameError
	require.True(t, errors.As(err, &nameErr))
	assert.Equal(t, "You have already created a token with this name", nameErr.Message)

	_, err = TokenCreationResult(snapshot(t, ep.Token, "<html><body></body></html>"))
	assert.ErrorIs(t, err, ErrUnexpectedContent)
}
