// internal/pypi/classify.go
package pypi

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/pypi-token-client/internal/browser/dom"
)

// Selectors of the site's HTML contract.
const (
	SelUserIndicator   = "#user-indicator > nav:first-child > button"
	SelUsername        = "#username"
	SelPassword        = "#password"
	SelUsernameErrors  = "#username-errors ul li"
	SelPasswordErrors  = "#password-errors ul li"
	SelTokenName       = "#description"
	SelTokenScope      = "#token_scope"
	SelTokenNameErrors = "#token-name-errors ul li"
	SelProvisionedKey  = "#provisioned-key > code"
	SelTokenRows       = "#api-tokens > table > tbody > tr"
	SelRemoveTokenLink = `a[href^="#remove-API-token--"]`
)

const (
	confirmHeading        = "Confirm password to continue"
	headingTags           = "h1,h2,h3,h4,h5,h6"
	tooManyAttemptsPhrase = "too many unsuccessful login attempts"
)

// State is what the current page means for the login flow. It is derived
// from a Snapshot every time and never cached.
type State int

const (
	Ready State = iota
	AnonymousOnLoginPage
	LoggedInAsExpectedUser
	LoggedInAsOtherUser
	PasswordConfirmationRequired
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case AnonymousOnLoginPage:
		return "anonymous on login page"
	case LoggedInAsExpectedUser:
		return "logged in as expected user"
	case LoggedInAsOtherUser:
		return "logged in as other user"
	case PasswordConfirmationRequired:
		return "password confirmation required"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Classification is the result of Classify.
type Classification struct {
	State State
	// LoggedInUser is the name shown by the user indicator, empty when
	// nobody is logged in.
	LoggedInUser string
}

// Classify decides which State snap is in for a session configured with
// username. When several conditions hold, a foreign login wins over a
// password challenge, which wins over the login form, which wins over a
// matching login.
func Classify(snap *dom.Snapshot, username string, ep Endpoints) (Classification, error) {
	user, loggedIn, err := dom.OptionalText(snap.Doc.Selection, SelUserIndicator)
	if err != nil {
		return Classification{}, fmt.Errorf("reading user indicator: %w", err)
	}
	if loggedIn && user != username {
		return Classification{State: LoggedInAsOtherUser, LoggedInUser: user}, nil
	}
	confirm, err := needsPasswordConfirmation(snap)
	if err != nil {
		return Classification{}, err
	}
	switch {
	case confirm:
		return Classification{State: PasswordConfirmationRequired, LoggedInUser: user}, nil
	case !loggedIn && ep.IsLogin(snap.URL):
		return Classification{State: AnonymousOnLoginPage}, nil
	case loggedIn:
		return Classification{State: LoggedInAsExpectedUser, LoggedInUser: user}, nil
	default:
		return Classification{State: Ready}, nil
	}
}

func needsPasswordConfirmation(snap *dom.Snapshot) (bool, error) {
	_, found, err := dom.OneOrNone(snap.ContainsText(headingTags, confirmHeading))
	if err != nil {
		return false, fmt.Errorf("locating password confirmation heading: %w", err)
	}
	return found, nil
}

// LoginAction is what the login transition does in a given State.
type LoginAction int

const (
	LoginNone LoginAction = iota
	LoginSubmitCredentials
	LoginFail
)

// ConfirmAction is what the password re-confirmation transition does in a
// given State.
type ConfirmAction int

const (
	ConfirmNone ConfirmAction = iota
	ConfirmSubmitPassword
)

type transition struct {
	login   LoginAction
	confirm ConfirmAction
}

var transitions = map[State]transition{
	Ready:                        {LoginNone, ConfirmNone},
	AnonymousOnLoginPage:         {LoginSubmitCredentials, ConfirmNone},
	LoggedInAsExpectedUser:       {LoginNone, ConfirmNone},
	LoggedInAsOtherUser:          {LoginFail, ConfirmNone},
	PasswordConfirmationRequired: {LoginNone, ConfirmSubmitPassword},
}

// LoginAction returns the login transition for s.
func (s State) LoginAction() LoginAction { return transitions[s].login }

// ConfirmAction returns the re-confirmation transition for s.
func (s State) ConfirmAction() ConfirmAction { return transitions[s].confirm }

// LoginFailure inspects the page reached after submitting the login form. It
// returns nil when the login went through and a typed error otherwise.
func LoginFailure(snap *dom.Snapshot, ep Endpoints) error {
	if ep.IsTwoFactor(snap.URL) {
		return &UnexpectedPageError{
			Actual: snap.URL,
			Reason: "two-factor authentication is not supported",
		}
	}
	if !ep.IsLogin(snap.URL) {
		return nil
	}
	root := snap.Doc.Selection
	msg, ok, err := dom.OptionalText(root, SelUsernameErrors)
	if err != nil {
		return fmt.Errorf("reading username errors: %w", err)
	}
	if ok {
		return &UsernameError{Message: msg}
	}
	msg, ok, err = dom.OptionalText(root, SelPasswordErrors)
	if err != nil {
		return fmt.Errorf("reading password errors: %w", err)
	}
	if ok {
		if strings.Contains(strings.ToLower(msg), tooManyAttemptsPhrase) {
			return &TooManyAttemptsError{Message: msg}
		}
		return &PasswordError{Message: msg}
	}
	return &UnexpectedPageError{
		Actual: snap.URL,
		Reason: "still on the login page after submitting credentials but no error is shown",
	}
}

// TokenCreationResult reads the page shown after submitting the token form:
// the one-time secret, or the site's complaint about the name.
func TokenCreationResult(snap *dom.Snapshot) (string, error) {
	root := snap.Doc.Selection
	msg, ok, err := dom.OptionalText(root, SelTokenNameErrors)
	if err != nil {
		return "", fmt.Errorf("reading token name errors: %w", err)
	}
	if ok {
		return "", &TokenNameError{Message: msg}
	}
	block, err := snap.One(SelProvisionedKey)
	if err != nil {
		return "", fmt.Errorf("locating token block: %w", err)
	}
	if block == nil {
		return "", unexpectedContent("no token block found on page")
	}
	token := strings.TrimSpace(block.Text())
	if token == "" {
		return "", unexpectedContent("token block on page is empty")
	}
	return token, nil
}
