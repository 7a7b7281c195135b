// internal/pypi/types.go
package pypi

import (
	"strings"
	"time"
)

// Credentials is a PyPI username/password pair. It is treated as an immutable
// value: a session swaps the whole pair, it never edits one half.
type Credentials struct {
	Username string
	Password string
}

// String hides the password so credentials can be logged safely.
func (c Credentials) String() string {
	return "Credentials{Username: " + c.Username + ", Password: <redacted>}"
}

// Complete reports whether both halves are set.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// TokenScope is the set of projects an API token may act on. It is either
// AllProjects or SingleProject; no other implementations exist.
type TokenScope interface {
	isTokenScope()
	String() string
}

// AllProjects scopes a token to every project of the account.
type AllProjects struct{}

func (AllProjects) isTokenScope() {}

func (AllProjects) String() string { return allProjectsLabel }

// SingleProject scopes a token to exactly one project.
type SingleProject struct {
	Name string
}

func (SingleProject) isTokenScope() {}

func (s SingleProject) String() string { return "Project: " + s.Name }

// allProjectsLabel is what the account page prints in the scope column for
// user-wide tokens.
const allProjectsLabel = "All projects"

// ParseScope interprets the scope column of the token table.
func ParseScope(text string) TokenScope {
	text = strings.TrimSpace(text)
	if text == allProjectsLabel {
		return AllProjects{}
	}
	return SingleProject{Name: text}
}

// ScopeOptionValue returns the value of the scope <select> option that
// corresponds to scope on the token creation form.
func ScopeOptionValue(scope TokenScope) string {
	switch s := scope.(type) {
	case SingleProject:
		return "scope:project:" + s.Name
	default:
		return "scope:user"
	}
}

// TokenListEntry is one row of the API token table on the account page.
type TokenListEntry struct {
	Name    string
	Scope   TokenScope
	Created time.Time
	// LastUsed is nil until the token has been used at least once.
	LastUsed *time.Time
}
