// internal/pypi/endpoints.go
package pypi

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultBaseURL is the production index.
const DefaultBaseURL = "https://pypi.org"

const (
	loginPath     = "/account/login/"
	twoFactorPath = "/account/two-factor/"
	accountPath   = "/manage/account/"
	tokenPath     = "/manage/account/token/"
)

// Endpoints holds the absolute URLs of the pages the client visits on one
// index instance (PyPI, TestPyPI or a mirror of the web UI).
type Endpoints struct {
	Base      string
	Login     string
	TwoFactor string
	Account   string
	Token     string
}

// NewEndpoints derives the page URLs from baseURL. An empty baseURL selects
// DefaultBaseURL.
func NewEndpoints(baseURL string) (Endpoints, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return Endpoints{}, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Endpoints{}, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return Endpoints{}, fmt.Errorf("invalid base URL %q: missing host", baseURL)
	}
	base := strings.TrimRight(u.Scheme+"://"+u.Host+u.Path, "/")
	return Endpoints{
		Base:      base,
		Login:     base + loginPath,
		TwoFactor: base + twoFactorPath,
		Account:   base + accountPath,
		Token:     base + tokenPath,
	}, nil
}

// IsLogin reports whether pageURL is the login page. Query strings such as
// ?next=... are ignored.
func (e Endpoints) IsLogin(pageURL string) bool {
	return strings.HasPrefix(pageURL, e.Login)
}

// IsTwoFactor reports whether pageURL is the second-factor challenge that
// follows a password login on accounts with 2FA enabled.
func (e Endpoints) IsTwoFactor(pageURL string) bool {
	return strings.HasPrefix(pageURL, e.TwoFactor)
}

// KeyringService is the secret-store service name credentials for this index
// are filed under. Distinct base URLs never share an entry.
func (e Endpoints) KeyringService() string {
	return "pypi-token-client-cli (" + e.Base + ")"
}
