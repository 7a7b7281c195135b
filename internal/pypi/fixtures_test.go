// internal/pypi/fixtures_test.go
package pypi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pypi-token-client/internal/browser/dom"
)

// Trimmed copies of the pages the client sees, keeping only the markup the
// selectors depend on.

const anonymousLoginPage = `<html><body>
<header><a href="/account/login/">Log in</a></header>
<form method="POST" action="/account/login/">
  <input id="username" name="username" type="text">
  <input id="password" name="password" type="password">
  <input type="submit" value="Log in">
</form>
</body></html>`

const loginPageWithUsernameError = `<html><body>
<form method="POST">
  <div id="username-errors"><ul><li>No user found with that username</li></ul></div>
  <input id="username" name="username" type="text">
  <input id="password" name="password" type="password">
</form>
</body></html>`

const loginPageWithPasswordError = `<html><body>
<form method="POST">
  <input id="username" name="username" type="text">
  <div id="password-errors"><ul><li>The password is invalid. Try again.</li></ul></div>
  <input id="password" name="password" type="password">
</form>
</body></html>`

const loginPageRateLimited = `<html><body>
<form method="POST">
  <input id="username" name="username" type="text">
  <div id="password-errors"><ul><li>There have been Too Many Unsuccessful Login Attempts. Try again later.</li></ul></div>
  <input id="password" name="password" type="password">
</form>
</body></html>`

func accountPage(user, tableBody string) string {
	return `<html><body>
<div id="user-indicator"><nav><button>` + user + `</button><ul><li>Account settings</li></ul></nav><nav><button>Help</button></nav></div>
<h1>Account settings</h1>
<section id="api-tokens"><table><thead><tr><th>Name</th><th>Scope</th><th>Created</th><th>Last used</th><th></th></tr></thead>
<tbody>` + tableBody + `</tbody></table></section>
</body></html>`
}

const confirmPasswordPage = `<html><body>
<div id="user-indicator"><nav><button>alice</button></nav></div>
<h1 class="page-title">Confirm password to continue</h1>
<form method="POST"><input id="password" name="password" type="password"></form>
</body></html>`

const tokenRows = `
<tr>
  <th scope="row">first</th>
  <td>All projects</td>
  <td><time datetime="2023-04-01T10:00:00+0000">Apr 1, 2023</time></td>
  <td><time datetime="2023-05-02T11:30:00.123456+00:00">May 2, 2023</time></td>
  <td><a href="#remove-API-token--1111">Remove</a>
      <div id="remove-API-token--1111"><form><input id="confirm_password-1111" type="password" name="password"></form></div></td>
</tr>
<tr>
  <th scope="row">pypitokenclienttest</th>
  <td>demo</td>
  <td><time datetime="2024-01-15T08:00:00">Jan 15, 2024</time></td>
  <td>Never</td>
  <td><a href="#remove-API-token--2222">Remove</a>
      <div id="remove-API-token--2222"><form><input id="confirm_password-2222" type="password" name="password"></form></div></td>
</tr>`

const tokenCreatedPage = `<html><body>
<div id="user-indicator"><nav><button>alice</button></nav></div>
<div id="provisioned-key"><code>pypi-AgEIcHlwaS5vcmcCJGFiYw</code></div>
</body></html>`

const tokenNameTakenPage = `<html><body>
<div id="user-indicator"><nav><button>alice</button></nav></div>
<div id="token-name-errors"><ul><li>You have already created a token with this name</li></ul></div>
<input id="description" name="description">
<select id="token_scope" name="token_scope"><option value="scope:user">Entire account</option></select>
</body></html>`

func snapshot(t *testing.T, url, html string) *dom.Snapshot {
	t.Helper()
	snap, err := dom.NewSnapshot(url, html)
	require.NoError(t, err)
	return snap
}

func endpoints(t *testing.T) Endpoints {
	t.Helper()
	ep, err := NewEndpoints("https://pypi.org")
	require.NoError(t, err)
	return ep
}
