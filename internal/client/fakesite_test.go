// internal/client/fakesite_test.go
package client

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pypi-token-client/internal/browser"
	"github.com/xkilldash9x/pypi-token-client/internal/browser/dom"
	"github.com/xkilldash9x/pypi-token-client/internal/config"
	"github.com/xkilldash9x/pypi-token-client/internal/pypi"
)

type fakeToken struct {
	id       int
	name     string
	scope    string
	created  time.Time
	lastUsed *time.Time
}

type fakeAccount struct {
	password string
	projects []string
	tokens   []fakeToken
}

// fakeSite is an in-memory imitation of the PyPI account pages that
// implements browser.Page. It renders the same markup contract the real site
// exposes and records how it was driven.
type fakeSite struct {
	ep pypi.Endpoints

	mu       sync.Mutex
	accounts map[string]*fakeAccount
	loggedIn string
	url      string
	view     string
	next     string
	fields   map[string]string
	dialog   string
	nextID   int
	clock    time.Time

	usernameError  string
	passwordError  string
	tokenNameError string
	createdSecret  string

	failures       int
	rateLimitAfter int
	confirmPending bool
	// omit drops the input with the given id from every rendered page.
	omit map[string]bool

	submissions int
	confirms    int
	waitClosed  int
	events      []string

	navDelay time.Duration
	block    chan struct{}
	inFlight atomic.Int32
	overlap  atomic.Bool
}

var _ browser.Page = (*fakeSite)(nil)

func newFakeSite(ep pypi.Endpoints) *fakeSite {
	return &fakeSite{
		ep: ep,
		accounts: map[string]*fakeAccount{
			"alice": {password: "correct horse", projects: []string{"demo", "foo"}},
		},
		url:    "about:blank",
		view:   "blank",
		fields: map[string]string{},
		clock:  time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

// enter marks a page call in flight and flags any overlap with another one.
func (f *fakeSite) enter(event string) func() {
	if f.inFlight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
	return func() { f.inFlight.Add(-1) }
}

func (f *fakeSite) Navigate(ctx context.Context, target string) error {
	defer f.enter("navigate " + target)()
	if f.navDelay > 0 {
		select {
		case <-time.After(f.navDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.goTo(target)
	return nil
}

// goTo must be called with mu held.
func (f *fakeSite) goTo(target string) {
	f.fields = map[string]string{}
	f.dialog = ""
	f.usernameError, f.passwordError, f.tokenNameError = "", "", ""

	switch {
	case strings.HasPrefix(target, f.ep.Login):
		if f.loggedIn != "" {
			f.url, f.view = f.ep.Base+"/manage/projects/", "projects"
			return
		}
		f.url, f.view = target, "login"
		if u, err := url.Parse(target); err == nil {
			f.next = u.Query().Get("next")
		}
	case target == f.ep.Token || target == f.ep.Account:
		if f.loggedIn == "" {
			f.url, f.view, f.next = f.ep.Login+"?next="+url.QueryEscape(target), "login", target
			return
		}
		f.url = target
		switch {
		case f.confirmPending:
			f.view = "confirm"
		case target == f.ep.Token:
			f.view = "token"
		default:
			f.view = "account"
		}
	default:
		f.url, f.view = target, "other"
	}
}

func (f *fakeSite) Snapshot(ctx context.Context) (*dom.Snapshot, error) {
	defer f.enter("snapshot")()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *fakeSite) snapshotLocked() (*dom.Snapshot, error) {
	return dom.NewSnapshot(f.url, f.render())
}

func (f *fakeSite) render() string {
	var b strings.Builder
	b.WriteString("<html><body><header>")
	if f.loggedIn != "" {
		fmt.Fprintf(&b, `<div id="user-indicator"><nav><button>%s</button></nav><nav><button>Help</button></nav></div>`, html.EscapeString(f.loggedIn))
	} else {
		b.WriteString(`<a href="/account/login/">Log in</a>`)
	}
	b.WriteString("</header><main>")
	switch f.view {
	case "login":
		b.WriteString(`<h1>Log in to PyPI</h1><form method="POST">`)
		writeFieldErrors(&b, "username-errors", f.usernameError)
		f.writeInput(&b, "username", "text")
		writeFieldErrors(&b, "password-errors", f.passwordError)
		f.writeInput(&b, "password", "password")
		b.WriteString(`</form>`)
	case "confirm":
		b.WriteString(`<h1 class="page-title">Confirm password to continue</h1><form method="POST">`)
		writeFieldErrors(&b, "password-errors", f.passwordError)
		f.writeInput(&b, "password", "password")
		b.WriteString(`</form>`)
	case "token":
		b.WriteString(`<h1>Add API token</h1><form method="POST">`)
		writeFieldErrors(&b, "token-name-errors", f.tokenNameError)
		f.writeInput(&b, "description", "text")
		b.WriteString(`<select id="token_scope" name="token_scope">`)
		b.WriteString(`<option disabled selected value="">Select scope...</option><option value="scope:user">Entire account (all projects)</option>`)
		for _, p := range f.accounts[f.loggedIn].projects {
			fmt.Fprintf(&b, `<option value="scope:project:%s">Project: %s</option>`, p, p)
		}
		b.WriteString(`</select></form>`)
	case "created":
		fmt.Fprintf(&b, `<h1>Token for "x"</h1><div id="provisioned-key"><code>%s</code></div>`, f.createdSecret)
	case "account":
		b.WriteString(`<h1>Account settings</h1><section id="api-tokens"><table><thead><tr><th>Name</th><th>Scope</th><th>Created</th><th>Last used</th><th></th></tr></thead><tbody>`)
		for _, tok := range f.accounts[f.loggedIn].tokens {
			fmt.Fprintf(&b, `<tr><th scope="row">%s</th><td>%s</td><td><time datetime="%s">c</time></td>`,
				html.EscapeString(tok.name), html.EscapeString(tok.scope), tok.created.Format(time.RFC3339))
			if tok.lastUsed != nil {
				fmt.Fprintf(&b, `<td><time datetime="%s">u</time></td>`, tok.lastUsed.Format(time.RFC3339))
			} else {
				b.WriteString(`<td>Never</td>`)
			}
			fmt.Fprintf(&b, `<td><a href="#remove-API-token--%d">Remove</a><div id="remove-API-token--%d"><form method="POST"><input id="confirm-password-%d" name="password" type="password"></form></div></td></tr>`,
				tok.id, tok.id, tok.id)
		}
		b.WriteString(`</tbody></table></section>`)
	case "projects":
		b.WriteString(`<h1>Your projects</h1>`)
	}
	b.WriteString("</main></body></html>")
	return b.String()
}

func (f *fakeSite) writeInput(b *strings.Builder, id, typ string) {
	if f.omit[id] {
		return
	}
	fmt.Fprintf(b, `<input id="%s" name="%s" type="%s">`, id, id, typ)
}

func writeFieldErrors(b *strings.Builder, id, msg string) {
	if msg != "" {
		fmt.Fprintf(b, `<div id="%s"><ul><li>%s</li></ul></div>`, id, html.EscapeString(msg))
	}
}

// element checks that selector matches exactly one element on the current
// page, like a real browser query would.
func (f *fakeSite) element(selector string) (string, error) {
	snap, err := f.snapshotLocked()
	if err != nil {
		return "", err
	}
	el, err := snap.One(selector)
	if err != nil {
		return "", err
	}
	if el == nil {
		return "", fmt.Errorf("no element matches %s on %s", selector, f.url)
	}
	href, _ := el.Attr("href")
	return href, nil
}

func (f *fakeSite) Fill(ctx context.Context, selector, value string) error {
	defer f.enter("fill " + selector)()
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.element(selector); err != nil {
		return err
	}
	f.fields[selector] = value
	return nil
}

func (f *fakeSite) SelectOption(ctx context.Context, selector, value string) error {
	defer f.enter("select " + selector)()
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.element(fmt.Sprintf(`%s option[value=%q]`, selector, value)); err != nil {
		return err
	}
	f.fields[selector] = value
	return nil
}

func (f *fakeSite) Click(ctx context.Context, selector string) error {
	defer f.enter("click " + selector)()
	f.mu.Lock()
	defer f.mu.Unlock()
	href, err := f.element(selector)
	if err != nil {
		return err
	}
	f.dialog = strings.TrimPrefix(href, "#remove-API-token--")
	return nil
}

func (f *fakeSite) Submit(ctx context.Context, selector string) error {
	defer f.enter("submit " + selector)()
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.element(selector); err != nil {
		return err
	}

	switch f.view {
	case "login":
		f.submitLogin()
	case "confirm":
		f.confirms++
		if f.fields[pypi.SelPassword] != f.accounts[f.loggedIn].password {
			f.passwordError = "The password is invalid. Try again."
			return nil
		}
		f.confirmPending = false
		f.goTo(f.url)
	case "token":
		f.submitToken()
	case "account":
		f.submitRemoval(selector)
	default:
		return fmt.Errorf("nothing to submit on %s", f.url)
	}
	return nil
}

func (f *fakeSite) submitLogin() {
	f.submissions++
	username, password := f.fields[pypi.SelUsername], f.fields[pypi.SelPassword]
	f.usernameError, f.passwordError = "", ""

	acct, ok := f.accounts[username]
	switch {
	case !ok:
		f.usernameError = "No user found with that username"
	case password != acct.password:
		f.failures++
		if f.rateLimitAfter > 0 && f.failures >= f.rateLimitAfter {
			f.passwordError = "There have been too many unsuccessful login attempts. Try again later."
		} else {
			f.passwordError = "The password is invalid. Try again."
		}
	default:
		f.loggedIn, f.failures = username, 0
		target := f.next
		if target == "" {
			target = f.ep.Base + "/manage/projects/"
		}
		f.goTo(target)
	}
}

func (f *fakeSite) submitToken() {
	acct := f.accounts[f.loggedIn]
	name, scope := f.fields[pypi.SelTokenName], f.fields[pypi.SelTokenScope]
	if name == "" {
		f.tokenNameError = "Specify a token name"
		return
	}
	for _, tok := range acct.tokens {
		if tok.name == name {
			f.tokenNameError = "You have already created a token with this name."
			return
		}
	}
	label := "All projects"
	if p, ok := strings.CutPrefix(scope, "scope:project:"); ok {
		label = p
	}
	f.nextID++
	f.clock = f.clock.Add(time.Minute)
	acct.tokens = append(acct.tokens, fakeToken{id: f.nextID, name: name, scope: label, created: f.clock})
	f.createdSecret = fmt.Sprintf("pypi-AgEIcHlwaS5vcmc-%d", f.nextID)
	f.view = "created"
}

func (f *fakeSite) submitRemoval(selector string) {
	if f.dialog == "" || !strings.Contains(selector, `"remove-API-token--`+f.dialog+`"`) {
		return
	}
	acct := f.accounts[f.loggedIn]
	if f.fields[selector] == acct.password {
		kept := acct.tokens[:0]
		for _, tok := range acct.tokens {
			if fmt.Sprint(tok.id) != f.dialog {
				kept = append(kept, tok)
			}
		}
		acct.tokens = kept
	}
	f.goTo(f.ep.Account)
}

func (f *fakeSite) WaitClosed(ctx context.Context) error {
	f.mu.Lock()
	f.waitClosed++
	f.mu.Unlock()
	return nil
}

func (f *fakeSite) stats() (submissions, confirms, waitClosed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submissions, f.confirms, f.waitClosed
}

// actions returns the recorded calls that changed the page: fills, selects,
// clicks and submits.
func (f *fakeSite) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		switch verb, _, _ := strings.Cut(e, " "); verb {
		case "fill", "select", "click", "submit":
			out = append(out, e)
		}
	}
	return out
}

// fakeInstance plays the part of a launched browser around a fakeSite.
// Closing an ephemeral instance drops the login, like a throwaway profile.
type fakeInstance struct {
	site    *fakeSite
	persist bool
	closed  atomic.Int32
}

func (i *fakeInstance) Page() browser.Page { return i.site }

func (i *fakeInstance) Close() error {
	if i.closed.Add(1) == 1 && !i.persist {
		i.site.mu.Lock()
		i.site.loggedIn = ""
		i.site.mu.Unlock()
	}
	return nil
}

// fakeOpener returns an Opener handing out instances backed by site and a
// counter of launches.
func fakeOpener(site *fakeSite, persist bool) (browser.Opener, *atomic.Int32) {
	var launches atomic.Int32
	return func(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (browser.Instance, error) {
		launches.Add(1)
		return &fakeInstance{site: site, persist: persist}, nil
	}, &launches
}
