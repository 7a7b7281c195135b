// internal/pypi/scrape.go
package pypi

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/xkilldash9x/pypi-token-client/internal/browser/dom"
)

// datetime attribute layouts seen in the wild, tried in order. Values without
// an offset are UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO 8601 timestamp as found in a <time datetime>
// attribute.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// ParseTokenTable scrapes the API token table of the account page, one entry
// per row in rendered order. A page without the table yields an empty list.
func ParseTokenTable(snap *dom.Snapshot) ([]TokenListEntry, error) {
	rows := snap.All(SelTokenRows)
	entries := make([]TokenListEntry, 0, len(rows))
	for i, row := range rows {
		entry, err := parseTokenRow(row)
		if err != nil {
			return nil, fmt.Errorf("token table row %d: %w", i+1, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseTokenRow(row *goquery.Selection) (TokenListEntry, error) {
	cells := row.Find("th,td")
	if cells.Length() < 3 {
		return TokenListEntry{}, unexpectedContent("expected at least 3 cells, found %d", cells.Length())
	}
	name := dom.Text(cells.Eq(0))
	if name == "" {
		return TokenListEntry{}, unexpectedContent("token name cell is empty")
	}
	entry := TokenListEntry{
		Name:  name,
		Scope: ParseScope(dom.Text(cells.Eq(1))),
	}

	created, ok, err := cellTime(cells.Eq(2))
	if err != nil {
		return TokenListEntry{}, fmt.Errorf("created column: %w", err)
	}
	if !ok {
		return TokenListEntry{}, unexpectedContent("token %q has no creation time", name)
	}
	entry.Created = created

	if cells.Length() > 3 {
		lastUsed, ok, err := cellTime(cells.Eq(3))
		if err != nil {
			return TokenListEntry{}, fmt.Errorf("last used column: %w", err)
		}
		if ok {
			entry.LastUsed = &lastUsed
		}
	}
	return entry, nil
}

func cellTime(cell *goquery.Selection) (time.Time, bool, error) {
	el, err := dom.OneIn(cell, "time")
	if err != nil || el == nil {
		return time.Time{}, false, err
	}
	attr, ok := el.Attr("datetime")
	if !ok {
		return time.Time{}, false, unexpectedContent("time element without datetime attribute")
	}
	t, err := ParseTimestamp(attr)
	if err != nil {
		return time.Time{}, false, &UnexpectedContentError{What: err.Error()}
	}
	return t, true, nil
}

// RemoveControls are the selectors needed to delete one token: the link that
// opens its confirmation dialog and the dialog's password field.
type RemoveControls struct {
	Link          string
	PasswordField string
}

// RemoveDialog locates the controls that delete the token called name.
func RemoveDialog(snap *dom.Snapshot, name string) (RemoveControls, error) {
	var matches []*goquery.Selection
	for _, row := range snap.All(SelTokenRows) {
		if dom.Text(row.Find("th,td").First()) == name {
			matches = append(matches, row)
		}
	}
	row, found, err := dom.OneOrNone(matches)
	if err != nil {
		return RemoveControls{}, fmt.Errorf("locating token %q: %w", name, err)
	}
	if !found {
		return RemoveControls{}, &TokenNotFoundError{Name: name}
	}
	link, err := dom.OneIn(row, SelRemoveTokenLink)
	if err != nil {
		return RemoveControls{}, fmt.Errorf("locating remove control of token %q: %w", name, err)
	}
	if link == nil {
		return RemoveControls{}, unexpectedContent("no remove control for token %q", name)
	}
	href, _ := link.Attr("href")
	dialogID := strings.TrimPrefix(href, "#")
	controls := RemoveControls{
		Link:          fmt.Sprintf(`a[href=%q]`, href),
		PasswordField: fmt.Sprintf(`[id=%q] input[type="password"]`, dialogID),
	}
	if ok, err := snap.Has(controls.PasswordField); err != nil {
		return RemoveControls{}, fmt.Errorf("locating password field of %s: %w", dialogID, err)
	} else if !ok {
		return RemoveControls{}, unexpectedContent("no password field in removal dialog %s", dialogID)
	}
	return controls, nil
}

// HasScopeOption reports whether the scope selector offers value.
func HasScopeOption(snap *dom.Snapshot, value string) (bool, error) {
	sel, err := snap.One(SelTokenScope)
	if err != nil {
		return false, fmt.Errorf("locating scope selector: %w", err)
	}
	if sel == nil {
		return false, unexpectedContent("no scope selector found on page")
	}
	found := false
	sel.Find("option").EachWithBreak(func(_ int, opt *goquery.Selection) bool {
		if v, _ := opt.Attr("value"); v == value {
			found = true
		}
		return !found
	})
	return found, nil
}

// TokenNames returns the names in a token list, preserving order.
func TokenNames(entries []TokenListEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
