// internal/browser/dom/query.go
package dom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrAmbiguousMatch is returned when a query that expects at most one element
// matches several. It signals broken assumptions about the page markup and is
// never retried.
var ErrAmbiguousMatch = errors.New("more than one element found")

// OneOrNone returns the single element of items. It reports false when items is
// empty and ErrAmbiguousMatch when there is more than one element.
func OneOrNone[T any](items []T) (T, bool, error) {
	var zero T
	switch len(items) {
	case 0:
		return zero, false, nil
	case 1:
		return items[0], true, nil
	default:
		return zero, false, fmt.Errorf("%w (%d matches)", ErrAmbiguousMatch, len(items))
	}
}

// OneIn finds the element matching selector below sel. A nil selection is
// returned when nothing matches.
func OneIn(sel *goquery.Selection, selector string) (*goquery.Selection, error) {
	if sel == nil {
		return nil, nil
	}
	found := sel.Find(selector)
	if found.Length() > 1 {
		return nil, fmt.Errorf("%w for %q (%d matches)", ErrAmbiguousMatch, selector, found.Length())
	}
	if found.Length() == 0 {
		return nil, nil
	}
	return found.First(), nil
}

// Text returns the visible text of sel with runs of whitespace collapsed,
// roughly what a user would read off the rendered element.
func Text(sel *goquery.Selection) string {
	if sel == nil {
		return ""
	}
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// OptionalText is Text for an element that may be missing. It reports false
// when selector matches nothing or the element carries no text.
func OptionalText(sel *goquery.Selection, selector string) (string, bool, error) {
	el, err := OneIn(sel, selector)
	if err != nil {
		return "", false, err
	}
	if el == nil {
		return "", false, nil
	}
	text := Text(el)
	return text, text != "", nil
}
