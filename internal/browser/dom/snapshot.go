// internal/browser/dom/snapshot.go
package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is a point-in-time copy of the page: the URL the browser shows and
// the document parsed from its serialized DOM. Decisions about what to do
// next are made against snapshots, never against a cached idea of the page.
type Snapshot struct {
	URL string
	Doc *goquery.Document
}

// NewSnapshot parses html into a Snapshot for pageURL.
func NewSnapshot(pageURL, html string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse DOM snapshot of %s: %w", pageURL, err)
	}
	return &Snapshot{URL: pageURL, Doc: doc}, nil
}

// One returns the element matching selector, nil if there is none.
func (s *Snapshot) One(selector string) (*goquery.Selection, error) {
	return OneIn(s.Doc.Selection, selector)
}

// Has reports whether exactly one element matches selector.
func (s *Snapshot) Has(selector string) (bool, error) {
	el, err := s.One(selector)
	return el != nil, err
}

// All returns every element matching selector in document order.
func (s *Snapshot) All(selector string) []*goquery.Selection {
	var out []*goquery.Selection
	s.Doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, sel)
	})
	return out
}

// ContainsText returns the elements matching selector whose text contains
// needle, mirroring a text locator on the live page.
func (s *Snapshot) ContainsText(selector, needle string) []*goquery.Selection {
	var out []*goquery.Selection
	for _, sel := range s.All(selector) {
		if strings.Contains(Text(sel), needle) {
			out = append(out, sel)
		}
	}
	return out
}
