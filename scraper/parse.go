package scraper

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Parse decodes body to UTF-8 using the Content-Type charset, falling back
// to <meta> sniffing, and builds a goquery document.
func Parse(body []byte, contentType string) (*goquery.Document, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("scraper: decode charset: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("scraper: parse html: %w", err)
	}
	return doc, nil
}

// ApplySelector narrows doc to the elements matching selector and returns
// them as a new document. If nothing matches, doc is returned unchanged.
func ApplySelector(doc *goquery.Document, selector string) (*goquery.Document, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, err
	}

	matches := doc.FindMatcher(sel)
	if matches.Length() == 0 {
		return doc, nil
	}

	var buf bytes.Buffer
	for _, node := range matches.Nodes {
		if err := html.Render(&buf, node); err != nil {
			return nil, err
		}
	}
	return goquery.NewDocumentFromReader(&buf)
}
