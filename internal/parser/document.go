package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"
)

// ParseError is returned for payloads that are not text at all, such as
// images or compressed archives served in place of a page.
type ParseError struct {
	ContentType string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse HTML: payload looks like %s", e.ContentType)
}

// Document is a parsed page. Malformed markup still produces a tree, the same
// way a browser would recover from it.
type Document struct {
	doc *goquery.Document
}

func Parse(html string) (*Document, error) {
	if ct, ok := detectText([]byte(html)); !ok {
		return nil, &ParseError{ContentType: ct}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return &Document{doc: doc}, nil
}

// Root returns the selection the extractors start from.
func (d *Document) Root() *goquery.Selection {
	return d.doc.Selection
}

func (d *Document) First(selector string) *goquery.Selection {
	return d.doc.Find(selector).First()
}

func (d *Document) All(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// Text returns the trimmed text of the first match.
func (d *Document) Text(selector string) string {
	return strings.TrimSpace(d.First(selector).Text())
}

// CleanText returns the whitespace-collapsed text of the first match.
func (d *Document) CleanText(selector string) string {
	return CollapseWhitespace(d.First(selector).Text())
}

// Attr returns the named attribute of the first match, or "".
func (d *Document) Attr(selector, name string) string {
	v, _ := d.First(selector).Attr(name)
	return v
}

func detectText(data []byte) (string, bool) {
	if len(data) == 0 {
		return "text/plain", true
	}

	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return detected.String(), true
		}
	}
	return detected.String(), false
}
