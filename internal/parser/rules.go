package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// strategy reads one raw value from a selection. An empty result means "not
// found here" and hands over to the next strategy in the chain.
type strategy func(s *goquery.Selection) string

// chain is an ordered list of strategies; the first non-empty result wins.
type chain []strategy

func (c chain) eval(s *goquery.Selection) string {
	for _, try := range c {
		if v := try(s); v != "" {
			return v
		}
	}
	return ""
}

// field binds a chain to the default reported when every strategy misses.
type field struct {
	chain chain
	def   string
}

func (f field) eval(s *goquery.Selection) string {
	if v := f.chain.eval(s); v != "" {
		return v
	}
	return f.def
}

// listStrategy collects a list of raw values; listChain falls through to the
// next strategy only when the previous one collected nothing.
type listStrategy func(s *goquery.Selection) []string

type listChain []listStrategy

func (c listChain) eval(s *goquery.Selection) []string {
	for _, try := range c {
		if vs := try(s); len(vs) > 0 {
			return vs
		}
	}
	return make([]string, 0)
}

// textOf is the trimmed text of every match, concatenated.
func textOf(selector string) strategy {
	return func(s *goquery.Selection) string {
		return strings.TrimSpace(s.Find(selector).Text())
	}
}

// firstTextOf is the trimmed text of the first match only.
func firstTextOf(selector string) strategy {
	return func(s *goquery.Selection) string {
		return strings.TrimSpace(s.Find(selector).First().Text())
	}
}

func firstCleanTextOf(selector string) strategy {
	return func(s *goquery.Selection) string {
		return CollapseWhitespace(s.Find(selector).First().Text())
	}
}

func cleanTextOf(selector string) strategy {
	return func(s *goquery.Selection) string {
		return CollapseWhitespace(s.Find(selector).Text())
	}
}

// rawTextOf leaves the first match untouched for normalizers that do their
// own cleanup.
func rawTextOf(selector string) strategy {
	return func(s *goquery.Selection) string {
		return s.Find(selector).First().Text()
	}
}

func attrOf(selector, name string) strategy {
	return func(s *goquery.Selection) string {
		v, _ := s.Find(selector).First().Attr(name)
		return v
	}
}

// attrsOf collects the non-empty attribute of every match in document order.
func attrsOf(selector, name string) listStrategy {
	return func(s *goquery.Selection) []string {
		var out []string
		s.Find(selector).Each(func(_ int, el *goquery.Selection) {
			if v, ok := el.Attr(name); ok && v != "" {
				out = append(out, v)
			}
		})
		return out
	}
}
