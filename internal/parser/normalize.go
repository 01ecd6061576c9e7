package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nonDigitPattern = regexp.MustCompile(`[^0-9]`)
	slugPattern     = regexp.MustCompile(`/produk/([^/]+)/?`)
)

const dataImagePrefix = "data:image"

// CollapseWhitespace folds every run of whitespace, newlines and
// non-breaking spaces included, into one space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PriceToInt keeps only the decimal digits of s and parses them. It returns 0
// when nothing parseable is left. Decimal separators are dropped along with
// thousands separators, which is only right for integer currencies like IDR.
func PriceToInt(s string) int64 {
	digits := nonDigitPattern.ReplaceAllString(s, "")
	if digits == "" {
		return 0
	}

	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// SlugFromPath extracts <slug> from an href containing /produk/<slug>/.
func SlugFromPath(href string) string {
	m := slugPattern.FindStringSubmatch(href)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// ResolveImageSource returns the first non-empty candidate, unless that
// candidate is an inlined data:image placeholder, in which case there is no
// usable image. Candidates are ordered lazy-load attribute first.
func ResolveImageSource(candidates ...string) string {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if strings.HasPrefix(c, dataImagePrefix) {
			return ""
		}
		return c
	}
	return ""
}
