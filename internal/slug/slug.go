// Package slug derives URL-safe identifiers from store names.
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	// Matches any run of non-alphanumeric characters.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	// Matches multiple hyphens.
	multipleHyphens = regexp.MustCompile(`-+`)
)

// Make converts a name to a URL-safe slug.
// "Café Pappas" -> "cafe-pappas".
// "Joe's  Pizza & Grill" -> "joe-s-pizza-grill".
func Make(name string) string {
	// Decompose accented characters so the base letter survives the ASCII filter.
	s := norm.NFKD.String(name)

	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)

	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Pattern returns a case-insensitive matcher for base and base-<digits>.
func Pattern(base string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(base) + `(-[0-9]+)?$`)
}

// Matching returns the existing slugs that collide with base.
func Matching(base string, existing []string) []string {
	re := Pattern(base)
	var out []string
	for _, s := range existing {
		if re.MatchString(s) {
			out = append(out, s)
		}
	}
	return out
}

// Next picks the slug for base given the slugs already taken.
// With no collisions the base is returned unchanged, otherwise the
// suffix is one more than the number of colliding slugs.
func Next(base string, existing []string) string {
	n := len(Matching(base, existing))
	if n == 0 {
		return base
	}
	return WithSuffix(base, n+1)
}

// WithSuffix appends a numeric disambiguator.
func WithSuffix(base string, n int) string {
	return fmt.Sprintf("%s-%d", base, n)
}
