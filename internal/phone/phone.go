// Package phone normalizes raw scraped text into canonical local phone
// numbers and extracts candidates from revealed panel markup.
package phone

import (
	"fmt"
	"regexp"
	"strings"
)

// Policy describes what counts as a valid local number and how it is
// re-grouped for display. The digit count is a hard filter: candidates
// reducing to any other count are discarded, not reformatted.
type Policy struct {
	DigitCount int
	Groups     []int
}

// MXLocal is the ten-digit Mexican local format, grouped "XX XXXX XXXX".
var MXLocal = Policy{DigitCount: 10, Groups: []int{2, 4, 4}}

var nonDigit = regexp.MustCompile(`\D`)

// Normalize strips every non-digit character from raw and, when exactly
// DigitCount digits remain, joins the configured groups with single spaces.
// Any other digit count yields ("", false).
func (p Policy) Normalize(raw string) (string, bool) {
	digits := nonDigit.ReplaceAllString(raw, "")
	if len(digits) != p.DigitCount {
		return "", false
	}

	sum := 0
	for _, n := range p.Groups {
		sum += n
	}
	if sum != p.DigitCount {
		return digits, true
	}

	groups := make([]string, 0, len(p.Groups))
	pos := 0
	for _, n := range p.Groups {
		groups = append(groups, digits[pos:pos+n])
		pos += n
	}
	return strings.Join(groups, " "), true
}

// Pattern returns a free-text regexp matching the policy's grouping with
// optional single spaces between groups, e.g. `\d{2}\s?\d{4}\s?\d{4}`.
func (p Policy) Pattern() *regexp.Regexp {
	var b strings.Builder
	for i, n := range p.Groups {
		if i > 0 {
			b.WriteString(`\s?`)
		}
		fmt.Fprintf(&b, `\d{%d}`, n)
	}
	return regexp.MustCompile(b.String())
}

// Masked reports whether visible number text is partially hidden behind an
// ellipsis and needs the reveal interaction before it can be read.
func Masked(text string) bool {
	return strings.Contains(text, "...") || strings.Contains(text, "…")
}
