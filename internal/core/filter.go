package core

import (
	"fmt"
	"regexp"
	"strings"
)

// Filter selects domains by substring and regular expression. Both
// conditions must hold; an unset condition always holds. The zero Filter
// matches everything.
type Filter struct {
	match string
	re    *regexp.Regexp
}

// NewFilter builds a Filter. An empty pattern disables the regex condition.
func NewFilter(match, pattern string) (Filter, error) {
	f := Filter{match: match}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Filter{}, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
		}
		f.re = re
	}
	return f, nil
}

// Match reports whether s passes both conditions.
func (f Filter) Match(s string) bool {
	if f.match != "" && !strings.Contains(s, f.match) {
		return false
	}
	if f.re != nil && !f.re.MatchString(s) {
		return false
	}
	return true
}

// IsZero reports whether the filter has no conditions.
func (f Filter) IsZero() bool {
	return f.match == "" && f.re == nil
}

// String renders the filter for log fields.
func (f Filter) String() string {
	var parts []string
	if f.match != "" {
		parts = append(parts, "match="+f.match)
	}
	if f.re != nil {
		parts = append(parts, "regex="+f.re.String())
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}
