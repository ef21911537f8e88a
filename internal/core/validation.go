package core

import (
	"regexp"
	"strings"
)

// MaxDomainLength is the longest accepted domain name in bytes.
const MaxDomainLength = 253

// domainRegex accepts dot-separated labels with an optional leading "*."
// wildcard. Non-final labels may contain '_' and '*'; the final label is
// alphanumeric with inner hyphens.
var domainRegex = regexp.MustCompile(
	`^(?:(?:\*\.)?(?:[a-zA-Z0-9_*](?:[a-zA-Z0-9_*-]{0,61}[a-zA-Z0-9_*])?\.)+[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)$`,
)

// IsValidDomain reports whether s is an acceptable domain name.
// The cheap structural checks run before the regex.
func IsValidDomain(s string) bool {
	if s == "" || len(s) > MaxDomainLength {
		return false
	}
	if strings.HasPrefix(s, "*") && !strings.HasPrefix(s, "*.") {
		return false
	}
	if s == "*" || strings.HasSuffix(s, "*") {
		return false
	}
	if strings.Contains(s, ".-") || strings.Contains(s, "-.") {
		return false
	}
	if strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") {
		return false
	}
	return domainRegex.MatchString(s)
}
