// Package hostname normalizes and deduplicates candidate hostnames.
//
// Normalization lowercases, strips a leading wildcard label and a trailing
// dot, and converts internationalized labels to their ASCII form. After
// normalization, set membership is exact string equality, so Foo.example.com
// and foo.example.com are one candidate.
package hostname

import (
	"errors"
	"maps"
	"slices"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// ErrNotRegistrable is returned for targets that are themselves a public suffix.
var ErrNotRegistrable = errors.New("hostname: target is a public suffix")

// maxLength is the longest textual hostname DNS can carry.
const maxLength = 253

// Normalize returns the canonical form of raw and whether it is usable.
func Normalize(raw string) (string, bool) {
	h := strings.ToLower(strings.TrimSpace(raw))
	for strings.HasPrefix(h, "*.") {
		h = h[2:]
	}
	h = strings.TrimSuffix(h, ".")
	if h == "" {
		return "", false
	}

	ascii, err := idna.Punycode.ToASCII(h)
	if err != nil {
		return "", false
	}
	if len(ascii) > maxLength {
		return "", false
	}
	for _, label := range strings.Split(ascii, ".") {
		if !validLabel(label) {
			return "", false
		}
	}
	return ascii, true
}

func validLabel(label string) bool {
	if label == "" || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}

// InScope reports whether host is domain or a subdomain of it.
// Both arguments must already be normalized.
func InScope(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Target normalizes a scan target and rejects bare public suffixes such as
// "com" or "co.uk".
func Target(raw string) (string, error) {
	h, ok := Normalize(raw)
	if !ok {
		return "", errors.New("hostname: invalid target " + `"` + raw + `"`)
	}
	if _, err := publicsuffix.EffectiveTLDPlusOne(h); err != nil {
		return "", ErrNotRegistrable
	}
	return h, nil
}

// Set is a deduplicated collection of normalized hostnames.
// The zero value is ready to use. Set is not safe for concurrent use.
type Set struct {
	m map[string]struct{}
}

// NewSet returns a Set holding the normalized form of every usable host.
func NewSet(hosts ...string) *Set {
	s := &Set{}
	for _, h := range hosts {
		s.Add(h)
	}
	return s
}

// Add normalizes raw and inserts it. It reports whether the set grew.
func (s *Set) Add(raw string) bool {
	h, ok := Normalize(raw)
	if !ok {
		return false
	}
	if s.m == nil {
		s.m = make(map[string]struct{})
	}
	if _, dup := s.m[h]; dup {
		return false
	}
	s.m[h] = struct{}{}
	return true
}

// Has reports whether the normalized form of raw is present.
func (s *Set) Has(raw string) bool {
	h, ok := Normalize(raw)
	if !ok || s == nil {
		return false
	}
	_, found := s.m[h]
	return found
}

// Len returns the number of hosts in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.m)
}

// Sorted returns the hosts in lexical order.
func (s *Set) Sorted() []string {
	if s == nil || len(s.m) == 0 {
		return []string{}
	}
	return slices.Sorted(maps.Keys(s.m))
}
