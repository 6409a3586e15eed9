package finding

import (
	"cmp"
	"fmt"
	"slices"
)

// Kind names the class of weakness a finding reports.
type Kind string

const (
	// KindTakeover marks a host whose body carries an unclaimed-resource signature.
	KindTakeover Kind = "takeover-suspected"

	// KindForbiddenBypass marks a 403 host that answered 200 to another method.
	KindForbiddenBypass Kind = "forbidden-bypass"
)

// Finding is one reported weakness on one host.
type Finding struct {
	Host     string   `json:"host"`
	Kind     Kind     `json:"kind"`
	Method   string   `json:"method,omitempty"`
	Evidence string   `json:"evidence,omitempty"`
	Provider string   `json:"provider,omitempty"`
	Severity Severity `json:"severity"`
}

// String renders the finding as a single console line.
func (f Finding) String() string {
	switch f.Kind {
	case KindTakeover:
		return fmt.Sprintf("Potential subdomain takeover: %s", f.Host)
	case KindForbiddenBypass:
		return fmt.Sprintf("403 bypass possible for %s using %s method", f.Host, f.Method)
	default:
		return fmt.Sprintf("%s: %s", f.Kind, f.Host)
	}
}

// Hosts returns the host of every finding of kind k, in input order.
func Hosts(fs []Finding, k Kind) []string {
	var out []string
	for _, f := range fs {
		if f.Kind == k {
			out = append(out, f.Host)
		}
	}
	return out
}

// Sort orders findings by kind, then host, so persisted output is stable.
func Sort(fs []Finding) {
	slices.SortFunc(fs, func(a, b Finding) int {
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.Host, b.Host)
	})
}
