// Package classify partitions probe results into status buckets.
package classify

import (
	"cmp"
	"net/http"
	"slices"

	"github.com/waftester/vulnscan/pkg/probe"
)

// Label names a bucket.
type Label string

const (
	Found     Label = "Found"
	Forbidden Label = "Forbidden"
	NotFound  Label = "NotFound"
	Other     Label = "Other"
)

// Persisted file names for the three tracked buckets.
const (
	FoundFile     = "200.txt"
	ForbiddenFile = "403.txt"
	NotFoundFile  = "404.txt"
)

// Entry is a host whose outcome fell outside the tracked codes.
type Entry struct {
	Host    string        `json:"host"`
	Outcome probe.Outcome `json:"-"`
	Status  string        `json:"status"`
}

// Buckets is the result of one classification round. Hosts are sorted
// within each bucket. Other is reported but never persisted.
type Buckets struct {
	Found     []string
	Forbidden []string
	NotFound  []string
	Other     []Entry
}

// LabelFor returns the bucket label for an outcome.
func LabelFor(o probe.Outcome) Label {
	code, ok := o.Code()
	if !ok {
		return Other
	}
	switch code {
	case http.StatusOK:
		return Found
	case http.StatusForbidden:
		return Forbidden
	case http.StatusNotFound:
		return NotFound
	default:
		return Other
	}
}

// Classify places every result's host in exactly one bucket. The input is
// not modified and the output depends only on its contents, not its order.
func Classify(results []probe.Result) Buckets {
	b := Buckets{
		Found:     []string{},
		Forbidden: []string{},
		NotFound:  []string{},
		Other:     []Entry{},
	}
	for _, r := range results {
		switch LabelFor(r.Outcome) {
		case Found:
			b.Found = append(b.Found, r.Host)
		case Forbidden:
			b.Forbidden = append(b.Forbidden, r.Host)
		case NotFound:
			b.NotFound = append(b.NotFound, r.Host)
		default:
			b.Other = append(b.Other, Entry{Host: r.Host, Outcome: r.Outcome, Status: r.Outcome.String()})
		}
	}

	slices.Sort(b.Found)
	slices.Sort(b.Forbidden)
	slices.Sort(b.NotFound)
	slices.SortFunc(b.Other, func(x, y Entry) int {
		if c := cmp.Compare(x.Host, y.Host); c != 0 {
			return c
		}
		return cmp.Compare(x.Status, y.Status)
	})
	return b
}

// Persisted returns the tracked buckets keyed by file name.
func (b Buckets) Persisted() map[string][]string {
	return map[string][]string{
		FoundFile:     b.Found,
		ForbiddenFile: b.Forbidden,
		NotFoundFile:  b.NotFound,
	}
}

// Counts returns the size of every bucket.
func (b Buckets) Counts() map[Label]int {
	return map[Label]int{
		Found:     len(b.Found),
		Forbidden: len(b.Forbidden),
		NotFound:  len(b.NotFound),
		Other:     len(b.Other),
	}
}

// Total is the number of classified hosts.
func (b Buckets) Total() int {
	return len(b.Found) + len(b.Forbidden) + len(b.NotFound) + len(b.Other)
}
