// Package finding provides the vulnerability finding type shared by the
// takeover and forbidden-bypass checkers.
//
// Usage:
//
//	f := finding.Finding{
//	    Host:     "assets.example.com",
//	    Kind:     finding.KindTakeover,
//	    Evidence: "NoSuchBucket",
//	    Severity: finding.High,
//	}
package finding
