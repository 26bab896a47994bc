// Package expr evaluates IP-XACT parameter expressions.
package expr

import "github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"

// Finder resolves a reference to a parameter, by value id first and by name
// second.
type Finder interface {
	Find(ref string) (ipxact.Parameter, bool)
}

// ListFinder searches a parameter slice. It shares the slice's backing
// array, so in-place updates are visible to later lookups.
type ListFinder []ipxact.Parameter

// Find implements Finder.
func (l ListFinder) Find(ref string) (ipxact.Parameter, bool) {
	if ref == "" {
		return ipxact.Parameter{}, false
	}
	for _, p := range l {
		if p.ValueID == ref {
			return p, true
		}
	}
	for _, p := range l {
		if p.Name == ref {
			return p, true
		}
	}
	return ipxact.Parameter{}, false
}

// MultiFinder asks each finder in turn; the first hit wins.
type MultiFinder []Finder

// Find implements Finder.
func (m MultiFinder) Find(ref string) (ipxact.Parameter, bool) {
	for _, f := range m {
		if f == nil {
			continue
		}
		if p, ok := f.Find(ref); ok {
			return p, true
		}
	}
	return ipxact.Parameter{}, false
}
