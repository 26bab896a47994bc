// Package library holds the IP-XACT documents a resolution pass reads from.
package library

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

// Library maps VLNVs to parsed documents. It is safe for concurrent reads;
// callers must not mutate it while a resolution pass is running.
type Library struct {
	mu    sync.RWMutex
	docs  map[ipxact.VLNV]ipxact.Document
	paths map[ipxact.VLNV]string
}

// New returns an empty library.
func New() *Library {
	return &Library{
		docs:  make(map[ipxact.VLNV]ipxact.Document),
		paths: make(map[ipxact.VLNV]string),
	}
}

// Add registers d, replacing any document with the same VLNV.
func (l *Library) Add(d ipxact.Document) error {
	return l.AddFrom("", d)
}

// AddFrom registers d and remembers where it was read from.
func (l *Library) AddFrom(path string, d ipxact.Document) error {
	if d == nil {
		return errors.New("nil document")
	}
	v := d.DocumentVLNV()
	if !v.IsValid() {
		return errors.Wrapf(ipxact.ErrMalformedDocument, "document %s has an incomplete VLNV", path)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.docs[v.Key()] = d
	if path != "" {
		l.paths[v.Key()] = path
	}
	return nil
}

// Document returns the document stored under v.
func (l *Library) Document(v ipxact.VLNV) (ipxact.Document, error) {
	l.mu.RLock()
	d, ok := l.docs[v.Key()]
	l.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ipxact.ErrDanglingReference, "%s not in library", v)
	}
	return d, nil
}

// Path returns the file a document was loaded from, or "".
func (l *Library) Path(v ipxact.VLNV) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.paths[v.Key()]
}

// Len is the number of documents held.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.docs)
}

// VLNVs lists every stored identifier in VLNV order.
func (l *Library) VLNVs() []ipxact.VLNV {
	l.mu.RLock()
	out := make([]ipxact.VLNV, 0, len(l.docs))
	for _, d := range l.docs {
		out = append(out, d.DocumentVLNV())
	}
	l.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

// Component returns the component stored under v.
func (l *Library) Component(v ipxact.VLNV) (*ipxact.Component, error) {
	d, err := l.Document(v)
	if err != nil {
		return nil, err
	}
	c, ok := d.(*ipxact.Component)
	if !ok {
		return nil, errors.Wrapf(ipxact.ErrDanglingReference, "%s is not a component", v)
	}
	return c, nil
}

// Design returns the design stored under v.
func (l *Library) Design(v ipxact.VLNV) (*ipxact.Design, error) {
	d, err := l.Document(v)
	if err != nil {
		return nil, err
	}
	des, ok := d.(*ipxact.Design)
	if !ok {
		return nil, errors.Wrapf(ipxact.ErrDanglingReference, "%s is not a design", v)
	}
	return des, nil
}

// DesignConfiguration returns the design configuration stored under v.
func (l *Library) DesignConfiguration(v ipxact.VLNV) (*ipxact.DesignConfiguration, error) {
	d, err := l.Document(v)
	if err != nil {
		return nil, err
	}
	dc, ok := d.(*ipxact.DesignConfiguration)
	if !ok {
		return nil, errors.Wrapf(ipxact.ErrDanglingReference, "%s is not a design configuration", v)
	}
	return dc, nil
}

// AbstractionDefinition returns the abstraction definition stored under v.
func (l *Library) AbstractionDefinition(v ipxact.VLNV) (*ipxact.AbstractionDefinition, error) {
	d, err := l.Document(v)
	if err != nil {
		return nil, err
	}
	a, ok := d.(*ipxact.AbstractionDefinition)
	if !ok {
		return nil, errors.Wrapf(ipxact.ErrDanglingReference, "%s is not an abstraction definition", v)
	}
	return a, nil
}

// BusDefinition returns the bus definition stored under v.
func (l *Library) BusDefinition(v ipxact.VLNV) (*ipxact.BusDefinition, error) {
	d, err := l.Document(v)
	if err != nil {
		return nil, err
	}
	b, ok := d.(*ipxact.BusDefinition)
	if !ok {
		return nil, errors.Wrapf(ipxact.ErrDanglingReference, "%s is not a bus definition", v)
	}
	return b, nil
}
