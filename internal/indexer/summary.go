package indexer

import (
	"os"
	"sort"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/document"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

// FileSummary is what the index keeps of one document: its identity and the
// VLNVs it refers to. Summaries are cached per content hash.
type FileSummary struct {
	File       string   `json:"file"`
	VLNV       string   `json:"vlnv"`
	Kind       string   `json:"kind"`
	References []string `json:"references,omitempty"`
}

// Summarizer abstracts document reading for caching tests.
type Summarizer interface {
	Summarize(path string) (FileSummary, error)
}

type documentSummarizer struct{}

func (documentSummarizer) Summarize(path string) (FileSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileSummary{}, err
	}
	defer f.Close()

	doc, err := document.ReadDocument(f)
	if err != nil {
		return FileSummary{}, err
	}
	return Summarize(path, doc), nil
}

// Summarize lists the identity and outgoing references of doc.
func Summarize(path string, doc ipxact.Document) FileSummary {
	v := doc.DocumentVLNV()
	s := FileSummary{File: path, VLNV: v.Key().String(), Kind: string(v.Type)}

	refs := map[string]bool{}
	add := func(r ipxact.VLNV) {
		if r.IsValid() {
			refs[r.Key().String()] = true
		}
	}

	switch d := doc.(type) {
	case *ipxact.Component:
		s.Kind = string(ipxact.TypeComponent)
		for _, bi := range d.BusInterfaces {
			add(bi.BusType.VLNV)
			for _, at := range bi.AbstractionTypes {
				if at.AbstractionRef != nil {
					add(at.AbstractionRef.VLNV)
				}
			}
		}
		for _, di := range d.DesignInstantiations {
			add(di.DesignRef.VLNV)
		}
		for _, dci := range d.DesignConfigurationInstantiations {
			add(dci.DesignConfigurationRef.VLNV)
		}
	case *ipxact.Design:
		s.Kind = string(ipxact.TypeDesign)
		for _, ci := range d.ComponentInstances {
			add(ci.ComponentRef.VLNV)
		}
	case *ipxact.DesignConfiguration:
		s.Kind = string(ipxact.TypeDesignConfiguration)
		add(d.DesignRef)
	case *ipxact.AbstractionDefinition:
		s.Kind = string(ipxact.TypeAbstractionDefinition)
		add(d.BusType)
	case *ipxact.BusDefinition:
		s.Kind = string(ipxact.TypeBusDefinition)
	}

	delete(refs, s.VLNV)
	for r := range refs {
		s.References = append(s.References, r)
	}
	sort.Strings(s.References)
	return s
}
