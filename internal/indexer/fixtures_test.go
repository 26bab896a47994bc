package indexer

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/config"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/document"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

type countingSummarizer struct {
	inner Summarizer
	count *int32
}

func (c *countingSummarizer) Summarize(path string) (FileSummary, error) {
	atomic.AddInt32(c.count, 1)
	return c.inner.Summarize(path)
}

func testVLNV(typ ipxact.DocumentType, name string) ipxact.VLNV {
	return ipxact.NewVLNV(typ, "acme", "ip", name, "1.0")
}

func writeDoc(t *testing.T, dir, name string, d ipxact.Document) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := document.WriteDocument(f, d, 2); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func counterComponent() *ipxact.Component {
	return &ipxact.Component{
		VLNV:       testVLNV(ipxact.TypeComponent, "counter"),
		Parameters: []ipxact.Parameter{{Name: "WIDTH", ValueID: "counter_width", Value: "8"}},
		Ports: []ipxact.Port{
			{Name: "count", Direction: ipxact.DirectionOut, Left: "counter_width-1", Right: "0"},
			{Name: "load", Direction: ipxact.DirectionIn, Left: "counter_width-1", Right: "0"},
		},
		Views: []ipxact.View{{Name: "rtl"}},
	}
}

// chainDesign ties two counters together with an ad-hoc wire.
func chainDesign(width string) *ipxact.Design {
	counter := testVLNV(ipxact.TypeComponent, "counter")
	return &ipxact.Design{
		VLNV: testVLNV(ipxact.TypeDesign, "chain.design"),
		ComponentInstances: []ipxact.ComponentInstance{
			{InstanceName: "c0", ComponentRef: ipxact.ConfigurableVLNVReference{
				VLNV:                      counter,
				ConfigurableElementValues: []ipxact.ConfigurableElementValue{{ReferenceID: "counter_width", Value: width}},
			}},
			{InstanceName: "c1", ComponentRef: ipxact.ConfigurableVLNVReference{VLNV: counter}},
		},
		AdHocConnections: []ipxact.AdHocConnection{{
			Name: "chain",
			InternalPortReferences: []ipxact.PortReference{
				{ComponentRef: "c0", PortRef: "count"},
				{ComponentRef: "c1", PortRef: "load"},
			},
		}},
	}
}

func chainComponent() *ipxact.Component {
	return &ipxact.Component{
		VLNV:  testVLNV(ipxact.TypeComponent, "chain"),
		Views: []ipxact.View{{Name: "hier", DesignInstantiationRef: "di"}},
		DesignInstantiations: []ipxact.DesignInstantiation{
			{Name: "di", DesignRef: ipxact.ConfigurableVLNVReference{VLNV: testVLNV(ipxact.TypeDesign, "chain.design")}},
		},
	}
}

// writeChain writes counter.xml, chain.design.xml and chain.xml into dir.
func writeChain(t *testing.T, dir, width string) map[string]string {
	t.Helper()
	return map[string]string{
		"counter": writeDoc(t, dir, "counter.xml", counterComponent()),
		"design":  writeDoc(t, dir, "chain.design.xml", chainDesign(width)),
		"top":     writeDoc(t, dir, "chain.xml", chainComponent()),
	}
}

func defaultTestConfig(cacheDir string, cacheEnabled bool) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Lint.Rules = map[string]string{}
	cfg.Analysis.Cache.Dir = cacheDir
	enabled := cacheEnabled
	cfg.Analysis.Cache.Enabled = &enabled
	return cfg
}
