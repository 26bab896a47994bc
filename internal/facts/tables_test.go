package facts

import (
	"context"
	"testing"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/library"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/meta"
)

func vlnv(typ ipxact.DocumentType, name string) ipxact.VLNV {
	return ipxact.NewVLNV(typ, "acme", "ip", name, "1.0")
}

// resolvedLibrary holds a top component whose design ties two counters
// together through an ad-hoc wire.
func resolvedLibrary(t *testing.T, width string) (*library.Library, []*meta.Design) {
	t.Helper()
	counter := &ipxact.Component{
		VLNV:       vlnv(ipxact.TypeComponent, "counter"),
		Parameters: []ipxact.Parameter{{Name: "WIDTH", ValueID: "counter_width", Value: "8"}},
		Ports: []ipxact.Port{
			{Name: "count", Direction: ipxact.DirectionOut, Left: "counter_width-1", Right: "0"},
			{Name: "load", Direction: ipxact.DirectionIn, Left: "counter_width-1", Right: "0"},
		},
		Views: []ipxact.View{{Name: "rtl"}},
	}
	designVLNV := vlnv(ipxact.TypeDesign, "chain.design")
	design := &ipxact.Design{
		VLNV: designVLNV,
		ComponentInstances: []ipxact.ComponentInstance{
			{InstanceName: "c0", ComponentRef: ipxact.ConfigurableVLNVReference{
				VLNV:                      counter.VLNV,
				ConfigurableElementValues: []ipxact.ConfigurableElementValue{{ReferenceID: "counter_width", Value: width}},
			}},
			{InstanceName: "c1", ComponentRef: ipxact.ConfigurableVLNVReference{VLNV: counter.VLNV}},
		},
		AdHocConnections: []ipxact.AdHocConnection{{
			Name: "chain",
			InternalPortReferences: []ipxact.PortReference{
				{ComponentRef: "c0", PortRef: "count"},
				{ComponentRef: "c1", PortRef: "load"},
			},
		}},
	}
	top := &ipxact.Component{
		VLNV:  vlnv(ipxact.TypeComponent, "chain"),
		Views: []ipxact.View{{Name: "hier", DesignInstantiationRef: "di"}},
		DesignInstantiations: []ipxact.DesignInstantiation{
			{Name: "di", DesignRef: ipxact.ConfigurableVLNVReference{VLNV: designVLNV}},
		},
	}

	lib := library.New()
	for _, d := range []ipxact.Document{counter, design, top} {
		if err := lib.AddFrom("lib/"+d.DocumentVLNV().Name+".xml", d); err != nil {
			t.Fatalf("add %s: %v", d.DocumentVLNV(), err)
		}
	}
	levels, err := meta.ParseHierarchy(context.Background(), lib, top, &top.Views[0])
	if err != nil {
		t.Fatalf("ParseHierarchy: %v", err)
	}
	return lib, levels
}

func TestBuildTablesPopulatesCoreRelations(t *testing.T) {
	lib, levels := resolvedLibrary(t, "16")
	docs := DocumentRows(lib, func(file string) (string, bool) { return "work", false })
	tables := BuildTables(levels, docs)

	if len(tables.Documents) != 3 {
		t.Fatalf("expected 3 document rows, got %+v", tables.Documents)
	}
	if tables.Documents[0].Library != "work" || tables.Documents[0].File == "" {
		t.Fatalf("expected library and file on document rows, got %+v", tables.Documents[0])
	}
	if len(tables.Designs) != 1 || tables.Designs[0].Design != "chain" {
		t.Fatalf("expected one design row for chain, got %+v", tables.Designs)
	}
	if len(tables.Instances) != 2 {
		t.Fatalf("expected 2 instance rows, got %+v", tables.Instances)
	}
	if len(tables.Ports) != 4 {
		t.Fatalf("expected 4 port rows, got %+v", tables.Ports)
	}
	if len(tables.Wires) != 1 {
		t.Fatalf("expected 1 wire row, got %+v", tables.Wires)
	}
	w := tables.Wires[0]
	if w.Name != "chain" || w.Kind != "adhoc" || w.Width != 16 || w.RefCount != 2 {
		t.Fatalf("unexpected wire row %+v", w)
	}
	if len(tables.Assignments) != 2 {
		t.Fatalf("expected 2 assignment rows, got %+v", tables.Assignments)
	}
	for _, a := range tables.Assignments {
		if a.Wire != "chain" || a.Direction != "up" {
			t.Fatalf("unexpected assignment row %+v", a)
		}
	}

	var c0Width string
	for _, p := range tables.Parameters {
		if p.Instance == "c0" && p.Name == "WIDTH" {
			c0Width = p.Value
		}
	}
	if c0Width != "16" {
		t.Fatalf("expected c0 WIDTH 16, got %q", c0Width)
	}
}
