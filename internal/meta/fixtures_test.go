package meta

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/library"
)

func testVLNV(typ ipxact.DocumentType, name string) ipxact.VLNV {
	return ipxact.NewVLNV(typ, "tut.fi", "ip.hw", name, "1.0")
}

func param(name, id, value string) ipxact.Parameter {
	return ipxact.Parameter{Name: name, ValueID: id, Value: value}
}

func port(name string, dir ipxact.Direction, left, right string) ipxact.Port {
	return ipxact.Port{Name: name, Direction: dir, Left: left, Right: right}
}

func cev(id, value string) ipxact.ConfigurableElementValue {
	return ipxact.ConfigurableElementValue{ReferenceID: id, Value: value}
}

// flatComponent has a single "rtl" view backed by a component instantiation.
func flatComponent(name string, params []ipxact.Parameter, ports ...ipxact.Port) *ipxact.Component {
	return &ipxact.Component{
		VLNV:       testVLNV(ipxact.TypeComponent, name),
		Parameters: params,
		Ports:      ports,
		Views:      []ipxact.View{{Name: "rtl", ComponentInstantiationRef: "rtl_inst"}},
		ComponentInstantiations: []ipxact.ComponentInstantiation{
			{Name: "rtl_inst", ModuleName: name},
		},
	}
}

// hierComponent has a single "hier" view instantiating design.
func hierComponent(name string, design ipxact.VLNV, params []ipxact.Parameter, ports ...ipxact.Port) *ipxact.Component {
	return &ipxact.Component{
		VLNV:       testVLNV(ipxact.TypeComponent, name),
		Parameters: params,
		Ports:      ports,
		Views:      []ipxact.View{{Name: "hier", DesignInstantiationRef: "design_inst"}},
		DesignInstantiations: []ipxact.DesignInstantiation{
			{Name: "design_inst", DesignRef: ipxact.ConfigurableVLNVReference{VLNV: design}},
		},
	}
}

func portMap(logical, physical string) ipxact.PortMap {
	return ipxact.PortMap{
		LogicalPort:  &ipxact.LogicalPort{Name: logical},
		PhysicalPort: &ipxact.PhysicalPort{Name: physical},
	}
}

// slicedMap maps physical[pl:pr] to logical[ll:lr].
func slicedMap(logical, ll, lr, physical, pl, pr string) ipxact.PortMap {
	return ipxact.PortMap{
		LogicalPort: &ipxact.LogicalPort{Name: logical, Range: &ipxact.Range{Left: ll, Right: lr}},
		PhysicalPort: &ipxact.PhysicalPort{
			Name:       physical,
			PartSelect: &ipxact.PartSelect{Range: ipxact.Range{Left: pl, Right: pr}},
		},
	}
}

func busInterface(name string, mode ipxact.InterfaceMode, maps ...ipxact.PortMap) *ipxact.BusInterface {
	bi := ipxact.NewBusInterface(name)
	bi.SetInterfaceMode(mode)
	bi.AbstractionTypes = []ipxact.AbstractionType{{PortMaps: maps}}
	return bi
}

func componentInstance(name string, c *ipxact.Component, cevs ...ipxact.ConfigurableElementValue) ipxact.ComponentInstance {
	return ipxact.ComponentInstance{
		InstanceName: name,
		ComponentRef: ipxact.ConfigurableVLNVReference{VLNV: c.VLNV, ConfigurableElementValues: cevs},
	}
}

func active(instance, bus string) ipxact.ActiveInterface {
	return ipxact.ActiveInterface{ComponentRef: instance, BusRef: bus}
}

func internalRef(instance, port string) ipxact.PortReference {
	return ipxact.PortReference{ComponentRef: instance, PortRef: port}
}

func newLibrary(t *testing.T, docs ...ipxact.Document) *library.Library {
	t.Helper()
	lib := library.New()
	for _, d := range docs {
		require.NoError(t, lib.Add(d))
	}
	return lib
}

func hierView(c *ipxact.Component) *ipxact.View {
	return &c.Views[0]
}
