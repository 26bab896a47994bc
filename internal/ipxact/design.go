package ipxact

// ComponentInstance places a component inside a design.
type ComponentInstance struct {
	InstanceName string                    `json:"instance_name"`
	DisplayName  string                    `json:"display_name,omitempty"`
	Description  string                    `json:"description,omitempty"`
	ComponentRef ConfigurableVLNVReference `json:"component_ref"`
	Position     *Position                 `json:"position,omitempty"`
}

// ActiveInterface names a bus interface on an instance.
type ActiveInterface struct {
	ComponentRef string `json:"component_ref"`
	BusRef       string `json:"bus_ref"`
}

// HierInterface names a bus interface on the design's own component.
type HierInterface struct {
	BusRef string `json:"bus_ref"`
}

// Interconnection joins bus interfaces.
type Interconnection struct {
	Name             string            `json:"name"`
	StartInterface   ActiveInterface   `json:"start_interface"`
	ActiveInterfaces []ActiveInterface `json:"active_interfaces,omitempty"`
	HierInterfaces   []HierInterface   `json:"hier_interfaces,omitempty"`
}

// Endpoints returns the active interfaces followed by the start interface.
func (i *Interconnection) Endpoints() []ActiveInterface {
	out := make([]ActiveInterface, 0, len(i.ActiveInterfaces)+1)
	out = append(out, i.ActiveInterfaces...)
	if i.StartInterface.ComponentRef != "" || i.StartInterface.BusRef != "" {
		out = append(out, i.StartInterface)
	}
	return out
}

// PortReference is one end of an ad-hoc connection. ComponentRef is empty
// for external references to the design's own ports.
type PortReference struct {
	ComponentRef string      `json:"component_ref,omitempty"`
	PortRef      string      `json:"port_ref"`
	PartSelect   *PartSelect `json:"part_select,omitempty"`
}

// AdHocConnection wires ports directly or ties them to a value.
type AdHocConnection struct {
	Name                   string          `json:"name"`
	TiedValue              string          `json:"tied_value,omitempty"`
	InternalPortReferences []PortReference `json:"internal_port_references,omitempty"`
	ExternalPortReferences []PortReference `json:"external_port_references,omitempty"`
}

// Design is an IP-XACT design document.
type Design struct {
	VLNV               VLNV                `json:"vlnv"`
	Description        string              `json:"description,omitempty"`
	ComponentInstances []ComponentInstance `json:"component_instances,omitempty"`
	Interconnections   []Interconnection   `json:"interconnections,omitempty"`
	AdHocConnections   []AdHocConnection   `json:"ad_hoc_connections,omitempty"`
	Parameters         []Parameter         `json:"parameters,omitempty"`
}

// Instance returns the named component instance or nil.
func (d *Design) Instance(name string) *ComponentInstance {
	for i := range d.ComponentInstances {
		if d.ComponentInstances[i].InstanceName == name {
			return &d.ComponentInstances[i]
		}
	}
	return nil
}

// ViewConfiguration selects the active view of one instance.
type ViewConfiguration struct {
	InstanceName              string                     `json:"instance_name"`
	ViewRef                   string                     `json:"view_ref"`
	ConfigurableElementValues []ConfigurableElementValue `json:"configurable_element_values,omitempty"`
}

// DesignConfiguration is an IP-XACT design configuration document.
type DesignConfiguration struct {
	VLNV               VLNV                `json:"vlnv"`
	DesignRef          VLNV                `json:"design_ref"`
	ViewConfigurations []ViewConfiguration `json:"view_configurations,omitempty"`
	Parameters         []Parameter         `json:"parameters,omitempty"`
}

// ViewConfiguration returns the entry for an instance or nil.
func (d *DesignConfiguration) ViewConfiguration(instance string) *ViewConfiguration {
	if d == nil {
		return nil
	}
	for i := range d.ViewConfigurations {
		if d.ViewConfigurations[i].InstanceName == instance {
			return &d.ViewConfigurations[i]
		}
	}
	return nil
}

// ActiveView returns the configured view name of an instance, or "".
func (d *DesignConfiguration) ActiveView(instance string) string {
	if vc := d.ViewConfiguration(instance); vc != nil {
		return vc.ViewRef
	}
	return ""
}
