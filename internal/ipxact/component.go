package ipxact

// Port is a physical wire port of a component.
type Port struct {
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Direction    Direction `json:"direction"`
	Left         string    `json:"left,omitempty"`
	Right        string    `json:"right,omitempty"`
	DefaultValue string    `json:"default_value,omitempty"`
}

// View selects an implementation of a component.
type View struct {
	Name                                string   `json:"name"`
	EnvIdentifiers                      []string `json:"env_identifiers,omitempty"`
	ComponentInstantiationRef           string   `json:"component_instantiation_ref,omitempty"`
	DesignInstantiationRef              string   `json:"design_instantiation_ref,omitempty"`
	DesignConfigurationInstantiationRef string   `json:"design_configuration_instantiation_ref,omitempty"`
}

// IsHierarchical reports whether the view refers to a design or a design configuration.
func (v *View) IsHierarchical() bool {
	return v.DesignInstantiationRef != "" || v.DesignConfigurationInstantiationRef != ""
}

// ComponentInstantiation is the HDL module behind a flat view.
type ComponentInstantiation struct {
	Name             string      `json:"name"`
	Language         string      `json:"language,omitempty"`
	LibraryName      string      `json:"library_name,omitempty"`
	ModuleName       string      `json:"module_name,omitempty"`
	ModuleParameters []Parameter `json:"module_parameters,omitempty"`
	Parameters       []Parameter `json:"parameters,omitempty"`
}

// DesignInstantiation points a hierarchical view at a design.
type DesignInstantiation struct {
	Name      string                    `json:"name"`
	DesignRef ConfigurableVLNVReference `json:"design_ref"`
}

// DesignConfigurationInstantiation points a hierarchical view at a design configuration.
type DesignConfigurationInstantiation struct {
	Name                   string                    `json:"name"`
	Language               string                    `json:"language,omitempty"`
	DesignConfigurationRef ConfigurableVLNVReference `json:"design_configuration_ref"`
	Parameters             []Parameter               `json:"parameters,omitempty"`
}

// Component is an IP-XACT component document.
type Component struct {
	VLNV                              VLNV                               `json:"vlnv"`
	Description                       string                             `json:"description,omitempty"`
	Author                            string                             `json:"author,omitempty"`
	BusInterfaces                     []*BusInterface                    `json:"bus_interfaces,omitempty"`
	Ports                             []Port                             `json:"ports,omitempty"`
	Parameters                        []Parameter                        `json:"parameters,omitempty"`
	Views                             []View                             `json:"views,omitempty"`
	ComponentInstantiations           []ComponentInstantiation           `json:"component_instantiations,omitempty"`
	DesignInstantiations              []DesignInstantiation              `json:"design_instantiations,omitempty"`
	DesignConfigurationInstantiations []DesignConfigurationInstantiation `json:"design_configuration_instantiations,omitempty"`
}

// Port returns the named port or nil.
func (c *Component) Port(name string) *Port {
	for i := range c.Ports {
		if c.Ports[i].Name == name {
			return &c.Ports[i]
		}
	}
	return nil
}

// BusInterface returns the named bus interface or nil.
func (c *Component) BusInterface(name string) *BusInterface {
	for _, bi := range c.BusInterfaces {
		if bi.Name == name {
			return bi
		}
	}
	return nil
}

// View returns the named view or nil.
func (c *Component) View(name string) *View {
	for i := range c.Views {
		if c.Views[i].Name == name {
			return &c.Views[i]
		}
	}
	return nil
}

// ComponentInstantiation returns the named instantiation or nil.
func (c *Component) ComponentInstantiation(name string) *ComponentInstantiation {
	for i := range c.ComponentInstantiations {
		if c.ComponentInstantiations[i].Name == name {
			return &c.ComponentInstantiations[i]
		}
	}
	return nil
}

// DesignInstantiation returns the named instantiation or nil.
func (c *Component) DesignInstantiation(name string) *DesignInstantiation {
	for i := range c.DesignInstantiations {
		if c.DesignInstantiations[i].Name == name {
			return &c.DesignInstantiations[i]
		}
	}
	return nil
}

// DesignConfigurationInstantiation returns the named instantiation or nil.
func (c *Component) DesignConfigurationInstantiation(name string) *DesignConfigurationInstantiation {
	for i := range c.DesignConfigurationInstantiations {
		if c.DesignConfigurationInstantiations[i].Name == name {
			return &c.DesignConfigurationInstantiations[i]
		}
	}
	return nil
}

// HierarchicalViews lists the views that refer to a design.
func (c *Component) HierarchicalViews() []*View {
	var views []*View
	for i := range c.Views {
		if c.Views[i].IsHierarchical() {
			views = append(views, &c.Views[i])
		}
	}
	return views
}

// InterfacesOfPort lists the bus interfaces mapping the physical port.
func (c *Component) InterfacesOfPort(port string) []*BusInterface {
	var out []*BusInterface
	for _, bi := range c.BusInterfaces {
		for i := range bi.AbstractionTypes {
			if bi.AbstractionTypes[i].MappedLogicalPortName(port) != "" {
				out = append(out, bi)
				break
			}
		}
	}
	return out
}
