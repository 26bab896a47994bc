package ipxact

// LogicalPort is the bus side of a port map.
type LogicalPort struct {
	Name  string `json:"name"`
	Range *Range `json:"range,omitempty"`
}

// PhysicalPort is the component side of a port map.
type PhysicalPort struct {
	Name       string      `json:"name"`
	PartSelect *PartSelect `json:"part_select,omitempty"`
}

// PortMap binds one logical port to one physical port. A nil PhysicalPort
// marks a logical-only map, normally carrying a tie-off.
type PortMap struct {
	Invert        BooleanValue  `json:"invert,omitempty"`
	IsPresent     string        `json:"is_present,omitempty"`
	LogicalPort   *LogicalPort  `json:"logical_port,omitempty"`
	PhysicalPort  *PhysicalPort `json:"physical_port,omitempty"`
	LogicalTieOff string        `json:"logical_tie_off,omitempty"`
	IsInformative BooleanValue  `json:"is_informative,omitempty"`
}

// Clone returns a deep copy.
func (p PortMap) Clone() PortMap {
	if p.LogicalPort != nil {
		lp := *p.LogicalPort
		if lp.Range != nil {
			r := *lp.Range
			lp.Range = &r
		}
		p.LogicalPort = &lp
	}
	if p.PhysicalPort != nil {
		pp := *p.PhysicalPort
		pp.PartSelect = pp.PartSelect.Clone()
		p.PhysicalPort = &pp
	}
	return p
}

func (p PortMap) logicalName() string {
	if p.LogicalPort == nil {
		return ""
	}
	return p.LogicalPort.Name
}

func (p PortMap) physicalName() string {
	if p.PhysicalPort == nil {
		return ""
	}
	return p.PhysicalPort.Name
}

// AbstractionType ties a bus interface to an abstraction definition and maps
// its ports.
type AbstractionType struct {
	ViewRefs       []string                   `json:"view_refs,omitempty"`
	AbstractionRef *ConfigurableVLNVReference `json:"abstraction_ref"`
	PortMaps       []PortMap                  `json:"port_maps,omitempty"`
}

// Clone returns a deep copy.
func (a AbstractionType) Clone() AbstractionType {
	c := AbstractionType{
		ViewRefs:       append([]string(nil), a.ViewRefs...),
		AbstractionRef: a.AbstractionRef.Clone(),
	}
	if a.PortMaps != nil {
		c.PortMaps = make([]PortMap, 0, len(a.PortMaps))
		for _, pm := range a.PortMaps {
			c.PortMaps = append(c.PortMaps, pm.Clone())
		}
	}
	return c
}

// PhysicalPortNames lists the distinct physical ports in map order.
func (a *AbstractionType) PhysicalPortNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, pm := range a.PortMaps {
		n := pm.physicalName()
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return names
}

// LogicalPortNames lists the distinct logical ports in map order.
func (a *AbstractionType) LogicalPortNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, pm := range a.PortMaps {
		n := pm.logicalName()
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	return names
}

// HasLogicalPort reports whether any port map uses the logical port.
func (a *AbstractionType) HasLogicalPort(name string) bool {
	for _, pm := range a.PortMaps {
		if pm.logicalName() == name {
			return true
		}
	}
	return false
}

// MappedLogicalPortName returns the logical port mapped to physical, or "".
func (a *AbstractionType) MappedLogicalPortName(physical string) string {
	for _, pm := range a.PortMaps {
		if pm.physicalName() == physical {
			return pm.logicalName()
		}
	}
	return ""
}
