package ipxact

// WireModeConstraint is the per-mode part of a wire port declaration.
type WireModeConstraint struct {
	Presence  string    `json:"presence,omitempty"`
	Width     string    `json:"width,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// WireAbstraction describes a logical wire port of a bus.
type WireAbstraction struct {
	DefaultValue string                                `json:"default_value,omitempty"`
	Modes        map[InterfaceMode]*WireModeConstraint `json:"-"`
}

// WidthFor returns the declared width for mode. Mirrored modes fall back to
// their plain counterpart.
func (w *WireAbstraction) WidthFor(mode InterfaceMode) string {
	if w == nil {
		return ""
	}
	if c, ok := w.Modes[mode]; ok && c != nil {
		return c.Width
	}
	var base InterfaceMode
	switch mode {
	case ModeMirroredMaster:
		base = ModeMaster
	case ModeMirroredSlave:
		base = ModeSlave
	case ModeMirroredSystem:
		base = ModeSystem
	default:
		return ""
	}
	if c, ok := w.Modes[base]; ok && c != nil {
		return c.Width
	}
	return ""
}

// PortAbstraction is one logical port of an abstraction definition.
type PortAbstraction struct {
	LogicalName string           `json:"logical_name"`
	Description string           `json:"description,omitempty"`
	Wire        *WireAbstraction `json:"wire,omitempty"`
}

// AbstractionDefinition declares the logical ports of a bus abstraction.
type AbstractionDefinition struct {
	VLNV       VLNV              `json:"vlnv"`
	BusType    VLNV              `json:"bus_type"`
	Ports      []PortAbstraction `json:"ports,omitempty"`
	Parameters []Parameter       `json:"parameters,omitempty"`
}

// Port returns the logical port with the given name.
func (a *AbstractionDefinition) Port(logicalName string) *PortAbstraction {
	if a == nil {
		return nil
	}
	for i := range a.Ports {
		if a.Ports[i].LogicalName == logicalName {
			return &a.Ports[i]
		}
	}
	return nil
}

// BusDefinition is the abstract bus a bus interface's busType names.
type BusDefinition struct {
	VLNV             VLNV         `json:"vlnv"`
	Description      string       `json:"description,omitempty"`
	DirectConnection BooleanValue `json:"direct_connection,omitempty"`
	IsAddressable    BooleanValue `json:"is_addressable,omitempty"`
	MaxMasters       string       `json:"max_masters,omitempty"`
	MaxSlaves        string       `json:"max_slaves,omitempty"`
}
