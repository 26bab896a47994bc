package ipxact

import (
	"encoding/json"
	"strconv"
)

// MCAPIPortIDParameter is the reserved parameter name carrying the MCAPI port id.
const MCAPIPortIDParameter = "kts_port_id"

// Endianness of a bus interface.
type Endianness string

const (
	EndiannessUnspecified Endianness = ""
	EndiannessLittle      Endianness = "little"
	EndiannessBig         Endianness = "big"
)

// Parameter is a named value expression, referenced from other expressions by ValueID.
type Parameter struct {
	Name        string `json:"name"`
	ValueID     string `json:"value_id,omitempty"`
	Value       string `json:"value"`
	Resolve     string `json:"resolve,omitempty"`
	Type        string `json:"type,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
}

// BusInterface describes how a component's ports attach to one bus.
type BusInterface struct {
	Name               string                     `json:"name"`
	DisplayName        string                     `json:"display_name,omitempty"`
	Description        string                     `json:"description,omitempty"`
	IsPresent          string                     `json:"is_present,omitempty"`
	Attributes         map[string]string          `json:"attributes,omitempty"`
	BusType            ConfigurableVLNVReference  `json:"bus_type"`
	AbstractionTypes   []AbstractionType          `json:"abstraction_types,omitempty"`
	Mode               Mode                       `json:"mode"`
	ConnectionRequired BooleanValue               `json:"connection_required,omitempty"`
	BitsInLau          string                     `json:"bits_in_lau,omitempty"`
	BitSteering        string                     `json:"bit_steering,omitempty"`
	BitSteeringAttrs   map[string]string          `json:"bit_steering_attributes,omitempty"`
	Endianness         Endianness                 `json:"endianness,omitempty"`
	Parameters         []Parameter                `json:"parameters,omitempty"`
	DefaultPos         *Position                  `json:"default_pos,omitempty"`
	VendorExtensions   []string                   `json:"vendor_extensions,omitempty"`
	mcapiPortID        *int
}

// NewBusInterface returns an empty interface with the given name.
func NewBusInterface(name string) *BusInterface {
	return &BusInterface{Name: name}
}

// InterfaceMode returns the current mode kind.
func (b *BusInterface) InterfaceMode() InterfaceMode {
	return b.Mode.kind
}

// SetInterfaceMode drops every mode payload and creates the one for mode.
// Parameters and abstraction types are untouched.
func (b *BusInterface) SetInterfaceMode(mode InterfaceMode) {
	prev := b.Mode
	b.Mode.clearPayloads()
	b.Mode.kind = mode

	switch mode {
	case ModeMaster, ModeMirroredMaster:
		if prev.master != nil {
			b.Mode.master = prev.master
		} else {
			b.Mode.master = &MasterInterface{}
		}
	case ModeSlave:
		if prev.slave != nil {
			b.Mode.slave = prev.slave
		} else {
			b.Mode.slave = &SlaveInterface{}
		}
	case ModeMirroredSlave:
		if prev.mirroredSlave != nil {
			b.Mode.mirroredSlave = prev.mirroredSlave
		} else {
			b.Mode.mirroredSlave = &MirroredSlaveInterface{}
		}
	case ModeMonitor:
		if prev.monitor != nil {
			b.Mode.monitor = prev.monitor
		} else {
			b.Mode.monitor = &MonitorInterface{}
		}
	case ModeSystem, ModeMirroredSystem:
		if prev.kind.IsSystemKind() {
			b.Mode.systemGroup = prev.systemGroup
		}
	}
}

// SetMaster installs a master payload. The mode kind is left as it was, so
// callers normally follow up with SetInterfaceMode(ModeMaster).
func (b *BusInterface) SetMaster(m *MasterInterface) {
	kind := b.Mode.kind
	b.Mode.clearPayloads()
	b.Mode.master = m
	if kind.IsSystemKind() {
		// a system kind without its group would be inconsistent
		b.Mode.kind = ModeUnset
	}
}

// SetSlave installs a slave payload and switches the mode to slave.
func (b *BusInterface) SetSlave(s *SlaveInterface) {
	b.Mode.clearPayloads()
	b.Mode.slave = s
	b.Mode.kind = ModeSlave
}

// SetMonitor installs a monitor payload and switches the mode to monitor.
func (b *BusInterface) SetMonitor(m *MonitorInterface) {
	b.Mode.clearPayloads()
	b.Mode.monitor = m
	b.Mode.kind = ModeMonitor
}

// SetMirroredSlave installs a mirrored slave payload and switches the mode to mirroredSlave.
func (b *BusInterface) SetMirroredSlave(m *MirroredSlaveInterface) {
	b.Mode.clearPayloads()
	b.Mode.mirroredSlave = m
	b.Mode.kind = ModeMirroredSlave
}

// SetSystem switches the mode to system with the given group.
func (b *BusInterface) SetSystem(group string) {
	b.Mode.clearPayloads()
	b.Mode.kind = ModeSystem
	b.Mode.systemGroup = group
}

// SetMirroredSystem switches the mode to mirroredSystem with the given group.
func (b *BusInterface) SetMirroredSystem(group string) {
	b.Mode.clearPayloads()
	b.Mode.kind = ModeMirroredSystem
	b.Mode.systemGroup = group
}

// AddressSpaceRef is the master's address space; empty unless the mode is
// master or mirroredMaster.
func (b *BusInterface) AddressSpaceRef() string {
	if (b.Mode.kind == ModeMaster || b.Mode.kind == ModeMirroredMaster) && b.Mode.master != nil {
		return b.Mode.master.AddressSpaceRef
	}
	return ""
}

// MemoryMapRef is the slave's memory map; empty unless the mode is slave.
func (b *BusInterface) MemoryMapRef() string {
	if b.Mode.kind == ModeSlave && b.Mode.slave != nil {
		return b.Mode.slave.MemoryMapRef
	}
	return ""
}

// PrimaryAbstractionType returns the first abstraction type.
func (b *BusInterface) PrimaryAbstractionType() (*AbstractionType, error) {
	if len(b.AbstractionTypes) == 0 {
		return nil, ErrNoAbstractionType
	}
	return &b.AbstractionTypes[0], nil
}

// PortMaps returns the port maps of the primary abstraction type.
func (b *BusInterface) PortMaps() ([]PortMap, error) {
	at, err := b.PrimaryAbstractionType()
	if err != nil {
		return nil, err
	}
	return at.PortMaps, nil
}

// SetPortMaps replaces the port maps of the primary abstraction type.
func (b *BusInterface) SetPortMaps(maps []PortMap) error {
	at, err := b.PrimaryAbstractionType()
	if err != nil {
		return err
	}
	at.PortMaps = maps
	return nil
}

// MCAPIPortID returns the MCAPI port id, or -1 when none is set.
func (b *BusInterface) MCAPIPortID() int {
	if b.mcapiPortID == nil {
		return -1
	}
	return *b.mcapiPortID
}

// HasMCAPIPortID reports whether a port id is set.
func (b *BusInterface) HasMCAPIPortID() bool {
	return b.mcapiPortID != nil
}

// SetMCAPIPortID sets the MCAPI port id.
func (b *BusInterface) SetMCAPIPortID(id int) {
	b.mcapiPortID = &id
}

// ClearMCAPIPortID removes the MCAPI port id.
func (b *BusInterface) ClearMCAPIPortID() {
	b.mcapiPortID = nil
}

// MCAPIPortIDAsParameter renders the port id in its parameter form.
func (b *BusInterface) MCAPIPortIDAsParameter() (Parameter, bool) {
	if b.mcapiPortID == nil {
		return Parameter{}, false
	}
	return Parameter{Name: MCAPIPortIDParameter, Value: strconv.Itoa(*b.mcapiPortID)}, true
}

// Clone returns a deep copy.
func (b *BusInterface) Clone() *BusInterface {
	c := *b
	c.Attributes = cloneMap(b.Attributes)
	c.BitSteeringAttrs = cloneMap(b.BitSteeringAttrs)
	c.BusType = *b.BusType.Clone()
	c.AbstractionTypes = make([]AbstractionType, 0, len(b.AbstractionTypes))
	for _, at := range b.AbstractionTypes {
		c.AbstractionTypes = append(c.AbstractionTypes, at.Clone())
	}
	c.Mode = b.Mode.clone()
	c.Parameters = append([]Parameter(nil), b.Parameters...)
	c.VendorExtensions = append([]string(nil), b.VendorExtensions...)
	if b.DefaultPos != nil {
		p := *b.DefaultPos
		c.DefaultPos = &p
	}
	if b.mcapiPortID != nil {
		id := *b.mcapiPortID
		c.mcapiPortID = &id
	}
	return &c
}

type modeJSON struct {
	Kind          string                  `json:"kind"`
	Master        *MasterInterface        `json:"master,omitempty"`
	Slave         *SlaveInterface         `json:"slave,omitempty"`
	Monitor       *MonitorInterface       `json:"monitor,omitempty"`
	MirroredSlave *MirroredSlaveInterface `json:"mirrored_slave,omitempty"`
	SystemGroup   string                  `json:"system_group,omitempty"`
}

// MarshalJSON exposes the mode kind and its payload.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(modeJSON{
		Kind:          m.kind.String(),
		Master:        m.master,
		Slave:         m.slave,
		Monitor:       m.monitor,
		MirroredSlave: m.mirroredSlave,
		SystemGroup:   m.systemGroup,
	})
}

// MarshalJSON renders the mode by name.
func (m InterfaceMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// MarshalJSON renders the tri-state as "true", "false" or "".
func (b BooleanValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}
