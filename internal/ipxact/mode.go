package ipxact

import "strings"

// InterfaceMode is the role a bus interface plays on its bus.
type InterfaceMode int

const (
	ModeUnset InterfaceMode = iota
	ModeMaster
	ModeSlave
	ModeSystem
	ModeMirroredMaster
	ModeMirroredSlave
	ModeMirroredSystem
	ModeMonitor
)

var modeNames = map[InterfaceMode]string{
	ModeMaster:         "master",
	ModeSlave:          "slave",
	ModeSystem:         "system",
	ModeMirroredMaster: "mirroredMaster",
	ModeMirroredSlave:  "mirroredSlave",
	ModeMirroredSystem: "mirroredSystem",
	ModeMonitor:        "monitor",
}

// AllModes lists every concrete interface mode in schema order.
var AllModes = []InterfaceMode{
	ModeMaster, ModeSlave, ModeSystem, ModeMirroredMaster,
	ModeMirroredSlave, ModeMirroredSystem, ModeMonitor,
}

func (m InterfaceMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "undefined"
}

// ParseInterfaceMode maps a schema element or attribute name to a mode.
func ParseInterfaceMode(s string) InterfaceMode {
	s = strings.TrimSpace(s)
	for m, name := range modeNames {
		if strings.EqualFold(name, s) {
			return m
		}
	}
	return ModeUnset
}

// IsSystemKind reports whether the mode carries a system group name.
func (m InterfaceMode) IsSystemKind() bool {
	return m == ModeSystem || m == ModeMirroredSystem
}

// MasterInterface is the payload of master and mirroredMaster interfaces.
type MasterInterface struct {
	AddressSpaceRef string            `json:"address_space_ref,omitempty"`
	IsPresent       string            `json:"is_present,omitempty"`
	BaseAddress     string            `json:"base_address,omitempty"`
	BaseAttributes  map[string]string `json:"base_attributes,omitempty"`
}

// TransparentBridge connects a slave interface through to a master interface.
type TransparentBridge struct {
	MasterRef string `json:"master_ref"`
	IsPresent string `json:"is_present,omitempty"`
}

// FileSetRefGroup associates file sets with a named group.
type FileSetRefGroup struct {
	Group       string   `json:"group,omitempty"`
	FileSetRefs []string `json:"file_set_refs,omitempty"`
}

// SlaveInterface is the payload of slave interfaces.
type SlaveInterface struct {
	MemoryMapRef     string              `json:"memory_map_ref,omitempty"`
	Bridges          []TransparentBridge `json:"bridges,omitempty"`
	FileSetRefGroups []FileSetRefGroup   `json:"file_set_ref_groups,omitempty"`
}

// RemapAddress is a base address valid under one remap state.
type RemapAddress struct {
	Address    string            `json:"address"`
	State      string            `json:"state,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// MirroredSlaveInterface is the payload of mirroredSlave interfaces.
type MirroredSlaveInterface struct {
	Range          string         `json:"range,omitempty"`
	RemapAddresses []RemapAddress `json:"remap_addresses,omitempty"`
}

// MonitorInterface is the payload of monitor interfaces.
type MonitorInterface struct {
	InterfaceMode InterfaceMode `json:"interface_mode"`
	Group         string        `json:"group,omitempty"`
}

// Mode holds the interface mode and the single payload belonging to it.
// The zero value is an unset mode with no payload.
type Mode struct {
	kind          InterfaceMode
	master        *MasterInterface
	slave         *SlaveInterface
	monitor       *MonitorInterface
	mirroredSlave *MirroredSlaveInterface
	systemGroup   string
}

// Kind returns the interface mode.
func (m Mode) Kind() InterfaceMode { return m.kind }

// Master returns the master payload, if any.
func (m Mode) Master() *MasterInterface { return m.master }

// Slave returns the slave payload, if any.
func (m Mode) Slave() *SlaveInterface { return m.slave }

// Monitor returns the monitor payload, if any.
func (m Mode) Monitor() *MonitorInterface { return m.monitor }

// MirroredSlave returns the mirrored slave payload, if any.
func (m Mode) MirroredSlave() *MirroredSlaveInterface { return m.mirroredSlave }

// SystemGroup returns the group of a system or mirroredSystem interface.
func (m Mode) SystemGroup() string { return m.systemGroup }

// payloadCount is the number of installed payloads; at most one by construction.
func (m Mode) payloadCount() int {
	n := 0
	if m.master != nil {
		n++
	}
	if m.slave != nil {
		n++
	}
	if m.monitor != nil {
		n++
	}
	if m.mirroredSlave != nil {
		n++
	}
	return n
}

func (m *Mode) clearPayloads() {
	m.master = nil
	m.slave = nil
	m.monitor = nil
	m.mirroredSlave = nil
	m.systemGroup = ""
}

func (m Mode) clone() Mode {
	c := m
	if m.master != nil {
		v := *m.master
		v.BaseAttributes = cloneMap(m.master.BaseAttributes)
		c.master = &v
	}
	if m.slave != nil {
		v := *m.slave
		v.Bridges = append([]TransparentBridge(nil), m.slave.Bridges...)
		v.FileSetRefGroups = make([]FileSetRefGroup, 0, len(m.slave.FileSetRefGroups))
		for _, g := range m.slave.FileSetRefGroups {
			g.FileSetRefs = append([]string(nil), g.FileSetRefs...)
			v.FileSetRefGroups = append(v.FileSetRefGroups, g)
		}
		c.slave = &v
	}
	if m.monitor != nil {
		v := *m.monitor
		c.monitor = &v
	}
	if m.mirroredSlave != nil {
		v := *m.mirroredSlave
		v.RemapAddresses = make([]RemapAddress, 0, len(m.mirroredSlave.RemapAddresses))
		for _, r := range m.mirroredSlave.RemapAddresses {
			r.Attributes = cloneMap(r.Attributes)
			v.RemapAddresses = append(v.RemapAddresses, r)
		}
		c.mirroredSlave = &v
	}
	return c
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
