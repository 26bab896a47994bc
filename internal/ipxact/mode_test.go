package ipxact

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkModeInvariant(t *testing.T, b *BusInterface, step string) {
	t.Helper()
	assert.LessOrEqual(t, b.Mode.payloadCount(), 1, "%s: more than one payload", step)
	if !b.InterfaceMode().IsSystemKind() {
		assert.Empty(t, b.Mode.SystemGroup(), "%s: system group outside system mode", step)
	}
}

func TestSetInterfaceModeCreatesPayload(t *testing.T) {
	tests := []struct {
		mode  InterfaceMode
		check func(Mode) bool
	}{
		{ModeMaster, func(m Mode) bool { return m.Master() != nil }},
		{ModeMirroredMaster, func(m Mode) bool { return m.Master() != nil }},
		{ModeSlave, func(m Mode) bool { return m.Slave() != nil }},
		{ModeMirroredSlave, func(m Mode) bool { return m.MirroredSlave() != nil }},
		{ModeMonitor, func(m Mode) bool { return m.Monitor() != nil }},
		{ModeSystem, func(m Mode) bool { return m.payloadCount() == 0 }},
		{ModeMirroredSystem, func(m Mode) bool { return m.payloadCount() == 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			b := NewBusInterface("bus")
			b.Parameters = []Parameter{{Name: "p", Value: "1"}}
			b.AbstractionTypes = []AbstractionType{{}}

			b.SetInterfaceMode(tt.mode)

			assert.Equal(t, tt.mode, b.InterfaceMode())
			assert.True(t, tt.check(b.Mode))
			assert.Len(t, b.Parameters, 1)
			assert.Len(t, b.AbstractionTypes, 1)
			checkModeInvariant(t, b, "set")
		})
	}
}

func TestSetMasterKeepsKind(t *testing.T) {
	b := NewBusInterface("bus")
	b.SetSlave(&SlaveInterface{MemoryMapRef: "mm"})

	b.SetMaster(&MasterInterface{AddressSpaceRef: "as"})

	assert.Equal(t, ModeSlave, b.InterfaceMode())
	assert.Nil(t, b.Mode.Slave())
	assert.Equal(t, "", b.AddressSpaceRef())
	assert.Equal(t, "", b.MemoryMapRef())

	b.SetInterfaceMode(ModeMaster)
	assert.Equal(t, "as", b.AddressSpaceRef())
}

func TestModeSettersForceKind(t *testing.T) {
	b := NewBusInterface("bus")

	b.SetMonitor(&MonitorInterface{InterfaceMode: ModeSlave, Group: "g"})
	assert.Equal(t, ModeMonitor, b.InterfaceMode())

	b.SetMirroredSlave(&MirroredSlaveInterface{Range: "4096"})
	assert.Equal(t, ModeMirroredSlave, b.InterfaceMode())
	assert.Nil(t, b.Mode.Monitor())

	b.SetSystem("sys")
	assert.Equal(t, ModeSystem, b.InterfaceMode())
	assert.Equal(t, "sys", b.Mode.SystemGroup())
	assert.Nil(t, b.Mode.MirroredSlave())

	b.SetInterfaceMode(ModeSlave)
	assert.Empty(t, b.Mode.SystemGroup())
	assert.NotNil(t, b.Mode.Slave())
}

func TestModeExclusivityUnderRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ops := []func(b *BusInterface){
		func(b *BusInterface) { b.SetInterfaceMode(AllModes[rng.Intn(len(AllModes))]) },
		func(b *BusInterface) { b.SetMaster(&MasterInterface{AddressSpaceRef: "as"}) },
		func(b *BusInterface) { b.SetSlave(&SlaveInterface{MemoryMapRef: "mm"}) },
		func(b *BusInterface) { b.SetMonitor(&MonitorInterface{InterfaceMode: ModeMaster}) },
		func(b *BusInterface) { b.SetMirroredSlave(&MirroredSlaveInterface{Range: "16"}) },
		func(b *BusInterface) { b.SetSystem("g1") },
		func(b *BusInterface) { b.SetMirroredSystem("g2") },
		func(b *BusInterface) { b.SetInterfaceMode(ModeUnset) },
	}

	for seq := 0; seq < 200; seq++ {
		b := NewBusInterface("bus")
		for step := 0; step < 20; step++ {
			ops[rng.Intn(len(ops))](b)
			checkModeInvariant(t, b, "random sequence")
		}
	}
}

func TestAddressAndMemoryRefsDependOnKind(t *testing.T) {
	b := NewBusInterface("bus")
	b.SetInterfaceMode(ModeMirroredMaster)
	b.Mode.Master().AddressSpaceRef = "as"
	assert.Equal(t, "as", b.AddressSpaceRef())
	assert.Equal(t, "", b.MemoryMapRef())

	b.SetSlave(&SlaveInterface{MemoryMapRef: "mm"})
	assert.Equal(t, "", b.AddressSpaceRef())
	assert.Equal(t, "mm", b.MemoryMapRef())
}

func TestPrimaryAbstractionType(t *testing.T) {
	b := NewBusInterface("bus")

	_, err := b.PrimaryAbstractionType()
	require.ErrorIs(t, err, ErrNoAbstractionType)
	_, err = b.PortMaps()
	require.ErrorIs(t, err, ErrNoAbstractionType)
	require.ErrorIs(t, b.SetPortMaps(nil), ErrNoAbstractionType)

	b.AbstractionTypes = []AbstractionType{{}, {}}
	maps := []PortMap{{LogicalPort: &LogicalPort{Name: "CLK"}, PhysicalPort: &PhysicalPort{Name: "clk"}}}
	require.NoError(t, b.SetPortMaps(maps))

	got, err := b.PortMaps()
	require.NoError(t, err)
	assert.Equal(t, maps, got)
	assert.Empty(t, b.AbstractionTypes[1].PortMaps)
}

func TestMCAPIPortID(t *testing.T) {
	b := NewBusInterface("bus")
	assert.Equal(t, -1, b.MCAPIPortID())
	_, ok := b.MCAPIPortIDAsParameter()
	assert.False(t, ok)

	b.SetMCAPIPortID(7)
	assert.Equal(t, 7, b.MCAPIPortID())
	p, ok := b.MCAPIPortIDAsParameter()
	require.True(t, ok)
	assert.Equal(t, Parameter{Name: "kts_port_id", Value: "7"}, p)

	b.ClearMCAPIPortID()
	assert.False(t, b.HasMCAPIPortID())
}

func TestBusInterfaceCloneIsDeep(t *testing.T) {
	b := NewBusInterface("bus")
	b.Attributes = map[string]string{"a": "1"}
	b.AbstractionTypes = []AbstractionType{{
		AbstractionRef: &ConfigurableVLNVReference{VLNV: NewVLNV(TypeAbstractionDefinition, "v", "l", "n", "1")},
		PortMaps: []PortMap{{
			LogicalPort:  &LogicalPort{Name: "DATA", Range: &Range{Left: "7", Right: "0"}},
			PhysicalPort: &PhysicalPort{Name: "data", PartSelect: &PartSelect{Indices: []string{"1"}}},
		}},
	}}
	b.SetSlave(&SlaveInterface{Bridges: []TransparentBridge{{MasterRef: "m"}}})
	b.SetMCAPIPortID(3)

	c := b.Clone()
	c.Attributes["a"] = "2"
	c.AbstractionTypes[0].PortMaps[0].LogicalPort.Range.Left = "15"
	c.AbstractionTypes[0].PortMaps[0].PhysicalPort.PartSelect.Indices[0] = "9"
	c.AbstractionTypes[0].AbstractionRef.Name = "other"
	c.Mode.Slave().Bridges[0].MasterRef = "x"
	c.SetMCAPIPortID(4)

	assert.Equal(t, "1", b.Attributes["a"])
	assert.Equal(t, "7", b.AbstractionTypes[0].PortMaps[0].LogicalPort.Range.Left)
	assert.Equal(t, "1", b.AbstractionTypes[0].PortMaps[0].PhysicalPort.PartSelect.Indices[0])
	assert.Equal(t, "n", b.AbstractionTypes[0].AbstractionRef.Name)
	assert.Equal(t, "m", b.Mode.Slave().Bridges[0].MasterRef)
	assert.Equal(t, 3, b.MCAPIPortID())
}
