// Package meta resolves IP-XACT components and designs into an
// expression-free model of instances, ports, interfaces and wires.
package meta

import (
	"log/slog"
	"sort"
	"strconv"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

// DefaultMaxDepth bounds design recursion when no WithMaxDepth is given.
const DefaultMaxDepth = 32

// Library is the document lookup a resolution pass reads from. Misses
// return errors wrapping ipxact.ErrDanglingReference.
type Library interface {
	Component(v ipxact.VLNV) (*ipxact.Component, error)
	Design(v ipxact.VLNV) (*ipxact.Design, error)
	DesignConfiguration(v ipxact.VLNV) (*ipxact.DesignConfiguration, error)
	AbstractionDefinition(v ipxact.VLNV) (*ipxact.AbstractionDefinition, error)
}

// Bounds is an evaluated left/right pair.
type Bounds struct {
	Left  string
	Right string
}

// IsEmpty reports whether either end is missing.
func (b Bounds) IsEmpty() bool {
	return b.Left == "" || b.Right == ""
}

func (b Bounds) String() string { return "[" + b.Left + ":" + b.Right + "]" }

func (b Bounds) ints() (int, int, bool) {
	l, errL := strconv.Atoi(b.Left)
	r, errR := strconv.Atoi(b.Right)
	return l, r, errL == nil && errR == nil
}

// Width is |left-right|+1 when both ends are integers, else 0.
func (b Bounds) Width() int {
	l, errL := strconv.Atoi(b.Left)
	r, errR := strconv.Atoi(b.Right)
	if errL != nil || errR != nil {
		return 0
	}
	if l < r {
		l, r = r, l
	}
	return l - r + 1
}

func singleBit() Bounds { return Bounds{Left: "0", Right: "0"} }

// Port is a component port with its evaluated bounds and the assignments
// that connect it. UpAssignments connect an instance port to wires of the
// enclosing design; DownAssignments connect a top component port to wires
// inside its own design.
type Port struct {
	Name            string
	Description     string
	Direction       ipxact.Direction
	VectorBounds    Bounds
	DefaultValue    string
	Expression      Bounds // bounds with parameter ids replaced by names
	UpAssignments   Assignments
	DownAssignments Assignments
	Source          *ipxact.Port
}

// Assignments holds the assignments of one direction by logical port (or
// ad-hoc connection) name. A port mapped to the same logical port once per
// slice has one assignment per mapping, in mapping order.
type Assignments map[string][]*PortAssignment

func (as Assignments) add(a *PortAssignment) {
	as[a.LogicalPort] = append(as[a.LogicalPort], a)
}

// First returns the first assignment to logical, or nil.
func (as Assignments) First(logical string) *PortAssignment {
	if list := as[logical]; len(list) > 0 {
		return list[0]
	}
	return nil
}

// Keys returns the logical names in sorted order.
func (as Assignments) Keys() []string {
	keys := make([]string, 0, len(as))
	for k := range as {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// filter keeps the assignments keep accepts and drops emptied names.
func (as Assignments) filter(keep func(*PortAssignment) bool) {
	for k, list := range as {
		kept := list[:0]
		for _, a := range list {
			if keep(a) {
				kept = append(kept, a)
			}
		}
		if len(kept) == 0 {
			delete(as, k)
			continue
		}
		as[k] = kept
	}
}

func newPort(p *ipxact.Port) *Port {
	return &Port{
		Name:            p.Name,
		Description:     p.Description,
		Direction:       p.Direction,
		Source:          p,
		UpAssignments:   make(Assignments),
		DownAssignments: make(Assignments),
	}
}

// PortAssignment binds (a slice of) a port to a wire or a default value.
type PortAssignment struct {
	Wire           *Wire
	LogicalPort    string
	LogicalBounds  Bounds
	PhysicalBounds Bounds
	DefaultValue   string
	Invert         bool

	iface *Interface // bus interface the port map belongs to, nil for ad-hoc
}

// Wire is one net of an interconnection or an ad-hoc connection.
type Wire struct {
	Name      string
	Bounds    Bounds
	HierPorts []*Port
	refCount  int
}

// RefCount is the number of port assignments attached to the wire.
func (w *Wire) RefCount() int { return w.refCount }

// widen grows the wire to cover cand: the highest of the upper bounds and
// the lowest of the lower bounds. When either side is not numeric the wire
// keeps its bounds and widen reports false.
func (w *Wire) widen(cand Bounds) bool {
	if w.Bounds.IsEmpty() {
		w.Bounds = cand
		return true
	}
	if cand.IsEmpty() {
		return true
	}
	nl, nr, okN := cand.ints()
	ol, or, okO := w.Bounds.ints()
	if !okN || !okO {
		return false
	}
	w.Bounds = Bounds{
		Left:  strconv.Itoa(max(max(nl, nr), max(ol, or))),
		Right: strconv.Itoa(min(min(nl, nr), min(ol, or))),
	}
	return true
}

func (w *Wire) addHierPort(p *Port) {
	for _, h := range w.HierPorts {
		if h == p {
			return
		}
	}
	w.HierPorts = append(w.HierPorts, p)
}

// Interconnection is a resolved bus connection: one wire per logical port.
type Interconnection struct {
	Name           string
	Wires          map[string]*Wire // by logical port name
	WireOrder      []string
	HierInterfaces []*Interface
}

func (ic *Interconnection) wire(logical string) *Wire {
	if w, ok := ic.Wires[logical]; ok {
		return w
	}
	w := &Wire{Name: ic.Name + "_" + logical}
	ic.Wires[logical] = w
	ic.WireOrder = append(ic.WireOrder, logical)
	return w
}

// OrderedWires returns the wires in creation order.
func (ic *Interconnection) OrderedWires() []*Wire {
	out := make([]*Wire, 0, len(ic.WireOrder))
	for _, name := range ic.WireOrder {
		out = append(out, ic.Wires[name])
	}
	return out
}

// Interface groups the ports one bus interface maps.
type Interface struct {
	Name                  string
	Mode                  ipxact.InterfaceMode
	BusInterface          *ipxact.BusInterface
	AbstractionDefinition *ipxact.AbstractionDefinition
	Ports                 map[string]*Port // by physical port name
	PortOrder             []string

	UpInterconnection   *Interconnection
	DownInterconnection *Interconnection
}

func (i *Interface) addPort(p *Port) {
	if _, ok := i.Ports[p.Name]; ok {
		return
	}
	i.Ports[p.Name] = p
	i.PortOrder = append(i.PortOrder, p.Name)
}

// OrderedPorts returns the interface ports in port map order.
func (i *Interface) OrderedPorts() []*Port {
	out := make([]*Port, 0, len(i.PortOrder))
	for _, name := range i.PortOrder {
		out = append(out, i.Ports[name])
	}
	return out
}

// Component is a component resolved with its own parameters only.
type Component struct {
	VLNV             ipxact.VLNV
	ModuleName       string
	Source           *ipxact.Component
	ActiveView       *ipxact.View
	Instantiation    *ipxact.ComponentInstantiation
	Parameters       []ipxact.Parameter
	ModuleParameters []ipxact.Parameter
	// Expressions maps parameter and module parameter names to their
	// source text with ids rewritten to names.
	Expressions    map[string]string
	Ports          map[string]*Port
	PortOrder      []string
	Interfaces     map[string]*Interface
	InterfaceOrder []string
}

// OrderedPorts returns the ports in component order.
func (c *Component) OrderedPorts() []*Port {
	out := make([]*Port, 0, len(c.PortOrder))
	for _, name := range c.PortOrder {
		out = append(out, c.Ports[name])
	}
	return out
}

// OrderedInterfaces returns the interfaces in component order.
func (c *Component) OrderedInterfaces() []*Interface {
	out := make([]*Interface, 0, len(c.InterfaceOrder))
	for _, name := range c.InterfaceOrder {
		out = append(out, c.Interfaces[name])
	}
	return out
}

// Instance is a component instantiated in a design, resolved against the
// design's parameters.
type Instance struct {
	*Component
	InstanceName string
	Source       *ipxact.ComponentInstance // nil for a top component

	// every parameter before culling; port and tie-off expressions resolve
	// against these
	allParameters []ipxact.Parameter
	raw           map[string]string // value id -> text before evaluation
	overridden    map[string]bool
	downBuilt     bool
}

// Design is one resolved hierarchy level.
type Design struct {
	VLNV             ipxact.VLNV
	Source           *ipxact.Design
	Configuration    *ipxact.DesignConfiguration
	TopInstance      *Instance
	Instances        map[string]*Instance
	Order            []string
	Interconnections []*Interconnection
	AdHocWires       []*Wire
	Parameters       []ipxact.Parameter
	Depth            int

	instantiation *ipxact.DesignInstantiation
	ancestors     []ipxact.VLNV
	subDesigns    []*Design
	log           *slog.Logger
}

// OrderedInstances returns the instances in design order.
func (d *Design) OrderedInstances() []*Instance {
	out := make([]*Instance, 0, len(d.Order))
	for _, name := range d.Order {
		out = append(out, d.Instances[name])
	}
	return out
}

func (d *Design) isAdHocWire(w *Wire) bool {
	if w == nil {
		return false
	}
	for _, a := range d.AdHocWires {
		if a == w {
			return true
		}
	}
	return false
}
