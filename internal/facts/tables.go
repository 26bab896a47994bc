package facts

import (
	"sort"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/meta"
)

// Tables is the relational fact model of a resolved hierarchy.
// Each slice is a relation (table) with flat rows.
type Tables struct {
	Documents        []DocumentRow        `json:"documents"`
	Designs          []DesignRow          `json:"designs"`
	Instances        []InstanceRow        `json:"instances"`
	Parameters       []ParameterRow       `json:"parameters"`
	Ports            []PortRow            `json:"ports"`
	Interfaces       []InterfaceRow       `json:"interfaces"`
	Assignments      []AssignmentRow      `json:"assignments"`
	Wires            []WireRow            `json:"wires"`
	Interconnections []InterconnectionRow `json:"interconnections"`
}

type DocumentRow struct {
	VLNV         string `json:"vlnv"`
	Type         string `json:"type"`
	File         string `json:"file"`
	Library      string `json:"library"`
	IsThirdParty bool   `json:"is_third_party"`
}

// DesignRow is one hierarchy level. Design is the level's module name,
// which is unique across a resolution.
type DesignRow struct {
	Design    string `json:"design"`
	VLNV      string `json:"vlnv"`
	Component string `json:"component"`
	Depth     int    `json:"depth"`
}

type InstanceRow struct {
	Design     string `json:"design"`
	Name       string `json:"name"`
	Component  string `json:"component"`
	ModuleName string `json:"module_name"`
	View       string `json:"view"`
}

// ParameterRow scopes: "design", "instance", "module".
type ParameterRow struct {
	Design     string `json:"design"`
	Instance   string `json:"instance"`
	Scope      string `json:"scope"`
	Name       string `json:"name"`
	ValueID    string `json:"value_id"`
	Value      string `json:"value"`
	Expression string `json:"expression"`
}

type PortRow struct {
	Design       string `json:"design"`
	Instance     string `json:"instance"`
	Name         string `json:"name"`
	Direction    string `json:"direction"`
	Left         string `json:"left"`
	Right        string `json:"right"`
	Width        int    `json:"width"`
	DefaultValue string `json:"default_value"`
	IsTop        bool   `json:"is_top"`
}

type InterfaceRow struct {
	Design          string `json:"design"`
	Instance        string `json:"instance"`
	Name            string `json:"name"`
	Mode            string `json:"mode"`
	Interconnection string `json:"interconnection"`
}

// AssignmentRow directions: "up" binds an instance port inside Design,
// "down" binds the level's own top port to a wire below it.
type AssignmentRow struct {
	Design        string `json:"design"`
	Instance      string `json:"instance"`
	Port          string `json:"port"`
	Key           string `json:"key"`
	Direction     string `json:"direction"`
	Wire          string `json:"wire"`
	LogicalLeft   string `json:"logical_left"`
	LogicalRight  string `json:"logical_right"`
	PhysicalLeft  string `json:"physical_left"`
	PhysicalRight string `json:"physical_right"`
	PhysicalWidth int    `json:"physical_width"`
	DefaultValue  string `json:"default_value"`
	Invert        bool   `json:"invert"`
}

// WireRow kinds: "interconnection", "adhoc".
type WireRow struct {
	Design          string `json:"design"`
	Name            string `json:"name"`
	Kind            string `json:"kind"`
	Interconnection string `json:"interconnection"`
	Left            string `json:"left"`
	Right           string `json:"right"`
	Width           int    `json:"width"`
	RefCount        int    `json:"ref_count"`
	HierPorts       int    `json:"hier_ports"`
}

type InterconnectionRow struct {
	Design         string `json:"design"`
	Name           string `json:"name"`
	Wires          int    `json:"wires"`
	HierInterfaces int    `json:"hier_interfaces"`
}

// DocumentSource is the part of a document library the documents table
// is built from.
type DocumentSource interface {
	VLNVs() []ipxact.VLNV
	Document(v ipxact.VLNV) (ipxact.Document, error)
	Path(v ipxact.VLNV) string
}

// DocumentRows lists the library documents behind a resolution. libraryOf
// maps a file to its configured library name and third-party flag.
func DocumentRows(src DocumentSource, libraryOf func(file string) (string, bool)) []DocumentRow {
	vlnvs := src.VLNVs()
	rows := make([]DocumentRow, 0, len(vlnvs))
	for _, v := range vlnvs {
		d, err := src.Document(v)
		if err != nil {
			continue
		}
		row := DocumentRow{VLNV: v.String(), Type: documentType(d), File: src.Path(v)}
		if libraryOf != nil && row.File != "" {
			row.Library, row.IsThirdParty = libraryOf(row.File)
		}
		rows = append(rows, row)
	}
	return rows
}

func documentType(d ipxact.Document) string {
	switch d.(type) {
	case *ipxact.Component:
		return string(ipxact.TypeComponent)
	case *ipxact.Design:
		return string(ipxact.TypeDesign)
	case *ipxact.DesignConfiguration:
		return string(ipxact.TypeDesignConfiguration)
	case *ipxact.AbstractionDefinition:
		return string(ipxact.TypeAbstractionDefinition)
	case *ipxact.BusDefinition:
		return string(ipxact.TypeBusDefinition)
	}
	return ""
}

// BuildTables flattens resolved hierarchy levels into the relational model.
func BuildTables(levels []*meta.Design, documents []DocumentRow) Tables {
	tables := NewTables()
	tables.Documents = append(tables.Documents, documents...)

	for _, d := range levels {
		level := d.TopInstance.ModuleName
		tables.Designs = append(tables.Designs, DesignRow{
			Design:    level,
			VLNV:      d.VLNV.String(),
			Component: d.TopInstance.VLNV.String(),
			Depth:     d.Depth,
		})

		for _, p := range d.Parameters {
			tables.Parameters = append(tables.Parameters, ParameterRow{
				Design:  level,
				Scope:   "design",
				Name:    p.Name,
				ValueID: p.ValueID,
				Value:   p.Value,
			})
		}

		for _, inst := range d.OrderedInstances() {
			view := ""
			if inst.ActiveView != nil {
				view = inst.ActiveView.Name
			}
			tables.Instances = append(tables.Instances, InstanceRow{
				Design:     level,
				Name:       inst.InstanceName,
				Component:  inst.VLNV.String(),
				ModuleName: inst.ModuleName,
				View:       view,
			})
			tables.addComponent(level, inst.InstanceName, inst.Component, false)
		}
		tables.addPorts(level, "", d.TopInstance.Component, true)

		for _, ic := range d.Interconnections {
			tables.Interconnections = append(tables.Interconnections, InterconnectionRow{
				Design:         level,
				Name:           ic.Name,
				Wires:          len(ic.Wires),
				HierInterfaces: len(ic.HierInterfaces),
			})
			for _, w := range ic.OrderedWires() {
				tables.Wires = append(tables.Wires, wireRow(level, w, "interconnection", ic.Name))
			}
		}
		for _, w := range d.AdHocWires {
			tables.Wires = append(tables.Wires, wireRow(level, w, "adhoc", ""))
		}
	}

	sort.Slice(tables.Documents, func(i, j int) bool { return tables.Documents[i].VLNV < tables.Documents[j].VLNV })

	return tables
}

func (t *Tables) addComponent(level, instance string, c *meta.Component, isTop bool) {
	for _, p := range c.Parameters {
		t.Parameters = append(t.Parameters, ParameterRow{
			Design:     level,
			Instance:   instance,
			Scope:      "instance",
			Name:       p.Name,
			ValueID:    p.ValueID,
			Value:      p.Value,
			Expression: c.Expressions[p.Name],
		})
	}
	for _, p := range c.ModuleParameters {
		t.Parameters = append(t.Parameters, ParameterRow{
			Design:     level,
			Instance:   instance,
			Scope:      "module",
			Name:       p.Name,
			ValueID:    p.ValueID,
			Value:      p.Value,
			Expression: c.Expressions[p.Name],
		})
	}
	for _, mi := range c.OrderedInterfaces() {
		row := InterfaceRow{Design: level, Instance: instance, Name: mi.Name, Mode: mi.Mode.String()}
		if mi.UpInterconnection != nil {
			row.Interconnection = mi.UpInterconnection.Name
		}
		t.Interfaces = append(t.Interfaces, row)
	}
	t.addPorts(level, instance, c, isTop)
}

func (t *Tables) addPorts(level, instance string, c *meta.Component, isTop bool) {
	for _, p := range c.OrderedPorts() {
		t.Ports = append(t.Ports, PortRow{
			Design:       level,
			Instance:     instance,
			Name:         p.Name,
			Direction:    string(p.Direction),
			Left:         p.VectorBounds.Left,
			Right:        p.VectorBounds.Right,
			Width:        p.VectorBounds.Width(),
			DefaultValue: p.DefaultValue,
			IsTop:        isTop,
		})

		assignments, direction := p.UpAssignments, "up"
		if isTop {
			assignments, direction = p.DownAssignments, "down"
		}
		for _, k := range assignments.Keys() {
			for _, a := range assignments[k] {
				row := AssignmentRow{
					Design:        level,
					Instance:      instance,
					Port:          p.Name,
					Key:           k,
					Direction:     direction,
					LogicalLeft:   a.LogicalBounds.Left,
					LogicalRight:  a.LogicalBounds.Right,
					PhysicalLeft:  a.PhysicalBounds.Left,
					PhysicalRight: a.PhysicalBounds.Right,
					PhysicalWidth: a.PhysicalBounds.Width(),
					DefaultValue:  a.DefaultValue,
					Invert:        a.Invert,
				}
				if a.Wire != nil {
					row.Wire = a.Wire.Name
				}
				t.Assignments = append(t.Assignments, row)
			}
		}
	}
}

func wireRow(level string, w *meta.Wire, kind, ic string) WireRow {
	return WireRow{
		Design:          level,
		Name:            w.Name,
		Kind:            kind,
		Interconnection: ic,
		Left:            w.Bounds.Left,
		Right:           w.Bounds.Right,
		Width:           w.Bounds.Width(),
		RefCount:        w.RefCount(),
		HierPorts:       len(w.HierPorts),
	}
}
