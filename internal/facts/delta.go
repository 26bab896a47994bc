package facts

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

// IsEmpty reports whether nothing was added or removed.
func (d Delta) IsEmpty() bool {
	return d.Added.rowCount() == 0 && d.Removed.rowCount() == 0
}

func diffTables(from, to Tables) Tables {
	return Tables{
		Documents:        diffRows(from.Documents, to.Documents),
		Designs:          diffRows(from.Designs, to.Designs),
		Instances:        diffRows(from.Instances, to.Instances),
		Parameters:       diffRows(from.Parameters, to.Parameters),
		Ports:            diffRows(from.Ports, to.Ports),
		Interfaces:       diffRows(from.Interfaces, to.Interfaces),
		Assignments:      diffRows(from.Assignments, to.Assignments),
		Wires:            diffRows(from.Wires, to.Wires),
		Interconnections: diffRows(from.Interconnections, to.Interconnections),
	}
}

// NewTables returns tables with every relation present and empty.
func NewTables() Tables {
	return Tables{
		Documents:        []DocumentRow{},
		Designs:          []DesignRow{},
		Instances:        []InstanceRow{},
		Parameters:       []ParameterRow{},
		Ports:            []PortRow{},
		Interfaces:       []InterfaceRow{},
		Assignments:      []AssignmentRow{},
		Wires:            []WireRow{},
		Interconnections: []InterconnectionRow{},
	}
}

func (t Tables) rowCount() int {
	return len(t.Documents) + len(t.Designs) + len(t.Instances) + len(t.Parameters) +
		len(t.Ports) + len(t.Interfaces) + len(t.Assignments) + len(t.Wires) + len(t.Interconnections)
}

// diffRows returns the rows of to that do not occur in from. Rows are flat
// structs, so the row itself is the key.
func diffRows[T comparable](from, to []T) []T {
	fromSet := make(map[T]struct{}, len(from))
	for _, row := range from {
		fromSet[row] = struct{}{}
	}
	diff := []T{}
	for _, row := range to {
		if _, ok := fromSet[row]; !ok {
			diff = append(diff, row)
		}
	}
	return diff
}

// ApplyDelta returns base with the delta's removed rows dropped and its added
// rows appended. ApplyDelta(prev, ComputeDelta(prev, next)) holds the same
// rows as next.
func ApplyDelta(base Tables, d Delta) Tables {
	return Tables{
		Documents:        applyRows(base.Documents, d.Removed.Documents, d.Added.Documents),
		Designs:          applyRows(base.Designs, d.Removed.Designs, d.Added.Designs),
		Instances:        applyRows(base.Instances, d.Removed.Instances, d.Added.Instances),
		Parameters:       applyRows(base.Parameters, d.Removed.Parameters, d.Added.Parameters),
		Ports:            applyRows(base.Ports, d.Removed.Ports, d.Added.Ports),
		Interfaces:       applyRows(base.Interfaces, d.Removed.Interfaces, d.Added.Interfaces),
		Assignments:      applyRows(base.Assignments, d.Removed.Assignments, d.Added.Assignments),
		Wires:            applyRows(base.Wires, d.Removed.Wires, d.Added.Wires),
		Interconnections: applyRows(base.Interconnections, d.Removed.Interconnections, d.Added.Interconnections),
	}
}

func applyRows[T comparable](base, removed, added []T) []T {
	drop := make(map[T]struct{}, len(removed))
	for _, row := range removed {
		drop[row] = struct{}{}
	}
	out := make([]T, 0, len(base)+len(added))
	for _, row := range base {
		if _, ok := drop[row]; !ok {
			out = append(out, row)
		}
	}
	return append(out, added...)
}
