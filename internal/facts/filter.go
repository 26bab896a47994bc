package facts

// FilterTablesByDesigns returns a new Tables object containing only rows of
// the given hierarchy levels. Documents are kept as they are not level scoped.
func FilterTablesByDesigns(tables Tables, designs map[string]bool) Tables {
	if len(designs) == 0 {
		return NewTables()
	}
	out := NewTables()
	out.Documents = append(out.Documents, tables.Documents...)

	out.Designs = filterRows(out.Designs, tables.Designs, designs, func(r DesignRow) string { return r.Design })
	out.Instances = filterRows(out.Instances, tables.Instances, designs, func(r InstanceRow) string { return r.Design })
	out.Parameters = filterRows(out.Parameters, tables.Parameters, designs, func(r ParameterRow) string { return r.Design })
	out.Ports = filterRows(out.Ports, tables.Ports, designs, func(r PortRow) string { return r.Design })
	out.Interfaces = filterRows(out.Interfaces, tables.Interfaces, designs, func(r InterfaceRow) string { return r.Design })
	out.Assignments = filterRows(out.Assignments, tables.Assignments, designs, func(r AssignmentRow) string { return r.Design })
	out.Wires = filterRows(out.Wires, tables.Wires, designs, func(r WireRow) string { return r.Design })
	out.Interconnections = filterRows(out.Interconnections, tables.Interconnections, designs,
		func(r InterconnectionRow) string { return r.Design })

	return out
}

func filterRows[T any](dst, src []T, keep map[string]bool, design func(T) string) []T {
	for _, row := range src {
		if keep[design(row)] {
			dst = append(dst, row)
		}
	}
	return dst
}

// FilterDeltaByDesigns returns a new Delta containing only rows for the specified levels.
func FilterDeltaByDesigns(delta Delta, designs map[string]bool) Delta {
	if len(designs) == 0 {
		return Delta{
			Added:   NewTables(),
			Removed: NewTables(),
		}
	}
	return Delta{
		Added:   FilterTablesByDesigns(delta.Added, designs),
		Removed: FilterTablesByDesigns(delta.Removed, designs),
	}
}
