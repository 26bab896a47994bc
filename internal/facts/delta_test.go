package facts

import "testing"

func TestComputeDeltaAddsAndRemoves(t *testing.T) {
	prev := Tables{
		Instances: []InstanceRow{
			{Design: "top", Name: "a", Component: "acme:ip:a:1.0"},
		},
		Wires: []WireRow{
			{Design: "top", Name: "w", Kind: "adhoc", Left: "7", Right: "0", Width: 8, RefCount: 2},
		},
	}
	next := Tables{
		Instances: []InstanceRow{
			{Design: "top", Name: "b", Component: "acme:ip:b:1.0"},
		},
		Wires: []WireRow{
			{Design: "top", Name: "w", Kind: "adhoc", Left: "15", Right: "0", Width: 16, RefCount: 2},
		},
	}

	delta := ComputeDelta(prev, next)

	if len(delta.Added.Instances) != 1 || delta.Added.Instances[0].Name != "b" {
		t.Fatalf("expected instance b added, got %+v", delta.Added.Instances)
	}
	if len(delta.Removed.Instances) != 1 || delta.Removed.Instances[0].Name != "a" {
		t.Fatalf("expected instance a removed, got %+v", delta.Removed.Instances)
	}
	if len(delta.Added.Wires) != 1 || delta.Added.Wires[0].Width != 16 {
		t.Fatalf("expected widened wire added, got %+v", delta.Added.Wires)
	}
	if len(delta.Removed.Wires) != 1 || delta.Removed.Wires[0].Width != 8 {
		t.Fatalf("expected narrow wire removed, got %+v", delta.Removed.Wires)
	}
	if delta.IsEmpty() {
		t.Fatalf("expected a non-empty delta")
	}
}

func TestComputeDeltaBetweenResolutions(t *testing.T) {
	_, narrow := resolvedLibrary(t, "8")
	_, wide := resolvedLibrary(t, "16")

	same := ComputeDelta(BuildTables(narrow, nil), BuildTables(narrow, nil))
	if !same.IsEmpty() {
		t.Fatalf("expected no delta for identical resolutions, got %+v", same)
	}

	delta := ComputeDelta(BuildTables(narrow, nil), BuildTables(wide, nil))
	if len(delta.Added.Parameters) != 1 || delta.Added.Parameters[0].Value != "16" {
		t.Fatalf("expected the c0 WIDTH override in the delta, got %+v", delta.Added.Parameters)
	}
	if len(delta.Added.Wires) != 1 || delta.Added.Wires[0].Width != 16 {
		t.Fatalf("expected the chain wire to widen, got %+v", delta.Added.Wires)
	}
	if len(delta.Removed.Instances) != 0 {
		t.Fatalf("expected no instance changes, got %+v", delta.Removed.Instances)
	}
}

func TestApplyDeltaReachesNext(t *testing.T) {
	_, narrow := resolvedLibrary(t, "8")
	_, wide := resolvedLibrary(t, "16")
	prev := BuildTables(narrow, nil)
	next := BuildTables(wide, nil)

	got := ApplyDelta(prev, ComputeDelta(prev, next))
	if !ComputeDelta(got, next).IsEmpty() {
		t.Fatalf("expected applied delta to match next snapshot")
	}
	if got.rowCount() != next.rowCount() {
		t.Fatalf("expected %d rows, got %d", next.rowCount(), got.rowCount())
	}
}
