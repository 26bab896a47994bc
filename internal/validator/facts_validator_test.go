package validator

import (
	"strings"
	"testing"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/facts"
)

func sampleTables() facts.Tables {
	tables := facts.NewTables()
	tables.Documents = append(tables.Documents, facts.DocumentRow{
		VLNV:    "acme:ip:counter:1.0",
		Type:    "component",
		File:    "lib/counter.xml",
		Library: "work",
	})
	tables.Designs = append(tables.Designs, facts.DesignRow{
		Design:    "chain",
		VLNV:      "acme:ip:chain.design:1.0",
		Component: "acme:ip:chain:1.0",
	})
	tables.Ports = append(tables.Ports, facts.PortRow{
		Design:    "chain",
		Instance:  "c0",
		Name:      "count",
		Direction: "out",
		Left:      "7",
		Right:     "0",
		Width:     8,
	})
	tables.Wires = append(tables.Wires, facts.WireRow{
		Design:   "chain",
		Name:     "chain",
		Kind:     "adhoc",
		Left:     "7",
		Right:    "0",
		Width:    8,
		RefCount: 2,
	})
	tables.Assignments = append(tables.Assignments, facts.AssignmentRow{
		Design:    "chain",
		Instance:  "c0",
		Port:      "count",
		Key:       "chain",
		Direction: "up",
		Wire:      "chain",
	})
	return tables
}

func TestFactsValidatorAcceptsValidTables(t *testing.T) {
	v, err := NewFactsValidator()
	if err != nil {
		t.Fatalf("new facts validator: %v", err)
	}
	if err := v.Validate(sampleTables()); err != nil {
		t.Fatalf("expected tables to validate, got %v", err)
	}
	if err := v.Validate(facts.NewTables()); err != nil {
		t.Fatalf("expected empty tables to validate, got %v", err)
	}
}

func TestFactsValidatorRejectsBadRows(t *testing.T) {
	v, err := NewFactsValidator()
	if err != nil {
		t.Fatalf("new facts validator: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*facts.Tables)
	}{
		{"unknown_wire_kind", func(tb *facts.Tables) { tb.Wires[0].Kind = "bus" }},
		{"bad_port_direction", func(tb *facts.Tables) { tb.Ports[0].Direction = "output" }},
		{"bad_assignment_direction", func(tb *facts.Tables) { tb.Assignments[0].Direction = "sideways" }},
		{"negative_ref_count", func(tb *facts.Tables) { tb.Wires[0].RefCount = -1 }},
		{"empty_level", func(tb *facts.Tables) { tb.Ports[0].Design = "" }},
		{"unknown_document_type", func(tb *facts.Tables) { tb.Documents[0].Type = "catalog" }},
		{"missing_relation", func(tb *facts.Tables) { tb.Interconnections = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := sampleTables()
			tt.mutate(&tables)
			if err := v.Validate(tables); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestFactsValidatorDelta(t *testing.T) {
	v, err := NewFactsValidator()
	if err != nil {
		t.Fatalf("new facts validator: %v", err)
	}

	prev := sampleTables()
	next := sampleTables()
	next.Wires[0].Width = 16
	if err := v.ValidateDelta(facts.ComputeDelta(prev, next)); err != nil {
		t.Fatalf("expected delta to validate, got %v", err)
	}
}

func TestFactsValidationErrorsNamesField(t *testing.T) {
	v, err := NewFactsValidator()
	if err != nil {
		t.Fatalf("new facts validator: %v", err)
	}

	tables := sampleTables()
	tables.Wires[0].Kind = "bus"
	errs := v.ValidationErrors(tables)
	if len(errs) == 0 {
		t.Fatalf("expected validation errors")
	}
	if !strings.Contains(strings.Join(errs, "\n"), "kind") {
		t.Fatalf("expected error to mention kind, got %v", errs)
	}
}
