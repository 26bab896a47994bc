package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/facts"
)

// cleanTables is one instance u0 with a clock input and an 8 bit output,
// both wired.
func cleanTables() facts.Tables {
	tables := facts.NewTables()
	tables.Designs = append(tables.Designs, facts.DesignRow{Design: "top", Component: "acme:ip:top:1.0"})
	tables.Instances = append(tables.Instances, facts.InstanceRow{
		Design: "top", Name: "u0", Component: "acme:ip:reg:1.0", ModuleName: "reg", View: "rtl",
	})
	tables.Ports = append(tables.Ports,
		facts.PortRow{Design: "top", Instance: "u0", Name: "clk", Direction: "in", Left: "0", Right: "0", Width: 1},
		facts.PortRow{Design: "top", Instance: "u0", Name: "q", Direction: "out", Left: "7", Right: "0", Width: 8},
	)
	tables.Assignments = append(tables.Assignments,
		facts.AssignmentRow{
			Design: "top", Instance: "u0", Port: "clk", Key: "clk", Direction: "up", Wire: "clk",
			LogicalLeft: "0", LogicalRight: "0", PhysicalLeft: "0", PhysicalRight: "0", PhysicalWidth: 1,
		},
		facts.AssignmentRow{
			Design: "top", Instance: "u0", Port: "q", Key: "q", Direction: "up", Wire: "q",
			LogicalLeft: "7", LogicalRight: "0", PhysicalLeft: "7", PhysicalRight: "0", PhysicalWidth: 8,
		},
	)
	tables.Wires = append(tables.Wires,
		facts.WireRow{Design: "top", Name: "clk", Kind: "adhoc", Left: "0", Right: "0", Width: 1, RefCount: 2},
		facts.WireRow{Design: "top", Name: "q", Kind: "adhoc", Left: "7", Right: "0", Width: 8, RefCount: 2},
	)
	return tables
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(context.Background(), opts...)
	require.NoError(t, err)
	return e
}

func rulesOf(res *Result) []string {
	var out []string
	for _, v := range res.Violations {
		out = append(out, v.Rule)
	}
	return out
}

func TestCleanTablesHaveNoViolations(t *testing.T) {
	res, err := newEngine(t).Evaluate(context.Background(), cleanTables())
	require.NoError(t, err)
	assert.Empty(t, res.Violations)
	assert.Equal(t, Summary{}, res.Summary)
}

func TestRules(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*facts.Tables)
		rule     string
		severity string
		target   string
	}{
		{
			name: "unconnected_input",
			mutate: func(tb *facts.Tables) {
				tb.Assignments = tb.Assignments[1:]
				tb.Wires = tb.Wires[1:]
			},
			rule: "unconnected_input", severity: "warning", target: "clk",
		},
		{
			name: "logical_physical_width",
			mutate: func(tb *facts.Tables) {
				tb.Assignments[1].PhysicalLeft = "3"
				tb.Assignments[1].PhysicalWidth = 4
			},
			rule: "width_mismatch", severity: "error", target: "q",
		},
		{
			name: "beyond_wire",
			mutate: func(tb *facts.Tables) {
				tb.Wires[1].Left = "3"
				tb.Wires[1].Width = 4
			},
			rule: "width_mismatch", severity: "error", target: "q",
		},
		{
			name: "tie_off_on_output",
			mutate: func(tb *facts.Tables) {
				tb.Assignments[1].Wire = ""
				tb.Assignments[1].DefaultValue = "0"
				tb.Wires = tb.Wires[:1]
			},
			rule: "dangling_tie_off", severity: "warning", target: "q",
		},
		{
			name: "unevaluated_port_bounds",
			mutate: func(tb *facts.Tables) {
				tb.Ports[1].Left = "DEPTH-1"
				tb.Ports[1].Width = 0
			},
			rule: "unresolved_expression", severity: "warning", target: "q",
		},
		{
			name: "verbatim_tie_off",
			mutate: func(tb *facts.Tables) {
				tb.Assignments[0].Wire = ""
				tb.Assignments[0].DefaultValue = "abc"
				tb.Wires = tb.Wires[1:]
			},
			rule: "unresolved_expression", severity: "info", target: "clk",
		},
	}

	e := newEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := cleanTables()
			tt.mutate(&tables)
			res, err := e.Evaluate(context.Background(), tables)
			require.NoError(t, err)
			require.Len(t, res.Violations, 1, "got %v", rulesOf(res))

			v := res.Violations[0]
			assert.Equal(t, tt.rule, v.Rule)
			assert.Equal(t, tt.severity, v.Severity)
			assert.Equal(t, "top", v.Design)
			assert.Equal(t, "u0", v.Instance)
			assert.Equal(t, tt.target, v.Target)
			assert.NotEmpty(t, v.Message)
			assert.Equal(t, 1, res.Summary.TotalViolations)
		})
	}
}

func TestSizedLiteralTieOffIsConstant(t *testing.T) {
	tables := cleanTables()
	tables.Assignments[0].Wire = ""
	tables.Assignments[0].DefaultValue = "1'b0"
	tables.Wires = tables.Wires[1:]

	res, err := newEngine(t).Evaluate(context.Background(), tables)
	require.NoError(t, err)
	assert.Empty(t, res.Violations)
}

type ruleTable map[string]string

func (r ruleTable) IsRuleEnabled(rule string) bool { return r[rule] != "off" }

func (r ruleTable) GetRuleSeverity(rule, def string) string {
	if s, ok := r[rule]; ok {
		return s
	}
	return def
}

func TestRuleConfig(t *testing.T) {
	tables := cleanTables()
	tables.Assignments = tables.Assignments[1:]
	tables.Wires = tables.Wires[1:]
	tables.Ports[1].Left = "DEPTH-1"

	res, err := newEngine(t).Evaluate(context.Background(), tables)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"unconnected_input", "unresolved_expression"}, rulesOf(res))

	e := newEngine(t, WithRules(ruleTable{"unresolved_expression": "off", "unconnected_input": "error"}))
	res, err = e.Evaluate(context.Background(), tables)
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "error", res.Violations[0].Severity)
	assert.True(t, res.HasErrors())
}

func TestPolicyDirAddsCustomRules(t *testing.T) {
	dir := t.TempDir()
	rule := `package ipxact_meta.custom.naming

violations contains v if {
	some i in input.instances
	not startswith(i.name, "u_")
	v := {
		"rule": "instance_prefix",
		"severity": "info",
		"design": i.design,
		"instance": i.name,
		"target": i.name,
		"message": "instance names start with u_",
	}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "naming.rego"), []byte(rule), 0o644))

	res, err := newEngine(t, WithPolicyDirs(dir)).Evaluate(context.Background(), cleanTables())
	require.NoError(t, err)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, "instance_prefix", res.Violations[0].Rule)
	assert.Equal(t, 1, res.Summary.Info)

	_, err = New(context.Background(), WithPolicyDirs(t.TempDir()))
	assert.Error(t, err)
}

func TestEvaluateRejectsInvalidFacts(t *testing.T) {
	tables := cleanTables()
	tables.Wires[0].Kind = "bus"
	_, err := newEngine(t).Evaluate(context.Background(), tables)
	assert.ErrorContains(t, err, "facts invalid")
}
