package e2e

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/config"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/document"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/extractor"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/indexer"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/policy"
	"github.com/robert-at-pretension-io/ipxact-meta/internal/validator"
)

const counterVHDL = `library ieee;
use ieee.std_logic_1164.all;

entity counter is
  generic (WIDTH : integer := 8);
  port (
    clk   : in  std_logic;
    load  : in  std_logic_vector(WIDTH-1 downto 0);
    count : out std_logic_vector(WIDTH-1 downto 0)
  );
end entity counter;
`

var importOpts = extractor.ImportOptions{Vendor: "acme", Library: "ip", Version: "1.0", Author: "jdoe"}

func vlnv(typ ipxact.DocumentType, name string) ipxact.VLNV {
	return ipxact.NewVLNV(typ, "acme", "ip", name, "1.0")
}

func writeDoc(t *testing.T, path string, d ipxact.Document) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, document.WriteDocument(f, d, 2))
}

// importCounter runs the VHDL import and writes the component into dir.
func importCounter(t *testing.T, dir string) *ipxact.Component {
	t.Helper()
	src := filepath.Join(t.TempDir(), "counter.vhd")
	require.NoError(t, os.WriteFile(src, []byte(counterVHDL), 0o644))

	facts, err := extractor.New().Extract(src)
	require.NoError(t, err)
	require.Len(t, facts.Entities, 1)

	c, err := extractor.ToComponent(facts.Entities[0], importOpts)
	require.NoError(t, err)
	writeDoc(t, filepath.Join(dir, "counter.xml"), c)
	return c
}

// writeChain writes a hierarchical top with two imported counters joined by
// an ad-hoc wire from c0.count to c1.load.
func writeChain(t *testing.T, dir, c0Width string) {
	t.Helper()
	counter := vlnv(ipxact.TypeComponent, "counter")
	widthID := extractor.ValueID("counter", "WIDTH")

	writeDoc(t, filepath.Join(dir, "chain.design.xml"), &ipxact.Design{
		VLNV: vlnv(ipxact.TypeDesign, "chain.design"),
		ComponentInstances: []ipxact.ComponentInstance{
			{InstanceName: "c0", ComponentRef: ipxact.ConfigurableVLNVReference{
				VLNV:                      counter,
				ConfigurableElementValues: []ipxact.ConfigurableElementValue{{ReferenceID: widthID, Value: c0Width}},
			}},
			{InstanceName: "c1", ComponentRef: ipxact.ConfigurableVLNVReference{VLNV: counter}},
		},
		AdHocConnections: []ipxact.AdHocConnection{{
			Name: "chain",
			InternalPortReferences: []ipxact.PortReference{
				{ComponentRef: "c0", PortRef: "count"},
				{ComponentRef: "c1", PortRef: "load"},
			},
		}},
	})
	writeDoc(t, filepath.Join(dir, "chain.xml"), &ipxact.Component{
		VLNV:  vlnv(ipxact.TypeComponent, "chain"),
		Views: []ipxact.View{{Name: "hier", DesignInstantiationRef: "di"}},
		DesignInstantiations: []ipxact.DesignInstantiation{
			{Name: "di", DesignRef: ipxact.ConfigurableVLNVReference{VLNV: vlnv(ipxact.TypeDesign, "chain.design")}},
		},
	})
}

func newIndexer(t *testing.T, dir string) *indexer.Indexer {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Lint.Rules = map[string]string{}
	cfg.Analysis.Cache.Dir = filepath.Join(dir, ".cache")
	disabled := false
	cfg.Analysis.Cache.Enabled = &disabled

	idx := indexer.NewWithConfig(cfg)
	idx.Out = io.Discard
	require.NoError(t, idx.Run(context.Background(), dir))
	t.Cleanup(idx.Close)
	return idx
}

func TestImportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	imported := importCounter(t, dir)

	f, err := os.Open(filepath.Join(dir, "counter.xml"))
	require.NoError(t, err)
	defer f.Close()
	doc, err := document.ReadDocument(f)
	require.NoError(t, err)

	c, ok := doc.(*ipxact.Component)
	require.True(t, ok, "expected a component, got %T", doc)
	assert.Equal(t, imported.VLNV, c.VLNV)
	assert.Equal(t, "jdoe", c.Author)
	assert.Equal(t, imported.Parameters, c.Parameters)
	require.Len(t, c.Ports, 3)
	for i, p := range imported.Ports {
		assert.Equal(t, p.Name, c.Ports[i].Name)
		assert.Equal(t, p.Direction, c.Ports[i].Direction)
		assert.Equal(t, p.Left, c.Ports[i].Left)
		assert.Equal(t, p.Right, c.Ports[i].Right)
	}
	require.NotNil(t, c.View(extractor.ViewName))
}

func TestResolveImportedHierarchy(t *testing.T) {
	dir := t.TempDir()
	importCounter(t, dir)
	writeChain(t, dir, "16")

	idx := newIndexer(t, dir)
	assert.Equal(t, 3, idx.Symbols.Len())
	assert.Empty(t, idx.Missing)

	res, err := idx.Resolve(context.Background(), vlnv(ipxact.TypeComponent, "chain"), "")
	require.NoError(t, err)
	assert.Equal(t, "hier", res.View)
	require.Len(t, res.Levels, 1)
	assert.Len(t, res.Tables.Instances, 2)
	require.Len(t, res.Tables.Wires, 1)
	assert.Equal(t, 16, res.Tables.Wires[0].Width)

	fv, err := validator.NewFactsValidator()
	require.NoError(t, err)
	assert.NoError(t, fv.Validate(res.Tables))
}

func TestLintImportedHierarchy(t *testing.T) {
	dir := t.TempDir()
	importCounter(t, dir)
	writeChain(t, dir, "8")

	idx := newIndexer(t, dir)
	result, err := idx.Lint(context.Background(), vlnv(ipxact.TypeComponent, "chain"), "")
	require.NoError(t, err)

	assert.Contains(t, rulesFor(result.Violations, "c0"), "unconnected_input:load")
	assert.NotContains(t, rulesFor(result.Violations, "c1"), "unconnected_input:load")
	for _, v := range result.Violations {
		assert.NotEqual(t, "width_mismatch", v.Rule, "equal widths reported as mismatch: %+v", v)
	}

	ov, err := validator.NewOutputValidator()
	require.NoError(t, err)
	assert.NoError(t, ov.Validate(policy.Result{Violations: result.Violations, Summary: result.Summary}))
}

func rulesFor(vs []policy.Violation, instance string) []string {
	var out []string
	for _, v := range vs {
		if v.Instance == instance {
			out = append(out, v.Rule+":"+v.Target)
		}
	}
	return out
}
