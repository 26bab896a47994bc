package indexer

import (
	"reflect"
	"testing"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/facts"
)

func TestFactTablesCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tables := facts.NewTables()
	tables.Documents = append(tables.Documents, facts.DocumentRow{
		VLNV: "acme:ip:chain:1.0", Type: "component", File: "chain.xml", Library: "work",
	})
	tables.Designs = append(tables.Designs, facts.DesignRow{
		Design: "chain", VLNV: "acme:ip:chain.design:1.0", Component: "acme:ip:chain:1.0",
	})

	const top = "acme:ip:chain:1.0"
	if err := saveFactTablesCache(dir, top, tables); err != nil {
		t.Fatalf("saveFactTablesCache error: %v", err)
	}

	loaded, ok, err := loadFactTablesCache(dir, top)
	if err != nil {
		t.Fatalf("loadFactTablesCache error: %v", err)
	}
	if !ok {
		t.Fatalf("expected cache to be present")
	}
	if !reflect.DeepEqual(tables, loaded) {
		t.Fatalf("tables mismatch: expected %#v got %#v", tables, loaded)
	}

	if _, ok, err := loadFactTablesCache(dir, "acme:ip:other:1.0"); err != nil || ok {
		t.Fatalf("expected no snapshot for another top, got ok=%v err=%v", ok, err)
	}
}
