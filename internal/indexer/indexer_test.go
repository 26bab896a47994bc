package indexer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

func runIndexer(t *testing.T, idx *Indexer, root string) {
	t.Helper()
	idx.Out = &bytes.Buffer{}
	if err := idx.Run(context.Background(), root); err != nil {
		t.Fatalf("index failed: %v", err)
	}
	t.Cleanup(idx.Close)
}

func TestRunBuildsSymbolTable(t *testing.T) {
	dir := t.TempDir()
	paths := writeChain(t, dir, "16")

	idx := NewWithConfig(defaultTestConfig(filepath.Join(dir, ".cache"), false))
	runIndexer(t, idx, dir)

	if got := idx.Symbols.Len(); got != 3 {
		t.Fatalf("expected 3 symbols, got %d: %v", got, idx.Symbols.All())
	}
	sym, ok := idx.Symbols.Get("acme:ip:chain.design:1.0")
	if !ok || sym.Kind != "design" || sym.File != paths["design"] {
		t.Fatalf("unexpected design symbol %+v (found=%v)", sym, ok)
	}
	if len(idx.Missing) != 0 {
		t.Fatalf("expected no missing references, got %v", idx.Missing)
	}
	if info := idx.FileLibraries[paths["top"]]; info.LibraryName != "work" {
		t.Fatalf("expected top in library work, got %+v", info)
	}
}

func TestRunReportsMissingReferences(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "chain.design.xml", chainDesign("4"))
	top := writeDoc(t, dir, "chain.xml", chainComponent())

	idx := NewWithConfig(defaultTestConfig(filepath.Join(dir, ".cache"), false))
	runIndexer(t, idx, dir)

	design := filepath.Join(dir, "chain.design.xml")
	if got := idx.Missing[design]; !reflect.DeepEqual(got, []string{"acme:ip:counter:1.0"}) {
		t.Fatalf("expected counter to be missing from the design, got %v", got)
	}
	if len(idx.Missing[top]) != 0 {
		t.Fatalf("top refers to an indexed design, got %v", idx.Missing[top])
	}
}

func TestRunSkipsUnreadableDocuments(t *testing.T) {
	dir := t.TempDir()
	writeChain(t, dir, "16")
	if err := os.WriteFile(filepath.Join(dir, "broken.xml"), []byte("<notipxact/>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	idx := NewWithConfig(defaultTestConfig(filepath.Join(dir, ".cache"), false))
	runIndexer(t, idx, dir)
	if got := idx.Symbols.Len(); got != 3 {
		t.Fatalf("expected the 3 valid documents indexed, got %d", got)
	}
}

func TestCacheReuseAvoidsRereading(t *testing.T) {
	dir := t.TempDir()
	writeChain(t, dir, "16")
	cfg := defaultTestConfig(filepath.Join(dir, ".cache"), true)

	var count int32
	idx := NewWithConfig(cfg)
	idx.summarizerFactory = func() Summarizer {
		return &countingSummarizer{inner: documentSummarizer{}, count: &count}
	}
	runIndexer(t, idx, dir)
	if got := atomic.LoadInt32(&count); got != 3 {
		t.Fatalf("expected 3 reads on first run, got %d", got)
	}

	var count2 int32
	idx2 := NewWithConfig(cfg)
	idx2.summarizerFactory = func() Summarizer {
		return &countingSummarizer{inner: documentSummarizer{}, count: &count2}
	}
	runIndexer(t, idx2, dir)
	if got := atomic.LoadInt32(&count2); got != 0 {
		t.Fatalf("expected 0 reads on cached run, got %d", got)
	}
	if len(idx2.Changed) != 0 {
		t.Fatalf("expected nothing changed, got %v", idx2.Changed)
	}
	if idx2.Symbols.Len() != 3 {
		t.Fatalf("cached run lost symbols: %v", idx2.Symbols.All())
	}
}

func TestCacheInvalidationOnChange(t *testing.T) {
	dir := t.TempDir()
	paths := writeChain(t, dir, "16")
	cfg := defaultTestConfig(filepath.Join(dir, ".cache"), true)

	runIndexer(t, NewWithConfig(cfg), dir)

	writeDoc(t, dir, "chain.design.xml", chainDesign("32"))

	var count int32
	idx2 := NewWithConfig(cfg)
	idx2.summarizerFactory = func() Summarizer {
		return &countingSummarizer{inner: documentSummarizer{}, count: &count}
	}
	runIndexer(t, idx2, dir)
	if got := atomic.LoadInt32(&count); got != 1 {
		t.Fatalf("expected one re-read after change, got %d", got)
	}
	if !reflect.DeepEqual(idx2.Changed, []string{paths["design"]}) {
		t.Fatalf("expected design changed, got %v", idx2.Changed)
	}
	impact := idx2.Impact(paths["design"])
	if len(impact) != 1 || !reflect.DeepEqual(impact[0], []string{paths["top"]}) {
		t.Fatalf("expected the top component to depend on the design, got %v", impact)
	}
}

func TestCacheInvalidationOnVersionChange(t *testing.T) {
	dir := t.TempDir()
	writeChain(t, dir, "16")
	cfg := defaultTestConfig(filepath.Join(dir, ".cache"), true)

	idx := NewWithConfig(cfg)
	idx.readerVersionOverride = "r1"
	runIndexer(t, idx, dir)

	var count int32
	idx2 := NewWithConfig(cfg)
	idx2.readerVersionOverride = "r2"
	idx2.summarizerFactory = func() Summarizer {
		return &countingSummarizer{inner: documentSummarizer{}, count: &count}
	}
	runIndexer(t, idx2, dir)
	if got := atomic.LoadInt32(&count); got != 3 {
		t.Fatalf("expected re-read after version change, got %d", got)
	}
}

func TestResolveBuildsTablesFromClosure(t *testing.T) {
	dir := t.TempDir()
	writeChain(t, dir, "16")
	// Not part of the closure of chain.
	writeDoc(t, dir, "other.xml", &ipxact.Component{
		VLNV:  testVLNV(ipxact.TypeComponent, "other"),
		Views: []ipxact.View{{Name: "rtl"}},
	})

	idx := NewWithConfig(defaultTestConfig(filepath.Join(dir, ".cache"), false))
	runIndexer(t, idx, dir)

	res, err := idx.Resolve(context.Background(), testVLNV(ipxact.TypeComponent, "chain"), "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.View != "hier" {
		t.Fatalf("expected the hier view, got %q", res.View)
	}
	if len(res.Files) != 3 || len(res.Tables.Documents) != 3 {
		t.Fatalf("expected a closure of 3 documents, got files=%v docs=%+v", res.Files, res.Tables.Documents)
	}
	for _, d := range res.Tables.Documents {
		if d.Library != "work" {
			t.Fatalf("expected library work on %+v", d)
		}
	}
	if len(res.Tables.Wires) != 1 || res.Tables.Wires[0].Width != 16 {
		t.Fatalf("expected one 16 bit wire, got %+v", res.Tables.Wires)
	}
}

func TestResolveErrors(t *testing.T) {
	dir := t.TempDir()
	writeChain(t, dir, "16")
	idx := NewWithConfig(defaultTestConfig(filepath.Join(dir, ".cache"), false))
	runIndexer(t, idx, dir)
	ctx := context.Background()

	if _, err := idx.Resolve(ctx, testVLNV(ipxact.TypeComponent, "nope"), ""); !errors.Is(err, ipxact.ErrDanglingReference) {
		t.Fatalf("expected dangling reference for unknown top, got %v", err)
	}
	if _, err := idx.Resolve(ctx, testVLNV(ipxact.TypeComponent, "chain"), "rtl"); !errors.Is(err, ipxact.ErrDanglingReference) {
		t.Fatalf("expected dangling reference for unknown view, got %v", err)
	}
	if _, err := idx.Resolve(ctx, testVLNV(ipxact.TypeComponent, "counter"), ""); !errors.Is(err, ipxact.ErrAmbiguousActiveView) {
		t.Fatalf("expected ambiguous view for a leaf component, got %v", err)
	}
	if _, err := idx.Resolve(ctx, testVLNV(ipxact.TypeDesign, "chain.design"), ""); err == nil ||
		!strings.Contains(err.Error(), "not a component") {
		t.Fatalf("expected design top to be rejected, got %v", err)
	}
}

func TestLintCachedMatchesFresh(t *testing.T) {
	dir := t.TempDir()
	writeChain(t, dir, "16")
	top := testVLNV(ipxact.TypeComponent, "chain")
	ctx := context.Background()

	fresh := NewWithConfig(defaultTestConfig(filepath.Join(dir, ".cache"), false))
	runIndexer(t, fresh, dir)
	want, err := fresh.Lint(ctx, top, "")
	if err != nil {
		t.Fatalf("fresh lint: %v", err)
	}
	if want.Summary.TotalViolations == 0 {
		t.Fatalf("expected the unconnected c0.load to be reported")
	}

	cfg := defaultTestConfig(filepath.Join(dir, ".cache"), true)
	first := NewWithConfig(cfg)
	runIndexer(t, first, dir)
	got, err := first.Lint(ctx, top, "")
	if err != nil {
		t.Fatalf("first cached lint: %v", err)
	}
	if got.Cached || got.Delta {
		t.Fatalf("first run cannot reuse anything: %+v", got)
	}

	second := NewWithConfig(cfg)
	runIndexer(t, second, dir)
	again, err := second.Lint(ctx, top, "")
	if err != nil {
		t.Fatalf("second cached lint: %v", err)
	}
	if !again.Cached {
		t.Fatalf("expected policy cache hit")
	}

	for _, r := range []*LintResult{got, again} {
		if r.Summary != want.Summary || !reflect.DeepEqual(r.Violations, want.Violations) {
			t.Fatalf("result mismatch: fresh=%+v cached=%+v", want, r)
		}
	}
}

func TestLintEvaluatesDeltaAfterChange(t *testing.T) {
	dir := t.TempDir()
	writeChain(t, dir, "16")
	top := testVLNV(ipxact.TypeComponent, "chain")
	ctx := context.Background()
	cfg := defaultTestConfig(filepath.Join(dir, ".cache"), true)

	first := NewWithConfig(cfg)
	runIndexer(t, first, dir)
	if _, err := first.Lint(ctx, top, ""); err != nil {
		t.Fatalf("first lint: %v", err)
	}

	writeDoc(t, dir, "chain.design.xml", chainDesign("4"))

	second := NewWithConfig(cfg)
	runIndexer(t, second, dir)
	res, err := second.Lint(ctx, top, "")
	if err != nil {
		t.Fatalf("second lint: %v", err)
	}
	if res.Cached || !res.Delta {
		t.Fatalf("expected a delta evaluation, got %+v", res)
	}

	fresh := NewWithConfig(defaultTestConfig(filepath.Join(dir, ".cache"), false))
	runIndexer(t, fresh, dir)
	want, err := fresh.Lint(ctx, top, "")
	if err != nil {
		t.Fatalf("fresh lint: %v", err)
	}
	if !reflect.DeepEqual(res.Violations, want.Violations) {
		t.Fatalf("delta result differs from fresh: %+v vs %+v", res.Violations, want.Violations)
	}
}

func TestWriteLintResultText(t *testing.T) {
	var buf bytes.Buffer
	idx := New()
	idx.Out = &buf
	err := idx.WriteLintResult(&LintResult{
		Top:     "acme:ip:chain:1.0",
		Missing: map[string][]string{"chain.design.xml": {"acme:ip:counter:1.0"}},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Unresolved References") || !strings.Contains(out, "Errors:   0") {
		t.Fatalf("unexpected report:\n%s", out)
	}
}
