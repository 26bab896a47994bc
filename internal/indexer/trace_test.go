package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robert-at-pretension-io/ipxact-meta/internal/ipxact"
)

func readTrace(t *testing.T, path string) []traceEvent {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	var events []traceEvent
	for _, line := range bytes.Split(bytes.TrimSpace(raw), []byte("\n")) {
		var ev traceEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			t.Fatalf("parse trace event %q: %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestTraceCoversIndexResolveAndLint(t *testing.T) {
	dir := t.TempDir()
	writeChain(t, dir, "16")
	cfg := defaultTestConfig(filepath.Join(dir, ".cache"), false)
	tracePath := filepath.Join(t.TempDir(), "trace", "timing.jsonl")

	idx := NewWithConfig(cfg)
	idx.TimingPath = tracePath
	idx.JSONOutput = true
	runIndexer(t, idx, dir)

	top := testVLNV(ipxact.TypeComponent, "chain")
	lint, err := idx.Lint(context.Background(), top, "")
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	idx.Close()

	stages := map[Stage]traceEvent{}
	documents := map[string]string{}
	for _, ev := range readTrace(t, tracePath) {
		if ev.File != "" {
			documents[filepath.Base(ev.File)] = ev.Outcome
			continue
		}
		stages[ev.Stage] = ev
	}
	for _, s := range []Stage{StageScan, StageSummarize, StageLink, StageIndex, StageResolve, StageLint} {
		if _, ok := stages[s]; !ok {
			t.Fatalf("missing %s stage in %v", s, stages)
		}
	}
	for _, name := range []string{"counter.xml", "chain.design.xml", "chain.xml"} {
		if documents[name] != outcomeSummarized {
			t.Fatalf("document %s traced as %q", name, documents[name])
		}
	}

	key := top.Key().String()
	if got := stages[StageResolve]; got.Top != key || got.Count == 0 {
		t.Fatalf("resolve event %+v, want top %s and a level count", got, key)
	}
	if got := stages[StageLint]; got.Top != key || got.Outcome != outcomeFull || got.Count != len(lint.Violations) {
		t.Fatalf("lint event %+v, want %d violations evaluated in full", got, len(lint.Violations))
	}
}

func TestTraceSummaryKeepsStageOrder(t *testing.T) {
	dir := t.TempDir()
	writeChain(t, dir, "16")
	idx := NewWithConfig(defaultTestConfig(filepath.Join(dir, ".cache"), false))
	runIndexer(t, idx, dir)

	var got []Stage
	for _, st := range idx.trace.summary() {
		got = append(got, st.Stage)
	}
	want := []Stage{StageScan, StageSummarize, StageLink, StageIndex}
	if len(got) != len(want) {
		t.Fatalf("summary stages %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("summary stages %v, want %v", got, want)
		}
	}
}

func TestTracePath(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, ".cache")

	idx := NewWithConfig(defaultTestConfig(cacheDir, true))
	if got := idx.tracePath(dir); got != "" {
		t.Fatalf("expected tracing off by default, got %q", got)
	}

	idx.Timing = true
	if got := idx.tracePath(dir); got != filepath.Join(cacheDir, "timing.jsonl") {
		t.Fatalf("expected the trace in the cache directory, got %q", got)
	}

	idx.Config = defaultTestConfig(cacheDir, false)
	if got := idx.tracePath(dir); got != filepath.Join(dir, "timing.jsonl") {
		t.Fatalf("expected the trace in the root without a cache, got %q", got)
	}

	t.Setenv("IPXACT_META_TRACE", "/tmp/trace.jsonl")
	if got := idx.tracePath(dir); got != "/tmp/trace.jsonl" {
		t.Fatalf("environment path should win over Timing, got %q", got)
	}

	idx.TimingPath = filepath.Join(dir, "explicit.jsonl")
	if got := idx.tracePath(dir); got != idx.TimingPath {
		t.Fatalf("explicit path should win, got %q", got)
	}
}

func TestNilTracerRecordsNothing(t *testing.T) {
	var tr *tracer
	tr.document("a.xml", outcomeSummarized, time.Now(), 0)
	tr.close()
	if tr.summary() != nil {
		t.Fatalf("nil tracer should have no summary")
	}
}
