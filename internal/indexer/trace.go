package indexer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Stage is one step of an index, resolve or lint run.
type Stage string

const (
	StageScan      Stage = "scan"
	StageSummarize Stage = "summarize"
	StageLink      Stage = "link"
	StageIndex     Stage = "index"
	StageResolve   Stage = "resolve"
	StageLint      Stage = "lint"
)

// Trace outcomes. Documents are summarized, served from the cache or
// failed; lint results are evaluated in full, as a delta or from cache.
const (
	outcomeSummarized = "summarized"
	outcomeCacheHit   = "cache_hit"
	outcomeError      = "error"
	outcomeFull       = "full"
	outcomeDelta      = "delta"
	outcomeCached     = "cached"
)

// traceEvent is one line of the JSONL trace. File is set for a summarized
// document, Top for resolve and lint. Count holds the levels resolved or
// the violations reported.
type traceEvent struct {
	Stage      Stage   `json:"stage"`
	File       string  `json:"file,omitempty"`
	Top        string  `json:"top,omitempty"`
	Outcome    string  `json:"outcome,omitempty"`
	Count      int     `json:"count,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
}

// tracer collects stage durations for the verbose summary and, when a path
// is set, streams every event to a JSONL file. A nil tracer records nothing.
type tracer struct {
	start time.Time

	mu     sync.Mutex
	totals map[Stage]time.Duration
	order  []Stage
	file   *os.File
	enc    *json.Encoder
}

func newTracer(start time.Time, path string) (*tracer, error) {
	tr := &tracer{start: start, totals: make(map[Stage]time.Duration)}
	if path == "" {
		return tr, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tr, fmt.Errorf("trace dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return tr, fmt.Errorf("open trace: %w", err)
	}
	tr.file = f
	tr.enc = json.NewEncoder(f)
	return tr, nil
}

func (tr *tracer) close() {
	if tr == nil || tr.file == nil {
		return
	}
	_ = tr.file.Close()
	tr.file, tr.enc = nil, nil
}

func (tr *tracer) emit(ev traceEvent, start time.Time, d time.Duration) {
	if tr == nil {
		return
	}
	ev.StartMS = ms(start.Sub(tr.start))
	ev.DurationMS = ms(d)
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if ev.File == "" {
		if _, seen := tr.totals[ev.Stage]; !seen {
			tr.order = append(tr.order, ev.Stage)
		}
		tr.totals[ev.Stage] += d
	}
	if tr.enc != nil {
		_ = tr.enc.Encode(ev)
	}
}

// stage records a whole step that began at start.
func (tr *tracer) stage(s Stage, start time.Time) time.Duration {
	d := time.Since(start)
	tr.emit(traceEvent{Stage: s}, start, d)
	return d
}

// document records one file of the summarize stage.
func (tr *tracer) document(file, outcome string, start time.Time, d time.Duration) {
	tr.emit(traceEvent{Stage: StageSummarize, File: file, Outcome: outcome}, start, d)
}

// design records a resolve or lint of top.
func (tr *tracer) design(s Stage, top, outcome string, count int, start time.Time) {
	tr.emit(traceEvent{Stage: s, Top: top, Outcome: outcome, Count: count}, start, time.Since(start))
}

// summary lists stage totals in the order stages first ran.
func (tr *tracer) summary() []stageTotal {
	if tr == nil {
		return nil
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	out := make([]stageTotal, 0, len(tr.order))
	for _, s := range tr.order {
		out = append(out, stageTotal{Stage: s, Duration: tr.totals[s]})
	}
	return out
}

type stageTotal struct {
	Stage    Stage
	Duration time.Duration
}

func ms(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

// tracePath picks the trace file: an explicit TimingPath, then
// IPXACT_META_TRACE, then timing.jsonl in the cache directory (or the
// library root without a cache) when Timing is set.
func (idx *Indexer) tracePath(rootPath string) string {
	if idx.TimingPath != "" {
		return idx.TimingPath
	}
	if p := os.Getenv("IPXACT_META_TRACE"); p != "" {
		return p
	}
	if !idx.Timing {
		return ""
	}
	if idx.Config != nil && cacheEnabled(idx.Config) {
		return filepath.Join(resolveCacheDir(rootPath, idx.Config), "timing.jsonl")
	}
	return filepath.Join(rootPath, "timing.jsonl")
}
